package handler

import (
	"errors"
	"log"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/plantlog/internal/auth"
	"github.com/plantlog/internal/service"
	"github.com/plantlog/internal/storage"
)

type plantPayload struct {
	Name       string `json:"name"`
	CommonName string `json:"common_name"`
	Light      string `json:"light"`
	Water      string `json:"water"`
	Soil       string `json:"soil"`
	LightEN    string `json:"light_en"`
	WaterEN    string `json:"water_en"`
	SoilEN     string `json:"soil_en"`
}

func (p plantPayload) toInput() service.PlantInput {
	return service.PlantInput{
		Name:       p.Name,
		CommonName: p.CommonName,
		Light:      p.Light,
		Water:      p.Water,
		Soil:       p.Soil,
		LightEN:    p.LightEN,
		WaterEN:    p.WaterEN,
		SoilEN:     p.SoilEN,
	}
}

// AdminListPlants 返回后台植物列表，先做连通性探测
func (a *API) AdminListPlants(c *gin.Context) {
	plants, err := a.directory.ProbedSnapshot(c.Request.Context())
	if err != nil {
		handlePlantError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"plants": a.plantsToPayload(plants, a.now())})
}

// CreatePlant 新建植物，支持 multipart 表单（可带图片）或 JSON
func (a *API) CreatePlant(c *gin.Context) {
	principal, _ := auth.CurrentPrincipal(c)

	input, image, closeImage, ok := parsePlantRequest(c)
	if !ok {
		return
	}
	defer closeImage()

	plant, err := a.editor.Create(c.Request.Context(), input, image, ownerIDOf(principal))
	if err != nil {
		handlePlantError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"plant": a.plantToPayload(*plant, a.now())})
}

// UpdatePlant 更新植物，仅限创建者
func (a *API) UpdatePlant(c *gin.Context) {
	principal, _ := auth.CurrentPrincipal(c)

	input, image, closeImage, ok := parsePlantRequest(c)
	if !ok {
		return
	}
	defer closeImage()

	plant, err := a.editor.Update(c.Request.Context(), c.Param("id"), input, image, ownerIDOf(principal))
	if err != nil {
		handlePlantError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"plant": a.plantToPayload(*plant, a.now())})
}

// DeletePlant 删除植物及其浇水记录
func (a *API) DeletePlant(c *gin.Context) {
	principal, _ := auth.CurrentPrincipal(c)

	if err := a.editor.Delete(c.Request.Context(), c.Param("id"), ownerIDOf(principal)); err != nil {
		handlePlantError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// ListPlantRecords 分页返回植物的浇水记录
func (a *API) ListPlantRecords(c *gin.Context) {
	ctx := c.Request.Context()

	plant, err := a.directory.Get(ctx, c.Param("id"))
	if err != nil {
		handlePlantError(c, err)
		return
	}

	page, err := a.history.Page(ctx, plant.ID, parsePageQuery(c, "page"), parseIntQuery(c, "page_size", 0))
	if err != nil {
		handlePlantError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"plant":       a.plantToPayload(*plant, a.now()),
		"records":     a.recordsToPayload(page.Records),
		"page":        page.Page,
		"page_size":   page.PageSize,
		"total_pages": page.TotalPages,
		"total":       page.Total,
	})
}

func parsePlantRequest(c *gin.Context) (service.PlantInput, *service.ImageUpload, func(), bool) {
	noop := func() {}
	var payload plantPayload

	if isJSONRequest(c) {
		if !bindJSON(c, &payload, "请求参数不合法") {
			return service.PlantInput{}, nil, noop, false
		}
		return payload.toInput(), nil, noop, true
	}

	payload.Name = c.PostForm("name")
	payload.CommonName = c.PostForm("common_name")
	payload.Light = c.PostForm("light")
	payload.Water = c.PostForm("water")
	payload.Soil = c.PostForm("soil")
	payload.LightEN = c.PostForm("light_en")
	payload.WaterEN = c.PostForm("water_en")
	payload.SoilEN = c.PostForm("soil_en")

	header, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return payload.toInput(), nil, noop, true
		}
		respondError(c, http.StatusBadRequest, "读取上传图片失败")
		return service.PlantInput{}, nil, noop, false
	}

	file, err := header.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "读取上传图片失败")
		return service.PlantInput{}, nil, noop, false
	}

	return payload.toInput(), &service.ImageUpload{Filename: header.Filename, Body: file}, closeFile(file), true
}

func closeFile(file multipart.File) func() {
	return func() {
		file.Close()
	}
}

func ownerIDOf(principal *auth.Principal) string {
	if principal == nil {
		return ""
	}
	return principal.UserID
}

func handlePlantError(c *gin.Context, err error) {
	var (
		validationErr  *service.ValidationError
		storageErr     *service.StorageError
		persistenceErr *service.PersistenceError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "请填写必填项", "fields": validationErr.Fields})
	case errors.Is(err, service.ErrUnauthenticated):
		respondError(c, http.StatusUnauthorized, "请先登录")
	case errors.Is(err, service.ErrPlantNotFound):
		respondError(c, http.StatusNotFound, "植物不存在")
	case errors.Is(err, service.ErrConnectivity):
		respondError(c, http.StatusServiceUnavailable, "无法连接数据库，请稍后重试")
	case errors.As(err, &storageErr):
		switch {
		case storageErr.BucketMissing():
			respondErrorCode(c, http.StatusServiceUnavailable, "bucket_not_found", "图片存储桶不存在，请检查存储配置")
		case errors.Is(err, storage.ErrNotAnImage), errors.Is(err, storage.ErrObjectTooLarge):
			respondError(c, http.StatusBadRequest, "只允许上传不超过限制的图片文件")
		default:
			log.Printf("[handler] image upload failed: %v", err)
			respondError(c, http.StatusInternalServerError, "图片上传失败")
		}
	case errors.As(err, &persistenceErr):
		log.Printf("[handler] %v", err)
		respondError(c, http.StatusInternalServerError, "保存失败: "+persistenceErr.Err.Error())
	default:
		log.Printf("[handler] unexpected plant error: %v", err)
		respondError(c, http.StatusInternalServerError, "操作失败")
	}
}
