package handler

import (
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/plantlog/internal/db"
	"github.com/plantlog/internal/service"
)

const recentRecordLimit = 10

// ListPlants 返回植物列表及每株今天是否已浇水
func (a *API) ListPlants(c *gin.Context) {
	plants, err := a.directory.Snapshot(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取植物列表失败")
		return
	}

	now := a.now()
	c.JSON(http.StatusOK, gin.H{
		"plants": a.plantsToPayload(plants, now),
		"today":  service.DayKey(now, a.location),
	})
}

// StreamPlants 以 SSE 推送植物列表：先推送一次快照，之后每次变更都推送完整快照
func (a *API) StreamPlants(c *gin.Context) {
	updates, err := a.directory.Watch(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "订阅植物列表失败")
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.Stream(func(w io.Writer) bool {
		update, ok := <-updates
		if !ok {
			return false
		}
		if update.Err != nil {
			c.SSEvent("error", gin.H{"error": "刷新植物列表失败"})
			return true
		}
		c.SSEvent("snapshot", a.snapshotPayload(update))
		return true
	})
}

func (a *API) snapshotPayload(update service.DirectoryUpdate) gin.H {
	now := a.now()
	payload := gin.H{
		"plants": a.plantsToPayload(update.Plants, now),
		"today":  service.DayKey(now, a.location),
	}
	if update.Trigger != nil {
		payload["trigger"] = gin.H{
			"event":     update.Trigger.Event,
			"record_id": update.Trigger.RecordID,
		}
	}
	return payload
}

// GetPlant 返回植物详情、渲染后的养护说明和最近的浇水记录
func (a *API) GetPlant(c *gin.Context) {
	ctx := c.Request.Context()

	plant, err := a.directory.Get(ctx, c.Param("id"))
	if err != nil {
		handlePlantError(c, err)
		return
	}

	records, err := a.history.Recent(ctx, plant.ID, recentRecordLimit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取浇水记录失败")
		return
	}

	pref := a.requestLocale(c)
	care, err := careNotesHTML(*plant, pref.Language)
	if err != nil {
		log.Printf("[handler] render care notes for %s: %v", plant.ID, err)
		respondError(c, http.StatusInternalServerError, "渲染养护说明失败")
		return
	}

	now := a.now()
	c.JSON(http.StatusOK, gin.H{
		"plant":    a.plantToPayload(*plant, now),
		"care":     care,
		"status":   a.wateringStatus(*plant, now, pref.Language),
		"language": pref.Language,
		"records":  a.recordsToPayload(records),
	})
}

// WaterPlant 为植物打卡浇水
func (a *API) WaterPlant(c *gin.Context) {
	result, err := a.checkins.CheckIn(c.Request.Context(), c.Param("id"), a.now())
	if err != nil {
		handleCheckinError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"plant_id":        result.PlantID,
		"watering_count":  result.NewCount,
		"last_watered_at": result.NewLastWateredAt.In(a.location).Format(time.RFC3339),
		"watered_on":      result.NewLastWateredAt.In(a.location).Format(db.DayKeyLayout),
		"watered_today":   true,
	})
}

func handleCheckinError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAlreadyWateredToday):
		respondErrorCode(c, http.StatusConflict, "already_watered", "今天已经浇过水了")
	case errors.Is(err, service.ErrCheckinInProgress):
		respondErrorCode(c, http.StatusConflict, "checkin_in_progress", "正在打卡，请稍候")
	case errors.Is(err, service.ErrPlantNotFound):
		respondError(c, http.StatusNotFound, "植物不存在")
	default:
		log.Printf("[handler] check-in failed: %v", err)
		respondError(c, http.StatusInternalServerError, "打卡失败")
	}
}
