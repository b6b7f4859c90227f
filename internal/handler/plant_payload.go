package handler

import (
	"bytes"
	"html/template"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"github.com/plantlog/internal/db"
	"github.com/plantlog/internal/locale"
	"github.com/plantlog/internal/service"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)
	sanitizer = bluemonday.UGCPolicy()
)

func renderMarkdown(content string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(content), &buf); err != nil {
		return "", err
	}
	safe := sanitizer.SanitizeBytes(buf.Bytes())
	return template.HTML(safe), nil
}

// careNotesHTML 按请求语言选出养护说明并渲染为安全的 HTML
func careNotesHTML(plant db.Plant, language string) (gin.H, error) {
	notes := map[string]string{
		"light": locale.Pick(language, plant.LightEN, plant.Light),
		"water": locale.Pick(language, plant.WaterEN, plant.Water),
		"soil":  locale.Pick(language, plant.SoilEN, plant.Soil),
	}

	rendered := gin.H{}
	for key, text := range notes {
		out, err := renderMarkdown(text)
		if err != nil {
			return nil, err
		}
		rendered[key] = out
	}
	return rendered, nil
}

func (a *API) plantToPayload(plant db.Plant, now time.Time) gin.H {
	item := gin.H{
		"id":             plant.ID,
		"name":           plant.Name,
		"common_name":    plant.CommonName,
		"light":          plant.Light,
		"water":          plant.Water,
		"soil":           plant.Soil,
		"light_en":       plant.LightEN,
		"water_en":       plant.WaterEN,
		"soil_en":        plant.SoilEN,
		"image_url":      plant.ImageURL,
		"watering_count": plant.WateringCount,
		"watered_today":  service.HasWateredToday(&plant, now, a.location),
		"created_at":     plant.CreatedAt.In(a.location).Format(time.RFC3339),
	}

	if plant.LastWateredAt != nil {
		item["last_watered_at"] = plant.LastWateredAt.In(a.location).Format(time.RFC3339)
	} else {
		item["last_watered_at"] = nil
	}

	return item
}

// wateringStatus 返回按语言格式化的浇水状态和最近浇水日期
func (a *API) wateringStatus(plant db.Plant, now time.Time, language string) gin.H {
	status := gin.H{
		"label":              locale.WateringStatus(language, service.HasWateredToday(&plant, now, a.location), plant.WateringCount),
		"last_watered_label": nil,
	}
	if plant.LastWateredAt != nil {
		status["last_watered_label"] = locale.FormatDay(language, plant.LastWateredAt.In(a.location))
	}
	return status
}

func (a *API) plantsToPayload(plants []db.Plant, now time.Time) []gin.H {
	items := make([]gin.H, 0, len(plants))
	for _, plant := range plants {
		items = append(items, a.plantToPayload(plant, now))
	}
	return items
}

func (a *API) recordsToPayload(records []db.WateringRecord) []gin.H {
	items := make([]gin.H, 0, len(records))
	for _, record := range records {
		items = append(items, gin.H{
			"id":         record.ID,
			"plant_id":   record.PlantID,
			"watered_at": record.WateredAt.In(a.location).Format(time.RFC3339),
			"watered_on": record.WateredOn,
		})
	}
	return items
}
