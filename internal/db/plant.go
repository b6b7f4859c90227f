package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Plant 定义了植物模型
// Name/Light/Water/Soil 为必填项，*EN 字段为可选的英文养护说明
// WateringCount 与 LastWateredAt 只由打卡流程维护
// OwnerID 为创建者，所有编辑/删除都限定在该字段上
type Plant struct {
	ID            string `gorm:"primaryKey;size:36"`
	Name          string `gorm:"not null"`
	CommonName    string
	Light         string `gorm:"not null"`
	Water         string `gorm:"not null"`
	Soil          string `gorm:"not null"`
	LightEN       string `gorm:"column:light_en"`
	WaterEN       string `gorm:"column:water_en"`
	SoilEN        string `gorm:"column:soil_en"`
	ImageURL      string
	ImageKey      string
	WateringCount int `gorm:"not null;default:0"`
	LastWateredAt *time.Time
	OwnerID       string `gorm:"size:36;index"`
	CreatedAt     time.Time `gorm:"index"`
	UpdatedAt     time.Time

	Records []WateringRecord `gorm:"constraint:OnDelete:CASCADE"`
}

// BeforeCreate 为新植物分配不可变的 UUID
func (p *Plant) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
