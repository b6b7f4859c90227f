package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DayKeyLayout 为 WateredOn 的日期格式
const DayKeyLayout = "2006-01-02"

// WateringRecord 记录一次浇水打卡
// PlantID + WateredOn 采用唯一索引，保证同一植物每个自然日至多一条；
// WateredOn 为 WateredAt 在参考时区下的日期，由写入方计算
type WateringRecord struct {
	ID        string    `gorm:"primaryKey;size:36"`
	PlantID   string    `gorm:"size:36;not null;index;index:idx_watering_plant_day,unique"`
	WateredAt time.Time `gorm:"not null;index"`
	WateredOn string    `gorm:"size:10;not null;index:idx_watering_plant_day,unique"`
	CreatedAt time.Time
}

// TableName 固定表名，唯一索引作用到 plant_id + watered_on
func (WateringRecord) TableName() string {
	return "watering_records"
}

// BeforeCreate 分配记录 ID
func (r *WateringRecord) BeforeCreate(*gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
