package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/plantlog/internal/db"
	"github.com/plantlog/internal/realtime"
	"gorm.io/gorm"
)

// WateringStore 负责浇水记录与植物计数的读写
type WateringStore struct {
	db        *gorm.DB
	publisher realtime.Publisher
}

// NewWateringStore 构造 WateringStore，publisher 可为空
func NewWateringStore(gdb *gorm.DB, publisher realtime.Publisher) *WateringStore {
	return &WateringStore{db: gdb, publisher: publisher}
}

// HasRecordBetween 判断植物在 [start, end) 区间内是否已有浇水记录
func (s *WateringStore) HasRecordBetween(ctx context.Context, plantID string, start, end time.Time) (bool, error) {
	var ids []string
	if err := s.db.WithContext(ctx).
		Model(&db.WateringRecord{}).
		Where("plant_id = ? AND watered_at >= ? AND watered_at < ?", plantID, start.UTC(), end.UTC()).
		Limit(1).
		Pluck("id", &ids).Error; err != nil {
		return false, fmt.Errorf("query watering records: %w", err)
	}
	return len(ids) > 0, nil
}

// RecordWatering 写入浇水记录并把计数 +1、更新上次浇水时间，两步在同一事务内完成。
// 同一植物同一天重复写入返回 ErrDuplicate；植物不存在返回 ErrNotFound。
func (s *WateringStore) RecordWatering(ctx context.Context, plantID string, at time.Time, day string) (int, error) {
	var (
		record   db.WateringRecord
		newCount int
	)
	// SQLite 以文本保存时间，统一为 UTC 才能按区间比较
	at = at.UTC()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record = db.WateringRecord{PlantID: plantID, WateredAt: at, WateredOn: day}
		if err := tx.Create(&record).Error; err != nil {
			if isDuplicate(err) {
				return ErrDuplicate
			}
			if isForeignKeyViolation(err) {
				return ErrNotFound
			}
			return err
		}

		var plant db.Plant
		if err := tx.Select("id", "watering_count").Where("id = ?", plantID).First(&plant).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		newCount = plant.WateringCount + 1
		return tx.Model(&db.Plant{}).
			Where("id = ?", plantID).
			Updates(map[string]any{"watering_count": newCount, "last_watered_at": at}).Error
	})
	if err != nil {
		if errors.Is(err, ErrDuplicate) || errors.Is(err, ErrNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("record watering: %w", err)
	}

	publish(ctx, s.publisher, TableWateringRecords, realtime.EventInsert, record.ID)
	publish(ctx, s.publisher, TablePlants, realtime.EventUpdate, plantID)
	return newCount, nil
}

// CountRecords 返回植物的浇水记录总数
func (s *WateringStore) CountRecords(ctx context.Context, plantID string) (int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).
		Model(&db.WateringRecord{}).
		Where("plant_id = ?", plantID).
		Count(&total).Error; err != nil {
		return 0, fmt.Errorf("count watering records: %w", err)
	}
	return total, nil
}

// ListRecords 按浇水时间倒序分段返回记录
func (s *WateringStore) ListRecords(ctx context.Context, plantID string, offset, limit int) ([]db.WateringRecord, error) {
	var records []db.WateringRecord
	if err := s.db.WithContext(ctx).
		Where("plant_id = ?", plantID).
		Order("watered_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list watering records: %w", err)
	}
	return records, nil
}
