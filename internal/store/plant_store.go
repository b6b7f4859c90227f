package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/plantlog/internal/db"
	"github.com/plantlog/internal/realtime"
	"gorm.io/gorm"
)

// PlantChanges 描述一次编辑可写入的字段。
// ImageURL/ImageKey 为 nil 时保留原有图片。
type PlantChanges struct {
	Name       string
	CommonName string
	Light      string
	Water      string
	Soil       string
	LightEN    string
	WaterEN    string
	SoilEN     string
	ImageURL   *string
	ImageKey   *string
}

// PlantStore 基于 gorm 的植物表读写
type PlantStore struct {
	db        *gorm.DB
	publisher realtime.Publisher
}

// NewPlantStore 构造 PlantStore，publisher 可为空
func NewPlantStore(gdb *gorm.DB, publisher realtime.Publisher) *PlantStore {
	return &PlantStore{db: gdb, publisher: publisher}
}

// ListPlants 按创建时间倒序返回植物，limit<=0 表示不限制
func (s *PlantStore) ListPlants(ctx context.Context, limit int) ([]db.Plant, error) {
	var plants []db.Plant

	query := s.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&plants).Error; err != nil {
		return nil, fmt.Errorf("list plants: %w", err)
	}
	return plants, nil
}

// GetPlant 根据 ID 获取植物
func (s *PlantStore) GetPlant(ctx context.Context, id string) (*db.Plant, error) {
	var plant db.Plant
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&plant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get plant: %w", err)
	}
	return &plant, nil
}

// CreatePlant 新建植物
func (s *PlantStore) CreatePlant(ctx context.Context, plant *db.Plant) error {
	if err := s.db.WithContext(ctx).Create(plant).Error; err != nil {
		return fmt.Errorf("create plant: %w", err)
	}
	publish(ctx, s.publisher, TablePlants, realtime.EventInsert, plant.ID)
	return nil
}

// UpdatePlant 只更新 id 与 owner_id 同时匹配的行，未匹配时返回 ErrNotFound
func (s *PlantStore) UpdatePlant(ctx context.Context, id, ownerID string, changes PlantChanges) (*db.Plant, error) {
	values := map[string]any{
		"name":        changes.Name,
		"common_name": changes.CommonName,
		"light":       changes.Light,
		"water":       changes.Water,
		"soil":        changes.Soil,
		"light_en":    changes.LightEN,
		"water_en":    changes.WaterEN,
		"soil_en":     changes.SoilEN,
	}
	if changes.ImageURL != nil {
		values["image_url"] = *changes.ImageURL
	}
	if changes.ImageKey != nil {
		values["image_key"] = *changes.ImageKey
	}

	result := s.db.WithContext(ctx).
		Model(&db.Plant{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Updates(values)
	if result.Error != nil {
		return nil, fmt.Errorf("update plant: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	publish(ctx, s.publisher, TablePlants, realtime.EventUpdate, id)
	return s.GetPlant(ctx, id)
}

// DeletePlant 删除属于 ownerID 的植物，并在同一事务中删除全部浇水记录
func (s *PlantStore) DeletePlant(ctx context.Context, id, ownerID string) (*db.Plant, error) {
	var deleted db.Plant

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND owner_id = ?", id, ownerID).First(&deleted).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if err := tx.Where("plant_id = ?", id).Delete(&db.WateringRecord{}).Error; err != nil {
			return err
		}

		return tx.Where("id = ? AND owner_id = ?", id, ownerID).Delete(&db.Plant{}).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("delete plant: %w", err)
	}

	publish(ctx, s.publisher, TablePlants, realtime.EventDelete, id)
	return &deleted, nil
}
