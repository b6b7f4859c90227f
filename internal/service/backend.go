package service

import (
	"context"
	"time"

	"github.com/plantlog/internal/db"
	"github.com/plantlog/internal/realtime"
	"github.com/plantlog/internal/store"
)

// PlantStore 是植物表的读写能力，由 store.PlantStore 实现
type PlantStore interface {
	ListPlants(ctx context.Context, limit int) ([]db.Plant, error)
	GetPlant(ctx context.Context, id string) (*db.Plant, error)
	CreatePlant(ctx context.Context, plant *db.Plant) error
	UpdatePlant(ctx context.Context, id, ownerID string, changes store.PlantChanges) (*db.Plant, error)
	DeletePlant(ctx context.Context, id, ownerID string) (*db.Plant, error)
}

// WateringStore 是浇水记录的读写能力，由 store.WateringStore 实现
type WateringStore interface {
	HasRecordBetween(ctx context.Context, plantID string, start, end time.Time) (bool, error)
	RecordWatering(ctx context.Context, plantID string, at time.Time, day string) (int, error)
	CountRecords(ctx context.Context, plantID string) (int64, error)
	ListRecords(ctx context.Context, plantID string, offset, limit int) ([]db.WateringRecord, error)
}

// ChangeSource 提供按表订阅的变更通知，由 realtime.Hub 实现
type ChangeSource interface {
	Subscribe(topic string) *realtime.Subscription
	Unsubscribe(sub *realtime.Subscription)
}

var (
	_ PlantStore    = (*store.PlantStore)(nil)
	_ WateringStore = (*store.WateringStore)(nil)
	_ ChangeSource  = (*realtime.Hub)(nil)
)
