package store

import (
	"context"
	"errors"
	"strings"

	"github.com/plantlog/internal/realtime"
	"gorm.io/gorm"
)

var (
	// ErrNotFound 在目标行不存在（或不属于调用方）时返回
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate 在唯一约束冲突时返回
	ErrDuplicate = errors.New("duplicate record")
)

// 表名同时作为变更通知的主题
const (
	TablePlants          = "plants"
	TableWateringRecords = "watering_records"
)

func publish(ctx context.Context, publisher realtime.Publisher, topic, event, id string) {
	if publisher == nil {
		return
	}
	publisher.Publish(context.WithoutCancel(ctx), realtime.Change{Topic: topic, Event: event, RecordID: id})
}

func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
