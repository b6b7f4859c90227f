package service

import (
	"context"
	"strings"

	"github.com/plantlog/internal/db"
)

const defaultHistoryPageSize = 10

// HistoryPage 是一页浇水记录，页码从 1 开始
type HistoryPage struct {
	Records    []db.WateringRecord
	Page       int
	PageSize   int
	TotalPages int
	Total      int64
}

// HistoryService 负责按页读取浇水记录
type HistoryService struct {
	records  WateringStore
	pageSize int
}

// NewHistoryService 构造 HistoryService，pageSize<=0 时使用 10
func NewHistoryService(records WateringStore, pageSize int) *HistoryService {
	if pageSize <= 0 {
		pageSize = defaultHistoryPageSize
	}
	return &HistoryService{records: records, pageSize: pageSize}
}

// Page 按浇水时间倒序返回指定页。
// 超出范围的页码会被夹到 [1, TotalPages]；没有记录时返回第 1 页、TotalPages 为 0。
func (s *HistoryService) Page(ctx context.Context, plantID string, page, pageSize int) (HistoryPage, error) {
	if pageSize <= 0 {
		pageSize = s.pageSize
	}
	if page < 1 {
		page = 1
	}
	plantID = strings.TrimSpace(plantID)

	total, err := s.records.CountRecords(ctx, plantID)
	if err != nil {
		return HistoryPage{}, &PersistenceError{Op: "count watering records", Err: err}
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	result := HistoryPage{
		Records:    []db.WateringRecord{},
		Page:       1,
		PageSize:   pageSize,
		TotalPages: totalPages,
		Total:      total,
	}
	if totalPages == 0 {
		return result, nil
	}

	if page > totalPages {
		page = totalPages
	}
	result.Page = page

	records, err := s.records.ListRecords(ctx, plantID, (page-1)*pageSize, pageSize)
	if err != nil {
		return HistoryPage{}, &PersistenceError{Op: "list watering records", Err: err}
	}
	result.Records = records
	return result, nil
}

// Recent 返回最近 limit 条记录，limit<=0 时使用默认页大小
func (s *HistoryService) Recent(ctx context.Context, plantID string, limit int) ([]db.WateringRecord, error) {
	if limit <= 0 {
		limit = s.pageSize
	}
	records, err := s.records.ListRecords(ctx, strings.TrimSpace(plantID), 0, limit)
	if err != nil {
		return nil, &PersistenceError{Op: "list watering records", Err: err}
	}
	return records, nil
}
