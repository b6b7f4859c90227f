package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/plantlog/internal/db"
	"github.com/plantlog/internal/store"
)

// CheckinResult 是服务端确认后的打卡结果，调用方据此直接更新本地视图
type CheckinResult struct {
	PlantID          string
	NewCount         int
	NewLastWateredAt time.Time
}

// CheckinService 负责每日浇水打卡。
// "今天是否已浇水" 只由当前时间与记录推导，不单独存储。
type CheckinService struct {
	records WateringStore
	loc     *time.Location

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewCheckinService 构造 CheckinService，loc 为判定日期使用的参考时区
func NewCheckinService(records WateringStore, loc *time.Location) *CheckinService {
	if loc == nil {
		loc = time.Local
	}
	return &CheckinService{
		records:  records,
		loc:      loc,
		inFlight: make(map[string]struct{}),
	}
}

// Location 返回参考时区
func (s *CheckinService) Location() *time.Location {
	return s.loc
}

// CheckIn 为植物记录一次浇水。
// 先查询今天是否已有记录，再在一个事务中写入记录并递增计数。
func (s *CheckinService) CheckIn(ctx context.Context, plantID string, now time.Time) (CheckinResult, error) {
	plantID = strings.TrimSpace(plantID)
	if plantID == "" {
		return CheckinResult{}, ErrPlantNotFound
	}

	if !s.acquire(plantID) {
		return CheckinResult{}, ErrCheckinInProgress
	}
	defer s.release(plantID)

	start := StartOfDay(now, s.loc)
	watered, err := s.records.HasRecordBetween(ctx, plantID, start, start.AddDate(0, 0, 1))
	if err != nil {
		return CheckinResult{}, &PersistenceError{Op: "check today's watering", Err: err}
	}
	if watered {
		return CheckinResult{}, ErrAlreadyWateredToday
	}

	count, err := s.records.RecordWatering(ctx, plantID, now, DayKey(now, s.loc))
	if err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicate):
			// 并发请求越过了前置检查，由唯一索引兜底
			return CheckinResult{}, ErrAlreadyWateredToday
		case errors.Is(err, store.ErrNotFound):
			return CheckinResult{}, ErrPlantNotFound
		default:
			return CheckinResult{}, &PersistenceError{Op: "record watering", Err: err}
		}
	}

	return CheckinResult{
		PlantID:          plantID,
		NewCount:         count,
		NewLastWateredAt: now,
	}, nil
}

// InFlight 判断植物是否有尚未返回的打卡
func (s *CheckinService) InFlight(plantID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inFlight[plantID]
	return ok
}

func (s *CheckinService) acquire(plantID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[plantID]; busy {
		return false
	}
	s.inFlight[plantID] = struct{}{}
	return true
}

func (s *CheckinService) release(plantID string) {
	s.mu.Lock()
	delete(s.inFlight, plantID)
	s.mu.Unlock()
}

// HasWateredToday 比较上次浇水与 now 在参考时区下是否为同一天，仅用于界面提示
func HasWateredToday(plant *db.Plant, now time.Time, loc *time.Location) bool {
	if plant == nil || plant.LastWateredAt == nil {
		return false
	}
	return DayKey(*plant.LastWateredAt, loc) == DayKey(now, loc)
}

// StartOfDay 返回 t 在参考时区下当天零点
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// DayKey 返回 t 在参考时区下的日期 YYYY-MM-DD
func DayKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(db.DayKeyLayout)
}
