package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/plantlog/internal/db"
	"github.com/plantlog/internal/storage"
	"github.com/plantlog/internal/store"
)

// fakeBackend 在内存中模拟植物表与浇水记录表，并统计调用次数
type fakeBackend struct {
	mu      sync.Mutex
	plants  map[string]*db.Plant
	records []db.WateringRecord
	calls   int

	listErr   error
	listDelay time.Duration
	createErr error
	nextID    int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{plants: make(map[string]*db.Plant)}
}

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeBackend) put(plant db.Plant) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := plant
	f.plants[plant.ID] = &copied
}

func (f *fakeBackend) plant(id string) db.Plant {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.plants[id]
}

func (f *fakeBackend) ListPlants(ctx context.Context, limit int) ([]db.Plant, error) {
	f.mu.Lock()
	f.calls++
	delay, listErr := f.listDelay, f.listErr
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if listErr != nil {
		return nil, listErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	plants := make([]db.Plant, 0, len(f.plants))
	for _, plant := range f.plants {
		plants = append(plants, *plant)
	}
	sort.Slice(plants, func(i, j int) bool { return plants[i].CreatedAt.After(plants[j].CreatedAt) })
	if limit > 0 && len(plants) > limit {
		plants = plants[:limit]
	}
	return plants, nil
}

func (f *fakeBackend) GetPlant(_ context.Context, id string) (*db.Plant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	plant, ok := f.plants[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *plant
	return &copied, nil
}

func (f *fakeBackend) CreatePlant(_ context.Context, plant *db.Plant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	plant.ID = fmt.Sprintf("plant-%d", f.nextID)
	plant.CreatedAt = time.Now()
	copied := *plant
	f.plants[plant.ID] = &copied
	return nil
}

// UpdatePlant 与真实存储一样按 id + owner 过滤
func (f *fakeBackend) UpdatePlant(_ context.Context, id, ownerID string, changes store.PlantChanges) (*db.Plant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	plant, ok := f.plants[id]
	if !ok || plant.OwnerID != ownerID {
		return nil, store.ErrNotFound
	}
	plant.Name = changes.Name
	plant.CommonName = changes.CommonName
	plant.Light = changes.Light
	plant.Water = changes.Water
	plant.Soil = changes.Soil
	plant.LightEN = changes.LightEN
	plant.WaterEN = changes.WaterEN
	plant.SoilEN = changes.SoilEN
	if changes.ImageURL != nil {
		plant.ImageURL = *changes.ImageURL
	}
	if changes.ImageKey != nil {
		plant.ImageKey = *changes.ImageKey
	}
	copied := *plant
	return &copied, nil
}

func (f *fakeBackend) DeletePlant(_ context.Context, id, ownerID string) (*db.Plant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	plant, ok := f.plants[id]
	if !ok || plant.OwnerID != ownerID {
		return nil, store.ErrNotFound
	}
	delete(f.plants, id)
	kept := f.records[:0]
	for _, record := range f.records {
		if record.PlantID != id {
			kept = append(kept, record)
		}
	}
	f.records = kept
	return plant, nil
}

func (f *fakeBackend) HasRecordBetween(_ context.Context, plantID string, start, end time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	for _, record := range f.records {
		if record.PlantID == plantID && !record.WateredAt.Before(start) && record.WateredAt.Before(end) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeBackend) RecordWatering(_ context.Context, plantID string, at time.Time, day string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	plant, ok := f.plants[plantID]
	if !ok {
		return 0, store.ErrNotFound
	}
	for _, record := range f.records {
		if record.PlantID == plantID && record.WateredOn == day {
			return 0, store.ErrDuplicate
		}
	}
	f.records = append(f.records, db.WateringRecord{PlantID: plantID, WateredAt: at, WateredOn: day})
	plant.WateringCount++
	watered := at
	plant.LastWateredAt = &watered
	return plant.WateringCount, nil
}

func (f *fakeBackend) CountRecords(_ context.Context, plantID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	var total int64
	for _, record := range f.records {
		if record.PlantID == plantID {
			total++
		}
	}
	return total, nil
}

func (f *fakeBackend) ListRecords(_ context.Context, plantID string, offset, limit int) ([]db.WateringRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	var matched []db.WateringRecord
	for _, record := range f.records {
		if record.PlantID == plantID {
			matched = append(matched, record)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].WateredAt.After(matched[j].WateredAt) })
	if offset >= len(matched) {
		return []db.WateringRecord{}, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

// fakeBucket 记录上传与删除的对象
type fakeBucket struct {
	mu        sync.Mutex
	uploads   map[string][]byte
	owners    map[string]string
	removed   []string
	uploadErr error
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{uploads: make(map[string][]byte), owners: make(map[string]string)}
}

func (b *fakeBucket) Upload(_ context.Context, key string, body io.Reader, opts storage.UploadOptions) (*db.StoredObject, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.uploadErr != nil {
		return nil, b.uploadErr
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return nil, err
	}
	b.uploads[key] = buf.Bytes()
	b.owners[key] = opts.OwnerID
	return &db.StoredObject{Bucket: "plant-images", ObjectKey: key, OwnerID: opts.OwnerID, Size: int64(buf.Len())}, nil
}

func (b *fakeBucket) PublicURL(key string) string {
	return "/uploads/plant-images/" + key
}

func (b *fakeBucket) Remove(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.uploads, key)
	b.removed = append(b.removed, key)
	return nil
}

func (b *fakeBucket) uploadCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.uploads)
}
