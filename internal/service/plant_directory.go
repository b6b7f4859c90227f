package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/plantlog/internal/db"
	"github.com/plantlog/internal/store"
)

const (
	defaultProbeTimeout = 5 * time.Second
	defaultListTimeout  = 10 * time.Second
)

// DirectoryConfig 控制后台列表的探测与拉取超时
type DirectoryConfig struct {
	ProbeTimeout time.Duration
	ListTimeout  time.Duration
}

// Invalidation 表示一次"数据已变化，请重新拉取"的指令
type Invalidation struct {
	Event    string
	RecordID string
	At       time.Time
}

// DirectoryUpdate 是 Watch 推送的一次完整快照。
// 首个快照的 Trigger 为空；之后每个快照对应一次失效通知。
type DirectoryUpdate struct {
	Plants  []db.Plant
	Trigger *Invalidation
	Err     error
}

// PlantDirectory 负责植物列表的读取与同步
type PlantDirectory struct {
	plants  PlantStore
	changes ChangeSource

	probeTimeout time.Duration
	listTimeout  time.Duration
}

// NewPlantDirectory 构造 PlantDirectory，changes 为空时 Watch 不可用
func NewPlantDirectory(plants PlantStore, changes ChangeSource, cfg DirectoryConfig) *PlantDirectory {
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = defaultProbeTimeout
	}
	if cfg.ListTimeout <= 0 {
		cfg.ListTimeout = defaultListTimeout
	}
	return &PlantDirectory{
		plants:       plants,
		changes:      changes,
		probeTimeout: cfg.ProbeTimeout,
		listTimeout:  cfg.ListTimeout,
	}
}

// Snapshot 按创建时间倒序返回全部植物
func (d *PlantDirectory) Snapshot(ctx context.Context) ([]db.Plant, error) {
	plants, err := d.plants.ListPlants(ctx, 0)
	if err != nil {
		return nil, &PersistenceError{Op: "list plants", Err: err}
	}
	return plants, nil
}

// Get 返回单个植物
func (d *PlantDirectory) Get(ctx context.Context, id string) (*db.Plant, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrPlantNotFound
	}
	plant, err := d.plants.GetPlant(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPlantNotFound
		}
		return nil, &PersistenceError{Op: "get plant", Err: err}
	}
	return plant, nil
}

// ProbedSnapshot 先用 LIMIT 1 探测连通性，再拉取完整列表，两步都有超时上限
func (d *PlantDirectory) ProbedSnapshot(ctx context.Context) ([]db.Plant, error) {
	probeCtx, cancel := context.WithTimeout(ctx, d.probeTimeout)
	_, err := d.plants.ListPlants(probeCtx, 1)
	cancel()
	if err != nil {
		log.Printf("[directory] connectivity probe failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrConnectivity, err)
	}

	listCtx, cancel := context.WithTimeout(ctx, d.listTimeout)
	defer cancel()

	plants, err := d.plants.ListPlants(listCtx, 0)
	if err != nil {
		if listCtx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrConnectivity, listCtx.Err())
		}
		return nil, &PersistenceError{Op: "list plants", Err: err}
	}
	return plants, nil
}

// Watch 推送初始快照，之后每收到一次 plants 表的变更就完整重新拉取一次。
// ctx 结束时通道关闭并释放订阅。
func (d *PlantDirectory) Watch(ctx context.Context) (<-chan DirectoryUpdate, error) {
	if d.changes == nil {
		return nil, errors.New("plant directory has no change source")
	}

	// 先订阅再拉取，避免两者之间的变更丢失
	sub := d.changes.Subscribe(store.TablePlants)

	initial, err := d.Snapshot(ctx)
	if err != nil {
		d.changes.Unsubscribe(sub)
		return nil, err
	}

	out := make(chan DirectoryUpdate, 1)
	go func() {
		defer close(out)
		defer d.changes.Unsubscribe(sub)

		if !sendUpdate(ctx, out, DirectoryUpdate{Plants: initial}) {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case change, ok := <-sub.C():
				if !ok {
					return
				}
				update := d.Reload(ctx, Invalidation{Event: change.Event, RecordID: change.RecordID, At: change.At})
				if !sendUpdate(ctx, out, update) {
					return
				}
			}
		}
	}()

	return out, nil
}

// Reload 响应一次失效指令：丢弃旧数据并完整拉取，不做增量合并
func (d *PlantDirectory) Reload(ctx context.Context, trigger Invalidation) DirectoryUpdate {
	plants, err := d.Snapshot(ctx)
	if err != nil {
		log.Printf("[directory] reload after %s %s failed: %v", trigger.Event, trigger.RecordID, err)
	}
	return DirectoryUpdate{Plants: plants, Trigger: &trigger, Err: err}
}

func sendUpdate(ctx context.Context, out chan<- DirectoryUpdate, update DirectoryUpdate) bool {
	select {
	case out <- update:
		return true
	case <-ctx.Done():
		return false
	}
}
