package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/plantlog/internal/db"
	"github.com/plantlog/internal/realtime"
	"github.com/plantlog/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedDirectory(backend *fakeBackend) {
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	backend.put(db.Plant{ID: "pothos", Name: "绿萝", OwnerID: "owner-1", CreatedAt: base})
	backend.put(db.Plant{ID: "monstera", Name: "龟背竹", OwnerID: "owner-1", CreatedAt: base.Add(time.Hour)})
}

func receiveUpdate(t *testing.T, updates <-chan DirectoryUpdate) DirectoryUpdate {
	t.Helper()
	select {
	case update, ok := <-updates:
		require.True(t, ok, "updates channel closed unexpectedly")
		return update
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for directory update")
	}
	return DirectoryUpdate{}
}

func TestSnapshotNewestFirst(t *testing.T) {
	backend := newFakeBackend()
	seedDirectory(backend)
	directory := NewPlantDirectory(backend, nil, DirectoryConfig{})

	plants, err := directory.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, plants, 2)
	assert.Equal(t, "monstera", plants[0].ID)
	assert.Equal(t, "pothos", plants[1].ID)
}

func TestGetMapsMissingPlant(t *testing.T) {
	directory := NewPlantDirectory(newFakeBackend(), nil, DirectoryConfig{})

	_, err := directory.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrPlantNotFound)
}

func TestWatchRefetchesOncePerNotification(t *testing.T) {
	backend := newFakeBackend()
	seedDirectory(backend)
	hub := realtime.NewHub(4)
	defer hub.Close()

	directory := NewPlantDirectory(backend, hub, DirectoryConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, err := directory.Watch(ctx)
	require.NoError(t, err)

	initial := receiveUpdate(t, updates)
	assert.Nil(t, initial.Trigger)
	assert.Len(t, initial.Plants, 2)
	assert.Equal(t, 1, backend.callCount())
	assert.Equal(t, 1, hub.SubscriberCount(store.TablePlants))

	// 一株无关植物的更新也会触发一次完整重新拉取
	backend.put(db.Plant{ID: "ficus", Name: "琴叶榕", CreatedAt: time.Date(2024, 5, 3, 9, 0, 0, 0, time.UTC)})
	hub.Publish(ctx, realtime.Change{Topic: store.TablePlants, Event: realtime.EventUpdate, RecordID: "ficus"})

	update := receiveUpdate(t, updates)
	require.NotNil(t, update.Trigger)
	assert.Equal(t, realtime.EventUpdate, update.Trigger.Event)
	assert.Equal(t, "ficus", update.Trigger.RecordID)
	require.NoError(t, update.Err)
	require.Len(t, update.Plants, 3)
	assert.Equal(t, "ficus", update.Plants[0].ID)
	assert.Equal(t, 2, backend.callCount())

	// 其他表的变更不会触发拉取
	hub.Publish(ctx, realtime.Change{Topic: store.TableWateringRecords, Event: realtime.EventInsert, RecordID: "r-1"})
	select {
	case extra := <-updates:
		t.Fatalf("unexpected update for unrelated topic: %+v", extra)
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, 2, backend.callCount())

	cancel()
	require.Eventually(t, func() bool {
		return hub.SubscriberCount(store.TablePlants) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestWatchReportsReloadFailure(t *testing.T) {
	backend := newFakeBackend()
	seedDirectory(backend)
	hub := realtime.NewHub(4)
	defer hub.Close()

	directory := NewPlantDirectory(backend, hub, DirectoryConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, err := directory.Watch(ctx)
	require.NoError(t, err)
	receiveUpdate(t, updates)

	backend.mu.Lock()
	backend.listErr = errors.New("connection reset")
	backend.mu.Unlock()
	hub.Publish(ctx, realtime.Change{Topic: store.TablePlants, Event: realtime.EventDelete, RecordID: "pothos"})

	update := receiveUpdate(t, updates)
	assert.ErrorIs(t, update.Err, ErrPersistence)
}

func TestWatchWithoutChangeSource(t *testing.T) {
	directory := NewPlantDirectory(newFakeBackend(), nil, DirectoryConfig{})

	_, err := directory.Watch(context.Background())
	assert.Error(t, err)
}

func TestProbedSnapshot(t *testing.T) {
	backend := newFakeBackend()
	seedDirectory(backend)
	directory := NewPlantDirectory(backend, nil, DirectoryConfig{ProbeTimeout: 20 * time.Millisecond, ListTimeout: 20 * time.Millisecond})

	plants, err := directory.ProbedSnapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, plants, 2)
	assert.Equal(t, 2, backend.callCount(), "expected probe plus full list")
}

func TestProbedSnapshotTimesOut(t *testing.T) {
	backend := newFakeBackend()
	seedDirectory(backend)
	backend.listDelay = 200 * time.Millisecond
	directory := NewPlantDirectory(backend, nil, DirectoryConfig{ProbeTimeout: 10 * time.Millisecond, ListTimeout: 10 * time.Millisecond})

	started := time.Now()
	_, err := directory.ProbedSnapshot(context.Background())
	assert.ErrorIs(t, err, ErrConnectivity)
	assert.Less(t, time.Since(started), 150*time.Millisecond)
	assert.Equal(t, 1, backend.callCount(), "full list must not run after a failed probe")
}
