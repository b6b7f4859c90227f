package handler

import (
	"time"

	"github.com/plantlog/internal/auth"
	"github.com/plantlog/internal/realtime"
	"github.com/plantlog/internal/service"
	"github.com/plantlog/internal/storage"
	"github.com/plantlog/internal/store"
	"gorm.io/gorm"
)

// Dependencies 汇总 API 构造时需要的外部组件
type Dependencies struct {
	Hub             *realtime.Hub
	Bucket          storage.Bucket
	Session         *auth.Session
	Location        *time.Location
	ProbeTimeout    time.Duration
	ListTimeout     time.Duration
	HistoryPageSize int
}

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db        *gorm.DB
	directory *service.PlantDirectory
	checkins  *service.CheckinService
	editor    *service.PlantEditor
	history   *service.HistoryService
	auth      *auth.Service
	session   *auth.Session
	location  *time.Location
	now       func() time.Time
}

// NewAPI constructs a handler set with shared services.
func NewAPI(gdb *gorm.DB, deps Dependencies) *API {
	// Hub 为空时保持接口为 nil，避免调用空指针
	var (
		publisher realtime.Publisher
		changes   service.ChangeSource
	)
	if deps.Hub != nil {
		publisher = deps.Hub
		changes = deps.Hub
	}

	location := deps.Location
	if location == nil {
		location = time.Local
	}

	plants := store.NewPlantStore(gdb, publisher)
	records := store.NewWateringStore(gdb, publisher)

	return &API{
		db: gdb,
		directory: service.NewPlantDirectory(plants, changes, service.DirectoryConfig{
			ProbeTimeout: deps.ProbeTimeout,
			ListTimeout:  deps.ListTimeout,
		}),
		checkins: service.NewCheckinService(records, location),
		editor:   service.NewPlantEditor(plants, deps.Bucket),
		history:  service.NewHistoryService(records, deps.HistoryPageSize),
		auth:     auth.NewService(gdb, publisher),
		session:  deps.Session,
		location: location,
		now:      time.Now,
	}
}

// Auth 返回账号服务，供启动流程创建初始账号
func (a *API) Auth() *auth.Service {
	return a.auth
}
