package router

import (
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/plantlog/internal/auth"
	"github.com/plantlog/internal/handler"
	"gorm.io/gorm"
)

const sessionCookieName = "plantlog_session"

// Options 描述路由需要的会话与静态资源配置
type Options struct {
	SessionSecret string
	UploadDir     string
	UploadURLPath string
	Deps          handler.Dependencies
}

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(gdb *gorm.DB, opts Options) *gin.Engine {
	r := gin.Default()

	secret := strings.TrimSpace(opts.SessionSecret)
	if secret == "" {
		secret = "plantlog-dev-secret"
	}

	// 配置会话中间件
	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{Path: "/", HttpOnly: true, MaxAge: 7 * 24 * 60 * 60})
	r.Use(sessions.Sessions(sessionCookieName, store))

	api := handler.NewAPI(gdb, opts.Deps)
	r.Use(api.LocaleMiddleware())

	// 图片存储桶目录：/uploads/<bucket>/<key>
	uploadURL := strings.TrimRight(strings.TrimSpace(opts.UploadURLPath), "/")
	if uploadURL == "" {
		uploadURL = "/uploads"
	}
	if dir := strings.TrimSpace(opts.UploadDir); dir != "" {
		r.Static(uploadURL, dir)
	}

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})
	r.GET("/healthz", api.HealthCheck)

	public := r.Group("/api")
	{
		public.GET("/plants", api.ListPlants)
		public.GET("/plants/stream", api.StreamPlants)
		public.GET("/plants/:id", api.GetPlant)
		public.POST("/plants/:id/water", api.WaterPlant)

		public.POST("/auth/login", api.Login)
		public.POST("/auth/logout", api.Logout)
		public.GET("/auth/session", api.CurrentSession)
	}

	// 需要认证的后台路由
	admin := r.Group("/api/admin")
	admin.Use(auth.AuthRequired())
	{
		admin.GET("/plants", api.AdminListPlants)
		admin.POST("/plants", api.CreatePlant)
		admin.PUT("/plants/:id", api.UpdatePlant)
		admin.DELETE("/plants/:id", api.DeletePlant)
		admin.GET("/plants/:id/records", api.ListPlantRecords)
	}

	return r
}
