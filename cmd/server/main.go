package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/plantlog/internal/auth"
	"github.com/plantlog/internal/config"
	"github.com/plantlog/internal/db"
	"github.com/plantlog/internal/handler"
	"github.com/plantlog/internal/realtime"
	"github.com/plantlog/internal/router"
	"github.com/plantlog/internal/storage"
)

func main() {
	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	hub := realtime.NewHub(0)

	session := auth.NewSession(hub)
	if err := session.Init(); err != nil {
		log.Fatalf("failed to initialize session: %v", err)
	}
	defer session.Teardown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if created, err := auth.NewService(db.DB, hub).EnsureUser(ctx, cfg.SuperRootEmail, cfg.SuperRootPassword); err != nil {
		log.Printf("[server] failed to ensure operator account: %v", err)
	} else if !created && cfg.SuperRootEmail != "" {
		log.Printf("[server] operator account %s already exists", cfg.SuperRootEmail)
	}

	bucket := storage.NewLocalBucket(db.DB, storage.LocalBucketConfig{
		Name:       cfg.StorageBucket,
		BaseDir:    cfg.UploadDir,
		URLPath:    cfg.UploadURLPath,
		AutoCreate: cfg.StorageAutoCreate,
	})

	// 设置并运行 Gin 服务器
	r := router.SetupRouter(db.DB, router.Options{
		SessionSecret: cfg.SessionSecret,
		UploadDir:     cfg.UploadDir,
		UploadURLPath: cfg.UploadURLPath,
		Deps: handler.Dependencies{
			Hub:             hub,
			Bucket:          bucket,
			Session:         session,
			Location:        cfg.Location,
			ProbeTimeout:    cfg.ProbeTimeout,
			ListTimeout:     cfg.ListTimeout,
			HistoryPageSize: cfg.HistoryPageSize,
		},
	})

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: r}
	go func() {
		log.Printf("[server] listening on %s (timezone %s)", cfg.ListenAddr, cfg.Location)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to run server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("[server] shutting down")

	// 先关闭 Hub，让 SSE 连接自然结束
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[server] shutdown: %v", err)
	}
}
