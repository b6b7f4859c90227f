package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultTimezone     = "Asia/Shanghai"
	defaultProbeTimeout = 5 * time.Second
	defaultListTimeout  = 10 * time.Second
	defaultPageSize     = 10
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr        string
	Port              string
	DatabasePath      string
	SessionSecret     string
	GinMode           string
	UploadDir         string
	UploadURLPath     string
	StorageBucket     string
	StorageAutoCreate bool
	TimezoneName      string
	Location          *time.Location
	ProbeTimeout      time.Duration
	ListTimeout       time.Duration
	HistoryPageSize   int
	SuperRootEmail    string
	SuperRootPassword string
	SiteBaseURL       string
}

// Load 从环境变量读取应用配置，并为缺失项提供安全的默认值。
func Load() AppConfig {
	port := envOrDefault("PORT", "8080")

	listenAddr := strings.TrimSpace(os.Getenv("LISTEN_ADDR"))
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%s", port)
	}

	timezone := envOrDefault("PLANT_TIMEZONE", defaultTimezone)

	return AppConfig{
		ListenAddr:        listenAddr,
		Port:              port,
		DatabasePath:      envOrDefault("DATABASE_PATH", "plantlog.db"),
		SessionSecret:     envOrDefault("SESSION_SECRET", "plantlog-dev-secret"),
		GinMode:           envOrDefault("GIN_MODE", "release"),
		UploadDir:         envOrDefault("UPLOAD_DIR", "web/static/uploads"),
		UploadURLPath:     envOrDefault("UPLOAD_URL_PATH", "/uploads"),
		StorageBucket:     envOrDefault("STORAGE_BUCKET", "plant-images"),
		StorageAutoCreate: envBool("STORAGE_AUTO_CREATE", false),
		TimezoneName:      timezone,
		Location:          LoadLocation(timezone),
		ProbeTimeout:      envDuration("PROBE_TIMEOUT", defaultProbeTimeout),
		ListTimeout:       envDuration("LIST_TIMEOUT", defaultListTimeout),
		HistoryPageSize:   envInt("HISTORY_PAGE_SIZE", defaultPageSize),
		SuperRootEmail:    strings.TrimSpace(os.Getenv("SUPER_ROOT_EMAIL")),
		SuperRootPassword: strings.TrimSpace(os.Getenv("SUPER_ROOT_PASSWORD")),
		SiteBaseURL:       envOrDefault("SITE_BASE_URL", "http://localhost:8080"),
	}
}

// LoadLocation 解析参考时区，解析失败时回退到 time.Local。
func LoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(strings.TrimSpace(name))
	if err != nil {
		log.Printf("[config] unknown timezone %q, falling back to local: %v", name, err)
		return time.Local
	}
	return loc
}

func envOrDefault(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func envInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
