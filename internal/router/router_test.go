package router

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/plantlog/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupRouterTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:router-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

func TestSetupRouterServesUploads(t *testing.T) {
	gin.SetMode(gin.TestMode)

	uploadDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(uploadDir, "plant-images"), 0o755); err != nil {
		t.Fatalf("failed to create bucket dir: %v", err)
	}
	fileContent := []byte("hello uploads")
	if err := os.WriteFile(filepath.Join(uploadDir, "plant-images", "example.txt"), fileContent, 0o644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	r := SetupRouter(setupRouterTestDB(t), Options{SessionSecret: "test-secret", UploadDir: uploadDir, UploadURLPath: "/uploads/"})

	req := httptest.NewRequest(http.MethodGet, "/uploads/plant-images/example.txt", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if rr.Body.String() != string(fileContent) {
		t.Fatalf("unexpected body, got %q", rr.Body.String())
	}
}

func TestSetupRouterRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := SetupRouter(setupRouterTestDB(t), Options{SessionSecret: "test-secret"})

	cases := []struct {
		method string
		path   string
		want   int
	}{
		{method: http.MethodGet, path: "/ping", want: http.StatusOK},
		{method: http.MethodGet, path: "/healthz", want: http.StatusOK},
		{method: http.MethodGet, path: "/api/plants", want: http.StatusOK},
		{method: http.MethodGet, path: "/api/plants/missing", want: http.StatusNotFound},
		{method: http.MethodGet, path: "/api/auth/session", want: http.StatusOK},
		{method: http.MethodGet, path: "/api/admin/plants", want: http.StatusUnauthorized},
		{method: http.MethodDelete, path: "/api/admin/plants/abc", want: http.StatusUnauthorized},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		if rr.Code != tc.want {
			t.Fatalf("%s %s: expected %d, got %d", tc.method, tc.path, tc.want, rr.Code)
		}
	}
}
