package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/plantlog/internal/db"
	"github.com/plantlog/internal/realtime"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupAuthTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:auth-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := gdb.AutoMigrate(&db.User{}); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestSignIn(t *testing.T) {
	gdb := setupAuthTestDB(t)
	hub := realtime.NewHub(4)
	defer hub.Close()
	events := hub.Subscribe(realtime.TopicAuth)

	svc := NewService(gdb, hub)
	ctx := context.Background()

	created, err := svc.EnsureUser(ctx, "gardener@example.com", "s3cret")
	if err != nil || !created {
		t.Fatalf("expected user to be created, got created=%v err=%v", created, err)
	}

	principal, err := svc.SignIn(ctx, " Gardener@Example.com ", "s3cret")
	if err != nil {
		t.Fatalf("SignIn returned error: %v", err)
	}
	if principal.Email != "gardener@example.com" || principal.UserID == "" {
		t.Fatalf("unexpected principal %+v", principal)
	}

	select {
	case change := <-events.C():
		if change.Event != realtime.EventSignedIn || change.RecordID != principal.UserID {
			t.Fatalf("unexpected change %+v", change)
		}
	case <-time.After(time.Second):
		t.Fatal("expected SIGNED_IN change")
	}

	if _, err := svc.SignIn(ctx, "gardener@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.SignIn(ctx, "nobody@example.com", "s3cret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
	if _, err := svc.SignIn(ctx, "", "s3cret"); !errors.Is(err, ErrCredentialsRequired) {
		t.Fatalf("expected ErrCredentialsRequired, got %v", err)
	}

	svc.SignOut(ctx, principal)
	select {
	case change := <-events.C():
		if change.Event != realtime.EventSignedOut {
			t.Fatalf("unexpected change %+v", change)
		}
	case <-time.After(time.Second):
		t.Fatal("expected SIGNED_OUT change")
	}
}

func TestSessionTracksAuthChanges(t *testing.T) {
	hub := realtime.NewHub(8)
	defer hub.Close()

	session := NewSession(hub)
	if err := session.Init(); err != nil {
		t.Fatalf("Init returned error: %v", err)
	}
	if err := session.Init(); err == nil {
		t.Fatal("expected second Init to fail")
	}
	if hub.SubscriberCount(realtime.TopicAuth) != 1 {
		t.Fatalf("expected one auth subscriber, got %d", hub.SubscriberCount(realtime.TopicAuth))
	}

	ctx := context.Background()
	hub.Publish(ctx, realtime.Change{Topic: realtime.TopicAuth, Event: realtime.EventSignedIn, RecordID: "u-1"})
	hub.Publish(ctx, realtime.Change{Topic: realtime.TopicAuth, Event: realtime.EventSignedIn, RecordID: "u-2"})
	waitFor(t, func() bool { return session.ActiveCount() == 2 })

	hub.Publish(ctx, realtime.Change{Topic: realtime.TopicAuth, Event: realtime.EventSignedOut, RecordID: "u-1"})
	waitFor(t, func() bool { return !session.SignedIn("u-1") })
	if !session.SignedIn("u-2") {
		t.Fatal("expected u-2 to remain signed in")
	}
	if session.LastChangeAt().IsZero() {
		t.Fatal("expected last change time to be recorded")
	}

	session.Teardown()
	session.Teardown()
	if hub.SubscriberCount(realtime.TopicAuth) != 0 {
		t.Fatalf("expected subscription to be released, got %d", hub.SubscriberCount(realtime.TopicAuth))
	}

	if err := session.Init(); err != nil {
		t.Fatalf("expected re-init after teardown to succeed: %v", err)
	}
	session.Teardown()
}

func newSessionRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(sessions.Sessions("plantlog_session", cookie.NewStore([]byte("test-secret"))))

	r.POST("/login", func(c *gin.Context) {
		if err := Login(c, &Principal{UserID: "u-1", Email: "gardener@example.com"}); err != nil {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusNoContent)
	})
	r.POST("/logout", func(c *gin.Context) {
		principal, err := Logout(c)
		if err != nil || principal == nil {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusNoContent)
	})
	r.GET("/private", AuthRequired(), func(c *gin.Context) {
		principal, _ := CurrentPrincipal(c)
		c.String(http.StatusOK, principal.Email)
	})
	return r
}

func TestAuthRequired(t *testing.T) {
	r := newSessionRouter()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/private", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("login failed with %d", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected session cookie")
	}

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "gardener@example.com" {
		t.Fatalf("expected authorized response, got %d %q", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/logout", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout failed with %d", rec.Code)
	}
}
