package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/plantlog/internal/db"
	"github.com/plantlog/internal/realtime"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	// ErrInvalidCredentials 邮箱不存在或密码错误，两者不做区分
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrCredentialsRequired 邮箱或密码为空
	ErrCredentialsRequired = errors.New("email and password are required")
)

// Principal 是已登录的后台用户
type Principal struct {
	UserID string
	Email  string
}

// Service 负责账号校验，并在登录/登出时发出会话变更
type Service struct {
	db        *gorm.DB
	publisher realtime.Publisher
}

// NewService 构造 Service，publisher 可为空
func NewService(gdb *gorm.DB, publisher realtime.Publisher) *Service {
	return &Service{db: gdb, publisher: publisher}
}

// SignIn 校验邮箱与密码
func (s *Service) SignIn(ctx context.Context, email, password string) (*Principal, error) {
	normalized := db.NormalizeEmail(email)
	password = strings.TrimSpace(password)
	if normalized == "" || password == "" {
		return nil, ErrCredentialsRequired
	}

	var user db.User
	if err := s.db.WithContext(ctx).Where("email = ?", normalized).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	principal := &Principal{UserID: user.ID, Email: user.Email}
	s.publish(ctx, realtime.EventSignedIn, principal)
	return principal, nil
}

// SignOut 发出登出通知，principal 为空时不做任何事
func (s *Service) SignOut(ctx context.Context, principal *Principal) {
	if principal == nil {
		return
	}
	s.publish(ctx, realtime.EventSignedOut, principal)
}

// EnsureUser 在账号不存在时创建，返回是否新建
func (s *Service) EnsureUser(ctx context.Context, email, password string) (bool, error) {
	created, err := db.EnsureUser(s.db.WithContext(ctx), email, password)
	if err != nil {
		return false, fmt.Errorf("ensure user: %w", err)
	}
	if created {
		log.Printf("[auth] created operator account %s", db.NormalizeEmail(email))
	}
	return created, nil
}

func (s *Service) publish(ctx context.Context, event string, principal *Principal) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(context.WithoutCancel(ctx), realtime.Change{
		Topic:    realtime.TopicAuth,
		Event:    event,
		RecordID: principal.UserID,
	})
}
