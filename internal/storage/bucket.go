package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/plantlog/internal/db"
	_ "golang.org/x/image/webp"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultMaxUploadBytes int64 = 10 << 20

var (
	// ErrBucketNotFound 存储桶目录不存在，属于配置问题
	ErrBucketNotFound = errors.New("storage bucket not found")
	// ErrObjectExists 未开启 upsert 时目标已存在
	ErrObjectExists = errors.New("storage object already exists")
	// ErrNotAnImage 上传内容无法识别为图片
	ErrNotAnImage = errors.New("uploaded file is not a supported image")
	// ErrObjectTooLarge 上传内容超过大小限制
	ErrObjectTooLarge = errors.New("uploaded file is too large")
	// ErrInvalidKey 对象名非法
	ErrInvalidKey = errors.New("invalid object key")
)

// UploadOptions 控制单次上传行为
type UploadOptions struct {
	OwnerID string
	Upsert  bool
}

// Bucket 是图片存储能力的抽象
type Bucket interface {
	Upload(ctx context.Context, key string, body io.Reader, opts UploadOptions) (*db.StoredObject, error)
	PublicURL(key string) string
	Remove(ctx context.Context, key string) error
}

// LocalBucketConfig 描述本地存储桶
type LocalBucketConfig struct {
	Name       string
	BaseDir    string
	URLPath    string
	AutoCreate bool
	MaxBytes   int64
}

// LocalBucket 将对象保存到 BaseDir/Name 目录，元数据写入 stored_objects 表
type LocalBucket struct {
	gdb        *gorm.DB
	name       string
	dir        string
	urlPath    string
	autoCreate bool
	maxBytes   int64
}

// NewLocalBucket 创建本地存储桶
func NewLocalBucket(gdb *gorm.DB, cfg LocalBucketConfig) *LocalBucket {
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}
	urlPath := strings.TrimRight(strings.TrimSpace(cfg.URLPath), "/")
	if urlPath == "" {
		urlPath = "/uploads"
	}

	return &LocalBucket{
		gdb:        gdb,
		name:       cfg.Name,
		dir:        filepath.Join(cfg.BaseDir, cfg.Name),
		urlPath:    urlPath,
		autoCreate: cfg.AutoCreate,
		maxBytes:   maxBytes,
	}
}

// Name 返回存储桶名称
func (b *LocalBucket) Name() string {
	return b.name
}

// Upload 校验图片内容后写入磁盘并记录元数据
func (b *LocalBucket) Upload(ctx context.Context, key string, body io.Reader, opts UploadOptions) (*db.StoredObject, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	if err := b.ensureDir(); err != nil {
		return nil, err
	}

	target := filepath.Join(b.dir, key)
	if !opts.Upsert {
		if _, err := os.Stat(target); err == nil {
			return nil, fmt.Errorf("%w: %s", ErrObjectExists, key)
		}
	}

	data, err := io.ReadAll(io.LimitReader(body, b.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > b.maxBytes {
		return nil, ErrObjectTooLarge
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAnImage, err)
	}

	if err := writeFileAtomic(target, data); err != nil {
		return nil, fmt.Errorf("write object: %w", err)
	}

	object := db.StoredObject{
		Bucket:      b.name,
		ObjectKey:   key,
		OwnerID:     strings.TrimSpace(opts.OwnerID),
		ContentType: "image/" + format,
		Size:        int64(len(data)),
		Width:       cfg.Width,
		Height:      cfg.Height,
	}

	if err := b.gdb.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "bucket"}, {Name: "object_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"owner_id", "content_type", "size", "width", "height", "updated_at"}),
	}).Create(&object).Error; err != nil {
		return nil, fmt.Errorf("record object: %w", err)
	}

	log.Printf("[storage] stored %s/%s (%d bytes, %dx%d)", b.name, key, object.Size, object.Width, object.Height)
	return &object, nil
}

// PublicURL 返回对象的公开访问路径
func (b *LocalBucket) PublicURL(key string) string {
	return path.Join(b.urlPath, b.name, url.PathEscape(key))
}

// Remove 删除对象文件与元数据，对象不存在时视为成功
func (b *LocalBucket) Remove(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(b.dir, key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove object: %w", err)
	}

	if err := b.gdb.WithContext(ctx).
		Where("bucket = ? AND object_key = ?", b.name, key).
		Delete(&db.StoredObject{}).Error; err != nil {
		return fmt.Errorf("remove object record: %w", err)
	}
	return nil
}

func (b *LocalBucket) ensureDir() error {
	info, err := os.Stat(b.dir)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("%w: %s is not a directory", ErrBucketNotFound, b.name)
		}
		return nil
	}
	if !os.IsNotExist(err) {
		return err
	}
	if !b.autoCreate {
		return fmt.Errorf("%w: %s", ErrBucketNotFound, b.name)
	}
	return os.MkdirAll(b.dir, 0o755)
}

func validateKey(key string) error {
	if key == "" || key == "." || key == ".." {
		return ErrInvalidKey
	}
	if strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return ErrInvalidKey
	}
	return nil
}

func writeFileAtomic(target string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, target)
}
