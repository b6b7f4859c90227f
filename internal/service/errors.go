package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/plantlog/internal/storage"
)

var (
	// ErrPlantNotFound 在植物不存在或不属于当前用户时返回
	ErrPlantNotFound = errors.New("plant not found")
	// ErrAlreadyWateredToday 今天已经浇过水，属于正常的拒绝结果而非故障
	ErrAlreadyWateredToday = errors.New("plant already watered today")
	// ErrCheckinInProgress 同一植物的上一次打卡尚未返回
	ErrCheckinInProgress = errors.New("check-in already in progress")
	// ErrValidation 必填字段缺失
	ErrValidation = errors.New("validation failed")
	// ErrUnauthenticated 写操作缺少登录用户
	ErrUnauthenticated = errors.New("authentication required")
	// ErrStorage 图片上传失败
	ErrStorage = errors.New("storage failure")
	// ErrPersistence 数据行读写被拒绝
	ErrPersistence = errors.New("persistence failure")
	// ErrConnectivity 探测超时或无法连接后端
	ErrConnectivity = errors.New("backend unreachable")
)

// ValidationError 列出缺失的必填字段
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: missing %s", ErrValidation.Error(), strings.Join(e.Fields, ", "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// StorageError 包装存储层错误，存储桶缺失时给出配置提示
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string {
	if e.BucketMissing() {
		return "storage bucket not found, check the storage configuration"
	}
	return fmt.Sprintf("upload image: %v", e.Err)
}

func (e *StorageError) Unwrap() []error {
	return []error{ErrStorage, e.Err}
}

// BucketMissing 判断失败是否由存储桶缺失导致
func (e *StorageError) BucketMissing() bool {
	return errors.Is(e.Err, storage.ErrBucketNotFound)
}

// PersistenceError 保留后端返回的原始信息
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}
