package db

import "time"

// StoredObject 记录上传到存储桶中的文件元数据
// Bucket + Key 唯一，重复上传同名文件时覆盖（upsert）
type StoredObject struct {
	ID          uint   `gorm:"primaryKey"`
	Bucket      string `gorm:"size:100;not null;uniqueIndex:idx_stored_object_key"`
	ObjectKey   string `gorm:"size:255;not null;uniqueIndex:idx_stored_object_key"`
	OwnerID     string `gorm:"size:36;index"`
	ContentType string
	Size        int64
	Width       int
	Height      int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
