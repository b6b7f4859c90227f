package service

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"time"

	"github.com/plantlog/internal/db"
	"github.com/plantlog/internal/storage"
	"github.com/plantlog/internal/store"
)

// PlantInput 定义创建/更新植物时可配置的字段
type PlantInput struct {
	Name       string
	CommonName string
	Light      string
	Water      string
	Soil       string
	LightEN    string
	WaterEN    string
	SoilEN     string
}

// ImageUpload 是一次随表单提交的图片
type ImageUpload struct {
	Filename string
	Body     io.Reader
}

// PlantEditor 负责植物的新建、编辑与删除。
// 所有写操作都限定在 ownerID 上。
type PlantEditor struct {
	plants PlantStore
	bucket storage.Bucket
	now    func() time.Time
}

// NewPlantEditor 构造 PlantEditor，bucket 为空时带图片的提交会返回存储错误
func NewPlantEditor(plants PlantStore, bucket storage.Bucket) *PlantEditor {
	return &PlantEditor{plants: plants, bucket: bucket, now: time.Now}
}

// Create 新建植物，有图片时先上传再写入数据行
func (e *PlantEditor) Create(ctx context.Context, input PlantInput, image *ImageUpload, ownerID string) (*db.Plant, error) {
	input = normalizePlantInput(input)
	if err := validatePlantInput(input); err != nil {
		return nil, err
	}
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, ErrUnauthenticated
	}

	plant := db.Plant{
		Name:       input.Name,
		CommonName: input.CommonName,
		Light:      input.Light,
		Water:      input.Water,
		Soil:       input.Soil,
		LightEN:    input.LightEN,
		WaterEN:    input.WaterEN,
		SoilEN:     input.SoilEN,
		OwnerID:    ownerID,
	}

	if image != nil {
		url, key, err := e.upload(ctx, image, ownerID)
		if err != nil {
			return nil, err
		}
		plant.ImageURL = url
		plant.ImageKey = key
	}

	if err := e.plants.CreatePlant(ctx, &plant); err != nil {
		e.discard(ctx, plant.ImageKey)
		return nil, &PersistenceError{Op: "create plant", Err: err}
	}
	return &plant, nil
}

// Update 更新植物，未提交新图片时保留原图
func (e *PlantEditor) Update(ctx context.Context, id string, input PlantInput, image *ImageUpload, ownerID string) (*db.Plant, error) {
	input = normalizePlantInput(input)
	if err := validatePlantInput(input); err != nil {
		return nil, err
	}
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, ErrUnauthenticated
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrPlantNotFound
	}

	changes := store.PlantChanges{
		Name:       input.Name,
		CommonName: input.CommonName,
		Light:      input.Light,
		Water:      input.Water,
		Soil:       input.Soil,
		LightEN:    input.LightEN,
		WaterEN:    input.WaterEN,
		SoilEN:     input.SoilEN,
	}

	if image != nil {
		url, key, err := e.upload(ctx, image, ownerID)
		if err != nil {
			return nil, err
		}
		changes.ImageURL = &url
		changes.ImageKey = &key
	}

	plant, err := e.plants.UpdatePlant(ctx, id, ownerID, changes)
	if err != nil {
		if changes.ImageKey != nil {
			e.discard(ctx, *changes.ImageKey)
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPlantNotFound
		}
		return nil, &PersistenceError{Op: "update plant", Err: err}
	}
	return plant, nil
}

// Delete 删除植物及其全部浇水记录，并清理关联图片
func (e *PlantEditor) Delete(ctx context.Context, id, ownerID string) error {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return ErrUnauthenticated
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrPlantNotFound
	}

	deleted, err := e.plants.DeletePlant(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrPlantNotFound
		}
		return &PersistenceError{Op: "delete plant", Err: err}
	}

	e.discard(ctx, deleted.ImageKey)
	return nil
}

func (e *PlantEditor) upload(ctx context.Context, image *ImageUpload, ownerID string) (string, string, error) {
	if e.bucket == nil {
		return "", "", &StorageError{Err: storage.ErrBucketNotFound}
	}
	if image.Body == nil {
		return "", "", &StorageError{Err: errors.New("empty image upload")}
	}

	key := storage.ObjectKeyFor(image.Filename, e.now())
	if _, err := e.bucket.Upload(ctx, key, image.Body, storage.UploadOptions{OwnerID: ownerID, Upsert: true}); err != nil {
		return "", "", &StorageError{Err: err}
	}
	return e.bucket.PublicURL(key), key, nil
}

// discard 尽力删除不再被引用的图片，失败只记录日志
func (e *PlantEditor) discard(ctx context.Context, key string) {
	if e.bucket == nil || key == "" {
		return
	}
	if err := e.bucket.Remove(context.WithoutCancel(ctx), key); err != nil {
		log.Printf("[editor] failed to remove image %s: %v", key, err)
	}
}

func normalizePlantInput(input PlantInput) PlantInput {
	return PlantInput{
		Name:       strings.TrimSpace(input.Name),
		CommonName: strings.TrimSpace(input.CommonName),
		Light:      strings.TrimSpace(input.Light),
		Water:      strings.TrimSpace(input.Water),
		Soil:       strings.TrimSpace(input.Soil),
		LightEN:    strings.TrimSpace(input.LightEN),
		WaterEN:    strings.TrimSpace(input.WaterEN),
		SoilEN:     strings.TrimSpace(input.SoilEN),
	}
}

func validatePlantInput(input PlantInput) error {
	var missing []string
	if input.Name == "" {
		missing = append(missing, "name")
	}
	if input.Light == "" {
		missing = append(missing, "light")
	}
	if input.Water == "" {
		missing = append(missing, "water")
	}
	if input.Soil == "" {
		missing = append(missing, "soil")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}
