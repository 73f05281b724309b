package repository

import (
	"context"
	"errors"

	"github.com/harry123180/erp-backend/internal/warehouse/entity"
	"gorm.io/gorm"
)

// StorageRepository 储位仓库
type StorageRepository struct {
	db *gorm.DB
}

func NewStorageRepository(db *gorm.DB) *StorageRepository {
	return &StorageRepository{db: db}
}

// FindAll 查询储位列表
func (r *StorageRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Storage, int64, error) {
	var items []entity.Storage
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Storage{})

	if area := filters["area"]; area != "" {
		query = query.Where("area = ?", area)
	}
	if shelf := filters["shelf"]; shelf != "" {
		query = query.Where("shelf = ?", shelf)
	}
	if active := filters["active"]; active != "" {
		query = query.Where("active = ?", active == "true")
	}
	if search := filters["search"]; search != "" {
		query = query.Where("code ILIKE ?", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("code ASC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByID 根据ID查找储位
func (r *StorageRepository) FindByID(ctx context.Context, id string) (*entity.Storage, error) {
	var storage entity.Storage
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&storage).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &storage, nil
}

// FindByCode 根据编码查找储位
func (r *StorageRepository) FindByCode(ctx context.Context, code string) (*entity.Storage, error) {
	var storage entity.Storage
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&storage).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &storage, nil
}

// Create 创建储位
func (r *StorageRepository) Create(ctx context.Context, storage *entity.Storage) error {
	return r.db.WithContext(ctx).Create(storage).Error
}

// Update 更新储位
func (r *StorageRepository) Update(ctx context.Context, storage *entity.Storage) error {
	return r.db.WithContext(ctx).Save(storage).Error
}
