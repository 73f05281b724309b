package repository

import (
	"context"
	"errors"

	"github.com/harry123180/erp-backend/internal/procurement/entity"
	"gorm.io/gorm"
)

// RequestOrderRepository 请购单仓库
type RequestOrderRepository struct {
	db *gorm.DB
}

func NewRequestOrderRepository(db *gorm.DB) *RequestOrderRepository {
	return &RequestOrderRepository{db: db}
}

// FindAll 查询请购单列表
func (r *RequestOrderRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.RequestOrder, int64, error) {
	var items []entity.RequestOrder
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.RequestOrder{})

	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if requesterID := filters["requester_id"]; requesterID != "" {
		query = query.Where("requester_id = ?", requesterID)
	}
	if projectID := filters["project_id"]; projectID != "" {
		query = query.Where("project_id = ?", projectID)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("request_no ILIKE ?", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("Items").
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByID 根据ID查找请购单（含行项）
func (r *RequestOrderRepository) FindByID(ctx context.Context, id string) (*entity.RequestOrder, error) {
	var ro entity.RequestOrder
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Where("id = ?", id).
		First(&ro).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &ro, nil
}

// Create 创建请购单
func (r *RequestOrderRepository) Create(ctx context.Context, ro *entity.RequestOrder) error {
	return r.db.WithContext(ctx).Create(ro).Error
}

// Update 更新请购单
func (r *RequestOrderRepository) Update(ctx context.Context, ro *entity.RequestOrder) error {
	return r.db.WithContext(ctx).Save(ro).Error
}

// FindItemByID 查找请购单行项
func (r *RequestOrderRepository) FindItemByID(ctx context.Context, itemID string) (*entity.RequestOrderItem, error) {
	var item entity.RequestOrderItem
	err := r.db.WithContext(ctx).Where("id = ?", itemID).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// UpdateItem 更新请购单行项
func (r *RequestOrderRepository) UpdateItem(ctx context.Context, item *entity.RequestOrderItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// FindApprovedItemsBySupplier 查询某供应商下已审核通过待开单的行项
func (r *RequestOrderRepository) FindApprovedItemsBySupplier(ctx context.Context, supplierID string) ([]entity.RequestOrderItem, error) {
	var items []entity.RequestOrderItem
	err := r.db.WithContext(ctx).
		Where("supplier_id = ? AND status = ?", supplierID, entity.RequestItemApproved).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}
