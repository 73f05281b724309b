package repository

import (
	"context"
	"errors"

	"github.com/harry123180/erp-backend/internal/procurement/entity"
	"gorm.io/gorm"
)

// PORepository 采购订单仓库
type PORepository struct {
	db *gorm.DB
}

func NewPORepository(db *gorm.DB) *PORepository {
	return &PORepository{db: db}
}

// FindAll 查询采购订单列表
func (r *PORepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.PurchaseOrder, int64, error) {
	var items []entity.PurchaseOrder
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.PurchaseOrder{})

	if supplierID := filters["supplier_id"]; supplierID != "" {
		query = query.Where("supplier_id = ?", supplierID)
	}
	if status := filters["purchase_status"]; status != "" {
		query = query.Where("purchase_status = ?", status)
	}
	if delivery := filters["delivery_status"]; delivery != "" {
		query = query.Where("delivery_status = ?", delivery)
	}
	if consolidationID := filters["consolidation_id"]; consolidationID != "" {
		query = query.Where("consolidation_id = ?", consolidationID)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("po_no ILIKE ?", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("Supplier").
		Preload("Items").
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByID 根据ID查找采购订单（含供应商与行项）
func (r *PORepository) FindByID(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	var po entity.PurchaseOrder
	err := r.db.WithContext(ctx).
		Preload("Supplier").
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Where("id = ?", id).
		First(&po).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &po, nil
}

// FindByPONo 根据单号查找采购订单
func (r *PORepository) FindByPONo(ctx context.Context, poNo string) (*entity.PurchaseOrder, error) {
	var po entity.PurchaseOrder
	err := r.db.WithContext(ctx).
		Preload("Supplier").
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Where("po_no = ?", poNo).
		First(&po).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &po, nil
}

// FindByConsolidation 查询併櫃下的全部采购订单（含行项）
func (r *PORepository) FindByConsolidation(ctx context.Context, consolidationID string) ([]entity.PurchaseOrder, error) {
	var items []entity.PurchaseOrder
	err := r.db.WithContext(ctx).
		Preload("Supplier").
		Preload("Items").
		Where("consolidation_id = ?", consolidationID).
		Order("po_no ASC").
		Find(&items).Error
	return items, err
}

// Create 创建采购订单
func (r *PORepository) Create(ctx context.Context, po *entity.PurchaseOrder) error {
	return r.db.WithContext(ctx).Create(po).Error
}

// Update 更新采购订单
func (r *PORepository) Update(ctx context.Context, po *entity.PurchaseOrder) error {
	return r.db.WithContext(ctx).Save(po).Error
}

// FindItemByID 查找采购订单行项
func (r *PORepository) FindItemByID(ctx context.Context, itemID string) (*entity.PurchaseOrderItem, error) {
	var item entity.PurchaseOrderItem
	err := r.db.WithContext(ctx).Where("id = ?", itemID).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// ListRemarksHistory 查询备注审计记录
func (r *PORepository) ListRemarksHistory(ctx context.Context, poID string) ([]entity.RemarksHistory, error) {
	var records []entity.RemarksHistory
	err := r.db.WithContext(ctx).
		Where("po_id = ?", poID).
		Order("created_at DESC").
		Find(&records).Error
	return records, err
}
