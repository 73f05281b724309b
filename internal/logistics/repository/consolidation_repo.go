package repository

import (
	"context"
	"errors"

	"github.com/harry123180/erp-backend/internal/logistics/entity"
	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// ConsolidationRepository 併櫃仓库
type ConsolidationRepository struct {
	db *gorm.DB
}

func NewConsolidationRepository(db *gorm.DB) *ConsolidationRepository {
	return &ConsolidationRepository{db: db}
}

// FindAll 查询併櫃列表
func (r *ConsolidationRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.ShipmentConsolidation, int64, error) {
	var items []entity.ShipmentConsolidation
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.ShipmentConsolidation{})

	if status := filters["logistics_status"]; status != "" {
		query = query.Where("logistics_status = ?", status)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("consolidation_no ILIKE ? OR vessel_no ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByID 根据ID查找併櫃
func (r *ConsolidationRepository) FindByID(ctx context.Context, id string) (*entity.ShipmentConsolidation, error) {
	var consolidation entity.ShipmentConsolidation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&consolidation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &consolidation, nil
}

// Create 创建併櫃
func (r *ConsolidationRepository) Create(ctx context.Context, consolidation *entity.ShipmentConsolidation) error {
	return r.db.WithContext(ctx).Create(consolidation).Error
}

// Update 更新併櫃
func (r *ConsolidationRepository) Update(ctx context.Context, consolidation *entity.ShipmentConsolidation) error {
	return r.db.WithContext(ctx).Save(consolidation).Error
}
