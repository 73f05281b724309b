package repository

import (
	"context"
	"errors"

	"github.com/harry123180/erp-backend/internal/warehouse/entity"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BatchRepository 入库批次与库存异动仓库
type BatchRepository struct {
	db *gorm.DB
}

func NewBatchRepository(db *gorm.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// FindAll 查询批次列表
func (r *BatchRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.InventoryBatch, int64, error) {
	var items []entity.InventoryBatch
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.InventoryBatch{})

	if itemCode := filters["item_code"]; itemCode != "" {
		query = query.Where("item_code = ?", itemCode)
	}
	if poNo := filters["source_po_no"]; poNo != "" {
		query = query.Where("source_po_no = ?", poNo)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("batch_no ILIKE ? OR item_code ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("Allocations").
		Preload("Allocations.Storage").
		Order("received_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByID 根据ID查找批次（含储位分配）
func (r *BatchRepository) FindByID(ctx context.Context, id string) (*entity.InventoryBatch, error) {
	var batch entity.InventoryBatch
	err := r.db.WithContext(ctx).
		Preload("Allocations").
		Preload("Allocations.Storage").
		Where("id = ?", id).
		First(&batch).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &batch, nil
}

// Create 创建批次
func (r *BatchRepository) Create(ctx context.Context, batch *entity.InventoryBatch) error {
	return r.db.WithContext(ctx).Create(batch).Error
}

// ListMovements 查询异动流水
func (r *BatchRepository) ListMovements(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.InventoryMovement, int64, error) {
	var items []entity.InventoryMovement
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.InventoryMovement{})

	if batchID := filters["batch_id"]; batchID != "" {
		query = query.Where("batch_id = ?", batchID)
	}
	if storageID := filters["storage_id"]; storageID != "" {
		query = query.Where("storage_id = ?", storageID)
	}
	if itemCode := filters["item_code"]; itemCode != "" {
		query = query.Where("item_code = ?", itemCode)
	}
	if movementType := filters["movement_type"]; movementType != "" {
		query = query.Where("movement_type = ?", movementType)
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

// StorageBalance 储位维度的库存余额（按流水带符号汇总）
type StorageBalance struct {
	StorageID  string          `json:"storage_id"`
	ItemCode   string          `json:"item_code"`
	SourceNo   string          `json:"source_no"`
	SourceLine int             `json:"source_line"`
	Balance    decimal.Decimal `json:"balance"`
}

// GetBalance 计算某(储位,品号,来源单,来源行)键的当前余额
func (r *BatchRepository) GetBalance(ctx context.Context, storageID, itemCode, sourceNo string, sourceLine int) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.db.WithContext(ctx).
		Model(&entity.InventoryMovement{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("storage_id = ? AND item_code = ? AND source_no = ? AND source_line = ?",
			storageID, itemCode, sourceNo, sourceLine).
		Scan(&balance).Error
	return balance, err
}

// ListStorageBalances 汇总某储位下全部品项的余额（过滤零余额）
func (r *BatchRepository) ListStorageBalances(ctx context.Context, storageID string) ([]StorageBalance, error) {
	var balances []StorageBalance
	err := r.db.WithContext(ctx).
		Model(&entity.InventoryMovement{}).
		Select("storage_id, item_code, source_no, source_line, SUM(quantity) AS balance").
		Where("storage_id = ?", storageID).
		Group("storage_id, item_code, source_no, source_line").
		Having("SUM(quantity) <> 0").
		Order("item_code ASC").
		Scan(&balances).Error
	return balances, err
}
