package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harry123180/erp-backend/internal/codegen"
	"github.com/harry123180/erp-backend/internal/events"
	poentity "github.com/harry123180/erp-backend/internal/procurement/entity"
	porepo "github.com/harry123180/erp-backend/internal/procurement/repository"
	"github.com/harry123180/erp-backend/internal/warehouse/entity"
	"github.com/harry123180/erp-backend/internal/warehouse/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrStateConflict 业务状态冲突
var ErrStateConflict = errors.New("state conflict")

// InventoryService 库存服务：收货、上架分配、出库、调拨、调整。
// 批次CurrentQuantity与异动流水在同一事务内维护。
type InventoryService struct {
	batchRepo   *repository.BatchRepository
	storageRepo *repository.StorageRepository
	poRepo      *porepo.PORepository
	db          *gorm.DB
	codegen     *codegen.Generator
	publisher   *events.Publisher
	logger      *zap.Logger
}

func NewInventoryService(
	repos *repository.Repositories,
	poRepo *porepo.PORepository,
	db *gorm.DB,
	gen *codegen.Generator,
	publisher *events.Publisher,
	logger *zap.Logger,
) *InventoryService {
	return &InventoryService{
		batchRepo:   repos.Batch,
		storageRepo: repos.Storage,
		poRepo:      poRepo,
		db:          db,
		codegen:     gen,
		publisher:   publisher,
		logger:      logger,
	}
}

// ListBatches 获取批次列表
func (s *InventoryService) ListBatches(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.InventoryBatch, int64, error) {
	return s.batchRepo.FindAll(ctx, page, pageSize, filters)
}

// GetBatch 获取批次详情
func (s *InventoryService) GetBatch(ctx context.Context, id string) (*entity.InventoryBatch, error) {
	return s.batchRepo.FindByID(ctx, id)
}

// ListMovements 获取异动流水
func (s *InventoryService) ListMovements(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.InventoryMovement, int64, error) {
	return s.batchRepo.ListMovements(ctx, page, pageSize, filters)
}

// ReceiveRequest 验收入库请求
type ReceiveRequest struct {
	POItemID string          `json:"po_item_id" binding:"required"`
	Quantity decimal.Decimal `json:"quantity" binding:"required"`
}

// Receive 对采购订单行验收入库：创建批次、写入库流水、累加行收货数量。
// 仅已确认采购的订单可验收；允许分批与超量收货（实收为准）。
func (s *InventoryService) Receive(ctx context.Context, userID string, req *ReceiveRequest) (*entity.InventoryBatch, error) {
	if !req.Quantity.IsPositive() {
		return nil, fmt.Errorf("验收数量必须大于0")
	}

	poItem, err := s.poRepo.FindItemByID(ctx, req.POItemID)
	if err != nil {
		return nil, err
	}
	po, err := s.poRepo.FindByID(ctx, poItem.POID)
	if err != nil {
		return nil, err
	}
	if po.PurchaseStatus != poentity.POStatusPurchased {
		return nil, fmt.Errorf("%w: 订单状态为%s，未确认采购不可验收", ErrStateConflict, po.PurchaseStatus)
	}
	if poItem.ItemStatus == poentity.POItemStatusCancelled {
		return nil, fmt.Errorf("%w: 行项已取消，不可验收", ErrStateConflict)
	}

	batchNo, err := s.codegen.Next(ctx, entity.InventoryBatch{}.TableName(), "batch_no", codegen.PrefixBatch)
	if err != nil {
		return nil, fmt.Errorf("生成批次号失败: %w", err)
	}

	now := time.Now()
	batch := &entity.InventoryBatch{
		ID:               uuid.New().String()[:32],
		BatchNo:          batchNo,
		ItemCode:         poItem.ItemCode,
		ItemName:         poItem.ItemName,
		Unit:             poItem.Unit,
		SourcePONo:       po.PONo,
		SourceLine:       poItem.SortOrder,
		OriginalQuantity: req.Quantity,
		CurrentQuantity:  req.Quantity,
		ReceivedBy:       userID,
		ReceivedAt:       now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(batch).Error; err != nil {
			return err
		}
		// 入库流水记在收货区（storage_id为空），上架时调拨到储位
		movement := &entity.InventoryMovement{
			ID:           uuid.New().String()[:32],
			BatchID:      batch.ID,
			MovementType: entity.MovementIn,
			ItemCode:     batch.ItemCode,
			SourceNo:     batch.SourcePONo,
			SourceLine:   batch.SourceLine,
			Quantity:     req.Quantity,
			OperatorID:   userID,
		}
		if err := tx.Create(movement).Error; err != nil {
			return err
		}
		return tx.Model(&poentity.PurchaseOrderItem{}).
			Where("id = ?", poItem.ID).
			Update("received_quantity", gorm.Expr("received_quantity + ?", req.Quantity)).Error
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, events.TypeBatchReceived, batch.ID, map[string]interface{}{
		"batch_no":     batch.BatchNo,
		"source_po_no": batch.SourcePONo,
		"source_line":  batch.SourceLine,
		"quantity":     req.Quantity,
	})
	return batch, nil
}

// AllocateRequest 上架分配请求
type AllocateRequest struct {
	StorageID string          `json:"storage_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required"`
}

// Allocate 将批次数量分配到储位。
// 超出未分配数量拒绝；同批次同储位重复分配累加既有行。
func (s *InventoryService) Allocate(ctx context.Context, userID, batchID string, req *AllocateRequest) (*entity.InventoryBatch, error) {
	if !req.Quantity.IsPositive() {
		return nil, fmt.Errorf("分配数量必须大于0")
	}

	batch, err := s.batchRepo.FindByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	storage, err := s.storageRepo.FindByID(ctx, req.StorageID)
	if err != nil {
		return nil, err
	}
	if !storage.Active {
		return nil, fmt.Errorf("%w: 储位%s已停用", ErrStateConflict, storage.Code)
	}

	unallocated := batch.UnallocatedQuantity()
	if req.Quantity.GreaterThan(unallocated) {
		return nil, fmt.Errorf("%w: 分配数量%s超过未分配数量%s",
			ErrStateConflict, req.Quantity.String(), unallocated.String())
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := upsertAllocation(tx, batch.ID, storage.ID, req.Quantity); err != nil {
			return err
		}
		// 从收货区调拨到储位的一对流水
		pair := []entity.InventoryMovement{
			{
				ID:           uuid.New().String()[:32],
				BatchID:      batch.ID,
				MovementType: entity.MovementTransfer,
				ItemCode:     batch.ItemCode,
				SourceNo:     batch.SourcePONo,
				SourceLine:   batch.SourceLine,
				Quantity:     req.Quantity.Neg(),
				OperatorID:   userID,
			},
			{
				ID:           uuid.New().String()[:32],
				BatchID:      batch.ID,
				MovementType: entity.MovementTransfer,
				StorageID:    storage.ID,
				ItemCode:     batch.ItemCode,
				SourceNo:     batch.SourcePONo,
				SourceLine:   batch.SourceLine,
				Quantity:     req.Quantity,
				OperatorID:   userID,
			},
		}
		return tx.Create(&pair).Error
	})
	if err != nil {
		return nil, err
	}
	return s.batchRepo.FindByID(ctx, batchID)
}

// IssueRequest 出库请求
type IssueRequest struct {
	StorageID string          `json:"storage_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required"`
	Reason    string          `json:"reason"`
}

// Issue 从储位出库。出库数量超过该储位该来源的流水余额则拒绝；
// 批次当前数量与储位分配在同一事务内扣减。
func (s *InventoryService) Issue(ctx context.Context, userID, batchID string, req *IssueRequest) (*entity.InventoryBatch, error) {
	if !req.Quantity.IsPositive() {
		return nil, fmt.Errorf("出库数量必须大于0")
	}

	batch, err := s.batchRepo.FindByID(ctx, batchID)
	if err != nil {
		return nil, err
	}

	balance, err := s.batchRepo.GetBalance(ctx, req.StorageID, batch.ItemCode, batch.SourcePONo, batch.SourceLine)
	if err != nil {
		return nil, err
	}
	if req.Quantity.GreaterThan(balance) {
		return nil, fmt.Errorf("%w: 出库数量%s超过储位余额%s",
			ErrStateConflict, req.Quantity.String(), balance.String())
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		movement := &entity.InventoryMovement{
			ID:           uuid.New().String()[:32],
			BatchID:      batch.ID,
			MovementType: entity.MovementOut,
			StorageID:    req.StorageID,
			ItemCode:     batch.ItemCode,
			SourceNo:     batch.SourcePONo,
			SourceLine:   batch.SourceLine,
			Quantity:     req.Quantity.Neg(),
			Reason:       req.Reason,
			OperatorID:   userID,
		}
		if err := tx.Create(movement).Error; err != nil {
			return err
		}
		if err := upsertAllocation(tx, batch.ID, req.StorageID, req.Quantity.Neg()); err != nil {
			return err
		}
		return tx.Model(&entity.InventoryBatch{}).
			Where("id = ?", batch.ID).
			Update("current_quantity", gorm.Expr("current_quantity - ?", req.Quantity)).Error
	})
	if err != nil {
		return nil, err
	}
	return s.batchRepo.FindByID(ctx, batchID)
}

// TransferRequest 调拨请求
type TransferRequest struct {
	FromStorageID string          `json:"from_storage_id" binding:"required"`
	ToStorageID   string          `json:"to_storage_id" binding:"required"`
	Quantity      decimal.Decimal `json:"quantity" binding:"required"`
	Reason        string          `json:"reason"`
}

// Transfer 储位间调拨：一对正负流水在同一事务内落账
func (s *InventoryService) Transfer(ctx context.Context, userID, batchID string, req *TransferRequest) (*entity.InventoryBatch, error) {
	if !req.Quantity.IsPositive() {
		return nil, fmt.Errorf("调拨数量必须大于0")
	}
	if req.FromStorageID == req.ToStorageID {
		return nil, fmt.Errorf("调入与调出储位不可相同")
	}

	batch, err := s.batchRepo.FindByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	toStorage, err := s.storageRepo.FindByID(ctx, req.ToStorageID)
	if err != nil {
		return nil, err
	}
	if !toStorage.Active {
		return nil, fmt.Errorf("%w: 储位%s已停用", ErrStateConflict, toStorage.Code)
	}

	balance, err := s.batchRepo.GetBalance(ctx, req.FromStorageID, batch.ItemCode, batch.SourcePONo, batch.SourceLine)
	if err != nil {
		return nil, err
	}
	if req.Quantity.GreaterThan(balance) {
		return nil, fmt.Errorf("%w: 调拨数量%s超过储位余额%s",
			ErrStateConflict, req.Quantity.String(), balance.String())
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pair := []entity.InventoryMovement{
			{
				ID:           uuid.New().String()[:32],
				BatchID:      batch.ID,
				MovementType: entity.MovementTransfer,
				StorageID:    req.FromStorageID,
				ItemCode:     batch.ItemCode,
				SourceNo:     batch.SourcePONo,
				SourceLine:   batch.SourceLine,
				Quantity:     req.Quantity.Neg(),
				Reason:       req.Reason,
				OperatorID:   userID,
			},
			{
				ID:           uuid.New().String()[:32],
				BatchID:      batch.ID,
				MovementType: entity.MovementTransfer,
				StorageID:    req.ToStorageID,
				ItemCode:     batch.ItemCode,
				SourceNo:     batch.SourcePONo,
				SourceLine:   batch.SourceLine,
				Quantity:     req.Quantity,
				Reason:       req.Reason,
				OperatorID:   userID,
			},
		}
		if err := tx.Create(&pair).Error; err != nil {
			return err
		}
		if err := upsertAllocation(tx, batch.ID, req.FromStorageID, req.Quantity.Neg()); err != nil {
			return err
		}
		return upsertAllocation(tx, batch.ID, req.ToStorageID, req.Quantity)
	})
	if err != nil {
		return nil, err
	}
	return s.batchRepo.FindByID(ctx, batchID)
}

// AdjustRequest 库存调整请求，数量带符号
type AdjustRequest struct {
	StorageID string          `json:"storage_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required"`
	Reason    string          `json:"reason" binding:"required"`
}

// Adjust 盘点调整：带符号数量，负向调整不可使余额为负
func (s *InventoryService) Adjust(ctx context.Context, userID, batchID string, req *AdjustRequest) (*entity.InventoryBatch, error) {
	if req.Quantity.IsZero() {
		return nil, fmt.Errorf("调整数量不可为0")
	}

	batch, err := s.batchRepo.FindByID(ctx, batchID)
	if err != nil {
		return nil, err
	}

	if req.Quantity.IsNegative() {
		balance, err := s.batchRepo.GetBalance(ctx, req.StorageID, batch.ItemCode, batch.SourcePONo, batch.SourceLine)
		if err != nil {
			return nil, err
		}
		if req.Quantity.Neg().GreaterThan(balance) {
			return nil, fmt.Errorf("%w: 调整后储位余额为负", ErrStateConflict)
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		movement := &entity.InventoryMovement{
			ID:           uuid.New().String()[:32],
			BatchID:      batch.ID,
			MovementType: entity.MovementAdjustment,
			StorageID:    req.StorageID,
			ItemCode:     batch.ItemCode,
			SourceNo:     batch.SourcePONo,
			SourceLine:   batch.SourceLine,
			Quantity:     req.Quantity,
			Reason:       req.Reason,
			OperatorID:   userID,
		}
		if err := tx.Create(movement).Error; err != nil {
			return err
		}
		if err := upsertAllocation(tx, batch.ID, req.StorageID, req.Quantity); err != nil {
			return err
		}
		return tx.Model(&entity.InventoryBatch{}).
			Where("id = ?", batch.ID).
			Update("current_quantity", gorm.Expr("current_quantity + ?", req.Quantity)).Error
	})
	if err != nil {
		return nil, err
	}
	return s.batchRepo.FindByID(ctx, batchID)
}

// upsertAllocation 增减批次在储位的分配行，不存在则创建
func upsertAllocation(tx *gorm.DB, batchID, storageID string, delta decimal.Decimal) error {
	var alloc entity.InventoryBatchStorage
	err := tx.Where("batch_id = ? AND storage_id = ?", batchID, storageID).First(&alloc).Error
	if err == nil {
		return tx.Model(&alloc).
			Update("quantity", gorm.Expr("quantity + ?", delta)).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	alloc = entity.InventoryBatchStorage{
		ID:        uuid.New().String()[:32],
		BatchID:   batchID,
		StorageID: storageID,
		Quantity:  delta,
	}
	return tx.Create(&alloc).Error
}
