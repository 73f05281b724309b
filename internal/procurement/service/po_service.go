package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harry123180/erp-backend/internal/codegen"
	"github.com/harry123180/erp-backend/internal/events"
	"github.com/harry123180/erp-backend/internal/procurement/entity"
	"github.com/harry123180/erp-backend/internal/procurement/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// POService 采购订单服务
type POService struct {
	poRepo       *repository.PORepository
	supplierRepo *repository.SupplierRepository
	requestRepo  *repository.RequestOrderRepository
	db           *gorm.DB
	codegen      *codegen.Generator
	expenditure  *ExpenditureWorker
	publisher    *events.Publisher
	logger       *zap.Logger
}

func NewPOService(
	repos *repository.Repositories,
	db *gorm.DB,
	gen *codegen.Generator,
	expenditure *ExpenditureWorker,
	publisher *events.Publisher,
	logger *zap.Logger,
) *POService {
	return &POService{
		poRepo:       repos.PO,
		supplierRepo: repos.Supplier,
		requestRepo:  repos.RequestOrder,
		db:           db,
		codegen:      gen,
		expenditure:  expenditure,
		publisher:    publisher,
		logger:       logger,
	}
}

// List 获取采购订单列表
func (s *POService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.PurchaseOrder, int64, error) {
	return s.poRepo.FindAll(ctx, page, pageSize, filters)
}

// Get 获取采购订单详情
func (s *POService) Get(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	return s.poRepo.FindByID(ctx, id)
}

// CreatePOItem 创建行项入参
type CreatePOItem struct {
	RequestItemID *string         `json:"request_item_id"`
	ItemCode      string          `json:"item_code"`
	ItemName      string          `json:"item_name" binding:"required"`
	Specification string          `json:"specification"`
	Quantity      decimal.Decimal `json:"quantity" binding:"required"`
	Unit          string          `json:"unit"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Remarks       string          `json:"remarks"`
}

// CreatePORequest 创建采购订单请求
type CreatePORequest struct {
	SupplierID string         `json:"supplier_id" binding:"required"`
	ProjectID  *string        `json:"project_id"`
	Remarks    string         `json:"remarks"`
	Items      []CreatePOItem `json:"items"`
}

// Create 创建采购订单（手工开单）
func (s *POService) Create(ctx context.Context, userID string, req *CreatePORequest) (*entity.PurchaseOrder, error) {
	if _, err := s.supplierRepo.FindByID(ctx, req.SupplierID); err != nil {
		return nil, fmt.Errorf("供应商不存在")
	}

	poNo, err := s.codegen.Next(ctx, entity.PurchaseOrder{}.TableName(), "po_no", codegen.PrefixPO)
	if err != nil {
		return nil, fmt.Errorf("生成采购订单单号失败: %w", err)
	}

	po := &entity.PurchaseOrder{
		ID:             uuid.New().String()[:32],
		PONo:           poNo,
		SupplierID:     req.SupplierID,
		ProjectID:      req.ProjectID,
		PurchaseStatus: entity.POStatusPending,
		DeliveryStatus: entity.DeliveryNotShipped,
		Remarks:        req.Remarks,
		CreatedBy:      userID,
	}

	for i, item := range req.Items {
		po.Items = append(po.Items, buildPOItem(po.ID, i+1, item))
	}
	po.RecalculateTotals()

	if err := s.poRepo.Create(ctx, po); err != nil {
		return nil, err
	}
	return po, nil
}

func buildPOItem(poID string, sortOrder int, item CreatePOItem) entity.PurchaseOrderItem {
	unit := item.Unit
	if unit == "" {
		unit = "pcs"
	}
	return entity.PurchaseOrderItem{
		ID:             uuid.New().String()[:32],
		POID:           poID,
		RequestItemID:  item.RequestItemID,
		ItemCode:       item.ItemCode,
		ItemName:       item.ItemName,
		Specification:  item.Specification,
		Quantity:       item.Quantity,
		Unit:           unit,
		UnitPrice:      item.UnitPrice,
		ItemStatus:     entity.POItemStatusPending,
		DeliveryStatus: entity.DeliveryNotShipped,
		Remarks:        item.Remarks,
		SortOrder:      sortOrder,
	}
}

// BuildFromRequisition 汇总某供应商已审核通过的请购行开立采购订单。
// 行项状态翻转为order_created并回写PO单号，与建单同一事务。
func (s *POService) BuildFromRequisition(ctx context.Context, userID, supplierID string, projectID *string) (*entity.PurchaseOrder, error) {
	if _, err := s.supplierRepo.FindByID(ctx, supplierID); err != nil {
		return nil, fmt.Errorf("供应商不存在")
	}

	items, err := s.requestRepo.FindApprovedItemsBySupplier(ctx, supplierID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("该供应商没有已核准待开单的请购行: %w", ErrStateConflict)
	}

	poNo, err := s.codegen.Next(ctx, entity.PurchaseOrder{}.TableName(), "po_no", codegen.PrefixPO)
	if err != nil {
		return nil, fmt.Errorf("生成采购订单单号失败: %w", err)
	}

	po := &entity.PurchaseOrder{
		ID:             uuid.New().String()[:32],
		PONo:           poNo,
		SupplierID:     supplierID,
		ProjectID:      projectID,
		PurchaseStatus: entity.POStatusPending,
		DeliveryStatus: entity.DeliveryNotShipped,
		CreatedBy:      userID,
	}

	for i, reqItem := range items {
		unitPrice := decimal.Zero
		if reqItem.UnitPrice != nil {
			unitPrice = *reqItem.UnitPrice
		}
		po.Items = append(po.Items, entity.PurchaseOrderItem{
			ID:             uuid.New().String()[:32],
			POID:           po.ID,
			RequestItemID:  &items[i].ID,
			ItemCode:       reqItem.ItemCode,
			ItemName:       reqItem.ItemName,
			Specification:  reqItem.Specification,
			Quantity:       reqItem.Quantity,
			Unit:           reqItem.Unit,
			UnitPrice:      unitPrice,
			ItemStatus:     entity.POItemStatusPending,
			DeliveryStatus: entity.DeliveryNotShipped,
			SortOrder:      i + 1,
		})
	}
	po.RecalculateTotals()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(po).Error; err != nil {
			return fmt.Errorf("创建采购订单失败: %w", err)
		}
		for _, reqItem := range items {
			if !reqItem.CanTransit(entity.RequestItemOrderCreated) {
				return fmt.Errorf("请购行 %s 状态 %s 不可开单: %w", reqItem.ID, reqItem.Status, ErrStateConflict)
			}
			if err := tx.Model(&entity.RequestOrderItem{}).
				Where("id = ?", reqItem.ID).
				Updates(map[string]interface{}{
					"status": entity.RequestItemOrderCreated,
					"po_no":  po.PONo,
				}).Error; err != nil {
				return fmt.Errorf("更新请购行状态失败: %w", err)
			}
		}
		// 重算受影响请购单的汇总状态
		return recomputeRequestOrders(tx, items)
	})
	if err != nil {
		return nil, err
	}

	return s.poRepo.FindByID(ctx, po.ID)
}

// recomputeRequestOrders 重算一组请购行所属请购单的汇总状态
func recomputeRequestOrders(tx *gorm.DB, items []entity.RequestOrderItem) error {
	seen := map[string]bool{}
	for _, item := range items {
		if seen[item.RequestOrderID] {
			continue
		}
		seen[item.RequestOrderID] = true
		if err := recomputeRequestOrderStatus(tx, item.RequestOrderID); err != nil {
			return err
		}
	}
	return nil
}

// UpdatePORequest 更新采购订单请求
type UpdatePORequest struct {
	ProjectID *string `json:"project_id"`
	Remarks   *string `json:"remarks"`
}

// Update 更新采购订单基本信息（仅pending/order_created可编辑）
func (s *POService) Update(ctx context.Context, id string, req *UpdatePORequest) (*entity.PurchaseOrder, error) {
	po, err := s.poRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !po.CanEdit() {
		return nil, fmt.Errorf("订单状态 %s 不可编辑: %w", po.PurchaseStatus, ErrStateConflict)
	}

	if req.ProjectID != nil {
		po.ProjectID = req.ProjectID
	}
	if req.Remarks != nil {
		po.Remarks = *req.Remarks
	}

	if err := s.poRepo.Update(ctx, po); err != nil {
		return nil, err
	}
	return po, nil
}

// ReplaceItems 整批替换行项并重算金额（仅可编辑状态），同一事务完成
func (s *POService) ReplaceItems(ctx context.Context, id string, items []CreatePOItem) (*entity.PurchaseOrder, error) {
	po, err := s.poRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !po.CanEdit() {
		return nil, fmt.Errorf("订单状态 %s 不可编辑行项: %w", po.PurchaseStatus, ErrStateConflict)
	}

	po.Items = nil
	for i, item := range items {
		po.Items = append(po.Items, buildPOItem(po.ID, i+1, item))
	}
	po.RecalculateTotals()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("po_id = ?", po.ID).Delete(&entity.PurchaseOrderItem{}).Error; err != nil {
			return err
		}
		for i := range po.Items {
			if err := tx.Create(&po.Items[i]).Error; err != nil {
				return err
			}
		}
		return tx.Model(&entity.PurchaseOrder{}).Where("id = ?", po.ID).
			Updates(map[string]interface{}{
				"subtotal":    po.Subtotal,
				"tax":         po.Tax,
				"grand_total": po.GrandTotal,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return s.poRepo.FindByID(ctx, po.ID)
}

// ConfirmPurchase 确认采购：迁移至purchased，标记待回报交货状态，
// 行项翻转为purchased，并排入专案支出重算任务。
func (s *POService) ConfirmPurchase(ctx context.Context, id, userID string) (*entity.PurchaseOrder, error) {
	po, err := s.poRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !po.CanConfirm() {
		return nil, fmt.Errorf("订单状态 %s 或无行项，不可确认采购: %w", po.PurchaseStatus, ErrStateConflict)
	}

	now := time.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&entity.PurchaseOrder{}).Where("id = ?", po.ID).
			Updates(map[string]interface{}{
				"purchase_status":        entity.POStatusPurchased,
				"status_update_required": true,
				"confirmed_by":           userID,
				"confirmed_at":           now,
			}).Error; err != nil {
			return err
		}
		// 未取消的行项翻转为purchased
		return tx.Model(&entity.PurchaseOrderItem{}).
			Where("po_id = ? AND item_status = ?", po.ID, entity.POItemStatusPending).
			Update("item_status", entity.POItemStatusPurchased).Error
	})
	if err != nil {
		return nil, err
	}

	// 专案支出重算走独立工作者，失败可观测可重试，不影响确认本身
	if po.ProjectID != nil {
		s.expenditure.Enqueue(*po.ProjectID)
	}

	s.publisher.Publish(ctx, events.TypePOConfirmed, po.PONo, map[string]string{
		"supplier_id": po.SupplierID,
	})

	return s.poRepo.FindByID(ctx, id)
}

// Withdraw 撤销订单：任何非取消状态可达，重复撤销报错；取消串接到全部行项
func (s *POService) Withdraw(ctx context.Context, id, userID, reason string) (*entity.PurchaseOrder, error) {
	po, err := s.poRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !po.CanWithdraw() {
		return nil, fmt.Errorf("订单已取消，不可再次撤销: %w", ErrStateConflict)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&entity.PurchaseOrder{}).Where("id = ?", po.ID).
			Updates(map[string]interface{}{
				"purchase_status": entity.POStatusCancelled,
				"withdraw_reason": reason,
			}).Error; err != nil {
			return err
		}
		return tx.Model(&entity.PurchaseOrderItem{}).
			Where("po_id = ?", po.ID).
			Update("item_status", entity.POItemStatusCancelled).Error
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, events.TypePOWithdrawn, po.PONo, map[string]string{
		"reason": reason,
	})

	return s.poRepo.FindByID(ctx, id)
}

// RecordExport 记录输出：pending→order_created→outputted两段推进，
// 各段记录操作人；已越过outputted的订单保持原状（输出本身任何状态皆允许）。
func (s *POService) RecordExport(ctx context.Context, id, userID string) (*entity.PurchaseOrder, error) {
	po, err := s.poRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	updates := map[string]interface{}{}

	switch po.PurchaseStatus {
	case entity.POStatusPending:
		// 两段推进：pending→order_created→outputted，各段记录操作人
		updates["purchase_status"] = entity.POStatusOutputted
		updates["order_created_by"] = userID
		updates["order_created_at"] = now
		updates["outputted_by"] = userID
		updates["outputted_at"] = now
	case entity.POStatusOrderCreated:
		updates["purchase_status"] = entity.POStatusOutputted
		updates["outputted_by"] = userID
		updates["outputted_at"] = now
	default:
		// 既有业务放行：任何状态都允许输出单据，仅不再推进状态
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&entity.PurchaseOrder{}).
			Where("id = ?", po.ID).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.poRepo.FindByID(ctx, id)
}

// UpdateDeliveryRequest 交货状态更新请求
type UpdateDeliveryRequest struct {
	DeliveryStatus       string     `json:"delivery_status" binding:"required"`
	ExpectedDeliveryDate *time.Time `json:"expected_delivery_date"`
	Remarks              *string    `json:"remarks"`
}

// UpdateDeliveryStatus 更新交货状态。
// 仅已确认采购可变更；目标状态按供应商区域校验；
// 状态与备注在同一事务内串接到全部行项，到达delivered时写实际交货日。
func (s *POService) UpdateDeliveryStatus(ctx context.Context, id, userID string, req *UpdateDeliveryRequest) (*entity.PurchaseOrder, error) {
	po, err := s.poRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !po.CanUpdateDelivery() {
		return nil, fmt.Errorf("订单尚未确认采购，不可回报交货状态: %w", ErrStateConflict)
	}
	if po.Supplier == nil {
		return nil, fmt.Errorf("订单缺少供应商信息")
	}
	if !entity.IsValidDeliveryStatus(po.Supplier.Region, req.DeliveryStatus) {
		return nil, fmt.Errorf("交货状态 %s 不适用于%s供应商: %w",
			req.DeliveryStatus, po.Supplier.Region, ErrStateConflict)
	}

	now := time.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"delivery_status":        req.DeliveryStatus,
			"status_update_required": false,
		}
		if req.ExpectedDeliveryDate != nil {
			updates["expected_delivery_date"] = req.ExpectedDeliveryDate
		}
		if req.DeliveryStatus == entity.DeliveryDelivered {
			updates["actual_delivery_date"] = now
		}
		if req.Remarks != nil {
			updates["remarks"] = *req.Remarks
		}
		if err := tx.Model(&entity.PurchaseOrder{}).Where("id = ?", po.ID).
			Updates(updates).Error; err != nil {
			return err
		}

		itemUpdates := map[string]interface{}{
			"delivery_status": req.DeliveryStatus,
		}
		if req.Remarks != nil {
			itemUpdates["remarks"] = *req.Remarks
		}
		return tx.Model(&entity.PurchaseOrderItem{}).
			Where("po_id = ?", po.ID).
			Updates(itemUpdates).Error
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, events.TypeDeliveryUpdated, po.PONo, map[string]string{
		"delivery_status": req.DeliveryStatus,
	})

	return s.poRepo.FindByID(ctx, id)
}

// UpdateRemarks 更新订单备注：串接到行项并写入审计记录，同一事务
func (s *POService) UpdateRemarks(ctx context.Context, id, userID, remarks string) (*entity.PurchaseOrder, error) {
	po, err := s.poRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	history := &entity.RemarksHistory{
		ID:        uuid.New().String()[:32],
		POID:      po.ID,
		Before:    po.Remarks,
		After:     remarks,
		ChangedBy: userID,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&entity.PurchaseOrder{}).Where("id = ?", po.ID).
			Update("remarks", remarks).Error; err != nil {
			return err
		}
		if err := tx.Model(&entity.PurchaseOrderItem{}).Where("po_id = ?", po.ID).
			Update("remarks", remarks).Error; err != nil {
			return err
		}
		return tx.Create(history).Error
	})
	if err != nil {
		return nil, err
	}

	return s.poRepo.FindByID(ctx, id)
}

// ListRemarksHistory 查询备注审计记录
func (s *POService) ListRemarksHistory(ctx context.Context, poID string) ([]entity.RemarksHistory, error) {
	return s.poRepo.ListRemarksHistory(ctx, poID)
}
