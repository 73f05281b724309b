package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harry123180/erp-backend/internal/codegen"
	"github.com/harry123180/erp-backend/internal/procurement/entity"
	"github.com/harry123180/erp-backend/internal/procurement/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RequisitionService 请购单服务。行项逐条审核，单头状态由行状态扫描得出。
type RequisitionService struct {
	requestRepo *repository.RequestOrderRepository
	db          *gorm.DB
	codegen     *codegen.Generator
	logger      *zap.Logger
}

func NewRequisitionService(
	repos *repository.Repositories,
	db *gorm.DB,
	gen *codegen.Generator,
	logger *zap.Logger,
) *RequisitionService {
	return &RequisitionService{
		requestRepo: repos.RequestOrder,
		db:          db,
		codegen:     gen,
		logger:      logger,
	}
}

// List 获取请购单列表
func (s *RequisitionService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.RequestOrder, int64, error) {
	return s.requestRepo.FindAll(ctx, page, pageSize, filters)
}

// Get 获取请购单详情
func (s *RequisitionService) Get(ctx context.Context, id string) (*entity.RequestOrder, error) {
	return s.requestRepo.FindByID(ctx, id)
}

// CreateRequisitionItem 创建行项入参
type CreateRequisitionItem struct {
	ItemCode      string          `json:"item_code"`
	ItemName      string          `json:"item_name" binding:"required"`
	Specification string          `json:"specification"`
	Quantity      decimal.Decimal `json:"quantity" binding:"required"`
	Unit          string          `json:"unit"`
}

// CreateRequisitionRequest 创建请购单请求
type CreateRequisitionRequest struct {
	ProjectID *string                 `json:"project_id"`
	Usage     string                  `json:"usage"`
	Notes     string                  `json:"notes"`
	Items     []CreateRequisitionItem `json:"items"`
}

// Create 创建请购单，行项初始为草稿
func (s *RequisitionService) Create(ctx context.Context, userID string, req *CreateRequisitionRequest) (*entity.RequestOrder, error) {
	requestNo, err := s.codegen.Next(ctx, entity.RequestOrder{}.TableName(), "request_no", codegen.PrefixRequest)
	if err != nil {
		return nil, fmt.Errorf("生成请购单单号失败: %w", err)
	}

	ro := &entity.RequestOrder{
		ID:          uuid.New().String()[:32],
		RequestNo:   requestNo,
		RequesterID: userID,
		ProjectID:   req.ProjectID,
		Usage:       req.Usage,
		Status:      entity.RequestOrderDraft,
		Notes:       req.Notes,
	}

	for i, item := range req.Items {
		unit := item.Unit
		if unit == "" {
			unit = "pcs"
		}
		ro.Items = append(ro.Items, entity.RequestOrderItem{
			ID:             uuid.New().String()[:32],
			RequestOrderID: ro.ID,
			ItemCode:       item.ItemCode,
			ItemName:       item.ItemName,
			Specification:  item.Specification,
			Quantity:       item.Quantity,
			Unit:           unit,
			Status:         entity.RequestItemDraft,
			SortOrder:      i + 1,
		})
	}

	if err := s.requestRepo.Create(ctx, ro); err != nil {
		return nil, err
	}
	return ro, nil
}

// UpdateRequisitionRequest 更新请购单请求。仅草稿状态可整单编辑。
type UpdateRequisitionRequest struct {
	ProjectID *string                 `json:"project_id"`
	Usage     *string                 `json:"usage"`
	Notes     *string                 `json:"notes"`
	Items     []CreateRequisitionItem `json:"items"`
}

// Update 更新请购单。行项替换仅在草稿状态允许。
func (s *RequisitionService) Update(ctx context.Context, id string, req *UpdateRequisitionRequest) (*entity.RequestOrder, error) {
	ro, err := s.requestRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Items != nil && ro.Status != entity.RequestOrderDraft {
		return nil, fmt.Errorf("%w: 请购单状态为%s，仅草稿可编辑行项", ErrStateConflict, ro.Status)
	}

	if req.ProjectID != nil {
		ro.ProjectID = req.ProjectID
	}
	if req.Usage != nil {
		ro.Usage = *req.Usage
	}
	if req.Notes != nil {
		ro.Notes = *req.Notes
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if req.Items != nil {
			if err := tx.Where("request_order_id = ?", ro.ID).
				Delete(&entity.RequestOrderItem{}).Error; err != nil {
				return err
			}
			ro.Items = nil
			for i, item := range req.Items {
				unit := item.Unit
				if unit == "" {
					unit = "pcs"
				}
				ro.Items = append(ro.Items, entity.RequestOrderItem{
					ID:             uuid.New().String()[:32],
					RequestOrderID: ro.ID,
					ItemCode:       item.ItemCode,
					ItemName:       item.ItemName,
					Specification:  item.Specification,
					Quantity:       item.Quantity,
					Unit:           unit,
					Status:         entity.RequestItemDraft,
					SortOrder:      i + 1,
				})
			}
			if len(ro.Items) > 0 {
				if err := tx.Create(&ro.Items).Error; err != nil {
					return err
				}
			}
		}
		return tx.Omit("Items").Save(ro).Error
	})
	if err != nil {
		return nil, err
	}
	return s.requestRepo.FindByID(ctx, id)
}

// Submit 提交请购单送审：全部草稿行转待审
func (s *RequisitionService) Submit(ctx context.Context, id string) (*entity.RequestOrder, error) {
	ro, err := s.requestRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	hasDraft := false
	for _, item := range ro.Items {
		if item.Status == entity.RequestItemDraft {
			hasDraft = true
			break
		}
	}
	if !hasDraft {
		return nil, fmt.Errorf("%w: 没有可提交的草稿行项", ErrStateConflict)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&entity.RequestOrderItem{}).
			Where("request_order_id = ? AND status = ?", ro.ID, entity.RequestItemDraft).
			Update("status", entity.RequestItemPendingReview).Error; err != nil {
			return err
		}
		for i := range ro.Items {
			if ro.Items[i].Status == entity.RequestItemDraft {
				ro.Items[i].Status = entity.RequestItemPendingReview
			}
		}
		ro.RecomputeStatus()
		return tx.Model(&entity.RequestOrder{}).
			Where("id = ?", ro.ID).
			Update("status", ro.Status).Error
	})
	if err != nil {
		return nil, err
	}
	return ro, nil
}

// ReviewItemRequest 行项审核请求
type ReviewItemRequest struct {
	// approved / questioned / rejected
	Status string `json:"status" binding:"required"`
	// 通过时采购填报的供应商与单价
	SupplierID *string          `json:"supplier_id"`
	UnitPrice  *decimal.Decimal `json:"unit_price"`
	// 疑问或驳回原因
	Reason string `json:"reason"`
}

// ReviewItem 逐行审核：通过/疑问/驳回。
// 通过时必须填报供应商与单价，后续按供应商汇集开单。
func (s *RequisitionService) ReviewItem(ctx context.Context, reviewerID, requestID, itemID string, req *ReviewItemRequest) (*entity.RequestOrderItem, error) {
	switch req.Status {
	case entity.RequestItemApproved, entity.RequestItemQuestioned, entity.RequestItemRejected:
	default:
		return nil, fmt.Errorf("无效的审核状态 %s: %w", req.Status, ErrValidation)
	}

	item, err := s.requestRepo.FindItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.RequestOrderID != requestID {
		return nil, repository.ErrNotFound
	}

	if !item.CanTransit(req.Status) {
		return nil, fmt.Errorf("%w: 行项状态为%s，不可转为%s", ErrStateConflict, item.Status, req.Status)
	}

	if req.Status == entity.RequestItemApproved {
		if req.SupplierID == nil || *req.SupplierID == "" {
			return nil, fmt.Errorf("审核通过必须指定供应商: %w", ErrValidation)
		}
		if req.UnitPrice == nil || req.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("审核通过必须填写单价: %w", ErrValidation)
		}
		item.SupplierID = req.SupplierID
		item.UnitPrice = req.UnitPrice
	}
	if req.Status == entity.RequestItemQuestioned || req.Status == entity.RequestItemRejected {
		if req.Reason == "" {
			return nil, fmt.Errorf("疑问或驳回必须填写原因: %w", ErrValidation)
		}
	}

	now := time.Now()
	item.Status = req.Status
	item.ReviewReason = req.Reason
	item.ReviewedBy = &reviewerID
	item.ReviewedAt = &now

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(item).Error; err != nil {
			return err
		}
		return recomputeRequestOrderStatus(tx, item.RequestOrderID)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// ResubmitItem 疑问行项修改后重新送审
func (s *RequisitionService) ResubmitItem(ctx context.Context, requestID, itemID string) (*entity.RequestOrderItem, error) {
	item, err := s.requestRepo.FindItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.RequestOrderID != requestID {
		return nil, repository.ErrNotFound
	}

	if !item.CanTransit(entity.RequestItemPendingReview) {
		return nil, fmt.Errorf("%w: 行项状态为%s，不可重新送审", ErrStateConflict, item.Status)
	}

	item.Status = entity.RequestItemPendingReview
	item.ReviewReason = ""
	item.ReviewedBy = nil
	item.ReviewedAt = nil

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(item).Error; err != nil {
			return err
		}
		return recomputeRequestOrderStatus(tx, item.RequestOrderID)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// CancelItem 取消行项（草稿或疑问状态）
func (s *RequisitionService) CancelItem(ctx context.Context, requestID, itemID string) (*entity.RequestOrderItem, error) {
	item, err := s.requestRepo.FindItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.RequestOrderID != requestID {
		return nil, repository.ErrNotFound
	}

	if !item.CanTransit(entity.RequestItemCancelled) {
		return nil, fmt.Errorf("%w: 行项状态为%s，不可取消", ErrStateConflict, item.Status)
	}

	item.Status = entity.RequestItemCancelled
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(item).Error; err != nil {
			return err
		}
		return recomputeRequestOrderStatus(tx, item.RequestOrderID)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// ApprovedItemsBySupplier 某供应商下已审核通过待开单的行项
func (s *RequisitionService) ApprovedItemsBySupplier(ctx context.Context, supplierID string) ([]entity.RequestOrderItem, error) {
	return s.requestRepo.FindApprovedItemsBySupplier(ctx, supplierID)
}

// recomputeRequestOrderStatus 事务内重算请购单汇总状态
func recomputeRequestOrderStatus(tx *gorm.DB, requestOrderID string) error {
	var ro entity.RequestOrder
	if err := tx.Preload("Items").Where("id = ?", requestOrderID).First(&ro).Error; err != nil {
		return err
	}
	before := ro.Status
	ro.RecomputeStatus()
	if ro.Status == before {
		return nil
	}
	return tx.Model(&entity.RequestOrder{}).
		Where("id = ?", ro.ID).
		Update("status", ro.Status).Error
}
