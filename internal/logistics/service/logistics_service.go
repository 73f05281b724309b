package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harry123180/erp-backend/internal/codegen"
	"github.com/harry123180/erp-backend/internal/events"
	"github.com/harry123180/erp-backend/internal/logistics/entity"
	"github.com/harry123180/erp-backend/internal/logistics/repository"
	poentity "github.com/harry123180/erp-backend/internal/procurement/entity"
	porepo "github.com/harry123180/erp-backend/internal/procurement/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrStateConflict 业务状态冲突
var ErrStateConflict = errors.New("state conflict")

// LogisticsService 併櫃物流服务
type LogisticsService struct {
	consolidationRepo *repository.ConsolidationRepository
	poRepo            *porepo.PORepository
	supplierRepo      *porepo.SupplierRepository
	db                *gorm.DB
	codegen           *codegen.Generator
	publisher         *events.Publisher
	logger            *zap.Logger
}

func NewLogisticsService(
	consolidationRepo *repository.ConsolidationRepository,
	poRepo *porepo.PORepository,
	supplierRepo *porepo.SupplierRepository,
	db *gorm.DB,
	gen *codegen.Generator,
	publisher *events.Publisher,
	logger *zap.Logger,
) *LogisticsService {
	return &LogisticsService{
		consolidationRepo: consolidationRepo,
		poRepo:            poRepo,
		supplierRepo:      supplierRepo,
		db:                db,
		codegen:           gen,
		publisher:         publisher,
		logger:            logger,
	}
}

// List 获取併櫃列表
func (s *LogisticsService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.ShipmentConsolidation, int64, error) {
	return s.consolidationRepo.FindAll(ctx, page, pageSize, filters)
}

// ConsolidationDetail 併櫃详情（含成员采购订单）
type ConsolidationDetail struct {
	entity.ShipmentConsolidation
	POs []poentity.PurchaseOrder `json:"pos"`
}

// Get 获取併櫃详情
func (s *LogisticsService) Get(ctx context.Context, id string) (*ConsolidationDetail, error) {
	consolidation, err := s.consolidationRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	pos, err := s.poRepo.FindByConsolidation(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ConsolidationDetail{ShipmentConsolidation: *consolidation, POs: pos}, nil
}

// CreateConsolidationRequest 创建併櫃请求
type CreateConsolidationRequest struct {
	Carrier         string     `json:"carrier"`
	VesselNo        string     `json:"vessel_no"`
	Remarks         string     `json:"remarks"`
	ExpectedArrival *time.Time `json:"expected_arrival"`
	POIDs           []string   `json:"po_ids"`
}

// Create 创建併櫃，可同时加入首批采购订单
func (s *LogisticsService) Create(ctx context.Context, userID string, req *CreateConsolidationRequest) (*entity.ShipmentConsolidation, error) {
	consolidationNo, err := s.codegen.Next(ctx, entity.ShipmentConsolidation{}.TableName(), "consolidation_no", codegen.PrefixConsolidation)
	if err != nil {
		return nil, fmt.Errorf("生成併櫃单号失败: %w", err)
	}

	consolidation := &entity.ShipmentConsolidation{
		ID:              uuid.New().String()[:32],
		ConsolidationNo: consolidationNo,
		LogisticsStatus: entity.LogisticsShipped,
		Carrier:         req.Carrier,
		VesselNo:        req.VesselNo,
		Remarks:         req.Remarks,
		ExpectedArrival: req.ExpectedArrival,
		CreatedBy:       userID,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(consolidation).Error; err != nil {
			return err
		}
		for _, poID := range req.POIDs {
			if err := s.attachPO(ctx, tx, consolidation, poID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return consolidation, nil
}

// AddPO 将采购订单加入併櫃。
// 仅shipped阶段可加入；订单须为国际供应商、已出货且未属于其他併櫃。
func (s *LogisticsService) AddPO(ctx context.Context, id, poID string) (*ConsolidationDetail, error) {
	consolidation, err := s.consolidationRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !consolidation.CanAddPO() {
		return nil, fmt.Errorf("%w: 併櫃物流状态为%s，仅shipped可加入订单",
			ErrStateConflict, consolidation.LogisticsStatus)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.attachPO(ctx, tx, consolidation, poID)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// attachPO 校验资格并回写订单的併櫃归属
func (s *LogisticsService) attachPO(ctx context.Context, tx *gorm.DB, consolidation *entity.ShipmentConsolidation, poID string) error {
	po, err := s.poRepo.FindByID(ctx, poID)
	if err != nil {
		return err
	}
	supplier, err := s.supplierRepo.FindByID(ctx, po.SupplierID)
	if err != nil {
		return err
	}
	if !po.CanBeConsolidated(supplier.Region) {
		return fmt.Errorf("%w: 订单%s不符合併櫃条件（须国际供应商、已出货、未併櫃）",
			ErrStateConflict, po.PONo)
	}
	return tx.Model(&poentity.PurchaseOrder{}).
		Where("id = ?", po.ID).
		Update("consolidation_id", consolidation.ID).Error
}

// RemovePO 併櫃归属一经建立不可移除
func (s *LogisticsService) RemovePO(ctx context.Context, id, poID string) error {
	if _, err := s.consolidationRepo.FindByID(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("%w: 併櫃归属不可移除", ErrStateConflict)
}

// UpdateLogisticsRequest 物流状态推进请求
type UpdateLogisticsRequest struct {
	LogisticsStatus string     `json:"logistics_status" binding:"required"`
	Remarks         string     `json:"remarks"`
	ExpectedArrival *time.Time `json:"expected_arrival"`
}

// UpdateLogisticsStatus 推进物流状态，只进不退。
// 状态与备注在同一事务内级联到全部成员订单及其行项。
func (s *LogisticsService) UpdateLogisticsStatus(ctx context.Context, id, userID string, req *UpdateLogisticsRequest) (*ConsolidationDetail, error) {
	consolidation, err := s.consolidationRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !consolidation.CanTransitLogistics(req.LogisticsStatus) {
		return nil, fmt.Errorf("%w: 物流状态%s不可转为%s",
			ErrStateConflict, consolidation.LogisticsStatus, req.LogisticsStatus)
	}

	now := time.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"logistics_status": req.LogisticsStatus,
		}
		if req.Remarks != "" {
			updates["remarks"] = req.Remarks
		}
		if req.ExpectedArrival != nil {
			updates["expected_arrival"] = req.ExpectedArrival
		}
		if req.LogisticsStatus == entity.LogisticsDelivered {
			updates["actual_arrival"] = now
		}
		if err := tx.Model(&entity.ShipmentConsolidation{}).
			Where("id = ?", consolidation.ID).
			Updates(updates).Error; err != nil {
			return err
		}

		pos, err := s.poRepo.FindByConsolidation(ctx, consolidation.ID)
		if err != nil {
			return err
		}
		for _, po := range pos {
			poUpdates := map[string]interface{}{
				"delivery_status":        req.LogisticsStatus,
				"status_update_required": false,
			}
			if req.LogisticsStatus == entity.LogisticsDelivered {
				poUpdates["actual_delivery_date"] = now
			}
			if err := tx.Model(&poentity.PurchaseOrder{}).
				Where("id = ?", po.ID).
				Updates(poUpdates).Error; err != nil {
				return err
			}
			itemUpdates := map[string]interface{}{
				"delivery_status": req.LogisticsStatus,
			}
			if req.Remarks != "" {
				itemUpdates["remarks"] = req.Remarks
			}
			if err := tx.Model(&poentity.PurchaseOrderItem{}).
				Where("po_id = ? AND item_status <> ?", po.ID, poentity.POItemStatusCancelled).
				Updates(itemUpdates).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, events.TypeConsolidationUpdate, consolidation.ID, map[string]interface{}{
		"consolidation_no": consolidation.ConsolidationNo,
		"from":             consolidation.LogisticsStatus,
		"to":               req.LogisticsStatus,
		"operator":         userID,
	})
	return s.Get(ctx, id)
}
