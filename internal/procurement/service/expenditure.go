package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/harry123180/erp-backend/internal/procurement/entity"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ExpenditureWorker 专案供应商支出重算工作者。
// 采购确认后入队项目ID，后台全量重算该专案按供应商的支出；
// 失败重试三次并记录到支出行的last_error，绝不阻塞确认请求。
type ExpenditureWorker struct {
	db     *gorm.DB
	logger *zap.Logger
	jobs   chan string
	done   chan struct{}
}

const (
	expenditureQueueSize  = 256
	expenditureMaxRetries = 3
	expenditureRetryDelay = 2 * time.Second
)

func NewExpenditureWorker(db *gorm.DB, logger *zap.Logger) *ExpenditureWorker {
	return &ExpenditureWorker{
		db:     db,
		logger: logger,
		jobs:   make(chan string, expenditureQueueSize),
		done:   make(chan struct{}),
	}
}

// Start 启动工作循环
func (w *ExpenditureWorker) Start() {
	go w.run()
}

// Stop 停止接收并等待当前任务结束
func (w *ExpenditureWorker) Stop() {
	close(w.jobs)
	<-w.done
}

// Enqueue 排入重算任务。队列满时丢弃并告警，不阻塞调用方。
func (w *ExpenditureWorker) Enqueue(projectID string) {
	select {
	case w.jobs <- projectID:
	default:
		w.logger.Warn("支出重算队列已满，任务丢弃", zap.String("project_id", projectID))
	}
}

func (w *ExpenditureWorker) run() {
	defer close(w.done)
	for projectID := range w.jobs {
		var lastErr error
		for attempt := 1; attempt <= expenditureMaxRetries; attempt++ {
			if lastErr = w.Recalculate(context.Background(), projectID); lastErr == nil {
				break
			}
			w.logger.Warn("专案支出重算失败",
				zap.String("project_id", projectID),
				zap.Int("attempt", attempt),
				zap.Error(lastErr),
			)
			time.Sleep(expenditureRetryDelay * time.Duration(attempt))
		}
		if lastErr != nil {
			w.logger.Error("专案支出重算放弃",
				zap.String("project_id", projectID),
				zap.Error(lastErr),
			)
			w.recordFailure(projectID, lastErr)
		}
	}
}

// supplierSpend 按供应商汇总的已采购金额
type supplierSpend struct {
	SupplierID string
	Amount     decimal.Decimal
}

// Recalculate 全量重算某专案按供应商的支出：
// 汇总该专案下已确认采购且未取消的采购订单行金额。
func (w *ExpenditureWorker) Recalculate(ctx context.Context, projectID string) error {
	var spends []supplierSpend
	err := w.db.WithContext(ctx).
		Model(&entity.PurchaseOrderItem{}).
		Select("purchase_orders.supplier_id AS supplier_id, COALESCE(SUM(purchase_order_items.quantity * purchase_order_items.unit_price), 0) AS amount").
		Joins("JOIN purchase_orders ON purchase_orders.id = purchase_order_items.po_id").
		Where("purchase_orders.project_id = ? AND purchase_orders.purchase_status = ? AND purchase_order_items.item_status = ?",
			projectID, entity.POStatusPurchased, entity.POItemStatusPurchased).
		Group("purchase_orders.supplier_id").
		Scan(&spends).Error
	if err != nil {
		return err
	}

	now := time.Now()
	return w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, spend := range spends {
			var existing entity.ProjectSupplierExpenditure
			err := tx.Where("project_id = ? AND supplier_id = ?", projectID, spend.SupplierID).
				First(&existing).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				record := &entity.ProjectSupplierExpenditure{
					ID:             uuid.New().String()[:32],
					ProjectID:      projectID,
					SupplierID:     spend.SupplierID,
					Amount:         spend.Amount.Round(0),
					RecalculatedAt: &now,
				}
				if err := tx.Create(record).Error; err != nil {
					return err
				}
				continue
			}
			if err != nil {
				return err
			}
			if err := tx.Model(&existing).Updates(map[string]interface{}{
				"amount":          spend.Amount.Round(0),
				"recalculated_at": now,
				"last_error":      "",
			}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// recordFailure 将最终失败写到该专案全部支出行，供排查
func (w *ExpenditureWorker) recordFailure(projectID string, cause error) {
	msg := cause.Error()
	if len(msg) > 500 {
		msg = msg[:500]
	}
	if err := w.db.Model(&entity.ProjectSupplierExpenditure{}).
		Where("project_id = ?", projectID).
		Update("last_error", msg).Error; err != nil {
		w.logger.Error("记录支出重算失败信息失败", zap.String("project_id", projectID), zap.Error(err))
	}
}
