package repository

import (
	"context"
	"time"

	"github.com/harry123180/erp-backend/internal/accounting/entity"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentRepository 付款记录仓库
type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// ListByPONo 查询某采购订单的付款记录
func (r *PaymentRepository) ListByPONo(ctx context.Context, poNo string) ([]entity.PaymentRecord, error) {
	var records []entity.PaymentRecord
	err := r.db.WithContext(ctx).
		Where("po_no = ?", poNo).
		Order("paid_at ASC").
		Find(&records).Error
	return records, err
}

// SumByPONo 某采购订单的累计付款金额
func (r *PaymentRepository) SumByPONo(ctx context.Context, poNo string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.WithContext(ctx).
		Model(&entity.PaymentRecord{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("po_no = ?", poNo).
		Scan(&total).Error
	return total, err
}

// ListByPeriod 查询某时间区间内的付款记录
func (r *PaymentRepository) ListByPeriod(ctx context.Context, from, to time.Time) ([]entity.PaymentRecord, error) {
	var records []entity.PaymentRecord
	err := r.db.WithContext(ctx).
		Where("paid_at >= ? AND paid_at < ?", from, to).
		Order("paid_at ASC").
		Find(&records).Error
	return records, err
}

// Create 创建付款记录
func (r *PaymentRepository) Create(ctx context.Context, record *entity.PaymentRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}
