package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// 付款方式
const (
	PaymentMethodTransfer = "transfer"
	PaymentMethodCheck    = "check"
	PaymentMethodCash     = "cash"
)

// PaymentRecord 对已确认采购订单的付款记录
type PaymentRecord struct {
	ID     string          `json:"id" gorm:"primaryKey;size:32"`
	PONo   string          `json:"po_no" gorm:"size:32;not null;index"`
	Amount decimal.Decimal `json:"amount" gorm:"type:decimal(15,0);not null"`
	Method string          `json:"method" gorm:"size:20;not null;default:transfer"`
	Note   string          `json:"note" gorm:"size:500"`

	PaidAt    time.Time `json:"paid_at"`
	CreatedBy string    `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
}

func (PaymentRecord) TableName() string {
	return "payment_records"
}
