package entity

import "time"

// 供应商区域，决定其采购订单适用的交货状态机
const (
	RegionDomestic      = "domestic"
	RegionInternational = "international"
)

// Supplier 供应商
type Supplier struct {
	ID     string `json:"id" gorm:"primaryKey;size:32"`
	Code   string `json:"code" gorm:"size:32;uniqueIndex;not null"`
	Name   string `json:"name" gorm:"size:200;not null"`
	Region string `json:"region" gorm:"size:20;not null;default:domestic"`

	ContactName  string `json:"contact_name" gorm:"size:100"`
	Phone        string `json:"phone" gorm:"size:50"`
	Email        string `json:"email" gorm:"size:200"`
	Address      string `json:"address" gorm:"size:500"`

	// 付款信息
	TaxID        string `json:"tax_id" gorm:"size:50"`
	BankName     string `json:"bank_name" gorm:"size:200"`
	BankAccount  string `json:"bank_account" gorm:"size:50"`
	PaymentTerms string `json:"payment_terms" gorm:"size:100"`

	Active    bool      `json:"active" gorm:"default:true"`
	Notes     string    `json:"notes" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Supplier) TableName() string {
	return "suppliers"
}

// IsInternational 是否国际供应商
func (s *Supplier) IsInternational() bool {
	return s.Region == RegionInternational
}
