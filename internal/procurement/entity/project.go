package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Project 专案
type Project struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	Code      string    `json:"code" gorm:"size:32;uniqueIndex;not null"`
	Name      string    `json:"name" gorm:"size:200;not null"`
	OwnerID   string    `json:"owner_id" gorm:"size:32"`
	Budget    decimal.Decimal `json:"budget" gorm:"type:decimal(15,0);default:0"`
	Active    bool      `json:"active" gorm:"default:true"`
	Notes     string    `json:"notes" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Expenditures []ProjectSupplierExpenditure `json:"expenditures,omitempty" gorm:"foreignKey:ProjectID"`
}

func (Project) TableName() string {
	return "projects"
}

// ProjectSupplierExpenditure 专案按供应商的采购支出。
// 由支出重算工作者全量重算，非增量维护。
type ProjectSupplierExpenditure struct {
	ID         string          `json:"id" gorm:"primaryKey;size:32"`
	ProjectID  string          `json:"project_id" gorm:"size:32;not null;index:idx_proj_supplier,unique"`
	SupplierID string          `json:"supplier_id" gorm:"size:32;not null;index:idx_proj_supplier,unique"`
	Amount     decimal.Decimal `json:"amount" gorm:"type:decimal(15,0);default:0"`

	RecalculatedAt *time.Time `json:"recalculated_at"`
	LastError      string     `json:"last_error" gorm:"size:500"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ProjectSupplierExpenditure) TableName() string {
	return "project_supplier_expenditures"
}
