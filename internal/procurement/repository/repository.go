package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Repositories 采购域仓库集合
type Repositories struct {
	Supplier     *SupplierRepository
	RequestOrder *RequestOrderRepository
	PO           *PORepository
	Project      *ProjectRepository
}

// NewRepositories 创建采购域仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Supplier:     NewSupplierRepository(db),
		RequestOrder: NewRequestOrderRepository(db),
		PO:           NewPORepository(db),
		Project:      NewProjectRepository(db),
	}
}
