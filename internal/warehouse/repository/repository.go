package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Repositories 仓储域仓库集合
type Repositories struct {
	Storage *StorageRepository
	Batch   *BatchRepository
}

// NewRepositories 创建仓储域仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Storage: NewStorageRepository(db),
		Batch:   NewBatchRepository(db),
	}
}
