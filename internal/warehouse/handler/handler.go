package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/harry123180/erp-backend/internal/api"
	porepo "github.com/harry123180/erp-backend/internal/procurement/repository"
	"github.com/harry123180/erp-backend/internal/warehouse/repository"
	"github.com/harry123180/erp-backend/internal/warehouse/service"
)

// Handlers 仓储域处理器集合
type Handlers struct {
	Storage   *StorageHandler
	Inventory *InventoryHandler
}

// NewHandlers 创建仓储域处理器集合
func NewHandlers(storageSvc *service.StorageService, inventorySvc *service.InventoryService) *Handlers {
	return &Handlers{
		Storage:   NewStorageHandler(storageSvc),
		Inventory: NewInventoryHandler(inventorySvc),
	}
}

func respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, porepo.ErrNotFound):
		api.NotFound(c, fallback+": 记录不存在")
	case errors.Is(err, service.ErrStateConflict):
		api.Conflict(c, err.Error())
	default:
		api.InternalError(c, fallback+": "+err.Error())
	}
}
