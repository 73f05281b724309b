package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/harry123180/erp-backend/internal/api"
	"github.com/harry123180/erp-backend/internal/procurement/repository"
	"github.com/harry123180/erp-backend/internal/procurement/service"
)

// Handlers 采购域处理器集合
type Handlers struct {
	Supplier    *SupplierHandler
	Requisition *RequisitionHandler
	PO          *POHandler
	Project     *ProjectHandler
}

// NewHandlers 创建采购域处理器集合
func NewHandlers(
	supplierSvc *service.SupplierService,
	requisitionSvc *service.RequisitionService,
	poSvc *service.POService,
	projectSvc *service.ProjectService,
) *Handlers {
	return &Handlers{
		Supplier:    NewSupplierHandler(supplierSvc),
		Requisition: NewRequisitionHandler(requisitionSvc),
		PO:          NewPOHandler(poSvc),
		Project:     NewProjectHandler(projectSvc),
	}
}

// respondError 按错误类别映射HTTP语义：未找到404、状态冲突409、其余500
func respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		api.NotFound(c, fallback+": 记录不存在")
	case errors.Is(err, service.ErrStateConflict):
		api.Conflict(c, err.Error())
	case errors.Is(err, service.ErrValidation):
		api.BadRequest(c, err.Error())
	default:
		api.InternalError(c, fallback+": "+err.Error())
	}
}
