package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/harry123180/erp-backend/internal/api"
	"github.com/harry123180/erp-backend/internal/warehouse/service"
)

// InventoryHandler 库存处理器：收货、上架、出库、调拨、调整
type InventoryHandler struct {
	svc *service.InventoryService
}

func NewInventoryHandler(svc *service.InventoryService) *InventoryHandler {
	return &InventoryHandler{svc: svc}
}

// ListBatches 批次列表
// GET /api/v1/inventory/batches?item_code=xxx&source_po_no=xxx&search=xxx
func (h *InventoryHandler) ListBatches(c *gin.Context) {
	page, pageSize := api.GetPagination(c)
	filters := map[string]string{
		"item_code":    c.Query("item_code"),
		"source_po_no": c.Query("source_po_no"),
		"search":       c.Query("search"),
	}

	items, total, err := h.svc.ListBatches(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		api.InternalError(c, "获取批次列表失败: "+err.Error())
		return
	}

	api.Success(c, api.ListResponse{
		Items:      items,
		Pagination: api.NewPagination(page, pageSize, total),
	})
}

// GetBatch 批次详情（含储位分配）
// GET /api/v1/inventory/batches/:id
func (h *InventoryHandler) GetBatch(c *gin.Context) {
	batch, err := h.svc.GetBatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "获取批次失败")
		return
	}
	api.Success(c, batch)
}

// ListMovements 异动流水
// GET /api/v1/inventory/movements?batch_id=xxx&storage_id=xxx&item_code=xxx&movement_type=xxx
func (h *InventoryHandler) ListMovements(c *gin.Context) {
	page, pageSize := api.GetPagination(c)
	filters := map[string]string{
		"batch_id":      c.Query("batch_id"),
		"storage_id":    c.Query("storage_id"),
		"item_code":     c.Query("item_code"),
		"movement_type": c.Query("movement_type"),
	}

	items, total, err := h.svc.ListMovements(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		api.InternalError(c, "获取异动流水失败: "+err.Error())
		return
	}

	api.Success(c, api.ListResponse{
		Items:      items,
		Pagination: api.NewPagination(page, pageSize, total),
	})
}

// Receive 对采购订单行验收入库
// POST /api/v1/inventory/receive
func (h *InventoryHandler) Receive(c *gin.Context) {
	var req service.ReceiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	batch, err := h.svc.Receive(c.Request.Context(), api.GetUserID(c), &req)
	if err != nil {
		respondError(c, err, "验收入库失败")
		return
	}
	api.Created(c, batch)
}

// Allocate 批次上架到储位
// POST /api/v1/inventory/batches/:id/allocate
func (h *InventoryHandler) Allocate(c *gin.Context) {
	var req service.AllocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	batch, err := h.svc.Allocate(c.Request.Context(), api.GetUserID(c), c.Param("id"), &req)
	if err != nil {
		respondError(c, err, "上架分配失败")
		return
	}
	api.Success(c, batch)
}

// Issue 出库
// POST /api/v1/inventory/batches/:id/issue
func (h *InventoryHandler) Issue(c *gin.Context) {
	var req service.IssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	batch, err := h.svc.Issue(c.Request.Context(), api.GetUserID(c), c.Param("id"), &req)
	if err != nil {
		respondError(c, err, "出库失败")
		return
	}
	api.Success(c, batch)
}

// Transfer 储位间调拨
// POST /api/v1/inventory/batches/:id/transfer
func (h *InventoryHandler) Transfer(c *gin.Context) {
	var req service.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	batch, err := h.svc.Transfer(c.Request.Context(), api.GetUserID(c), c.Param("id"), &req)
	if err != nil {
		respondError(c, err, "调拨失败")
		return
	}
	api.Success(c, batch)
}

// Adjust 盘点调整
// POST /api/v1/inventory/batches/:id/adjust
func (h *InventoryHandler) Adjust(c *gin.Context) {
	var req service.AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	batch, err := h.svc.Adjust(c.Request.Context(), api.GetUserID(c), c.Param("id"), &req)
	if err != nil {
		respondError(c, err, "库存调整失败")
		return
	}
	api.Success(c, batch)
}
