package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/harry123180/erp-backend/internal/api"
	"github.com/harry123180/erp-backend/internal/procurement/service"
)

// RequisitionHandler 请购单处理器
type RequisitionHandler struct {
	svc *service.RequisitionService
}

func NewRequisitionHandler(svc *service.RequisitionService) *RequisitionHandler {
	return &RequisitionHandler{svc: svc}
}

// List 请购单列表
// GET /api/v1/requisitions?status=xxx&requester_id=xxx&project_id=xxx&search=xxx
func (h *RequisitionHandler) List(c *gin.Context) {
	page, pageSize := api.GetPagination(c)
	filters := map[string]string{
		"status":       c.Query("status"),
		"requester_id": c.Query("requester_id"),
		"project_id":   c.Query("project_id"),
		"search":       c.Query("search"),
	}

	items, total, err := h.svc.List(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		api.InternalError(c, "获取请购单列表失败: "+err.Error())
		return
	}

	api.Success(c, api.ListResponse{
		Items:      items,
		Pagination: api.NewPagination(page, pageSize, total),
	})
}

// Get 请购单详情
// GET /api/v1/requisitions/:id
func (h *RequisitionHandler) Get(c *gin.Context) {
	ro, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "获取请购单失败")
		return
	}
	api.Success(c, ro)
}

// Create 创建请购单
// POST /api/v1/requisitions
func (h *RequisitionHandler) Create(c *gin.Context) {
	var req service.CreateRequisitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	ro, err := h.svc.Create(c.Request.Context(), api.GetUserID(c), &req)
	if err != nil {
		api.InternalError(c, "创建请购单失败: "+err.Error())
		return
	}
	api.Created(c, ro)
}

// Update 更新请购单
// PUT /api/v1/requisitions/:id
func (h *RequisitionHandler) Update(c *gin.Context) {
	var req service.UpdateRequisitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	ro, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, err, "更新请购单失败")
		return
	}
	api.Success(c, ro)
}

// Submit 提交送审
// POST /api/v1/requisitions/:id/submit
func (h *RequisitionHandler) Submit(c *gin.Context) {
	ro, err := h.svc.Submit(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "提交请购单失败")
		return
	}
	api.Success(c, ro)
}

// ReviewItem 行项审核
// POST /api/v1/requisitions/:id/items/:itemId/review
func (h *RequisitionHandler) ReviewItem(c *gin.Context) {
	var req service.ReviewItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	item, err := h.svc.ReviewItem(c.Request.Context(), api.GetUserID(c), c.Param("id"), c.Param("itemId"), &req)
	if err != nil {
		respondError(c, err, "行项审核失败")
		return
	}
	api.Success(c, item)
}

// ResubmitItem 疑问行项重新送审
// POST /api/v1/requisitions/:id/items/:itemId/resubmit
func (h *RequisitionHandler) ResubmitItem(c *gin.Context) {
	item, err := h.svc.ResubmitItem(c.Request.Context(), c.Param("id"), c.Param("itemId"))
	if err != nil {
		respondError(c, err, "重新送审失败")
		return
	}
	api.Success(c, item)
}

// CancelItem 取消行项
// POST /api/v1/requisitions/:id/items/:itemId/cancel
func (h *RequisitionHandler) CancelItem(c *gin.Context) {
	item, err := h.svc.CancelItem(c.Request.Context(), c.Param("id"), c.Param("itemId"))
	if err != nil {
		respondError(c, err, "取消行项失败")
		return
	}
	api.Success(c, item)
}

// ApprovedItems 某供应商已审核通过待开单行项
// GET /api/v1/requisitions/approved-items?supplier_id=xxx
func (h *RequisitionHandler) ApprovedItems(c *gin.Context) {
	supplierID := c.Query("supplier_id")
	if supplierID == "" {
		api.BadRequest(c, "supplier_id必填")
		return
	}

	items, err := h.svc.ApprovedItemsBySupplier(c.Request.Context(), supplierID)
	if err != nil {
		api.InternalError(c, "获取待开单行项失败: "+err.Error())
		return
	}
	api.Success(c, items)
}
