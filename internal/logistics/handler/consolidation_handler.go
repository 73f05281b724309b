package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/harry123180/erp-backend/internal/api"
	"github.com/harry123180/erp-backend/internal/logistics/repository"
	"github.com/harry123180/erp-backend/internal/logistics/service"
	porepo "github.com/harry123180/erp-backend/internal/procurement/repository"
)

// ConsolidationHandler 併櫃处理器
type ConsolidationHandler struct {
	svc *service.LogisticsService
}

func NewConsolidationHandler(svc *service.LogisticsService) *ConsolidationHandler {
	return &ConsolidationHandler{svc: svc}
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

// List 併櫃列表
// GET /api/v1/consolidations?logistics_status=xxx&search=xxx
func (h *ConsolidationHandler) List(c *gin.Context) {
	page, pageSize := api.GetPagination(c)
	filters := map[string]string{
		"logistics_status": c.Query("logistics_status"),
		"search":           c.Query("search"),
	}

	items, total, err := h.svc.List(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		api.InternalError(c, "获取併櫃列表失败: "+err.Error())
		return
	}

	api.Success(c, api.ListResponse{
		Items:      items,
		Pagination: api.NewPagination(page, pageSize, total),
	})
}

// Get 併櫃详情（含成员订单）
// GET /api/v1/consolidations/:id
func (h *ConsolidationHandler) Get(c *gin.Context) {
	detail, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "获取併櫃失败")
		return
	}
	api.Success(c, detail)
}

// Create 创建併櫃
// POST /api/v1/consolidations
func (h *ConsolidationHandler) Create(c *gin.Context) {
	var req service.CreateConsolidationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	consolidation, err := h.svc.Create(c.Request.Context(), api.GetUserID(c), &req)
	if err != nil {
		respondError(c, err, "创建併櫃失败")
		return
	}
	api.Created(c, consolidation)
}

// AddPORequest 加入订单请求
type AddPORequest struct {
	POID string `json:"po_id" binding:"required"`
}

// AddPO 将采购订单加入併櫃
// POST /api/v1/consolidations/:id/pos
func (h *ConsolidationHandler) AddPO(c *gin.Context) {
	var req AddPORequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	detail, err := h.svc.AddPO(c.Request.Context(), c.Param("id"), req.POID)
	if err != nil {
		respondError(c, err, "加入併櫃失败")
		return
	}
	api.Success(c, detail)
}

// RemovePO 移除併櫃成员（归属不可移除，恒拒绝）
// DELETE /api/v1/consolidations/:id/pos/:poId
func (h *ConsolidationHandler) RemovePO(c *gin.Context) {
	err := h.svc.RemovePO(c.Request.Context(), c.Param("id"), c.Param("poId"))
	if err != nil {
		respondError(c, err, "移除併櫃成员失败")
		return
	}
	api.Success(c, nil)
}

// UpdateStatus 推进物流状态
// PUT /api/v1/consolidations/:id/status
func (h *ConsolidationHandler) UpdateStatus(c *gin.Context) {
	var req service.UpdateLogisticsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	detail, err := h.svc.UpdateLogisticsStatus(c.Request.Context(), c.Param("id"), api.GetUserID(c), &req)
	if err != nil {
		respondError(c, err, "推进物流状态失败")
		return
	}
	api.Success(c, detail)
}
