package handler

import (
	"fmt"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/harry123180/erp-backend/internal/api"
	"github.com/harry123180/erp-backend/internal/procurement/service"
)

// POHandler 采购订单处理器
type POHandler struct {
	svc *service.POService
}

func NewPOHandler(svc *service.POService) *POHandler {
	return &POHandler{svc: svc}
}

// List 采购订单列表
// GET /api/v1/purchase-orders?supplier_id=xxx&purchase_status=xxx&delivery_status=xxx&search=xxx
func (h *POHandler) List(c *gin.Context) {
	page, pageSize := api.GetPagination(c)
	filters := map[string]string{
		"supplier_id":      c.Query("supplier_id"),
		"purchase_status":  c.Query("purchase_status"),
		"delivery_status":  c.Query("delivery_status"),
		"consolidation_id": c.Query("consolidation_id"),
		"search":           c.Query("search"),
	}

	items, total, err := h.svc.List(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		api.InternalError(c, "获取采购订单列表失败: "+err.Error())
		return
	}

	api.Success(c, api.ListResponse{
		Items:      items,
		Pagination: api.NewPagination(page, pageSize, total),
	})
}

// Get 采购订单详情
// GET /api/v1/purchase-orders/:id
func (h *POHandler) Get(c *gin.Context) {
	po, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "获取采购订单失败")
		return
	}
	api.Success(c, po)
}

// Create 手工创建采购订单
// POST /api/v1/purchase-orders
func (h *POHandler) Create(c *gin.Context) {
	var req service.CreatePORequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	po, err := h.svc.Create(c.Request.Context(), api.GetUserID(c), &req)
	if err != nil {
		api.InternalError(c, "创建采购订单失败: "+err.Error())
		return
	}
	api.Created(c, po)
}

// BuildRequest 从请购行汇集开单请求
type BuildRequest struct {
	SupplierID string  `json:"supplier_id" binding:"required"`
	ProjectID  *string `json:"project_id"`
}

// Build 按供应商汇集已审核请购行开立采购订单
// POST /api/v1/purchase-orders/build
func (h *POHandler) Build(c *gin.Context) {
	var req BuildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	po, err := h.svc.BuildFromRequisition(c.Request.Context(), api.GetUserID(c), req.SupplierID, req.ProjectID)
	if err != nil {
		respondError(c, err, "开立采购订单失败")
		return
	}
	api.Created(c, po)
}

// Update 更新采购订单基本信息
// PUT /api/v1/purchase-orders/:id
func (h *POHandler) Update(c *gin.Context) {
	var req service.UpdatePORequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	po, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, err, "更新采购订单失败")
		return
	}
	api.Success(c, po)
}

// ReplaceItemsRequest 整单替换行项请求
type ReplaceItemsRequest struct {
	Items []service.CreatePOItem `json:"items" binding:"required"`
}

// ReplaceItems 整单替换行项并重算金额
// PUT /api/v1/purchase-orders/:id/items
func (h *POHandler) ReplaceItems(c *gin.Context) {
	var req ReplaceItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	po, err := h.svc.ReplaceItems(c.Request.Context(), c.Param("id"), req.Items)
	if err != nil {
		respondError(c, err, "更新行项失败")
		return
	}
	api.Success(c, po)
}

// Confirm 确认采购
// POST /api/v1/purchase-orders/:id/confirm
func (h *POHandler) Confirm(c *gin.Context) {
	po, err := h.svc.ConfirmPurchase(c.Request.Context(), c.Param("id"), api.GetUserID(c))
	if err != nil {
		respondError(c, err, "确认采购失败")
		return
	}
	api.Success(c, po)
}

// WithdrawRequest 撤销请求
type WithdrawRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// Withdraw 撤销采购订单
// POST /api/v1/purchase-orders/:id/withdraw
func (h *POHandler) Withdraw(c *gin.Context) {
	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	po, err := h.svc.Withdraw(c.Request.Context(), c.Param("id"), api.GetUserID(c), req.Reason)
	if err != nil {
		respondError(c, err, "撤销采购订单失败")
		return
	}
	api.Success(c, po)
}

// Export 输出采购单xlsx并推进输出记录
// GET /api/v1/purchase-orders/:id/export
func (h *POHandler) Export(c *gin.Context) {
	f, filename, err := h.svc.ExportPO(c.Request.Context(), c.Param("id"), api.GetUserID(c))
	if err != nil {
		respondError(c, err, "输出采购单失败")
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition",
		fmt.Sprintf(`attachment; filename*=UTF-8''%s`, url.PathEscape(filename)))
	if err := f.Write(c.Writer); err != nil {
		api.InternalError(c, "写出文件失败: "+err.Error())
	}
}

// UpdateDelivery 回报交货状态
// PUT /api/v1/purchase-orders/:id/delivery
func (h *POHandler) UpdateDelivery(c *gin.Context) {
	var req service.UpdateDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	po, err := h.svc.UpdateDeliveryStatus(c.Request.Context(), c.Param("id"), api.GetUserID(c), &req)
	if err != nil {
		respondError(c, err, "更新交货状态失败")
		return
	}
	api.Success(c, po)
}

// UpdateRemarksRequest 备注更新请求
type UpdateRemarksRequest struct {
	Remarks string `json:"remarks"`
}

// UpdateRemarks 更新备注（写审计记录）
// PUT /api/v1/purchase-orders/:id/remarks
func (h *POHandler) UpdateRemarks(c *gin.Context) {
	var req UpdateRemarksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	po, err := h.svc.UpdateRemarks(c.Request.Context(), c.Param("id"), api.GetUserID(c), req.Remarks)
	if err != nil {
		respondError(c, err, "更新备注失败")
		return
	}
	api.Success(c, po)
}

// RemarksHistory 备注审计记录
// GET /api/v1/purchase-orders/:id/remarks-history
func (h *POHandler) RemarksHistory(c *gin.Context) {
	history, err := h.svc.ListRemarksHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		api.InternalError(c, "获取备注记录失败: "+err.Error())
		return
	}
	api.Success(c, history)
}
