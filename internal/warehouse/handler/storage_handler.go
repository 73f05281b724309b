package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/harry123180/erp-backend/internal/api"
	"github.com/harry123180/erp-backend/internal/warehouse/service"
)

// StorageHandler 储位处理器
type StorageHandler struct {
	svc *service.StorageService
}

func NewStorageHandler(svc *service.StorageService) *StorageHandler {
	return &StorageHandler{svc: svc}
}

// List 储位列表
// GET /api/v1/storages?area=xxx&shelf=xxx&active=xxx&search=xxx
func (h *StorageHandler) List(c *gin.Context) {
	page, pageSize := api.GetPagination(c)
	filters := map[string]string{
		"area":   c.Query("area"),
		"shelf":  c.Query("shelf"),
		"active": c.Query("active"),
		"search": c.Query("search"),
	}

	items, total, err := h.svc.List(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		api.InternalError(c, "获取储位列表失败: "+err.Error())
		return
	}

	api.Success(c, api.ListResponse{
		Items:      items,
		Pagination: api.NewPagination(page, pageSize, total),
	})
}

// Get 储位详情
// GET /api/v1/storages/:id
func (h *StorageHandler) Get(c *gin.Context) {
	storage, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "获取储位失败")
		return
	}
	api.Success(c, storage)
}

// Create 创建储位
// POST /api/v1/storages
func (h *StorageHandler) Create(c *gin.Context) {
	var req service.CreateStorageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	storage, err := h.svc.Create(c.Request.Context(), &req)
	if err != nil {
		api.BadRequest(c, "创建储位失败: "+err.Error())
		return
	}
	api.Created(c, storage)
}

// Update 更新储位
// PUT /api/v1/storages/:id
func (h *StorageHandler) Update(c *gin.Context) {
	var req service.UpdateStorageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	storage, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, err, "更新储位失败")
		return
	}
	api.Success(c, storage)
}

// Balances 储位库存余额
// GET /api/v1/storages/:id/balances
func (h *StorageHandler) Balances(c *gin.Context) {
	balances, err := h.svc.Balances(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "获取储位余额失败")
		return
	}
	api.Success(c, balances)
}
