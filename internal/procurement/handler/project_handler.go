package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/harry123180/erp-backend/internal/api"
	"github.com/harry123180/erp-backend/internal/procurement/service"
)

// ProjectHandler 专案处理器
type ProjectHandler struct {
	svc *service.ProjectService
}

func NewProjectHandler(svc *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{svc: svc}
}

// List 专案列表
// GET /api/v1/projects?active=xxx&search=xxx
func (h *ProjectHandler) List(c *gin.Context) {
	page, pageSize := api.GetPagination(c)
	filters := map[string]string{
		"active": c.Query("active"),
		"search": c.Query("search"),
	}

	items, total, err := h.svc.List(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		api.InternalError(c, "获取专案列表失败: "+err.Error())
		return
	}

	api.Success(c, api.ListResponse{
		Items:      items,
		Pagination: api.NewPagination(page, pageSize, total),
	})
}

// Get 专案详情（含按供应商支出）
// GET /api/v1/projects/:id
func (h *ProjectHandler) Get(c *gin.Context) {
	project, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "获取专案失败")
		return
	}
	api.Success(c, project)
}

// Create 创建专案
// POST /api/v1/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req service.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	project, err := h.svc.Create(c.Request.Context(), &req)
	if err != nil {
		api.InternalError(c, "创建专案失败: "+err.Error())
		return
	}
	api.Created(c, project)
}

// Update 更新专案
// PUT /api/v1/projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	var req service.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	project, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, err, "更新专案失败")
		return
	}
	api.Success(c, project)
}

// Recalculate 手动触发专案支出重算
// POST /api/v1/projects/:id/recalculate
func (h *ProjectHandler) Recalculate(c *gin.Context) {
	if err := h.svc.Recalculate(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err, "触发支出重算失败")
		return
	}
	api.Success(c, gin.H{"queued": true})
}
