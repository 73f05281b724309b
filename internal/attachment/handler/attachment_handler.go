package handler

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/harry123180/erp-backend/internal/api"
	"github.com/harry123180/erp-backend/internal/attachment/repository"
	"github.com/harry123180/erp-backend/internal/attachment/service"
)

// AttachmentHandler 附件处理器
type AttachmentHandler struct {
	svc *service.AttachmentService
}

func NewAttachmentHandler(svc *service.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{svc: svc}
}

// Upload 上传附件
// POST /api/v1/attachments (multipart: file, related_type, related_id)
func (h *AttachmentHandler) Upload(c *gin.Context) {
	relatedType := c.PostForm("related_type")
	relatedID := c.PostForm("related_id")
	if relatedType == "" || relatedID == "" {
		api.BadRequest(c, "related_type与related_id必填")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		api.BadRequest(c, "缺少上传文件: "+err.Error())
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		api.InternalError(c, "读取上传文件失败: "+err.Error())
		return
	}
	defer file.Close()

	att, err := h.svc.Upload(c.Request.Context(), api.GetUserID(c),
		relatedType, relatedID,
		file, fileHeader.Filename, fileHeader.Size,
		fileHeader.Header.Get("Content-Type"))
	if err != nil {
		api.BadRequest(c, "上传附件失败: "+err.Error())
		return
	}
	api.Created(c, att)
}

// ListByRelated 某对象的附件列表
// GET /api/v1/attachments?related_type=po&related_id=xxx
func (h *AttachmentHandler) ListByRelated(c *gin.Context) {
	relatedType := c.Query("related_type")
	relatedID := c.Query("related_id")
	if relatedType == "" || relatedID == "" {
		api.BadRequest(c, "related_type与related_id必填")
		return
	}

	items, err := h.svc.ListByRelated(c.Request.Context(), relatedType, relatedID)
	if err != nil {
		api.InternalError(c, "获取附件列表失败: "+err.Error())
		return
	}
	api.Success(c, items)
}

// Download 下载附件
// GET /api/v1/attachments/:id/download
func (h *AttachmentHandler) Download(c *gin.Context) {
	reader, att, err := h.svc.Download(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			api.NotFound(c, "附件不存在")
			return
		}
		api.InternalError(c, "下载附件失败: "+err.Error())
		return
	}
	defer reader.Close()

	c.Header("Content-Disposition",
		fmt.Sprintf(`attachment; filename*=UTF-8''%s`, url.PathEscape(att.FileName)))
	contentType := att.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	if _, err := io.Copy(c.Writer, reader); err != nil {
		api.InternalError(c, "写出文件失败: "+err.Error())
	}
}

// PresignedURL 限时下载链接
// GET /api/v1/attachments/:id/url
func (h *AttachmentHandler) PresignedURL(c *gin.Context) {
	u, err := h.svc.PresignedURL(c.Request.Context(), c.Param("id"), 15*time.Minute)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			api.NotFound(c, "附件不存在")
			return
		}
		api.InternalError(c, "生成下载链接失败: "+err.Error())
		return
	}
	api.Success(c, gin.H{"url": u})
}
