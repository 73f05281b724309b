package handler

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/harry123180/erp-backend/internal/accounting/service"
	"github.com/harry123180/erp-backend/internal/api"
	porepo "github.com/harry123180/erp-backend/internal/procurement/repository"
)

// AccountingHandler 应付帐款处理器
type AccountingHandler struct {
	svc *service.AccountingService
}

func NewAccountingHandler(svc *service.AccountingService) *AccountingHandler {
	return &AccountingHandler{svc: svc}
}

func respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, porepo.ErrNotFound):
		api.NotFound(c, fallback+": 记录不存在")
	case errors.Is(err, service.ErrStateConflict):
		api.Conflict(c, err.Error())
	default:
		api.InternalError(c, fallback+": "+err.Error())
	}
}

// ListPayables 应付列表
// GET /api/v1/accounting/payables?supplier_id=xxx
func (h *AccountingHandler) ListPayables(c *gin.Context) {
	page, pageSize := api.GetPagination(c)
	filters := map[string]string{
		"supplier_id": c.Query("supplier_id"),
	}

	items, total, err := h.svc.ListPayables(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		api.InternalError(c, "获取应付列表失败: "+err.Error())
		return
	}

	api.Success(c, api.ListResponse{
		Items:      items,
		Pagination: api.NewPagination(page, pageSize, total),
	})
}

// GetPayable 单张订单应付状况
// GET /api/v1/accounting/payables/:poNo
func (h *AccountingHandler) GetPayable(c *gin.Context) {
	payable, err := h.svc.GetPayable(c.Request.Context(), c.Param("poNo"))
	if err != nil {
		respondError(c, err, "获取应付状况失败")
		return
	}
	api.Success(c, payable)
}

// RecordPayment 登记付款
// POST /api/v1/accounting/payables/:poNo/payments
func (h *AccountingHandler) RecordPayment(c *gin.Context) {
	var req service.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	record, err := h.svc.RecordPayment(c.Request.Context(), api.GetUserID(c), c.Param("poNo"), &req)
	if err != nil {
		respondError(c, err, "登记付款失败")
		return
	}
	api.Created(c, record)
}

// parsePeriod 解析year/month参数，缺省为当月
func parsePeriod(c *gin.Context) (int, int) {
	now := time.Now()
	year, month := now.Year(), int(now.Month())
	if y := c.Query("year"); y != "" {
		if v, err := strconv.Atoi(y); err == nil {
			year = v
		}
	}
	if m := c.Query("month"); m != "" {
		if v, err := strconv.Atoi(m); err == nil {
			month = v
		}
	}
	return year, month
}

// MonthlyStatement 月对帐单
// GET /api/v1/accounting/statement?year=2026&month=8
func (h *AccountingHandler) MonthlyStatement(c *gin.Context) {
	year, month := parsePeriod(c)
	lines, err := h.svc.MonthlyStatement(c.Request.Context(), year, month)
	if err != nil {
		api.BadRequest(c, "生成对帐单失败: "+err.Error())
		return
	}
	api.Success(c, lines)
}

// ExportStatementXLSX 导出月对帐单xlsx
// GET /api/v1/accounting/statement/export
func (h *AccountingHandler) ExportStatementXLSX(c *gin.Context) {
	year, month := parsePeriod(c)
	f, filename, err := h.svc.ExportStatementXLSX(c.Request.Context(), year, month)
	if err != nil {
		api.BadRequest(c, "导出对帐单失败: "+err.Error())
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition",
		fmt.Sprintf(`attachment; filename*=UTF-8''%s`, url.PathEscape(filename)))
	if err := f.Write(c.Writer); err != nil {
		api.InternalError(c, "写出文件失败: "+err.Error())
	}
}

// ExportStatementCSV 导出月对帐单Big5 CSV（旧会计系统汇入格式）
// GET /api/v1/accounting/statement/export-csv
func (h *AccountingHandler) ExportStatementCSV(c *gin.Context) {
	year, month := parsePeriod(c)
	data, filename, err := h.svc.ExportStatementCSV(c.Request.Context(), year, month)
	if err != nil {
		api.BadRequest(c, "导出对帐单失败: "+err.Error())
		return
	}

	c.Header("Content-Disposition",
		fmt.Sprintf(`attachment; filename*=UTF-8''%s`, url.PathEscape(filename)))
	c.Data(200, "text/csv; charset=big5", data)
}
