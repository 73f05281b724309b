package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/harry123180/erp-backend/internal/accounting/entity"
	"github.com/harry123180/erp-backend/internal/accounting/repository"
	poentity "github.com/harry123180/erp-backend/internal/procurement/entity"
	porepo "github.com/harry123180/erp-backend/internal/procurement/repository"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/transform"
	"gorm.io/gorm"
)

// ErrStateConflict 业务状态冲突
var ErrStateConflict = errors.New("state conflict")

// AccountingService 应付帐款服务：付款登记与对帐单
type AccountingService struct {
	paymentRepo  *repository.PaymentRepository
	poRepo       *porepo.PORepository
	supplierRepo *porepo.SupplierRepository
	db           *gorm.DB
	logger       *zap.Logger
}

func NewAccountingService(
	paymentRepo *repository.PaymentRepository,
	poRepo *porepo.PORepository,
	supplierRepo *porepo.SupplierRepository,
	db *gorm.DB,
	logger *zap.Logger,
) *AccountingService {
	return &AccountingService{
		paymentRepo:  paymentRepo,
		poRepo:       poRepo,
		supplierRepo: supplierRepo,
		db:           db,
		logger:       logger,
	}
}

// Payable 单张订单的应付状况
type Payable struct {
	PONo         string          `json:"po_no"`
	SupplierID   string          `json:"supplier_id"`
	SupplierName string          `json:"supplier_name"`
	GrandTotal   decimal.Decimal `json:"grand_total"`
	Paid         decimal.Decimal `json:"paid"`
	Outstanding  decimal.Decimal `json:"outstanding"`
	ConfirmedAt  *time.Time      `json:"confirmed_at"`
	Payments     []entity.PaymentRecord `json:"payments,omitempty"`
}

// GetPayable 查询订单应付状况（含付款明细）
func (s *AccountingService) GetPayable(ctx context.Context, poNo string) (*Payable, error) {
	po, err := s.poRepo.FindByPONo(ctx, poNo)
	if err != nil {
		return nil, err
	}
	payments, err := s.paymentRepo.ListByPONo(ctx, poNo)
	if err != nil {
		return nil, err
	}

	paid := decimal.Zero
	for _, p := range payments {
		paid = paid.Add(p.Amount)
	}

	payable := &Payable{
		PONo:        po.PONo,
		SupplierID:  po.SupplierID,
		GrandTotal:  po.GrandTotal,
		Paid:        paid,
		Outstanding: po.GrandTotal.Sub(paid),
		ConfirmedAt: po.ConfirmedAt,
		Payments:    payments,
	}
	if po.Supplier != nil {
		payable.SupplierName = po.Supplier.Name
	}
	return payable, nil
}

// ListPayables 列出已确认采购订单的应付状况
func (s *AccountingService) ListPayables(ctx context.Context, page, pageSize int, filters map[string]string) ([]Payable, int64, error) {
	filters["purchase_status"] = poentity.POStatusPurchased
	pos, total, err := s.poRepo.FindAll(ctx, page, pageSize, filters)
	if err != nil {
		return nil, 0, err
	}

	payables := make([]Payable, 0, len(pos))
	for _, po := range pos {
		paid, err := s.paymentRepo.SumByPONo(ctx, po.PONo)
		if err != nil {
			return nil, 0, err
		}
		payable := Payable{
			PONo:        po.PONo,
			SupplierID:  po.SupplierID,
			GrandTotal:  po.GrandTotal,
			Paid:        paid,
			Outstanding: po.GrandTotal.Sub(paid),
			ConfirmedAt: po.ConfirmedAt,
		}
		if po.Supplier != nil {
			payable.SupplierName = po.Supplier.Name
		}
		payables = append(payables, payable)
	}
	return payables, total, nil
}

// RecordPaymentRequest 登记付款请求
type RecordPaymentRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
	Method string          `json:"method"`
	Note   string          `json:"note"`
	PaidAt *time.Time      `json:"paid_at"`
}

// RecordPayment 对已确认采购订单登记付款。
// 超付拒绝：累计付款不可超过订单总计。
func (s *AccountingService) RecordPayment(ctx context.Context, userID, poNo string, req *RecordPaymentRequest) (*entity.PaymentRecord, error) {
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("付款金额必须大于0")
	}

	po, err := s.poRepo.FindByPONo(ctx, poNo)
	if err != nil {
		return nil, err
	}
	if po.PurchaseStatus != poentity.POStatusPurchased {
		return nil, fmt.Errorf("%w: 订单状态为%s，未确认采购不可付款", ErrStateConflict, po.PurchaseStatus)
	}

	paid, err := s.paymentRepo.SumByPONo(ctx, poNo)
	if err != nil {
		return nil, err
	}
	if paid.Add(req.Amount).GreaterThan(po.GrandTotal) {
		return nil, fmt.Errorf("%w: 累计付款%s将超过订单总计%s",
			ErrStateConflict, paid.Add(req.Amount).String(), po.GrandTotal.String())
	}

	method := req.Method
	if method == "" {
		method = entity.PaymentMethodTransfer
	}
	paidAt := time.Now()
	if req.PaidAt != nil {
		paidAt = *req.PaidAt
	}

	record := &entity.PaymentRecord{
		ID:        uuid.New().String()[:32],
		PONo:      poNo,
		Amount:    req.Amount.Round(0),
		Method:    method,
		Note:      req.Note,
		PaidAt:    paidAt,
		CreatedBy: userID,
	}
	if err := s.paymentRepo.Create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// StatementLine 月对帐单行：某供应商当月应付汇总
type StatementLine struct {
	SupplierID   string          `json:"supplier_id"`
	SupplierCode string          `json:"supplier_code"`
	SupplierName string          `json:"supplier_name"`
	POCount      int             `json:"po_count"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	PaidAmount   decimal.Decimal `json:"paid_amount"`
	Outstanding  decimal.Decimal `json:"outstanding"`
}

// MonthlyStatement 月对帐单：当月确认采购的订单按供应商汇总
func (s *AccountingService) MonthlyStatement(ctx context.Context, year, month int) ([]StatementLine, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("月份无效: %d", month)
	}
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.Local)
	to := from.AddDate(0, 1, 0)

	var pos []poentity.PurchaseOrder
	err := s.db.WithContext(ctx).
		Preload("Supplier").
		Where("purchase_status = ? AND confirmed_at >= ? AND confirmed_at < ?",
			poentity.POStatusPurchased, from, to).
		Order("supplier_id ASC, po_no ASC").
		Find(&pos).Error
	if err != nil {
		return nil, err
	}

	index := map[string]int{}
	var lines []StatementLine
	for _, po := range pos {
		i, ok := index[po.SupplierID]
		if !ok {
			line := StatementLine{SupplierID: po.SupplierID}
			if po.Supplier != nil {
				line.SupplierCode = po.Supplier.Code
				line.SupplierName = po.Supplier.Name
			}
			lines = append(lines, line)
			i = len(lines) - 1
			index[po.SupplierID] = i
		}

		paid, err := s.paymentRepo.SumByPONo(ctx, po.PONo)
		if err != nil {
			return nil, err
		}
		lines[i].POCount++
		lines[i].TotalAmount = lines[i].TotalAmount.Add(po.GrandTotal)
		lines[i].PaidAmount = lines[i].PaidAmount.Add(paid)
		lines[i].Outstanding = lines[i].Outstanding.Add(po.GrandTotal.Sub(paid))
	}
	return lines, nil
}

var statementHeaders = []string{
	"供应商编码", "供应商名称", "订单数", "应付总额", "已付金额", "未付余额",
}

// csvStatementHeaders 旧会计系统只认Big5，表头必须用繁体字
var csvStatementHeaders = []string{
	"供應商編碼", "供應商名稱", "訂單數", "應付總額", "已付金額", "未付餘額",
}

// ExportStatementXLSX 导出月对帐单为xlsx
func (s *AccountingService) ExportStatementXLSX(ctx context.Context, year, month int) (*excelize.File, string, error) {
	lines, err := s.MonthlyStatement(ctx, year, month)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	sheet := "对帐单"
	f.SetSheetName("Sheet1", sheet)

	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	for i, h := range statementHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	totalAmount := decimal.Zero
	totalOutstanding := decimal.Zero
	for rowIdx, line := range lines {
		row := rowIdx + 2
		total, _ := line.TotalAmount.Float64()
		paid, _ := line.PaidAmount.Float64()
		outstanding, _ := line.Outstanding.Float64()
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), line.SupplierCode)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), line.SupplierName)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), line.POCount)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), total)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), paid)
		f.SetCellValue(sheet, fmt.Sprintf("F%d", row), outstanding)
		totalAmount = totalAmount.Add(line.TotalAmount)
		totalOutstanding = totalOutstanding.Add(line.Outstanding)
	}

	summaryRow := len(lines) + 2
	summaryStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	amount, _ := totalAmount.Float64()
	outstanding, _ := totalOutstanding.Float64()
	f.SetCellValue(sheet, fmt.Sprintf("A%d", summaryRow), "合计")
	f.SetCellValue(sheet, fmt.Sprintf("D%d", summaryRow), amount)
	f.SetCellValue(sheet, fmt.Sprintf("F%d", summaryRow), outstanding)
	f.SetCellStyle(sheet, fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("F%d", summaryRow), summaryStyle)

	colWidths := []float64{14, 28, 10, 14, 14, 14}
	for i, w := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}

	filename := fmt.Sprintf("AP_%d%02d.xlsx", year, month)
	return f, filename, nil
}

// ExportStatementCSV 导出月对帐单为Big5编码CSV，供旧会计系统汇入
func (s *AccountingService) ExportStatementCSV(ctx context.Context, year, month int) ([]byte, string, error) {
	lines, err := s.MonthlyStatement(ctx, year, month)
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	// 供应商名称可能含Big5映射不到的字，替换而不是整批失败
	enc := encoding.ReplaceUnsupported(traditionalchinese.Big5.NewEncoder())
	w := transform.NewWriter(&buf, enc)

	writeRow := func(fields []string) error {
		for i, field := range fields {
			if i > 0 {
				if _, err := w.Write([]byte(",")); err != nil {
					return err
				}
			}
			if _, err := w.Write([]byte(field)); err != nil {
				return err
			}
		}
		_, err := w.Write([]byte("\r\n"))
		return err
	}

	if err := writeRow(csvStatementHeaders); err != nil {
		return nil, "", err
	}
	for _, line := range lines {
		row := []string{
			line.SupplierCode,
			line.SupplierName,
			strconv.Itoa(line.POCount),
			line.TotalAmount.String(),
			line.PaidAmount.String(),
			line.Outstanding.String(),
		}
		if err := writeRow(row); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("AP_%d%02d.csv", year, month)
	return buf.Bytes(), filename, nil
}
