package service

import (
	"context"
	"fmt"

	"github.com/harry123180/erp-backend/internal/procurement/entity"
	"github.com/xuri/excelize/v2"
)

var poExportHeaders = []string{
	"序号", "品名", "规格", "数量", "单位", "单价", "金额", "备注",
}

// ExportPO 导出采购订单为xlsx，并推进输出状态记录。
// 同一订单可重复导出，状态推进只在首次生效。
func (s *POService) ExportPO(ctx context.Context, id, userID string) (*excelize.File, string, error) {
	po, err := s.poRepo.FindByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if po.PurchaseStatus != entity.POStatusPurchased && po.PurchaseStatus != entity.POStatusOutputted {
		if po, err = s.RecordExport(ctx, id, userID); err != nil {
			return nil, "", err
		}
	}

	f := excelize.NewFile()
	sheet := "采购单"
	f.SetSheetName("Sheet1", sheet)

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	// 单头区
	f.MergeCell(sheet, "A1", "H1")
	f.SetCellValue(sheet, "A1", "采购订单")
	f.SetCellStyle(sheet, "A1", "H1", titleStyle)

	f.SetCellValue(sheet, "A2", "订单编号")
	f.SetCellValue(sheet, "B2", po.PONo)
	f.SetCellValue(sheet, "D2", "日期")
	f.SetCellValue(sheet, "E2", po.CreatedAt.Format("2006-01-02"))
	if po.Supplier != nil {
		f.SetCellValue(sheet, "A3", "供应商")
		f.SetCellValue(sheet, "B3", po.Supplier.Name)
		f.SetCellValue(sheet, "D3", "联络人")
		f.SetCellValue(sheet, "E3", po.Supplier.ContactName)
		f.SetCellValue(sheet, "F3", "电话")
		f.SetCellValue(sheet, "G3", po.Supplier.Phone)
	}

	// 明细表头
	const headerRow = 5
	for i, h := range poExportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := fmt.Sprintf("%s%d", col, headerRow)
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	// 明细行
	row := headerRow
	for _, item := range po.Items {
		if item.ItemStatus == entity.POItemStatusCancelled {
			continue
		}
		row++
		qty, _ := item.Quantity.Float64()
		price, _ := item.UnitPrice.Float64()
		line, _ := item.LineTotal().Float64()
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), item.SortOrder)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), item.ItemName)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), item.Specification)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), qty)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), item.Unit)
		f.SetCellValue(sheet, fmt.Sprintf("F%d", row), price)
		f.SetCellValue(sheet, fmt.Sprintf("G%d", row), line)
		f.SetCellValue(sheet, fmt.Sprintf("H%d", row), item.Remarks)
	}

	// 金额汇总区
	boldOnly, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	subtotal, _ := po.Subtotal.Float64()
	tax, _ := po.Tax.Float64()
	grand, _ := po.GrandTotal.Float64()
	row++
	f.SetCellValue(sheet, fmt.Sprintf("F%d", row), "小计")
	f.SetCellValue(sheet, fmt.Sprintf("G%d", row), subtotal)
	row++
	f.SetCellValue(sheet, fmt.Sprintf("F%d", row), "税额(5%)")
	f.SetCellValue(sheet, fmt.Sprintf("G%d", row), tax)
	row++
	f.SetCellValue(sheet, fmt.Sprintf("F%d", row), "总计")
	f.SetCellValue(sheet, fmt.Sprintf("G%d", row), grand)
	f.SetCellStyle(sheet, fmt.Sprintf("F%d", row), fmt.Sprintf("G%d", row), boldOnly)

	colWidths := []float64{6, 24, 24, 10, 8, 12, 14, 24}
	for i, w := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}

	filename := fmt.Sprintf("PO_%s.xlsx", po.PONo)
	return f, filename, nil
}
