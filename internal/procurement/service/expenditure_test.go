package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/harry123180/erp-backend/internal/procurement/entity"
	"github.com/harry123180/erp-backend/internal/testutil"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func seedProjectPO(t *testing.T, db *gorm.DB, poNo, projectID, supplierID, purchaseStatus string, qty, unitPrice int64) {
	t.Helper()
	itemStatus := entity.POItemStatusPending
	if purchaseStatus == entity.POStatusPurchased {
		itemStatus = entity.POItemStatusPurchased
	}
	po := &entity.PurchaseOrder{
		ID:             uuid.New().String()[:32],
		PONo:           poNo,
		SupplierID:     supplierID,
		ProjectID:      &projectID,
		PurchaseStatus: purchaseStatus,
		DeliveryStatus: entity.DeliveryNotShipped,
		Items: []entity.PurchaseOrderItem{{
			ID:         uuid.New().String()[:32],
			ItemName:   "测试物料",
			Quantity:   decimal.NewFromInt(qty),
			UnitPrice:  decimal.NewFromInt(unitPrice),
			ItemStatus: itemStatus,
			SortOrder:  1,
		}},
	}
	po.RecalculateTotals()
	if err := db.Create(po).Error; err != nil {
		t.Fatalf("Failed to seed project PO: %v", err)
	}
}

func TestExpenditureRecalculate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s1 := testutil.SeedSupplier(t, db, "SUP001", "台北精密五金", entity.RegionDomestic)
	s2 := testutil.SeedSupplier(t, db, "SUP002", "深圳华强电子", entity.RegionInternational)

	project := &entity.Project{
		ID:     uuid.New().String()[:32],
		Code:   "PRJ001",
		Name:   "新厂房建置",
		Budget: decimal.NewFromInt(1000000),
		Active: true,
	}
	if err := db.Create(project).Error; err != nil {
		t.Fatalf("Failed to seed project: %v", err)
	}

	seedProjectPO(t, db, "PO20260830001", project.ID, s1.ID, entity.POStatusPurchased, 100, 50)
	seedProjectPO(t, db, "PO20260830002", project.ID, s1.ID, entity.POStatusPurchased, 10, 200)
	seedProjectPO(t, db, "PO20260830003", project.ID, s2.ID, entity.POStatusPurchased, 30, 30)
	// 未确认与已取消的订单不计入
	seedProjectPO(t, db, "PO20260830004", project.ID, s1.ID, entity.POStatusPending, 99, 99)
	seedProjectPO(t, db, "PO20260830005", project.ID, s2.ID, entity.POStatusCancelled, 88, 88)

	worker := NewExpenditureWorker(db, zap.NewNop())
	if err := worker.Recalculate(context.Background(), project.ID); err != nil {
		t.Fatalf("Recalculate failed: %v", err)
	}

	var rows []entity.ProjectSupplierExpenditure
	db.Where("project_id = ?", project.ID).Find(&rows)
	if len(rows) != 2 {
		t.Fatalf("expected 2 expenditure rows, got %d", len(rows))
	}

	amounts := map[string]decimal.Decimal{}
	for _, row := range rows {
		amounts[row.SupplierID] = row.Amount
		if row.RecalculatedAt == nil {
			t.Error("expected recalculated_at set")
		}
		if row.LastError != "" {
			t.Errorf("expected empty last_error, got %q", row.LastError)
		}
	}
	// s1: 100*50 + 10*200 = 7000；s2: 30*30 = 900
	if !amounts[s1.ID].Equal(decimal.NewFromInt(7000)) {
		t.Errorf("expected s1 amount 7000, got %s", amounts[s1.ID])
	}
	if !amounts[s2.ID].Equal(decimal.NewFromInt(900)) {
		t.Errorf("expected s2 amount 900, got %s", amounts[s2.ID])
	}

	// 重算是全量覆盖：再次执行金额不变、行数不增
	if err := worker.Recalculate(context.Background(), project.ID); err != nil {
		t.Fatalf("second Recalculate failed: %v", err)
	}
	var count int64
	db.Model(&entity.ProjectSupplierExpenditure{}).Where("project_id = ?", project.ID).Count(&count)
	if count != 2 {
		t.Fatalf("expected 2 rows after second recalculation, got %d", count)
	}
}

func TestExpenditureWorkerEnqueue(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s1 := testutil.SeedSupplier(t, db, "SUP001", "台北精密五金", entity.RegionDomestic)

	project := &entity.Project{
		ID:     uuid.New().String()[:32],
		Code:   "PRJ001",
		Name:   "产线改造",
		Active: true,
	}
	if err := db.Create(project).Error; err != nil {
		t.Fatalf("Failed to seed project: %v", err)
	}
	seedProjectPO(t, db, "PO20260830001", project.ID, s1.ID, entity.POStatusPurchased, 10, 100)

	worker := NewExpenditureWorker(db, zap.NewNop())
	worker.Start()
	worker.Enqueue(project.ID)
	// Stop等待在途任务完成
	worker.Stop()

	var row entity.ProjectSupplierExpenditure
	if err := db.Where("project_id = ? AND supplier_id = ?", project.ID, s1.ID).First(&row).Error; err != nil {
		t.Fatalf("expenditure row not written by worker: %v", err)
	}
	if !row.Amount.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("expected amount 1000, got %s", row.Amount)
	}
}
