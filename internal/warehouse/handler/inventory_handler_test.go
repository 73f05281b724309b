package handler

import (
	"net/http"
	"testing"

	"github.com/harry123180/erp-backend/internal/codegen"
	poentity "github.com/harry123180/erp-backend/internal/procurement/entity"
	porepo "github.com/harry123180/erp-backend/internal/procurement/repository"
	"github.com/harry123180/erp-backend/internal/testutil"
	"github.com/harry123180/erp-backend/internal/warehouse/entity"
	"github.com/harry123180/erp-backend/internal/warehouse/repository"
	"github.com/harry123180/erp-backend/internal/warehouse/service"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func setupInventoryTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)

	warehouseRepos := repository.NewRepositories(db)
	poRepo := porepo.NewPORepository(db)
	gen := codegen.New(db, nil, zap.NewNop())
	svc := service.NewInventoryService(warehouseRepos, poRepo, db, gen, nil, zap.NewNop())
	handler := NewInventoryHandler(svc)

	router := testutil.SetupRouter()
	api := testutil.AuthGroup(router, "/api/v1")
	api.GET("/inventory/batches/:id", handler.GetBatch)
	api.GET("/inventory/movements", handler.ListMovements)
	api.POST("/inventory/receive", handler.Receive)
	api.POST("/inventory/batches/:id/allocate", handler.Allocate)
	api.POST("/inventory/batches/:id/issue", handler.Issue)
	api.POST("/inventory/batches/:id/transfer", handler.Transfer)
	api.POST("/inventory/batches/:id/adjust", handler.Adjust)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

// receiveBatch 验收入库并返回批次ID
func receiveBatch(t *testing.T, env *testutil.TestEnv, token, poItemID string, qty string) string {
	t.Helper()
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inventory/receive",
		map[string]interface{}{"po_item_id": poItemID, "quantity": qty}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 on receive, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	return resp["data"].(map[string]interface{})["id"].(string)
}

func TestReceiveRequiresConfirmedOrder(t *testing.T) {
	env := setupInventoryTest(t)
	token := testutil.AdminToken()
	supplier := testutil.SeedSupplier(t, env.DB, "SUP001", "台北精密五金", poentity.RegionDomestic)
	po := testutil.SeedPurchaseOrder(t, env.DB, "PO20260830001", supplier.ID, poentity.POStatusPending, 100, 10)

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inventory/receive",
		map[string]interface{}{"po_item_id": po.Items[0].ID, "quantity": "50"}, token)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for unconfirmed order, got %d: %s", w.Code, w.Body.String())
	}
}

func TestReceiveAndAllocate(t *testing.T) {
	env := setupInventoryTest(t)
	token := testutil.AdminToken()
	supplier := testutil.SeedSupplier(t, env.DB, "SUP001", "台北精密五金", poentity.RegionDomestic)
	po := testutil.SeedPurchaseOrder(t, env.DB, "PO20260830001", supplier.ID, poentity.POStatusPurchased, 100, 10)
	storage := testutil.SeedStorage(t, env.DB, "Z1-A-1-F-Left")

	batchID := receiveBatch(t, env, token, po.Items[0].ID, "50")

	// 收货数量累加到订单行
	var item poentity.PurchaseOrderItem
	env.DB.Where("id = ?", po.Items[0].ID).First(&item)
	if !item.ReceivedQuantity.Equal(decimal.NewFromInt(50)) {
		t.Errorf("expected received quantity 50, got %s", item.ReceivedQuantity)
	}

	// 超出未分配数量拒绝
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inventory/batches/"+batchID+"/allocate",
		map[string]interface{}{"storage_id": storage.ID, "quantity": "60"}, token)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 on over-allocation, got %d: %s", w.Code, w.Body.String())
	}

	// 正常分配
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inventory/batches/"+batchID+"/allocate",
		map[string]interface{}{"storage_id": storage.ID, "quantity": "30"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on allocate, got %d: %s", w.Code, w.Body.String())
	}

	// 重复分配累加既有行而非新增
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inventory/batches/"+batchID+"/allocate",
		map[string]interface{}{"storage_id": storage.ID, "quantity": "10"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on second allocate, got %d: %s", w.Code, w.Body.String())
	}
	var allocs []entity.InventoryBatchStorage
	env.DB.Where("batch_id = ?", batchID).Find(&allocs)
	if len(allocs) != 1 {
		t.Fatalf("expected 1 allocation row, got %d", len(allocs))
	}
	if !allocs[0].Quantity.Equal(decimal.NewFromInt(40)) {
		t.Errorf("expected allocation 40, got %s", allocs[0].Quantity)
	}

	// 剩余10可分配，再超额拒绝
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inventory/batches/"+batchID+"/allocate",
		map[string]interface{}{"storage_id": storage.ID, "quantity": "11"}, token)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}

	// 停用储位不可分配
	inactive := testutil.SeedStorage(t, env.DB, "Z1-A-1-F-Middle")
	env.DB.Model(&entity.Storage{}).Where("id = ?", inactive.ID).Update("active", false)
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inventory/batches/"+batchID+"/allocate",
		map[string]interface{}{"storage_id": inactive.ID, "quantity": "5"}, token)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for inactive storage, got %d: %s", w.Code, w.Body.String())
	}
}

func TestIssueAgainstStorageBalance(t *testing.T) {
	env := setupInventoryTest(t)
	token := testutil.AdminToken()
	supplier := testutil.SeedSupplier(t, env.DB, "SUP001", "台北精密五金", poentity.RegionDomestic)
	po := testutil.SeedPurchaseOrder(t, env.DB, "PO20260830001", supplier.ID, poentity.POStatusPurchased, 100, 10)
	storage := testutil.SeedStorage(t, env.DB, "Z1-A-1-F-Left")

	batchID := receiveBatch(t, env, token, po.Items[0].ID, "50")
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inventory/batches/"+batchID+"/allocate",
		map[string]interface{}{"storage_id": storage.ID, "quantity": "30"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on allocate, got %d: %s", w.Code, w.Body.String())
	}

	// 储位只有30，出40拒绝
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inventory/batches/"+batchID+"/issue",
		map[string]interface{}{"storage_id": storage.ID, "quantity": "40", "reason": "领用"}, token)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 on over-issue, got %d: %s", w.Code, w.Body.String())
	}

	// 出20成功，批次当前数量同步扣减
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inventory/batches/"+batchID+"/issue",
		map[string]interface{}{"storage_id": storage.ID, "quantity": "20", "reason": "产线领用"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on issue, got %d: %s", w.Code, w.Body.String())
	}

	var batch entity.InventoryBatch
	env.DB.Where("id = ?", batchID).First(&batch)
	if !batch.CurrentQuantity.Equal(decimal.NewFromInt(30)) {
		t.Errorf("expected current quantity 30, got %s", batch.CurrentQuantity)
	}

	// 流水合计与批次当前数量一致
	var sum decimal.Decimal
	env.DB.Model(&entity.InventoryMovement{}).
		Where("batch_id = ?", batchID).
		Select("COALESCE(SUM(quantity), 0)").Scan(&sum)
	if !sum.Equal(batch.CurrentQuantity) {
		t.Errorf("movement sum %s does not match current quantity %s", sum, batch.CurrentQuantity)
	}
}

func TestTransferBetweenStorages(t *testing.T) {
	env := setupInventoryTest(t)
	token := testutil.AdminToken()
	supplier := testutil.SeedSupplier(t, env.DB, "SUP001", "台北精密五金", poentity.RegionDomestic)
	po := testutil.SeedPurchaseOrder(t, env.DB, "PO20260830001", supplier.ID, poentity.POStatusPurchased, 100, 10)
	from := testutil.SeedStorage(t, env.DB, "Z1-A-1-F-Left")
	to := testutil.SeedStorage(t, env.DB, "Z1-A-2-B-Right")

	batchID := receiveBatch(t, env, token, po.Items[0].ID, "40")
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inventory/batches/"+batchID+"/allocate",
		map[string]interface{}{"storage_id": from.ID, "quantity": "40"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on allocate, got %d: %s", w.Code, w.Body.String())
	}

	// 超额调拨拒绝
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inventory/batches/"+batchID+"/transfer",
		map[string]interface{}{"from_storage_id": from.ID, "to_storage_id": to.ID, "quantity": "50"}, token)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 on over-transfer, got %d: %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inventory/batches/"+batchID+"/transfer",
		map[string]interface{}{"from_storage_id": from.ID, "to_storage_id": to.ID, "quantity": "15", "reason": "整理储区"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on transfer, got %d: %s", w.Code, w.Body.String())
	}

	var fromAlloc, toAlloc entity.InventoryBatchStorage
	env.DB.Where("batch_id = ? AND storage_id = ?", batchID, from.ID).First(&fromAlloc)
	env.DB.Where("batch_id = ? AND storage_id = ?", batchID, to.ID).First(&toAlloc)
	if !fromAlloc.Quantity.Equal(decimal.NewFromInt(25)) {
		t.Errorf("expected from allocation 25, got %s", fromAlloc.Quantity)
	}
	if !toAlloc.Quantity.Equal(decimal.NewFromInt(15)) {
		t.Errorf("expected to allocation 15, got %s", toAlloc.Quantity)
	}

	// 调拨不改变批次当前数量
	var batch entity.InventoryBatch
	env.DB.Where("id = ?", batchID).First(&batch)
	if !batch.CurrentQuantity.Equal(decimal.NewFromInt(40)) {
		t.Errorf("expected current quantity unchanged at 40, got %s", batch.CurrentQuantity)
	}
}

func TestAdjustNegativeBalanceRejected(t *testing.T) {
	env := setupInventoryTest(t)
	token := testutil.AdminToken()
	supplier := testutil.SeedSupplier(t, env.DB, "SUP001", "台北精密五金", poentity.RegionDomestic)
	po := testutil.SeedPurchaseOrder(t, env.DB, "PO20260830001", supplier.ID, poentity.POStatusPurchased, 100, 10)
	storage := testutil.SeedStorage(t, env.DB, "Z1-A-1-F-Left")

	batchID := receiveBatch(t, env, token, po.Items[0].ID, "20")
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inventory/batches/"+batchID+"/allocate",
		map[string]interface{}{"storage_id": storage.ID, "quantity": "20"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on allocate, got %d: %s", w.Code, w.Body.String())
	}

	// 负向调整越过余额拒绝
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inventory/batches/"+batchID+"/adjust",
		map[string]interface{}{"storage_id": storage.ID, "quantity": "-25", "reason": "盘亏"}, token)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}

	// 盘亏5
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inventory/batches/"+batchID+"/adjust",
		map[string]interface{}{"storage_id": storage.ID, "quantity": "-5", "reason": "盘点短少"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on adjust, got %d: %s", w.Code, w.Body.String())
	}

	var batch entity.InventoryBatch
	env.DB.Where("id = ?", batchID).First(&batch)
	if !batch.CurrentQuantity.Equal(decimal.NewFromInt(15)) {
		t.Errorf("expected current quantity 15, got %s", batch.CurrentQuantity)
	}
}

func TestAllocateAcrossStorages(t *testing.T) {
	env := setupInventoryTest(t)
	token := testutil.AdminToken()
	supplier := testutil.SeedSupplier(t, env.DB, "SUP001", "台北精密五金", poentity.RegionDomestic)
	po := testutil.SeedPurchaseOrder(t, env.DB, "PO20260830001", supplier.ID, poentity.POStatusPurchased, 100, 10)
	left := testutil.SeedStorage(t, env.DB, "Z1-A-1-F-Left")
	right := testutil.SeedStorage(t, env.DB, "Z1-A-1-F-Right")

	batchID := receiveBatch(t, env, token, po.Items[0].ID, "100")

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inventory/batches/"+batchID+"/allocate",
		map[string]interface{}{"storage_id": left.ID, "quantity": "60"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 allocating 60, got %d: %s", w.Code, w.Body.String())
	}

	// 未分配仅剩40
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inventory/batches/"+batchID+"/allocate",
		map[string]interface{}{"storage_id": right.ID, "quantity": "50"}, token)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 allocating 50, got %d: %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inventory/batches/"+batchID+"/allocate",
		map[string]interface{}{"storage_id": right.ID, "quantity": "30"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 allocating 30, got %d: %s", w.Code, w.Body.String())
	}

	var allocs []entity.InventoryBatchStorage
	env.DB.Where("batch_id = ?", batchID).Order("quantity desc").Find(&allocs)
	if len(allocs) != 2 {
		t.Fatalf("expected 2 allocation rows, got %d", len(allocs))
	}
	if !allocs[0].Quantity.Equal(decimal.NewFromInt(60)) || !allocs[1].Quantity.Equal(decimal.NewFromInt(30)) {
		t.Errorf("expected allocations 60/30, got %s/%s", allocs[0].Quantity, allocs[1].Quantity)
	}
}
