package handler

import (
	"net/http"
	"testing"

	"github.com/harry123180/erp-backend/internal/codegen"
	"github.com/harry123180/erp-backend/internal/procurement/entity"
	"github.com/harry123180/erp-backend/internal/procurement/repository"
	"github.com/harry123180/erp-backend/internal/procurement/service"
	"github.com/harry123180/erp-backend/internal/testutil"
	"go.uber.org/zap"
)

func setupPOTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)

	repos := repository.NewRepositories(db)
	gen := codegen.New(db, nil, zap.NewNop())
	expenditure := service.NewExpenditureWorker(db, zap.NewNop())

	poSvc := service.NewPOService(repos, db, gen, expenditure, nil, zap.NewNop())
	requisitionSvc := service.NewRequisitionService(repos, db, gen, zap.NewNop())
	handler := NewPOHandler(poSvc)
	reqHandler := NewRequisitionHandler(requisitionSvc)

	router := testutil.SetupRouter()
	api := testutil.AuthGroup(router, "/api/v1")
	api.GET("/purchase-orders/:id", handler.Get)
	api.GET("/purchase-orders/:id/remarks-history", handler.RemarksHistory)
	api.POST("/purchase-orders", handler.Create)
	api.POST("/purchase-orders/build", handler.Build)
	api.POST("/purchase-orders/:id/confirm", handler.Confirm)
	api.POST("/purchase-orders/:id/withdraw", handler.Withdraw)
	api.PUT("/purchase-orders/:id/delivery", handler.UpdateDelivery)
	api.PUT("/purchase-orders/:id/remarks", handler.UpdateRemarks)
	api.POST("/requisitions", reqHandler.Create)
	api.POST("/requisitions/:id/submit", reqHandler.Submit)
	api.POST("/requisitions/:id/items/:itemId/review", reqHandler.ReviewItem)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

func TestPOConfirmAndWithdraw(t *testing.T) {
	env := setupPOTest(t)
	token := testutil.AdminToken()
	supplier := testutil.SeedSupplier(t, env.DB, "SUP001", "台北精密五金", entity.RegionDomestic)

	body := map[string]interface{}{
		"supplier_id": supplier.ID,
		"items": []map[string]interface{}{
			{"item_name": "六角螺丝", "specification": "M3x10", "quantity": "100", "unit_price": "2.5"},
		},
	}
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/purchase-orders", body, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	poID := data["id"].(string)
	if data["purchase_status"] != entity.POStatusPending {
		t.Fatalf("expected pending, got %v", data["purchase_status"])
	}
	// 100*2.5=250，税12.5，总计263
	if data["subtotal"] != "250" {
		t.Errorf("expected subtotal 250, got %v", data["subtotal"])
	}
	if data["grand_total"] != "263" {
		t.Errorf("expected grand total 263, got %v", data["grand_total"])
	}

	// 确认采购
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/purchase-orders/"+poID+"/confirm", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on confirm, got %d: %s", w.Code, w.Body.String())
	}
	resp = testutil.ParseResponse(w)
	data = resp["data"].(map[string]interface{})
	if data["purchase_status"] != entity.POStatusPurchased {
		t.Fatalf("expected purchased, got %v", data["purchase_status"])
	}
	if data["status_update_required"] != true {
		t.Error("expected status_update_required after confirm")
	}

	// 重复确认冲突
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/purchase-orders/"+poID+"/confirm", nil, token)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 on double confirm, got %d: %s", w.Code, w.Body.String())
	}

	// 撤销
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/purchase-orders/"+poID+"/withdraw",
		map[string]interface{}{"reason": "供应商缺货"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on withdraw, got %d: %s", w.Code, w.Body.String())
	}
	resp = testutil.ParseResponse(w)
	data = resp["data"].(map[string]interface{})
	if data["purchase_status"] != entity.POStatusCancelled {
		t.Fatalf("expected cancelled, got %v", data["purchase_status"])
	}

	// 重复撤销冲突
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/purchase-orders/"+poID+"/withdraw",
		map[string]interface{}{"reason": "再次撤销"}, token)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 on double withdraw, got %d: %s", w.Code, w.Body.String())
	}
}

func TestPODeliveryStatusByRegion(t *testing.T) {
	env := setupPOTest(t)
	token := testutil.AdminToken()
	domestic := testutil.SeedSupplier(t, env.DB, "SUP001", "台北精密五金", entity.RegionDomestic)

	po := testutil.SeedPurchaseOrder(t, env.DB, "PO20260830001", domestic.ID, entity.POStatusPurchased, 10, 100)

	// 国内供应商不可使用清关状态
	w := testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/purchase-orders/"+po.ID+"/delivery",
		map[string]interface{}{"delivery_status": entity.DeliveryCustomsClearing}, token)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for domestic customs status, got %d: %s", w.Code, w.Body.String())
	}

	// 正常出货
	w = testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/purchase-orders/"+po.ID+"/delivery",
		map[string]interface{}{"delivery_status": entity.DeliveryShipped}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// 交货状态串接到行项
	var item entity.PurchaseOrderItem
	env.DB.Where("po_id = ?", po.ID).First(&item)
	if item.DeliveryStatus != entity.DeliveryShipped {
		t.Errorf("expected item delivery shipped, got %s", item.DeliveryStatus)
	}

	// 到货写实际交货日
	w = testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/purchase-orders/"+po.ID+"/delivery",
		map[string]interface{}{"delivery_status": entity.DeliveryDelivered}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var updated entity.PurchaseOrder
	env.DB.Where("id = ?", po.ID).First(&updated)
	if updated.ActualDeliveryDate == nil {
		t.Error("expected actual delivery date on delivered")
	}
	if updated.StatusUpdateRequired {
		t.Error("expected status_update_required cleared on delivered")
	}

	// 未确认采购的订单不可回报交货
	pending := testutil.SeedPurchaseOrder(t, env.DB, "PO20260830002", domestic.ID, entity.POStatusPending, 5, 10)
	w = testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/purchase-orders/"+pending.ID+"/delivery",
		map[string]interface{}{"delivery_status": entity.DeliveryShipped}, token)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for unconfirmed order, got %d: %s", w.Code, w.Body.String())
	}
}

func TestPORemarksHistory(t *testing.T) {
	env := setupPOTest(t)
	token := testutil.AdminToken()
	supplier := testutil.SeedSupplier(t, env.DB, "SUP001", "台北精密五金", entity.RegionDomestic)
	po := testutil.SeedPurchaseOrder(t, env.DB, "PO20260830001", supplier.ID, entity.POStatusPending, 10, 100)

	w := testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/purchase-orders/"+po.ID+"/remarks",
		map[string]interface{}{"remarks": "改走海运"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/purchase-orders/"+po.ID+"/remarks",
		map[string]interface{}{"remarks": "改走空运"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/purchase-orders/"+po.ID+"/remarks-history", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	history := resp["data"].([]interface{})
	if len(history) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(history))
	}
}

func TestPOBuildFromRequisition(t *testing.T) {
	env := setupPOTest(t)
	token := testutil.AdminToken()
	supplier := testutil.SeedSupplier(t, env.DB, "SUP001", "台北精密五金", entity.RegionDomestic)

	// 建立请购单并提交
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/requisitions",
		map[string]interface{}{
			"usage": "产线耗材",
			"items": []map[string]interface{}{
				{"item_name": "六角螺丝", "quantity": "200"},
				{"item_name": "垫片", "quantity": "500"},
			},
		}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	reqID := data["id"].(string)
	items := data["items"].([]interface{})

	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/requisitions/"+reqID+"/submit", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on submit, got %d: %s", w.Code, w.Body.String())
	}

	// 逐行审核通过并填报供应商与单价
	for _, raw := range items {
		itemID := raw.(map[string]interface{})["id"].(string)
		w = testutil.DoRequest(env.Router, http.MethodPost,
			"/api/v1/requisitions/"+reqID+"/items/"+itemID+"/review",
			map[string]interface{}{"status": "approved", "supplier_id": supplier.ID, "unit_price": "3"}, token)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200 on review, got %d: %s", w.Code, w.Body.String())
		}
	}

	// 按供应商汇集开单
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/purchase-orders/build",
		map[string]interface{}{"supplier_id": supplier.ID}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 on build, got %d: %s", w.Code, w.Body.String())
	}
	resp = testutil.ParseResponse(w)
	data = resp["data"].(map[string]interface{})
	poItems := data["items"].([]interface{})
	if len(poItems) != 2 {
		t.Fatalf("expected 2 PO items, got %d", len(poItems))
	}

	// 请购行翻转为order_created并回写PO单号
	var reqItems []entity.RequestOrderItem
	env.DB.Where("request_order_id = ?", reqID).Find(&reqItems)
	for _, item := range reqItems {
		if item.Status != entity.RequestItemOrderCreated {
			t.Errorf("expected item status order_created, got %s", item.Status)
		}
		if item.PONo == nil {
			t.Error("expected PO number written back to request item")
		}
	}

	// 无已审核行时再次开单冲突
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/purchase-orders/build",
		map[string]interface{}{"supplier_id": supplier.ID}, token)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 when no approved items, got %d: %s", w.Code, w.Body.String())
	}
}
