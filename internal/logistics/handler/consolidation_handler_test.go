package handler

import (
	"net/http"
	"testing"

	"github.com/harry123180/erp-backend/internal/codegen"
	"github.com/harry123180/erp-backend/internal/logistics/entity"
	"github.com/harry123180/erp-backend/internal/logistics/repository"
	"github.com/harry123180/erp-backend/internal/logistics/service"
	poentity "github.com/harry123180/erp-backend/internal/procurement/entity"
	porepo "github.com/harry123180/erp-backend/internal/procurement/repository"
	"github.com/harry123180/erp-backend/internal/testutil"
	"go.uber.org/zap"
)

func setupConsolidationTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)

	consolidationRepo := repository.NewConsolidationRepository(db)
	procurementRepos := porepo.NewRepositories(db)
	gen := codegen.New(db, nil, zap.NewNop())
	svc := service.NewLogisticsService(consolidationRepo, procurementRepos.PO, procurementRepos.Supplier, db, gen, nil, zap.NewNop())
	handler := NewConsolidationHandler(svc)

	router := testutil.SetupRouter()
	api := testutil.AuthGroup(router, "/api/v1")
	api.GET("/consolidations/:id", handler.Get)
	api.POST("/consolidations", handler.Create)
	api.POST("/consolidations/:id/pos", handler.AddPO)
	api.DELETE("/consolidations/:id/pos/:poId", handler.RemovePO)
	api.PUT("/consolidations/:id/status", handler.UpdateStatus)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

// seedShippedInternationalPO 已确认采购且已出货的国际订单
func seedShippedInternationalPO(t *testing.T, env *testutil.TestEnv, poNo, supplierID string) *poentity.PurchaseOrder {
	t.Helper()
	po := testutil.SeedPurchaseOrder(t, env.DB, poNo, supplierID, poentity.POStatusPurchased, 10, 100)
	env.DB.Model(&poentity.PurchaseOrder{}).Where("id = ?", po.ID).
		Update("delivery_status", poentity.DeliveryShipped)
	po.DeliveryStatus = poentity.DeliveryShipped
	return po
}

func TestConsolidationEligibility(t *testing.T) {
	env := setupConsolidationTest(t)
	token := testutil.AdminToken()
	international := testutil.SeedSupplier(t, env.DB, "SUP002", "深圳华强电子", poentity.RegionInternational)
	domestic := testutil.SeedSupplier(t, env.DB, "SUP001", "台北精密五金", poentity.RegionDomestic)

	eligible := seedShippedInternationalPO(t, env, "PO20260830001", international.ID)
	notShipped := testutil.SeedPurchaseOrder(t, env.DB, "PO20260830002", international.ID, poentity.POStatusPurchased, 5, 50)
	domesticPO := seedShippedInternationalPO(t, env, "PO20260830003", domestic.ID)

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/consolidations",
		map[string]interface{}{"carrier": "长荣海运", "vessel_no": "EVER-001"}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	consID := resp["data"].(map[string]interface{})["id"].(string)

	// 合格订单可加入
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/consolidations/"+consID+"/pos",
		map[string]interface{}{"po_id": eligible.ID}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on add, got %d: %s", w.Code, w.Body.String())
	}

	// 未出货订单拒绝
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/consolidations/"+consID+"/pos",
		map[string]interface{}{"po_id": notShipped.ID}, token)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for not shipped PO, got %d: %s", w.Code, w.Body.String())
	}

	// 国内供应商订单拒绝
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/consolidations/"+consID+"/pos",
		map[string]interface{}{"po_id": domesticPO.ID}, token)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for domestic PO, got %d: %s", w.Code, w.Body.String())
	}

	// 已归属的订单不可加入第二个併櫃
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/consolidations",
		map[string]interface{}{"carrier": "阳明海运"}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	otherID := testutil.ParseResponse(w)["data"].(map[string]interface{})["id"].(string)
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/consolidations/"+otherID+"/pos",
		map[string]interface{}{"po_id": eligible.ID}, token)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for already consolidated PO, got %d: %s", w.Code, w.Body.String())
	}

	// 併櫃归属不可移除
	w = testutil.DoRequest(env.Router, http.MethodDelete, "/api/v1/consolidations/"+consID+"/pos/"+eligible.ID, nil, token)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 on remove, got %d: %s", w.Code, w.Body.String())
	}
}

func TestConsolidationStatusCascade(t *testing.T) {
	env := setupConsolidationTest(t)
	token := testutil.AdminToken()
	international := testutil.SeedSupplier(t, env.DB, "SUP002", "深圳华强电子", poentity.RegionInternational)

	po1 := seedShippedInternationalPO(t, env, "PO20260830001", international.ID)
	po2 := seedShippedInternationalPO(t, env, "PO20260830002", international.ID)

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/consolidations",
		map[string]interface{}{"carrier": "长荣海运", "po_ids": []string{po1.ID, po2.ID}}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	consID := testutil.ParseResponse(w)["data"].(map[string]interface{})["id"].(string)

	// 推进到清关中，级联到全部成员订单
	w = testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/consolidations/"+consID+"/status",
		map[string]interface{}{"logistics_status": entity.LogisticsCustomsClearing}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	for _, id := range []string{po1.ID, po2.ID} {
		var po poentity.PurchaseOrder
		env.DB.Where("id = ?", id).First(&po)
		if po.DeliveryStatus != poentity.DeliveryCustomsClearing {
			t.Errorf("expected member PO delivery customs_clearing, got %s", po.DeliveryStatus)
		}
	}

	// 清关阶段不可再加入订单
	po3 := seedShippedInternationalPO(t, env, "PO20260830003", international.ID)
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/consolidations/"+consID+"/pos",
		map[string]interface{}{"po_id": po3.ID}, token)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 after shipped stage, got %d: %s", w.Code, w.Body.String())
	}

	// 状态不可回退
	w = testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/consolidations/"+consID+"/status",
		map[string]interface{}{"logistics_status": entity.LogisticsShipped}, token)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 on backward transition, got %d: %s", w.Code, w.Body.String())
	}

	// 到货：成员订单写实际交货日
	w = testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/consolidations/"+consID+"/status",
		map[string]interface{}{"logistics_status": entity.LogisticsDelivered}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var cons entity.ShipmentConsolidation
	env.DB.Where("id = ?", consID).First(&cons)
	if cons.ActualArrival == nil {
		t.Error("expected actual arrival on delivered")
	}
	var po poentity.PurchaseOrder
	env.DB.Where("id = ?", po1.ID).First(&po)
	if po.DeliveryStatus != poentity.DeliveryDelivered {
		t.Errorf("expected delivered, got %s", po.DeliveryStatus)
	}
	if po.ActualDeliveryDate == nil {
		t.Error("expected member PO actual delivery date on delivered")
	}
}
