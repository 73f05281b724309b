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

func setupRequisitionTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)

	repos := repository.NewRepositories(db)
	gen := codegen.New(db, nil, zap.NewNop())
	svc := service.NewRequisitionService(repos, db, gen, zap.NewNop())
	handler := NewRequisitionHandler(svc)

	router := testutil.SetupRouter()
	api := testutil.AuthGroup(router, "/api/v1")
	api.GET("/requisitions/:id", handler.Get)
	api.POST("/requisitions", handler.Create)
	api.PUT("/requisitions/:id", handler.Update)
	api.POST("/requisitions/:id/submit", handler.Submit)
	api.POST("/requisitions/:id/items/:itemId/review", handler.ReviewItem)
	api.POST("/requisitions/:id/items/:itemId/resubmit", handler.ResubmitItem)
	api.POST("/requisitions/:id/items/:itemId/cancel", handler.CancelItem)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

func createRequisition(t *testing.T, env *testutil.TestEnv, token string, itemNames ...string) (string, []string) {
	t.Helper()
	items := make([]map[string]interface{}, 0, len(itemNames))
	for _, name := range itemNames {
		items = append(items, map[string]interface{}{"item_name": name, "quantity": "10"})
	}

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/requisitions",
		map[string]interface{}{"usage": "测试用途", "items": items}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	id := data["id"].(string)

	itemIDs := make([]string, 0, len(itemNames))
	for _, raw := range data["items"].([]interface{}) {
		itemIDs = append(itemIDs, raw.(map[string]interface{})["id"].(string))
	}
	return id, itemIDs
}

func TestRequisitionReviewFlow(t *testing.T) {
	env := setupRequisitionTest(t)
	token := testutil.AdminToken()
	supplier := testutil.SeedSupplier(t, env.DB, "SUP001", "台北精密五金", entity.RegionDomestic)

	reqID, itemIDs := createRequisition(t, env, token, "六角螺丝", "垫片", "弹簧")

	// 草稿行不可直接审核
	w := testutil.DoRequest(env.Router, http.MethodPost,
		"/api/v1/requisitions/"+reqID+"/items/"+itemIDs[0]+"/review",
		map[string]interface{}{"status": "approved", "supplier_id": supplier.ID, "unit_price": "5"}, token)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for draft review, got %d: %s", w.Code, w.Body.String())
	}

	// 提交送审
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/requisitions/"+reqID+"/submit", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on submit, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	if resp["data"].(map[string]interface{})["status"] != entity.RequestOrderPendingReview {
		t.Fatal("expected request order pending_review after submit")
	}

	// 通过必须填报供应商与单价
	w = testutil.DoRequest(env.Router, http.MethodPost,
		"/api/v1/requisitions/"+reqID+"/items/"+itemIDs[0]+"/review",
		map[string]interface{}{"status": "approved"}, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for approval without supplier, got %d: %s", w.Code, w.Body.String())
	}

	// 行1通过
	w = testutil.DoRequest(env.Router, http.MethodPost,
		"/api/v1/requisitions/"+reqID+"/items/"+itemIDs[0]+"/review",
		map[string]interface{}{"status": "approved", "supplier_id": supplier.ID, "unit_price": "5"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on approve, got %d: %s", w.Code, w.Body.String())
	}

	// 疑问必须附原因
	w = testutil.DoRequest(env.Router, http.MethodPost,
		"/api/v1/requisitions/"+reqID+"/items/"+itemIDs[1]+"/review",
		map[string]interface{}{"status": "questioned"}, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for question without reason, got %d: %s", w.Code, w.Body.String())
	}

	// 行2疑问
	w = testutil.DoRequest(env.Router, http.MethodPost,
		"/api/v1/requisitions/"+reqID+"/items/"+itemIDs[1]+"/review",
		map[string]interface{}{"status": "questioned", "reason": "规格不明确"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on question, got %d: %s", w.Code, w.Body.String())
	}

	// 行3驳回
	w = testutil.DoRequest(env.Router, http.MethodPost,
		"/api/v1/requisitions/"+reqID+"/items/"+itemIDs[2]+"/review",
		map[string]interface{}{"status": "rejected", "reason": "非必要采购"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on reject, got %d: %s", w.Code, w.Body.String())
	}

	// 疑问行仍在途，汇总状态保持pending_review
	var ro entity.RequestOrder
	env.DB.Where("id = ?", reqID).First(&ro)
	if ro.Status != entity.RequestOrderPendingReview {
		t.Fatalf("expected pending_review with questioned item, got %s", ro.Status)
	}

	// 疑问行重新送审后驳回，汇总转为reviewed
	w = testutil.DoRequest(env.Router, http.MethodPost,
		"/api/v1/requisitions/"+reqID+"/items/"+itemIDs[1]+"/resubmit", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on resubmit, got %d: %s", w.Code, w.Body.String())
	}
	var item entity.RequestOrderItem
	env.DB.Where("id = ?", itemIDs[1]).First(&item)
	if item.Status != entity.RequestItemPendingReview {
		t.Fatalf("expected pending_review after resubmit, got %s", item.Status)
	}
	if item.ReviewReason != "" || item.ReviewedBy != nil {
		t.Error("expected review fields cleared on resubmit")
	}

	w = testutil.DoRequest(env.Router, http.MethodPost,
		"/api/v1/requisitions/"+reqID+"/items/"+itemIDs[1]+"/review",
		map[string]interface{}{"status": "rejected", "reason": "重复请购"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	env.DB.Where("id = ?", reqID).First(&ro)
	if ro.Status != entity.RequestOrderReviewed {
		t.Fatalf("expected reviewed, got %s", ro.Status)
	}

	// 已驳回行不可再审
	w = testutil.DoRequest(env.Router, http.MethodPost,
		"/api/v1/requisitions/"+reqID+"/items/"+itemIDs[2]+"/review",
		map[string]interface{}{"status": "approved", "supplier_id": supplier.ID, "unit_price": "1"}, token)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for rejected item re-review, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRequisitionItemsEditableOnlyInDraft(t *testing.T) {
	env := setupRequisitionTest(t)
	token := testutil.AdminToken()

	reqID, _ := createRequisition(t, env, token, "六角螺丝")

	// 草稿状态可替换行项
	w := testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/requisitions/"+reqID,
		map[string]interface{}{
			"items": []map[string]interface{}{
				{"item_name": "内六角螺丝", "quantity": "20"},
				{"item_name": "平垫片", "quantity": "40"},
			},
		}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	items := resp["data"].(map[string]interface{})["items"].([]interface{})
	if len(items) != 2 {
		t.Fatalf("expected 2 items after replace, got %d", len(items))
	}

	// 送审后不可替换
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/requisitions/"+reqID+"/submit", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on submit, got %d: %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/requisitions/"+reqID,
		map[string]interface{}{
			"items": []map[string]interface{}{{"item_name": "改动", "quantity": "1"}},
		}, token)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for item replace after submit, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRequisitionCancelItem(t *testing.T) {
	env := setupRequisitionTest(t)
	token := testutil.AdminToken()

	reqID, itemIDs := createRequisition(t, env, token, "六角螺丝", "垫片")

	w := testutil.DoRequest(env.Router, http.MethodPost,
		"/api/v1/requisitions/"+reqID+"/items/"+itemIDs[0]+"/cancel", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on cancel, got %d: %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(env.Router, http.MethodPost,
		"/api/v1/requisitions/"+reqID+"/items/"+itemIDs[1]+"/cancel", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on cancel, got %d: %s", w.Code, w.Body.String())
	}

	// 全部行取消后汇总为cancelled
	var ro entity.RequestOrder
	env.DB.Where("id = ?", reqID).First(&ro)
	if ro.Status != entity.RequestOrderCancelled {
		t.Fatalf("expected cancelled, got %s", ro.Status)
	}

	// 已取消行不可再取消
	w = testutil.DoRequest(env.Router, http.MethodPost,
		"/api/v1/requisitions/"+reqID+"/items/"+itemIDs[0]+"/cancel", nil, token)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 on double cancel, got %d: %s", w.Code, w.Body.String())
	}
}
