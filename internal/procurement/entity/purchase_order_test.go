package entity

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestCanTransitPurchase(t *testing.T) {
	cases := []struct {
		from string
		to   string
		want bool
	}{
		{POStatusPending, POStatusOrderCreated, true},
		{POStatusPending, POStatusPurchased, false},
		{POStatusPending, POStatusOutputted, false},
		{POStatusOrderCreated, POStatusOutputted, true},
		{POStatusOrderCreated, POStatusPurchased, true},
		{POStatusOutputted, POStatusPurchased, true},
		{POStatusOutputted, POStatusOrderCreated, false},
		{POStatusPurchased, POStatusOrderCreated, false},
		{POStatusPurchased, POStatusOutputted, false},
		{POStatusCancelled, POStatusOrderCreated, false},
	}

	for _, c := range cases {
		po := &PurchaseOrder{PurchaseStatus: c.from}
		if got := po.CanTransitPurchase(c.to); got != c.want {
			t.Errorf("CanTransitPurchase(%s -> %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestCanConfirm(t *testing.T) {
	item := PurchaseOrderItem{ItemName: "螺丝", Quantity: decimal.NewFromInt(10)}

	po := &PurchaseOrder{PurchaseStatus: POStatusPending, Items: []PurchaseOrderItem{item}}
	if !po.CanConfirm() {
		t.Error("pending order with items should be confirmable")
	}

	po = &PurchaseOrder{PurchaseStatus: POStatusOrderCreated, Items: []PurchaseOrderItem{item}}
	if !po.CanConfirm() {
		t.Error("order_created order with items should be confirmable")
	}

	po = &PurchaseOrder{PurchaseStatus: POStatusPending}
	if po.CanConfirm() {
		t.Error("order without items should not be confirmable")
	}

	po = &PurchaseOrder{PurchaseStatus: POStatusPurchased, Items: []PurchaseOrderItem{item}}
	if po.CanConfirm() {
		t.Error("purchased order should not be confirmable again")
	}
}

func TestCanWithdraw(t *testing.T) {
	for _, status := range []string{POStatusPending, POStatusOrderCreated, POStatusOutputted, POStatusPurchased} {
		po := &PurchaseOrder{PurchaseStatus: status}
		if !po.CanWithdraw() {
			t.Errorf("order in %s should be withdrawable", status)
		}
	}

	po := &PurchaseOrder{PurchaseStatus: POStatusCancelled}
	if po.CanWithdraw() {
		t.Error("cancelled order should not be withdrawable again")
	}
}

func TestDeliveryStatusesForRegion(t *testing.T) {
	domestic := DeliveryStatusesForRegion(RegionDomestic)
	if len(domestic) != 3 {
		t.Fatalf("expected 3 domestic delivery statuses, got %d", len(domestic))
	}
	international := DeliveryStatusesForRegion(RegionInternational)
	if len(international) != 6 {
		t.Fatalf("expected 6 international delivery statuses, got %d", len(international))
	}

	if IsValidDeliveryStatus(RegionDomestic, DeliveryCustomsClearing) {
		t.Error("customs_clearing should not be valid for domestic suppliers")
	}
	if !IsValidDeliveryStatus(RegionInternational, DeliveryCustomsClearing) {
		t.Error("customs_clearing should be valid for international suppliers")
	}
	if !IsValidDeliveryStatus(RegionDomestic, DeliveryDelivered) {
		t.Error("delivered should be valid for domestic suppliers")
	}
	if IsValidDeliveryStatus(RegionDomestic, "unknown") {
		t.Error("unknown status should not be valid")
	}
}

func TestCanBeConsolidated(t *testing.T) {
	consolidationID := "cons-001"

	po := &PurchaseOrder{DeliveryStatus: DeliveryShipped}
	if !po.CanBeConsolidated(RegionInternational) {
		t.Error("shipped international order without consolidation should be eligible")
	}
	if po.CanBeConsolidated(RegionDomestic) {
		t.Error("domestic order should not be eligible")
	}

	po = &PurchaseOrder{DeliveryStatus: DeliveryNotShipped}
	if po.CanBeConsolidated(RegionInternational) {
		t.Error("not yet shipped order should not be eligible")
	}

	po = &PurchaseOrder{DeliveryStatus: DeliveryShipped, ConsolidationID: &consolidationID}
	if po.CanBeConsolidated(RegionInternational) {
		t.Error("order already in a consolidation should not be eligible")
	}
}

func TestRecalculateTotals(t *testing.T) {
	po := &PurchaseOrder{
		Items: []PurchaseOrderItem{
			{Quantity: decimal.NewFromInt(10), UnitPrice: decimal.NewFromFloat(15.5)},
			{Quantity: decimal.NewFromInt(3), UnitPrice: decimal.NewFromFloat(33.33)},
		},
	}
	po.RecalculateTotals()

	// 155 + 99.99 = 254.99 -> 小计取整255，税额255*0.05=12.75 -> 12.8，总计267.8 -> 268
	if !po.Subtotal.Equal(decimal.NewFromInt(255)) {
		t.Errorf("expected subtotal 255, got %s", po.Subtotal)
	}
	if !po.Tax.Equal(decimal.NewFromFloat(12.8)) {
		t.Errorf("expected tax 12.8, got %s", po.Tax)
	}
	if !po.GrandTotal.Equal(decimal.NewFromInt(268)) {
		t.Errorf("expected grand total 268, got %s", po.GrandTotal)
	}
}

func TestRecalculateTotalsEmpty(t *testing.T) {
	po := &PurchaseOrder{}
	po.RecalculateTotals()
	if !po.Subtotal.IsZero() || !po.Tax.IsZero() || !po.GrandTotal.IsZero() {
		t.Errorf("expected zero totals, got %s/%s/%s", po.Subtotal, po.Tax, po.GrandTotal)
	}
}
