package entity

import "testing"

func TestLogisticsStatusIndex(t *testing.T) {
	cases := []struct {
		status string
		want   int
	}{
		{LogisticsShipped, 0},
		{LogisticsCustomsClearing, 1},
		{LogisticsCustomsCleared, 2},
		{LogisticsInTransit, 3},
		{LogisticsDelivered, 4},
		{"unknown", -1},
		{"", -1},
	}

	for _, c := range cases {
		if got := LogisticsStatusIndex(c.status); got != c.want {
			t.Errorf("LogisticsStatusIndex(%q) = %d, want %d", c.status, got, c.want)
		}
	}
}

func TestCanTransitLogistics(t *testing.T) {
	c := &ShipmentConsolidation{LogisticsStatus: LogisticsShipped}
	if !c.CanTransitLogistics(LogisticsCustomsClearing) {
		t.Error("shipped -> customs_clearing should be allowed")
	}
	// 允许跳段前进
	if !c.CanTransitLogistics(LogisticsDelivered) {
		t.Error("shipped -> delivered should be allowed")
	}

	c = &ShipmentConsolidation{LogisticsStatus: LogisticsInTransit}
	if c.CanTransitLogistics(LogisticsCustomsClearing) {
		t.Error("backward transition should be rejected")
	}
	if c.CanTransitLogistics(LogisticsInTransit) {
		t.Error("same-status transition should be rejected")
	}

	c = &ShipmentConsolidation{LogisticsStatus: LogisticsDelivered}
	if c.CanTransitLogistics(LogisticsShipped) {
		t.Error("delivered is terminal")
	}

	c = &ShipmentConsolidation{LogisticsStatus: LogisticsShipped}
	if c.CanTransitLogistics("unknown") {
		t.Error("unknown target should be rejected")
	}
}

func TestCanAddPO(t *testing.T) {
	c := &ShipmentConsolidation{LogisticsStatus: LogisticsShipped}
	if !c.CanAddPO() {
		t.Error("shipped consolidation should accept new orders")
	}

	for _, status := range []string{LogisticsCustomsClearing, LogisticsCustomsCleared, LogisticsInTransit, LogisticsDelivered} {
		c := &ShipmentConsolidation{LogisticsStatus: status}
		if c.CanAddPO() {
			t.Errorf("consolidation in %s should not accept new orders", status)
		}
	}
}
