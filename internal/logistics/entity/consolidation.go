package entity

import "time"

// 併櫃物流状态，固定5段顺序推进
const (
	LogisticsShipped         = "shipped"
	LogisticsCustomsClearing = "customs_clearing"
	LogisticsCustomsCleared  = "customs_cleared"
	LogisticsInTransit       = "in_transit"
	LogisticsDelivered       = "delivered"
)

// logisticsSequence 物流状态顺序表，只允许按序前进
var logisticsSequence = []string{
	LogisticsShipped,
	LogisticsCustomsClearing,
	LogisticsCustomsCleared,
	LogisticsInTransit,
	LogisticsDelivered,
}

// LogisticsStatusIndex 状态在序列中的位置，未知状态返回-1
func LogisticsStatusIndex(status string) int {
	for i, s := range logisticsSequence {
		if s == status {
			return i
		}
	}
	return -1
}

// ShipmentConsolidation 併櫃：共享一批船运的国际采购订单分组
type ShipmentConsolidation struct {
	ID              string `json:"id" gorm:"primaryKey;size:32"`
	ConsolidationNo string `json:"consolidation_no" gorm:"size:32;uniqueIndex;not null"`

	LogisticsStatus string `json:"logistics_status" gorm:"size:20;not null;default:shipped"`
	Carrier         string `json:"carrier" gorm:"size:100"`
	VesselNo        string `json:"vessel_no" gorm:"size:50"`
	Remarks         string `json:"remarks" gorm:"type:text"`

	ExpectedArrival *time.Time `json:"expected_arrival"`
	ActualArrival   *time.Time `json:"actual_arrival"`

	CreatedBy string    `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ShipmentConsolidation) TableName() string {
	return "shipment_consolidations"
}

// CanAddPO 仅在shipped阶段可加入采购订单
func (c *ShipmentConsolidation) CanAddPO() bool {
	return c.LogisticsStatus == LogisticsShipped
}

// CanTransitLogistics 物流状态只能沿固定序列前进一步或多步
func (c *ShipmentConsolidation) CanTransitLogistics(to string) bool {
	from := LogisticsStatusIndex(c.LogisticsStatus)
	target := LogisticsStatusIndex(to)
	if from < 0 || target < 0 {
		return false
	}
	return target > from
}
