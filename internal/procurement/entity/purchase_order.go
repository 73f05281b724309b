package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// 采购状态
const (
	POStatusPending      = "pending"
	POStatusOrderCreated = "order_created"
	POStatusOutputted    = "outputted"
	POStatusPurchased    = "purchased"
	POStatusCancelled    = "cancelled"
)

// 交货状态（国内3段）
const (
	DeliveryNotShipped = "not_shipped"
	DeliveryShipped    = "shipped"
	DeliveryDelivered  = "delivered"
)

// 交货状态（国际6段，增加清关与运输环节）
const (
	DeliveryCustomsClearing = "customs_clearing"
	DeliveryCustomsCleared  = "customs_cleared"
	DeliveryInTransit       = "in_transit"
)

// purchaseTransitions 采购状态合法迁移表。
// 取消可从任意非取消状态到达，单独在CanWithdraw处理。
var purchaseTransitions = map[string][]string{
	POStatusPending:      {POStatusOrderCreated},
	POStatusOrderCreated: {POStatusOutputted, POStatusPurchased},
	POStatusOutputted:    {POStatusPurchased},
	POStatusPurchased:    {},
	POStatusCancelled:    {},
}

// domesticDeliveryStatuses 国内供应商交货状态集合
var domesticDeliveryStatuses = []string{
	DeliveryNotShipped,
	DeliveryShipped,
	DeliveryDelivered,
}

// internationalDeliveryStatuses 国际供应商交货状态集合
var internationalDeliveryStatuses = []string{
	DeliveryNotShipped,
	DeliveryShipped,
	DeliveryCustomsClearing,
	DeliveryCustomsCleared,
	DeliveryInTransit,
	DeliveryDelivered,
}

// DeliveryStatusesForRegion 按供应商区域取交货状态集合
func DeliveryStatusesForRegion(region string) []string {
	if region == RegionInternational {
		return internationalDeliveryStatuses
	}
	return domesticDeliveryStatuses
}

// IsValidDeliveryStatus 校验目标状态是否属于该区域的合法集合
func IsValidDeliveryStatus(region, status string) bool {
	for _, s := range DeliveryStatusesForRegion(region) {
		if s == status {
			return true
		}
	}
	return false
}

// TaxRate 营业税率5%
var TaxRate = decimal.NewFromFloat(0.05)

// PurchaseOrder 采购订单
type PurchaseOrder struct {
	ID         string `json:"id" gorm:"primaryKey;size:32"`
	PONo       string `json:"po_no" gorm:"size:32;uniqueIndex;not null"`
	SupplierID string `json:"supplier_id" gorm:"size:32;not null;index"`
	ProjectID  *string `json:"project_id" gorm:"size:32;index"`

	PurchaseStatus string `json:"purchase_status" gorm:"size:20;not null;default:pending"`
	DeliveryStatus string `json:"delivery_status" gorm:"size:20;not null;default:not_shipped"`

	// 确认采购后要求后续回报交货状态
	StatusUpdateRequired bool `json:"status_update_required" gorm:"default:false"`

	// 金额：小计整数、税额一位小数、总计整数（新台币）
	Subtotal   decimal.Decimal `json:"subtotal" gorm:"type:decimal(15,0);default:0"`
	Tax        decimal.Decimal `json:"tax" gorm:"type:decimal(15,1);default:0"`
	GrandTotal decimal.Decimal `json:"grand_total" gorm:"type:decimal(15,0);default:0"`

	ExpectedDeliveryDate *time.Time `json:"expected_delivery_date"`
	ActualDeliveryDate   *time.Time `json:"actual_delivery_date"`

	// 併櫃归属，加入后不可移除
	ConsolidationID *string `json:"consolidation_id" gorm:"size:32;index"`

	Remarks        string  `json:"remarks" gorm:"type:text"`
	WithdrawReason string  `json:"withdraw_reason" gorm:"size:500"`

	// 操作记录
	CreatedBy      string     `json:"created_by" gorm:"size:32"`
	OrderCreatedBy *string    `json:"order_created_by" gorm:"size:32"`
	OrderCreatedAt *time.Time `json:"order_created_at"`
	OutputtedBy    *string    `json:"outputted_by" gorm:"size:32"`
	OutputtedAt    *time.Time `json:"outputted_at"`
	ConfirmedBy    *string    `json:"confirmed_by" gorm:"size:32"`
	ConfirmedAt    *time.Time `json:"confirmed_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	Items    []PurchaseOrderItem `json:"items,omitempty" gorm:"foreignKey:POID"`
	Supplier *Supplier           `json:"supplier,omitempty" gorm:"foreignKey:SupplierID"`
}

func (PurchaseOrder) TableName() string {
	return "purchase_orders"
}

// CanTransitPurchase 采购状态迁移是否合法（按集中迁移表）
func (po *PurchaseOrder) CanTransitPurchase(to string) bool {
	for _, s := range purchaseTransitions[po.PurchaseStatus] {
		if s == to {
			return true
		}
	}
	return false
}

// CanEdit 仅pending/order_created可编辑
func (po *PurchaseOrder) CanEdit() bool {
	return po.PurchaseStatus == POStatusPending || po.PurchaseStatus == POStatusOrderCreated
}

// CanConfirm 仅pending/order_created且至少一条行项可确认采购
func (po *PurchaseOrder) CanConfirm() bool {
	return (po.PurchaseStatus == POStatusPending || po.PurchaseStatus == POStatusOrderCreated) &&
		len(po.Items) > 0
}

// CanWithdraw 非取消状态皆可撤销，重复撤销非法
func (po *PurchaseOrder) CanWithdraw() bool {
	return po.PurchaseStatus != POStatusCancelled
}

// CanUpdateDelivery 交货状态仅在已确认采购后可变更
func (po *PurchaseOrder) CanUpdateDelivery() bool {
	return po.PurchaseStatus == POStatusPurchased
}

// CanBeConsolidated 併櫃资格：国际供应商、已出货、未加入其他併櫃
func (po *PurchaseOrder) CanBeConsolidated(supplierRegion string) bool {
	return supplierRegion == RegionInternational &&
		po.DeliveryStatus == DeliveryShipped &&
		po.ConsolidationID == nil
}

// RecalculateTotals 依行项重算小计/税额/总计。
// 小计取整，税额保留一位小数，总计四舍五入取整。
func (po *PurchaseOrder) RecalculateTotals() {
	subtotal := decimal.Zero
	for _, item := range po.Items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	po.Subtotal = subtotal.Round(0)
	po.Tax = po.Subtotal.Mul(TaxRate).Round(1)
	po.GrandTotal = po.Subtotal.Add(po.Tax).Round(0)
}

// PurchaseOrderItem 采购订单行项。
// delivery_status与remarks由订单级串接下来（非外键约束一致性）。
type PurchaseOrderItem struct {
	ID   string `json:"id" gorm:"primaryKey;size:32"`
	POID string `json:"po_id" gorm:"size:32;not null;index"`

	// 行项来源请购单行
	RequestItemID *string `json:"request_item_id" gorm:"size:32;index"`

	ItemCode      string          `json:"item_code" gorm:"size:50"`
	ItemName      string          `json:"item_name" gorm:"size:200;not null"`
	Specification string          `json:"specification" gorm:"size:500"`
	Quantity      decimal.Decimal `json:"quantity" gorm:"type:decimal(12,2);not null"`
	Unit          string          `json:"unit" gorm:"size:20;default:pcs"`
	UnitPrice     decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,2);default:0"`

	ItemStatus     string `json:"item_status" gorm:"size:20;default:pending"` // pending/purchased/cancelled
	DeliveryStatus string `json:"delivery_status" gorm:"size:20;default:not_shipped"`
	Remarks        string `json:"remarks" gorm:"type:text"`

	// 收货累计数量（验收入库时累加）
	ReceivedQuantity decimal.Decimal `json:"received_quantity" gorm:"type:decimal(12,2);default:0"`

	SortOrder int       `json:"sort_order" gorm:"default:0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (PurchaseOrderItem) TableName() string {
	return "purchase_order_items"
}

// 行项状态
const (
	POItemStatusPending   = "pending"
	POItemStatusPurchased = "purchased"
	POItemStatusCancelled = "cancelled"
)

// LineTotal 行小计 = 数量 × 单价
func (i *PurchaseOrderItem) LineTotal() decimal.Decimal {
	return i.Quantity.Mul(i.UnitPrice)
}

// RemarksHistory 备注变更审计（只增不改）
type RemarksHistory struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	POID      string    `json:"po_id" gorm:"size:32;not null;index"`
	Before    string    `json:"before" gorm:"type:text"`
	After     string    `json:"after" gorm:"type:text"`
	ChangedBy string    `json:"changed_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
}

func (RemarksHistory) TableName() string {
	return "po_remarks_history"
}
