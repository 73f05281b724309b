package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// 请购单行状态，逐行独立审核
const (
	RequestItemDraft         = "draft"
	RequestItemPendingReview = "pending_review"
	RequestItemApproved      = "approved"
	RequestItemQuestioned    = "questioned"
	RequestItemRejected      = "rejected"
	RequestItemOrderCreated  = "order_created"
	RequestItemPurchased     = "purchased"
	RequestItemCancelled     = "cancelled"
)

// 请购单汇总状态（由行状态扫描得出）
const (
	RequestOrderDraft         = "draft"
	RequestOrderPendingReview = "pending_review"
	RequestOrderReviewed      = "reviewed"
	RequestOrderCompleted     = "completed"
	RequestOrderCancelled     = "cancelled"
)

// requestItemReviewTransitions 行状态合法迁移表
var requestItemReviewTransitions = map[string][]string{
	RequestItemDraft:         {RequestItemPendingReview, RequestItemCancelled},
	RequestItemPendingReview: {RequestItemApproved, RequestItemQuestioned, RequestItemRejected},
	RequestItemQuestioned:    {RequestItemPendingReview, RequestItemRejected, RequestItemCancelled},
	RequestItemApproved:      {RequestItemOrderCreated},
	RequestItemOrderCreated:  {RequestItemPurchased},
	RequestItemRejected:      {},
	RequestItemPurchased:     {},
	RequestItemCancelled:     {},
}

// RequestOrder 请购单
type RequestOrder struct {
	ID          string  `json:"id" gorm:"primaryKey;size:32"`
	RequestNo   string  `json:"request_no" gorm:"size:32;uniqueIndex;not null"`
	RequesterID string  `json:"requester_id" gorm:"size:32;not null;index"`
	ProjectID   *string `json:"project_id" gorm:"size:32;index"`
	Usage       string  `json:"usage" gorm:"size:200"`
	Status      string  `json:"status" gorm:"size:20;not null;default:draft"`
	Notes       string  `json:"notes" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Items []RequestOrderItem `json:"items,omitempty" gorm:"foreignKey:RequestOrderID"`
}

func (RequestOrder) TableName() string {
	return "request_orders"
}

// RecomputeStatus 扫描全部行重算汇总状态。
// 任一行待审则pending_review；全部行到达采购完成/取消/驳回则completed；
// 全部行draft则draft；其余为reviewed。
func (r *RequestOrder) RecomputeStatus() {
	if len(r.Items) == 0 {
		r.Status = RequestOrderDraft
		return
	}

	allDraft := true
	allTerminal := true
	allCancelled := true
	anyPending := false

	for _, item := range r.Items {
		if item.Status != RequestItemDraft {
			allDraft = false
		}
		if item.Status == RequestItemPendingReview || item.Status == RequestItemQuestioned {
			anyPending = true
		}
		switch item.Status {
		case RequestItemPurchased, RequestItemRejected, RequestItemCancelled:
		default:
			allTerminal = false
		}
		if item.Status != RequestItemCancelled {
			allCancelled = false
		}
	}

	switch {
	case allCancelled:
		r.Status = RequestOrderCancelled
	case allDraft:
		r.Status = RequestOrderDraft
	case anyPending:
		r.Status = RequestOrderPendingReview
	case allTerminal:
		r.Status = RequestOrderCompleted
	default:
		r.Status = RequestOrderReviewed
	}
}

// RequestOrderItem 请购单行项
type RequestOrderItem struct {
	ID             string `json:"id" gorm:"primaryKey;size:32"`
	RequestOrderID string `json:"request_order_id" gorm:"size:32;not null;index"`

	ItemCode      string          `json:"item_code" gorm:"size:50"`
	ItemName      string          `json:"item_name" gorm:"size:200;not null"`
	Specification string          `json:"specification" gorm:"size:500"`
	Quantity      decimal.Decimal `json:"quantity" gorm:"type:decimal(12,2);not null"`
	Unit          string          `json:"unit" gorm:"size:20;default:pcs"`

	// 采购填报的供应商与单价（审核通过后待开单）
	SupplierID *string          `json:"supplier_id" gorm:"size:32;index"`
	UnitPrice  *decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,2)"`

	Status       string  `json:"status" gorm:"size:20;not null;default:draft"`
	ReviewReason string  `json:"review_reason" gorm:"size:500"` // 疑问/驳回原因
	ReviewedBy   *string `json:"reviewed_by" gorm:"size:32"`
	ReviewedAt   *time.Time `json:"reviewed_at"`

	// 开单后回写的采购订单号
	PONo *string `json:"po_no" gorm:"size:32;index"`

	SortOrder int       `json:"sort_order" gorm:"default:0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (RequestOrderItem) TableName() string {
	return "request_order_items"
}

// CanTransit 行状态迁移是否合法
func (i *RequestOrderItem) CanTransit(to string) bool {
	for _, s := range requestItemReviewTransitions[i.Status] {
		if s == to {
			return true
		}
	}
	return false
}
