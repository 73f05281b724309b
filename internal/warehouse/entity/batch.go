package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// 库存异动类型
const (
	MovementIn         = "in"
	MovementOut        = "out"
	MovementTransfer   = "transfer"
	MovementAdjustment = "adjustment"
)

// InventoryBatch 入库批次：一次验收事件的数量，溯源至来源采购订单行。
// CurrentQuantity与异动流水在同一事务内维护，二者不可漂移。
type InventoryBatch struct {
	ID      string `json:"id" gorm:"primaryKey;size:32"`
	BatchNo string `json:"batch_no" gorm:"size:32;uniqueIndex;not null"`

	ItemCode string `json:"item_code" gorm:"size:50;not null;index"`
	ItemName string `json:"item_name" gorm:"size:200"`
	Unit     string `json:"unit" gorm:"size:20;default:pcs"`

	// 来源采购订单与行号
	SourcePONo   string `json:"source_po_no" gorm:"size:32;not null;index"`
	SourceLine   int    `json:"source_line" gorm:"not null"`

	OriginalQuantity decimal.Decimal `json:"original_quantity" gorm:"type:decimal(12,2);not null"`
	CurrentQuantity  decimal.Decimal `json:"current_quantity" gorm:"type:decimal(12,2);not null"`

	ReceivedBy string    `json:"received_by" gorm:"size:32"`
	ReceivedAt time.Time `json:"received_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Allocations []InventoryBatchStorage `json:"allocations,omitempty" gorm:"foreignKey:BatchID"`
}

func (InventoryBatch) TableName() string {
	return "inventory_batches"
}

// AllocatedQuantity 已分配到储位的数量合计
func (b *InventoryBatch) AllocatedQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, a := range b.Allocations {
		total = total.Add(a.Quantity)
	}
	return total
}

// UnallocatedQuantity 未分配数量 = 当前数量 − 已分配合计
func (b *InventoryBatch) UnallocatedQuantity() decimal.Decimal {
	return b.CurrentQuantity.Sub(b.AllocatedQuantity())
}

// InventoryBatchStorage 批次在各储位的分配。
// 同批次同储位唯一，重复分配累加数量而非新增行。
type InventoryBatchStorage struct {
	ID        string          `json:"id" gorm:"primaryKey;size:32"`
	BatchID   string          `json:"batch_id" gorm:"size:32;not null;index:idx_batch_storage,unique"`
	StorageID string          `json:"storage_id" gorm:"size:32;not null;index:idx_batch_storage,unique"`
	Quantity  decimal.Decimal `json:"quantity" gorm:"type:decimal(12,2);not null;default:0"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`

	Storage *Storage `json:"storage,omitempty" gorm:"foreignKey:StorageID"`
}

func (InventoryBatchStorage) TableName() string {
	return "inventory_batch_storages"
}

// InventoryMovement 库存异动流水（只增账本，库存余额的唯一来源）。
// Quantity带符号：入库为正，出库为负；调拨写一对正负流水。
type InventoryMovement struct {
	ID      string `json:"id" gorm:"primaryKey;size:32"`
	BatchID string `json:"batch_id" gorm:"size:32;index"`

	MovementType string `json:"movement_type" gorm:"size:20;not null"`

	StorageID string `json:"storage_id" gorm:"size:32;index:idx_movement_balance"`
	ItemCode  string `json:"item_code" gorm:"size:50;not null;index:idx_movement_balance"`

	// 余额聚合键的来源单号与行号
	SourceNo   string `json:"source_no" gorm:"size:32;index:idx_movement_balance"`
	SourceLine int    `json:"source_line" gorm:"index:idx_movement_balance"`

	Quantity decimal.Decimal `json:"quantity" gorm:"type:decimal(12,2);not null"`
	Reason   string          `json:"reason" gorm:"size:500"`

	OperatorID string    `json:"operator_id" gorm:"size:32"`
	CreatedAt  time.Time `json:"created_at"`
}

func (InventoryMovement) TableName() string {
	return "inventory_movements"
}
