package models

import "time"

type MovementReason string

const (
	ReasonInitial    MovementReason = "initial"
	ReasonSale       MovementReason = "sale"
	ReasonAdjustment MovementReason = "adjustment"
	ReasonEntry      MovementReason = "entry"
)

// Movement registro append-only de un cambio de stock
type Movement struct {
	ID         int64          `json:"id" db:"id"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
	ItemID     *int64         `json:"item_id" db:"item_id"`
	PartNumber string         `json:"part_number" db:"part_number"`
	Delta      int            `json:"qty_change" db:"qty_change"`
	Reason     MovementReason `json:"reason" db:"reason"`
	SaleID     *int64         `json:"sale_id,omitempty" db:"sale_id"`
	Username   string         `json:"username" db:"username"`
	Note       string         `json:"note,omitempty" db:"note"`
}

// MovementFilter filtros para consultas de movimientos; To es exclusivo
type MovementFilter struct {
	From       *time.Time
	To         *time.Time
	PartNumber *string
	ItemID     *int64
	Reason     *MovementReason
	Limit      int
	Offset     int
}

// ReconcileRow item cuyo stock no coincide con la suma de sus movimientos
type ReconcileRow struct {
	ItemID      int64  `json:"item_id"`
	PartNumber  string `json:"part_number"`
	Stock       int    `json:"stock"`
	MovementSum int    `json:"movement_sum"`
}
