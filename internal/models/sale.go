package models

import (
	"fmt"
	"time"
)

// SaleState estados del cierre de una venta
type SaleState string

const (
	SaleOpen       SaleState = "open"
	SaleValidating SaleState = "validating"
	SaleCommitted  SaleState = "committed"
	SaleRejected   SaleState = "rejected"
)

type Customer struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Notes string `json:"notes"`
}

// Sale venta (cotización exportada); inmutable salvo la ruta del documento
type Sale struct {
	ID           int64      `json:"id" db:"id"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	Username     string     `json:"username" db:"username"`
	Customer     Customer   `json:"customer"`
	Total        Money      `json:"total" db:"total_cents"`
	DocumentPath string     `json:"document_path,omitempty" db:"document_path"`
	Lines        []SaleLine `json:"lines,omitempty"`
}

// SaleLine el subtotal siempre es qty * precio de la propia línea
type SaleLine struct {
	ID          int64  `json:"id" db:"id"`
	SaleID      int64  `json:"sale_id" db:"sale_id"`
	PartNumber  string `json:"part_number" db:"part_number"`
	Description string `json:"description" db:"description"`
	Qty         int    `json:"qty" db:"qty"`
	UnitPrice   Money  `json:"unit_price" db:"price_cents"`
	Subtotal    Money  `json:"subtotal" db:"subtotal_cents"`
}

func NewSaleLine(partNumber, description string, qty int, unitPrice Money) (SaleLine, error) {
	subtotal, err := unitPrice.Mul(qty)
	if err != nil {
		return SaleLine{}, fmt.Errorf("line %s: %w", partNumber, err)
	}
	return SaleLine{
		PartNumber:  partNumber,
		Description: description,
		Qty:         qty,
		UnitPrice:   unitPrice,
		Subtotal:    subtotal,
	}, nil
}

// LinesTotal suma de subtotales
func (s *Sale) LinesTotal() (Money, error) {
	subtotals := make([]Money, 0, len(s.Lines))
	for _, l := range s.Lines {
		subtotals = append(subtotals, l.Subtotal)
	}
	return SumMoney(subtotals...)
}

// SaleFilter filtros del historial; To es exclusivo
type SaleFilter struct {
	From       *time.Time
	To         *time.Time
	PartNumber *string
	Limit      int
	Offset     int
}

// CheckoutResult resultado de un checkout; RenderErr no invalida la venta
type CheckoutResult struct {
	Sale      *Sale     `json:"sale"`
	State     SaleState `json:"state"`
	RenderErr error     `json:"-"`
}

// TopSellingRow fila del reporte de más vendidos
type TopSellingRow struct {
	PartNumber  string `json:"part_number"`
	Description string `json:"description"`
	Qty         int    `json:"qty"`
	Sales       Money  `json:"sales"`
}
