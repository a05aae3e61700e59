package models

import (
	"strings"
	"time"
)

// Item representa una pieza del inventario
type Item struct {
	ID          int64     `json:"id" db:"id"`
	PartNumber  string    `json:"part_number" db:"part_number"`
	Description string    `json:"description" db:"description"`
	Price       *Money    `json:"price" db:"price_cents"`
	ImagePath   string    `json:"image_path" db:"image_path"`
	Stock       int       `json:"stock" db:"stock"`
	MinStock    int       `json:"min_stock" db:"min_stock"`
	Category    string    `json:"category" db:"category"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// UnitPrice precio vigente, 0 si no tiene
func (i *Item) UnitPrice() Money {
	if i.Price == nil {
		return 0
	}
	return *i.Price
}

// UncategorizedLabel agrupa los items sin categoría
const UncategorizedLabel = "Uncategorized"

// ItemFilter filtros del listado de items
type ItemFilter struct {
	Query    string `form:"q"`
	Category string `form:"category"`
	Limit    int    `form:"limit"`
	Offset   int    `form:"offset"`
}

// NormalizePartNumber recorta espacios; la unicidad se compara sin mayúsculas
func NormalizePartNumber(part string) string {
	return strings.TrimSpace(part)
}

// LowStockPolicy decide qué items aparecen en el reporte de stock bajo
type LowStockPolicy string

const (
	// LowStockIncludeOutOfStock: stock <= mínimo, o stock nulo/cero aunque el mínimo sea 0
	LowStockIncludeOutOfStock LowStockPolicy = "include_out_of_stock"
	// LowStockThresholdOnly: solo items con mínimo > 0 y stock <= mínimo
	LowStockThresholdOnly LowStockPolicy = "threshold_only"
)

func ParseLowStockPolicy(s string) (LowStockPolicy, bool) {
	switch LowStockPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case LowStockIncludeOutOfStock, "":
		return LowStockIncludeOutOfStock, true
	case LowStockThresholdOnly:
		return LowStockThresholdOnly, true
	default:
		return LowStockIncludeOutOfStock, false
	}
}

// IsLow aplica la política a un item ya cargado
func (p LowStockPolicy) IsLow(item *Item) bool {
	if p == LowStockThresholdOnly {
		return item.MinStock > 0 && item.Stock <= item.MinStock
	}
	return item.Stock <= item.MinStock || item.Stock == 0
}
