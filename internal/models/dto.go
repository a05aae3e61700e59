package models

import "encoding/json"

// ===== REQUEST DTOs =====

// CreateItemRequest alta de item; price llega como texto decimal
type CreateItemRequest struct {
	PartNumber  string `json:"part_number" validate:"required,max=64"`
	Description string `json:"description" validate:"max=512"`
	Price       string `json:"price"`
	Stock       int    `json:"stock" validate:"gte=0"`
	MinStock    int    `json:"min_stock" validate:"gte=0"`
	Category    string `json:"category" validate:"max=128"`
	ImagePath   string `json:"image_path" validate:"max=512"`
}

// UpdateItemRequest edición de metadatos; el stock se cambia por SetStockRequest
type UpdateItemRequest struct {
	PartNumber  string `json:"part_number" validate:"required,max=64"`
	Description string `json:"description" validate:"max=512"`
	Price       string `json:"price"`
	MinStock    int    `json:"min_stock" validate:"gte=0"`
	Category    string `json:"category" validate:"max=128"`
	ImagePath   string `json:"image_path" validate:"max=512"`
}

type SetStockRequest struct {
	Stock *int   `json:"stock" validate:"required,gte=0"`
	Note  string `json:"note" validate:"max=256"`
}

type StockEntryRequest struct {
	Qty  json.Number `json:"qty" validate:"required"`
	Note string      `json:"note" validate:"max=256"`
}

type AddToCartRequest struct {
	ItemID int64       `json:"item_id" validate:"required,gt=0"`
	Qty    json.Number `json:"qty" validate:"required"`
}

type CheckoutRequest struct {
	CustomerName  string `json:"customer_name" validate:"max=200"`
	CustomerPhone string `json:"customer_phone" validate:"max=64"`
	CustomerNotes string `json:"customer_notes" validate:"max=1000"`
}

func (r CheckoutRequest) Customer() Customer {
	return Customer{Name: r.CustomerName, Phone: r.CustomerPhone, Notes: r.CustomerNotes}
}

// ===== RESPONSE DTOs =====

// StockChange resultado de un ajuste o entrada
type StockChange struct {
	Item          *Item     `json:"item"`
	PreviousStock int       `json:"previous_stock"`
	NewStock      int       `json:"new_stock"`
	Movement      *Movement `json:"movement"`
}
