package models

import "sort"

// CartLine línea de un carrito abierto; precio y descripción quedan fijados al agregar
type CartLine struct {
	ItemID      int64  `json:"item_id"`
	PartNumber  string `json:"part_number"`
	Description string `json:"description"`
	UnitPrice   Money  `json:"unit_price"`
	Qty         int    `json:"qty"`
}

func (l CartLine) Subtotal() (Money, error) {
	return l.UnitPrice.Mul(l.Qty)
}

// Cart carrito identificado explícitamente por ID
type Cart struct {
	ID    string     `json:"id"`
	Lines []CartLine `json:"lines"`
}

// NewCart arma el carrito ordenando las líneas por item
func NewCart(id string, lines map[int64]CartLine) *Cart {
	cart := &Cart{ID: id, Lines: make([]CartLine, 0, len(lines))}
	for _, l := range lines {
		cart.Lines = append(cart.Lines, l)
	}
	sort.Slice(cart.Lines, func(i, j int) bool {
		return cart.Lines[i].ItemID < cart.Lines[j].ItemID
	})
	return cart
}

func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Lines) == 0
}

// Total suma de subtotales; falla si algún monto sale de rango
func (c *Cart) Total() (Money, error) {
	var total Money
	for _, l := range c.Lines {
		subtotal, err := l.Subtotal()
		if err != nil {
			return 0, err
		}
		if total, err = total.Add(subtotal); err != nil {
			return 0, err
		}
	}
	return total, nil
}

func (c *Cart) Line(itemID int64) (CartLine, bool) {
	for _, l := range c.Lines {
		if l.ItemID == itemID {
			return l, true
		}
	}
	return CartLine{}, false
}

// CartView respuesta JSON del carrito con su total
type CartView struct {
	*Cart
	Total Money `json:"total"`
	Count int   `json:"count"`
}

func (c *Cart) View() (CartView, error) {
	total, err := c.Total()
	if err != nil {
		return CartView{}, err
	}
	count := 0
	for _, l := range c.Lines {
		count += l.Qty
	}
	return CartView{Cart: c, Total: total, Count: count}, nil
}
