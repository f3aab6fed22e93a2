package model

import "time"

// Item is a stocked product. Warehouse and display stock are a projection of
// the item's log entries and are only changed by the store's mutation functions.
type Item struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Image          string    `json:"image,omitempty"`
	WarehouseStock int       `json:"warehouse_stock"`
	DisplayStock   int       `json:"display_stock"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Stock returns the item's current counters.
func (i *Item) Stock() Stock {
	return Stock{Warehouse: i.WarehouseStock, Display: i.DisplayStock}
}

// SetStock overwrites the item's counters.
func (i *Item) SetStock(s Stock) {
	i.WarehouseStock = s.Warehouse
	i.DisplayStock = s.Display
}

// ItemPage is one page of an item search.
type ItemPage struct {
	Items       []Item `json:"items"`
	CurrentPage int    `json:"current_page"`
	TotalPages  int    `json:"total_pages"`
	TotalItems  int    `json:"total_items"`
}
