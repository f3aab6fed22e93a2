package model

// Stock holds the two counters of an item.
type Stock struct {
	Warehouse int `json:"warehouse"`
	Display   int `json:"display"`
}

// Clamp floors both counters at zero.
func (s Stock) Clamp() Stock {
	return Stock{Warehouse: max(s.Warehouse, 0), Display: max(s.Display, 0)}
}

// Negative reports whether either counter is below zero.
func (s Stock) Negative() bool {
	return s.Warehouse < 0 || s.Display < 0
}

// Depleted reports whether both counters are at or below zero. Depleted items
// are removed after any operation that lowers stock.
func (s Stock) Depleted() bool {
	return s.Warehouse <= 0 && s.Display <= 0
}
