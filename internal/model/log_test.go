package model

import "testing"

func TestLogTypeValid(t *testing.T) {
	for _, lt := range LogTypes {
		if !lt.Valid() {
			t.Errorf("%q should be valid", lt)
		}
	}
	for _, lt := range []LogType{"", "mutasi", "INPUT", "adjust"} {
		if lt.Valid() {
			t.Errorf("%q should not be valid", lt)
		}
	}
}

func TestLogTypeApply(t *testing.T) {
	start := Stock{Warehouse: 10, Display: 5}
	tests := []struct {
		typ  LogType
		want Stock
	}{
		{LogInput, Stock{Warehouse: 13, Display: 5}},
		{LogTransfer, Stock{Warehouse: 7, Display: 8}},
		{LogSale, Stock{Warehouse: 10, Display: 2}},
		{LogReduction, Stock{Warehouse: 7, Display: 5}},
	}

	for _, tt := range tests {
		got := tt.typ.Apply(start, 3)
		if got != tt.want {
			t.Errorf("%s.Apply(%v, 3) = %v, want %v", tt.typ, start, got, tt.want)
		}
	}
}

func TestLogTypeReverseIsInverse(t *testing.T) {
	states := []Stock{
		{Warehouse: 0, Display: 0},
		{Warehouse: 10, Display: 4},
		{Warehouse: 1, Display: 100},
	}
	for _, lt := range LogTypes {
		for _, s := range states {
			for _, q := range []int{1, 4, 25} {
				if got := lt.Reverse(lt.Apply(s, q), q); got != s {
					t.Errorf("%s: Reverse(Apply(%v, %d)) = %v", lt, s, q, got)
				}
				if got := lt.Apply(lt.Reverse(s, q), q); got != s {
					t.Errorf("%s: Apply(Reverse(%v, %d)) = %v", lt, s, q, got)
				}
			}
		}
	}
}

func TestStockClampAndDepleted(t *testing.T) {
	s := Stock{Warehouse: 10, Display: -4}
	if !s.Negative() {
		t.Error("expected negative stock")
	}
	c := s.Clamp()
	if c != (Stock{Warehouse: 10, Display: 0}) {
		t.Errorf("Clamp() = %v", c)
	}
	if c.Depleted() {
		t.Error("stock with warehouse 10 is not depleted")
	}
	if !(Stock{Warehouse: 0, Display: -1}).Depleted() {
		t.Error("expected depleted stock")
	}
}
