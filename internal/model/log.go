package model

import "time"

// LogType is the kind of stock movement a log entry records. The type alone
// decides which counters move and in which direction; quantities are always
// positive.
type LogType string

// Log types.
const (
	LogInput     LogType = "input"
	LogTransfer  LogType = "transfer"
	LogSale      LogType = "sale"
	LogReduction LogType = "reduction"
)

// LogTypes lists every valid log type.
var LogTypes = []LogType{LogInput, LogTransfer, LogSale, LogReduction}

// Valid reports whether t is a known log type.
func (t LogType) Valid() bool {
	switch t {
	case LogInput, LogTransfer, LogSale, LogReduction:
		return true
	}
	return false
}

// Apply returns s with the movement of quantity q applied.
func (t LogType) Apply(s Stock, q int) Stock {
	switch t {
	case LogInput:
		s.Warehouse += q
	case LogTransfer:
		s.Warehouse -= q
		s.Display += q
	case LogSale:
		s.Display -= q
	case LogReduction:
		s.Warehouse -= q
	}
	return s
}

// Reverse returns s with the movement of quantity q undone.
// For every valid type, t.Reverse(t.Apply(s, q), q) == s.
func (t LogType) Reverse(s Stock, q int) Stock {
	switch t {
	case LogInput:
		s.Warehouse -= q
	case LogTransfer:
		s.Warehouse += q
		s.Display -= q
	case LogSale:
		s.Display += q
	case LogReduction:
		s.Warehouse += q
	}
	return s
}

// LogEntry records one stock movement. ItemID is a weak reference: the item
// may be deleted while the entry is kept, in which case ItemName is the only
// record of what it referred to.
type LogEntry struct {
	ID        int64     `json:"id"`
	ItemID    int64     `json:"item_id"`
	ItemName  string    `json:"item_name"`
	Type      LogType   `json:"type"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
}
