package store

import (
	"errors"
	"fmt"
)

// Errors returned by the stock mutation functions. Validation errors are
// always detected before anything is written.
var (
	ErrInvalidQuantity            = errors.New("invalid quantity")
	ErrInvalidDelta               = errors.New("invalid stock delta")
	ErrInvalidLogType             = errors.New("invalid log type")
	ErrNameRequired               = errors.New("name required")
	ErrItemNotFound               = errors.New("item not found")
	ErrLogNotFound                = errors.New("log entry not found")
	ErrInsufficientWarehouseStock = errors.New("insufficient warehouse stock")
	ErrInsufficientDisplayStock   = errors.New("insufficient display stock")
	ErrWouldGoNegative            = errors.New("stock would go negative")
	ErrStorage                    = errors.New("storage failure")
	ErrUserNotFound               = errors.New("user not found")
)

// storageError marks err as an infrastructure failure while keeping the
// driver error reachable through errors.Is / errors.As.
func storageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
