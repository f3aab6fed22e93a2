package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erazemk/zaloga/internal/model"
)

const logColumns = `id, item_id, item_name, type, quantity, created_at`

func scanLog(row interface{ Scan(...any) error }) (*model.LogEntry, error) {
	entry := &model.LogEntry{}
	var typ string
	if err := row.Scan(&entry.ID, &entry.ItemID, &entry.ItemName, &typ, &entry.Quantity, &entry.CreatedAt); err != nil {
		return nil, err
	}
	entry.Type = model.LogType(typ)
	return entry, nil
}

func loadLog(ctx context.Context, q queryer, id int64) (*model.LogEntry, error) {
	entry, err := scanLog(q.QueryRowContext(ctx,
		`SELECT `+logColumns+` FROM stock_logs WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLogNotFound
	}
	if err != nil {
		return nil, storageError("getting log entry", err)
	}
	return entry, nil
}

// GetLog returns a log entry by ID, or ErrLogNotFound.
func GetLog(ctx context.Context, db *sql.DB, id int64) (*model.LogEntry, error) {
	return loadLog(ctx, db, id)
}

// LogFilter narrows ListLogs. Zero values disable a filter.
type LogFilter struct {
	// Day selects entries created in [Day, Day+24h). It should be a midnight
	// in the caller's time zone.
	Day    time.Time
	Type   model.LogType
	ItemID int64
}

// DayWindow returns the half-open range covered by f.Day.
func (f LogFilter) DayWindow() (from, to time.Time) {
	from = f.Day.UTC()
	return from, f.Day.AddDate(0, 0, 1).UTC()
}

// ListLogs returns log entries, newest first.
func ListLogs(ctx context.Context, db *sql.DB, f LogFilter) ([]model.LogEntry, error) {
	var (
		where []string
		args  []any
	)
	if !f.Day.IsZero() {
		from, to := f.DayWindow()
		where = append(where, `created_at >= ? AND created_at < ?`)
		args = append(args, from, to)
	}
	if f.Type != "" {
		if !f.Type.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidLogType, f.Type)
		}
		where = append(where, `type = ?`)
		args = append(args, string(f.Type))
	}
	if f.ItemID > 0 {
		where = append(where, `item_id = ?`)
		args = append(args, f.ItemID)
	}

	query := `SELECT ` + logColumns + ` FROM stock_logs`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageError("listing log entries", err)
	}
	defer rows.Close()

	var entries []model.LogEntry
	for rows.Next() {
		entry, err := scanLog(rows)
		if err != nil {
			return nil, storageError("scanning log entry", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("listing log entries", err)
	}
	return entries, nil
}

// RollbackResult is the outcome of DeleteLogAndRollback.
type RollbackResult struct {
	Log *model.LogEntry
	// RolledBack is false when the entry's item no longer existed and the
	// entry was removed without touching any stock.
	RolledBack bool
	// Item is the item after the rollback, nil for orphaned entries.
	Item *model.Item
	// ItemDeleted is set when the rollback emptied the item and it was removed.
	ItemDeleted bool
}

// StaleImages returns the image left unreferenced by a cascade delete.
func (r *RollbackResult) StaleImages() []string {
	if r.ItemDeleted && r.Item.Image != "" {
		return []string{r.Item.Image}
	}
	return nil
}

// DeleteLogAndRollback removes a log entry and undoes its stock effect.
//
// Counters are floored at zero after the reversal. This is the only path
// that clamps instead of rejecting.
func DeleteLogAndRollback(ctx context.Context, db *sql.DB, logID int64) (*RollbackResult, error) {
	res := &RollbackResult{}
	err := withTx(ctx, db, func(tx *sql.Tx) error {
		entry, err := loadLog(ctx, tx, logID)
		if err != nil {
			return err
		}
		res.Log = entry

		item, err := loadItem(ctx, tx, entry.ItemID)
		if err != nil && !errors.Is(err, ErrItemNotFound) {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM stock_logs WHERE id = ?`, entry.ID); err != nil {
			return storageError("deleting log entry", err)
		}
		if item == nil {
			return nil
		}

		item.SetStock(entry.Type.Reverse(item.Stock(), entry.Quantity).Clamp())
		if err := saveStock(ctx, tx, item); err != nil {
			return err
		}
		res.RolledBack = true
		res.Item = item
		res.ItemDeleted, err = cascadeIfDepleted(ctx, tx, item)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// LogUpdate describes an UpdateLogAndAdjustStock call. Nil fields keep the
// entry's current value.
type LogUpdate struct {
	ItemID   *int64
	ItemName *string
	Type     *model.LogType
	Quantity *int
}

// EditResult is the outcome of UpdateLogAndAdjustStock.
type EditResult struct {
	Log *model.LogEntry
	// Item is the item the entry now refers to, after the new effect.
	Item        *model.Item
	ItemDeleted bool
	// PreviousItem is set when the entry was moved to a different item and
	// the old item still existed.
	PreviousItem        *model.Item
	PreviousItemDeleted bool
}

// StaleImages returns the images left unreferenced by cascade deletes.
func (r *EditResult) StaleImages() []string {
	var images []string
	if r.ItemDeleted && r.Item.Image != "" {
		images = append(images, r.Item.Image)
	}
	if r.PreviousItemDeleted && r.PreviousItem.Image != "" {
		images = append(images, r.PreviousItem.Image)
	}
	return images
}

// UpdateLogAndAdjustStock rewrites a log entry and re-derives stock: the old
// effect is reversed on the old item, the new effect is validated against
// and applied to the target item, then the entry is overwritten.
//
// Unlike DeleteLogAndRollback the reversal is not clamped; a result that
// would leave any counter negative is rejected instead.
func UpdateLogAndAdjustStock(ctx context.Context, db *sql.DB, logID int64, upd LogUpdate) (*EditResult, error) {
	if upd.Type != nil && !upd.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLogType, *upd.Type)
	}
	if upd.Quantity != nil && *upd.Quantity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidQuantity, *upd.Quantity)
	}

	res := &EditResult{}
	err := withTx(ctx, db, func(tx *sql.Tx) error {
		entry, err := loadLog(ctx, tx, logID)
		if err != nil {
			return err
		}

		targetID := entry.ItemID
		if upd.ItemID != nil {
			targetID = *upd.ItemID
		}
		target, err := loadItem(ctx, tx, targetID)
		if err != nil {
			return err
		}

		// Phase 1: reverse the old effect on the item it was recorded against.
		var previous *model.Item
		if targetID == entry.ItemID {
			target.SetStock(entry.Type.Reverse(target.Stock(), entry.Quantity))
		} else {
			previous, err = loadItem(ctx, tx, entry.ItemID)
			if err != nil && !errors.Is(err, ErrItemNotFound) {
				return err
			}
			if previous != nil {
				previous.SetStock(entry.Type.Reverse(previous.Stock(), entry.Quantity))
				if previous.Stock().Negative() {
					return fmt.Errorf("%w: removing entry from item %d leaves warehouse %d, display %d",
						ErrWouldGoNegative, previous.ID, previous.WarehouseStock, previous.DisplayStock)
				}
			}
		}

		newType, newQty := entry.Type, entry.Quantity
		if upd.Type != nil {
			newType = *upd.Type
		}
		if upd.Quantity != nil {
			newQty = *upd.Quantity
		}

		// Phase 2: validate the new effect against the reversed state.
		switch newType {
		case model.LogTransfer:
			if target.WarehouseStock < newQty {
				return fmt.Errorf("%w: have %d, need %d", ErrInsufficientWarehouseStock, target.WarehouseStock, newQty)
			}
		case model.LogSale:
			if target.DisplayStock < newQty {
				return fmt.Errorf("%w: have %d, need %d", ErrInsufficientDisplayStock, target.DisplayStock, newQty)
			}
		}
		next := newType.Apply(target.Stock(), newQty)
		if next.Negative() {
			return fmt.Errorf("%w: warehouse %d, display %d", ErrWouldGoNegative, next.Warehouse, next.Display)
		}

		// Phase 3: apply.
		target.SetStock(next)
		if err := saveStock(ctx, tx, target); err != nil {
			return err
		}
		if previous != nil {
			if err := saveStock(ctx, tx, previous); err != nil {
				return err
			}
		}

		// Phase 4: overwrite the entry.
		switch {
		case upd.ItemName != nil && strings.TrimSpace(*upd.ItemName) != "":
			entry.ItemName = strings.TrimSpace(*upd.ItemName)
		case targetID != entry.ItemID:
			entry.ItemName = target.Name
		}
		entry.ItemID = target.ID
		entry.Type = newType
		entry.Quantity = newQty
		_, err = tx.ExecContext(ctx,
			`UPDATE stock_logs SET item_id = ?, item_name = ?, type = ?, quantity = ? WHERE id = ?`,
			entry.ItemID, entry.ItemName, string(entry.Type), entry.Quantity, entry.ID,
		)
		if err != nil {
			return storageError("updating log entry", err)
		}

		res.Log = entry
		res.Item = target
		res.ItemDeleted, err = cascadeIfDepleted(ctx, tx, target)
		if err != nil {
			return err
		}
		if previous != nil {
			res.PreviousItem = previous
			res.PreviousItemDeleted, err = cascadeIfDepleted(ctx, tx, previous)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
