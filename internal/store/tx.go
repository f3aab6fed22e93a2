package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/erazemk/zaloga/internal/model"
)

// now is the clock used for created_at/updated_at. Tests may replace it.
var now = func() time.Time { return time.Now().UTC() }

// withTx runs fn inside a transaction. The transaction is committed only if
// fn returns nil; any error rolls back every write fn made.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return storageError("beginning transaction", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return storageError("committing transaction", err)
	}
	return nil
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const itemColumns = `id, name, image, warehouse_stock, display_stock, created_at, updated_at`

func scanItem(row interface{ Scan(...any) error }) (*model.Item, error) {
	item := &model.Item{}
	var image sql.NullString
	if err := row.Scan(&item.ID, &item.Name, &image, &item.WarehouseStock, &item.DisplayStock,
		&item.CreatedAt, &item.UpdatedAt); err != nil {
		return nil, err
	}
	item.Image = image.String
	return item, nil
}

// loadItem reads an item inside q, returning ErrItemNotFound if it is gone.
func loadItem(ctx context.Context, q queryer, id int64) (*model.Item, error) {
	item, err := scanItem(q.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, storageError("getting item", err)
	}
	return item, nil
}

// saveStock writes the item's counters back.
func saveStock(ctx context.Context, tx *sql.Tx, item *model.Item) error {
	item.UpdatedAt = now()
	_, err := tx.ExecContext(ctx,
		`UPDATE items SET warehouse_stock = ?, display_stock = ?, updated_at = ? WHERE id = ?`,
		item.WarehouseStock, item.DisplayStock, item.UpdatedAt, item.ID,
	)
	if err != nil {
		return storageError("updating stock", err)
	}
	return nil
}

// insertLog appends a log entry for item.
func insertLog(ctx context.Context, tx *sql.Tx, item *model.Item, typ model.LogType, quantity int) (*model.LogEntry, error) {
	entry := &model.LogEntry{
		ItemID:    item.ID,
		ItemName:  item.Name,
		Type:      typ,
		Quantity:  quantity,
		CreatedAt: now(),
	}
	result, err := tx.ExecContext(ctx,
		`INSERT INTO stock_logs (item_id, item_name, type, quantity, created_at) VALUES (?, ?, ?, ?, ?)`,
		entry.ItemID, entry.ItemName, string(entry.Type), entry.Quantity, entry.CreatedAt,
	)
	if err != nil {
		return nil, storageError("recording log entry", err)
	}
	entry.ID, err = result.LastInsertId()
	if err != nil {
		return nil, storageError("getting log entry id", err)
	}
	return entry, nil
}

// cascadeIfDepleted deletes item when both of its counters are at or below
// zero. It is the single post-condition run by every operation that can
// lower stock, and reports whether the item was removed.
func cascadeIfDepleted(ctx context.Context, tx *sql.Tx, item *model.Item) (bool, error) {
	if !item.Stock().Depleted() {
		return false, nil
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, item.ID); err != nil {
		return false, storageError("deleting depleted item", err)
	}
	return true, nil
}
