package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/zaloga/internal/model"
)

// CreateItem creates an item with the given warehouse stock and no display
// stock. A positive initial stock is recorded as an input log entry in the
// same transaction.
func CreateItem(ctx context.Context, db *sql.DB, name string, warehouseStock int, image string) (*model.Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if warehouseStock < 0 {
		return nil, fmt.Errorf("%w: initial warehouse stock %d is negative", ErrInvalidQuantity, warehouseStock)
	}

	var item *model.Item
	err := withTx(ctx, db, func(tx *sql.Tx) error {
		ts := now()
		result, err := tx.ExecContext(ctx,
			`INSERT INTO items (name, image, warehouse_stock, display_stock, created_at, updated_at)
			 VALUES (?, ?, ?, 0, ?, ?)`,
			name, nullString(image), warehouseStock, ts, ts,
		)
		if err != nil {
			return storageError("creating item", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return storageError("getting item id", err)
		}

		item = &model.Item{ID: id, Name: name, Image: image, WarehouseStock: warehouseStock, CreatedAt: ts, UpdatedAt: ts}
		if warehouseStock > 0 {
			if _, err := insertLog(ctx, tx, item, model.LogInput, warehouseStock); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// GetItem returns an item by ID, or ErrItemNotFound.
func GetItem(ctx context.Context, db *sql.DB, id int64) (*model.Item, error) {
	return loadItem(ctx, db, id)
}

// SearchItems returns one page of items whose name contains search,
// case-insensitively. Page numbers start at 1.
func SearchItems(ctx context.Context, db *sql.DB, search string, page, limit int) (*model.ItemPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	pattern := "%" + escapeLike(strings.ToLower(search)) + "%"

	var total int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM items WHERE lower(name) LIKE ? ESCAPE '\'`, pattern,
	).Scan(&total)
	if err != nil {
		return nil, storageError("counting items", err)
	}

	rows, err := db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE lower(name) LIKE ? ESCAPE '\'
		 ORDER BY name, id LIMIT ? OFFSET ?`,
		pattern, limit, (page-1)*limit,
	)
	if err != nil {
		return nil, storageError("listing items", err)
	}
	defer rows.Close()

	result := &model.ItemPage{
		Items:       []model.Item{},
		CurrentPage: page,
		TotalPages:  (total + limit - 1) / limit,
		TotalItems:  total,
	}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, storageError("scanning item", err)
		}
		result.Items = append(result.Items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("listing items", err)
	}
	return result, nil
}

// TransferToDisplay moves quantity units from the warehouse to the display.
func TransferToDisplay(ctx context.Context, db *sql.DB, itemID int64, quantity int) (*model.Item, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}

	var item *model.Item
	err := withTx(ctx, db, func(tx *sql.Tx) error {
		var err error
		item, err = loadItem(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if item.WarehouseStock < quantity {
			return fmt.Errorf("%w: have %d, need %d", ErrInsufficientWarehouseStock, item.WarehouseStock, quantity)
		}

		item.SetStock(model.LogTransfer.Apply(item.Stock(), quantity))
		if err := saveStock(ctx, tx, item); err != nil {
			return err
		}
		_, err = insertLog(ctx, tx, item, model.LogTransfer, quantity)
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// SaleResult is the outcome of RecordSale.
type SaleResult struct {
	Item *model.Item
	// Deleted is set when the sale emptied both pools and the item was removed.
	Deleted bool
}

// StaleImages returns the image left unreferenced by a cascade delete.
func (r *SaleResult) StaleImages() []string {
	if r.Deleted && r.Item.Image != "" {
		return []string{r.Item.Image}
	}
	return nil
}

// RecordSale sells quantity units from the display.
func RecordSale(ctx context.Context, db *sql.DB, itemID int64, quantity int) (*SaleResult, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}

	res := &SaleResult{}
	err := withTx(ctx, db, func(tx *sql.Tx) error {
		item, err := loadItem(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if item.DisplayStock < quantity {
			return fmt.Errorf("%w: have %d, need %d", ErrInsufficientDisplayStock, item.DisplayStock, quantity)
		}

		item.SetStock(model.LogSale.Apply(item.Stock(), quantity))
		if err := saveStock(ctx, tx, item); err != nil {
			return err
		}
		if _, err := insertLog(ctx, tx, item, model.LogSale, quantity); err != nil {
			return err
		}
		res.Item = item
		res.Deleted, err = cascadeIfDepleted(ctx, tx, item)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ItemAdjustment describes an AdjustItem call. Nil fields are left unchanged.
type ItemAdjustment struct {
	Name           *string
	Image          *string
	WarehouseDelta *int
}

// AdjustResult is the outcome of AdjustItem.
type AdjustResult struct {
	Item *model.Item
	// Deleted is set when the adjustment emptied both pools.
	Deleted bool
	// StaleImages are image references no longer used by any item. The
	// caller releases them after the transaction has committed.
	StaleImages []string
}

// AdjustItem renames an item, replaces its image and/or corrects its
// warehouse stock. A non-zero delta is logged as input (positive) or
// reduction (negative).
func AdjustItem(ctx context.Context, db *sql.DB, itemID int64, adj ItemAdjustment) (*AdjustResult, error) {
	if adj.Name != nil && strings.TrimSpace(*adj.Name) == "" {
		return nil, ErrNameRequired
	}

	res := &AdjustResult{}
	err := withTx(ctx, db, func(tx *sql.Tx) error {
		item, err := loadItem(ctx, tx, itemID)
		if err != nil {
			return err
		}

		var (
			typ      model.LogType
			quantity int
		)
		if adj.WarehouseDelta != nil && *adj.WarehouseDelta != 0 {
			delta := *adj.WarehouseDelta
			typ, quantity = model.LogInput, delta
			if delta < 0 {
				typ, quantity = model.LogReduction, -delta
			}
			if typ.Apply(item.Stock(), quantity).Negative() {
				return fmt.Errorf("%w: warehouse %d%+d", ErrWouldGoNegative, item.WarehouseStock, delta)
			}
		}

		if adj.Name != nil {
			item.Name = strings.TrimSpace(*adj.Name)
		}
		if adj.Image != nil && *adj.Image != item.Image {
			if item.Image != "" {
				res.StaleImages = append(res.StaleImages, item.Image)
			}
			item.Image = *adj.Image
		}
		item.UpdatedAt = now()
		_, err = tx.ExecContext(ctx,
			`UPDATE items SET name = ?, image = ?, updated_at = ? WHERE id = ?`,
			item.Name, nullString(item.Image), item.UpdatedAt, item.ID,
		)
		if err != nil {
			return storageError("updating item", err)
		}

		res.Item = item
		if quantity == 0 {
			return nil
		}

		item.SetStock(typ.Apply(item.Stock(), quantity))
		if err := saveStock(ctx, tx, item); err != nil {
			return err
		}
		if _, err := insertLog(ctx, tx, item, typ, quantity); err != nil {
			return err
		}
		res.Deleted, err = cascadeIfDepleted(ctx, tx, item)
		return err
	})
	if err != nil {
		return nil, err
	}
	if res.Deleted && res.Item.Image != "" {
		res.StaleImages = append(res.StaleImages, res.Item.Image)
	}
	return res, nil
}

// DeleteItem removes an item and returns its image reference for release.
// The item's log entries are kept.
func DeleteItem(ctx context.Context, db *sql.DB, id int64) (string, error) {
	var image string
	err := withTx(ctx, db, func(tx *sql.Tx) error {
		item, err := loadItem(ctx, tx, id)
		if err != nil {
			return err
		}
		image = item.Image
		if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id); err != nil {
			return storageError("deleting item", err)
		}
		return nil
	})
	return image, err
}

// GetItemImage returns the image reference of an item.
func GetItemImage(ctx context.Context, db *sql.DB, id int64) (string, error) {
	item, err := loadItem(ctx, db, id)
	if err != nil {
		return "", err
	}
	return item.Image, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
