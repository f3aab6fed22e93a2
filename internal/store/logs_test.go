package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/zaloga/internal/db"
	"github.com/erazemk/zaloga/internal/model"
)

// setClock makes now return successive seconds starting at start.
func setClock(t *testing.T, start time.Time) {
	t.Helper()
	orig := now
	ts := start.UTC()
	now = func() time.Time {
		cur := ts
		ts = ts.Add(time.Second)
		return cur
	}
	t.Cleanup(func() { now = orig })
}

func logOfType(t *testing.T, entries []model.LogEntry, typ model.LogType) model.LogEntry {
	t.Helper()
	for _, e := range entries {
		if e.Type == typ {
			return e
		}
	}
	t.Fatalf("no %s entry in %v", typ, entries)
	return model.LogEntry{}
}

func TestLedgerWalkthrough(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, err := CreateItem(ctx, database, "Widget", 10, "")
	require.NoError(t, err)
	assert.Equal(t, model.Stock{Warehouse: 10}, item.Stock())

	item, err = TransferToDisplay(ctx, database, item.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, model.Stock{Warehouse: 6, Display: 4}, item.Stock())

	_, err = RecordSale(ctx, database, item.ID, 10)
	require.ErrorIs(t, err, ErrInsufficientDisplayStock)

	sale, err := RecordSale(ctx, database, item.ID, 4)
	require.NoError(t, err)
	assert.False(t, sale.Deleted)
	assert.Equal(t, model.Stock{Warehouse: 6}, sale.Item.Stock())

	entries, err := ListLogs(ctx, database, LogFilter{ItemID: item.ID})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	transfer := logOfType(t, entries, model.LogTransfer)

	// Reversing the transfer leaves display at -4, which is floored.
	rb, err := DeleteLogAndRollback(ctx, database, transfer.ID)
	require.NoError(t, err)
	assert.True(t, rb.RolledBack)
	assert.False(t, rb.ItemDeleted)
	assert.Equal(t, model.Stock{Warehouse: 10}, rb.Item.Stock())

	delta := -10
	adj, err := AdjustItem(ctx, database, item.ID, ItemAdjustment{WarehouseDelta: &delta})
	require.NoError(t, err)
	assert.True(t, adj.Deleted)

	_, err = GetItem(ctx, database, item.ID)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestRollbackRoundTrip(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item := mustCreate(t, database, "Widget", 10, "")
	before := mustGet(t, database, item.ID)

	_, err := TransferToDisplay(ctx, database, item.ID, 3)
	require.NoError(t, err)
	entries := mustLogs(t, database, LogFilter{Type: model.LogTransfer})
	require.Len(t, entries, 1)

	rb, err := DeleteLogAndRollback(ctx, database, entries[0].ID)
	require.NoError(t, err)
	assert.Equal(t, before.Stock(), rb.Item.Stock())
	assert.Equal(t, rb.Item.Stock(), projection(t, database, item.ID))

	_, err = GetLog(ctx, database, entries[0].ID)
	assert.ErrorIs(t, err, ErrLogNotFound)

	_, err = DeleteLogAndRollback(ctx, database, entries[0].ID)
	assert.ErrorIs(t, err, ErrLogNotFound)
}

func TestRollbackCascades(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item := mustCreate(t, database, "Widget", 5, "img/w.jpg")
	entries := mustLogs(t, database, LogFilter{ItemID: item.ID})
	require.Len(t, entries, 1)

	rb, err := DeleteLogAndRollback(ctx, database, entries[0].ID)
	require.NoError(t, err)
	assert.True(t, rb.ItemDeleted)
	assert.Equal(t, []string{"img/w.jpg"}, rb.StaleImages())

	_, err = GetItem(ctx, database, item.ID)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestRollbackOrphanedEntry(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item := mustCreate(t, database, "Widget", 5, "")
	_, err := DeleteItem(ctx, database, item.ID)
	require.NoError(t, err)

	entries := mustLogs(t, database, LogFilter{})
	require.Len(t, entries, 1)

	rb, err := DeleteLogAndRollback(ctx, database, entries[0].ID)
	require.NoError(t, err)
	assert.False(t, rb.RolledBack)
	assert.Nil(t, rb.Item)
	assert.Empty(t, rb.StaleImages())

	entries = mustLogs(t, database, LogFilter{})
	assert.Empty(t, entries)
}

func TestDeletedIDsAreNotReused(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	widget := mustCreate(t, database, "Widget", 10, "")
	widgetLogs := mustLogs(t, database, LogFilter{ItemID: widget.ID})
	require.Len(t, widgetLogs, 1)
	_, err := DeleteItem(ctx, database, widget.ID)
	require.NoError(t, err)

	gadget := mustCreate(t, database, "Gadget", 3, "")
	assert.NotEqual(t, widget.ID, gadget.ID)

	gadgetLogs := mustLogs(t, database, LogFilter{ItemID: gadget.ID})
	require.Len(t, gadgetLogs, 1)
	assert.Equal(t, "Gadget", gadgetLogs[0].ItemName)
	assert.NotEqual(t, widgetLogs[0].ID, gadgetLogs[0].ID)

	rb, err := DeleteLogAndRollback(ctx, database, widgetLogs[0].ID)
	require.NoError(t, err)
	assert.False(t, rb.RolledBack)
	assert.False(t, rb.ItemDeleted)

	got := mustGet(t, database, gadget.ID)
	assert.Equal(t, model.Stock{Warehouse: 3}, got.Stock())
	assert.Equal(t, got.Stock(), projection(t, database, gadget.ID))

	// A rolled-back log id is not handed out again either.
	mustTransfer(t, database, gadget.ID, 1)
	transfers := mustLogs(t, database, LogFilter{Type: model.LogTransfer})
	require.Len(t, transfers, 1)
	_, err = DeleteLogAndRollback(ctx, database, transfers[0].ID)
	require.NoError(t, err)
	mustTransfer(t, database, gadget.ID, 1)
	again := mustLogs(t, database, LogFilter{Type: model.LogTransfer})
	require.Len(t, again, 1)
	assert.Greater(t, again[0].ID, transfers[0].ID)
}

func TestListLogsFilters(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	day1 := time.Date(2024, 3, 10, 23, 59, 0, 0, time.UTC)
	setClock(t, day1)
	a := mustCreate(t, database, "A", 5, "") // 23:59:00
	_, err := TransferToDisplay(ctx, database, a.ID, 2)
	require.NoError(t, err)

	setClock(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC))
	b := mustCreate(t, database, "B", 3, "")
	_, err = RecordSale(ctx, database, a.ID, 1)
	require.NoError(t, err)

	all, err := ListLogs(ctx, database, LogFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, model.LogSale, all[0].Type, "newest first")
	assert.Equal(t, model.LogInput, all[3].Type)

	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	entries, err := ListLogs(ctx, database, LogFilter{Day: day})
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	entries, err = ListLogs(ctx, database, LogFilter{Day: day.AddDate(0, 0, 1), Type: model.LogInput})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, b.ID, entries[0].ItemID)

	// A midnight in another zone shifts the window.
	cet := time.FixedZone("CET", 3600)
	entries, err = ListLogs(ctx, database, LogFilter{Day: time.Date(2024, 3, 11, 0, 0, 0, 0, cet)})
	require.NoError(t, err)
	assert.Len(t, entries, 4)

	_, err = ListLogs(ctx, database, LogFilter{Type: "bogus"})
	assert.ErrorIs(t, err, ErrInvalidLogType)
}

func TestUpdateLogChangesQuantity(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item := mustCreate(t, database, "Widget", 10, "")
	mustTransfer(t, database, item.ID, 4)
	entries := mustLogs(t, database, LogFilter{Type: model.LogTransfer})
	require.Len(t, entries, 1)

	qty := 7
	res, err := UpdateLogAndAdjustStock(ctx, database, entries[0].ID, LogUpdate{Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, model.Stock{Warehouse: 3, Display: 7}, res.Item.Stock())
	assert.Equal(t, 7, res.Log.Quantity)
	assert.Nil(t, res.PreviousItem)
	assert.Equal(t, res.Item.Stock(), projection(t, database, item.ID))

	got, err := GetLog(ctx, database, entries[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 7, got.Quantity)
	assert.Equal(t, entries[0].CreatedAt, got.CreatedAt)
}

func TestUpdateLogChangesType(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item := mustCreate(t, database, "Widget", 10, "")
	mustTransfer(t, database, item.ID, 4)
	entries := mustLogs(t, database, LogFilter{Type: model.LogTransfer})

	typ := model.LogReduction
	res, err := UpdateLogAndAdjustStock(ctx, database, entries[0].ID, LogUpdate{Type: &typ})
	require.NoError(t, err)
	assert.Equal(t, model.Stock{Warehouse: 6, Display: 0}, res.Item.Stock())
	assert.Equal(t, model.LogReduction, res.Log.Type)
	assert.Equal(t, res.Item.Stock(), projection(t, database, item.ID))
}

func TestUpdateLogMovesToAnotherItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	a := mustCreate(t, database, "A", 5, "")
	b := mustCreate(t, database, "B", 2, "")
	mustTransfer(t, database, a.ID, 1)

	transfers := mustLogs(t, database, LogFilter{ItemID: a.ID, Type: model.LogTransfer})
	require.Len(t, transfers, 1)

	res, err := UpdateLogAndAdjustStock(ctx, database, transfers[0].ID, LogUpdate{ItemID: &b.ID})
	require.NoError(t, err)
	assert.Equal(t, b.ID, res.Log.ItemID)
	assert.Equal(t, "B", res.Log.ItemName)
	assert.Equal(t, model.Stock{Warehouse: 1, Display: 1}, res.Item.Stock())
	require.NotNil(t, res.PreviousItem)
	assert.Equal(t, model.Stock{Warehouse: 5, Display: 0}, res.PreviousItem.Stock())

	assert.Equal(t, res.Item.Stock(), projection(t, database, b.ID))
	assert.Equal(t, res.PreviousItem.Stock(), projection(t, database, a.ID))
}

func TestUpdateLogMoveCascadesPreviousItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	a := mustCreate(t, database, "A", 3, "img/a.jpg")
	b := mustCreate(t, database, "B", 1, "")
	inputs := mustLogs(t, database, LogFilter{ItemID: a.ID})
	require.Len(t, inputs, 1)

	name := "Moved"
	res, err := UpdateLogAndAdjustStock(ctx, database, inputs[0].ID, LogUpdate{ItemID: &b.ID, ItemName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Moved", res.Log.ItemName)
	assert.Equal(t, 4, res.Item.WarehouseStock)
	assert.True(t, res.PreviousItemDeleted)
	assert.Equal(t, []string{"img/a.jpg"}, res.StaleImages())

	_, err = GetItem(ctx, database, a.ID)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestUpdateLogValidation(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item := mustCreate(t, database, "Widget", 10, "")
	mustTransfer(t, database, item.ID, 4)
	mustSell(t, database, item.ID, 3)
	entries := mustLogs(t, database, LogFilter{ItemID: item.ID})
	transfer := logOfType(t, entries, model.LogTransfer)
	sale := logOfType(t, entries, model.LogSale)
	input := logOfType(t, entries, model.LogInput)

	beforeItems, beforeLogs := snapshot(t, database)

	zero := 0
	_, err := UpdateLogAndAdjustStock(ctx, database, transfer.ID, LogUpdate{Quantity: &zero})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	bad := model.LogType("gift")
	_, err = UpdateLogAndAdjustStock(ctx, database, transfer.ID, LogUpdate{Type: &bad})
	assert.ErrorIs(t, err, ErrInvalidLogType)

	_, err = UpdateLogAndAdjustStock(ctx, database, transfer.ID+100, LogUpdate{})
	assert.ErrorIs(t, err, ErrLogNotFound)

	missing := item.ID + 100
	_, err = UpdateLogAndAdjustStock(ctx, database, transfer.ID, LogUpdate{ItemID: &missing})
	assert.ErrorIs(t, err, ErrItemNotFound)

	// warehouse 6 display 1; undoing the transfer gives 10/-3 before the new effect.
	big := 11
	_, err = UpdateLogAndAdjustStock(ctx, database, transfer.ID, LogUpdate{Quantity: &big})
	assert.ErrorIs(t, err, ErrInsufficientWarehouseStock)

	_, err = UpdateLogAndAdjustStock(ctx, database, sale.ID, LogUpdate{Quantity: &big})
	assert.ErrorIs(t, err, ErrInsufficientDisplayStock)

	// Shrinking the initial input below what was already moved out.
	small := 1
	_, err = UpdateLogAndAdjustStock(ctx, database, input.ID, LogUpdate{Quantity: &small})
	assert.ErrorIs(t, err, ErrWouldGoNegative)

	// Turning the transfer into a reduction leaves display at -3. A rollback
	// would clamp here; an edit must refuse.
	red := model.LogReduction
	_, err = UpdateLogAndAdjustStock(ctx, database, transfer.ID, LogUpdate{Type: &red})
	assert.ErrorIs(t, err, ErrWouldGoNegative)

	afterItems, afterLogs := snapshot(t, database)
	assert.Equal(t, beforeItems, afterItems)
	assert.Equal(t, beforeLogs, afterLogs)
}
