package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/erazemk/zaloga/internal/inventory"
	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/store"
)

// LogsHandler handles stock log endpoints.
type LogsHandler struct {
	Inventory *inventory.Service
}

type updateLogRequest struct {
	ItemID   *int64          `json:"item_id"`
	ItemName *string         `json:"item_name"`
	Type     *model.LogType  `json:"type"`
	Quantity json.RawMessage `json:"quantity"`
}

type rollbackResponse struct {
	Log         *model.LogEntry `json:"log"`
	RolledBack  bool            `json:"rolled_back"`
	Item        *model.Item     `json:"item,omitempty"`
	ItemDeleted bool            `json:"item_deleted"`
}

type editResponse struct {
	Log                 *model.LogEntry `json:"log"`
	Item                *model.Item     `json:"item"`
	ItemDeleted         bool            `json:"item_deleted"`
	PreviousItem        *model.Item     `json:"previous_item,omitempty"`
	PreviousItemDeleted bool            `json:"previous_item_deleted"`
}

// List handles GET /api/logs?date=YYYY-MM-DD&type=.
func (h *LogsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	entries, err := h.Inventory.ListLogs(r.Context(), q.Get("date"), q.Get("type"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, entries)
}

// Export handles GET /api/logs/export?date=YYYY-MM-DD&type=.
func (h *LogsHandler) Export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	date := q.Get("date")
	entries, err := h.Inventory.ListLogs(r.Context(), date, q.Get("type"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	if date == "" {
		date = "all"
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="log-%s.csv"`, date))
	if err := inventory.WriteCSV(w, entries, h.Inventory.Location); err != nil {
		slog.Warn("writing log export", "error", err)
	}
}

// Delete handles DELETE /api/logs/{id}: the entry is removed and its stock
// effect reversed.
func (h *LogsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid log id")
		return
	}

	res, err := h.Inventory.DeleteLog(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("log entry rolled back", "user", claimsUser(r), "log_id", id,
		"type", res.Log.Type, "quantity", res.Log.Quantity, "rolled_back", res.RolledBack)
	jsonResponse(w, http.StatusOK, rollbackResponse{
		Log:         res.Log,
		RolledBack:  res.RolledBack,
		Item:        res.Item,
		ItemDeleted: res.ItemDeleted,
	})
}

// Update handles PUT /api/logs/{id}.
func (h *LogsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid log id")
		return
	}

	var req updateLogRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	qty, err := countField(req.Quantity, store.ErrInvalidQuantity)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.Inventory.UpdateLog(r.Context(), id, store.LogUpdate{
		ItemID:   req.ItemID,
		ItemName: req.ItemName,
		Type:     req.Type,
		Quantity: qty,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("log entry edited", "user", claimsUser(r), "log_id", id,
		"item_id", res.Log.ItemID, "type", res.Log.Type, "quantity", res.Log.Quantity)
	jsonResponse(w, http.StatusOK, editResponse{
		Log:                 res.Log,
		Item:                res.Item,
		ItemDeleted:         res.ItemDeleted,
		PreviousItem:        res.PreviousItem,
		PreviousItemDeleted: res.PreviousItemDeleted,
	})
}
