package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/erazemk/zaloga/internal/inventory"
	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/store"
)

// maxUploadMemory is the part of a multipart body kept in memory.
const maxUploadMemory = 16 << 20

// ItemsHandler handles item endpoints.
type ItemsHandler struct {
	Inventory *inventory.Service
}

type itemRequest struct {
	Name           *string         `json:"name"`
	WarehouseStock json.RawMessage `json:"warehouse_stock"`
	WarehouseDelta json.RawMessage `json:"warehouse_delta"`
}

type quantityRequest struct {
	Quantity json.RawMessage `json:"quantity"`
}

type saleResponse struct {
	Item    *model.Item `json:"item"`
	Deleted bool        `json:"deleted"`
}

type adjustResponse struct {
	Item    *model.Item `json:"item"`
	Deleted bool        `json:"deleted"`
}

func isMultipart(r *http.Request) bool {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mt == "multipart/form-data"
}

// itemForm reads an item request from either a multipart form or JSON. The
// returned file is nil when no image was sent.
func itemForm(r *http.Request) (*itemRequest, multipart.File, error) {
	req := &itemRequest{}
	if !isMultipart(r) {
		if err := decodeJSON(r, req); err != nil {
			return nil, nil, err
		}
		return req, nil, nil
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return nil, nil, err
	}
	if vs, ok := r.MultipartForm.Value["name"]; ok && len(vs) > 0 {
		req.Name = &vs[0]
	}
	for key, dst := range map[string]*json.RawMessage{
		"warehouse_stock": &req.WarehouseStock,
		"warehouse_delta": &req.WarehouseDelta,
	} {
		if v := r.FormValue(key); v != "" {
			raw, _ := json.Marshal(v)
			*dst = raw
		}
	}

	file, _, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return req, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return req, file, nil
}

// List handles GET /api/items?search=&page=&limit=.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	result, err := h.Inventory.SearchItems(r.Context(), q.Get("search"), page, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, result)
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, file, err := itemForm(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	var image io.Reader
	if file != nil {
		defer file.Close()
		image = file
	}

	name := ""
	if req.Name != nil {
		name = *req.Name
	}
	stock, err := countField(req.WarehouseStock, store.ErrInvalidQuantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	initial := 0
	if stock != nil {
		initial = *stock
	}

	item, err := h.Inventory.CreateItem(r.Context(), name, initial, image)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("item created", "user", claimsUser(r), "item_id", item.ID)
	jsonResponse(w, http.StatusCreated, item)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	item, err := h.Inventory.GetItem(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Update handles PUT /api/items/{id}: rename, replace the image and/or
// correct the warehouse stock by a signed delta.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	req, file, err := itemForm(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	upd := inventory.ItemUpdate{Name: req.Name}
	if file != nil {
		defer file.Close()
		upd.Image = file
	}
	if upd.WarehouseDelta, err = countField(req.WarehouseDelta, store.ErrInvalidDelta); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.Inventory.UpdateItem(r.Context(), id, upd)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("item updated", "user", claimsUser(r), "item_id", id, "deleted", res.Deleted)
	jsonResponse(w, http.StatusOK, adjustResponse{Item: res.Item, Deleted: res.Deleted})
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	if err := h.Inventory.DeleteItem(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("item deleted", "user", claimsUser(r), "item_id", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// GetImage handles GET /api/items/{id}/image.
func (h *ItemsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	rc, contentType, err := h.Inventory.OpenImage(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=86400")
	if _, err := io.Copy(w, rc); err != nil {
		slog.Warn("streaming image", "item_id", id, "error", err)
	}
}

func (h *ItemsHandler) quantity(w http.ResponseWriter, r *http.Request) (int64, int, bool) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return 0, 0, false
	}
	var req quantityRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return 0, 0, false
	}
	qty, err := countField(req.Quantity, store.ErrInvalidQuantity)
	if err == nil && qty == nil {
		err = store.ErrInvalidQuantity
	}
	if err != nil {
		writeError(w, r, err)
		return 0, 0, false
	}
	return id, *qty, true
}

// Transfer handles POST /api/items/{id}/transfer.
func (h *ItemsHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	id, qty, ok := h.quantity(w, r)
	if !ok {
		return
	}

	item, err := h.Inventory.Transfer(r.Context(), id, qty)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("stock transferred to display", "user", claimsUser(r), "item_id", id, "quantity", qty)
	jsonResponse(w, http.StatusOK, item)
}

// Sale handles POST /api/items/{id}/sale.
func (h *ItemsHandler) Sale(w http.ResponseWriter, r *http.Request) {
	id, qty, ok := h.quantity(w, r)
	if !ok {
		return
	}

	res, err := h.Inventory.Sale(r.Context(), id, qty)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("sale recorded", "user", claimsUser(r), "item_id", id, "quantity", qty, "deleted", res.Deleted)
	jsonResponse(w, http.StatusOK, saleResponse{Item: res.Item, Deleted: res.Deleted})
}
