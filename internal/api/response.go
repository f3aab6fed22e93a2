package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/erazemk/zaloga/internal/imaging"
	"github.com/erazemk/zaloga/internal/inventory"
	"github.com/erazemk/zaloga/internal/store"
	"github.com/erazemk/zaloga/internal/upload"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, errorResponse{Error: message})
}

// errorKinds maps sentinel errors to a status and a stable code.
var errorKinds = []struct {
	err    error
	status int
	code   string
}{
	{store.ErrInvalidQuantity, http.StatusBadRequest, "invalid_quantity"},
	{store.ErrInvalidDelta, http.StatusBadRequest, "invalid_delta"},
	{store.ErrInvalidLogType, http.StatusBadRequest, "invalid_log_type"},
	{store.ErrNameRequired, http.StatusBadRequest, "name_required"},
	{inventory.ErrInvalidDate, http.StatusBadRequest, "invalid_date"},
	{imaging.ErrUnsupportedFormat, http.StatusBadRequest, "unsupported_image"},
	{imaging.ErrTooLarge, http.StatusRequestEntityTooLarge, "image_too_large"},
	{store.ErrItemNotFound, http.StatusNotFound, "item_not_found"},
	{store.ErrLogNotFound, http.StatusNotFound, "log_not_found"},
	{store.ErrUserNotFound, http.StatusNotFound, "user_not_found"},
	{upload.ErrNotFound, http.StatusNotFound, "image_not_found"},
	{store.ErrInsufficientWarehouseStock, http.StatusConflict, "insufficient_warehouse_stock"},
	{store.ErrInsufficientDisplayStock, http.StatusConflict, "insufficient_display_stock"},
	{store.ErrWouldGoNegative, http.StatusConflict, "would_go_negative"},
}

// statusFor classifies err. Anything unrecognized is a storage failure.
func statusFor(err error) (int, string) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.status, k.code
		}
	}
	return http.StatusInternalServerError, "storage"
}

// writeError reports err to the client. Internal details of 5xx errors are
// logged, not returned.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = "internal error"
	}
	jsonResponse(w, status, errorResponse{Error: msg, Code: code})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// pathID parses the {id} path value.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

// parseCount parses a whole number given as a JSON number or a numeric
// string. Non-finite and fractional values are rejected with invalid.
func parseCount(raw string, invalid error) (int, error) {
	s := strings.TrimSpace(raw)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, invalid
	}
	return int(f), nil
}

// countField parses an optional count from a JSON body field. It returns
// nil when the field is absent or null.
func countField(raw json.RawMessage, invalid error) (*int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	s := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, invalid
		}
	}
	n, err := parseCount(s, invalid)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
