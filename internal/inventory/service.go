// Package inventory runs the stock operations and their side effects: image
// normalization before a write, image release after a commit, and metrics.
package inventory

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/erazemk/zaloga/internal/imaging"
	"github.com/erazemk/zaloga/internal/metrics"
	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/store"
	"github.com/erazemk/zaloga/internal/upload"
)

// ErrInvalidDate is returned when a day filter cannot be parsed.
var ErrInvalidDate = errors.New("invalid date")

// DateLayout is the format of day filters.
const DateLayout = "2006-01-02"

// Service is the entry point for every stock mutation.
type Service struct {
	DB       *sql.DB
	Uploads  upload.Store
	Images   imaging.Normalizer
	Metrics  *metrics.Metrics
	Releaser *Releaser
	// Location is the time zone day filters are interpreted in.
	Location *time.Location
}

// NewService wires a service and starts its release worker.
func NewService(db *sql.DB, uploads upload.Store, m *metrics.Metrics, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		DB:       db,
		Uploads:  uploads,
		Metrics:  m,
		Releaser: NewReleaser(uploads, m, 64),
		Location: loc,
	}
}

// Close waits for pending image releases.
func (s *Service) Close() {
	s.Releaser.Close()
}

func (s *Service) observe(op string, err error) {
	if s.Metrics != nil {
		s.Metrics.Mutation(op, err)
	}
}

func (s *Service) afterCommit(op string, deleted bool, stale []string) {
	if deleted {
		slog.Info("item depleted and removed", "op", op)
		if s.Metrics != nil {
			s.Metrics.CascadeDeletes.Inc()
		}
	}
	s.Releaser.Release(stale...)
}

// saveImage normalizes and stores r. A nil reader yields an empty reference.
func (s *Service) saveImage(ctx context.Context, r io.Reader) (string, error) {
	if r == nil {
		return "", nil
	}
	img, err := s.Images.Normalize(r)
	if err != nil {
		return "", err
	}
	ref, err := s.Uploads.Save(ctx, bytes.NewReader(img.Data), img.ContentType)
	if err != nil {
		return "", fmt.Errorf("saving image: %w", err)
	}
	return ref, nil
}

// CreateItem stores the optional image, then creates the item. The image
// is released again if the item cannot be created.
func (s *Service) CreateItem(ctx context.Context, name string, warehouseStock int, image io.Reader) (*model.Item, error) {
	ref, err := s.saveImage(ctx, image)
	if err != nil {
		s.observe("create", err)
		return nil, err
	}
	item, err := store.CreateItem(ctx, s.DB, name, warehouseStock, ref)
	s.observe("create", err)
	if err != nil {
		s.Releaser.Release(ref)
		return nil, err
	}
	return item, nil
}

func (s *Service) GetItem(ctx context.Context, id int64) (*model.Item, error) {
	return store.GetItem(ctx, s.DB, id)
}

func (s *Service) SearchItems(ctx context.Context, search string, page, limit int) (*model.ItemPage, error) {
	return store.SearchItems(ctx, s.DB, search, page, limit)
}

// ItemUpdate is an UpdateItem request. Nil fields are left unchanged.
type ItemUpdate struct {
	Name           *string
	Image          io.Reader
	WarehouseDelta *int
}

// UpdateItem applies an adjustment. The previous image and, on a cascade,
// the current one are released after the commit.
func (s *Service) UpdateItem(ctx context.Context, id int64, upd ItemUpdate) (*store.AdjustResult, error) {
	adj := store.ItemAdjustment{Name: upd.Name, WarehouseDelta: upd.WarehouseDelta}
	var ref string
	if upd.Image != nil {
		var err error
		if ref, err = s.saveImage(ctx, upd.Image); err != nil {
			s.observe("adjust", err)
			return nil, err
		}
		adj.Image = &ref
	}

	res, err := store.AdjustItem(ctx, s.DB, id, adj)
	s.observe("adjust", err)
	if err != nil {
		s.Releaser.Release(ref)
		return nil, err
	}
	s.afterCommit("adjust", res.Deleted, res.StaleImages)
	return res, nil
}

// DeleteItem removes an item. Its log entries are kept.
func (s *Service) DeleteItem(ctx context.Context, id int64) error {
	ref, err := store.DeleteItem(ctx, s.DB, id)
	s.observe("delete", err)
	if err != nil {
		return err
	}
	s.Releaser.Release(ref)
	return nil
}

func (s *Service) Transfer(ctx context.Context, id int64, quantity int) (*model.Item, error) {
	item, err := store.TransferToDisplay(ctx, s.DB, id, quantity)
	s.observe("transfer", err)
	return item, err
}

func (s *Service) Sale(ctx context.Context, id int64, quantity int) (*store.SaleResult, error) {
	res, err := store.RecordSale(ctx, s.DB, id, quantity)
	s.observe("sale", err)
	if err != nil {
		return nil, err
	}
	s.afterCommit("sale", res.Deleted, res.StaleImages())
	return res, nil
}

// OpenImage returns the stored picture of an item.
func (s *Service) OpenImage(ctx context.Context, id int64) (io.ReadCloser, string, error) {
	ref, err := store.GetItemImage(ctx, s.DB, id)
	if err != nil {
		return nil, "", err
	}
	if ref == "" {
		return nil, "", upload.ErrNotFound
	}
	return s.Uploads.Open(ctx, ref)
}

// ParseDay parses a YYYY-MM-DD day in the service's time zone. An empty
// string yields the zero time, which disables the filter.
func (s *Service) ParseDay(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	day, err := time.ParseInLocation(DateLayout, v, s.Location)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, v)
	}
	return day, nil
}

// ListLogs returns entries for a day and type. Empty strings and the type
// "all" disable the respective filter.
func (s *Service) ListLogs(ctx context.Context, day, typ string) ([]model.LogEntry, error) {
	d, err := s.ParseDay(day)
	if err != nil {
		return nil, err
	}
	f := store.LogFilter{Day: d}
	if typ != "" && typ != "all" {
		f.Type = model.LogType(typ)
	}
	entries, err := store.ListLogs(ctx, s.DB, f)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []model.LogEntry{}
	}
	return entries, nil
}

func (s *Service) DeleteLog(ctx context.Context, id int64) (*store.RollbackResult, error) {
	res, err := store.DeleteLogAndRollback(ctx, s.DB, id)
	s.observe("rollback", err)
	if err != nil {
		return nil, err
	}
	if !res.RolledBack {
		slog.Info("removed orphaned log entry", "log_id", id, "item_id", res.Log.ItemID)
	}
	s.afterCommit("rollback", res.ItemDeleted, res.StaleImages())
	return res, nil
}

func (s *Service) UpdateLog(ctx context.Context, id int64, upd store.LogUpdate) (*store.EditResult, error) {
	res, err := store.UpdateLogAndAdjustStock(ctx, s.DB, id, upd)
	s.observe("edit", err)
	if err != nil {
		return nil, err
	}
	s.afterCommit("edit", res.ItemDeleted || res.PreviousItemDeleted, res.StaleImages())
	return res, nil
}
