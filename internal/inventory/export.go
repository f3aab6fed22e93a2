package inventory

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/erazemk/zaloga/internal/model"
)

var exportHeader = []string{"date", "item", "type", "quantity"}

// WriteCSV writes entries as CSV with a header row. Timestamps are
// rendered to the minute in loc.
func WriteCSV(w io.Writer, entries []model.LogEntry, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for _, e := range entries {
		row := []string{
			e.CreatedAt.In(loc).Format("2006-01-02 15:04"),
			e.ItemName,
			string(e.Type),
			strconv.Itoa(e.Quantity),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
