// Package export renders summary rows for reporting tools.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/okian/riskprofiler/internal/domain/model"
	"github.com/spf13/cast"
)

// Supported formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// ErrUnknownFormat is returned for formats other than csv and json.
var ErrUnknownFormat = errors.New("unknown export format")

// Header is the first CSV record.
var Header = []string{"subject_id", "display_name", "coefficient", "r_squared", "category"}

// ParseFormat accepts csv and json case-insensitively. The empty string
// maps to csv.
func ParseFormat(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%q: %w", s, ErrUnknownFormat)
	}
}

// ContentType returns the media type of format.
func ContentType(format string) string {
	if format == FormatJSON {
		return "application/json"
	}
	return "text/csv; charset=utf-8"
}

// Write renders rows in format.
func Write(w io.Writer, format string, rows []model.Row) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, rows)
	case FormatJSON:
		return WriteJSON(w, rows)
	default:
		return fmt.Errorf("%q: %w", format, ErrUnknownFormat)
	}
}

// WriteCSV writes Header followed by one record per row. Floats use the
// shortest representation that round-trips.
func WriteCSV(w io.Writer, rows []model.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i := range rows {
		r := &rows[i]
		rec := []string{
			r.SubjectID,
			r.DisplayName,
			cast.ToString(r.Coefficient),
			cast.ToString(r.RSquared),
			string(r.Category),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes rows as a JSON array. A nil slice is written as [].
func WriteJSON(w io.Writer, rows []model.Row) error {
	if rows == nil {
		rows = []model.Row{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}
