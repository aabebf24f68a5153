// Package sheet implements the record store on top of an XLSX workbook.
// Vendor rows are read from the first sheet, result columns are added to
// the header when missing, and every result write saves the file so an
// interrupted run loses at most the row in flight.
package sheet

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tealeg/xlsx/v2"

	"github.com/vendorscout/instalink/normalize"
	"github.com/vendorscout/instalink/record"
)

// Result column headers.
const (
	colProfileURL = "instagram_url"
	colConfidence = "instagram_confidence"
	colStatus     = "instagram_status"
	colFollowers  = "instagram_followers"
	colVerified   = "instagram_verified"
	colCheckedAt  = "checked_at"
)

var resultColumns = []string{
	colProfileURL, colConfidence, colStatus, colFollowers, colVerified, colCheckedAt,
}

// headerAliases maps logical input fields to accepted header spellings.
// Headers are compared after lower-casing and space-to-underscore folding.
var headerAliases = map[string][]string{
	"name":     {"name", "business_name", "vendor", "vendor_name", "business"},
	"city":     {"city", "location", "town"},
	"category": {"category", "type", "vendor_category", "vendor_type"},
	"website":  {"website", "url", "web", "site"},
	"listing":  {"listing_url", "google_maps_url", "maps_url", "listing", "directory_url"},
}

// Store reads vendors from and writes results to one worksheet.
type Store struct {
	path   string
	file   *xlsx.File
	sheet  *xlsx.Sheet
	cols   map[string]int // header -> column index
	inputs map[string]int // logical field -> column index, -1 when absent
	logger *slog.Logger

	mu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// Open loads the workbook at path and provisions any missing result
// columns, saving immediately so the header is stable from the start.
func Open(path string, opts ...Option) (*Store, error) {
	file, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	if len(file.Sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}

	s := &Store{
		path:   path,
		file:   file,
		sheet:  file.Sheets[0],
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if len(s.sheet.Rows) == 0 {
		return nil, fmt.Errorf("workbook %s has no header row", path)
	}

	if err := s.indexColumns(); err != nil {
		return nil, err
	}
	return s, nil
}

// indexColumns maps headers to column positions and appends missing
// result columns.
func (s *Store) indexColumns() error {
	header := s.sheet.Rows[0]
	s.cols = make(map[string]int, len(header.Cells))
	for i, cell := range header.Cells {
		key := foldHeader(cell.String())
		if key != "" {
			s.cols[key] = i
		}
	}

	s.inputs = make(map[string]int, len(headerAliases))
	for field, aliases := range headerAliases {
		s.inputs[field] = -1
		for _, alias := range aliases {
			if idx, ok := s.cols[alias]; ok {
				s.inputs[field] = idx
				break
			}
		}
	}
	if s.inputs["name"] < 0 {
		return fmt.Errorf("no business name column found (tried %s)",
			strings.Join(headerAliases["name"], ", "))
	}

	added := false
	for _, col := range resultColumns {
		if _, ok := s.cols[col]; ok {
			continue
		}
		cell := header.AddCell()
		cell.SetString(col)
		s.cols[col] = len(header.Cells) - 1
		added = true
	}
	if added {
		s.logger.Info("added result columns", "path", s.path)
		if err := s.file.Save(s.path); err != nil {
			return fmt.Errorf("saving provisioned header: %w", err)
		}
	}
	return nil
}

// Pending returns vendor rows without a terminal status, in sheet order.
// Rows with an empty name are skipped. RowID is the zero-based sheet row
// index, stable across the run.
func (s *Store) Pending(ctx context.Context) ([]record.VendorRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending []record.VendorRecord
	for i := 1; i < len(s.sheet.Rows); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row := s.sheet.Rows[i]

		name := strings.TrimSpace(s.cellAt(row, s.inputs["name"]))
		if name == "" {
			continue
		}
		if record.Terminal(record.Status(strings.TrimSpace(s.cellAt(row, s.cols[colStatus])))) {
			continue
		}

		pending = append(pending, record.VendorRecord{
			RowID:          i,
			Name:           name,
			City:           strings.TrimSpace(s.cellAt(row, s.inputs["city"])),
			Category:       strings.TrimSpace(s.cellAt(row, s.inputs["category"])),
			Website:        strings.TrimSpace(s.cellAt(row, s.inputs["website"])),
			ListingURL:     strings.TrimSpace(s.cellAt(row, s.inputs["listing"])),
			NormalizedName: normalize.Name(name),
		})
	}
	return pending, nil
}

// WriteResult fills the result columns of one row and saves the file.
func (s *Store) WriteResult(ctx context.Context, rowID int, res record.ResolutionResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if rowID < 1 || rowID >= len(s.sheet.Rows) {
		return fmt.Errorf("row %d out of range", rowID)
	}
	row := s.sheet.Rows[rowID]

	followers := ""
	if res.Followers != nil {
		followers = strconv.Itoa(*res.Followers)
	}
	checkedAt := res.CheckedAt
	if checkedAt.IsZero() {
		checkedAt = time.Now().UTC()
	}

	s.setCell(row, s.cols[colProfileURL], res.ProfileURL)
	s.setCell(row, s.cols[colConfidence], strconv.Itoa(res.Confidence))
	s.setCell(row, s.cols[colStatus], string(res.Status))
	s.setCell(row, s.cols[colFollowers], followers)
	s.setCell(row, s.cols[colVerified], string(res.Verified))
	s.setCell(row, s.cols[colCheckedAt], checkedAt.Format(time.RFC3339))

	if err := s.file.Save(s.path); err != nil {
		return fmt.Errorf("saving row %d: %w", rowID, err)
	}
	return nil
}

func (s *Store) cellAt(row *xlsx.Row, idx int) string {
	if idx < 0 || idx >= len(row.Cells) {
		return ""
	}
	return row.Cells[idx].String()
}

// setCell grows the row as needed before writing.
func (s *Store) setCell(row *xlsx.Row, idx int, value string) {
	for len(row.Cells) <= idx {
		row.AddCell()
	}
	row.Cells[idx].SetString(value)
}

// foldHeader normalizes a header for alias comparison.
func foldHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.ReplaceAll(h, " ", "_")
}
