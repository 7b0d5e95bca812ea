// CSV implementation of the DataProvider capability.
//
// The reader copes with real-world spreadsheet exports: an optional header
// row with loosely named columns, extra columns, ragged rows, and dates in a
// variety of textual formats. Rows that cannot be salvaged are dropped
// silently; the caller observes the loss only through row counts.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Canonical field keys used in column maps.
const (
	fieldName    = "name"
	fieldEmail   = "email"
	fieldChoice  = "choice"
	fieldDate    = "date"
	fieldSlackID = "slack_id"
)

// headerSynonyms maps lowercase, trimmed column titles to canonical fields.
var headerSynonyms = map[string]string{
	"name":          fieldName,
	"employee":      fieldName,
	"employee name": fieldName,
	"email":         fieldEmail,
	"e-mail":        fieldEmail,
	"choice":        fieldChoice,
	"meal":          fieldChoice,
	"meal choice":   fieldChoice,
	"date":          fieldDate,
	"slack_id":      fieldSlackID,
	"slack id":      fieldSlackID,
	"slack":         fieldSlackID,
	"slack_user_id": fieldSlackID,
}

// CSVProvider reads comma-separated files. The zero value is ready to use.
type CSVProvider struct{}

// NewCSVProvider returns a CSV-backed DataProvider.
func NewCSVProvider() *CSVProvider { return &CSVProvider{} }

// GetData opens the file at source and parses it. A file that cannot be
// opened yields an error wrapping ErrSourceUnreadable; everything else is
// handled by ParseReader.
func (p *CSVProvider) GetData(source string) ([]Row, error) {
	f, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSourceUnreadable, err)
	}
	defer f.Close()
	return p.ParseReader(f)
}

// ParseReader parses CSV content from r and returns the surviving rows in
// input order. An input with no rows at all produces an empty slice, not an
// error.
//
// The first record is inspected: when at least four cells map to canonical
// column names it is treated as a header and discarded, and the discovered
// indices drive the mapping of all subsequent records. Otherwise positional
// defaults apply (name, email, choice, date, slack id) and the first record
// itself is data.
func (p *CSVProvider) ParseReader(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // ragged rows are handled per record
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	first, err := readRecord(cr)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []Row{}, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrSourceUnreadable, err)
	}

	rows := make([]Row, 0, 16)
	colMap := defaultColumnMap()
	if m, ok := headerColumnMap(first); ok {
		colMap = m
	} else if row, ok := mapRecord(first, colMap); ok {
		rows = append(rows, row)
	}

	for {
		rec, err := readRecord(cr)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// A record with broken framing is just another malformed row.
			continue
		}
		if row, ok := mapRecord(rec, colMap); ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// readRecord reads one CSV record, normalizing csv.ErrFieldCount (harmless
// with FieldsPerRecord=-1, but kept for safety) away.
func readRecord(cr *csv.Reader) ([]string, error) {
	rec, err := cr.Read()
	if err != nil && !errors.Is(err, csv.ErrFieldCount) {
		return nil, err
	}
	return rec, nil
}

// headerColumnMap attempts to interpret rec as a header row. It returns the
// column index per canonical field and true when at least four of the
// required fields (name, email, choice, date) were recognized.
func headerColumnMap(rec []string) (map[string]int, bool) {
	if nonEmptyCells(rec) < 4 {
		return nil, false
	}
	m := make(map[string]int, 5)
	for i, cell := range rec {
		key := strings.ToLower(strings.TrimSpace(cell))
		if field, ok := headerSynonyms[key]; ok {
			if _, seen := m[field]; !seen {
				m[field] = i
			}
		}
	}
	matched := 0
	for _, f := range []string{fieldName, fieldEmail, fieldChoice, fieldDate} {
		if _, ok := m[f]; ok {
			matched++
		}
	}
	return m, matched >= 4
}

// defaultColumnMap is the positional fallback when no header is present.
func defaultColumnMap() map[string]int {
	return map[string]int{
		fieldName:    0,
		fieldEmail:   1,
		fieldChoice:  2,
		fieldDate:    3,
		fieldSlackID: 4,
	}
}

// mapRecord converts one raw record into a Row. It reports false when the
// record is too short, misses a required field after trimming, or carries a
// date no known format can parse.
func mapRecord(rec []string, colMap map[string]int) (Row, bool) {
	if len(rec) < 4 {
		return Row{}, false
	}
	row := Row{
		Name:    cellAt(rec, colMap, fieldName),
		Email:   cellAt(rec, colMap, fieldEmail),
		Choice:  cellAt(rec, colMap, fieldChoice),
		Date:    cellAt(rec, colMap, fieldDate),
		SlackID: cellAt(rec, colMap, fieldSlackID),
	}
	if row.Name == "" || row.Email == "" || row.Choice == "" || row.Date == "" {
		return Row{}, false
	}
	iso, ok := normalizeDate(row.Date)
	if !ok {
		return Row{}, false
	}
	row.Date = iso
	return row, true
}

// cellAt returns the trimmed cell for field, or "" when the column is absent.
func cellAt(rec []string, colMap map[string]int, field string) string {
	idx, ok := colMap[field]
	if !ok || idx < 0 || idx >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[idx])
}

// nonEmptyCells counts cells that remain non-empty after trimming.
func nonEmptyCells(rec []string) int {
	n := 0
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			n++
		}
	}
	return n
}

// monthNameLayouts covers spelled-out month forms that the permissive parser
// mishandles (it can yield year 0 for "January 15, 2024"-style input).
var monthNameLayouts = []string{
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
}

// normalizeDate parses a permissive textual date and renders it as an ISO
// calendar date. Time-of-day components are discarded. A parse that lands on
// an implausible year is treated as a failure, not stored; month-name forms
// get a second chance against explicit layouts before the row is dropped.
func normalizeDate(s string) (string, bool) {
	t, err := dateparse.ParseAny(s)
	if err == nil && t.Year() >= 1000 {
		return t.Format("2006-01-02"), true
	}
	for _, layout := range monthNameLayouts {
		if mt, merr := time.Parse(layout, s); merr == nil {
			return mt.Format("2006-01-02"), true
		}
	}
	return "", false
}
