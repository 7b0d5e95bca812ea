// Package tabular turns heterogeneous row-oriented input (uploaded CSV
// spreadsheets) into normalized candidate records for reconciliation.
//
// The parser is deliberately tolerant: malformed rows are filtered, never
// errored, so that a bulk import survives a few bad lines. Only failure to
// open or read the source at all is reported as an error.
package tabular

import "errors"

// ErrSourceUnreadable is returned when the input source cannot be opened or
// read. It is the only error the parser produces; row-level malformation is
// silently filtered instead.
var ErrSourceUnreadable = errors.New("source cannot be read")

// Row is one normalized candidate record extracted from a tabular source.
// All fields are whitespace-trimmed. Date is an ISO calendar date
// ("2006-01-02"). SlackID is empty when the source did not supply one.
type Row struct {
	Name    string
	Email   string
	Choice  string
	Date    string
	SlackID string
}

// DataProvider is the narrow capability interface the reconciliation engine
// depends on. Implementations exist per source kind (CSV today); the engine
// never sees the underlying transport.
type DataProvider interface {
	// GetData reads the given source and returns the surviving normalized
	// rows in input order. An empty result is not an error. It returns an
	// error wrapping ErrSourceUnreadable when the source cannot be opened.
	GetData(source string) ([]Row, error)
}
