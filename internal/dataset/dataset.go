// Package dataset joins the typed header and items tables into the one
// denormalized analytical table all questions run against, and exposes
// memoized summary views over it.
//
// The joined dataset is immutable once built: concurrent reads from
// simultaneous questions are safe, and summary views are computed lazily
// and cached without eviction for the session's lifetime.
package dataset

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"nfa/internal/schema"
	"nfa/internal/table"
)

// JoinError reports a join that produced no analytical rows.
type JoinError struct {
	Reason string
}

func (e *JoinError) Error() string { return "dataset: join: " + e.Reason }

// Code returns the stable machine code for console callers.
func (e *JoinError) Code() string { return "join" }

// DuplicateKeyError reports a header table carrying the same invoice id
// twice. Picking one silently would mask a data-quality issue, so the
// load is rejected instead.
type DuplicateKeyError struct {
	Key string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("dataset: duplicate invoice id %q in header table", e.Key)
}

// Code returns the stable machine code for console callers.
func (e *DuplicateKeyError) Code() string { return "duplicate_key" }

// Dataset is the analytical table plus the retained source tables.
//
// Rows carry one entry per surviving invoice line, denormalized with the
// owning header attributes. Invoice-level summaries (count, total, mean)
// read the retained header table so invoices without lines still count.
type Dataset struct {
	Columns []table.Column
	Rows    [][]table.Value

	Header  *table.Typed
	Items   *table.Typed
	Orphans int

	mu      sync.RWMutex
	buckets map[bucketKey][]Bucket
	totals  *totals
}

// Join merges items into headers on the invoice id, left-outer from the
// items side: an item row whose invoice id has no header row is counted
// as an orphan and excluded, never joined with null header fields.
func Join(header, items *table.Typed) (*Dataset, error) {
	hKey := header.ColumnIndex(schema.ColInvoiceID)
	iKey := items.ColumnIndex(schema.ColInvoiceID)
	if hKey < 0 || iKey < 0 {
		return nil, &JoinError{Reason: "invoice_id column missing"}
	}

	byID := make(map[string]int, len(header.Rows))
	for i, row := range header.Rows {
		id := row[hKey].Str
		if _, dup := byID[id]; dup {
			return nil, &DuplicateKeyError{Key: id}
		}
		byID[id] = i
	}

	ds := &Dataset{
		Header:  header,
		Items:   items,
		buckets: make(map[bucketKey][]Bucket),
	}

	// Analytical columns: all header columns, then item columns that do
	// not repeat a header key (the shared invoice_id appears once).
	ds.Columns = append(ds.Columns, header.Columns...)
	itemCols := make([]int, 0, len(items.Columns))
	for ci, c := range items.Columns {
		if dup := header.ColumnIndex(c.Key); dup >= 0 {
			continue
		}
		itemCols = append(itemCols, ci)
		ds.Columns = append(ds.Columns, c)
	}

	for _, irow := range items.Rows {
		hi, ok := byID[irow[iKey].Str]
		if !ok {
			ds.Orphans++
			continue
		}
		row := make([]table.Value, 0, len(ds.Columns))
		row = append(row, header.Rows[hi]...)
		for _, ci := range itemCols {
			row = append(row, irow[ci])
		}
		ds.Rows = append(ds.Rows, row)
	}

	if len(ds.Rows) == 0 {
		return nil, &JoinError{Reason: "all rows orphaned"}
	}
	return ds, nil
}

// ColumnIndex returns the analytical column index for a canonical key,
// or -1.
func (d *Dataset) ColumnIndex(key string) int {
	for i, c := range d.Columns {
		if c.Key == key {
			return i
		}
	}
	return -1
}

// Describe renders a short dataset summary for display.
func (d *Dataset) Describe() string {
	return fmt.Sprintf(
		"notas fiscais: %d registros | itens: %d registros (%d órfãos excluídos) | tabela analítica: %d linhas x %d colunas | valor total: %s",
		len(d.Header.Rows), len(d.Items.Rows), d.Orphans, len(d.Rows), len(d.Columns), table.FormatBRL(d.TotalValue()),
	)
}

// decCell returns the decimal content of a cell, widening integers.
func decCell(v table.Value) decimal.Decimal {
	switch v.Kind {
	case table.KindInteger:
		return decimal.NewFromInt(v.Int)
	default:
		return v.Dec
	}
}
