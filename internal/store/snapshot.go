package store

import (
	"context"
	"fmt"

	"nfa/internal/dataset"
	"nfa/internal/table"
)

// Snapshot table names.
const (
	TableInvoices       = "invoices"
	TableInvoiceItems   = "invoice_items"
	TableSupplierTotals = "supplier_totals"
)

// Snapshot writes the loaded archive into st: the reconciled header and
// item tables plus the per-supplier totals, replacing any prior content.
func Snapshot(ctx context.Context, st Store, ds *dataset.Dataset) error {
	specs := []TableSpec{
		specFor(TableInvoices, ds.Header.Columns),
		specFor(TableInvoiceItems, ds.Items.Columns),
		{
			Name: TableSupplierTotals,
			Columns: []ColumnSpec{
				{Name: "supplier_name", Type: "text"},
				{Name: "total_value", Type: "numeric"},
				{Name: "invoice_count", Type: "integer"},
			},
		},
	}
	if err := st.EnsureTables(ctx, specs); err != nil {
		return fmt.Errorf("store: ensure tables: %w", err)
	}

	if err := replaceTyped(ctx, st, TableInvoices, ds.Header); err != nil {
		return err
	}
	if err := replaceTyped(ctx, st, TableInvoiceItems, ds.Items); err != nil {
		return err
	}

	totals := ds.SupplierTotals()
	rows := make([][]any, 0, len(totals))
	for _, b := range totals {
		rows = append(rows, []any{b.Key, b.Value.String(), int64(b.Count)})
	}
	cols := []string{"supplier_name", "total_value", "invoice_count"}
	if err := st.ReplaceRows(ctx, TableSupplierTotals, cols, rows); err != nil {
		return fmt.Errorf("store: replace %s: %w", TableSupplierTotals, err)
	}
	return nil
}

func replaceTyped(ctx context.Context, st Store, name string, t *table.Typed) error {
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = c.Key
	}

	rows := make([][]any, len(t.Rows))
	for ri, row := range t.Rows {
		vals := make([]any, len(row))
		for ci, v := range row {
			vals[ci] = cellValue(v)
		}
		rows[ri] = vals
	}

	if err := st.ReplaceRows(ctx, name, cols, rows); err != nil {
		return fmt.Errorf("store: replace %s: %w", name, err)
	}
	return nil
}

func specFor(name string, cols []table.Column) TableSpec {
	spec := TableSpec{Name: name, Columns: make([]ColumnSpec, len(cols))}
	for i, c := range cols {
		spec.Columns[i] = ColumnSpec{Name: c.Key, Type: columnType(c.Kind)}
	}
	return spec
}

func columnType(k table.Kind) string {
	switch k {
	case table.KindInteger:
		return "integer"
	case table.KindNumber, table.KindCurrency:
		return "numeric"
	case table.KindDate:
		return "date"
	default:
		return "text"
	}
}

// cellValue converts a typed cell into a driver-friendly value. Decimals
// travel as strings so no backend rounds them through float64.
func cellValue(v table.Value) any {
	switch v.Kind {
	case table.KindInteger:
		return v.Int
	case table.KindNumber, table.KindCurrency:
		return v.Dec.String()
	case table.KindDate:
		return v.Time
	default:
		return v.Str
	}
}
