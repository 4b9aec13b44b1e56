package store

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"nfa/internal/dataset"
	"nfa/internal/schema"
	"nfa/internal/table"
)

type fakeStore struct {
	specs    []TableSpec
	replaced map[string][][]any
	columns  map[string][]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{replaced: map[string][][]any{}, columns: map[string][]string{}}
}

func (f *fakeStore) Close() {}

func (f *fakeStore) EnsureTables(ctx context.Context, tables []TableSpec) error {
	f.specs = tables
	return nil
}

func (f *fakeStore) ReplaceRows(ctx context.Context, table string, columns []string, rows [][]any) error {
	f.columns[table] = columns
	f.replaced[table] = rows
	return nil
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func testDataset(t *testing.T) *dataset.Dataset {
	t.Helper()

	header := &table.Typed{
		Role: "header",
		Columns: []table.Column{
			{Key: schema.ColInvoiceID, Kind: table.KindIdentifier},
			{Key: schema.ColSupplierName, Kind: table.KindString},
			{Key: schema.ColInvoiceTotal, Kind: table.KindCurrency},
		},
		Rows: [][]table.Value{
			{
				{Kind: table.KindIdentifier, Str: "1"},
				{Kind: table.KindString, Str: "Acme"},
				{Kind: table.KindCurrency, Dec: dec(t, "100.00")},
			},
		},
	}
	items := &table.Typed{
		Role: "items",
		Columns: []table.Column{
			{Key: schema.ColInvoiceID, Kind: table.KindIdentifier},
			{Key: schema.ColProductDesc, Kind: table.KindString},
			{Key: schema.ColLineValue, Kind: table.KindCurrency},
		},
		Rows: [][]table.Value{
			{
				{Kind: table.KindIdentifier, Str: "1"},
				{Kind: table.KindString, Str: "Widget"},
				{Kind: table.KindCurrency, Dec: dec(t, "100.00")},
			},
		},
	}

	ds, err := dataset.Join(header, items)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	return ds
}

func TestSnapshotWritesAllTables(t *testing.T) {
	st := newFakeStore()
	ds := testDataset(t)

	if err := Snapshot(context.Background(), st, ds); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	if len(st.specs) != 3 {
		t.Fatalf("specs = %d, want 3", len(st.specs))
	}
	for _, name := range []string{TableInvoices, TableInvoiceItems, TableSupplierTotals} {
		if _, ok := st.replaced[name]; !ok {
			t.Errorf("table %s not replaced", name)
		}
	}

	// Decimals travel as strings, never float64.
	invoices := st.replaced[TableInvoices]
	if len(invoices) != 1 {
		t.Fatalf("invoice rows = %d, want 1", len(invoices))
	}
	if got := invoices[0][2]; got != "100" {
		t.Errorf("invoice total cell = %v (%T), want \"100\"", got, got)
	}

	totals := st.replaced[TableSupplierTotals]
	if len(totals) != 1 || totals[0][0] != "Acme" {
		t.Errorf("supplier totals = %v", totals)
	}
}

func TestNewUnknownKind(t *testing.T) {
	if _, err := New(context.Background(), Config{Kind: "oracle"}); err == nil {
		t.Fatal("expected error for unregistered kind")
	}
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatal("expected error for empty kind")
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	f := func(ctx context.Context, cfg Config) (Store, error) { return newFakeStore(), nil }
	Register("store-test-dup", f)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	Register("store-test-dup", f)
}
