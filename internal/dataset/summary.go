package dataset

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"nfa/internal/schema"
	"nfa/internal/table"
)

// Scope selects which rows a summary aggregates over.
type Scope string

const (
	// ScopeInvoices aggregates over the header table (one row per
	// invoice, including invoices whose lines were all orphaned away).
	ScopeInvoices Scope = "invoices"
	// ScopeLines aggregates over the analytical table.
	ScopeLines Scope = "lines"
)

// Bucket is one group of a summary view.
type Bucket struct {
	Key   string
	Value decimal.Decimal
	Count int
}

// bucketKey identifies a memoized summary: grouping column, metric
// column, and scope. The underlying tables are immutable, so entries
// never need eviction.
type bucketKey struct {
	scope  Scope
	group  string
	metric string
}

type totals struct {
	once       sync.Once
	totalValue decimal.Decimal
	count      int
	mean       decimal.Decimal
}

func (d *Dataset) computeTotals() *totals {
	d.mu.Lock()
	if d.totals == nil {
		d.totals = &totals{}
	}
	t := d.totals
	d.mu.Unlock()

	t.once.Do(func() {
		ti := d.Header.ColumnIndex(schema.ColInvoiceTotal)
		for _, row := range d.Header.Rows {
			t.totalValue = t.totalValue.Add(decCell(row[ti]))
		}
		t.count = len(d.Header.Rows)
		if t.count > 0 {
			t.mean = t.totalValue.DivRound(decimal.NewFromInt(int64(t.count)), 2)
		}
	})
	return t
}

// TotalValue returns the global declared total across all invoices.
func (d *Dataset) TotalValue() decimal.Decimal { return d.computeTotals().totalValue }

// InvoiceCount returns the number of invoices in the header table.
func (d *Dataset) InvoiceCount() int { return d.computeTotals().count }

// MeanInvoiceValue returns the mean declared value per invoice.
func (d *Dataset) MeanInvoiceValue() decimal.Decimal { return d.computeTotals().mean }

// GroupSum aggregates metric by group over the chosen scope, summing
// values and counting rows per bucket, sorted by value descending.
// Results are memoized; concurrent callers are safe.
func (d *Dataset) GroupSum(scope Scope, group, metric string) []Bucket {
	key := bucketKey{scope: scope, group: group, metric: metric}

	d.mu.RLock()
	if cached, ok := d.buckets[key]; ok {
		d.mu.RUnlock()
		return cached
	}
	d.mu.RUnlock()

	var cols []table.Column
	var rows [][]table.Value
	switch scope {
	case ScopeInvoices:
		cols, rows = d.Header.Columns, d.Header.Rows
	default:
		cols, rows = d.Columns, d.Rows
	}

	gi, mi := -1, -1
	for i, c := range cols {
		switch c.Key {
		case group:
			gi = i
		case metric:
			mi = i
		}
	}
	if gi < 0 || mi < 0 {
		return nil
	}

	sums := make(map[string]*Bucket)
	order := make([]string, 0)
	for _, row := range rows {
		k := row[gi].String()
		b, ok := sums[k]
		if !ok {
			b = &Bucket{Key: k}
			sums[k] = b
			order = append(order, k)
		}
		b.Value = b.Value.Add(decCell(row[mi]))
		b.Count++
	}

	out := make([]Bucket, 0, len(order))
	for _, k := range order {
		out = append(out, *sums[k])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Value.GreaterThan(out[j].Value)
	})

	d.mu.Lock()
	d.buckets[key] = out
	d.mu.Unlock()
	return out
}

// SupplierTotals returns per-supplier declared total and invoice count,
// highest total first.
func (d *Dataset) SupplierTotals() []Bucket {
	return d.GroupSum(ScopeInvoices, schema.ColSupplierName, schema.ColInvoiceTotal)
}

// ProductQuantities returns per-product total quantity, highest first.
func (d *Dataset) ProductQuantities() []Bucket {
	return d.GroupSum(ScopeLines, schema.ColProductDesc, schema.ColQuantity)
}

// ProductValues returns per-product total line value, highest first.
func (d *Dataset) ProductValues() []Bucket {
	return d.GroupSum(ScopeLines, schema.ColProductDesc, schema.ColLineValue)
}
