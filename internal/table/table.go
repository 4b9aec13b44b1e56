// Package table defines the tabular value types shared by the ingestion
// pipeline and the query engine.
//
// Three table shapes flow through the system:
//   - Raw:   header row + string cells, straight out of a CSV member.
//   - Typed: columns resolved to canonical keys, cells coerced to kinds.
//   - the joined analytical rows live in internal/dataset.
//
// Invariants:
//   - Raw rows all share the header's column set (enforced at parse time).
//   - Typed coercion is total: a row that fails coercion for a required
//     column is excluded and recorded in Rejections, never silently dropped.
package table

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Kind is the semantic type assigned to a column.
type Kind int

const (
	KindString Kind = iota
	KindIdentifier
	KindInteger
	KindNumber // non-negative decimal quantity
	KindCurrency
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindIdentifier:
		return "identifier"
	case KindInteger:
		return "integer"
	case KindNumber:
		return "number"
	case KindCurrency:
		return "currency"
	case KindDate:
		return "date"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Column describes one typed column: the canonical key the rest of the
// system uses, the source header it was resolved from, and its kind.
type Column struct {
	Key    string
	Source string
	Kind   Kind
}

// Value is one coerced cell. Exactly one of the payload fields is
// meaningful, selected by Kind.
type Value struct {
	Kind Kind
	Str  string
	Int  int64
	Dec  decimal.Decimal
	Time time.Time
}

// String renders the cell for display and for plan traces.
func (v Value) String() string {
	switch v.Kind {
	case KindInteger:
		return fmt.Sprintf("%d", v.Int)
	case KindNumber, KindCurrency:
		return v.Dec.String()
	case KindDate:
		return v.Time.Format("2006-01-02")
	default:
		return v.Str
	}
}

// Float returns the cell as a float64 measure. Non-numeric kinds are 0.
func (v Value) Float() float64 {
	switch v.Kind {
	case KindInteger:
		return float64(v.Int)
	case KindNumber, KindCurrency:
		f, _ := v.Dec.Float64()
		return f
	}
	return 0
}

// Raw is an unvalidated table parsed from one CSV member.
type Raw struct {
	Name   string // archive member name, for diagnostics
	Header []string
	Rows   [][]string
}

// Typed is a validated table with coerced cells.
type Typed struct {
	Role        string
	Columns     []Column
	Rows        [][]Value
	Resolutions []Resolution
	Rejections  []Rejection
}

// ColumnIndex returns the index of the column with the given canonical
// key, or -1 when absent.
func (t *Typed) ColumnIndex(key string) int {
	for i, c := range t.Columns {
		if c.Key == key {
			return i
		}
	}
	return -1
}

// Resolution records one alias-resolution decision (which source header
// was picked for a canonical column). Kept for auditability: first-match
// resolution can mask data-quality issues, so every pick is on record.
type Resolution struct {
	Role   string
	Key    string
	Source string
}

// Rejection records one excluded row with enough detail to fix the input.
type Rejection struct {
	Line   int // 1-based data row index within the source CSV
	Column string
	Reason string
}

func (r Rejection) String() string {
	return fmt.Sprintf("row %d: column %q: %s", r.Line, r.Column, r.Reason)
}
