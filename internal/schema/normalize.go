package schema

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"nfa/internal/table"
	"nfa/internal/textnorm"
)

// Normalizer coerces raw tables into typed tables under one set of
// parsing conventions.
type Normalizer struct {
	conv Conventions
}

// NewNormalizer returns a Normalizer; zero-value conventions fall back
// to DefaultConventions.
func NewNormalizer(conv Conventions) *Normalizer {
	if len(conv.DateLayouts) == 0 {
		conv.DateLayouts = DefaultConventions().DateLayouts
	}
	return &Normalizer{conv: conv}
}

// Normalize resolves the role's required columns against the raw header
// and coerces every row. Rows failing coercion for a required column are
// excluded and recorded in the rejection log carried on the result; the
// call fails only when resolution fails or no usable rows remain.
func (n *Normalizer) Normalize(raw table.Raw, role Role) (*table.Typed, error) {
	srcIdx := make([]int, len(role.Columns))
	typed := &table.Typed{Role: role.Name}

	for i, spec := range role.Columns {
		idx := resolveColumn(raw.Header, spec)
		if idx < 0 {
			return nil, &Error{Role: role.Name, Missing: spec.Key}
		}
		srcIdx[i] = idx
		typed.Columns = append(typed.Columns, table.Column{
			Key:    spec.Key,
			Source: raw.Header[idx],
			Kind:   spec.Kind,
		})
		typed.Resolutions = append(typed.Resolutions, table.Resolution{
			Role:   role.Name,
			Key:    spec.Key,
			Source: raw.Header[idx],
		})
	}

	for ri, rec := range raw.Rows {
		row := make([]table.Value, len(role.Columns))
		ok := true
		for ci, spec := range role.Columns {
			v, err := n.coerce(spec.Kind, rec[srcIdx[ci]])
			if err != nil {
				typed.Rejections = append(typed.Rejections, table.Rejection{
					Line:   ri + 1,
					Column: spec.Key,
					Reason: err.Error(),
				})
				ok = false
				break
			}
			row[ci] = v
		}
		if ok {
			typed.Rows = append(typed.Rows, row)
		}
	}

	if len(typed.Rows) == 0 {
		return nil, &EmptyTableError{Role: role.Name, Rejected: len(typed.Rejections)}
	}
	return typed, nil
}

// resolveColumn finds the first source header matching the spec's key or
// any alias under folding.
func resolveColumn(header []string, spec ColumnSpec) int {
	candidates := append([]string{spec.Key}, spec.Aliases...)
	for _, cand := range candidates {
		for i, h := range header {
			if textnorm.EqualFold(h, cand) {
				return i
			}
		}
	}
	return -1
}

func (n *Normalizer) coerce(kind table.Kind, s string) (table.Value, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return table.Value{}, fmt.Errorf("empty value")
	}

	switch kind {
	case table.KindString, table.KindIdentifier:
		return table.Value{Kind: kind, Str: s}, nil

	case table.KindInteger:
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return table.Value{}, fmt.Errorf("not an integer: %q", s)
		}
		if i < 0 {
			return table.Value{}, fmt.Errorf("negative integer: %d", i)
		}
		return table.Value{Kind: kind, Int: i}, nil

	case table.KindNumber, table.KindCurrency:
		d, err := n.parseDecimal(s)
		if err != nil {
			return table.Value{}, err
		}
		if d.IsNegative() {
			return table.Value{}, fmt.Errorf("negative amount: %s", d)
		}
		return table.Value{Kind: kind, Dec: d}, nil

	case table.KindDate:
		for _, layout := range n.conv.DateLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return table.Value{Kind: kind, Time: ts}, nil
			}
		}
		return table.Value{}, fmt.Errorf("unparseable date: %q", s)
	}
	return table.Value{}, fmt.Errorf("unknown kind %v", kind)
}

// parseDecimal strips currency markers and applies the configured
// thousands/decimal separator convention before parsing.
func (n *Normalizer) parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.TrimPrefix(s, "R$"))
	s = strings.ReplaceAll(s, " ", "")
	if n.conv.DecimalComma {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("not a number: %q", s)
	}
	return d, nil
}
