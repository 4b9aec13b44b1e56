package dataset

import "nfa/internal/table"

// View adapts the analytical table to the query engine's read interface:
// string dimensions for filtering/grouping, float64 measures for
// aggregation. It holds indices into the dataset, no copies.
type View struct {
	d     *Dataset
	dims  []string
	meas  []string
	byKey map[string]int
}

// View returns the query-facing view of the analytical table.
func (d *Dataset) View() *View {
	v := &View{d: d, byKey: make(map[string]int, len(d.Columns))}
	for i, c := range d.Columns {
		v.byKey[c.Key] = i
		switch c.Kind {
		case table.KindString, table.KindIdentifier, table.KindDate:
			v.dims = append(v.dims, c.Key)
		default:
			v.meas = append(v.meas, c.Key)
		}
	}
	return v
}

// Len returns the number of analytical rows.
func (v *View) Len() int { return len(v.d.Rows) }

// Dimension returns the string form of a dimension cell.
func (v *View) Dimension(i int, key string) string {
	ci, ok := v.byKey[key]
	if !ok || i < 0 || i >= len(v.d.Rows) {
		return ""
	}
	return v.d.Rows[i][ci].String()
}

// Measure returns a numeric cell as float64.
func (v *View) Measure(i int, key string) float64 {
	ci, ok := v.byKey[key]
	if !ok || i < 0 || i >= len(v.d.Rows) {
		return 0
	}
	return v.d.Rows[i][ci].Float()
}

// DimensionKeys lists the groupable/filterable columns.
func (v *View) DimensionKeys() []string { return v.dims }

// MeasureKeys lists the aggregatable columns.
func (v *View) MeasureKeys() []string { return v.meas }
