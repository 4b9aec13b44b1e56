// Package query answers natural-language questions about the analytical
// dataset.
//
// Questions are never parsed into computations by bespoke logic. A small
// set of canonical patterns is answered directly from the precomputed
// summary views (the fast path); everything else is delegated to an
// external reasoning agent that emits a Plan — a closed intermediate
// representation of tabular operations (filter, group, aggregate, sort,
// limit). The engine validates each plan against the dataset's column
// allowlist before executing it locally. Because the IR has no file,
// network, or code-execution operations, side effects are unexpressible
// by construction rather than filtered after the fact.
package query

import (
	"encoding/json"
	"fmt"
)

// View is the read-only access the engine has to the analytical table.
// *dataset.View satisfies it.
type View interface {
	Len() int
	Dimension(i int, key string) string
	Measure(i int, key string) float64
	DimensionKeys() []string
	MeasureKeys() []string
}

// Aggregations accepted in a Plan.
const (
	AggSum   = "sum"
	AggCount = "count"
	AggAvg   = "avg"
	AggMin   = "min"
	AggMax   = "max"
)

// Sort orders accepted in a Plan.
const (
	SortValueDesc = "value_desc"
	SortValueAsc  = "value_asc"
	SortKeyAsc    = "key_asc"
	SortKeyDesc   = "key_desc"
)

// Plan is the bounded tabular computation the delegated agent may
// request. Filter values are OR'd within a dimension and AND'd across
// dimensions.
type Plan struct {
	Filters     map[string][]string `json:"filters,omitempty"`
	GroupBy     string              `json:"group_by,omitempty"`
	Aggregation string              `json:"aggregation"`
	Measure     string              `json:"measure,omitempty"`
	Sort        string              `json:"sort,omitempty"`
	Limit       int                 `json:"limit,omitempty"`
}

// JSON renders the plan for the computation trace.
func (p Plan) JSON() string {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Sprintf("%+v", p)
	}
	return string(b)
}

// Validate checks the plan against the view's column allowlist and the
// closed operation set. It must pass before Execute runs.
func Validate(p Plan, v View) error {
	dims := make(map[string]bool)
	for _, k := range v.DimensionKeys() {
		dims[k] = true
	}
	meas := make(map[string]bool)
	for _, k := range v.MeasureKeys() {
		meas[k] = true
	}

	for dim := range p.Filters {
		if !dims[dim] {
			return fmt.Errorf("plan references unknown dimension %q", dim)
		}
	}
	if p.GroupBy != "" && !dims[p.GroupBy] {
		return fmt.Errorf("plan groups by unknown dimension %q", p.GroupBy)
	}

	switch p.Aggregation {
	case AggSum, AggAvg, AggMin, AggMax:
		if p.Measure == "" {
			return fmt.Errorf("aggregation %q requires a measure", p.Aggregation)
		}
		if !meas[p.Measure] {
			return fmt.Errorf("plan references unknown measure %q", p.Measure)
		}
	case AggCount:
		if p.Measure != "" && !meas[p.Measure] {
			return fmt.Errorf("plan references unknown measure %q", p.Measure)
		}
	default:
		return fmt.Errorf("unknown aggregation %q", p.Aggregation)
	}

	switch p.Sort {
	case "", SortValueDesc, SortValueAsc, SortKeyAsc, SortKeyDesc:
	default:
		return fmt.Errorf("unknown sort %q", p.Sort)
	}

	if p.Limit < 0 {
		return fmt.Errorf("negative limit %d", p.Limit)
	}
	return nil
}
