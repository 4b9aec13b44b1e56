package query

import (
	"sort"

	"nfa/internal/textnorm"
)

// GroupRow is one group of an executed plan.
type GroupRow struct {
	Key   string
	Value float64
	Count int
}

// Outcome is the result of executing one plan: either a scalar (no
// grouping) or a list of groups.
type Outcome struct {
	Scalar   float64
	IsScalar bool
	Groups   []GroupRow
	Matched  int // rows that passed the filters
}

// Execute runs a validated plan against the view. Callers must run
// Validate first; Execute assumes every referenced column exists.
func Execute(p Plan, v View) *Outcome {
	idx := filterRows(p.Filters, v)
	out := &Outcome{Matched: len(idx)}

	if p.GroupBy == "" {
		out.IsScalar = true
		out.Scalar = aggregate(p, v, idx)
		return out
	}

	byKey := make(map[string][]int)
	order := make([]string, 0)
	for _, i := range idx {
		k := v.Dimension(i, p.GroupBy)
		if _, ok := byKey[k]; !ok {
			order = append(order, k)
		}
		byKey[k] = append(byKey[k], i)
	}

	for _, k := range order {
		rows := byKey[k]
		out.Groups = append(out.Groups, GroupRow{
			Key:   k,
			Value: aggregate(p, v, rows),
			Count: len(rows),
		})
	}

	sortGroups(out.Groups, p.Sort)
	if p.Limit > 0 && len(out.Groups) > p.Limit {
		out.Groups = out.Groups[:p.Limit]
	}
	return out
}

// filterRows returns the indices passing every dimension filter.
// Value comparison is fold-insensitive so agent-provided values match
// regardless of case or accents.
func filterRows(filters map[string][]string, v View) []int {
	idx := make([]int, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		ok := true
		for dim, allowed := range filters {
			if len(allowed) == 0 {
				continue
			}
			cell := v.Dimension(i, dim)
			match := false
			for _, want := range allowed {
				if textnorm.EqualFold(cell, want) {
					match = true
					break
				}
			}
			if !match {
				ok = false
				break
			}
		}
		if ok {
			idx = append(idx, i)
		}
	}
	return idx
}

func aggregate(p Plan, v View, idx []int) float64 {
	if p.Aggregation == AggCount {
		return float64(len(idx))
	}
	if len(idx) == 0 {
		return 0
	}

	var acc float64
	switch p.Aggregation {
	case AggMin:
		acc = v.Measure(idx[0], p.Measure)
		for _, i := range idx[1:] {
			if m := v.Measure(i, p.Measure); m < acc {
				acc = m
			}
		}
	case AggMax:
		acc = v.Measure(idx[0], p.Measure)
		for _, i := range idx[1:] {
			if m := v.Measure(i, p.Measure); m > acc {
				acc = m
			}
		}
	default: // sum, avg
		for _, i := range idx {
			acc += v.Measure(i, p.Measure)
		}
		if p.Aggregation == AggAvg {
			acc /= float64(len(idx))
		}
	}
	return acc
}

func sortGroups(groups []GroupRow, order string) {
	switch order {
	case SortValueAsc:
		sort.SliceStable(groups, func(i, j int) bool { return groups[i].Value < groups[j].Value })
	case SortKeyAsc:
		sort.SliceStable(groups, func(i, j int) bool { return groups[i].Key < groups[j].Key })
	case SortKeyDesc:
		sort.SliceStable(groups, func(i, j int) bool { return groups[i].Key > groups[j].Key })
	default: // value_desc is also the default for ranked answers
		sort.SliceStable(groups, func(i, j int) bool { return groups[i].Value > groups[j].Value })
	}
}
