package query

import (
	"strings"
	"testing"
)

// fakeView is a minimal in-memory View for executor tests.
type fakeView struct {
	dims map[string][]string
	meas map[string][]float64
	n    int
}

func newFakeView() *fakeView {
	return &fakeView{
		dims: map[string][]string{
			"supplier_name": {"Acme", "Bolt", "Acme", "Cork"},
			"product_desc":  {"Widget", "Screw", "Screw", "Widget"},
		},
		meas: map[string][]float64{
			"line_value": {100, 15, 25, 60},
			"quantity":   {2, 30, 10, 1},
		},
		n: 4,
	}
}

func (v *fakeView) Len() int { return v.n }
func (v *fakeView) Dimension(i int, key string) string {
	if vals, ok := v.dims[key]; ok {
		return vals[i]
	}
	return ""
}
func (v *fakeView) Measure(i int, key string) float64 {
	if vals, ok := v.meas[key]; ok {
		return vals[i]
	}
	return 0
}
func (v *fakeView) DimensionKeys() []string { return []string{"supplier_name", "product_desc"} }
func (v *fakeView) MeasureKeys() []string   { return []string{"line_value", "quantity"} }

func TestValidateRejectsUnknownColumns(t *testing.T) {
	v := newFakeView()

	cases := []struct {
		name string
		plan Plan
		want string
	}{
		{"unknown filter dim", Plan{Filters: map[string][]string{"password": {"x"}}, Aggregation: AggSum, Measure: "line_value"}, "unknown dimension"},
		{"unknown group dim", Plan{GroupBy: "secret", Aggregation: AggSum, Measure: "line_value"}, "unknown dimension"},
		{"unknown measure", Plan{Aggregation: AggSum, Measure: "balance"}, "unknown measure"},
		{"unknown aggregation", Plan{Aggregation: "exec"}, "unknown aggregation"},
		{"missing measure", Plan{Aggregation: AggSum}, "requires a measure"},
		{"unknown sort", Plan{Aggregation: AggCount, Sort: "random"}, "unknown sort"},
		{"negative limit", Plan{Aggregation: AggCount, Limit: -1}, "negative limit"},
	}
	for _, c := range cases {
		err := Validate(c.plan, v)
		if err == nil {
			t.Errorf("%s: expected error", c.name)
			continue
		}
		if !strings.Contains(err.Error(), c.want) {
			t.Errorf("%s: err = %v, want contains %q", c.name, err, c.want)
		}
	}

	ok := Plan{
		Filters:     map[string][]string{"supplier_name": {"Acme"}},
		GroupBy:     "product_desc",
		Aggregation: AggSum,
		Measure:     "line_value",
		Sort:        SortValueDesc,
		Limit:       5,
	}
	if err := Validate(ok, v); err != nil {
		t.Errorf("valid plan rejected: %v", err)
	}
}

func TestExecuteScalar(t *testing.T) {
	v := newFakeView()

	out := Execute(Plan{Aggregation: AggSum, Measure: "line_value"}, v)
	if !out.IsScalar || out.Scalar != 200 {
		t.Errorf("sum = %+v, want scalar 200", out)
	}

	out = Execute(Plan{Aggregation: AggCount}, v)
	if out.Scalar != 4 {
		t.Errorf("count = %v, want 4", out.Scalar)
	}

	out = Execute(Plan{Aggregation: AggAvg, Measure: "line_value"}, v)
	if out.Scalar != 50 {
		t.Errorf("avg = %v, want 50", out.Scalar)
	}

	out = Execute(Plan{Aggregation: AggMax, Measure: "quantity"}, v)
	if out.Scalar != 30 {
		t.Errorf("max = %v, want 30", out.Scalar)
	}
}

func TestExecuteFilterGroupSortLimit(t *testing.T) {
	v := newFakeView()

	out := Execute(Plan{
		GroupBy:     "product_desc",
		Aggregation: AggSum,
		Measure:     "quantity",
		Sort:        SortValueDesc,
		Limit:       1,
	}, v)
	if len(out.Groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(out.Groups))
	}
	if out.Groups[0].Key != "Screw" || out.Groups[0].Value != 40 {
		t.Errorf("top group = %+v, want Screw=40", out.Groups[0])
	}

	// Filters match fold-insensitively.
	out = Execute(Plan{
		Filters:     map[string][]string{"supplier_name": {"ACME"}},
		Aggregation: AggSum,
		Measure:     "line_value",
	}, v)
	if out.Scalar != 125 || out.Matched != 2 {
		t.Errorf("filtered sum = %v matched = %d, want 125/2", out.Scalar, out.Matched)
	}
}
