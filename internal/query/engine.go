package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"nfa/internal/dataset"
	"nfa/internal/table"

	"github.com/shopspring/decimal"
)

// Logger is the minimal logging interface used by the engine.
// *log.Logger satisfies this interface.
type Logger interface {
	Printf(format string, v ...any)
}

// Schema describes the analytical table to the delegated agent: column
// names only, never raw data beyond the previews the engine chooses to
// share.
type Schema struct {
	Dimensions []string
	Measures   []string
	RowCount   int
}

// StepRecord is one prior turn of the delegation loop, fed back to the
// agent so it can inspect intermediate results and refine — or see what
// went wrong with its last attempt.
type StepRecord struct {
	PlanJSON string
	Preview  string
	Err      string
}

// TranslateRequest is what the delegated agent consumes on each turn.
type TranslateRequest struct {
	Question string
	Schema   Schema
	Steps    []StepRecord
	Hint     string
}

// Directive is what the delegated agent produces on each turn: either
// "run" (execute a plan and show me the result) or "final" (the answer,
// optionally with the plan that computes the returned value or table).
type Directive struct {
	Op          string `json:"op"`
	Plan        *Plan  `json:"plan,omitempty"`
	Answer      string `json:"answer,omitempty"`
	Explanation string `json:"explanation,omitempty"`
}

// Translator is the boundary to the external reasoning agent.
// Implementations live in internal/agent; tests use fakes.
type Translator interface {
	Next(ctx context.Context, req TranslateRequest) (*Directive, error)
}

// Options bound the delegation loop.
type Options struct {
	// MaxSteps is the hard ceiling on agent turns per question.
	MaxSteps int
	// MaxRetries bounds consecutive transient agent failures.
	MaxRetries int
	// MaxResultRows caps the size of a returned table.
	MaxResultRows int
	// TopN is the default ranked-list size for fast-path answers.
	TopN int
	// Timeout is the per-question wall-clock ceiling. Zero disables the
	// engine-imposed deadline (the caller's ctx still applies).
	Timeout time.Duration

	Logger Logger
}

func (o *Options) defaults() {
	if o.MaxSteps <= 0 {
		o.MaxSteps = 8
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 2
	}
	if o.MaxResultRows <= 0 {
		o.MaxResultRows = 20
	}
	if o.TopN <= 0 {
		o.TopN = 5
	}
}

// ResultTable is a small tabular payload attached to ranked answers.
type ResultTable struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Answer is the structured result of one question, with provenance:
// Trace lists the exact computations executed, in order, so answers are
// auditable even when the delegated reasoning is not bit-reproducible.
type Answer struct {
	Question    string       `json:"question"`
	Text        string       `json:"answer"`
	Explanation string       `json:"explanation,omitempty"`
	Trace       []string     `json:"computation_trace"`
	Table       *ResultTable `json:"result_table,omitempty"`
	FastPath    bool         `json:"fast_path"`
	Certain     bool         `json:"certain"`
}

// Engine answers questions against one dataset at a time.
type Engine struct {
	tr  Translator
	opt Options
}

// New returns an Engine. tr may be nil, in which case only fast-path
// questions can be answered.
func New(tr Translator, opt Options) *Engine {
	opt.defaults()
	return &Engine{tr: tr, opt: opt}
}

func (e *Engine) logf(format string, v ...any) {
	if e.opt.Logger != nil {
		e.opt.Logger.Printf(format, v...)
	}
}

// Answer resolves one question. Fast-path patterns are answered from the
// dataset's summary views; everything else goes through the bounded
// delegation loop. The caller's ctx deadline/cancellation is honored:
// an in-flight delegated call is aborted and a TimeoutError returned.
func (e *Engine) Answer(ctx context.Context, question string, ds *dataset.Dataset) (*Answer, error) {
	if ans, ok := e.fastPath(question, ds); ok {
		e.logf("stage=answer path=fast question=%q", question)
		return ans, nil
	}

	if e.tr == nil {
		return nil, &Error{Question: question, LastFailure: "no delegated agent configured"}
	}

	if e.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opt.Timeout)
		defer cancel()
	}

	v := ds.View()
	req := TranslateRequest{
		Question: question,
		Schema: Schema{
			Dimensions: v.DimensionKeys(),
			Measures:   v.MeasureKeys(),
			RowCount:   v.Len(),
		},
	}

	var (
		trace          []string
		retries        int
		lastFailure    string
		askedToAggOnce bool
	)

	for step := 0; step < e.opt.MaxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return nil, e.ctxError(err, question, trace)
		}

		dir, err := e.tr.Next(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, e.ctxError(ctx.Err(), question, trace)
			}
			retries++
			lastFailure = err.Error()
			e.logf("stage=delegate step=%d transient_failure=%q retry=%d/%d", step, lastFailure, retries, e.opt.MaxRetries)
			if retries > e.opt.MaxRetries {
				return nil, &Error{Question: question, LastFailure: lastFailure}
			}
			// Feed the failure back as context for the next attempt.
			req.Steps = append(req.Steps, StepRecord{Err: lastFailure})
			continue
		}
		retries = 0

		switch dir.Op {
		case "run":
			rec, _ := e.runStep(dir.Plan, v, &trace)
			req.Steps = append(req.Steps, rec)

		case "final":
			if dir.Plan == nil {
				// A free-text answer with no executed computation has no
				// provenance; require at least one prior step, and never
				// present it as certain.
				if len(trace) == 0 {
					req.Steps = append(req.Steps, StepRecord{Err: "a final answer must be grounded in an executed plan"})
					continue
				}
				return &Answer{
					Question:    question,
					Text:        dir.Answer,
					Explanation: dir.Explanation,
					Trace:       trace,
					Certain:     false,
				}, nil
			}

			rec, out := e.runStep(dir.Plan, v, &trace)
			if rec.Err != "" {
				req.Steps = append(req.Steps, rec)
				continue
			}

			if len(out.Groups) > e.opt.MaxResultRows {
				if askedToAggOnce {
					return nil, &ResultTooLargeError{Rows: len(out.Groups), Max: e.opt.MaxResultRows}
				}
				askedToAggOnce = true
				req.Hint = fmt.Sprintf("the result had %d rows; aggregate or limit it to at most %d rows before returning", len(out.Groups), e.opt.MaxResultRows)
				req.Steps = append(req.Steps, StepRecord{PlanJSON: dir.Plan.JSON(), Err: "result too large"})
				e.logf("stage=delegate step=%d oversize_rows=%d retrying_with_aggregate_hint", step, len(out.Groups))
				continue
			}

			ans := e.buildAnswer(question, dir, out, trace)
			e.logf("stage=answer path=delegate steps=%d trace_len=%d", step+1, len(trace))
			return ans, nil

		default:
			req.Steps = append(req.Steps, StepRecord{Err: fmt.Sprintf("unknown op %q; use \"run\" or \"final\"", dir.Op)})
		}
	}

	return nil, &TimeoutError{Question: question, Trace: trace}
}

// runStep validates and executes one plan, appending it to the trace on
// success and returning the record the agent sees next turn.
func (e *Engine) runStep(p *Plan, v View, trace *[]string) (StepRecord, *Outcome) {
	if p == nil {
		return StepRecord{Err: "op \"run\" requires a plan"}, nil
	}
	if err := Validate(*p, v); err != nil {
		return StepRecord{PlanJSON: p.JSON(), Err: err.Error()}, nil
	}
	out := Execute(*p, v)
	*trace = append(*trace, p.JSON())
	return StepRecord{PlanJSON: p.JSON(), Preview: preview(out)}, out
}

// preview renders a compact, bounded view of an outcome for the agent.
func preview(out *Outcome) string {
	if out.IsScalar {
		return fmt.Sprintf("scalar=%s rows_matched=%d", trimFloat(out.Scalar), out.Matched)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "groups=%d rows_matched=%d top:", len(out.Groups), out.Matched)
	for i, g := range out.Groups {
		if i == 5 {
			b.WriteString(" ...")
			break
		}
		fmt.Fprintf(&b, " %s=%s", g.Key, trimFloat(g.Value))
	}
	return b.String()
}

func (e *Engine) buildAnswer(question string, dir *Directive, out *Outcome, trace []string) *Answer {
	ans := &Answer{
		Question:    question,
		Explanation: dir.Explanation,
		Trace:       trace,
		Certain:     true,
	}

	value := ""
	if out.IsScalar {
		value = trimFloat(out.Scalar)
	} else {
		ans.Table = groupsTable(out.Groups)
		if len(out.Groups) > 0 {
			value = fmt.Sprintf("%s (%s)", out.Groups[0].Key, trimFloat(out.Groups[0].Value))
		}
	}

	switch {
	case dir.Answer == "":
		ans.Text = "Resultado: " + value
	case strings.Contains(dir.Answer, "{value}"):
		ans.Text = strings.ReplaceAll(dir.Answer, "{value}", value)
	default:
		ans.Text = dir.Answer
	}
	return ans
}

func (e *Engine) ctxError(err error, question string, trace []string) error {
	return &TimeoutError{
		Question:  question,
		Cancelled: errors.Is(err, context.Canceled),
		Trace:     trace,
	}
}

func groupsTable(groups []GroupRow) *ResultTable {
	t := &ResultTable{Columns: []string{"grupo", "valor", "registros"}}
	for _, g := range groups {
		t.Rows = append(t.Rows, []string{g.Key, trimFloat(g.Value), fmt.Sprintf("%d", g.Count)})
	}
	return t
}

// trimFloat renders a float without artificial trailing noise, using
// decimal formatting for stable output.
func trimFloat(f float64) string {
	return decimal.NewFromFloat(f).Round(2).String()
}

// FormatBRLFloat renders a float measure as Brazilian currency.
func FormatBRLFloat(f float64) string {
	return table.FormatBRL(decimal.NewFromFloat(f).Round(2))
}
