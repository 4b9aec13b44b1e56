// Package metrics defines the minimal instrumentation surface the rest of
// the code depends on. Backends (see the datadog subpackage) buffer and
// ship the values; a nop backend keeps instrumentation free when no
// backend is configured.
package metrics

// Labels attach low-cardinality dimensions to a metric sample.
type Labels map[string]string

// Metric names used across the pipeline. Counters end in _total;
// histograms carry their unit in the name.
const (
	ArchiveLoadsTotal = "nfa_archive_loads_total" // labels: status=ok|error
	QuestionsTotal    = "nfa_questions_total"     // labels: path=fast|delegate, status=ok|error
	RowsTotal         = "nfa_rows_total"          // labels: kind=joined|orphaned|rejected

	LoadDurationSeconds     = "nfa_load_duration_seconds"
	QuestionDurationSeconds = "nfa_question_duration_seconds" // labels: path
)

// Backend receives metric samples. Implementations must be safe for
// concurrent use; they may buffer and submit asynchronously.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}

// Nop returns a backend that drops everything.
func Nop() Backend { return nopBackend{} }
