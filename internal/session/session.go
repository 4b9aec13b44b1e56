// Package session owns the single mutable piece of state in the system:
// the currently loaded archive. A Controller runs the ingestion pipeline
// (extract, reconcile, join), hands the result to the question engine,
// and replaces the whole state atomically when a new archive arrives.
package session

import (
	"context"
	"sync"
	"time"

	"nfa/internal/archive"
	"nfa/internal/dataset"
	"nfa/internal/metrics"
	"nfa/internal/query"
	"nfa/internal/schema"
	"nfa/internal/store"
)

// NotReadyError is returned for any question or summary request made
// before an archive has been loaded successfully.
type NotReadyError struct{}

func (e *NotReadyError) Error() string { return "session: no archive loaded" }
func (e *NotReadyError) Code() string  { return "not_ready" }

// Logger is the minimal logging interface used by the controller.
// *log.Logger satisfies this interface.
type Logger interface {
	Printf(format string, v ...any)
}

// Session is one successfully loaded archive.
type Session struct {
	Dataset  *dataset.Dataset
	LoadedAt time.Time

	// Per-role row rejection counts from schema reconciliation.
	HeaderRejected int
	ItemsRejected  int
}

// Options configure a Controller. Zero values select defaults; Store and
// Metrics are optional.
type Options struct {
	Archive     archive.Options
	Schemas     schema.Set          // zero value selects schema.DefaultSet
	Conventions *schema.Conventions // nil selects schema.DefaultConventions

	// Store, when set, receives a snapshot of each loaded archive.
	Store store.Store
	// Metrics, when nil, defaults to the nop backend.
	Metrics metrics.Backend

	Logger Logger
}

// Controller serializes archive loads and routes questions to the
// engine. Exactly one session is active at a time; loading a new archive
// discards the previous one entirely.
type Controller struct {
	loader  *archive.Loader
	norm    *schema.Normalizer
	engine  *query.Engine
	schemas schema.Set
	st      store.Store
	met     metrics.Backend
	logger  Logger

	mu   sync.RWMutex
	sess *Session
}

// NewController wires the pipeline. engine must be non-nil.
func NewController(engine *query.Engine, opt Options) *Controller {
	schemas := opt.Schemas
	if len(schemas.Header.Columns) == 0 {
		schemas = schema.DefaultSet()
	}
	conv := schema.DefaultConventions()
	if opt.Conventions != nil {
		conv = *opt.Conventions
	}
	met := opt.Metrics
	if met == nil {
		met = metrics.Nop()
	}

	return &Controller{
		loader:  archive.NewLoader(opt.Archive),
		norm:    schema.NewNormalizer(conv),
		engine:  engine,
		schemas: schemas,
		st:      opt.Store,
		met:     met,
		logger:  opt.Logger,
	}
}

func (c *Controller) logf(format string, v ...any) {
	if c.logger != nil {
		c.logger.Printf(format, v...)
	}
}

// LoadArchive runs the full ingestion pipeline on a zip archive and, on
// success, replaces the active session. On any failure the previous
// session (if one exists) remains active and queryable.
func (c *Controller) LoadArchive(ctx context.Context, data []byte) (*Session, error) {
	start := time.Now()

	sess, err := c.build(ctx, data)
	if err != nil {
		c.met.IncCounter(metrics.ArchiveLoadsTotal, 1, metrics.Labels{"status": "error"})
		c.logf("stage=load error=%q duration=%s", err, time.Since(start).Round(time.Millisecond))
		return nil, err
	}

	c.mu.Lock()
	c.sess = sess
	c.mu.Unlock()

	ds := sess.Dataset
	c.met.IncCounter(metrics.ArchiveLoadsTotal, 1, metrics.Labels{"status": "ok"})
	c.met.IncCounter(metrics.RowsTotal, float64(len(ds.Rows)), metrics.Labels{"kind": "joined"})
	c.met.IncCounter(metrics.RowsTotal, float64(ds.Orphans), metrics.Labels{"kind": "orphaned"})
	c.met.IncCounter(metrics.RowsTotal, float64(sess.HeaderRejected+sess.ItemsRejected), metrics.Labels{"kind": "rejected"})
	c.met.ObserveHistogram(metrics.LoadDurationSeconds, time.Since(start).Seconds(), nil)

	c.logf("stage=load ok invoices=%d rows=%d orphans=%d rejected_header=%d rejected_items=%d duration=%s",
		ds.InvoiceCount(), len(ds.Rows), ds.Orphans, sess.HeaderRejected, sess.ItemsRejected,
		time.Since(start).Round(time.Millisecond))
	return sess, nil
}

func (c *Controller) build(ctx context.Context, data []byte) (*Session, error) {
	res, err := c.loader.Load(ctx, data)
	if err != nil {
		return nil, err
	}

	header, err := c.norm.Normalize(res.Header, c.schemas.Header)
	if err != nil {
		return nil, err
	}
	items, err := c.norm.Normalize(res.Items, c.schemas.Items)
	if err != nil {
		return nil, err
	}

	for _, r := range header.Resolutions {
		c.logf("stage=reconcile role=header column=%s source=%q", r.Key, r.Source)
	}
	for _, r := range items.Resolutions {
		c.logf("stage=reconcile role=items column=%s source=%q", r.Key, r.Source)
	}

	ds, err := dataset.Join(header, items)
	if err != nil {
		return nil, err
	}

	if c.st != nil {
		// The mirror is for external readers; a broken mirror must not
		// make the archive unqueryable.
		if err := store.Snapshot(ctx, c.st, ds); err != nil {
			c.logf("stage=snapshot error=%q", err)
		} else {
			c.logf("stage=snapshot ok tables=3")
		}
	}

	return &Session{
		Dataset:        ds,
		LoadedAt:       time.Now(),
		HeaderRejected: len(header.Rejections),
		ItemsRejected:  len(items.Rejections),
	}, nil
}

// Current returns the active session, or nil before the first successful
// load.
func (c *Controller) Current() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sess
}

// Ask answers one question against the active session. A failed question
// leaves the session untouched; the caller can ask again.
func (c *Controller) Ask(ctx context.Context, question string) (*query.Answer, error) {
	sess := c.Current()
	if sess == nil {
		return nil, &NotReadyError{}
	}

	start := time.Now()
	ans, err := c.engine.Answer(ctx, question, sess.Dataset)

	path := "delegate"
	status := "ok"
	if ans != nil && ans.FastPath {
		path = "fast"
	}
	if err != nil {
		status = "error"
	}
	c.met.IncCounter(metrics.QuestionsTotal, 1, metrics.Labels{"path": path, "status": status})
	c.met.ObserveHistogram(metrics.QuestionDurationSeconds, time.Since(start).Seconds(), metrics.Labels{"path": path})

	if err != nil {
		c.logf("stage=ask error=%q question=%q duration=%s", err, question, time.Since(start).Round(time.Millisecond))
		return nil, err
	}
	c.logf("stage=ask ok path=%s question=%q duration=%s", path, question, time.Since(start).Round(time.Millisecond))
	return ans, nil
}

// Describe returns the human-readable summary of the active dataset.
func (c *Controller) Describe() (string, error) {
	sess := c.Current()
	if sess == nil {
		return "", &NotReadyError{}
	}
	return sess.Dataset.Describe(), nil
}
