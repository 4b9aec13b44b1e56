// Package httpapi exposes the session controller over HTTP: archive
// upload, questions, and the dataset summary. Payloads are JSON; errors
// carry the pipeline's stable error codes.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"nfa/internal/session"
)

// Logger is the minimal logging interface used by the server.
type Logger interface {
	Printf(format string, v ...any)
}

// Options configure the HTTP surface.
type Options struct {
	// MaxUploadBytes bounds the archive request body. Zero means 256 MiB.
	MaxUploadBytes int64

	Logger Logger
}

func (o *Options) defaults() {
	if o.MaxUploadBytes <= 0 {
		o.MaxUploadBytes = 256 << 20
	}
}

// Server routes HTTP requests to a session controller.
type Server struct {
	ctrl   *session.Controller
	opt    Options
	router chi.Router
}

// NewServer builds the router. The returned Server is an http.Handler.
func NewServer(ctrl *session.Controller, opt Options) *Server {
	opt.defaults()
	s := &Server{ctrl: ctrl, opt: opt}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/api/archive", s.handleArchive)
	r.Post("/api/ask", s.handleAsk)
	r.Get("/api/summary", s.handleSummary)
	r.Get("/healthz", s.handleHealth)
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) logf(format string, v ...any) {
	if s.opt.Logger != nil {
		s.opt.Logger.Printf(format, v...)
	}
}

type loadResponse struct {
	Invoices       int       `json:"invoices"`
	Rows           int       `json:"rows"`
	Orphans        int       `json:"orphans"`
	HeaderRejected int       `json:"header_rejected"`
	ItemsRejected  int       `json:"items_rejected"`
	LoadedAt       time.Time `json:"loaded_at"`
}

// handleArchive accepts the zip either as a multipart "file" part or as
// a raw request body.
func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	data, err := readArchive(r, s.opt.MaxUploadBytes)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	sess, err := s.ctrl.LoadArchive(r.Context(), data)
	if err != nil {
		s.writeTypedError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loadResponse{
		Invoices:       sess.Dataset.InvoiceCount(),
		Rows:           len(sess.Dataset.Rows),
		Orphans:        sess.Dataset.Orphans,
		HeaderRejected: sess.HeaderRejected,
		ItemsRejected:  sess.ItemsRejected,
		LoadedAt:       sess.LoadedAt,
	})
}

type askRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "question is required")
		return
	}

	ans, err := s.ctrl.Ask(r.Context(), req.Question)
	if err != nil {
		s.writeTypedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ans)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	desc, err := s.ctrl.Describe()
	if err != nil {
		s.writeTypedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"summary": desc})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func readArchive(r *http.Request, max int64) ([]byte, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, max)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(max); err != nil {
			return nil, err
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			return nil, errors.New(`multipart upload needs a "file" part`)
		}
		defer f.Close()
		return io.ReadAll(f)
	}

	return io.ReadAll(r.Body)
}

// coder is satisfied by every typed pipeline error.
type coder interface {
	error
	Code() string
}

// statusFor maps stable error codes onto HTTP statuses.
func statusFor(code string) int {
	switch code {
	case "not_ready":
		return http.StatusConflict
	case "archive_format", "schema", "empty_table", "join", "duplicate_key", "result_too_large":
		return http.StatusUnprocessableEntity
	case "query_timeout", "query_cancelled":
		return http.StatusGatewayTimeout
	case "query":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeTypedError(w http.ResponseWriter, err error) {
	var c coder
	if errors.As(err, &c) {
		s.logf("stage=http error=%q code=%s", err, c.Code())
		writeError(w, statusFor(c.Code()), c.Code(), c.Error())
		return
	}
	s.logf("stage=http error=%q code=internal", err)
	writeError(w, http.StatusInternalServerError, "internal", err.Error())
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{"error": msg, "code": code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
