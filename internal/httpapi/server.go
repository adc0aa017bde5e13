// Package httpapi exposes the review pipeline over HTTP.
//
// Routes:
//
//   - POST /v1/reviews  — review a transcript (JSON) or a call recording
//     (multipart form with an "audio" part, transcribed first).
//   - GET /healthz, /readyz — liveness and readiness probes.
//   - GET /coach/health — coach backend self-diagnostics.
//   - GET /metrics — Prometheus scrape endpoint.
//
// All routes run behind [observe.Middleware], so every request carries a
// trace, a duration metric, and an X-Correlation-ID response header.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hotelcx/callaudit/internal/health"
	"github.com/hotelcx/callaudit/internal/observe"
	"github.com/hotelcx/callaudit/internal/review"
	"github.com/hotelcx/callaudit/internal/stt"
)

// maxBodyBytes caps request bodies. Recordings dominate; transcripts are
// tiny by comparison.
const maxBodyBytes = 32 << 20

// CoachHealthFunc produces the coach backend's self-diagnostics document.
// The result is rendered as the /coach/health response body.
type CoachHealthFunc func(ctx context.Context) any

// Server routes HTTP requests to the review pipeline.
type Server struct {
	reviewer    *review.Reviewer
	health      *health.Handler
	transcriber stt.Transcriber
	coachHealth CoachHealthFunc
	metrics     *observe.Metrics
	validate    *validator.Validate
}

// Option configures a [Server].
type Option func(*Server)

// WithHealth sets the liveness/readiness handler. Defaults to a handler
// with no readiness checks.
func WithHealth(h *health.Handler) Option {
	return func(s *Server) { s.health = h }
}

// WithTranscriber enables the audio variant of POST /v1/reviews. Without
// one, multipart requests are rejected with 501.
func WithTranscriber(t stt.Transcriber) Option {
	return func(s *Server) { s.transcriber = t }
}

// WithCoachHealth sets the /coach/health diagnostics source.
func WithCoachHealth(fn CoachHealthFunc) Option {
	return func(s *Server) { s.coachHealth = fn }
}

// WithMetrics sets the metrics instance. Defaults to
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// New creates a Server around the given reviewer.
func New(r *review.Reviewer, opts ...Option) *Server {
	s := &Server{
		reviewer: r,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.health == nil {
		s.health = health.New()
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// Handler returns the fully-routed handler, middleware included.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/reviews", s.handleReview)
	mux.HandleFunc("GET /coach/health", s.handleCoachHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	s.health.Register(mux)
	return observe.Middleware(s.metrics)(mux)
}

// reviewRequest is the JSON body of POST /v1/reviews.
type reviewRequest struct {
	// Transcript is the raw call transcript. It is redacted before any
	// scoring or coaching sees it.
	Transcript string `json:"transcript" validate:"required"`
}

// errorResponse is the JSON body of every non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
}

// handleReview accepts either a JSON transcript or a multipart recording.
func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, http.StatusUnsupportedMediaType, "unparseable Content-Type")
		return
	}

	var raw string
	switch mediaType {
	case "application/json":
		raw, err = s.readTranscript(r)
	case "multipart/form-data":
		raw, err = s.transcribeUpload(r)
	default:
		writeError(w, http.StatusUnsupportedMediaType, "expected application/json or multipart/form-data")
		return
	}
	if err != nil {
		var httpErr *requestError
		if errors.As(err, &httpErr) {
			writeError(w, httpErr.status, httpErr.msg)
			return
		}
		observe.Logger(r.Context()).Error("review request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	res, err := s.reviewer.Review(r.Context(), raw)
	if err != nil {
		// Review only fails on context cancellation.
		observe.Logger(r.Context()).Warn("review aborted", "error", err)
		writeError(w, http.StatusServiceUnavailable, "review aborted")
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// readTranscript decodes and validates the JSON request body.
func (s *Server) readTranscript(r *http.Request) (string, error) {
	var req reviewRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return "", &requestError{http.StatusBadRequest, "invalid JSON body"}
	}
	if err := s.validate.Struct(req); err != nil {
		return "", &requestError{http.StatusBadRequest, "transcript is required"}
	}
	return req.Transcript, nil
}

// transcribeUpload extracts the "audio" part and runs it through the
// configured transcriber.
func (s *Server) transcribeUpload(r *http.Request) (string, error) {
	if s.transcriber == nil {
		return "", &requestError{http.StatusNotImplemented, "audio review is not configured"}
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		return "", &requestError{http.StatusBadRequest, `multipart form needs an "audio" part`}
	}
	defer file.Close()

	raw, err := s.transcriber.Transcribe(r.Context(), stt.Request{
		Audio:    file,
		MIMEType: header.Header.Get("Content-Type"),
		Language: r.FormValue("language"),
	})
	if err != nil {
		observe.Logger(r.Context()).Error("transcription failed",
			"provider", s.transcriber.Name(), "error", err)
		return "", &requestError{http.StatusBadGateway, "transcription failed"}
	}
	return raw, nil
}

// handleCoachHealth renders the coach backend's diagnostics. The endpoint
// always answers 200; the body's "ok" field carries the verdict so probes
// and humans read the same document.
func (s *Server) handleCoachHealth(w http.ResponseWriter, r *http.Request) {
	if s.coachHealth == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":    false,
			"error": "no coach configured",
		})
		return
	}
	writeJSON(w, http.StatusOK, s.coachHealth(r.Context()))
}

// requestError carries an HTTP status alongside a safe-to-expose message.
type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string { return e.msg }

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encoding failure"}`, http.StatusInternalServerError)
	}
}

// writeError writes a JSON error body.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
