// Package health serves the liveness and readiness probes of the review
// server.
//
// /healthz answers 200 whenever the process can serve HTTP. /readyz runs
// every registered dependency check and answers 503 as soon as one fails;
// the body carries a verdict per check so an operator can see which
// dependency degraded a deployment — a rubric file edited into unparseable
// JSON being the usual case.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hotelcx/callaudit/internal/rubric"
)

// checkTimeout bounds a single readiness check. A coach backend that hangs
// must not stall the probe past the orchestrator's own deadline.
const checkTimeout = 5 * time.Second

// Checker probes one dependency of the review pipeline.
type Checker struct {
	// Name labels the check in the readiness body ("rubric", "coach", ...).
	Name string

	// Check returns nil while the dependency can serve reviews. It must
	// respect context cancellation.
	Check func(ctx context.Context) error
}

// verdict is the reported outcome of one check.
type verdict struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
	TookMS int64  `json:"took_ms"`
}

// readiness is the /readyz response body. Checks appear in registration
// order.
type readiness struct {
	Ready  bool      `json:"ready"`
	Checks []verdict `json:"checks,omitempty"`
}

// Handler serves the probe endpoints. The checker list is fixed at
// construction, so it is safe for concurrent use.
type Handler struct {
	checkers []Checker
}

// New builds a Handler running the given checkers, in order, on every
// /readyz request.
func New(checkers ...Checker) *Handler {
	return &Handler{checkers: append([]Checker(nil), checkers...)}
}

// Healthz reports process liveness and always answers 200.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Alive bool `json:"alive"`
	}{Alive: true})
}

// Readyz runs every checker under its own [checkTimeout] deadline and
// answers 503 when any fails.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	body := readiness{Ready: true}

	for _, c := range h.checkers {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		start := time.Now()
		err := c.Check(ctx)
		cancel()

		v := verdict{Name: c.Name, OK: err == nil, TookMS: time.Since(start).Milliseconds()}
		if err != nil {
			v.Error = err.Error()
			body.Ready = false
		}
		body.Checks = append(body.Checks, v)
	}

	status := http.StatusOK
	if !body.Ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, body)
}

// Register adds the probe routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

// RubricCheck returns a Checker verifying that the rubric file at path still
// parses. A missing file is healthy (reviews score against an empty rubric);
// a file that exists but no longer parses is not.
func RubricCheck(path string) Checker {
	return Checker{
		Name: "rubric",
		Check: func(ctx context.Context) error {
			_, err := rubric.Load(path)
			return err
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
