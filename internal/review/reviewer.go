// Package review orchestrates a full call review: PII redaction, participant
// resolution, rubric scoring, and AI coaching feedback, assembled into one
// result document.
//
// Scoring and coaching run concurrently once the masked transcript exists.
// Coaching is best effort: a provider failure degrades the feedback field to
// a fixed message and never fails the review.
package review

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hotelcx/callaudit/internal/coach"
	"github.com/hotelcx/callaudit/internal/observe"
	"github.com/hotelcx/callaudit/internal/participant"
	"github.com/hotelcx/callaudit/internal/redact"
	"github.com/hotelcx/callaudit/internal/rubric"
	"github.com/hotelcx/callaudit/internal/score"
)

// DefaultPassingThreshold is the minimum score percentage for a passing
// review.
const DefaultPassingThreshold = 90.0

// Result is the complete outcome of reviewing one transcript.
type Result struct {
	// ID uniquely identifies this review.
	ID string `json:"id"`

	// Transcript is the masked transcript. Raw text never appears here.
	Transcript string `json:"transcript"`

	// ScorePercent is the rubric score, 0..100 rounded to two decimals.
	ScorePercent float64 `json:"score"`

	// Passing reports whether ScorePercent met the passing threshold.
	Passing bool `json:"passing"`

	// Breakdown lists per-criterion outcomes in rubric order.
	Breakdown []score.Entry `json:"details"`

	// Totals aggregates the breakdown.
	Totals score.Totals `json:"totals"`

	// Participants holds the privacy-safe agent and customer names.
	Participants participant.Participants `json:"participants"`

	// Feedback is the AI coaching text, or a degradation message.
	Feedback string `json:"ai_feedback"`
}

// Reviewer runs reviews against a rubric. The rubric and passing threshold
// can be swapped at runtime (config hot reload); in-flight reviews keep the
// values they started with.
type Reviewer struct {
	coach   coach.Provider
	metrics *observe.Metrics

	mu        sync.RWMutex
	rubric    *rubric.Rubric
	threshold float64
}

// Option configures a [Reviewer].
type Option func(*Reviewer)

// WithCoach sets the coaching provider. Without one, every review carries
// [coach.NoSuggestionsMessage] as feedback.
func WithCoach(p coach.Provider) Option {
	return func(r *Reviewer) { r.coach = p }
}

// WithPassingThreshold overrides [DefaultPassingThreshold].
func WithPassingThreshold(pct float64) Option {
	return func(r *Reviewer) { r.threshold = pct }
}

// WithMetrics sets the metrics instance. Defaults to
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(r *Reviewer) { r.metrics = m }
}

// New creates a Reviewer for the given rubric.
func New(rb *rubric.Rubric, opts ...Option) *Reviewer {
	r := &Reviewer{
		rubric:    rb,
		threshold: DefaultPassingThreshold,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.metrics == nil {
		r.metrics = observe.DefaultMetrics()
	}
	return r
}

// SetRubric replaces the rubric for subsequent reviews.
func (r *Reviewer) SetRubric(rb *rubric.Rubric) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rubric = rb
}

// SetPassingThreshold replaces the pass mark for subsequent reviews.
func (r *Reviewer) SetPassingThreshold(pct float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.threshold = pct
}

// Review runs the full pipeline on a raw transcript. The only error source
// is context cancellation; everything else degrades in place.
func (r *Reviewer) Review(ctx context.Context, raw string) (*Result, error) {
	ctx, span := observe.StartSpan(ctx, "review")
	defer span.End()

	r.metrics.ActiveReviews.Add(ctx, 1)
	defer r.metrics.ActiveReviews.Add(ctx, -1)

	r.mu.RLock()
	rb, threshold := r.rubric, r.threshold
	r.mu.RUnlock()

	res := &Result{ID: uuid.NewString()}
	log := observe.Logger(ctx).With("review_id", res.ID)

	// Participants come from the raw text: the cue phrases that carry the
	// names are themselves redaction targets.
	res.Participants = participant.Extract(raw)

	start := time.Now()
	res.Transcript = redact.Mask(raw)
	r.metrics.RedactionDuration.Record(ctx, time.Since(start).Seconds())

	empty := strings.TrimSpace(res.Transcript) == ""

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		start := time.Now()
		res.ScorePercent, res.Breakdown, res.Totals = score.Evaluate(res.Transcript, rb)
		r.metrics.ScoringDuration.Record(gctx, time.Since(start).Seconds())
		return gctx.Err()
	})

	g.Go(func() error {
		res.Feedback = r.analyze(gctx, log, res.Transcript, empty)
		return gctx.Err()
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	res.Passing = res.ScorePercent >= threshold

	outcome := "fail"
	if res.Passing {
		outcome = "pass"
	}
	r.metrics.RecordReview(ctx, outcome, "ok")

	log.Info("review completed",
		"score", res.ScorePercent,
		"passing", res.Passing,
		"criteria", len(res.Breakdown),
	)
	return res, nil
}

// analyze produces coaching feedback, degrading to a fixed message on any
// failure.
func (r *Reviewer) analyze(ctx context.Context, log *slog.Logger, masked string, empty bool) string {
	if empty {
		return coach.EmptyTranscriptMessage
	}
	if r.coach == nil {
		return coach.NoSuggestionsMessage
	}

	start := time.Now()
	feedback, err := r.coach.Analyze(ctx, masked)
	r.metrics.CoachDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		r.metrics.RecordCoachRequest(ctx, r.coach.Name(), "error")
		r.metrics.RecordCoachError(ctx, r.coach.Name())
		log.Warn("coach analysis failed", "provider", r.coach.Name(), "error", err)
		return NoFeedbackMessage(err)
	}
	r.metrics.RecordCoachRequest(ctx, r.coach.Name(), "ok")
	if strings.TrimSpace(feedback) == "" {
		return coach.NoSuggestionsMessage
	}
	return feedback
}

// NoFeedbackMessage renders the degradation message carried in place of
// feedback when the coach fails.
func NoFeedbackMessage(err error) string {
	return "AI feedback unavailable: " + err.Error()
}
