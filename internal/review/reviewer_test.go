package review_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hotelcx/callaudit/internal/coach"
	"github.com/hotelcx/callaudit/internal/coach/mock"
	"github.com/hotelcx/callaudit/internal/review"
	"github.com/hotelcx/callaudit/internal/rubric"
)

const sampleTranscript = `Agent: Thank you for calling Grand Plaza Hotel, my name is John Smith, how may I help you?
Caller: Hi, guest name is Maria Garcia. I'd like to confirm my booking H1234567.
Agent: Of course. Can I get the card on file? Caller: Sure, 4111 1111 1111 1111.
Agent: All set. Is there anything else I can help you with today?`

func testRubric() *rubric.Rubric {
	return &rubric.Rubric{Criteria: []rubric.Criterion{
		{ID: "greeting", Description: "Agent greets the caller", Keywords: []string{"thank you for calling"}, Score: 50},
		{ID: "closing", Description: "Agent offers further help", Keywords: []string{"anything else i can help"}, Score: 30},
		{ID: "upsell", Description: "Agent offers an upgrade", Keywords: []string{"upgrade to a suite"}, Score: 20},
	}}
}

func TestReview_FullPipeline(t *testing.T) {
	t.Parallel()
	coachDouble := &mock.Provider{}
	r := review.New(testRubric(), review.WithCoach(coachDouble))

	res, err := r.Review(context.Background(), sampleTranscript)
	if err != nil {
		t.Fatalf("Review: %v", err)
	}

	if res.ID == "" {
		t.Error("result ID is empty")
	}

	// PII must be gone, the itinerary code must survive.
	for _, leaked := range []string{"John Smith", "Maria Garcia", "4111"} {
		if strings.Contains(res.Transcript, leaked) {
			t.Errorf("transcript leaked %q", leaked)
		}
	}
	if !strings.Contains(res.Transcript, "H1234567") {
		t.Error("itinerary code should survive redaction")
	}

	// greeting (50) + closing (30) pass, upsell (20) fails → 80%.
	if res.ScorePercent != 80 {
		t.Errorf("score = %.2f, want 80", res.ScorePercent)
	}
	if res.Passing {
		t.Error("80%% must not pass the default 90%% threshold")
	}
	if res.Totals.EarnedPoints != 80 || res.Totals.TotalPoints != 100 {
		t.Errorf("totals = %+v", res.Totals)
	}
	if len(res.Breakdown) != 3 {
		t.Fatalf("breakdown entries = %d, want 3", len(res.Breakdown))
	}

	// Participants resolve from the raw text, privacy-safe forms only.
	if res.Participants.Agent == nil {
		t.Fatal("agent not resolved")
	}
	if res.Participants.Agent.Masked != "J*** S****" {
		t.Errorf("agent masked = %q", res.Participants.Agent.Masked)
	}
	if res.Participants.Agent.Initials != "J.S." {
		t.Errorf("agent initials = %q", res.Participants.Agent.Initials)
	}
	if res.Participants.Customer == nil {
		t.Fatal("customer not resolved")
	}
	if res.Participants.Customer.Initials != "M.G." {
		t.Errorf("customer initials = %q", res.Participants.Customer.Initials)
	}

	// The coach saw the masked transcript, never the raw one.
	calls := coachDouble.Calls()
	if len(calls) != 1 {
		t.Fatalf("coach calls = %d, want 1", len(calls))
	}
	if strings.Contains(calls[0], "John Smith") {
		t.Error("coach received unmasked PII")
	}
	if res.Feedback == "" {
		t.Error("feedback is empty")
	}
}

func TestReview_PassingThreshold(t *testing.T) {
	t.Parallel()
	rb := &rubric.Rubric{Criteria: []rubric.Criterion{
		{ID: "greeting", Description: "greeting", Keywords: []string{"hello"}, Score: 9},
		{ID: "closing", Description: "closing", Keywords: []string{"goodbye"}, Score: 1},
	}}
	r := review.New(rb, review.WithCoach(&mock.Provider{}))

	// 9 of 10 points → exactly 90.00, which passes (threshold inclusive).
	res, err := r.Review(context.Background(), "hello there")
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if res.ScorePercent != 90 {
		t.Fatalf("score = %.2f, want 90", res.ScorePercent)
	}
	if !res.Passing {
		t.Error("90.00 should pass the default threshold")
	}
}

func TestReview_CustomThreshold(t *testing.T) {
	t.Parallel()
	rb := &rubric.Rubric{Criteria: []rubric.Criterion{
		{ID: "greeting", Description: "greeting", Keywords: []string{"hello"}, Score: 1},
		{ID: "closing", Description: "closing", Keywords: []string{"goodbye"}, Score: 1},
	}}
	r := review.New(rb, review.WithCoach(&mock.Provider{}), review.WithPassingThreshold(50))

	res, err := r.Review(context.Background(), "hello there")
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if res.ScorePercent != 50 {
		t.Fatalf("score = %.2f, want 50", res.ScorePercent)
	}
	if !res.Passing {
		t.Error("50.00 should pass a 50%% threshold")
	}
}

func TestReview_EmptyTranscript(t *testing.T) {
	t.Parallel()
	coachDouble := &mock.Provider{}
	r := review.New(testRubric(), review.WithCoach(coachDouble))

	res, err := r.Review(context.Background(), "   \n ")
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if res.Feedback != coach.EmptyTranscriptMessage {
		t.Errorf("feedback = %q, want %q", res.Feedback, coach.EmptyTranscriptMessage)
	}
	if len(coachDouble.Calls()) != 0 {
		t.Error("coach must not be consulted for an empty transcript")
	}
	if res.ScorePercent != 0 {
		t.Errorf("score = %.2f, want 0", res.ScorePercent)
	}
	if res.Passing {
		t.Error("empty transcript must not pass")
	}
}

func TestReview_EmptyRubric(t *testing.T) {
	t.Parallel()
	r := review.New(&rubric.Rubric{}, review.WithCoach(&mock.Provider{}))

	res, err := r.Review(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if res.ScorePercent != 0 {
		t.Errorf("score = %.2f, want 0", res.ScorePercent)
	}
	if res.Totals.TotalPoints != 0 {
		t.Errorf("total points = %d, want 0", res.Totals.TotalPoints)
	}
}

func TestReview_CoachFailureDegrades(t *testing.T) {
	t.Parallel()
	coachDouble := &mock.Provider{
		AnalyzeFunc: func(context.Context, string) (string, error) {
			return "", errors.New("quota exceeded")
		},
	}
	r := review.New(testRubric(), review.WithCoach(coachDouble))

	res, err := r.Review(context.Background(), "Thank you for calling.")
	if err != nil {
		t.Fatalf("Review should not fail when the coach does: %v", err)
	}
	if !strings.Contains(res.Feedback, "unavailable") {
		t.Errorf("feedback = %q, want degradation message", res.Feedback)
	}
	// Scoring is unaffected by the coach failure.
	if res.ScorePercent != 50 {
		t.Errorf("score = %.2f, want 50", res.ScorePercent)
	}
}

func TestReview_CoachEmptyAnswer(t *testing.T) {
	t.Parallel()
	coachDouble := &mock.Provider{
		AnalyzeFunc: func(context.Context, string) (string, error) {
			return "  \n", nil
		},
	}
	r := review.New(testRubric(), review.WithCoach(coachDouble))

	res, err := r.Review(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if res.Feedback != coach.NoSuggestionsMessage {
		t.Errorf("feedback = %q, want %q", res.Feedback, coach.NoSuggestionsMessage)
	}
}

func TestReview_NoCoachConfigured(t *testing.T) {
	t.Parallel()
	r := review.New(testRubric())

	res, err := r.Review(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if res.Feedback != coach.NoSuggestionsMessage {
		t.Errorf("feedback = %q, want %q", res.Feedback, coach.NoSuggestionsMessage)
	}
}

func TestReview_CancelledContext(t *testing.T) {
	t.Parallel()
	r := review.New(testRubric(), review.WithCoach(&mock.Provider{}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.Review(ctx, "hello"); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestReview_DeterministicScore(t *testing.T) {
	t.Parallel()
	r := review.New(testRubric(), review.WithCoach(&mock.Provider{}))

	first, err := r.Review(context.Background(), sampleTranscript)
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	for range 3 {
		res, err := r.Review(context.Background(), sampleTranscript)
		if err != nil {
			t.Fatalf("Review: %v", err)
		}
		if res.ScorePercent != first.ScorePercent {
			t.Fatalf("score changed between runs: %.2f vs %.2f", res.ScorePercent, first.ScorePercent)
		}
		if res.ID == first.ID {
			t.Error("each review must get a fresh ID")
		}
	}
}
