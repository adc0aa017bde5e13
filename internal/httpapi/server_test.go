package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	coachmock "github.com/hotelcx/callaudit/internal/coach/mock"
	"github.com/hotelcx/callaudit/internal/httpapi"
	"github.com/hotelcx/callaudit/internal/review"
	"github.com/hotelcx/callaudit/internal/rubric"
	sttmock "github.com/hotelcx/callaudit/internal/stt/mock"
)

// newServer builds a handler around a one-criterion rubric and a mock coach.
func newServer(t *testing.T, opts ...httpapi.Option) http.Handler {
	t.Helper()
	rb := &rubric.Rubric{Criteria: []rubric.Criterion{
		{ID: "greeting", Description: "Agent greets the caller", Keywords: []string{"thank you for calling"}, Score: 10},
	}}
	r := review.New(rb, review.WithCoach(&coachmock.Provider{}))
	return httpapi.New(r, opts...).Handler()
}

func postJSON(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/v1/reviews", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestReviews_TranscriptJSON(t *testing.T) {
	t.Parallel()
	h := newServer(t)

	rec := postJSON(t, h, `{"transcript": "Thank you for calling. My card is 4111 1111 1111 1111."}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var res struct {
		ID         string  `json:"id"`
		Transcript string  `json:"transcript"`
		Score      float64 `json:"score"`
		Passing    bool    `json:"passing"`
		Feedback   string  `json:"ai_feedback"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if res.ID == "" {
		t.Error("response id is empty")
	}
	if strings.Contains(res.Transcript, "4111") {
		t.Errorf("card number leaked into response: %q", res.Transcript)
	}
	if !strings.Contains(res.Transcript, "[CARD]") {
		t.Errorf("transcript should carry the card marker, got %q", res.Transcript)
	}
	if res.Score != 100 {
		t.Errorf("score = %.2f, want 100", res.Score)
	}
	if !res.Passing {
		t.Error("review should pass at 100%")
	}
	if res.Feedback == "" {
		t.Error("ai_feedback is empty")
	}
}

func TestReviews_InvalidJSON(t *testing.T) {
	t.Parallel()
	h := newServer(t)
	rec := postJSON(t, h, `{"transcript": `)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestReviews_MissingTranscript(t *testing.T) {
	t.Parallel()
	h := newServer(t)
	rec := postJSON(t, h, `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}

	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if !strings.Contains(body.Error, "transcript") {
		t.Errorf("error should mention transcript, got %q", body.Error)
	}
}

func TestReviews_UnknownFieldRejected(t *testing.T) {
	t.Parallel()
	h := newServer(t)
	rec := postJSON(t, h, `{"transcript": "hi", "text": "hi"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestReviews_WrongContentType(t *testing.T) {
	t.Parallel()
	h := newServer(t)

	req := httptest.NewRequest("POST", "/v1/reviews", strings.NewReader("transcript"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want 415", rec.Code)
	}
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestReviews_AudioUpload(t *testing.T) {
	t.Parallel()
	tr := &sttmock.Transcriber{Transcript: "Thank you for calling, this is John Smith."}
	h := newServer(t, httpapi.WithTranscriber(tr))

	buf, contentType := multipartBody(t, "audio", "call.wav", "fake-pcm-bytes")
	req := httptest.NewRequest("POST", "/v1/reviews", buf)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	calls := tr.Calls()
	if len(calls) != 1 {
		t.Fatalf("transcriber calls = %d, want 1", len(calls))
	}
	if string(calls[0].Audio) != "fake-pcm-bytes" {
		t.Errorf("transcriber received %q", calls[0].Audio)
	}

	var res struct {
		Transcript string `json:"transcript"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if strings.Contains(res.Transcript, "John Smith") {
		t.Errorf("agent name leaked into response: %q", res.Transcript)
	}
}

func TestReviews_AudioWithoutTranscriber(t *testing.T) {
	t.Parallel()
	h := newServer(t)

	buf, contentType := multipartBody(t, "audio", "call.wav", "bytes")
	req := httptest.NewRequest("POST", "/v1/reviews", buf)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", rec.Code)
	}
}

func TestReviews_AudioMissingPart(t *testing.T) {
	t.Parallel()
	tr := &sttmock.Transcriber{Transcript: "hello"}
	h := newServer(t, httpapi.WithTranscriber(tr))

	buf, contentType := multipartBody(t, "recording", "call.wav", "bytes")
	req := httptest.NewRequest("POST", "/v1/reviews", buf)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	h := newServer(t)

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	h := newServer(t)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestCoachHealth_NotConfigured(t *testing.T) {
	t.Parallel()
	h := newServer(t)

	req := httptest.NewRequest("GET", "/coach/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ok, _ := body["ok"].(bool); ok {
		t.Error("ok should be false when no coach is configured")
	}
}

func TestCoachHealth_Configured(t *testing.T) {
	t.Parallel()
	h := newServer(t, httpapi.WithCoachHealth(func(context.Context) any {
		return map[string]any{"ok": true, "selected_model": "models/gemini-2.5-flash"}
	}))

	req := httptest.NewRequest("GET", "/coach/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ok, _ := body["ok"].(bool); !ok {
		t.Error("ok should echo the checker's verdict")
	}
	if body["selected_model"] != "models/gemini-2.5-flash" {
		t.Errorf("selected_model = %v", body["selected_model"])
	}
}
