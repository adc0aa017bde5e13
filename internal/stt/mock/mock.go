// Package mock provides a test double for the stt package interfaces.
//
// Use Transcriber to feed a controlled transcript into the review pipeline
// and inspect what audio was delivered.
package mock

import (
	"context"
	"io"
	"sync"

	"github.com/hotelcx/callaudit/internal/stt"
)

// Call records a single invocation of Transcriber.Transcribe.
type Call struct {
	// Audio is the fully-read recording body.
	Audio []byte

	// MIMEType and Language echo the request fields.
	MIMEType string
	Language string
}

// Transcriber is a mock implementation of stt.Transcriber.
type Transcriber struct {
	mu sync.Mutex

	// Transcript is returned from Transcribe when TranscribeFunc is nil.
	Transcript string

	// Err, if non-nil, is returned as the error from Transcribe.
	Err error

	// TranscribeFunc, if set, overrides the canned Transcript/Err behaviour.
	TranscribeFunc func(ctx context.Context, req stt.Request) (string, error)

	calls []Call
}

var _ stt.Transcriber = (*Transcriber)(nil)

// Transcribe records the call and returns the configured transcript.
func (t *Transcriber) Transcribe(ctx context.Context, req stt.Request) (string, error) {
	audio, err := io.ReadAll(req.Audio)
	if err != nil {
		return "", err
	}

	t.mu.Lock()
	t.calls = append(t.calls, Call{Audio: audio, MIMEType: req.MIMEType, Language: req.Language})
	fn := t.TranscribeFunc
	t.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if t.Err != nil {
		return "", t.Err
	}
	return t.Transcript, nil
}

// Name implements stt.Transcriber.
func (t *Transcriber) Name() string { return "mock" }

// Calls returns a copy of all recorded invocations.
func (t *Transcriber) Calls() []Call {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Call, len(t.calls))
	copy(out, t.calls)
	return out
}
