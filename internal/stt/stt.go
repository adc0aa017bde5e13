// Package stt defines the Transcriber interface for speech-to-text backends.
//
// Reviews normally arrive as text, but the HTTP API also accepts a call
// recording; a Transcriber turns that recording into the raw transcript fed
// to the review pipeline. Transcription is batch, not streaming: QA review
// happens after the call ended, so there is no latency constraint that would
// justify a streaming session protocol.
//
// Implementations must be safe for concurrent use.
package stt

import (
	"context"
	"io"
)

// Request describes one recording to transcribe.
type Request struct {
	// Audio is the encoded recording. The Transcriber reads it fully.
	Audio io.Reader

	// MIMEType identifies the container/codec (e.g., "audio/wav",
	// "audio/mpeg"). Empty lets the provider sniff the format if supported.
	MIMEType string

	// Language is the BCP-47 language tag for recognition (e.g., "en-US").
	// An empty string lets the provider auto-detect, if supported.
	Language string
}

// Transcriber is the abstraction over any speech-to-text backend.
type Transcriber interface {
	// Transcribe converts the recording to text. Speaker labels, if the
	// backend produces them, are rendered inline as "Agent:"/"Caller:"
	// prefixes so the result feeds the pipeline like a typed transcript.
	Transcribe(ctx context.Context, req Request) (string, error)

	// Name identifies the backend in logs and metrics.
	Name() string
}
