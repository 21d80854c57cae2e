// Package ai wraps the chat-completion API used for match scoring, match explanations,
// and team recommendations. Callers depend on the Completer interface so tests can
// substitute a scripted fake.
package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sundai/hackathon-api/internal/telemetry"
)

// Purpose labels a completion call for metrics and logs
type Purpose string

const (
	PurposeScore  Purpose = "score"
	PurposeReason Purpose = "reason"
	PurposeTeam   Purpose = "team"
)

var (
	// ErrEmptyCompletion is returned when the API answers with no usable content
	ErrEmptyCompletion = errors.New("ai: completion returned no content")
	// ErrNotConfigured is returned by the disabled completer when no API key is set
	ErrNotConfigured = errors.New("ai: completion API is not configured")
)

// Request is a single-turn completion request
type Request struct {
	Purpose     Purpose
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int
}

// Completer produces a text completion for a prompt
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// CompleterFunc adapts a function to the Completer interface
type CompleterFunc func(ctx context.Context, req Request) (string, error)

// Complete calls f(ctx, req)
func (f CompleterFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Disabled is the Completer used when no API key is configured; every call fails fast
// so callers take their fallback path.
type Disabled struct{}

// Complete always returns ErrNotConfigured
func (Disabled) Complete(context.Context, Request) (string, error) {
	return "", ErrNotConfigured
}

// Instrument wraps c so every call is observed in hackathon_completion_duration_seconds
func Instrument(c Completer) Completer {
	return CompleterFunc(func(ctx context.Context, req Request) (string, error) {
		start := time.Now()
		out, err := c.Complete(ctx, req)
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		telemetry.CompletionDuration.WithLabelValues(string(req.Purpose), outcome).
			Observe(time.Since(start).Seconds())
		return out, err
	})
}

// trimCompletion normalizes a reply and maps blank content to ErrEmptyCompletion
func trimCompletion(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmptyCompletion
	}
	return s, nil
}
