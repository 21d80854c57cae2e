package matching

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/sundai/hackathon-api/internal/ai"
	"github.com/sundai/hackathon-api/internal/db/models"
)

// FallbackReason is returned whenever a match explanation cannot be generated
const FallbackReason = "Great potential for collaboration based on complementary skills and interests."

const (
	reasonTemperature = 0.7
	reasonMaxTokens   = 150
)

// Reasoner explains why two participants fit together
type Reasoner struct {
	completer ai.Completer
	timeout   time.Duration
}

// NewReasoner creates a reasoner; timeout bounds each completion call
func NewReasoner(completer ai.Completer, timeout time.Duration) *Reasoner {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Reasoner{completer: completer, timeout: timeout}
}

// Explain returns a short justification, or FallbackReason on any failure
func (r *Reasoner) Explain(ctx context.Context, requester, candidate *models.Profile) string {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	reply, err := r.completer.Complete(callCtx, ai.Request{
		Purpose:     ai.PurposeReason,
		Prompt:      reasonPrompt(requester, candidate),
		Temperature: reasonTemperature,
		MaxTokens:   reasonMaxTokens,
	})
	if err == nil {
		err = nonEmpty(reply)
	}
	if err != nil {
		slog.Debug("reason completion failed, using fallback",
			"requester_id", requester.ID, "candidate_id", candidate.ID, "error", err)
		return FallbackReason
	}
	return strings.TrimSpace(reply)
}

func nonEmpty(reply string) error {
	if strings.TrimSpace(reply) == "" {
		return ai.ErrEmptyCompletion
	}
	return nil
}
