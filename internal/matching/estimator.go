// Package matching computes pairwise compatibility between participants and assembles
// ranked match lists and team recommendations. Scores come from the completion API when
// it answers with a usable number and from a deterministic heuristic otherwise.
package matching

import (
	"context"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sundai/hackathon-api/internal/ai"
	"github.com/sundai/hackathon-api/internal/db/models"
	"github.com/sundai/hackathon-api/internal/telemetry"
)

const (
	// DefaultCallTimeout bounds a single completion call when none is configured
	DefaultCallTimeout = 15 * time.Second

	scoreTemperature = 0.3
	scoreMaxTokens   = 10

	heuristicBase       = 0.5
	heuristicSkillSpan  = 0.2
	heuristicLevelSpan  = 0.15
	heuristicTeamSizeEq = 0.15
)

var floatPattern = regexp.MustCompile(`[-+]?(?:\d+\.?\d*|\.\d+)`)

// Estimator produces compatibility scores in [0,1]
type Estimator struct {
	completer ai.Completer
	timeout   time.Duration
}

// NewEstimator creates an estimator; timeout bounds each completion call
func NewEstimator(completer ai.Completer, timeout time.Duration) *Estimator {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Estimator{completer: completer, timeout: timeout}
}

// Estimate scores requester against candidate. Any completion failure, timeout, or
// unparseable reply falls back to HeuristicScore without retrying.
func (e *Estimator) Estimate(ctx context.Context, requester, candidate *models.Profile, focusSkills []string) float64 {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	reply, err := e.completer.Complete(callCtx, ai.Request{
		Purpose:     ai.PurposeScore,
		System:      scoreSystemPrompt,
		Prompt:      scorePrompt(requester, candidate, focusSkills),
		Temperature: scoreTemperature,
		MaxTokens:   scoreMaxTokens,
	})
	if err == nil {
		if score, ok := ParseScore(reply); ok {
			telemetry.MatchScoresTotal.WithLabelValues("ai").Inc()
			return score
		}
		slog.Debug("unparseable score reply, using heuristic",
			"requester_id", requester.ID, "candidate_id", candidate.ID, "reply", reply)
	} else {
		slog.Debug("score completion failed, using heuristic",
			"requester_id", requester.ID, "candidate_id", candidate.ID, "error", err)
	}

	telemetry.MatchScoresTotal.WithLabelValues("heuristic").Inc()
	return HeuristicScore(requester, candidate)
}

// ParseScore extracts the first number in a completion reply and clamps it into [0,1]
func ParseScore(reply string) (float64, bool) {
	m := floatPattern.FindString(strings.TrimSpace(reply))
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return clamp01(v), true
}

// HeuristicScore is the deterministic fallback score:
//
//	0.5
//	+ 0.2  × |A∩B| / max(|A|,|B|,1)        over distinct skills
//	+ 0.15 × (1 − |levelA − levelB| / 3)    when both levels are known
//	+ 0.15                                  when the team-size preferences are equal (both unset counts)
func HeuristicScore(a, b *models.Profile) float64 {
	score := heuristicBase

	skillsA, skillsB := skillSet(a.Skills), skillSet(b.Skills)
	overlap := 0
	for s := range skillsA {
		if _, ok := skillsB[s]; ok {
			overlap++
		}
	}
	denom := max(len(skillsA), len(skillsB), 1)
	score += heuristicSkillSpan * math.Min(float64(overlap)/float64(denom), 1)

	ia, ib := a.Level().Index(), b.Level().Index()
	if ia >= 0 && ib >= 0 {
		diff := math.Abs(float64(ia - ib))
		score += (1 - diff/3) * heuristicLevelSpan
	}

	if a.TeamSize() == b.TeamSize() {
		score += heuristicTeamSizeEq
	}

	return clamp01(roundScore(score))
}

func skillSet(skills []string) map[string]struct{} {
	set := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		set[s] = struct{}{}
	}
	return set
}

// roundScore trims floating-point noise so 0.5+0.1+0.15+0.15 compares equal to 0.9
func roundScore(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
