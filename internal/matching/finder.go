package matching

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/sundai/hackathon-api/internal/db/models"
)

const (
	DefaultMaxMatches = 5
	MaxMaxMatches     = 10
	DefaultMinScore   = 0.7
	// DefaultConcurrency caps simultaneous candidate evaluations per request
	DefaultConcurrency = 4
)

// Scorer produces a compatibility score in [0,1]
type Scorer interface {
	Estimate(ctx context.Context, requester, candidate *models.Profile, focusSkills []string) float64
}

// Explainer produces a short justification for a match
type Explainer interface {
	Explain(ctx context.Context, requester, candidate *models.Profile) string
}

// Options controls a FindMatches call
type Options struct {
	MaxMatches int
	// MinScore is the inclusive score floor; nil means DefaultMinScore
	MinScore    *float64
	FocusSkills []string
}

// Threshold returns a MinScore value for Options
func Threshold(v float64) *float64 {
	return &v
}

// WithDefaults fills unset fields and clamps out-of-range values
func (o Options) WithDefaults() Options {
	if o.MaxMatches <= 0 {
		o.MaxMatches = DefaultMaxMatches
	}
	if o.MaxMatches > MaxMaxMatches {
		o.MaxMatches = MaxMaxMatches
	}
	floor := DefaultMinScore
	if o.MinScore != nil {
		floor = clamp01(*o.MinScore)
	}
	o.MinScore = &floor
	return o
}

// Candidate is a scored match for the requester
type Candidate struct {
	Profile *models.Profile
	Score   float64
	Reason  string
}

// Finder ranks a candidate pool against a requester
type Finder struct {
	scorer      Scorer
	explainer   Explainer
	concurrency int
}

// NewFinder creates a finder that evaluates at most concurrency candidates at once
func NewFinder(scorer Scorer, explainer Explainer, concurrency int) *Finder {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &Finder{scorer: scorer, explainer: explainer, concurrency: concurrency}
}

// FindMatches scores every candidate other than the requester, keeps those at or above
// MinScore, and returns them by descending score (input order breaks ties), truncated to
// MaxMatches. Each kept candidate gets exactly one reason. Only context cancellation
// aborts the scan; individual completion failures degrade inside the scorer.
func (f *Finder) FindMatches(ctx context.Context, requester *models.Profile, candidates []*models.Profile, opts Options) ([]Candidate, error) {
	opts = opts.WithDefaults()
	minScore := *opts.MinScore

	results := make([]*Candidate, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)

	for i, candidate := range candidates {
		if candidate == nil || candidate.ID == requester.ID {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			score := f.scorer.Estimate(gctx, requester, candidate, opts.FocusSkills)
			if score < minScore {
				return nil
			}
			results[i] = &Candidate{
				Profile: candidate,
				Score:   score,
				Reason:  f.explainer.Explain(gctx, requester, candidate),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	matches := make([]Candidate, 0, len(results))
	for _, r := range results {
		if r != nil {
			matches = append(matches, *r)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > opts.MaxMatches {
		matches = matches[:opts.MaxMatches]
	}
	return matches, nil
}
