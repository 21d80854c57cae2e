package matching

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/sundai/hackathon-api/internal/ai"
	"github.com/sundai/hackathon-api/internal/db/models"
)

// FallbackTeamReasoning is returned when the team explanation cannot be generated
const FallbackTeamReasoning = "This team has complementary skills that would work well together for the project."

const (
	DefaultTeamSize = 4
	MinTeamSize     = 2
	MaxTeamSize     = 10

	teamTemperature     = 0.7
	teamMaxTokens       = 500
	teamReasonMaxTokens = 200
	teamSourceAI        = "ai"
	teamSourceHeuristic = "heuristic"
)

// TeamRecommendation is a proposed team for a project idea
type TeamRecommendation struct {
	Team      []*models.Profile
	Reasoning string
	// Source is "ai" when the completion picked the team and "heuristic" otherwise
	Source string
}

// TeamRecommender assembles teams from a participant pool
type TeamRecommender struct {
	completer ai.Completer
	timeout   time.Duration
}

// NewTeamRecommender creates a recommender; timeout bounds each completion call
func NewTeamRecommender(completer ai.Completer, timeout time.Duration) *TeamRecommender {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &TeamRecommender{completer: completer, timeout: timeout}
}

// RecommendTeam asks the completion API for teamSize usernames from pool and resolves them.
// When the reply is unusable the team is built by ranking the pool on required-skill coverage.
func (r *TeamRecommender) RecommendTeam(ctx context.Context, projectIdea string, requiredSkills []string, teamSize int, pool []*models.Profile) *TeamRecommendation {
	if teamSize < MinTeamSize || teamSize > MaxTeamSize {
		teamSize = DefaultTeamSize
	}

	rec := &TeamRecommendation{Source: teamSourceAI}
	rec.Team = r.pickWithCompletion(ctx, projectIdea, requiredSkills, teamSize, pool)
	if len(rec.Team) == 0 {
		rec.Source = teamSourceHeuristic
		rec.Team = RankByCoverage(pool, requiredSkills, teamSize)
	}
	rec.Reasoning = r.explainTeam(ctx, projectIdea, rec.Team)
	return rec
}

func (r *TeamRecommender) pickWithCompletion(ctx context.Context, projectIdea string, requiredSkills []string, teamSize int, pool []*models.Profile) []*models.Profile {
	if len(pool) == 0 {
		return nil
	}
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	reply, err := r.completer.Complete(callCtx, ai.Request{
		Purpose:     ai.PurposeTeam,
		Prompt:      teamPrompt(projectIdea, requiredSkills, teamSize, pool),
		Temperature: teamTemperature,
		MaxTokens:   teamMaxTokens,
	})
	if err != nil {
		slog.Debug("team completion failed, ranking by skill coverage", "error", err)
		return nil
	}

	usernames, ok := parseUsernames(reply)
	if !ok {
		slog.Debug("unparseable team reply, ranking by skill coverage", "reply", reply)
		return nil
	}
	return resolveUsernames(pool, usernames, teamSize)
}

func (r *TeamRecommender) explainTeam(ctx context.Context, projectIdea string, team []*models.Profile) string {
	if len(team) == 0 {
		return FallbackTeamReasoning
	}
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	reply, err := r.completer.Complete(callCtx, ai.Request{
		Purpose:     ai.PurposeTeam,
		Prompt:      teamReasonPrompt(projectIdea, team),
		Temperature: teamTemperature,
		MaxTokens:   teamReasonMaxTokens,
	})
	if err == nil {
		err = nonEmpty(reply)
	}
	if err != nil {
		return FallbackTeamReasoning
	}
	return strings.TrimSpace(reply)
}

// parseUsernames reads the first JSON array of strings in reply, tolerating prose or
// code fences around it.
func parseUsernames(reply string) ([]string, bool) {
	start := strings.Index(reply, "[")
	end := strings.LastIndex(reply, "]")
	if start < 0 || end <= start {
		return nil, false
	}
	var names []string
	if err := json.Unmarshal([]byte(reply[start:end+1]), &names); err != nil {
		return nil, false
	}
	return names, len(names) > 0
}

// resolveUsernames keeps pool members named in usernames, in pool order, up to limit
func resolveUsernames(pool []*models.Profile, usernames []string, limit int) []*models.Profile {
	wanted := make(map[string]bool, len(usernames))
	for _, u := range usernames {
		wanted[strings.ToLower(strings.TrimPrefix(strings.TrimSpace(u), "@"))] = true
	}
	var team []*models.Profile
	for _, p := range pool {
		if wanted[strings.ToLower(p.Username)] {
			team = append(team, p)
			if len(team) == limit {
				break
			}
		}
	}
	return team
}

// RankByCoverage orders the pool by how many required skills each participant has
// (case-insensitive), then by hackathon experience, and returns the first limit.
// Ties keep pool order.
func RankByCoverage(pool []*models.Profile, requiredSkills []string, limit int) []*models.Profile {
	required := make(map[string]struct{}, len(requiredSkills))
	for _, s := range requiredSkills {
		required[strings.ToLower(s)] = struct{}{}
	}

	coverage := func(p *models.Profile) int {
		seen := make(map[string]bool)
		for _, s := range p.Skills {
			k := strings.ToLower(s)
			if _, ok := required[k]; ok && !seen[k] {
				seen[k] = true
			}
		}
		return len(seen)
	}

	ranked := make([]*models.Profile, len(pool))
	copy(ranked, pool)
	sort.SliceStable(ranked, func(i, j int) bool {
		ci, cj := coverage(ranked[i]), coverage(ranked[j])
		if ci != cj {
			return ci > cj
		}
		return ranked[i].HackathonExperience > ranked[j].HackathonExperience
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
