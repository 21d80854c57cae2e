// stats_repository.go implements StatsRepository, computing the directory aggregates
// (experience, skill, team size and industry distributions) in SQL via sqlx.
package repositories

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// NotSpecified labels profiles whose bucketed field is empty
const NotSpecified = "not_specified"

// SkillCount is a skill and the number of profiles listing it
type SkillCount struct {
	Skill string `db:"skill" json:"skill"`
	Count int64  `db:"count" json:"count"`
}

// IndustryCount is an industry and the number of profiles in it
type IndustryCount struct {
	Industry string `db:"industry" json:"industry"`
	Count    int64  `db:"count" json:"count"`
}

// LevelCount is an experience level and the number of profiles at it
type LevelCount struct {
	Level string `db:"level" json:"level"`
	Count int64  `db:"count" json:"count"`
}

// RecentJoiner is a recently created profile shown on the public stats page
type RecentJoiner struct {
	Username  string    `db:"username" json:"username"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// DirectoryStats is the full public statistics payload
type DirectoryStats struct {
	TotalParticipants      int64            `json:"total_participants"`
	ExperienceDistribution map[string]int64 `json:"experience_distribution"`
	TopSkills              []SkillCount     `json:"top_skills"`
	TeamSizePreferences    map[string]int64 `json:"team_size_preferences"`
	IndustryDistribution   map[string]int64 `json:"industry_distribution"`
	RecentJoiners          []RecentJoiner   `json:"recent_joiners"`
}

// StatsOverview is the authenticated profile statistics summary
type StatsOverview struct {
	TotalProfiles          int64            `json:"total_profiles"`
	ExperienceDistribution map[string]int64 `json:"experience_distribution"`
	TopSkills              []SkillCount     `json:"top_skills"`
}

type bucketCount struct {
	Bucket string `db:"bucket"`
	Count  int64  `db:"count"`
}

// StatsRepository runs aggregate queries over profiles
type StatsRepository struct {
	db *sqlx.DB
}

// NewStatsRepository creates a new StatsRepository
func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// TotalProfiles counts every profile
func (r *StatsRepository) TotalProfiles(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM profiles`)
	return n, err
}

// SkillCounts returns every skill with its frequency, most common first; limit <= 0 means all
func (r *StatsRepository) SkillCounts(ctx context.Context, limit int) ([]SkillCount, error) {
	query := `
		SELECT skill, COUNT(*) AS count
		FROM profiles, unnest(skills) AS skill
		GROUP BY skill
		ORDER BY count DESC, skill ASC
	`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	out := []SkillCount{}
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// IndustryCounts returns the imported industries with their frequency, most common first
func (r *StatsRepository) IndustryCounts(ctx context.Context) ([]IndustryCount, error) {
	out := []IndustryCount{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT linkedin_industry AS industry, COUNT(*) AS count
		FROM profiles
		WHERE linkedin_industry IS NOT NULL AND linkedin_industry <> ''
		GROUP BY linkedin_industry
		ORDER BY count DESC, industry ASC
	`)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ExperienceLevelCounts returns the experience levels with their frequency, most common first.
// Profiles without a level are reported as not_specified.
func (r *StatsRepository) ExperienceLevelCounts(ctx context.Context) ([]LevelCount, error) {
	out := []LevelCount{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT COALESCE(experience_level, '`+NotSpecified+`') AS level, COUNT(*) AS count
		FROM profiles
		GROUP BY level
		ORDER BY count DESC, level ASC
	`)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *StatsRepository) distribution(ctx context.Context, column string) (map[string]int64, error) {
	var rows []bucketCount
	err := r.db.SelectContext(ctx, &rows, `
		SELECT COALESCE(NULLIF(`+column+`, ''), '`+NotSpecified+`') AS bucket, COUNT(*) AS count
		FROM profiles
		GROUP BY bucket
	`)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, b := range rows {
		out[b.Bucket] = b.Count
	}
	return out, nil
}

// RecentJoiners returns the most recently created profiles
func (r *StatsRepository) RecentJoiners(ctx context.Context, limit int) ([]RecentJoiner, error) {
	out := []RecentJoiner{}
	err := r.db.SelectContext(ctx, &out,
		`SELECT username, created_at FROM profiles ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Overview returns the total, experience distribution, and top 10 skills
func (r *StatsRepository) Overview(ctx context.Context) (*StatsOverview, error) {
	total, err := r.TotalProfiles(ctx)
	if err != nil {
		return nil, err
	}
	experience, err := r.distribution(ctx, "experience_level")
	if err != nil {
		return nil, err
	}
	skills, err := r.SkillCounts(ctx, 10)
	if err != nil {
		return nil, err
	}
	return &StatsOverview{TotalProfiles: total, ExperienceDistribution: experience, TopSkills: skills}, nil
}

// Stats returns the full public statistics payload
func (r *StatsRepository) Stats(ctx context.Context) (*DirectoryStats, error) {
	overview, err := r.Overview(ctx)
	if err != nil {
		return nil, err
	}
	teamSize, err := r.distribution(ctx, "team_size_preference")
	if err != nil {
		return nil, err
	}
	industry, err := r.distribution(ctx, "linkedin_industry")
	if err != nil {
		return nil, err
	}
	recent, err := r.RecentJoiners(ctx, 5)
	if err != nil {
		return nil, err
	}
	return &DirectoryStats{
		TotalParticipants:      overview.TotalProfiles,
		ExperienceDistribution: overview.ExperienceDistribution,
		TopSkills:              overview.TopSkills,
		TeamSizePreferences:    teamSize,
		IndustryDistribution:   industry,
		RecentJoiners:          recent,
	}, nil
}
