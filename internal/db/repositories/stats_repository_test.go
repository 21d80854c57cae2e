package repositories

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func newStatsRepo(t *testing.T) (*StatsRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStatsRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func expectOverview(mock sqlmock.Sqlmock) {
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM profiles").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery("COALESCE\\(NULLIF\\(experience_level").
		WillReturnRows(sqlmock.NewRows([]string{"bucket", "count"}).
			AddRow("advanced", 2).
			AddRow("not_specified", 1))
	mock.ExpectQuery("FROM profiles, unnest\\(skills\\).*LIMIT \\$1").
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"skill", "count"}).
			AddRow("go", 3).
			AddRow("react", 1))
}

func TestStatsOverview(t *testing.T) {
	repo, mock := newStatsRepo(t)
	expectOverview(mock)

	o, err := repo.Overview(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.TotalProfiles != 3 {
		t.Errorf("TotalProfiles = %d, want 3", o.TotalProfiles)
	}
	if o.ExperienceDistribution["not_specified"] != 1 {
		t.Errorf("ExperienceDistribution = %v", o.ExperienceDistribution)
	}
	if len(o.TopSkills) != 2 || o.TopSkills[0].Skill != "go" {
		t.Errorf("TopSkills = %v", o.TopSkills)
	}
}

func TestStats_Full(t *testing.T) {
	repo, mock := newStatsRepo(t)
	expectOverview(mock)
	mock.ExpectQuery("COALESCE\\(NULLIF\\(team_size_preference").
		WillReturnRows(sqlmock.NewRows([]string{"bucket", "count"}).AddRow("2-3", 3))
	mock.ExpectQuery("COALESCE\\(NULLIF\\(linkedin_industry").
		WillReturnRows(sqlmock.NewRows([]string{"bucket", "count"}).AddRow("Software", 2).AddRow("not_specified", 1))
	mock.ExpectQuery("SELECT username, created_at FROM profiles ORDER BY created_at DESC LIMIT \\$1").
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"username", "created_at"}).AddRow("ada", time.Now()))

	s, err := repo.Stats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.TeamSizePreferences["2-3"] != 3 {
		t.Errorf("TeamSizePreferences = %v", s.TeamSizePreferences)
	}
	if s.IndustryDistribution["Software"] != 2 {
		t.Errorf("IndustryDistribution = %v", s.IndustryDistribution)
	}
	if len(s.RecentJoiners) != 1 || s.RecentJoiners[0].Username != "ada" {
		t.Errorf("RecentJoiners = %v", s.RecentJoiners)
	}
}

func TestStats_CountError(t *testing.T) {
	repo, mock := newStatsRepo(t)
	mock.ExpectQuery("SELECT COUNT").WillReturnError(errDB)

	if _, err := repo.Stats(context.Background()); err == nil {
		t.Error("expected error, got nil")
	}
}

func TestSkillCounts_AllWithoutLimit(t *testing.T) {
	repo, mock := newStatsRepo(t)
	mock.ExpectQuery("FROM profiles, unnest\\(skills\\) AS skill GROUP BY skill ORDER BY count DESC, skill ASC$").
		WillReturnRows(sqlmock.NewRows([]string{"skill", "count"}).AddRow("go", 3))

	skills, err := repo.SkillCounts(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(skills) != 1 {
		t.Errorf("len = %d, want 1", len(skills))
	}
}

func TestIndustryCounts(t *testing.T) {
	repo, mock := newStatsRepo(t)
	mock.ExpectQuery("SELECT linkedin_industry AS industry").
		WillReturnRows(sqlmock.NewRows([]string{"industry", "count"}).AddRow("Software", 4).AddRow("Finance", 1))

	industries, err := repo.IndustryCounts(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(industries) != 2 || industries[1].Industry != "Finance" {
		t.Errorf("industries = %v", industries)
	}
}

func TestExperienceLevelCounts(t *testing.T) {
	repo, mock := newStatsRepo(t)
	mock.ExpectQuery("SELECT COALESCE\\(experience_level, 'not_specified'\\) AS level").
		WillReturnRows(sqlmock.NewRows([]string{"level", "count"}).AddRow("beginner", 5))

	levels, err := repo.ExperienceLevelCounts(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(levels) != 1 || levels[0].Count != 5 {
		t.Errorf("levels = %v", levels)
	}
}
