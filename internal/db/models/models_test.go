package models

import (
	"testing"
	"time"
)

func TestExperienceLevel_Index(t *testing.T) {
	tests := []struct {
		level ExperienceLevel
		want  int
	}{
		{ExperienceBeginner, 0},
		{ExperienceIntermediate, 1},
		{ExperienceAdvanced, 2},
		{ExperienceExpert, 3},
		{"guru", -1},
		{"", -1},
	}
	for _, tt := range tests {
		if got := tt.level.Index(); got != tt.want {
			t.Errorf("%q.Index() = %d, want %d", tt.level, got, tt.want)
		}
		if got := tt.level.IsValid(); got != (tt.want >= 0) {
			t.Errorf("%q.IsValid() = %v", tt.level, got)
		}
	}
}

func TestTeamSizePreference_IsValid(t *testing.T) {
	for _, v := range []TeamSizePreference{"2-3", "4-5", "6+"} {
		if !v.IsValid() {
			t.Errorf("%q.IsValid() = false", v)
		}
	}
	for _, v := range []TeamSizePreference{"", "1", "7-8"} {
		if v.IsValid() {
			t.Errorf("%q.IsValid() = true", v)
		}
	}
}

func TestProfile_Accessors(t *testing.T) {
	p := &Profile{Username: "ada"}
	if p.Level() != "" || p.TeamSize() != "" {
		t.Error("unset enums should read as empty")
	}
	if p.DisplayName() != "ada" {
		t.Errorf("DisplayName() = %q, want username fallback", p.DisplayName())
	}

	full := "Ada Lovelace"
	lvl := ExperienceExpert
	p.FullName = &full
	p.ExperienceLevel = &lvl
	if p.DisplayName() != full {
		t.Errorf("DisplayName() = %q, want %q", p.DisplayName(), full)
	}
	if p.Level() != ExperienceExpert {
		t.Errorf("Level() = %q", p.Level())
	}
	if s := p.Summary(); s.Username != "ada" || s.ExperienceLevel == nil {
		t.Errorf("Summary() = %+v", s)
	}
}

func TestAPIKey_IsExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	if (&APIKey{}).IsExpired(now) {
		t.Error("key without expiry should not be expired")
	}
	if !(&APIKey{ExpiresAt: &past}).IsExpired(now) {
		t.Error("key with past expiry should be expired")
	}
	if (&APIKey{ExpiresAt: &future}).IsExpired(now) {
		t.Error("key with future expiry should not be expired")
	}
	if !(&APIKey{RevokedAt: &past}).IsRevoked() {
		t.Error("IsRevoked() = false for revoked key")
	}
}
