// match_repository.go implements MatchRepository, persisting directed match
// recommendations and the requester's accept/reject decisions.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sundai/hackathon-api/internal/db/models"
)

// MatchRepository handles match database operations
type MatchRepository struct {
	db *sql.DB
}

// NewMatchRepository creates a new MatchRepository
func NewMatchRepository(db *sql.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

// Upsert writes the score and reason for the ordered pair (m.ProfileID, m.MatchedProfileID).
// When preserveStatus is true an accepted or rejected decision survives the recompute;
// otherwise the status is reset to pending. A recompute restamps created_at, so the pair
// moves to the top of the requester's history. m is populated with the stored row.
func (r *MatchRepository) Upsert(ctx context.Context, m *models.Match, preserveStatus bool) error {
	query := `
		INSERT INTO matches (id, profile_id, matched_profile_id, match_score, match_reason, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 'pending', NOW(), NOW())
		ON CONFLICT (profile_id, matched_profile_id) DO UPDATE SET
			match_score = EXCLUDED.match_score,
			match_reason = EXCLUDED.match_reason,
			status = CASE WHEN $6::boolean THEN matches.status ELSE 'pending' END,
			created_at = NOW(),
			updated_at = NOW()
		RETURNING id, status, created_at, updated_at
	`
	var status string
	err := r.db.QueryRowContext(ctx, query,
		uuid.New().String(),
		m.ProfileID,
		m.MatchedProfileID,
		m.Score,
		m.Reason,
		preserveStatus,
	).Scan(&m.ID, &status, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return err
	}
	m.Status = models.MatchStatus(status)
	return nil
}

// ListForRequester returns the requester's matches, newest first, joined with the candidate summary
func (r *MatchRepository) ListForRequester(ctx context.Context, profileID string) ([]*models.MatchWithProfile, error) {
	query := `
		SELECT m.id, m.profile_id, m.matched_profile_id, m.match_score, m.match_reason, m.status,
			m.created_at, m.updated_at,
			p.id, p.username, p.full_name, p.avatar_url, p.bio, p.skills, p.experience_level
		FROM matches m
		JOIN profiles p ON p.id = m.matched_profile_id
		WHERE m.profile_id = $1
		ORDER BY m.created_at DESC, m.match_score DESC
	`
	rows, err := r.db.QueryContext(ctx, query, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := []*models.MatchWithProfile{}
	for rows.Next() {
		mp := &models.MatchWithProfile{}
		var status string
		var experience sql.NullString
		err := rows.Scan(
			&mp.ID,
			&mp.ProfileID,
			&mp.MatchedProfileID,
			&mp.Score,
			&mp.Reason,
			&status,
			&mp.CreatedAt,
			&mp.UpdatedAt,
			&mp.MatchedProfile.ID,
			&mp.MatchedProfile.Username,
			&mp.MatchedProfile.FullName,
			&mp.MatchedProfile.AvatarURL,
			&mp.MatchedProfile.Bio,
			pq.Array(&mp.MatchedProfile.Skills),
			&experience,
		)
		if err != nil {
			return nil, err
		}
		mp.Status = models.MatchStatus(status)
		if experience.Valid {
			lvl := models.ExperienceLevel(experience.String)
			mp.MatchedProfile.ExperienceLevel = &lvl
		}
		if mp.MatchedProfile.Skills == nil {
			mp.MatchedProfile.Skills = []string{}
		}
		matches = append(matches, mp)
	}
	return matches, rows.Err()
}

// SetStatus records the requester's decision on a match they own. It returns nil when
// the match does not exist or belongs to another profile.
func (r *MatchRepository) SetStatus(ctx context.Context, matchID, ownerProfileID string, status models.MatchStatus) (*models.Match, error) {
	query := `
		UPDATE matches
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND profile_id = $2
		RETURNING id, profile_id, matched_profile_id, match_score, match_reason, status, created_at, updated_at
	`
	m := &models.Match{}
	var st string
	err := r.db.QueryRowContext(ctx, query, matchID, ownerProfileID, string(status)).Scan(
		&m.ID,
		&m.ProfileID,
		&m.MatchedProfileID,
		&m.Score,
		&m.Reason,
		&st,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	m.Status = models.MatchStatus(st)
	return m, nil
}

// ListAccepted returns accepted matches with both participants' Discord identities,
// optionally restricted to those created at or after since.
func (r *MatchRepository) ListAccepted(ctx context.Context, since *time.Time) ([]*models.MatchParticipants, error) {
	query := `
		SELECT m.id, m.match_reason,
			a.discord_id, COALESCE(a.full_name, a.username),
			b.discord_id, COALESCE(b.full_name, b.username)
		FROM matches m
		JOIN profiles a ON a.id = m.profile_id
		JOIN profiles b ON b.id = m.matched_profile_id
		WHERE m.status = 'accepted' AND ($1::timestamptz IS NULL OR m.created_at >= $1)
		ORDER BY m.created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*models.MatchParticipants{}
	for rows.Next() {
		mp := &models.MatchParticipants{}
		if err := rows.Scan(
			&mp.MatchID,
			&mp.Reason,
			&mp.RequesterDiscord,
			&mp.RequesterName,
			&mp.MatchedDiscord,
			&mp.MatchedName,
		); err != nil {
			return nil, err
		}
		out = append(out, mp)
	}
	return out, rows.Err()
}

// CountAll returns the total number of stored matches
func (r *MatchRepository) CountAll(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM matches`).Scan(&n)
	return n, err
}
