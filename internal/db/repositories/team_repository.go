// team_repository.go implements TeamRepository, providing database queries for teams and
// their memberships. Joins run in a transaction that locks the team row so capacity holds.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sundai/hackathon-api/internal/db/models"
)

var (
	// ErrDuplicateMember is returned when a profile joins a team it already belongs to
	ErrDuplicateMember = errors.New("profile is already a member of this team")
	// ErrTeamFull is returned when a team has reached max_members or is not open
	ErrTeamFull = errors.New("team is full")
)

const uniqueViolation = "23505"

const teamColumns = `id, name, description, project_idea, required_skills, max_members, current_members,
	status, created_by, created_at, updated_at`

// TeamRepository handles team database operations
type TeamRepository struct {
	db *sqlx.DB
}

// NewTeamRepository creates a new TeamRepository
func NewTeamRepository(db *sqlx.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

func scanTeam(row rowScanner) (*models.Team, error) {
	t := &models.Team{}
	var status string
	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Description,
		&t.ProjectIdea,
		pq.Array(&t.RequiredSkills),
		&t.MaxMembers,
		&t.CurrentMembers,
		&status,
		&t.CreatedBy,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Status = models.TeamStatus(status)
	if t.RequiredSkills == nil {
		t.RequiredSkills = []string{}
	}
	return t, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// CreateTeam inserts a team and adds its creator as the first member with the role "owner"
func (r *TeamRepository) CreateTeam(ctx context.Context, team *models.Team) error {
	team.ID = uuid.New().String()
	now := time.Now()
	team.CreatedAt = now
	team.UpdatedAt = now
	team.Status = models.TeamStatusOpen
	if team.MaxMembers == 0 {
		team.MaxMembers = 4
	}
	if team.RequiredSkills == nil {
		team.RequiredSkills = []string{}
	}
	team.CurrentMembers = 0
	if team.CreatedBy != nil {
		team.CurrentMembers = 1
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() // nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO teams (id, name, description, project_idea, required_skills, max_members, current_members,
			status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		team.ID,
		team.Name,
		team.Description,
		team.ProjectIdea,
		pq.Array(team.RequiredSkills),
		team.MaxMembers,
		team.CurrentMembers,
		string(team.Status),
		team.CreatedBy,
		team.CreatedAt,
		team.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if team.CreatedBy != nil {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO team_members (id, team_id, profile_id, role, joined_at)
			VALUES ($1, $2, $3, 'owner', $4)
		`, uuid.New().String(), team.ID, *team.CreatedBy, now)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetTeam retrieves a team by ID
func (r *TeamRepository) GetTeam(ctx context.Context, id string) (*models.Team, error) {
	t, err := scanTeam(r.db.QueryRowContext(ctx, `SELECT `+teamColumns+` FROM teams WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetTeamWithMembers retrieves a team and its roster, or nil when the team does not exist
func (r *TeamRepository) GetTeamWithMembers(ctx context.Context, id string) (*models.TeamWithMembers, error) {
	team, err := r.GetTeam(ctx, id)
	if err != nil || team == nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT tm.id, tm.team_id, tm.profile_id, tm.role, tm.joined_at,
			p.id, p.username, p.full_name, p.avatar_url, p.skills
		FROM team_members tm
		JOIN profiles p ON p.id = tm.profile_id
		WHERE tm.team_id = $1
		ORDER BY tm.joined_at ASC
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := &models.TeamWithMembers{Team: *team, Members: []models.TeamMember{}}
	for rows.Next() {
		var m models.TeamMember
		if err := rows.Scan(
			&m.ID,
			&m.TeamID,
			&m.ProfileID,
			&m.Role,
			&m.JoinedAt,
			&m.Profile.ID,
			&m.Profile.Username,
			&m.Profile.FullName,
			&m.Profile.AvatarURL,
			pq.Array(&m.Profile.Skills),
		); err != nil {
			return nil, err
		}
		if m.Profile.Skills == nil {
			m.Profile.Skills = []string{}
		}
		out.Members = append(out.Members, m)
	}
	return out, rows.Err()
}

// ListTeams returns teams newest first, optionally filtered by status
func (r *TeamRepository) ListTeams(ctx context.Context, status string, limit, offset int) ([]*models.Team, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = DefaultListLimit
	}
	query := `
		SELECT ` + teamColumns + `
		FROM teams
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.QueryContext(ctx, query, status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := []*models.Team{}
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

// JoinTeam adds profileID to the team. It returns ErrDuplicateMember when the profile is
// already a member and ErrTeamFull when there is no capacity left. The team is marked full
// when the join fills the last slot. A nil team with a nil error means the team does not exist.
func (r *TeamRepository) JoinTeam(ctx context.Context, teamID, profileID string) (*models.Team, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() // nolint:errcheck

	var current, capacity int
	var status string
	err = tx.QueryRowContext(ctx,
		`SELECT current_members, max_members, status FROM teams WHERE id = $1 FOR UPDATE`, teamID,
	).Scan(&current, &capacity, &status)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if status != string(models.TeamStatusOpen) || current >= capacity {
		return nil, ErrTeamFull
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO team_members (id, team_id, profile_id, role, joined_at)
		VALUES ($1, $2, $3, 'member', NOW())
	`, uuid.New().String(), teamID, profileID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateMember
		}
		return nil, err
	}

	team, err := scanTeam(tx.QueryRowContext(ctx, `
		UPDATE teams
		SET current_members = current_members + 1,
			status = CASE WHEN current_members + 1 >= max_members THEN 'full' ELSE status END,
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+teamColumns, teamID))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return team, nil
}

// LeaveTeam removes profileID from the team and reopens it if it was full.
// removed is false when the profile was not a member.
func (r *TeamRepository) LeaveTeam(ctx context.Context, teamID, profileID string) (removed bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback() // nolint:errcheck

	result, err := tx.ExecContext(ctx, `DELETE FROM team_members WHERE team_id = $1 AND profile_id = $2`, teamID, profileID)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE teams
		SET current_members = GREATEST(current_members - 1, 0),
			status = CASE WHEN status = 'full' THEN 'open' ELSE status END,
			updated_at = NOW()
		WHERE id = $1
	`, teamID)
	if err != nil {
		return false, err
	}

	return true, tx.Commit()
}

// MemberDiscordIDs returns the Discord identities of a team's members
func (r *TeamRepository) MemberDiscordIDs(ctx context.Context, teamID string) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids, `
		SELECT p.discord_id
		FROM team_members tm
		JOIN profiles p ON p.id = tm.profile_id
		WHERE tm.team_id = $1
		ORDER BY tm.joined_at ASC
	`, teamID)
	if err != nil {
		return nil, err
	}
	return ids, nil
}
