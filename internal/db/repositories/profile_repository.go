// profile_repository.go implements ProfileRepository, the participant directory:
// lookups by id and Discord identity, filtered listing, free-text search, and writes.
package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sundai/hackathon-api/internal/db/models"
)

const (
	// DefaultListLimit is the page size used when a caller does not specify one
	DefaultListLimit = 50
	// MaxListLimit caps the page size of directory listings
	MaxListLimit = 100
	// DefaultSearchLimit is the result cap for search and lookup endpoints
	DefaultSearchLimit = 20
)

const profileColumns = `id, discord_id, username, email, full_name, avatar_url, bio, skills, interests,
	experience_level, github_url, linkedin_url, portfolio_url, timezone, availability,
	project_preferences, team_size_preference, communication_preferences,
	linkedin_headline, linkedin_industry, linkedin_company, linkedin_position,
	linkedin_experience, linkedin_education, hackathon_experience, hackathon_wins,
	preferred_technologies, discord_access_token_encrypted, discord_refresh_token_encrypted,
	created_at, updated_at`

// ProfileRepository handles profile database operations
type ProfileRepository struct {
	db *sql.DB
}

// NewProfileRepository creates a new ProfileRepository
func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// ProfileFilter narrows a directory listing. Zero values mean "no filter".
type ProfileFilter struct {
	Skills             []string // overlap: any of these skills
	ExperienceLevel    string
	TeamSizePreference string
	Industry           string
	Limit              int
	Offset             int
}

// Normalize applies the default and maximum page size and clamps a negative offset
func (f *ProfileFilter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

// ProfileUpdate carries the participant-editable fields. Nil pointers are left unchanged.
type ProfileUpdate struct {
	Bio                      *string
	Skills                   []string
	Interests                []string
	ExperienceLevel          *string
	GithubURL                *string
	LinkedinURL              *string
	PortfolioURL             *string
	Timezone                 *string
	Availability             json.RawMessage
	ProjectPreferences       json.RawMessage
	TeamSizePreference       *string
	CommunicationPreferences json.RawMessage
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*models.Profile, error) {
	p := &models.Profile{}
	var availability, projectPrefs, commPrefs, liExperience, liEducation []byte
	var experience, teamSize sql.NullString

	err := row.Scan(
		&p.ID,
		&p.DiscordID,
		&p.Username,
		&p.Email,
		&p.FullName,
		&p.AvatarURL,
		&p.Bio,
		pq.Array(&p.Skills),
		pq.Array(&p.Interests),
		&experience,
		&p.GithubURL,
		&p.LinkedinURL,
		&p.PortfolioURL,
		&p.Timezone,
		&availability,
		&projectPrefs,
		&teamSize,
		&commPrefs,
		&p.LinkedinHeadline,
		&p.LinkedinIndustry,
		&p.LinkedinCompany,
		&p.LinkedinPosition,
		&liExperience,
		&liEducation,
		&p.HackathonExperience,
		&p.HackathonWins,
		pq.Array(&p.PreferredTechnologies),
		&p.DiscordAccessTokenEncrypted,
		&p.DiscordRefreshTokenEncrypted,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if experience.Valid {
		lvl := models.ExperienceLevel(experience.String)
		p.ExperienceLevel = &lvl
	}
	if teamSize.Valid {
		ts := models.TeamSizePreference(teamSize.String)
		p.TeamSizePreference = &ts
	}
	p.Availability = rawJSON(availability)
	p.ProjectPreferences = rawJSON(projectPrefs)
	p.CommunicationPreferences = rawJSON(commPrefs)
	p.LinkedinExperience = rawJSON(liExperience)
	p.LinkedinEducation = rawJSON(liEducation)
	if p.Skills == nil {
		p.Skills = []string{}
	}
	if p.Interests == nil {
		p.Interests = []string{}
	}
	if p.PreferredTechnologies == nil {
		p.PreferredTechnologies = []string{}
	}
	return p, nil
}

func rawJSON(b []byte) json.RawMessage {
	if len(b) == 0 {
		return nil
	}
	return json.RawMessage(b)
}

// jsonParam converts a raw JSON blob into a driver value, mapping empty to NULL
func jsonParam(b json.RawMessage) any {
	if len(b) == 0 {
		return nil
	}
	return []byte(b)
}

func enumParam[T ~string](v *T) any {
	if v == nil {
		return nil
	}
	return string(*v)
}

func (r *ProfileRepository) getOne(ctx context.Context, where string, arg any) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE ` + where
	p, err := scanProfile(r.db.QueryRowContext(ctx, query, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetByID retrieves a profile by its internal id
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	return r.getOne(ctx, "id = $1", id)
}

// GetByDiscordID retrieves a profile by its Discord identity
func (r *ProfileRepository) GetByDiscordID(ctx context.Context, discordID string) (*models.Profile, error) {
	return r.getOne(ctx, "discord_id = $1", discordID)
}

// GetByDiscordIDs retrieves the profiles for a set of Discord identities, keyed by Discord id
func (r *ProfileRepository) GetByDiscordIDs(ctx context.Context, discordIDs []string) (map[string]*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE discord_id = ANY($1)`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(discordIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]*models.Profile, len(discordIDs))
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out[p.DiscordID] = p
	}
	return out, rows.Err()
}

// Create inserts a new profile. The Discord identity must not already exist.
func (r *ProfileRepository) Create(ctx context.Context, p *models.Profile) error {
	p.ID = uuid.New().String()
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Skills == nil {
		p.Skills = []string{}
	}
	if p.Interests == nil {
		p.Interests = []string{}
	}

	query := `
		INSERT INTO profiles (id, discord_id, username, email, full_name, avatar_url, bio, skills, interests,
			experience_level, team_size_preference, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.db.ExecContext(ctx, query,
		p.ID,
		p.DiscordID,
		p.Username,
		p.Email,
		p.FullName,
		p.AvatarURL,
		p.Bio,
		pq.Array(p.Skills),
		pq.Array(p.Interests),
		enumParam(p.ExperienceLevel),
		enumParam(p.TeamSizePreference),
		p.CreatedAt,
		p.UpdatedAt,
	)
	return err
}

// UpsertByDiscordID inserts the profile or overwrites the registration fields of the
// existing row with the same Discord identity. created reports whether a row was inserted.
func (r *ProfileRepository) UpsertByDiscordID(ctx context.Context, p *models.Profile) (created bool, err error) {
	if p.Skills == nil {
		p.Skills = []string{}
	}
	if p.Interests == nil {
		p.Interests = []string{}
	}

	query := `
		INSERT INTO profiles (id, discord_id, username, email, full_name, avatar_url, bio, skills, interests,
			experience_level, github_url, linkedin_url, portfolio_url, timezone, availability,
			project_preferences, team_size_preference, communication_preferences, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, NOW(), NOW())
		ON CONFLICT (discord_id) DO UPDATE SET
			username = EXCLUDED.username,
			email = COALESCE(EXCLUDED.email, profiles.email),
			full_name = COALESCE(EXCLUDED.full_name, profiles.full_name),
			avatar_url = COALESCE(EXCLUDED.avatar_url, profiles.avatar_url),
			bio = COALESCE(EXCLUDED.bio, profiles.bio),
			skills = EXCLUDED.skills,
			interests = EXCLUDED.interests,
			experience_level = COALESCE(EXCLUDED.experience_level, profiles.experience_level),
			github_url = COALESCE(EXCLUDED.github_url, profiles.github_url),
			linkedin_url = COALESCE(EXCLUDED.linkedin_url, profiles.linkedin_url),
			portfolio_url = COALESCE(EXCLUDED.portfolio_url, profiles.portfolio_url),
			timezone = COALESCE(EXCLUDED.timezone, profiles.timezone),
			availability = COALESCE(EXCLUDED.availability, profiles.availability),
			project_preferences = COALESCE(EXCLUDED.project_preferences, profiles.project_preferences),
			team_size_preference = COALESCE(EXCLUDED.team_size_preference, profiles.team_size_preference),
			communication_preferences = COALESCE(EXCLUDED.communication_preferences, profiles.communication_preferences),
			updated_at = NOW()
		RETURNING id, created_at, updated_at, (xmax = 0) AS inserted
	`
	err = r.db.QueryRowContext(ctx, query,
		uuid.New().String(),
		p.DiscordID,
		p.Username,
		p.Email,
		p.FullName,
		p.AvatarURL,
		p.Bio,
		pq.Array(p.Skills),
		pq.Array(p.Interests),
		enumParam(p.ExperienceLevel),
		p.GithubURL,
		p.LinkedinURL,
		p.PortfolioURL,
		p.Timezone,
		jsonParam(p.Availability),
		jsonParam(p.ProjectPreferences),
		enumParam(p.TeamSizePreference),
		jsonParam(p.CommunicationPreferences),
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt, &created)
	if err != nil {
		return false, err
	}
	return created, nil
}

// Update applies a partial update to the profile owned by discordID and returns the
// updated row, or nil if no such profile exists.
func (r *ProfileRepository) Update(ctx context.Context, discordID string, u ProfileUpdate) (*models.Profile, error) {
	sets := []string{}
	args := []any{}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if u.Bio != nil {
		add("bio", *u.Bio)
	}
	if u.Skills != nil {
		add("skills", pq.Array(u.Skills))
	}
	if u.Interests != nil {
		add("interests", pq.Array(u.Interests))
	}
	if u.ExperienceLevel != nil {
		add("experience_level", *u.ExperienceLevel)
	}
	if u.GithubURL != nil {
		add("github_url", *u.GithubURL)
	}
	if u.LinkedinURL != nil {
		add("linkedin_url", *u.LinkedinURL)
	}
	if u.PortfolioURL != nil {
		add("portfolio_url", *u.PortfolioURL)
	}
	if u.Timezone != nil {
		add("timezone", *u.Timezone)
	}
	if len(u.Availability) > 0 {
		add("availability", []byte(u.Availability))
	}
	if len(u.ProjectPreferences) > 0 {
		add("project_preferences", []byte(u.ProjectPreferences))
	}
	if u.TeamSizePreference != nil {
		add("team_size_preference", *u.TeamSizePreference)
	}
	if len(u.CommunicationPreferences) > 0 {
		add("communication_preferences", []byte(u.CommunicationPreferences))
	}
	sets = append(sets, "updated_at = NOW()")

	args = append(args, discordID)
	query := fmt.Sprintf(`UPDATE profiles SET %s WHERE discord_id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), profileColumns)

	p, err := scanProfile(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// SetDiscordTokens stores the encrypted Discord OAuth tokens for a profile
func (r *ProfileRepository) SetDiscordTokens(ctx context.Context, profileID, accessEnc, refreshEnc string) error {
	query := `
		UPDATE profiles
		SET discord_access_token_encrypted = $2, discord_refresh_token_encrypted = NULLIF($3, ''), updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, profileID, accessEnc, refreshEnc)
	return err
}

// List returns one page of the directory, newest first, plus the total matching count
func (r *ProfileRepository) List(ctx context.Context, f ProfileFilter) ([]*models.Profile, int, error) {
	f.Normalize()

	where := []string{"1=1"}
	args := []any{}
	if len(f.Skills) > 0 {
		args = append(args, pq.Array(f.Skills))
		where = append(where, fmt.Sprintf("skills && $%d", len(args)))
	}
	if f.ExperienceLevel != "" {
		args = append(args, f.ExperienceLevel)
		where = append(where, fmt.Sprintf("experience_level = $%d", len(args)))
	}
	if f.TeamSizePreference != "" {
		args = append(args, f.TeamSizePreference)
		where = append(where, fmt.Sprintf("team_size_preference = $%d", len(args)))
	}
	if f.Industry != "" {
		args = append(args, f.Industry)
		where = append(where, fmt.Sprintf("linkedin_industry = $%d", len(args)))
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM profiles WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		profileColumns, clause, len(args)+1, len(args)+2)
	args = append(args, f.Limit, f.Offset)

	profiles, err := r.queryProfiles(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return profiles, total, nil
}

// ListExcept returns every profile except the one with the given id; this is the
// candidate pool for matching.
func (r *ProfileRepository) ListExcept(ctx context.Context, excludeID string) ([]*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id <> $1 ORDER BY created_at ASC`
	return r.queryProfiles(ctx, query, excludeID)
}

// Search performs a case-insensitive substring match on username, full name, bio, and headline
func (r *ProfileRepository) Search(ctx context.Context, term string, limit int) ([]*models.Profile, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = DefaultSearchLimit
	}
	query := `
		SELECT ` + profileColumns + `
		FROM profiles
		WHERE username ILIKE $1 OR full_name ILIKE $1 OR bio ILIKE $1 OR linkedin_headline ILIKE $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	return r.queryProfiles(ctx, query, likePattern(term), limit)
}

// BySkill returns profiles that list the given skill
func (r *ProfileRepository) BySkill(ctx context.Context, skill string, limit int) ([]*models.Profile, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = DefaultSearchLimit
	}
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE $1 = ANY(skills) ORDER BY created_at DESC LIMIT $2`
	return r.queryProfiles(ctx, query, skill, limit)
}

// ByIndustry returns profiles whose imported industry equals the given value
func (r *ProfileRepository) ByIndustry(ctx context.Context, industry string, limit int) ([]*models.Profile, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = DefaultSearchLimit
	}
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE linkedin_industry = $1 ORDER BY created_at DESC LIMIT $2`
	return r.queryProfiles(ctx, query, industry, limit)
}

// ByUsernames returns the profiles with the given usernames
func (r *ProfileRepository) ByUsernames(ctx context.Context, usernames []string) ([]*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE username = ANY($1)`
	return r.queryProfiles(ctx, query, pq.Array(usernames))
}

// Ping checks database reachability for health endpoints
func (r *ProfileRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *ProfileRepository) queryProfiles(ctx context.Context, query string, args ...any) ([]*models.Profile, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := []*models.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// likePattern escapes LIKE metacharacters and wraps the term for substring matching
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(term) + "%"
}
