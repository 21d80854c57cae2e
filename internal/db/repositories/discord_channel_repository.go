// discord_channel_repository.go implements DiscordChannelRepository, recording the
// channels created by the Discord provisioner so bulk operations can skip existing ones.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sundai/hackathon-api/internal/db/models"
)

// DiscordChannelRepository handles discord_channels database operations
type DiscordChannelRepository struct {
	db *sql.DB
}

// NewDiscordChannelRepository creates a new DiscordChannelRepository
func NewDiscordChannelRepository(db *sql.DB) *DiscordChannelRepository {
	return &DiscordChannelRepository{db: db}
}

// RecordChannel stores a provisioned channel
func (r *DiscordChannelRepository) RecordChannel(ctx context.Context, ch *models.DiscordChannel) error {
	ch.ID = uuid.New().String()
	ch.CreatedAt = time.Now()

	query := `
		INSERT INTO discord_channels (id, channel_id, channel_name, channel_type, team_id, match_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (channel_id) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query,
		ch.ID,
		ch.ChannelID,
		ch.ChannelName,
		string(ch.ChannelType),
		ch.TeamID,
		ch.MatchID,
		ch.CreatedAt,
	)
	return err
}

// HasMatchChannel reports whether a channel was already provisioned for the match
func (r *DiscordChannelRepository) HasMatchChannel(ctx context.Context, matchID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM discord_channels WHERE match_id = $1)`, matchID,
	).Scan(&exists)
	return exists, err
}

// ListByTeam returns the channels provisioned for a team
func (r *DiscordChannelRepository) ListByTeam(ctx context.Context, teamID string) ([]*models.DiscordChannel, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, channel_id, channel_name, channel_type, team_id, match_id, created_at
		FROM discord_channels
		WHERE team_id = $1
		ORDER BY created_at ASC
	`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	channels := []*models.DiscordChannel{}
	for rows.Next() {
		ch := &models.DiscordChannel{}
		var chType string
		if err := rows.Scan(&ch.ID, &ch.ChannelID, &ch.ChannelName, &chType, &ch.TeamID, &ch.MatchID, &ch.CreatedAt); err != nil {
			return nil, err
		}
		ch.ChannelType = models.ChannelType(chType)
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}
