package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/sundai/hackathon-api/internal/db/models"
	"github.com/sundai/hackathon-api/internal/telemetry"
)

const (
	MinTeamMembers = 2
	MaxTeamMembers = 10

	defaultTeamTopic   = "Team collaboration channel"
	defaultMatchReason = "Great potential for collaboration based on complementary skills and interests."
	embedFooter        = "Sundai Hackathon API"
)

var (
	// ErrNotConfigured is returned when no bot token or guild is configured
	ErrNotConfigured = errors.New("discord: bot is not configured")
	// ErrNotFound is returned when Discord reports an unknown user or guild
	ErrNotFound = errors.New("discord: not found")
	// ErrInvalidRequest is returned for requests the provisioner refuses before calling Discord
	ErrInvalidRequest = errors.New("discord: invalid request")
)

const (
	textMemberAllow = discordgo.PermissionViewChannel |
		discordgo.PermissionSendMessages |
		discordgo.PermissionReadMessageHistory |
		discordgo.PermissionAttachFiles |
		discordgo.PermissionEmbedLinks

	voiceMemberAllow = discordgo.PermissionViewChannel |
		discordgo.PermissionVoiceConnect |
		discordgo.PermissionVoiceSpeak |
		discordgo.PermissionVoiceUseVAD
)

var whitespace = regexp.MustCompile(`\s+`)

// ChannelStore records provisioned channels
type ChannelStore interface {
	RecordChannel(ctx context.Context, ch *models.DiscordChannel) error
	HasMatchChannel(ctx context.Context, matchID string) (bool, error)
}

// AcceptedMatchLister lists accepted matches with both participants' identities
type AcceptedMatchLister interface {
	ListAccepted(ctx context.Context, since *time.Time) ([]*models.MatchParticipants, error)
}

// Participant identifies one side of a match channel
type Participant struct {
	DiscordID   string
	Username    string
	DisplayName string
}

func (p Participant) label() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Username
}

// TeamSpaceRequest describes the channels to create for a team
type TeamSpaceRequest struct {
	TeamName         string
	Description      string
	ProjectIdea      string
	MemberDiscordIDs []string
	TeamID           *string
}

// ChannelRef is a created channel and its web link
type ChannelRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// TeamSpace is the pair of channels created for a team
type TeamSpace struct {
	TextChannel  ChannelRef `json:"text_channel"`
	VoiceChannel ChannelRef `json:"voice_channel"`
}

// CreatedMatchChannel reports one channel created by BulkCreateMatchSpaces
type CreatedMatchChannel struct {
	MatchID     string `json:"match_id"`
	ChannelID   string `json:"channel_id"`
	ChannelName string `json:"channel_name"`
}

// BulkResult summarizes a BulkCreateMatchSpaces run
type BulkResult struct {
	Created []CreatedMatchChannel `json:"channels"`
	Skipped int                   `json:"skipped"`
	Failed  int                   `json:"failed"`
}

// NotificationKind selects the embed color and title of a notification
type NotificationKind string

const (
	KindInfo    NotificationKind = "info"
	KindSuccess NotificationKind = "success"
	KindWarning NotificationKind = "warning"
	KindError   NotificationKind = "error"
)

// Color returns the embed color for the kind; unknown kinds use the info color
func (k NotificationKind) Color() int {
	switch k {
	case KindSuccess:
		return 0x00ff00
	case KindWarning:
		return 0xffaa00
	case KindError:
		return 0xff0000
	default:
		return 0x0099ff
	}
}

// Title returns the embed title for the kind
func (k NotificationKind) Title() string {
	switch k {
	case KindSuccess:
		return "✅ Success"
	case KindWarning:
		return "⚠️ Warning"
	case KindError:
		return "❌ Error"
	default:
		return "ℹ️ Information"
	}
}

// GuildSummary describes the hackathon server
type GuildSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MemberCount int    `json:"member_count"`
	IconURL     string `json:"icon_url,omitempty"`
}

// ChannelSummary describes one text channel on the server
type ChannelSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Topic string `json:"topic"`
}

// ServerInfo is the guild summary and its text channels
type ServerInfo struct {
	Guild    GuildSummary     `json:"guild"`
	Channels []ChannelSummary `json:"channels"`
}

// Provisioner creates team and match channels and sends notifications
type Provisioner struct {
	gateway  Gateway
	guildID  string
	channels ChannelStore
	matches  AcceptedMatchLister
	now      func() time.Time
}

// NewProvisioner creates a provisioner for the given guild
func NewProvisioner(gateway Gateway, guildID string, channels ChannelStore, matches AcceptedMatchLister) *Provisioner {
	return &Provisioner{
		gateway:  gateway,
		guildID:  guildID,
		channels: channels,
		matches:  matches,
		now:      time.Now,
	}
}

// Enabled reports whether the provisioner can reach Discord; safe on a nil receiver
func (p *Provisioner) Enabled() bool {
	return p != nil && p.gateway != nil && p.guildID != ""
}

func (p *Provisioner) ready() error {
	if !p.Enabled() {
		return ErrNotConfigured
	}
	return nil
}

// ChannelURL is the web link for a channel on the hackathon server
func (p *Provisioner) ChannelURL(channelID string) string {
	return fmt.Sprintf("https://discord.com/channels/%s/%s", p.guildID, channelID)
}

// TeamChannelName is the text channel name for a team: "team-" plus the lowercased name
// with whitespace runs replaced by '-'
func TeamChannelName(teamName string) string {
	return "team-" + slug(teamName)
}

// MatchChannelName is the channel name for a pair of participants
func MatchChannelName(a, b string) string {
	return slug("match-" + a + "-" + b)
}

func slug(s string) string {
	return whitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
}

func (p *Provisioner) everyoneDeny() *discordgo.PermissionOverwrite {
	// The @everyone role shares the guild's id.
	return &discordgo.PermissionOverwrite{
		ID:   p.guildID,
		Type: discordgo.PermissionOverwriteTypeRole,
		Deny: discordgo.PermissionViewChannel,
	}
}

func (p *Provisioner) overwrites(memberIDs []string, allow int64) []*discordgo.PermissionOverwrite {
	out := []*discordgo.PermissionOverwrite{p.everyoneDeny()}
	for _, id := range memberIDs {
		out = append(out, &discordgo.PermissionOverwrite{
			ID:    id,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: allow,
		})
	}
	return out
}

func (p *Provisioner) ref(ch *discordgo.Channel) ChannelRef {
	return ChannelRef{ID: ch.ID, Name: ch.Name, URL: p.ChannelURL(ch.ID)}
}

// CreateTeamSpace creates a private text channel and voice channel for the members,
// records both, and posts a welcome message. A failure after the text channel exists
// leaves it in place; the orphan id is logged.
func (p *Provisioner) CreateTeamSpace(ctx context.Context, req TeamSpaceRequest) (*TeamSpace, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.TeamName) == "" {
		return nil, fmt.Errorf("%w: team name is required", ErrInvalidRequest)
	}
	if n := len(req.MemberDiscordIDs); n < MinTeamMembers || n > MaxTeamMembers {
		return nil, fmt.Errorf("%w: a team needs %d to %d members, got %d", ErrInvalidRequest, MinTeamMembers, MaxTeamMembers, n)
	}

	description := req.Description
	if description == "" {
		description = defaultTeamTopic
	}
	idea := req.ProjectIdea
	if idea == "" {
		idea = "TBD"
	}

	text, err := p.gateway.CreateChannel(ctx, p.guildID, discordgo.GuildChannelCreateData{
		Name:                 TeamChannelName(req.TeamName),
		Type:                 discordgo.ChannelTypeGuildText,
		Topic:                fmt.Sprintf("%s\n\nProject: %s", description, idea),
		PermissionOverwrites: p.overwrites(req.MemberDiscordIDs, textMemberAllow),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create team text channel: %w", err)
	}
	telemetry.DiscordChannelsCreatedTotal.WithLabelValues(string(models.ChannelTypeTeam)).Inc()

	voice, err := p.gateway.CreateChannel(ctx, p.guildID, discordgo.GuildChannelCreateData{
		Name:                 "🔊 " + req.TeamName,
		Type:                 discordgo.ChannelTypeGuildVoice,
		PermissionOverwrites: p.overwrites(req.MemberDiscordIDs, voiceMemberAllow),
	})
	if err != nil {
		slog.Error("team voice channel creation failed, text channel left in place",
			"team", req.TeamName, "orphan_channel_id", text.ID, "error", err)
		return nil, fmt.Errorf("failed to create team voice channel: %w", err)
	}
	telemetry.DiscordChannelsCreatedTotal.WithLabelValues(string(models.ChannelTypeVoice)).Inc()

	for _, rec := range []*models.DiscordChannel{
		{ChannelID: text.ID, ChannelName: text.Name, ChannelType: models.ChannelTypeTeam, TeamID: req.TeamID},
		{ChannelID: voice.ID, ChannelName: voice.Name, ChannelType: models.ChannelTypeVoice, TeamID: req.TeamID},
	} {
		if err := p.channels.RecordChannel(ctx, rec); err != nil {
			return nil, fmt.Errorf("failed to record channel %s: %w", rec.ChannelID, err)
		}
	}

	if err := p.gateway.SendMessage(ctx, text.ID, teamWelcome(req, text.ID, voice.ID)); err != nil {
		return nil, fmt.Errorf("failed to post team welcome message: %w", err)
	}

	return &TeamSpace{TextChannel: p.ref(text), VoiceChannel: p.ref(voice)}, nil
}

// CreateMatchSpace creates a private text channel for two matched participants
func (p *Provisioner) CreateMatchSpace(ctx context.Context, requester, matched Participant, reason string, matchID *string) (*ChannelRef, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}
	if requester.DiscordID == "" || matched.DiscordID == "" {
		return nil, fmt.Errorf("%w: both participants need a discord id", ErrInvalidRequest)
	}
	return p.createMatchChannel(ctx, requester, matched, reason, matchID)
}

func (p *Provisioner) createMatchChannel(ctx context.Context, a, b Participant, reason string, matchID *string) (*ChannelRef, error) {
	nameA, nameB := a.Username, b.Username
	if nameA == "" {
		nameA = "user1"
	}
	if nameB == "" {
		nameB = "user2"
	}

	ch, err := p.gateway.CreateChannel(ctx, p.guildID, discordgo.GuildChannelCreateData{
		Name:                 MatchChannelName(nameA, nameB),
		Type:                 discordgo.ChannelTypeGuildText,
		Topic:                fmt.Sprintf("AI-generated match between %s and %s", a.label(), b.label()),
		PermissionOverwrites: p.overwrites([]string{a.DiscordID, b.DiscordID}, textMemberAllow),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create match channel: %w", err)
	}
	telemetry.DiscordChannelsCreatedTotal.WithLabelValues(string(models.ChannelTypeMatch)).Inc()

	if err := p.channels.RecordChannel(ctx, &models.DiscordChannel{
		ChannelID:   ch.ID,
		ChannelName: ch.Name,
		ChannelType: models.ChannelTypeMatch,
		MatchID:     matchID,
	}); err != nil {
		return nil, fmt.Errorf("failed to record channel %s: %w", ch.ID, err)
	}

	if err := p.gateway.SendMessage(ctx, ch.ID, matchWelcome(a, b, reason)); err != nil {
		return nil, fmt.Errorf("failed to post match welcome message: %w", err)
	}

	ref := p.ref(ch)
	return &ref, nil
}

// BulkCreateMatchSpaces creates a channel for every accepted match that has none yet.
// Matches with a recorded channel or an existing channel of the same name are skipped;
// per-match failures are logged and counted and do not stop the run.
func (p *Provisioner) BulkCreateMatchSpaces(ctx context.Context) (*BulkResult, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}

	accepted, err := p.matches.ListAccepted(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list accepted matches: %w", err)
	}

	existing, err := p.gateway.GuildChannels(ctx, p.guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list guild channels: %w", err)
	}
	names := make(map[string]bool, len(existing))
	for _, ch := range existing {
		names[ch.Name] = true
	}

	result := &BulkResult{Created: []CreatedMatchChannel{}}
	for _, m := range accepted {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		name := MatchChannelName(m.RequesterName, m.MatchedName)
		if names[name] {
			result.Skipped++
			continue
		}
		recorded, err := p.channels.HasMatchChannel(ctx, m.MatchID)
		if err != nil {
			slog.Error("bulk match channels: lookup failed", "match_id", m.MatchID, "error", err)
			result.Failed++
			continue
		}
		if recorded {
			result.Skipped++
			continue
		}

		matchID := m.MatchID
		ref, err := p.createMatchChannel(ctx,
			Participant{DiscordID: m.RequesterDiscord, Username: m.RequesterName},
			Participant{DiscordID: m.MatchedDiscord, Username: m.MatchedName},
			m.Reason, &matchID)
		if err != nil {
			slog.Error("bulk match channels: creation failed", "match_id", m.MatchID, "error", err)
			result.Failed++
			continue
		}
		names[ref.Name] = true
		result.Created = append(result.Created, CreatedMatchChannel{
			MatchID:     m.MatchID,
			ChannelID:   ref.ID,
			ChannelName: ref.Name,
		})
	}
	return result, nil
}

// Notify sends a direct-message embed to a participant
func (p *Provisioner) Notify(ctx context.Context, discordID, message string, kind NotificationKind) error {
	if err := p.ready(); err != nil {
		return err
	}
	if discordID == "" || message == "" {
		return fmt.Errorf("%w: discord id and message are required", ErrInvalidRequest)
	}

	embed := &discordgo.MessageEmbed{
		Title:       kind.Title(),
		Description: message,
		Color:       kind.Color(),
		Timestamp:   p.now().UTC().Format(time.RFC3339),
		Footer:      &discordgo.MessageEmbedFooter{Text: embedFooter},
	}
	if err := p.gateway.SendDirectEmbed(ctx, discordID, embed); err != nil {
		return fmt.Errorf("failed to notify %s: %w", discordID, err)
	}
	return nil
}

// ServerInfo returns the guild summary and its text channels
func (p *Provisioner) ServerInfo(ctx context.Context) (*ServerInfo, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}

	guild, err := p.gateway.Guild(ctx, p.guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to get guild: %w", err)
	}
	channels, err := p.gateway.GuildChannels(ctx, p.guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list guild channels: %w", err)
	}

	info := &ServerInfo{
		Guild: GuildSummary{
			ID:          guild.ID,
			Name:        guild.Name,
			MemberCount: guild.MemberCount,
		},
		Channels: []ChannelSummary{},
	}
	if info.Guild.MemberCount == 0 {
		info.Guild.MemberCount = guild.ApproximateMemberCount
	}
	if guild.Icon != "" {
		info.Guild.IconURL = discordgo.EndpointGuildIcon(guild.ID, guild.Icon)
	}
	for _, ch := range channels {
		if ch.Type != discordgo.ChannelTypeGuildText {
			continue
		}
		info.Channels = append(info.Channels, ChannelSummary{ID: ch.ID, Name: ch.Name, Topic: ch.Topic})
	}
	return info, nil
}
