// Package discord provisions team and match channels on the hackathon Discord server and
// sends participant notifications through the bot account. Calls go through the Gateway
// interface; SessionGateway is the discordgo-backed implementation.
package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
)

// Gateway is the subset of the Discord REST API the provisioner needs
type Gateway interface {
	CreateChannel(ctx context.Context, guildID string, data discordgo.GuildChannelCreateData) (*discordgo.Channel, error)
	SendMessage(ctx context.Context, channelID, content string) error
	SendDirectEmbed(ctx context.Context, userID string, embed *discordgo.MessageEmbed) error
	Guild(ctx context.Context, guildID string) (*discordgo.Guild, error)
	GuildChannels(ctx context.Context, guildID string) ([]*discordgo.Channel, error)
}

// SessionGateway implements Gateway over a REST-only discordgo session
type SessionGateway struct {
	session *discordgo.Session
}

// NewSessionGateway creates a gateway authenticated with the bot token.
// No websocket connection is opened; every call is a REST request.
func NewSessionGateway(botToken string) (*SessionGateway, error) {
	if botToken == "" {
		return nil, ErrNotConfigured
	}
	s, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	s.StateEnabled = false
	return &SessionGateway{session: s}, nil
}

func (g *SessionGateway) CreateChannel(ctx context.Context, guildID string, data discordgo.GuildChannelCreateData) (*discordgo.Channel, error) {
	return g.session.GuildChannelCreateComplex(guildID, data, discordgo.WithContext(ctx))
}

func (g *SessionGateway) SendMessage(ctx context.Context, channelID, content string) error {
	_, err := g.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	return err
}

// SendDirectEmbed opens (or reuses) the DM channel with userID and posts the embed
func (g *SessionGateway) SendDirectEmbed(ctx context.Context, userID string, embed *discordgo.MessageEmbed) error {
	dm, err := g.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return mapRESTError(err)
	}
	_, err = g.session.ChannelMessageSendEmbed(dm.ID, embed, discordgo.WithContext(ctx))
	return mapRESTError(err)
}

func (g *SessionGateway) Guild(ctx context.Context, guildID string) (*discordgo.Guild, error) {
	guild, err := g.session.Guild(guildID, discordgo.WithContext(ctx))
	return guild, mapRESTError(err)
}

func (g *SessionGateway) GuildChannels(ctx context.Context, guildID string) ([]*discordgo.Channel, error) {
	return g.session.GuildChannels(guildID, discordgo.WithContext(ctx))
}

// mapRESTError converts Discord 404 responses into ErrNotFound
func mapRESTError(err error) error {
	if err == nil {
		return nil
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}
