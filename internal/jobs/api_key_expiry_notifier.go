// Package jobs contains the long-running background jobs started by cmd/server.
//
// api_key_expiry_notifier.go implements the APIKeyExpiryNotifier, which periodically
// deactivates API keys whose expiry has passed and sends a Discord DM to owners whose keys
// are about to expire. Notification state is persisted (api_keys.expiry_notified_at) so
// each owner is warned once per key even across server restarts. The warning half is a
// no-op when the Discord bot is not configured; deactivation always runs.
package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sundai/hackathon-api/internal/config"
	"github.com/sundai/hackathon-api/internal/db/repositories"
	"github.com/sundai/hackathon-api/internal/discord"
	"github.com/sundai/hackathon-api/internal/telemetry"
)

// Notifier delivers a direct message to a Discord user. *discord.Provisioner satisfies it.
type Notifier interface {
	Enabled() bool
	Notify(ctx context.Context, discordID, message string, kind discord.NotificationKind) error
}

// APIKeyExpiryNotifier periodically expires keys and warns owners of upcoming expiry.
type APIKeyExpiryNotifier struct {
	apiKeyRepo  *repositories.APIKeyRepository
	notifier    Notifier
	interval    time.Duration
	warningDays int
	stopChan    chan struct{}
	now         func() time.Time
}

// NewAPIKeyExpiryNotifier creates a new APIKeyExpiryNotifier. The check interval
// defaults to 24h and the warning window to 7 days.
func NewAPIKeyExpiryNotifier(
	apiKeyRepo *repositories.APIKeyRepository,
	notifier Notifier,
	cfg *config.NotificationsConfig,
) *APIKeyExpiryNotifier {
	hours := cfg.APIKeyExpiryCheckIntervalHours
	if hours <= 0 {
		hours = 24
	}
	days := cfg.APIKeyExpiryWarningDays
	if days <= 0 {
		days = 7
	}
	return &APIKeyExpiryNotifier{
		apiKeyRepo:  apiKeyRepo,
		notifier:    notifier,
		interval:    time.Duration(hours) * time.Hour,
		warningDays: days,
		stopChan:    make(chan struct{}),
		now:         time.Now,
	}
}

// Start begins the background loop. It runs an initial check immediately, then repeats on
// the configured interval. The loop exits when ctx is cancelled or Stop() is called.
func (n *APIKeyExpiryNotifier) Start(ctx context.Context) {
	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	log.Printf("API key expiry job started (check interval: %v, warning window: %d days, discord: %v)",
		n.interval, n.warningDays, n.notifier != nil && n.notifier.Enabled())

	// Run once immediately on startup
	n.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			n.RunOnce(ctx)
		case <-n.stopChan:
			log.Println("API key expiry job stopped")
			return
		case <-ctx.Done():
			log.Println("API key expiry job context cancelled")
			return
		}
	}
}

// Stop signals the background loop to exit.
func (n *APIKeyExpiryNotifier) Stop() {
	close(n.stopChan)
}

// CheckResult summarizes one pass of the job
type CheckResult struct {
	Deactivated int64
	Warned      int
	Failed      int
}

// RunOnce deactivates expired keys and sends any due warnings.
func (n *APIKeyExpiryNotifier) RunOnce(ctx context.Context) CheckResult {
	var res CheckResult

	deactivated, err := n.apiKeyRepo.DeactivateExpired(ctx)
	if err != nil {
		log.Printf("API key expiry job: failed to deactivate expired keys: %v", err)
	} else if deactivated > 0 {
		res.Deactivated = deactivated
		log.Printf("API key expiry job: deactivated %d expired key(s)", deactivated)
	}

	if n.notifier == nil || !n.notifier.Enabled() {
		return res
	}

	keys, err := n.apiKeyRepo.ListExpiringUnnotified(ctx, time.Duration(n.warningDays)*24*time.Hour)
	if err != nil {
		log.Printf("API key expiry job: failed to query expiring keys: %v", err)
		return res
	}
	if len(keys) == 0 {
		return res
	}

	log.Printf("API key expiry job: found %d key(s) approaching expiry", len(keys))

	for _, ek := range keys {
		if ek.OwnerDiscordID == "" || ek.Key.ExpiresAt == nil {
			continue
		}

		msg := expiryMessage(ek.Key.Name, ek.Key.KeyPrefix, *ek.Key.ExpiresAt, n.now())
		if err := n.notifier.Notify(ctx, ek.OwnerDiscordID, msg, discord.KindWarning); err != nil {
			res.Failed++
			log.Printf("API key expiry job: failed to notify %s about key %s: %v", ek.OwnerDiscordID, ek.Key.ID, err)
			continue
		}
		res.Warned++
		telemetry.APIKeyExpiryNotificationsSentTotal.Inc()

		if err := n.apiKeyRepo.MarkExpiryNotified(ctx, ek.Key.ID); err != nil {
			log.Printf("API key expiry job: failed to mark key %s notified: %v", ek.Key.ID, err)
		}
	}
	return res
}

// expiryMessage builds the DM body. Days are rounded up so a key expiring later today
// reads as "1 day(s)".
func expiryMessage(keyName, keyPrefix string, expiresAt, now time.Time) string {
	hours := expiresAt.Sub(now).Hours()
	daysLeft := int(hours / 24)
	if hours > float64(daysLeft*24) {
		daysLeft++
	}
	if daysLeft < 0 {
		daysLeft = 0
	}
	return fmt.Sprintf(
		"Your API key '%s' (%s...) expires on %s, in %d day(s). Generate a replacement with POST /api/keys/generate before then.",
		keyName, keyPrefix, expiresAt.UTC().Format(time.RFC1123), daysLeft,
	)
}
