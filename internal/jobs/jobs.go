// Package jobs holds the background work run by the scheduler. Every job is
// idempotent and safe to run concurrently with chat handlers.
package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"telegram-health-assistant/internal/fatsecret"
	"telegram-health-assistant/internal/messages"
	"telegram-health-assistant/internal/metrics"
	"telegram-health-assistant/internal/models"
	"telegram-health-assistant/internal/providers"
)

const (
	// RefreshHorizon is how far ahead of expiry the sweep refreshes tokens.
	RefreshHorizon = 10 * time.Minute
	// MessageRetention bounds the chat history kept for the classifier.
	MessageRetention = 7 * 24 * time.Hour
)

type Store interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	ListConnectedUserIDs(ctx context.Context) ([]int64, error)
	ListWhoopExpiringBefore(ctx context.Context, t time.Time) ([]models.WhoopCredential, error)
	ListFatSecretCredentials(ctx context.Context) ([]models.FatSecretCredential, error)
	DeleteMessagesBefore(ctx context.Context, t time.Time) (int64, error)
	MarkJournalReminder(ctx context.Context, userID int64, slotKey string) (bool, error)
	DeleteJournalRemindersBefore(ctx context.Context, t time.Time) (int64, error)
}

type Refresher interface {
	Refresh(ctx context.Context, cred *models.WhoopCredential) (*models.WhoopCredential, error)
}

type DiaryChecker interface {
	FoodDiary(ctx context.Context, userID int64, day time.Time) (*fatsecret.Diary, error)
}

type Snapshotter interface {
	Today(ctx context.Context, userID int64) models.Snapshot
}

// Briefer turns a data summary into a short message.
type Briefer interface {
	Briefing(ctx context.Context, k messages.Kind, u *models.User, dataSummary string) (string, error)
}

// Notifier pushes a message to a telegram user. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, telegramUserID int64, text string) error
}

type Jobs struct {
	Store    Store
	Tokens   Refresher
	Diary    DiaryChecker
	Stats    Snapshotter
	Briefer  Briefer // optional; nil sends the template
	Notifier Notifier
	Clock    clockwork.Clock
	Loc      *time.Location
}

func (j *Jobs) now() time.Time {
	if j.Clock == nil {
		return time.Now()
	}
	return j.Clock.Now()
}

func (j *Jobs) loc() *time.Location {
	if j.Loc == nil {
		return time.UTC
	}
	return j.Loc
}

// RefreshSweep refreshes every WHOOP credential expiring within the horizon.
// One user's failure never stops the sweep.
func (j *Jobs) RefreshSweep(ctx context.Context) error {
	now := j.now()
	creds, err := j.Store.ListWhoopExpiringBefore(ctx, now.Add(RefreshHorizon))
	if err != nil {
		metrics.RecordJob("refresh_sweep", "error")
		return err
	}
	var refreshed, expired, failed int
	for i := range creds {
		cred := creds[i]
		logger := log.With().Int64("user_id", cred.UserID).Logger()
		_, err := j.Tokens.Refresh(ctx, &cred)
		switch {
		case err == nil:
			refreshed++
		case providers.IsCredentialExpired(err):
			expired++
			logger.Warn().Msg("whoop credential expired during sweep")
			j.notify(ctx, cred.UserID, messages.ExpiredNotice(models.ProviderWhoop))
		default:
			failed++
			logger.Error().Err(err).Msg("whoop refresh failed during sweep")
		}
	}
	log.Info().Int("candidates", len(creds)).Int("refreshed", refreshed).
		Int("expired", expired).Int("failed", failed).Msg("refresh sweep done")
	metrics.RecordJob("refresh_sweep", "ok")
	return nil
}

// FatSecretCheck checks each FatSecret credential with today's diary. The
// client clears credentials the provider rejects; the user is told once.
func (j *Jobs) FatSecretCheck(ctx context.Context) error {
	creds, err := j.Store.ListFatSecretCredentials(ctx)
	if err != nil {
		metrics.RecordJob("fatsecret_check", "error")
		return err
	}
	day := j.now().In(j.loc())
	for _, cred := range creds {
		_, err := j.Diary.FoodDiary(ctx, cred.UserID, day)
		switch {
		case err == nil, errors.Is(err, providers.ErrNotConnected):
		case providers.IsCredentialExpired(err):
			log.Warn().Int64("user_id", cred.UserID).Msg("fatsecret credential expired during check")
			j.notify(ctx, cred.UserID, messages.ExpiredNotice(models.ProviderFatSecret))
		default:
			log.Error().Err(err).Int64("user_id", cred.UserID).Msg("fatsecret check failed")
		}
	}
	metrics.RecordJob("fatsecret_check", "ok")
	return nil
}

// Prewarm builds a snapshot for every connected user so refresh and
// invalidation happen here rather than in a chat reply.
func (j *Jobs) Prewarm(ctx context.Context) error {
	ids, err := j.Store.ListConnectedUserIDs(ctx)
	if err != nil {
		metrics.RecordJob("prewarm", "error")
		return err
	}
	for _, id := range ids {
		snap := j.Stats.Today(ctx, id)
		if len(snap.ExpiredProviders) > 0 {
			j.notify(ctx, id, messages.ReconnectHint(snap.ExpiredProviders))
		}
	}
	metrics.RecordJob("prewarm", "ok")
	return nil
}

// Cleanup drops conversation messages and journal reminder marks older than
// MessageRetention.
func (j *Jobs) Cleanup(ctx context.Context) error {
	cutoff := j.now().Add(-MessageRetention)
	n, err := j.Store.DeleteMessagesBefore(ctx, cutoff)
	if err != nil {
		metrics.RecordJob("cleanup", "error")
		return err
	}
	marks, err := j.Store.DeleteJournalRemindersBefore(ctx, cutoff)
	if err != nil {
		metrics.RecordJob("cleanup", "error")
		return err
	}
	log.Info().Int64("deleted", n).Int64("reminder_marks", marks).Msg("conversation cleanup done")
	metrics.RecordJob("cleanup", "ok")
	return nil
}

func (j *Jobs) MorningBriefing(ctx context.Context) error {
	return j.briefAll(ctx, messages.Morning)
}

func (j *Jobs) EveningSummary(ctx context.Context) error {
	return j.briefAll(ctx, messages.Evening)
}

func (j *Jobs) briefAll(ctx context.Context, k messages.Kind) error {
	job := k.String() + "_briefing"
	users, err := j.Store.ListUsers(ctx)
	if err != nil {
		metrics.RecordJob(job, "error")
		return err
	}
	for i := range users {
		u := &users[i]
		snap := j.Stats.Today(ctx, u.ID)
		text := j.briefingText(ctx, k, u, snap)
		text = messages.WithHint(text, snap.ExpiredProviders)
		if err := j.Notifier.Notify(ctx, u.TelegramUserID, text); err != nil {
			log.Error().Err(err).Int64("user_id", u.ID).Str("kind", k.String()).Msg("briefing not delivered")
			continue
		}
		log.Info().Int64("user_id", u.ID).Str("kind", k.String()).Msg("briefing sent")
	}
	metrics.RecordJob(job, "ok")
	return nil
}

func (j *Jobs) briefingText(ctx context.Context, k messages.Kind, u *models.User, snap models.Snapshot) string {
	if j.Briefer == nil {
		return messages.Fallback(k, u, snap)
	}
	text, err := j.Briefer.Briefing(ctx, k, u, messages.DataSummary(k, u, snap))
	if err != nil || text == "" {
		log.Warn().Err(err).Int64("user_id", u.ID).Msg("briefing generation failed, using template")
		return messages.Fallback(k, u, snap)
	}
	return text
}

// notify resolves the telegram id and sends; failures are only logged.
func (j *Jobs) notify(ctx context.Context, userID int64, text string) {
	if j.Notifier == nil || text == "" {
		return
	}
	u, err := j.Store.GetUser(ctx, userID)
	if err != nil || u == nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("notify: user lookup failed")
		return
	}
	if err := j.Notifier.Notify(ctx, u.TelegramUserID, text); err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("notify failed")
	}
}
