package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"telegram-health-assistant/internal/metrics"
)

// ReminderWindow is how late a journal reminder may still go out after its
// slot time, so a missed scheduler tick does not drop it.
const ReminderWindow = 15 * time.Minute

const (
	txtJournalMorning = "🌅 Як почався день? Напиши кілька слів у щоденник 📓"
	txtJournalEvening = "🌙 Як пройшов день? Що запам'яталось, як настрій? 📓"
)

// JournalReminders sends each user's two daily journal prompts at their
// local times. A slot is marked in the store before sending so it goes out
// at most once per day.
func (j *Jobs) JournalReminders(ctx context.Context) error {
	users, err := j.Store.ListUsers(ctx)
	if err != nil {
		metrics.RecordJob("journal_reminders", "error")
		return err
	}
	now := j.now().In(j.loc())
	day := now.Format("2006-01-02")
	var sentCount int
	for i := range users {
		u := &users[i]
		if !u.JournalEnabled {
			continue
		}
		for _, slot := range []struct {
			at, suffix, text string
		}{
			{u.JournalTime1, "-1", txtJournalMorning},
			{u.JournalTime2, "-2", txtJournalEvening},
		} {
			if !slotDue(now, slot.at) {
				continue
			}
			fresh, err := j.Store.MarkJournalReminder(ctx, u.ID, day+slot.suffix)
			if err != nil {
				log.Error().Err(err).Int64("user_id", u.ID).Msg("mark journal reminder failed")
				continue
			}
			if !fresh {
				continue
			}
			if err := j.Notifier.Notify(ctx, u.TelegramUserID, slot.text); err != nil {
				log.Warn().Err(err).Int64("user_id", u.ID).Msg("journal reminder not delivered")
				continue
			}
			sentCount++
		}
	}
	if sentCount > 0 {
		log.Info().Int("sent", sentCount).Msg("journal reminders sent")
	}
	metrics.RecordJob("journal_reminders", "ok")
	return nil
}

// slotDue reports whether the "15:04" time at falls in [at, at+ReminderWindow)
// on now's local day.
func slotDue(now time.Time, at string) bool {
	t, err := time.Parse("15:04", at)
	if err != nil {
		return false
	}
	slot := time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location())
	d := now.Sub(slot)
	return d >= 0 && d < ReminderWindow
}
