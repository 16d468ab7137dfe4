package handlers

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"telegram-health-assistant/internal/assistant"
	"telegram-health-assistant/internal/models"
)

const (
	journalWindow       = 7 * 24 * time.Hour
	journalHistoryLimit = 20
	journalSummaryLimit = 50
	journalPreviewRunes = 100

	defaultJournalTime1 = "10:00"
	defaultJournalTime2 = "20:00"
)

var clockRe = regexp.MustCompile(`\d{1,2}:\d{2}`)

// handleJournal returns the reply for a journal intent, or "" to keep the
// model's.
func (h *Handler) handleJournal(ctx context.Context, u *models.User, res *assistant.Result, text string) (string, error) {
	since := h.now().Add(-journalWindow)
	switch res.JournalAction {
	case assistant.JournalHistory:
		entries, err := h.DB.JournalEntriesSince(ctx, u.ID, since, journalHistoryLimit)
		if err != nil {
			return "", err
		}
		if len(entries) == 0 {
			return txtJournalEmpty, nil
		}
		parts := make([]string, 0, len(entries))
		for _, e := range entries {
			head := "  " + h.localDate(e.CreatedAt, "02.01 15:04")
			if e.MoodScore != nil {
				head += fmt.Sprintf(" 😊%d", *e.MoodScore)
			}
			if e.EnergyLevel != nil {
				head += fmt.Sprintf(" ⚡%d", *e.EnergyLevel)
			}
			parts = append(parts, head+"\n    "+preview(e.Content, journalPreviewRunes))
		}
		return "📓 Щоденник (7 днів):\n\n" + strings.Join(parts, "\n\n"), nil

	case assistant.JournalSummary:
		entries, err := h.DB.JournalEntriesSince(ctx, u.ID, since, journalSummaryLimit)
		if err != nil {
			return "", err
		}
		if len(entries) == 0 {
			return txtJournalNoWeek, nil
		}
		return strings.TrimSpace(res.Response + "\n\n" + journalStats(entries)), nil

	default:
		e := &models.JournalEntry{UserID: u.ID, Content: text, CreatedAt: h.now().Unix()}
		if res.Journal != nil {
			e.MoodScore, e.EnergyLevel = res.Journal.MoodScore, res.Journal.EnergyLevel
			e.Tags = assistant.FilterTags(res.Journal.Tags)
		}
		if err := h.DB.InsertJournalEntry(ctx, e); err != nil {
			return "", err
		}
		log.Info().Int64("user_id", u.ID).Strs("tags", e.Tags).Msg("journal entry saved")
		return "", nil
	}
}

// journalStats renders average mood and energy and the five most common tags.
func journalStats(entries []models.JournalEntry) string {
	var (
		moodSum, moodN     int
		energySum, energyN int
		counts             = map[string]int{}
	)
	for _, e := range entries {
		if e.MoodScore != nil {
			moodSum += *e.MoodScore
			moodN++
		}
		if e.EnergyLevel != nil {
			energySum += *e.EnergyLevel
			energyN++
		}
		for _, t := range e.Tags {
			counts[t]++
		}
	}
	parts := []string{fmt.Sprintf("📓 %d записів", len(entries))}
	if moodN > 0 {
		parts = append(parts, fmt.Sprintf("😊 %.1f", float64(moodSum)/float64(moodN)))
	}
	if energyN > 0 {
		parts = append(parts, fmt.Sprintf("⚡ %.1f", float64(energySum)/float64(energyN)))
	}
	tags := make([]string, 0, len(counts))
	for t := range counts {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool {
		if counts[tags[i]] != counts[tags[j]] {
			return counts[tags[i]] > counts[tags[j]]
		}
		return tags[i] < tags[j]
	})
	if len(tags) > 5 {
		tags = tags[:5]
	}
	line := strings.Join(parts, "  ")
	if len(tags) > 0 {
		line += "\n🏷 " + strings.Join(tags, ", ")
	}
	return line
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// ---------------- /journal_time, /journal_off, /journal_on --------------------

func (h *Handler) HandleJournalTime(ctx context.Context, chatID int64, from *tgbotapi.User, args string) {
	u, err := h.ensureUser(ctx, from, chatID)
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("ensure user failed")
		h.send(chatID, txtGenericError)
		return
	}
	if strings.TrimSpace(args) == "" {
		t1, t2 := journalTimes(u)
		state := "вимкнено"
		if u.JournalEnabled {
			state = "увімкнено"
		}
		h.send(chatID, fmt.Sprintf(txtJournalStatus, state, t1, t2))
		return
	}

	found := clockRe.FindAllString(args, -1)
	if len(found) < 2 {
		h.send(chatID, txtJournalNeedTwo)
		return
	}
	t1, ok1 := normalizeClock(found[0])
	t2, ok2 := normalizeClock(found[1])
	if !ok1 || !ok2 {
		h.send(chatID, txtJournalBadTime)
		return
	}
	if err := h.DB.SetJournalTimes(ctx, u.ID, t1, t2); err != nil {
		log.Error().Err(err).Int64("user_id", u.ID).Msg("set journal times failed")
		h.send(chatID, txtGenericError)
		return
	}
	h.send(chatID, fmt.Sprintf(txtJournalTimesSet, t1, t2))
}

func (h *Handler) HandleJournalToggle(ctx context.Context, chatID int64, from *tgbotapi.User, enabled bool) {
	u, err := h.ensureUser(ctx, from, chatID)
	if err == nil {
		err = h.DB.SetJournalEnabled(ctx, u.ID, enabled)
	}
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Bool("enabled", enabled).Msg("toggle journal reminders failed")
		h.send(chatID, txtGenericError)
		return
	}
	if !enabled {
		h.send(chatID, txtJournalOff)
		return
	}
	t1, t2 := journalTimes(u)
	h.send(chatID, fmt.Sprintf(txtJournalOn, t1, t2))
}

// ---------------- /gym_prompt --------------------

func (h *Handler) HandleGymPrompt(ctx context.Context, chatID int64, from *tgbotapi.User, args string) {
	u, err := h.ensureUser(ctx, from, chatID)
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("ensure user failed")
		h.send(chatID, txtGenericError)
		return
	}
	prompt := strings.TrimSpace(args)
	if prompt == "" {
		current := u.GymPrompt
		if current == "" {
			current = "не встановлено"
		}
		h.send(chatID, fmt.Sprintf(txtGymPromptShow, current))
		return
	}
	if err := h.DB.SetGymPrompt(ctx, u.ID, prompt); err != nil {
		log.Error().Err(err).Int64("user_id", u.ID).Msg("set gym prompt failed")
		h.send(chatID, txtGenericError)
		return
	}
	h.send(chatID, txtGymPromptSet+prompt)
}

func journalTimes(u *models.User) (string, string) {
	t1, t2 := u.JournalTime1, u.JournalTime2
	if t1 == "" {
		t1 = defaultJournalTime1
	}
	if t2 == "" {
		t2 = defaultJournalTime2
	}
	return t1, t2
}

// normalizeClock validates "9:05" style input and returns "09:05".
func normalizeClock(s string) (string, bool) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return "", false
	}
	return t.Format("15:04"), true
}
