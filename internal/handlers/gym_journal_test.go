package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-health-assistant/internal/assistant"
	"telegram-health-assistant/internal/models"
	"telegram-health-assistant/internal/storage"
)

func ptr[T any](v T) *T { return &v }

func addSet(t *testing.T, db *storage.DB, userID int64, key string, kg float64, sets, reps int, at time.Time) {
	t.Helper()
	require.NoError(t, db.InsertGymSet(context.Background(), &models.GymSet{
		UserID: userID, ExerciseName: "жим", ExerciseKey: key,
		WeightKg: ptr(kg), Sets: ptr(sets), Reps: ptr(reps), CreatedAt: at.Unix(),
	}))
}

func ensureUser(t *testing.T, db *storage.DB) *models.User {
	t.Helper()
	u, err := db.EnsureUser(context.Background(), tgID, "tester")
	require.NoError(t, err)
	return u
}

func TestGym_LogShowsPreviousSet(t *testing.T) {
	ctx := context.Background()
	cls := &fakeClassifier{res: &assistant.Result{
		Intent:    assistant.IntentGym,
		GymAction: assistant.GymLog,
		Exercises: []assistant.Exercise{
			{NameOriginal: "жим лежачи", Key: "bench_press", WeightKg: ptr(80.0), Sets: ptr(3), Reps: ptr(8)},
			{NameOriginal: "планка", Key: "plank", Notes: ptr("60s")},
		},
		Response: "Записав",
	}}
	h, bot, db := newHandler(t, models.EmptySnapshot(), cls, &fakeFoods{})
	u := ensureUser(t, db)
	addSet(t, db, u.ID, "bench_press", 75, 3, 8, lunchTime.AddDate(0, 0, -3))

	h.HandleMessage(ctx, textMsg("жим 80 3х8, планка"))

	assert.Equal(t, "✅ Записано:\n  жим лежачи — 80кг, 3×8\n    ↩️ Минулого разу (07.03): 75кг, 3×8\n  планка", bot.last())
	hist, err := db.GymHistory(ctx, u.ID, "plank", 5)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, "60s", hist[0].Notes)
	assert.Nil(t, hist[0].WeightKg)
}

func TestGym_ProgressAndLast(t *testing.T) {
	ctx := context.Background()
	cls := &fakeClassifier{res: &assistant.Result{Intent: assistant.IntentGym, GymAction: assistant.GymProgress, ExerciseKey: "squat", Response: "Ось прогрес"}}
	h, bot, db := newHandler(t, models.EmptySnapshot(), cls, &fakeFoods{})
	u := ensureUser(t, db)

	h.HandleMessage(ctx, textMsg("прогрес присіду"))
	assert.Equal(t, "Ось прогрес", bot.last(), "no history keeps the model reply")

	addSet(t, db, u.ID, "squat", 60, 3, 5, lunchTime.AddDate(0, 0, -14))
	addSet(t, db, u.ID, "squat", 70, 3, 5, lunchTime.AddDate(0, 0, -7))
	addSet(t, db, u.ID, "squat", 75, 3, 5, lunchTime)

	h.HandleMessage(ctx, textMsg("прогрес присіду"))
	assert.Equal(t, "🏋️ Прогрес:\n  24.02 — 60кг, 3×5\n  03.03 — 70кг, 3×5\n  10.03 — 75кг, 3×5\n\n  📈 +15кг (+25%)", bot.last())

	cls.res = &assistant.Result{Intent: assistant.IntentGym, GymAction: assistant.GymLast, ExerciseKey: "squat", Response: "x"}
	h.HandleMessage(ctx, textMsg("що я присідав минулого разу?"))
	assert.Equal(t, "🏋️ Минулого разу (10.03):\n  жим — 75кг, 3×5", bot.last())
}

func TestSetParts(t *testing.T) {
	assert.Equal(t, "82.5кг, 5×5", setParts(models.GymSet{WeightKg: ptr(82.5), Sets: ptr(5), Reps: ptr(5)}))
	assert.Equal(t, "", setParts(models.GymSet{Reps: ptr(10)}))
}

func TestJournal_EntryHistorySummary(t *testing.T) {
	ctx := context.Background()
	cls := &fakeClassifier{res: &assistant.Result{Intent: assistant.IntentJournal, JournalAction: assistant.JournalHistory}}
	h, bot, db := newHandler(t, models.EmptySnapshot(), cls, &fakeFoods{})

	h.HandleMessage(ctx, textMsg("покажи щоденник"))
	assert.Equal(t, txtJournalEmpty, bot.last())

	cls.res = &assistant.Result{Intent: assistant.IntentJournal, JournalAction: assistant.JournalSummary}
	h.HandleMessage(ctx, textMsg("підсумок тижня"))
	assert.Equal(t, txtJournalNoWeek, bot.last())

	cls.res = &assistant.Result{
		Intent:        assistant.IntentJournal,
		JournalAction: assistant.JournalEntry,
		Journal:       &assistant.JournalMeta{MoodScore: ptr(7), Tags: []string{"work", "weather"}},
		Response:      "Тримайся 💪",
	}
	h.HandleMessage(ctx, textMsg("важкий день на роботі"))
	assert.Equal(t, "Тримайся 💪", bot.last())

	cls.res = &assistant.Result{Intent: assistant.IntentJournal, JournalAction: assistant.JournalHistory}
	h.HandleMessage(ctx, textMsg("покажи щоденник"))
	assert.Equal(t, "📓 Щоденник (7 днів):\n\n  10.03 13:00 😊7\n    важкий день на роботі", bot.last())

	cls.res = &assistant.Result{Intent: assistant.IntentJournal, JournalAction: assistant.JournalSummary, Response: "Тиждень був непростий"}
	h.HandleMessage(ctx, textMsg("підсумок тижня"))
	assert.Equal(t, "Тиждень був непростий\n\n📓 1 записів  😊 7.0\n🏷 work", bot.last())

	u := ensureUser(t, db)
	entries, err := db.JournalEntriesSince(ctx, u.ID, time.Time{}, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, []string{"work"}, entries[0].Tags)
}

func TestJournalStatsTopTags(t *testing.T) {
	entries := []models.JournalEntry{
		{MoodScore: ptr(6), EnergyLevel: ptr(4), Tags: []string{"work", "stress"}},
		{MoodScore: ptr(8), Tags: []string{"work", "social", "health", "gratitude", "achievement"}},
	}
	assert.Equal(t, "📓 2 записів  😊 7.0  ⚡ 4.0\n🏷 work, achievement, gratitude, health, social", journalStats(entries))
}

func TestJournalCommands(t *testing.T) {
	ctx := context.Background()
	h, bot, db := newHandler(t, models.EmptySnapshot(), &fakeClassifier{}, &fakeFoods{})

	h.HandleMessage(ctx, commandMsg("journal_time"))
	assert.Equal(t, "📓 Нагадування щоденника: увімкнено\n  🌅 10:00  🌙 20:00\n\nЗмінити: /journal_time 09:00 21:00\nВимкнути: /journal_off\nУвімкнути: /journal_on", bot.last())

	h.HandleMessage(ctx, commandArgsMsg("journal_time", "10:00"))
	assert.Equal(t, txtJournalNeedTwo, bot.last())

	h.HandleMessage(ctx, commandArgsMsg("journal_time", "25:00 20:00"))
	assert.Equal(t, txtJournalBadTime, bot.last())

	h.HandleMessage(ctx, commandMsg("journal_off"))
	assert.Equal(t, txtJournalOff, bot.last())
	u, err := db.GetUserByTelegramID(ctx, tgID)
	require.NoError(t, err)
	assert.False(t, u.JournalEnabled)

	h.HandleMessage(ctx, commandArgsMsg("journal_time", "9:05 21:30"))
	assert.Equal(t, "✅ Нагадування: 🌅 09:05  🌙 21:30", bot.last())
	u, err = db.GetUserByTelegramID(ctx, tgID)
	require.NoError(t, err)
	assert.True(t, u.JournalEnabled)
	assert.Equal(t, "09:05", u.JournalTime1)
	assert.Equal(t, "21:30", u.JournalTime2)

	h.HandleMessage(ctx, commandMsg("journal_off"))
	h.HandleMessage(ctx, commandMsg("journal_on"))
	assert.Equal(t, "✅ Нагадування увімкнено: 🌅 09:05  🌙 21:30", bot.last())
}

func TestGymPromptCommand(t *testing.T) {
	ctx := context.Background()
	cls := &fakeClassifier{res: &assistant.Result{Intent: assistant.IntentGeneral, Response: "ok"}}
	h, bot, _ := newHandler(t, models.EmptySnapshot(), cls, &fakeFoods{})

	h.HandleMessage(ctx, commandMsg("gym_prompt"))
	assert.Contains(t, bot.last(), "🏋️ Поточний gym промпт:\nне встановлено\n\n")

	h.HandleMessage(ctx, commandArgsMsg("gym_prompt", "Пауерліфтинг, 3 рази на тиждень"))
	assert.Equal(t, "✅ Gym промпт встановлено:\nПауерліфтинг, 3 рази на тиждень", bot.last())

	h.HandleMessage(ctx, textMsg("що робити сьогодні?"))
	assert.Equal(t, "Пауерліфтинг, 3 рази на тиждень", cls.got.GymPrompt)
}

func TestHelpListsJournalAndGym(t *testing.T) {
	h, bot, _ := newHandler(t, models.EmptySnapshot(), &fakeClassifier{}, &fakeFoods{})
	h.HandleMessage(context.Background(), commandMsg("help"))
	assert.Contains(t, bot.last(), "/gym_prompt")
	assert.Contains(t, bot.last(), "/journal_time, /journal_off, /journal_on")
}

func voiceMsg() *tgbotapi.Message {
	m := textMsg("")
	m.Voice = &tgbotapi.Voice{FileID: "voice-1", MimeType: "audio/ogg", Duration: 3}
	return m
}

func TestHandleVoice_TranscriptRunsAsTurn(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("OggS-audio"))
	}))
	t.Cleanup(srv.Close)

	cls := &fakeClassifier{
		transcript: "привіт, як справи",
		res:        &assistant.Result{Intent: assistant.IntentGeneral, Response: "Привіт!"},
	}
	h, bot, _ := newHandler(t, models.EmptySnapshot(), cls, &fakeFoods{})
	h.HTTP = srv.Client()
	bot.fileURL = srv.URL + "/file/voice-1.oga"

	h.HandleMessage(context.Background(), voiceMsg())

	assert.Equal(t, []byte("OggS-audio"), cls.gotAudio)
	assert.Equal(t, "audio/ogg", cls.gotMIME)
	assert.Equal(t, "привіт, як справи", cls.got.Text)
	assert.Equal(t, "Привіт!", bot.last())
}

func TestHandleVoice_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("OggS-audio"))
	}))
	t.Cleanup(srv.Close)

	cls := &fakeClassifier{transcribeErr: errors.New("quota"), res: &assistant.Result{Intent: assistant.IntentGeneral, Response: "x"}}
	h, bot, _ := newHandler(t, models.EmptySnapshot(), cls, &fakeFoods{})
	h.HTTP = srv.Client()
	bot.fileURL = srv.URL

	h.HandleMessage(context.Background(), voiceMsg())
	assert.Equal(t, txtVoiceError, bot.last())
	assert.Empty(t, cls.got.Text, "classifier must not run")

	bot.fileErr = errors.New("file not found")
	cls.transcribeErr = nil
	cls.gotAudio = nil
	h.HandleMessage(context.Background(), voiceMsg())
	assert.Equal(t, txtVoiceError, bot.last())
	assert.Nil(t, cls.gotAudio)

	bot.fileErr = nil
	bot.fileURL = srv.URL + "/missing"
	h.HandleMessage(context.Background(), voiceMsg())
	assert.Equal(t, txtVoiceError, bot.last())
	assert.Nil(t, cls.gotAudio)
}
