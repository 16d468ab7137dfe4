package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"telegram-health-assistant/internal/assistant"
	"telegram-health-assistant/internal/fatsecret"
	"telegram-health-assistant/internal/models"
	"telegram-health-assistant/internal/oauthstate"
)

// Sender is the part of *tgbotapi.BotAPI the handlers use.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

type Store interface {
	EnsureUser(ctx context.Context, telegramUserID int64, username string) (*models.User, error)
	SetCalorieGoal(ctx context.Context, userID int64, goal int) error
	SaveMessage(ctx context.Context, userID int64, role, content, intent string) error
	RecentMessages(ctx context.Context, userID int64, since time.Time, limit int) ([]models.ConversationMessage, error)
	InsertFoodEntry(ctx context.Context, e *models.FoodEntry) error
	LastFoodEntry(ctx context.Context, userID int64) (*models.FoodEntry, error)
	DeleteFoodEntryRow(ctx context.Context, id int64) error
	SetJournalTimes(ctx context.Context, userID int64, first, second string) error
	SetJournalEnabled(ctx context.Context, userID int64, enabled bool) error
	SetGymPrompt(ctx context.Context, userID int64, prompt string) error
	InsertGymSet(ctx context.Context, g *models.GymSet) error
	GymHistory(ctx context.Context, userID int64, exerciseKey string, limit int) ([]models.GymSet, error)
	InsertJournalEntry(ctx context.Context, e *models.JournalEntry) error
	JournalEntriesSince(ctx context.Context, userID int64, since time.Time, limit int) ([]models.JournalEntry, error)
	GetWhoopCredential(ctx context.Context, userID int64) (*models.WhoopCredential, error)
	GetFatSecretCredential(ctx context.Context, userID int64) (*models.FatSecretCredential, error)
	ClearData(ctx context.Context, userID int64) error
}

type Snapshotter interface {
	Today(ctx context.Context, userID int64) models.Snapshot
}

// Foods is the FatSecret surface used when logging and undoing meals.
type Foods interface {
	SearchFoods(ctx context.Context, query string, maxResults int) ([]fatsecret.Food, error)
	FoodServings(ctx context.Context, foodID string) ([]fatsecret.Serving, error)
	CreateFoodEntry(ctx context.Context, userID int64, req fatsecret.EntryRequest) (string, error)
	DeleteFoodEntry(ctx context.Context, userID int64, entryID string) error
}

type WhoopAuth interface {
	AuthCodeURL(state string) string
}

const (
	historyWindow = 24 * time.Hour
	historyLimit  = 50

	maxVoiceBytes = 20 << 20
)

type Handler struct {
	Bot       Sender
	DB        Store
	Stats     Snapshotter
	Assistant assistant.Classifier
	Foods     Foods
	Whoop     WhoopAuth // nil when WHOOP is not configured
	States    *oauthstate.Store
	BaseURL   string
	Loc       *time.Location
	Clock     clockwork.Clock
	HTTP      *http.Client // voice downloads; http.DefaultClient when nil

	FatSecretEnabled bool

	wg sync.WaitGroup
}

func (h *Handler) now() time.Time {
	loc := h.Loc
	if loc == nil {
		loc = time.UTC
	}
	if h.Clock == nil {
		return time.Now().In(loc)
	}
	return h.Clock.Now().In(loc)
}

// Listen dispatches updates until ctx is done or the channel closes, then
// waits for in-flight handlers.
func (h *Handler) Listen(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	defer h.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			h.wg.Add(1)
			go func() {
				defer h.wg.Done()
				h.HandleUpdate(ctx, upd)
			}()
		}
	}
}

func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	var chatID int64
	switch {
	case upd.Message != nil:
		chatID = upd.Message.Chat.ID
	case upd.CallbackQuery != nil && upd.CallbackQuery.Message != nil:
		chatID = upd.CallbackQuery.Message.Chat.ID
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Int64("chat_id", chatID).Msg("handler panicked")
			if chatID != 0 {
				h.send(chatID, txtGenericError)
			}
		}
	}()

	switch {
	case upd.Message != nil:
		h.HandleMessage(ctx, upd.Message)
	case upd.CallbackQuery != nil:
		h.HandleCallback(ctx, upd.CallbackQuery)
	}
}

// Notify sends a plain message to a user; used by background jobs and the
// OAuth callbacks.
func (h *Handler) Notify(_ context.Context, telegramUserID int64, text string) error {
	msg := tgbotapi.NewMessage(telegramUserID, text)
	msg.DisableWebPagePreview = true
	_, err := h.Bot.Send(msg)
	return err
}

func (h *Handler) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := h.Bot.Send(msg); err != nil {
		log.Warn().Err(err).Int64("chat_id", chatID).Msg("send failed")
	}
}

func (h *Handler) ensureUser(ctx context.Context, from *tgbotapi.User, chatID int64) (*models.User, error) {
	id, name := chatID, ""
	if from != nil {
		id, name = from.ID, from.UserName
	}
	return h.DB.EnsureUser(ctx, id, name)
}
