package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"telegram-health-assistant/internal/assistant"
	"telegram-health-assistant/internal/messages"
	"telegram-health-assistant/internal/models"
)

func (h *Handler) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	switch {
	case msg.IsCommand():
		h.HandleCommand(ctx, msg.Chat.ID, msg.From, msg.Command(), msg.CommandArguments())
	case msg.Voice != nil:
		h.HandleVoice(ctx, msg)
	default:
		h.HandleText(ctx, msg)
	}
}

// HandleText runs one chat turn for a typed message.
func (h *Handler) HandleText(ctx context.Context, msg *tgbotapi.Message) {
	h.turn(ctx, msg.Chat.ID, msg.From, msg.Text)
}

// HandleVoice transcribes a voice note and runs the transcript as a turn.
func (h *Handler) HandleVoice(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	audio, err := h.downloadFile(ctx, msg.Voice.FileID)
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("voice download failed")
		h.send(chatID, txtVoiceError)
		return
	}
	text, err := h.Assistant.Transcribe(ctx, audio, msg.Voice.MimeType)
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("voice transcription failed")
		h.send(chatID, txtVoiceError)
		return
	}
	log.Info().Int64("chat_id", chatID).Int("duration", msg.Voice.Duration).Int("chars", len(text)).Msg("voice transcribed")
	h.turn(ctx, chatID, msg.From, text)
}

func (h *Handler) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	link, err := h.Bot.GetFileDirectURL(fileID)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, err
	}
	client := h.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("file download: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxVoiceBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxVoiceBytes {
		return nil, errors.New("file download: voice note too large")
	}
	return data, nil
}

// turn classifies text, acts on the intent and replies.
func (h *Handler) turn(ctx context.Context, chatID int64, from *tgbotapi.User, text string) {
	if strings.Trim(text, ".-–—…_ \n\t") == "" {
		return
	}

	u, err := h.ensureUser(ctx, from, chatID)
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("ensure user failed")
		h.send(chatID, txtGenericError)
		return
	}
	logger := log.With().Int64("user_id", u.ID).Logger()

	now := h.now()
	history, err := h.DB.RecentMessages(ctx, u.ID, now.Add(-historyWindow), historyLimit)
	if err != nil {
		logger.Warn().Err(err).Msg("load history failed")
	}
	if err := h.DB.SaveMessage(ctx, u.ID, "user", text, ""); err != nil {
		logger.Warn().Err(err).Msg("save message failed")
	}

	snap := h.Stats.Today(ctx, u.ID)
	goal := messages.Goal(u)

	res, err := h.Assistant.Classify(ctx, assistant.Input{
		Text:      text,
		Now:       now,
		Goal:      goal,
		Snapshot:  snap,
		History:   history,
		GymPrompt: u.GymPrompt,
	})
	if err != nil {
		logger.Error().Err(err).Msg("classification failed")
		h.send(chatID, txtGenericError)
		return
	}
	logger.Info().Str("intent", string(res.Intent)).Int("food_items", len(res.FoodItems)).Msg("message classified")

	reply, expired := h.act(ctx, u, res, text, snap, goal)
	reply = messages.WithHint(reply, expired)

	if err := h.DB.SaveMessage(ctx, u.ID, "assistant", reply, string(res.Intent)); err != nil {
		logger.Warn().Err(err).Msg("save reply failed")
	}
	h.send(chatID, reply)
}

// act applies the intent's side effects and returns the reply together with
// every provider found expired along the way.
func (h *Handler) act(ctx context.Context, u *models.User, res *assistant.Result, text string, snap models.Snapshot, goal int) (reply string, expired []models.Provider) {
	reply = res.Response
	expired = append(expired, snap.ExpiredProviders...)

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Int64("user_id", u.ID).Str("intent", string(res.Intent)).Msg("intent handler panicked")
			if reply == "" {
				reply = txtIntentError
			}
		}
	}()

	switch res.Intent {
	case assistant.IntentLogFood:
		if len(res.FoodItems) == 0 {
			break
		}
		logged, exp := h.logFood(ctx, u, res.FoodItems)
		expired = addExpired(expired, exp...)
		var justLogged int
		for _, l := range logged {
			justLogged += l.kcal
		}
		reply += "\n\n" + messages.BalanceLine(snap.CaloriesIn+justLogged, goal, snap.CaloriesOut)

	case assistant.IntentDeleteEntry:
		deleted, exp, err := h.deleteLast(ctx, u)
		expired = addExpired(expired, exp...)
		switch {
		case err != nil:
			log.Error().Err(err).Int64("user_id", u.ID).Msg("delete entry failed")
			reply = txtIntentError
		case deleted == nil:
			reply = txtNothingToDrop
		case reply == "":
			reply = fmt.Sprintf("🗑 %s (%d kcal)", deleted.Name, int(deleted.Calories))
		}

	case assistant.IntentGym:
		out, err := h.handleGym(ctx, u, res)
		switch {
		case err != nil:
			log.Error().Err(err).Int64("user_id", u.ID).Str("action", res.GymAction).Msg("gym intent failed")
			reply = txtIntentError
		case out != "":
			reply = out
		}

	case assistant.IntentJournal:
		out, err := h.handleJournal(ctx, u, res, text)
		switch {
		case err != nil:
			log.Error().Err(err).Int64("user_id", u.ID).Str("action", res.JournalAction).Msg("journal intent failed")
			reply = txtIntentError
		case out != "":
			reply = out
		}

	case assistant.IntentGeneral:
		if res.CalorieGoal == nil {
			break
		}
		if err := h.DB.SetCalorieGoal(ctx, u.ID, *res.CalorieGoal); err != nil {
			log.Error().Err(err).Int64("user_id", u.ID).Msg("set calorie goal failed")
			break
		}
		reply += "\n\n" + fmt.Sprintf(txtGoalSet, *res.CalorieGoal)
	}
	if reply == "" {
		reply = txtIntentError
	}
	return reply, expired
}

func addExpired(list []models.Provider, more ...models.Provider) []models.Provider {
	for _, p := range more {
		if !slices.Contains(list, p) {
			list = append(list, p)
		}
	}
	return list
}
