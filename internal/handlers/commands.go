package handlers

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"telegram-health-assistant/internal/models"
)

var startKB = tgbotapi.NewInlineKeyboardMarkup(
	tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(btnConnectWhoop, cbConnectWhoop),
		tgbotapi.NewInlineKeyboardButtonData(btnConnectFatSecret, cbConnectFatSecret),
	),
	tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(btnSync, cbSync),
	),
)

var clearKB = tgbotapi.NewInlineKeyboardMarkup(
	tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(btnClearYes, cbClearYes),
		tgbotapi.NewInlineKeyboardButtonData(btnClearNo, cbClearNo),
	),
)

func (h *Handler) HandleCommand(ctx context.Context, chatID int64, from *tgbotapi.User, cmd, args string) {
	switch cmd {
	case "start":
		h.HandleStart(ctx, chatID, from)
	case "help":
		h.send(chatID, helpText)
	case "connect_whoop":
		h.HandleConnectWhoop(ctx, chatID, from)
	case "connect_fatsecret":
		h.HandleConnectFatSecret(ctx, chatID, from)
	case "sync":
		h.HandleSync(ctx, chatID, from)
	case "journal_time":
		h.HandleJournalTime(ctx, chatID, from, args)
	case "journal_off":
		h.HandleJournalToggle(ctx, chatID, from, false)
	case "journal_on":
		h.HandleJournalToggle(ctx, chatID, from, true)
	case "gym_prompt":
		h.HandleGymPrompt(ctx, chatID, from, args)
	case "clear":
		reply := tgbotapi.NewMessage(chatID, txtClearAsk)
		reply.ReplyMarkup = clearKB
		_, _ = h.Bot.Send(reply)
	default:
		h.send(chatID, helpText)
	}
}

// ---------------- /start --------------------
func (h *Handler) HandleStart(ctx context.Context, chatID int64, from *tgbotapi.User) {
	if _, err := h.ensureUser(ctx, from, chatID); err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("ensure user failed")
		h.send(chatID, txtGenericError)
		return
	}
	reply := tgbotapi.NewMessage(chatID, helpText)
	reply.ReplyMarkup = startKB
	reply.DisableWebPagePreview = true
	_, _ = h.Bot.Send(reply)
}

func (h *Handler) HandleConnectWhoop(ctx context.Context, chatID int64, from *tgbotapi.User) {
	if h.Whoop == nil || h.States == nil {
		h.send(chatID, txtNotConfigured)
		return
	}
	u, err := h.ensureUser(ctx, from, chatID)
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("ensure user failed")
		h.send(chatID, txtGenericError)
		return
	}
	h.send(chatID, txtConnectWhoop+h.Whoop.AuthCodeURL(h.States.Issue(u.ID)))
}

func (h *Handler) HandleConnectFatSecret(ctx context.Context, chatID int64, from *tgbotapi.User) {
	if !h.FatSecretEnabled || h.BaseURL == "" || h.States == nil {
		h.send(chatID, txtNotConfigured)
		return
	}
	u, err := h.ensureUser(ctx, from, chatID)
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("ensure user failed")
		h.send(chatID, txtGenericError)
		return
	}
	link := strings.TrimRight(h.BaseURL, "/") + "/fatsecret/connect?" +
		url.Values{"state": {h.States.Issue(u.ID)}}.Encode()
	h.send(chatID, txtConnectFatSecret+link)
}

// HandleSync reports per-provider status from a live snapshot.
func (h *Handler) HandleSync(ctx context.Context, chatID int64, from *tgbotapi.User) {
	u, err := h.ensureUser(ctx, from, chatID)
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("ensure user failed")
		h.send(chatID, txtGenericError)
		return
	}
	h.send(chatID, txtSyncStarted)

	snap := h.Stats.Today(ctx, u.ID)
	whoopCred, err := h.DB.GetWhoopCredential(ctx, u.ID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", u.ID).Msg("load whoop credential")
	}
	fsCred, err := h.DB.GetFatSecretCredential(ctx, u.ID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", u.ID).Msg("load fatsecret credential")
	}
	lines := []string{
		whoopStatus(snap, whoopCred != nil),
		fatSecretStatus(snap, fsCred != nil),
	}
	h.send(chatID, txtSyncDone+strings.Join(lines, "\n"))
}

func whoopStatus(s models.Snapshot, connected bool) string {
	switch {
	case s.Expired(models.ProviderWhoop):
		return txtSyncWhoopExpired
	case !connected:
		return txtSyncWhoopOff
	case s.HasWhoopData():
		var parts []string
		if s.CaloriesOut > 0 {
			parts = append(parts, fmt.Sprintf("%d kcal спалено", s.CaloriesOut))
		}
		if s.RecoveryInfo != "" {
			parts = append(parts, "recovery ✓")
		}
		if s.SleepInfo != "" {
			parts = append(parts, "sleep ✓")
		}
		return "⌚ WHOOP: ✅ " + strings.Join(parts, ", ")
	case degraded(s, models.ProviderWhoop):
		return txtSyncWhoopPending + txtSyncProviderUnhealthy
	default:
		return txtSyncWhoopPending
	}
}

func fatSecretStatus(s models.Snapshot, connected bool) string {
	switch {
	case s.Expired(models.ProviderFatSecret):
		return txtSyncFatSecretExpired
	case !connected:
		return txtSyncFatSecretOff
	case degraded(s, models.ProviderFatSecret):
		return "🥗 FatSecret: ✅ підключено" + txtSyncProviderUnhealthy
	default:
		return fmt.Sprintf("🥗 FatSecret: ✅ %d kcal сьогодні", s.CaloriesIn)
	}
}

func degraded(s models.Snapshot, p models.Provider) bool {
	return slices.Contains(s.DegradedProviders, p)
}
