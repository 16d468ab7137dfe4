package handlers

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

func (h *Handler) HandleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.Message == nil {
		return
	}
	chatID := cq.Message.Chat.ID

	// always answer callback to remove 'loading...'
	_, _ = h.Bot.Request(tgbotapi.NewCallback(cq.ID, ""))

	switch data := cq.Data; {
	case strings.HasPrefix(data, "cmd:"):
		h.HandleCommand(ctx, chatID, cq.From, strings.TrimPrefix(data, "cmd:"), "")
	case data == cbClearYes:
		h.handleClear(ctx, chatID, cq)
	case data == cbClearNo:
		h.dropKeyboard(chatID, cq.Message.MessageID)
		h.send(chatID, txtClearAborted)
	}
}

func (h *Handler) handleClear(ctx context.Context, chatID int64, cq *tgbotapi.CallbackQuery) {
	h.dropKeyboard(chatID, cq.Message.MessageID)
	u, err := h.ensureUser(ctx, cq.From, chatID)
	if err == nil {
		err = h.DB.ClearData(ctx, u.ID)
	}
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("clear data failed")
		h.send(chatID, txtGenericError)
		return
	}
	log.Info().Int64("user_id", u.ID).Msg("user data cleared")
	h.send(chatID, txtClearDone)
}

func (h *Handler) dropKeyboard(chatID int64, messageID int) {
	_, _ = h.Bot.Request(tgbotapi.NewEditMessageReplyMarkup(chatID, messageID,
		tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}}))
}
