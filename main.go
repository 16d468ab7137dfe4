package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"telegram-health-assistant/internal/assistant"
	"telegram-health-assistant/internal/config"
	"telegram-health-assistant/internal/fatsecret"
	"telegram-health-assistant/internal/handlers"
	"telegram-health-assistant/internal/httpapi"
	"telegram-health-assistant/internal/jobs"
	"telegram-health-assistant/internal/logging"
	"telegram-health-assistant/internal/oauthstate"
	"telegram-health-assistant/internal/scheduler"
	"telegram-health-assistant/internal/stats"
	"telegram-health-assistant/internal/storage"
	"telegram-health-assistant/internal/utils"
	"telegram-health-assistant/internal/whoop"
)

func main() {
	_ = godotenv.Load() // TELEGRAM_BOT_TOKEN etc.

	cfg, err := config.Load()
	logging.Setup(cfg.LogLevel, cfg.LogPretty)
	utils.Must(err, "load config")
	if !cfg.AssistantEnabled() {
		log.Fatal().Msg("GCP_PROJECT is required for the assistant")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.New(cfg.DBPath)
	utils.Must(err, "open database")
	defer func() { utils.LogFor(db.Close(), "close database") }()

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	tokens := whoop.NewTokenManager(db,
		whoop.OAuthConfig(cfg.WhoopClientID, cfg.WhoopClientSecret, cfg.WhoopRedirectURL), httpClient)
	whoopClient := whoop.NewClient(tokens, httpClient)
	fsClient := fatsecret.NewClient(db, fatsecret.Config{
		ClientID:     cfg.FatSecretClientID,
		ClientSecret: cfg.FatSecretClientSecret,
		SharedSecret: cfg.FatSecretSharedSecret,
	}, httpClient)

	statsSvc := stats.NewService(whoopClient, fsClient, cfg.Timezone)

	gemini, err := assistant.NewGemini(ctx, assistant.GeminiConfig{
		ProjectID:       cfg.GCPProject,
		Location:        cfg.GCPLocation,
		Model:           cfg.GeminiModel,
		CredentialsFile: cfg.GCPCredentialsFile,
		Temperature:     cfg.GCPTemperature,
	})
	utils.Must(err, "init gemini")
	defer func() { utils.LogFor(gemini.Close(), "close gemini") }()
	asst, err := assistant.New(gemini)
	utils.Must(err, "init assistant")

	states := oauthstate.New(oauthstate.DefaultTTL)
	defer states.Stop()

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	utils.Must(err, "connect telegram")
	log.Info().Str("bot", bot.Self.UserName).Msg("authorized")

	h := &handlers.Handler{
		Bot:       bot,
		DB:        db,
		Stats:     statsSvc,
		Assistant: asst,
		Foods:     fsClient,
		States:    states,
		BaseURL:   cfg.BaseURL,
		Loc:       cfg.Timezone,
		HTTP:      httpClient,

		FatSecretEnabled: cfg.FatSecretEnabled(),
	}
	api := &httpapi.API{
		Stats:    statsSvc,
		Users:    db,
		Notifier: h,
		States:   states,
		Config:   httpapi.Config{BaseURL: cfg.BaseURL, DebugToken: cfg.DebugToken},
	}
	if cfg.WhoopEnabled() {
		h.Whoop = whoopClient
		api.Whoop = whoopClient
	} else {
		log.Warn().Msg("WHOOP is not configured")
	}
	if cfg.FatSecretEnabled() {
		api.FatSecret = fsClient
	} else {
		log.Warn().Msg("FatSecret is not configured")
	}

	j := &jobs.Jobs{
		Store:    db,
		Tokens:   tokens,
		Diary:    fsClient,
		Stats:    statsSvc,
		Briefer:  asst,
		Notifier: h,
		Loc:      cfg.Timezone,
	}
	s, err := scheduler.Start(ctx, j, cfg.Timezone)
	utils.Must(err, "start scheduler")
	defer func() { utils.LogFor(s.Shutdown(), "stop scheduler") }()

	e := httpapi.NewServer(api)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")
		if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server stopped")
			stop()
		}
	}()

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := bot.GetUpdatesChan(updateConfig)

	h.Listen(ctx, updates)
	bot.StopReceivingUpdates()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	utils.LogFor(e.Shutdown(shutdownCtx), "stop http server")
	log.Info().Msg("bye")
}
