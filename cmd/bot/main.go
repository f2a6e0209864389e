package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"allinone_bot/internal/bot"
	"allinone_bot/internal/config"
	"allinone_bot/internal/logger"
	"allinone_bot/internal/scheduler"
	"allinone_bot/internal/speech"
	"allinone_bot/internal/store"
	"allinone_bot/internal/store/memory"
	"allinone_bot/internal/store/postgres"
	"allinone_bot/internal/store/sqlite"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		l := logger.New("allinone-bot", true)
		l.Fatal().Err(err).Msg("config error")
	}
	log := logger.New("allinone-bot", cfg.PrettyLog)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st := openStore(ctx, cfg, log)
	defer func() {
		if err := st.Close(); err != nil {
			log.Warn().Err(err).Msg("store close failed")
		}
	}()

	api, err := tgbotapi.NewBotAPIWithClient(cfg.BotToken, tgbotapi.APIEndpoint,
		&http.Client{Timeout: cfg.HTTPTimeout})
	if err != nil {
		log.Fatal().Err(err).Msg("telegram bot init failed")
	}
	log.Info().Str("username", api.Self.UserName).Msg("authorized")

	sender := bot.NewSender(api)

	var transcriber bot.Transcriber
	if cfg.WhisperURL != "" {
		transcriber = speech.NewClient(cfg.WhisperURL, cfg.BotToken, cfg.HTTPTimeout)
	}

	handler := bot.New(sender, st, transcriber, log)

	sched := scheduler.New(st, sender, cfg.CheckInterval, cfg.DeliveryTimeout, log)
	sched.Start()
	defer sched.Stop()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := api.GetUpdatesChan(u)

	log.Info().Msg("bot started, waiting for updates")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("shutdown signal received")
			api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			handler.HandleUpdate(ctx, update)
		}
	}
}

// openStore picks the backend: Postgres when DATABASE_HOST is set, the
// embedded SQLite file otherwise. If the backend fails to open, the bot
// still starts on an in-memory store so it can answer users, and reminders
// live until the next restart.
func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) store.Store {
	if dsn := cfg.PostgresDSN(); dsn != "" {
		st, err := postgres.Open(ctx, dsn)
		if err == nil {
			log.Info().Str("backend", "postgres").Str("host", cfg.DatabaseHost).Msg("store ready")
			return st
		}
		log.Warn().Err(err).Msg("postgres unavailable, falling back to in-memory store")
		return memory.New()
	}

	st, err := sqlite.Open(cfg.SQLitePath)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.SQLitePath).Msg("sqlite unavailable, falling back to in-memory store")
		return memory.New()
	}
	log.Info().Str("backend", "sqlite").Str("path", cfg.SQLitePath).Msg("store ready")
	return st
}
