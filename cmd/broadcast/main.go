// Command broadcast sends one message to every known bot user. The text
// comes from the command line, or from stdin when no arguments are given:
//
//	broadcast "Бот переехал на новый сервер"
//	cat announce.txt | broadcast
package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"allinone_bot/internal/bot"
	"allinone_bot/internal/config"
	"allinone_bot/internal/logger"
	"allinone_bot/internal/store"
	"allinone_bot/internal/store/postgres"
	"allinone_bot/internal/store/sqlite"
)

// sendPause keeps the broadcast under Telegram's ~30 msg/s bot limit.
const sendPause = 50 * time.Millisecond

func main() {
	cfg, err := config.New()
	if err != nil {
		l := logger.New("broadcast", true)
		l.Fatal().Err(err).Msg("config error")
	}
	log := logger.New("broadcast", cfg.PrettyLog)

	text, err := readMessage(os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("no message to send")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("store open failed")
	}
	defer st.Close()

	ids, err := st.UserIDs(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("loading user list failed")
	}
	if len(ids) == 0 {
		log.Info().Msg("no users to broadcast to")
		return
	}

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatal().Err(err).Msg("telegram bot init failed")
	}
	sender := bot.NewSender(api)

	log.Info().Int("users", len(ids)).Msg("broadcast starting")
	sent, failed, blocked := run(ctx, sender, ids, text, log)
	log.Info().Int("sent", sent).Int("failed", failed).Int("blocked", blocked).Msg("broadcast finished")
}

func run(ctx context.Context, sender bot.Sender, ids []int64, text string, log zerolog.Logger) (sent, failed, blocked int) {
	for _, id := range ids {
		select {
		case <-ctx.Done():
			log.Warn().Msg("broadcast interrupted")
			return
		default:
		}

		if err := sender.Send(id, text); err != nil {
			// A user who blocked the bot is expected churn, not a failure.
			if strings.Contains(err.Error(), "blocked") || strings.Contains(err.Error(), "deactivated") {
				blocked++
			} else {
				log.Warn().Err(err).Int64("user", id).Msg("send failed")
				failed++
			}
		} else {
			sent++
		}
		time.Sleep(sendPause)
	}
	return
}

func readMessage(args []string) (string, error) {
	if len(args) > 0 {
		return strings.TrimSpace(strings.Join(args, " ")), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", errors.New("message text is empty")
	}
	return text, nil
}

// openStore mirrors the bot's backend selection but refuses to run on an
// in-memory store: broadcasting needs the real user list.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if dsn := cfg.PostgresDSN(); dsn != "" {
		return postgres.Open(ctx, dsn)
	}
	return sqlite.Open(cfg.SQLitePath)
}
