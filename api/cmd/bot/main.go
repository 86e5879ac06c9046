package main

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"calc-api/api/internal/calc"
	"calc-api/api/internal/config"
	"calc-api/api/internal/engines"
	"calc-api/api/internal/httpserver"
	"calc-api/api/internal/logger"
	"calc-api/api/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	lg, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	if cfg.TelegramToken == "" {
		lg.Fatal("missing required env TELEGRAM_BOT_TOKEN")
	}
	if err := cfg.Validate(); err != nil {
		lg.Fatal("invalid config", zap.Error(err))
	}

	reg, err := engines.Build(cfg, lg)
	if err != nil {
		lg.Fatal("engines", zap.Error(err))
	}

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		lg.Fatal("telegram", zap.Error(err))
	}
	bot.Debug = false
	lg.Info("authorized", zap.String("bot", bot.Self.UserName))

	r := &telegram.Router{
		Bot:     bot,
		Pipe:    calc.New(reg, lg.Named("calc")),
		Engines: reg.Names(),
		Default: reg.Default(),
		Timeout: cfg.Timeout(),
		Log:     lg.Named("telegram"),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := "0.0.0.0:" + cfg.Port
	if webhookURL := strings.TrimSpace(cfg.TelegramWebhook); webhookURL != "" {
		startWebhookMode(ctx, addr, bot, r, webhookURL, lg)
	} else {
		startPollingMode(ctx, addr, bot, r, lg)
	}
}

func startWebhookMode(ctx context.Context, addr string, bot *tgbotapi.BotAPI, r *telegram.Router, baseURL string, lg *zap.Logger) {
	// secret path so strangers cannot post updates
	path := "/webhook/" + shortHash(bot.Token)
	public := strings.TrimRight(baseURL, "/") + path

	wh, err := tgbotapi.NewWebhook(public)
	if err != nil {
		lg.Fatal("webhook", zap.Error(err))
	}
	wh.DropPendingUpdates = true
	if _, err := bot.Request(wh); err != nil {
		lg.Fatal("set webhook", zap.Error(err))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	updates := make(chan tgbotapi.Update, bot.Buffer)
	mux.HandleFunc(path, func(w http.ResponseWriter, req *http.Request) {
		upd, err := bot.HandleUpdate(req)
		if err != nil {
			lg.Warn("webhook update", zap.Error(err))
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		updates <- *upd
	})

	go func() {
		for upd := range updates {
			r.HandleUpdate(upd)
		}
	}()

	lg.Info("webhook listening", zap.String("addr", addr), zap.String("path", path))
	if err := httpserver.Run(ctx, httpserver.New(addr, mux), lg); err != nil {
		lg.Fatal("server", zap.Error(err))
	}
	close(updates)
}

func startPollingMode(ctx context.Context, addr string, bot *tgbotapi.BotAPI, r *telegram.Router, lg *zap.Logger) {
	// the platform expects a live port even in polling mode
	go func() {
		lg.Info("health server listening", zap.String("addr", addr))
		if err := httpserver.StartHTTP(addr, "ok"); err != nil {
			lg.Error("health server", zap.Error(err))
		}
	}()

	if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		lg.Warn("delete webhook", zap.Error(err))
	}
	runPolling(ctx, bot, r.HandleUpdate, lg)
}

var reRetryAfter = regexp.MustCompile(`(?i)retry after\s+(\d+)`)

func retryDelayFromError(err error) time.Duration {
	if err == nil {
		return 0
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "too many requests") {
		if m := reRetryAfter.FindStringSubmatch(s); len(m) == 2 {
			if n, _ := strconv.Atoi(m[1]); n > 0 {
				return time.Duration(n) * time.Second
			}
		}
		return 3 * time.Second
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return 2 * time.Second
	}
	return 1 * time.Second
}

func clampDelay(d, lo, hi time.Duration) time.Duration {
	return min(max(d, lo), hi)
}

func runPolling(ctx context.Context, bot *tgbotapi.BotAPI, handle func(tgbotapi.Update), lg *zap.Logger) {
	offset := 0
	baseDelay := 1 * time.Second
	maxDelay := 15 * time.Second

	for {
		select {
		case <-ctx.Done():
			lg.Info("polling stopped")
			return
		default:
		}

		u := tgbotapi.NewUpdate(offset)
		u.Timeout = 30

		updates, err := bot.GetUpdates(u)
		if err != nil {
			d := clampDelay(retryDelayFromError(err), baseDelay, maxDelay)
			lg.Warn("polling error", zap.Error(err), zap.Duration("retry_in", d))
			sleep(ctx, d)
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			handle(upd)
		}

		if len(updates) == 0 {
			sleep(ctx, 200*time.Millisecond)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// shortHash is FNV-1a of s as 16 hex chars, stable per token.
func shortHash(s string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return fmt.Sprintf("%016x", h.Sum64())
}
