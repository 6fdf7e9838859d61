// Command tribute serves the tribute page and runs the chat bots.
// It:
//   - Loads configuration and initializes structured logging.
//   - Opens the configured visit counter (file, Postgres, Redis or none).
//   - Starts the Discord bot when DISCORD_TOKEN is set and the Twitch relay
//     when its credentials are set.
//   - Exposes the HTTP server with the page, raw texts, /healthz, /status and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // G108: pprof endpoints enabled only when ENABLE_PPROF=1
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/maxverstappen583/Tribute/chat"
	"github.com/maxverstappen583/Tribute/config"
	"github.com/maxverstappen583/Tribute/page"
	"github.com/maxverstappen583/Tribute/server"
	"github.com/maxverstappen583/Tribute/telemetry"
	"github.com/maxverstappen583/Tribute/tribute"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	setupLogging()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("tribute", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.BotRequired {
		if err := cfg.ValidateBotReady(); err != nil {
			slog.Error("bot required but not configured", slog.Any("err", err))
			os.Exit(1)
		}
	}

	texts := tribute.Default()
	renderer, err := page.New()
	if err != nil {
		slog.Error("failed to parse page template", slog.Any("err", err))
		os.Exit(1)
	}

	store, closeStore, err := openCounter(ctx, cfg)
	if err != nil {
		slog.Error("failed to open visit counter", slog.String("backend", cfg.CounterBackend), slog.Any("err", err))
		os.Exit(1)
	}
	defer closeStore()

	g, gctx := errgroup.WithContext(ctx)
	deps := server.Deps{Config: cfg, Texts: texts, Store: store, Renderer: renderer}
	info := chat.InfoFromConfig(cfg)

	if cfg.BotEnabled() {
		sess, err := chat.NewDiscordSession(cfg.DiscordToken)
		if err != nil {
			slog.Error("discord session setup failed", slog.Any("err", err))
			os.Exit(1)
		}
		bot := chat.NewDiscordBot(sess, info, texts, store, cfg.GuildID)
		deps.Bots = append(deps.Bots, bot)
		g.Go(func() error {
			if err := bot.Run(gctx); err != nil {
				// The page keeps serving without the bot unless it is required.
				slog.Error("discord bot exited with error", slog.Any("err", err))
				if cfg.BotRequired {
					return err
				}
			}
			return nil
		})
	} else {
		slog.Info("discord bot disabled (DISCORD_TOKEN not set)")
	}

	if err := cfg.ValidateTwitchReady(); err == nil {
		relay := chat.NewTwitchRelay(chat.NewTwitchClient(cfg.TwitchBotUsername, cfg.TwitchOAuthToken), cfg.TwitchChannel, info, texts, store)
		deps.Bots = append(deps.Bots, relay)
		g.Go(func() error {
			if err := relay.Run(gctx); err != nil {
				slog.Error("twitch relay exited with error", slog.Any("err", err))
			}
			return nil
		})
	} else if cfg.TwitchChannel != "" {
		slog.Warn("twitch relay disabled", slog.Any("err", err))
	}

	// Enable pprof profiling endpoints in debug mode (ENABLE_PPROF=1)
	if os.Getenv("ENABLE_PPROF") == "1" {
		startPprof()
	}

	addr := cfg.Addr()
	g.Go(func() error {
		slog.Info("tribute page listening", slog.String("addr", addr), slog.String("counter", cfg.CounterBackend))
		return server.Start(gctx, server.NewMux(gctx, deps), addr)
	})

	if err := g.Wait(); err != nil {
		slog.Error("exited with error", slog.Any("err", err))
		closeStore()
		os.Exit(1)
	}
	slog.Info("shutting down")
}

// setupLogging configures the default logger from LOG_LEVEL and LOG_FORMAT.
// Defaults: level=info, format=text.
func setupLogging() {
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	if os.Getenv("DEBUG") == "1" {
		lvl = slog.LevelDebug
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		format = "text"
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()), slog.String("format", format))
}

func startPprof() {
	pprofAddr := os.Getenv("PPROF_ADDR")
	if pprofAddr == "" {
		pprofAddr = "localhost:6060"
	}
	go func() {
		slog.Info("pprof profiling enabled", slog.String("addr", pprofAddr))
		srv := &http.Server{
			Addr:              pprofAddr,
			Handler:           nil, // default mux exposes /debug/pprof
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
		if err := srv.ListenAndServe(); err != nil {
			slog.Error("pprof server error", slog.Any("err", err))
		}
	}()
}
