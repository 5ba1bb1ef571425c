// Command calliope is the Discord voice recording and transcription bot.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/calliope-bot/calliope/internal/config"
	discordbot "github.com/calliope-bot/calliope/internal/discord"
	"github.com/calliope-bot/calliope/internal/health"
	"github.com/calliope-bot/calliope/internal/observe"
	"github.com/calliope-bot/calliope/internal/recorder"
	"github.com/calliope-bot/calliope/internal/settings"
	"github.com/calliope-bot/calliope/internal/transcribe"
	"github.com/calliope-bot/calliope/internal/transcribe/gemini"
	voicediscord "github.com/calliope-bot/calliope/pkg/voice/discord"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "calliope: %v\n", err)
		return 1
	}

	logLevel := new(slog.LevelVar)
	logLevel.Set(slogLevel(cfg.Server.LogLevel))
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("calliope starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Hot-reload the log level when the config file changes on disk.
	if _, statErr := os.Stat(*configPath); statErr == nil {
		watcher, werr := config.NewWatcher(*configPath, func(old, new *config.Config) {
			diff := config.Diff(old, new)
			if diff.LogLevelChanged {
				logLevel.Set(slogLevel(diff.NewLogLevel))
				slog.Info("log level changed", "level", diff.NewLogLevel)
			}
			if diff.RestartRequired {
				slog.Warn("config change requires a restart to take effect")
			}
		})
		if werr != nil {
			slog.Warn("config watcher disabled", "error", werr)
		} else {
			defer watcher.Stop()
		}
	}

	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		slog.Error("init telemetry", "error", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown", "error", err)
		}
	}()

	store, closeStore, err := newSettingsStore(ctx, cfg.Settings)
	if err != nil {
		slog.Error("init settings store", "error", err)
		return 1
	}
	defer closeStore()

	svc, err := gemini.New(ctx, gemini.Config{
		APIKey:         cfg.Gemini.APIKey,
		Model:          cfg.Gemini.Model,
		ThinkingBudget: cfg.Gemini.ThinkingBudget,
	})
	if err != nil {
		slog.Error("init transcription backend", "error", err)
		return 1
	}
	transcriber := transcribe.NewClient(svc,
		transcribe.WithMaxConcurrent(cfg.Transcription.MaxConcurrent),
		transcribe.WithMaxRetries(cfg.Transcription.MaxRetries),
		transcribe.WithInitialBackoff(cfg.Transcription.InitialBackoff),
		transcribe.WithAttemptTimeout(cfg.Transcription.AttemptTimeout),
	)
	if err := transcriber.TestConnection(ctx); err != nil {
		slog.Warn("transcription backend probe failed; transcripts may be delayed", "error", err)
	} else {
		slog.Info("transcription backend ready", "model", cfg.Gemini.Model)
	}

	bot, err := discordbot.NewBot(cfg.Discord.Token)
	if err != nil {
		slog.Error("init discord bot", "error", err)
		return 1
	}

	var platformOpts []voicediscord.Option
	if cfg.Discord.Keepalive {
		platformOpts = append(platformOpts, voicediscord.WithKeepalive())
	}
	platform := voicediscord.NewPlatform(bot.Session(), platformOpts...)
	directory := discordbot.NewStateDirectory(bot.Session())
	publisher := discordbot.NewChannelPublisher(bot.Session())

	orch := recorder.NewOrchestrator(ctx, platform, store, transcriber, publisher, directory)
	discordbot.BindPresence(bot.Session(), orch)
	discordbot.NewRecorderCommands(bot.Router(), store, orch, directory)

	checks := health.New(
		health.CheckFunc("gateway", func(_ context.Context) error {
			if !bot.Session().DataReady {
				return errors.New("gateway not connected")
			}
			return nil
		}),
		health.CheckFunc("settings", func(ctx context.Context) error {
			_, _, err := store.Get(ctx, "healthcheck")
			return err
		}),
	)

	var httpServer *http.Server
	if cfg.Server.ListenAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", promhttp.Handler())
		checks.Register(mux)
		httpServer = &http.Server{Addr: cfg.Server.ListenAddr, Handler: mux}
		go func() {
			slog.Info("http server listening", "addr", cfg.Server.ListenAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("http server", "error", err)
			}
		}()
	}

	botErr := make(chan error, 1)
	go func() {
		botErr <- bot.Run(ctx)
	}()

	select {
	case <-ctx.Done():
	case err := <-botErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("discord bot", "error", err)
			return 1
		}
	}

	slog.Info("shutting down")
	if err := bot.Close(); err != nil {
		slog.Warn("discord bot close", "error", err)
	}
	orch.Close()
	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Warn("http server shutdown", "error", err)
		}
	}
	slog.Info("goodbye")
	return 0
}

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

// newSettingsStore picks the persistence backend: PostgreSQL when a DSN is
// configured, a local JSON file otherwise.
func newSettingsStore(ctx context.Context, cfg config.SettingsConfig) (settings.Store, func(), error) {
	if cfg.PostgresDSN != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		store := settings.NewPostgresStore(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate settings schema: %w", err)
		}
		slog.Info("guild settings stored in postgres")
		return store, pool.Close, nil
	}

	store, err := settings.NewFileStore(cfg.File)
	if err != nil {
		return nil, nil, fmt.Errorf("open settings file: %w", err)
	}
	slog.Info("guild settings stored in file", "path", cfg.File)
	return store, func() {}, nil
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
