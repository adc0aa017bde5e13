// Command callaudit is the main entry point for the call review server.
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

	"github.com/joho/godotenv"

	"github.com/hotelcx/callaudit/internal/coach"
	"github.com/hotelcx/callaudit/internal/coach/gemini"
	coachmock "github.com/hotelcx/callaudit/internal/coach/mock"
	"github.com/hotelcx/callaudit/internal/coach/openai"
	"github.com/hotelcx/callaudit/internal/config"
	"github.com/hotelcx/callaudit/internal/health"
	"github.com/hotelcx/callaudit/internal/httpapi"
	"github.com/hotelcx/callaudit/internal/observe"
	"github.com/hotelcx/callaudit/internal/resilience"
	"github.com/hotelcx/callaudit/internal/review"
	"github.com/hotelcx/callaudit/internal/rubric"
	"github.com/hotelcx/callaudit/internal/stt"
	sttmock "github.com/hotelcx/callaudit/internal/stt/mock"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Environment ───────────────────────────────────────────────────────────
	// .env is optional; API keys may also come from the config file or the
	// real environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "callaudit: load .env: %v\n", err)
		return 1
	}

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "callaudit: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "callaudit: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger, logLevel := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("callaudit starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	tel, err := observe.Setup(ctx, observe.TelemetryConfig{
		ServiceName: "callaudit",
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Rubric ────────────────────────────────────────────────────────────────
	rb, err := rubric.Load(cfg.Rubric.Path)
	if err != nil {
		slog.Error("failed to load rubric", "path", cfg.Rubric.Path, "err", err)
		return 1
	}
	slog.Info("rubric loaded", "path", cfg.Rubric.Path, "criteria", len(rb.Criteria))

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	geminiHealth := registerBuiltinProviders(ctx, reg)

	coachChain, err := buildCoach(cfg, reg)
	if err != nil {
		slog.Error("failed to build coach providers", "err", err)
		return 1
	}

	transcriber, err := buildSTT(cfg, reg)
	if err != nil {
		slog.Error("failed to build stt provider", "err", err)
		return 1
	}

	// ── Reviewer ──────────────────────────────────────────────────────────────
	reviewOpts := []review.Option{}
	if coachChain != nil {
		reviewOpts = append(reviewOpts, review.WithCoach(coachChain))
	}
	if cfg.Rubric.PassingThreshold > 0 {
		reviewOpts = append(reviewOpts, review.WithPassingThreshold(cfg.Rubric.PassingThreshold))
	}
	reviewer := review.New(rb, reviewOpts...)

	// ── HTTP server ───────────────────────────────────────────────────────────
	checkers := []health.Checker{}
	if cfg.Rubric.Path != "" {
		checkers = append(checkers, health.RubricCheck(cfg.Rubric.Path))
	}

	apiOpts := []httpapi.Option{
		httpapi.WithHealth(health.New(checkers...)),
	}
	if transcriber != nil {
		apiOpts = append(apiOpts, httpapi.WithTranscriber(transcriber))
	}
	if fn := coachHealthFunc(cfg, geminiHealth); fn != nil {
		apiOpts = append(apiOpts, httpapi.WithCoachHealth(fn))
	}

	api := httpapi.New(reviewer, apiOpts...)

	listenAddr := cfg.Server.ListenAddr
	if listenAddr == "" {
		listenAddr = ":8080"
	}
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ── Config hot reload ─────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		applyReload(config.Diff(old, new), logLevel, reviewer)
	})
	if err != nil {
		slog.Warn("config watcher disabled", "err", err)
	} else {
		defer watcher.Stop()
	}

	printStartupSummary(cfg, rb, listenAddr)

	// ── Serve ─────────────────────────────────────────────────────────────────
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server ready — press Ctrl+C to shut down", "addr", listenAddr)
		if cfg.Server.TLS != nil {
			errCh <- srv.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		} else {
			errCh <- srv.ListenAndServe()
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("serve error", "err", err)
			return 1
		}
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	slog.Info("shutdown signal received, stopping…")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in provider factories into reg.
// The returned pointer captures the gemini client (when one gets built) for
// the /coach/health endpoint.
func registerBuiltinProviders(ctx context.Context, reg *config.Registry) **gemini.Client {
	var geminiClient *gemini.Client

	reg.RegisterCoach("gemini", func(entry config.ProviderEntry) (coach.Provider, error) {
		var opts []gemini.Option
		if entry.Model != "" {
			opts = append(opts, gemini.WithModel(entry.Model))
		}
		cl, err := gemini.New(ctx, entry.APIKey, opts...)
		if err != nil {
			return nil, err
		}
		geminiClient = cl
		return cl, nil
	})

	reg.RegisterCoach("openai", func(entry config.ProviderEntry) (coach.Provider, error) {
		var opts []openai.Option
		if entry.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(entry.BaseURL))
		}
		return openai.New(entry.APIKey, entry.Model, opts...)
	})

	reg.RegisterCoach("mock", func(config.ProviderEntry) (coach.Provider, error) {
		return &coachmock.Provider{}, nil
	})

	reg.RegisterSTT("mock", func(config.ProviderEntry) (stt.Transcriber, error) {
		return &sttmock.Transcriber{Transcript: ""}, nil
	})

	return &geminiClient
}

// buildCoach constructs the primary coach plus its failover chain. Returns
// nil when no coach is configured.
func buildCoach(cfg *config.Config, reg *config.Registry) (coach.Provider, error) {
	if cfg.Coach.Provider == "" {
		slog.Warn("no coach configured; reviews will carry no AI feedback")
		return nil, nil
	}

	primary, err := reg.CreateCoach(cfg.Coach.Provider, cfg.Coach.Entries[cfg.Coach.Provider])
	if err != nil {
		return nil, fmt.Errorf("create coach provider %q: %w", cfg.Coach.Provider, err)
	}
	slog.Info("coach provider created", "name", cfg.Coach.Provider)

	if len(cfg.Coach.Fallbacks) == 0 {
		return primary, nil
	}

	chain := resilience.NewCoachFallback(primary, resilience.GroupConfig{})
	for _, name := range cfg.Coach.Fallbacks {
		p, err := reg.CreateCoach(name, cfg.Coach.Entries[name])
		if err != nil {
			return nil, fmt.Errorf("create coach fallback %q: %w", name, err)
		}
		chain.AddFallback(p)
		slog.Info("coach fallback registered", "name", name)
	}
	return chain, nil
}

// buildSTT constructs the transcriber for audio reviews, or nil when none
// is configured.
func buildSTT(cfg *config.Config, reg *config.Registry) (stt.Transcriber, error) {
	if cfg.STT.Name == "" {
		return nil, nil
	}
	t, err := reg.CreateSTT(cfg.STT.ProviderEntry)
	if err != nil {
		return nil, fmt.Errorf("create stt provider %q: %w", cfg.STT.Name, err)
	}
	slog.Info("stt provider created", "name", cfg.STT.Name)
	return t, nil
}

// coachHealthFunc exposes gemini self-diagnostics when gemini is part of the
// coach chain.
func coachHealthFunc(cfg *config.Config, client **gemini.Client) httpapi.CoachHealthFunc {
	if cfg.Coach.Provider == "" || *client == nil {
		return nil
	}
	return func(ctx context.Context) any {
		return (*client).CheckHealth(ctx)
	}
}

// applyReload applies a hot-reloadable config diff.
func applyReload(d config.ConfigDiff, logLevel *slog.LevelVar, reviewer *review.Reviewer) {
	if d.Empty() {
		return
	}
	if d.LogLevelChanged {
		logLevel.Set(slogLevel(d.NewLogLevel))
		slog.Info("log level updated", "level", d.NewLogLevel)
	}
	if d.PassingThresholdChanged {
		pct := d.NewPassingThreshold
		if pct <= 0 {
			pct = review.DefaultPassingThreshold
		}
		reviewer.SetPassingThreshold(pct)
		slog.Info("passing threshold updated", "threshold", pct)
	}
	if d.RubricPathChanged {
		rb, err := rubric.Load(d.NewRubricPath)
		if err != nil {
			slog.Error("rubric reload failed; keeping previous rubric", "path", d.NewRubricPath, "err", err)
		} else {
			reviewer.SetRubric(rb)
			slog.Info("rubric reloaded", "path", d.NewRubricPath, "criteria", len(rb.Criteria))
		}
	}
	if d.CoachChanged {
		slog.Warn("coach configuration changed; restart to apply")
	}
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config, rb *rubric.Rubric, listenAddr string) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║        callaudit — startup summary    ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("Coach", cfg.Coach.Provider, cfg.Coach.Entries[cfg.Coach.Provider].Model)
	for _, name := range cfg.Coach.Fallbacks {
		printProvider("Fallback", name, cfg.Coach.Entries[name].Model)
	}
	printProvider("STT", cfg.STT.Name, cfg.STT.Model)
	fmt.Printf("║  Rubric criteria : %-19d ║\n", len(rb.Criteria))
	threshold := cfg.Rubric.PassingThreshold
	if threshold <= 0 {
		threshold = review.DefaultPassingThreshold
	}
	fmt.Printf("║  Passing mark    : %-19s ║\n", fmt.Sprintf("%.1f%%", threshold))
	fmt.Printf("║  Listen addr     : %-19s ║\n", listenAddr)
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) (*slog.Logger, *slog.LevelVar) {
	lvl := new(slog.LevelVar)
	lvl.Set(slogLevel(level))
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), lvl
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
