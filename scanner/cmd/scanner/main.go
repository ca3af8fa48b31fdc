package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xmppscan/xmppscan/scanner/internal/config"
	"github.com/xmppscan/xmppscan/scanner/internal/fileutil"
	"github.com/xmppscan/xmppscan/scanner/internal/run"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	interval := flag.Duration("interval", 0, "run repeatedly at this interval, reloading the config on change; 0 runs once")
	renderOnly := flag.Bool("render-only", false, "skip reading inputs and rebuild the reports from the stored snapshot")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("xmppscan", version)
		return
	}

	os.Exit(realMain(*configPath, *interval, *renderOnly))
}

func realMain(configPath string, interval time.Duration, renderOnly bool) int {
	var level slog.LevelVar
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: &level})))

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", "path", configPath, "err", err)
		return 1
	}
	level.Set(cfg.Log.SlogLevel())

	if cfg.Log.File != "" {
		if err := fileutil.Rotate(cfg.Log.File, cfg.Log.Backups); err != nil {
			slog.Error("failed to rotate log file", "path", cfg.Log.File, "err", err)
			return 1
		}
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			slog.Error("failed to open log file", "path", cfg.Log.File, "err", err)
			return 1
		}
		defer f.Close()
		setLogOutput(f, &level)
	}

	slog.Info("xmppscan starting",
		"version", version,
		"config", configPath,
		"state_file", cfg.Scanner.StateFile,
		"feeds", len(cfg.Scanner.Feeds),
		"retention_days", cfg.Scanner.RetentionDays,
		"render_only", renderOnly,
		"interval", interval.String(),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runOnce := func(cfg *config.Config) bool {
		r := run.New(cfg)
		r.RenderOnly = renderOnly
		r.Version = version
		res, err := r.Run(ctx)
		if err != nil {
			slog.Error("run aborted", "err", err)
			return false
		}
		for _, f := range res.Failures {
			slog.Error("run stage failed", "run_id", res.RunID, "stage", f.Stage, "artifact", f.Artifact, "err", f.Err)
		}
		return len(res.Failures) == 0
	}

	if interval <= 0 {
		if !runOnce(cfg) {
			return 1
		}
		return 0
	}

	// Daemon mode: runs are sequential on this goroutine so they never
	// overlap. Reloaded configs take effect at the next tick.
	reloads := make(chan *config.Config, 1)
	go func() {
		if err := config.Watch(ctx, configPath, func(updated *config.Config) {
			select {
			case <-reloads:
			default:
			}
			reloads <- updated
		}); err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	runOnce(cfg)
	for {
		select {
		case <-ctx.Done():
			slog.Info("xmppscan shutting down")
			return 0
		case updated := <-reloads:
			cfg = updated
			level.Set(cfg.Log.SlogLevel())
			slog.Info("config hot-reloaded", "feeds", len(cfg.Scanner.Feeds))
		case <-ticker.C:
			runOnce(cfg)
		}
	}
}

func setLogOutput(w io.Writer, level slog.Leveler) {
	slog.SetDefault(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})))
}
