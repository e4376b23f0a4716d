// Package main implements boardctl, a small operability CLI that drives
// a board.Driver session end to end through registry.Registry against
// the Wifi board family over loopback UDP — no physical hardware
// required to exercise prepare/start/stream/marker/stop.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/c360/boardkit/board"
	"github.com/c360/boardkit/boardconfig"
	"github.com/c360/boardkit/metric"
	"github.com/c360/boardkit/registry"
)

const appName = "boardctl"

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("boardctl failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 2 {
		printUsage()
		return fmt.Errorf("missing command")
	}

	cmdName := os.Args[1]
	cliCfg, err := parseFlags(cmdName, os.Args[2:])
	if err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	bc := boardconfig.DefaultConfig()
	bc.BoardID = board.WifiID
	bc.ListenAddress = cliCfg.ListenAddress
	if err := bc.Validate(); err != nil {
		return fmt.Errorf("invalid board config: %w", err)
	}

	r := registry.New()
	registry.RegisterDefaultFactories(r)
	params := registry.Params{BoardID: bc.BoardID, ListenAddress: bc.ListenAddress}
	deps := board.Dependencies{Logger: logger, Metrics: metric.New()}

	switch cmdName {
	case "prepare":
		return cmdPrepare(r, params, deps, logger)
	case "start":
		return cmdStart(ctx, r, params, deps, cliCfg, logger)
	case "stream":
		return cmdStream(ctx, r, params, deps, cliCfg, logger)
	case "marker":
		return cmdMarker(ctx, r, params, deps, cliCfg, logger)
	case "stop":
		return cmdStop(r, params, logger)
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", cmdName)
	}
}

func cmdPrepare(r *registry.Registry, params registry.Params, deps board.Dependencies, logger *slog.Logger) error {
	if err := r.PrepareSession(params, deps); err != nil {
		return err
	}
	logger.Info("session prepared", "board_id", params.BoardID, "listen", params.ListenAddress)
	return r.ReleaseSession(params)
}

func cmdStart(ctx context.Context, r *registry.Registry, params registry.Params, deps board.Dependencies, cfg *CLIConfig, logger *slog.Logger) error {
	if err := r.PrepareSession(params, deps); err != nil {
		return err
	}
	defer func() { _ = r.ReleaseSession(params) }()

	feedCtx, stopFeed := context.WithCancel(ctx)
	defer stopFeed()
	go feedSyntheticFrames(feedCtx, params.ListenAddress, logger)

	if err := r.StartStream(params, 0, ""); err != nil {
		return err
	}
	logger.Info("stream started", "listen", params.ListenAddress)

	select {
	case <-time.After(cfg.Duration):
	case <-ctx.Done():
	}

	count, err := r.GetBoardDataCount(params, board.PresetDefault)
	if err != nil {
		return err
	}
	logger.Info("stream sample", "rows_buffered", count)
	return r.StopStream(params)
}

func cmdStream(ctx context.Context, r *registry.Registry, params registry.Params, deps board.Dependencies, cfg *CLIConfig, logger *slog.Logger) error {
	if err := r.PrepareSession(params, deps); err != nil {
		return err
	}
	defer func() { _ = r.ReleaseSession(params) }()

	feedCtx, stopFeed := context.WithCancel(ctx)
	defer stopFeed()
	go feedSyntheticFrames(feedCtx, params.ListenAddress, logger)

	if err := r.StartStream(params, 0, ""); err != nil {
		return err
	}
	defer func() { _ = r.StopStream(params) }()

	deadline := time.After(cfg.Duration)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-deadline:
			return nil
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			rows, err := r.GetBoardData(params, 10, board.PresetDefault)
			if err != nil {
				return err
			}
			for _, row := range rows {
				fmt.Println(formatRow(row))
			}
		}
	}
}

func cmdMarker(ctx context.Context, r *registry.Registry, params registry.Params, deps board.Dependencies, cfg *CLIConfig, logger *slog.Logger) error {
	if err := r.PrepareSession(params, deps); err != nil {
		return err
	}
	defer func() { _ = r.ReleaseSession(params) }()

	feedCtx, stopFeed := context.WithCancel(ctx)
	defer stopFeed()
	go feedSyntheticFrames(feedCtx, params.ListenAddress, logger)

	if err := r.StartStream(params, 0, ""); err != nil {
		return err
	}
	defer func() { _ = r.StopStream(params) }()

	time.Sleep(cfg.Duration / 2)
	if err := r.InsertMarker(params, cfg.MarkerValue, board.PresetDefault); err != nil {
		return err
	}
	logger.Info("marker inserted", "value", cfg.MarkerValue)
	time.Sleep(cfg.Duration / 2)
	return nil
}

func cmdStop(r *registry.Registry, params registry.Params, logger *slog.Logger) error {
	err := r.StopStream(params)
	if err != nil {
		logger.Info("stop on session with no active prepare returns the expected error", "error", err)
	}
	return nil
}

func formatRow(row []float64) string {
	s := "["
	for i, v := range row {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%.3f", v)
	}
	return s + "]"
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `%s — exercise a board session without physical hardware

Usage:
  %s <command> [flags]

Commands:
  prepare   open and immediately release a session
  start     prepare, start streaming against a synthetic feeder, stop
  stream    start, print buffered rows as they drain, then stop
  marker    start, insert a marker halfway through, then stop
  stop      attempt to stop a session that was never prepared (error path demo)

Flags:
  -listen string      UDP address the Wifi board listens on (default 127.0.0.1:21001)
  -duration duration  how long to stream for (default 3s)
  -value float         marker value for the marker command (default 1)
  -log-level string    debug, info, warn, error (default info)
  -log-format string   json, text (default text)
`, appName, appName)
}
