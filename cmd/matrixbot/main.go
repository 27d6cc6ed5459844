// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/matrixbot/backend"
	"github.com/bureau-foundation/matrixbot/lib/clock"
	"github.com/bureau-foundation/matrixbot/lib/config"
	"github.com/bureau-foundation/matrixbot/lib/cursorstore"
	"github.com/bureau-foundation/matrixbot/lib/process"
	"github.com/bureau-foundation/matrixbot/lib/version"
	"github.com/bureau-foundation/matrixbot/messaging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:])
	stop()
	if err != nil {
		process.Fatal(err)
	}
}

type options struct {
	configPath  string
	logLevel    string
	logFormat   string
	echo        bool
	showVersion bool
}

func parseFlags(args []string) (options, error) {
	var opts options
	flagSet := pflag.NewFlagSet("matrixbot", pflag.ContinueOnError)
	flagSet.StringVar(&opts.configPath, "config", "", "path to the configuration file (default: $MATRIXBOT_CONFIG)")
	flagSet.StringVar(&opts.logLevel, "log-level", "", "override log.level: debug, info, warn, error")
	flagSet.StringVar(&opts.logFormat, "log-format", "", "override log.format: auto, text, json")
	flagSet.BoolVar(&opts.echo, "echo", false, "reply to every text message with a quoted echo")
	flagSet.BoolVar(&opts.showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(args); err != nil {
		return options{}, err
	}
	if flagSet.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected argument: %s", flagSet.Arg(0))
	}
	return opts, nil
}

// loadConfig loads and validates the configuration file, applying flag
// overrides, and returns it with the path it was read from.
func loadConfig(opts options) (*config.Config, string, error) {
	path := opts.configPath
	if path == "" {
		var err error
		if path, err = config.PathFromEnvironment(); err != nil {
			return nil, "", err
		}
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("loading configuration: %w", err)
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.Log.Format = opts.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// run returns after a clean shutdown once ctx is cancelled, or with the
// error that stopped the bot.
func run(ctx context.Context, args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if opts.showVersion {
		fmt.Printf("matrixbot %s\n", version.Full())
		return nil
	}

	cfg, configPath, err := loadConfig(opts)
	if err != nil {
		var missing *config.MissingKeyError
		if errors.As(err, &missing) {
			slog.Error("configuration incomplete", "missing", missing.Keys)
		}
		return err
	}

	level := new(slog.LevelVar)
	level.Set(parseLevel(cfg.Log.Level))
	logger := newLogger(os.Stderr, cfg.Log.Format, level, isTerminal(os.Stderr))
	slog.SetDefault(logger)

	// An explicit --log-level pins the level; otherwise edits to the
	// file's log.level apply without a restart.
	if opts.logLevel == "" {
		stopWatching, err := watchLogLevel(configPath, level, logger, nil)
		if err != nil {
			logger.Warn("log level reload unavailable", "path", configPath, "error", err)
		} else {
			defer stopWatching()
		}
	}

	var cursors backend.CursorStore
	if cfg.Sync.CursorStore != "" {
		if err := cfg.EnsurePaths(); err != nil {
			return err
		}
		store, err := cursorstore.Open(ctx, cfg.Sync.CursorStore, logger)
		if err != nil {
			return err
		}
		defer store.Close()
		cursors = store
	}

	client, err := messaging.NewClient(messaging.ClientConfig{
		HomeserverURL: cfg.Identity.ServerURL,
		HTTPClient:    &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()},
		Logger:        logger,
		UserAgent:     version.UserAgent(),
	})
	if err != nil {
		return err
	}

	checkHomeserver(ctx, client, logger)

	syncTimeout, err := cfg.Sync.TimeoutDuration()
	if err != nil {
		return err
	}

	host := &botHost{logger: logger, echo: opts.echo}
	bot, err := backend.New(backend.Config{
		AccountAddress: cfg.Identity.AccountAddress,
		AuthPayload:    cfg.Identity.AuthPayload,
		DeviceName:     cfg.Sync.DeviceName,
		SyncTimeout:    syncTimeout,
		Authenticator:  backend.ClientAuthenticator{Client: client},
		Host:           host,
		Cursors:        cursors,
		Logger:         logger,
	})
	if err != nil {
		return err
	}
	host.bot = bot

	logger.Info("matrixbot starting",
		"version", version.Info(),
		"account", cfg.Identity.AccountAddress,
		"homeserver", client.BaseURL(),
		"echo", opts.echo,
	)

	err = serveLoop(ctx, bot, clock.Real(), logger)
	client.CloseIdleConnections()
	if err != nil {
		return err
	}
	logger.Info("matrixbot stopped")
	return nil
}

// newLogger builds the process logger. Format "auto" picks text when
// stderr is a terminal and JSON otherwise.
// versionsTimeout bounds the startup reachability check.
const versionsTimeout = 10 * time.Second

// checkHomeserver logs the protocol versions the homeserver advertises.
// A failure is only a warning; the serve loop retries login with backoff.
func checkHomeserver(ctx context.Context, client *messaging.Client, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, versionsTimeout)
	defer cancel()
	response, err := client.ServerVersions(ctx)
	if err != nil {
		logger.Warn("homeserver version check failed",
			"server_url", client.BaseURL(),
			"error", err,
		)
		return
	}
	logger.Info("homeserver reachable",
		"server_url", client.BaseURL(),
		"versions", response.Versions,
	)
}

func newLogger(output io.Writer, format string, level slog.Leveler, terminal bool) *slog.Logger {
	options := &slog.HandlerOptions{Level: level}
	if format == "auto" || format == "" {
		format = "json"
		if terminal {
			format = "text"
		}
	}
	if format == "text" {
		return slog.New(slog.NewTextHandler(output, options))
	}
	return slog.New(slog.NewJSONHandler(output, options))
}

// parseLevel maps a validated log.level value to its slog level.
func parseLevel(text string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(text)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func isTerminal(file *os.File) bool {
	return term.IsTerminal(int(file.Fd()))
}
