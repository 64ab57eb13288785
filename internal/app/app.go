// Package app wires the client together: config, logging, the session
// store, the API client, the flow state machines, and the terminal UI.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cryptolearn/cryptolearn-tui/internal/api"
	"github.com/cryptolearn/cryptolearn-tui/internal/flow"
	"github.com/cryptolearn/cryptolearn-tui/internal/session"
	"github.com/cryptolearn/cryptolearn-tui/internal/session/drivers/sqlite"
	"github.com/cryptolearn/cryptolearn-tui/internal/ui"
	"github.com/cryptolearn/cryptolearn-tui/pkg/slogx"
)

// BuildVersion should be set at build time via ldflags.
const BuildVersion = "v0.1.0"

// Application is the assembled client.
type Application struct {
	cfg      Config
	logger   *slog.Logger
	logClose func() error

	store   session.Store
	db      *sqlite.Store // nil in ephemeral mode
	client  *api.Client
	renewer *session.Renewer

	program *tea.Program
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o700); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
	}

	logger, logClose, err := slogx.New(slogx.Config{
		Service: "cryptolearn-tui",
		Version: BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		File:    cfg.LogFile,
	})
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	app := &Application{
		cfg:      cfg,
		logger:   logger,
		logClose: logClose,
	}

	if err := app.initStore(); err != nil {
		_ = logClose()
		return nil, err
	}

	app.client = api.New(cfg.ServerURL, logger)
	if cfg.RequestTimeout > 0 {
		app.client.HTTPClient.Timeout = cfg.RequestTimeout
	}
	app.renewer = session.NewRenewer(app.store, app.client, logger)

	flows := ui.Flows{
		Login:   flow.NewLogin(app.client, app.store, logger),
		Enroll:  flow.NewEnrollment(app.client, logger),
		Account: flow.NewAccount(app.client, app.store, logger),
		Guard:   flow.NewGuard(app.store),
	}
	root := ui.NewApp(app.client, app.store, flows, logger)
	app.program = tea.NewProgram(root, tea.WithAltScreen())

	return app, nil
}

// initStore opens the durable session store, or an in-memory one in
// ephemeral mode.
func (app *Application) initStore() error {
	if app.cfg.Ephemeral {
		app.store = session.NewMemoryStore()
		app.logger.Info("session store is ephemeral")
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(app.cfg.DatabaseFile), 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	db, err := sqlite.Open(app.cfg.DatabaseFile)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("migrate session store: %w", err)
	}

	app.db = db
	app.store = db
	app.logger.Info("session store ready", "file", app.cfg.DatabaseFile)
	return nil
}

// Run drives the UI and blocks until it exits. Before handing the terminal
// over it makes one silent token renewal attempt so a stored session that
// is still refreshable does not bounce the user to login on first use.
func (app *Application) Run() error {
	if err := app.renewer.Renew(context.Background()); err != nil {
		app.logger.Debug("token renewal skipped", "err", err)
	}

	app.logger.Info("client starting", "server", app.cfg.ServerURL, "version", BuildVersion)
	_, err := app.program.Run()

	if shutdownErr := app.Shutdown(); shutdownErr != nil && err == nil {
		err = shutdownErr
	}
	return err
}

// Shutdown releases the store and the log sink.
func (app *Application) Shutdown() error {
	var firstErr error
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			firstErr = err
		}
		app.db = nil
	}
	if app.logClose != nil {
		if err := app.logClose(); err != nil && firstErr == nil {
			firstErr = err
		}
		app.logClose = nil
	}
	return firstErr
}
