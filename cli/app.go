// ABOUTME: Shared CLI wiring: opens the store, outbox, bridge, and engine from config
// ABOUTME: Every command builds its components through App and tears them down on exit
package cli

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lodgekit/lodgekit/cloud"
	"github.com/lodgekit/lodgekit/config"
	"github.com/lodgekit/lodgekit/db"
	"github.com/lodgekit/lodgekit/state"
	"github.com/lodgekit/lodgekit/sync"
)

// App bundles the wired components behind every command.
type App struct {
	Config *config.Config
	Store  *db.Store
	Outbox *sync.Outbox
	Bridge *cloud.Bridge
	Engine *sync.Engine
	Log    zerolog.Logger
}

// NewApp loads configuration and wires the full engine. The session origin id
// is fresh per process; remote echoes of this process's own writes carry it
// and get skipped.
func NewApp(cfg *config.Config, log zerolog.Logger) (*App, error) {
	store, err := db.Open(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	outbox, err := sync.OpenOutbox(cfg.OutboxDir())
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	cloudURL, anonKey := cfg.CloudURL, cfg.CloudAnonKey
	if !cfg.CloudEnabled() {
		cloudURL, anonKey = "", ""
	}
	bridge := cloud.NewBridge(cloudURL, anonKey, uuid.New().String(), log)

	appState := state.New(store)
	engine := sync.NewEngine(store, bridge, outbox, appState, log)

	return &App{
		Config: cfg,
		Store:  store,
		Outbox: outbox,
		Bridge: bridge,
		Engine: engine,
		Log:    log,
	}, nil
}

// Close releases every component in reverse order.
func (a *App) Close() {
	a.Engine.Close()
	if err := a.Outbox.Close(); err != nil {
		a.Log.Warn().Err(err).Msg("outbox close failed")
	}
	if err := a.Store.Close(); err != nil {
		a.Log.Warn().Err(err).Msg("store close failed")
	}
}

// NewLogger builds the console logger used by every command.
func NewLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}
