// Package app wires configuration, logging, note stores and the engine
// together for the binaries.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/systemshift/mindgraph/internal/config"
	"github.com/systemshift/mindgraph/internal/mindgraph"
	"github.com/systemshift/mindgraph/internal/mindgraph/core"
	"github.com/systemshift/mindgraph/internal/mindgraph/logger"
	"github.com/systemshift/mindgraph/internal/store"
)

// App is an opened engine with its stores
type App struct {
	Config *config.Config
	Engine *mindgraph.Engine
	Stores *store.Stores

	log *logger.ZapLogger
}

// SetupLogger installs the zap logger described by cfg
func SetupLogger(cfg *config.Config) (*logger.ZapLogger, error) {
	zl, err := logger.NewZap(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, err
	}
	logger.SetLogger(zl)
	return zl, nil
}

// Open opens stores, the persistence backend and the engine
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	zl, err := SetupLogger(cfg)
	if err != nil {
		return nil, err
	}

	stores, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening note store: %w", err)
	}

	backend, err := mindgraph.OpenBackend(cfg)
	if err != nil {
		stores.Close(ctx)
		return nil, fmt.Errorf("opening persistence backend: %w", err)
	}

	engine, err := mindgraph.Open(backend, stores.Notes, mindgraph.OptionsFromConfig(cfg))
	if err != nil {
		backend.Close()
		stores.Close(ctx)
		return nil, fmt.Errorf("opening engine: %w", err)
	}

	if fb := Fallback(cfg, stores); fb != nil {
		engine.SetFallback(fb)
	}
	if stores.Sessions != nil {
		engine.SetSessionRecorder(stores.Sessions)
	}
	if stores.Neo4j != nil {
		engine.SetLinkExporter(stores.Neo4j)
	}

	return &App{Config: cfg, Engine: engine, Stores: stores, log: zl}, nil
}

// Fallback returns the revision fallback source named by
// cfg.Revision.Fallback, nil when none is available
func Fallback(cfg *config.Config, stores *store.Stores) core.NoteStore {
	switch cfg.Revision.Fallback {
	case "notes":
		if stores.Folder != nil {
			return stores.Folder
		}
		return nil
	case "store":
		return stores.Notes
	}
	return nil
}

// Close flushes the engine and closes every store
func (a *App) Close(ctx context.Context) error {
	err := errors.Join(
		a.Engine.Close(),
		a.Stores.Close(ctx),
	)
	// stderr sync fails on some platforms; nothing to do about it
	_ = a.log.Sync()
	return err
}
