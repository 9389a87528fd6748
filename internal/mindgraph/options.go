package mindgraph

import (
	"fmt"
	"path/filepath"

	"github.com/systemshift/mindgraph/internal/config"
	"github.com/systemshift/mindgraph/internal/mindgraph/graph"
	"github.com/systemshift/mindgraph/internal/mindgraph/revision"
	"github.com/systemshift/mindgraph/internal/mindgraph/storage"
	"github.com/systemshift/mindgraph/internal/mindgraph/storage/badgerstore"
)

// Options configures an Engine
type Options struct {
	Infer    graph.InferOptions
	Revision revision.Options

	// HistoryCapacity bounds navigation history, 0 for unbounded
	HistoryCapacity int

	// CompactEvery folds the graph and plan journals into snapshots after
	// this many records. 0 compacts only on Flush.
	CompactEvery int
}

// DefaultOptions returns the engine defaults
func DefaultOptions() Options {
	return Options{
		Infer:           graph.DefaultInferOptions(),
		Revision:        revision.DefaultOptions(),
		HistoryCapacity: 300,
		CompactEvery:    256,
	}
}

// OptionsFromConfig maps the configuration onto engine options
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Infer: graph.InferOptions{PluralTolerant: cfg.Graph.PluralTolerant},
		Revision: revision.Options{
			Capacity:              cfg.Revision.Capacity,
			CompactEvery:          cfg.Persistence.CompactEvery,
			MinFallbackDifficulty: cfg.Revision.MinFallbackDifficulty,
		},
		HistoryCapacity: cfg.History.Capacity,
		CompactEvery:    cfg.Persistence.CompactEvery,
	}
}

// OpenBackend opens the persistence backend selected by cfg
func OpenBackend(cfg *config.Config) (storage.Backend, error) {
	switch cfg.Persistence.Backend {
	case "file":
		return storage.NewFileBackend(filepath.Join(cfg.DataDir, "state"), cfg.Persistence.SyncWrites)
	case "badger":
		bcfg := badgerstore.DefaultConfig(filepath.Join(cfg.DataDir, "badger"))
		bcfg.SyncWrites = cfg.Persistence.SyncWrites
		bcfg.GCInterval = cfg.Persistence.GCInterval
		return badgerstore.Open(bcfg)
	case "memory":
		return storage.NewMemoryBackend(), nil
	}
	return nil, fmt.Errorf("unknown persistence backend %q", cfg.Persistence.Backend)
}
