// Package config loads the MindGraph configuration from a YAML file with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the full application configuration
type Config struct {
	// DataDir holds snapshots, journals and the SQLite database
	DataDir string `yaml:"data_dir" validate:"required"`

	// NotesDir is the folder of markdown notes
	NotesDir string `yaml:"notes_dir"`

	Log         LogConfig         `yaml:"log"`
	Graph       GraphConfig       `yaml:"graph"`
	Revision    RevisionConfig    `yaml:"revision"`
	History     HistoryConfig     `yaml:"history"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Store       StoreConfig       `yaml:"store"`
	Server      ServerConfig      `yaml:"server"`
}

type LogConfig struct {
	Level       string `yaml:"level" validate:"oneof=debug info warn error"`
	Development bool   `yaml:"development"`
}

type GraphConfig struct {
	// PluralTolerant matches keywords against titles differing by a trailing s/es
	PluralTolerant bool `yaml:"plural_tolerant"`
}

type RevisionConfig struct {
	Capacity              int `yaml:"capacity" validate:"gte=0"`
	MinFallbackDifficulty int `yaml:"min_fallback_difficulty" validate:"gte=1,lte=5"`

	// Fallback selects where notes come from when the study path is empty
	Fallback string `yaml:"fallback" validate:"oneof=notes store none"`
}

type HistoryConfig struct {
	// Capacity bounds navigation history, 0 for unbounded
	Capacity int `yaml:"capacity" validate:"gte=0"`
}

type PersistenceConfig struct {
	Backend      string        `yaml:"backend" validate:"oneof=file badger memory"`
	CompactEvery int           `yaml:"compact_every" validate:"gte=0"`
	SyncWrites   bool          `yaml:"sync_writes"`
	GCInterval   time.Duration `yaml:"gc_interval" validate:"gte=0"`
}

type StoreConfig struct {
	Driver  string        `yaml:"driver" validate:"oneof=sqlite neo4j notes"`
	SQLite  SQLiteConfig  `yaml:"sqlite"`
	Neo4j   Neo4jConfig   `yaml:"neo4j"`
	Breaker BreakerConfig `yaml:"breaker"`
}

type SQLiteConfig struct {
	// Path defaults to <data_dir>/mindgraph.db
	Path string `yaml:"path"`
}

type Neo4jConfig struct {
	URI      string `yaml:"uri"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

type BreakerConfig struct {
	MaxFailures uint32        `yaml:"max_failures" validate:"gte=1"`
	OpenTimeout time.Duration `yaml:"open_timeout" validate:"gt=0"`
}

type ServerConfig struct {
	Addr         string        `yaml:"addr" validate:"required"`
	ReadTimeout  time.Duration `yaml:"read_timeout" validate:"gt=0"`
	WriteTimeout time.Duration `yaml:"write_timeout" validate:"gt=0"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" validate:"gt=0"`
	WatchNotes   bool          `yaml:"watch_notes"`
}

// Default returns the configuration used when no file exists
func Default() *Config {
	dataDir := ".mindgraph"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".local", "share", "mindgraph")
	}
	return &Config{
		DataDir:  dataDir,
		NotesDir: "notes",
		Log: LogConfig{
			Level: "info",
		},
		Graph: GraphConfig{
			PluralTolerant: true,
		},
		Revision: RevisionConfig{
			MinFallbackDifficulty: 2,
			Fallback:              "notes",
		},
		History: HistoryConfig{
			Capacity: 300,
		},
		Persistence: PersistenceConfig{
			Backend:      "file",
			CompactEvery: 256,
			SyncWrites:   true,
			GCInterval:   5 * time.Minute,
		},
		Store: StoreConfig{
			Driver: "sqlite",
			Neo4j: Neo4jConfig{
				URI:      "bolt://localhost:7687",
				Username: "neo4j",
				Database: "neo4j",
			},
			Breaker: BreakerConfig{
				MaxFailures: 5,
				OpenTimeout: 30 * time.Second,
			},
		},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
			WatchNotes:   true,
		},
	}
}

// DefaultPath returns $MINDGRAPH_CONFIG or ~/.config/mindgraph/config.yaml
func DefaultPath() (string, error) {
	if p := os.Getenv("MINDGRAPH_CONFIG"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".config", "mindgraph", "config.yaml"), nil
}

// Load reads path over the defaults. A missing file is not an error.
// Environment overrides are applied before validation.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as YAML, creating the directory
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// SQLitePath returns the configured database path or the default under DataDir
func (c *Config) SQLitePath() string {
	if c.Store.SQLite.Path != "" {
		return c.Store.SQLite.Path
	}
	return filepath.Join(c.DataDir, "mindgraph.db")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (c *Config) applyEnv() error {
	c.DataDir = getEnv("MINDGRAPH_DATA_DIR", c.DataDir)
	c.NotesDir = getEnv("MINDGRAPH_NOTES_DIR", c.NotesDir)
	c.Log.Level = getEnv("MINDGRAPH_LOG_LEVEL", c.Log.Level)
	c.Persistence.Backend = getEnv("MINDGRAPH_BACKEND", c.Persistence.Backend)
	c.Store.Driver = getEnv("MINDGRAPH_STORE", c.Store.Driver)
	c.Store.SQLite.Path = getEnv("MINDGRAPH_SQLITE_PATH", c.Store.SQLite.Path)
	c.Store.Neo4j.URI = getEnv("NEO4J_URI", c.Store.Neo4j.URI)
	c.Store.Neo4j.Username = getEnv("NEO4J_USER", c.Store.Neo4j.Username)
	c.Store.Neo4j.Password = getEnv("NEO4J_PASSWORD", c.Store.Neo4j.Password)
	c.Store.Neo4j.Database = getEnv("NEO4J_DATABASE", c.Store.Neo4j.Database)
	c.Server.Addr = getEnv("MINDGRAPH_ADDR", c.Server.Addr)
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Addr = ":" + port
	}
	if v := os.Getenv("MINDGRAPH_HISTORY_CAPACITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MINDGRAPH_HISTORY_CAPACITY: %w", err)
		}
		c.History.Capacity = n
	}
	return nil
}

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New()
	// report yaml keys in errors
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks field constraints
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Store.Driver == "neo4j" && c.Store.Neo4j.URI == "" {
		return errors.New("invalid config: store.neo4j.uri is required for the neo4j driver")
	}
	return nil
}
