// Package config loads the engine's configuration from an optional
// ".lcid.kdl" file, with every key defaulted when the file or key is absent.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// StorageStrategy selects where a repository's index lives.
type StorageStrategy string

const (
	StrategyCentralized     StorageStrategy = "centralized"
	StrategyInlineWorkspace StorageStrategy = "inline-workspace"
)

// Config is the full set of engine configuration recognized from the KDL file.
type Config struct {
	IndexStorageRoot string          // default <user-config>/indexes
	StorageStrategy  StorageStrategy // default centralized

	MaxMemoryBytes    int64    // extractor registry budget, default 1 GiB
	PriorityLanguages []string // memory-resident languages

	WatcherDebounceMs int // default 250
	WorkerPoolSize    int // default min(NumCPU, 8)

	EnableSemantic      bool
	EmbeddingModel      string
	VectorStoreEndpoint string

	Include []string
	Exclude []string

	ProjectRoot string
}

const (
	DefaultMaxMemoryBytes    = 1 << 30 // 1 GiB
	DefaultWatcherDebounceMs = 250
	DefaultStorageStrategy   = StrategyCentralized
)

// Default returns a Config populated entirely with the defaults, rooted at
// projectRoot.
func Default(projectRoot string) *Config {
	return &Config{
		IndexStorageRoot:  defaultStorageRoot(),
		StorageStrategy:   DefaultStorageStrategy,
		MaxMemoryBytes:    DefaultMaxMemoryBytes,
		PriorityLanguages: []string{"go"},
		WatcherDebounceMs: DefaultWatcherDebounceMs,
		WorkerPoolSize:    defaultWorkerPoolSize(),
		EnableSemantic:    false,
		Include:           nil,
		Exclude:           defaultExclusions(),
		ProjectRoot:       projectRoot,
	}
}

func defaultWorkerPoolSize() int {
	n := runtime.NumCPU()
	if n > 8 {
		return 8
	}
	if n < 1 {
		return 1
	}
	return n
}

func defaultStorageRoot() string {
	if cfgDir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(cfgDir, "indexes")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".config", "indexes")
}

func defaultExclusions() []string {
	return []string{
		"**/.git/**",
		"**/node_modules/**",
		"**/vendor/**",
		"**/.indexes/**",
		"**/.mcp-index/**",
		"**/dist/**",
		"**/build/**",
	}
}

// Load reads ".lcid.kdl" from projectRoot if present, overlaying defaults;
// a missing file is not an error.
func Load(projectRoot string) (*Config, error) {
	cfg := Default(projectRoot)

	kdlPath := filepath.Join(projectRoot, ".lcid.kdl")
	content, err := os.ReadFile(kdlPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := applyKDL(cfg, string(content)); err != nil {
		return nil, err
	}
	if cfg.EnableSemantic && (cfg.EmbeddingModel == "" || cfg.VectorStoreEndpoint == "") {
		// embedding_model/vector_store_endpoint are required to actually turn semantic indexing on.
		cfg.EnableSemantic = false
	}
	return cfg, nil
}
