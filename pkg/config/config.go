// Package config loads process configuration from an optional YAML file and
// the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	// DBPath is the SQLite database file.
	DBPath string `yaml:"db_path" env:"YOMIDICT_DB" env-default:"yomidict.db"`
	// CacheDir holds extracted archive contents. Cleared on every startup;
	// defaults to <user cache dir>/yomidict when empty.
	CacheDir string `yaml:"cache_dir" env:"YOMIDICT_CACHE_DIR"`
	// BatchSize is the number of words committed per transaction during an
	// import.
	BatchSize int `yaml:"batch_size" env:"YOMIDICT_BATCH_SIZE" env-default:"100"`
	// Workers bounds how many shard files are processed at once.
	Workers int `yaml:"workers" env:"YOMIDICT_WORKERS" env-default:"4"`
}

// Load reads configuration from the given YAML file, or from the environment
// alone when path is empty.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env config: %w", err)
	}

	if cfg.CacheDir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("resolve user cache dir: %w", err)
		}
		cfg.CacheDir = filepath.Join(base, "yomidict")
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("batch_size must be positive, got %d", cfg.BatchSize)
	}
	if cfg.Workers <= 0 {
		return nil, fmt.Errorf("workers must be positive, got %d", cfg.Workers)
	}
	return &cfg, nil
}
