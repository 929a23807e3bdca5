// Package pipeline orchestrates the training path: reduce every
// history file for a game map, merge legacy archives, assemble the
// dataset. Each log is reduced in isolation; a failing log is skipped,
// never the batch.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// GameMapID prefixes history and legacy file names (e.g. "india").
	GameMapID string `yaml:"game_map_id"`

	HistoryDir  string `yaml:"history_dir"`
	LegacyDir   string `yaml:"legacy_dir,omitempty"`
	DatasetPath string `yaml:"dataset_path,omitempty"`
	IndexDBPath string `yaml:"index_db_path,omitempty"`

	// Workers caps concurrent log reductions. Order within one log is
	// never parallelized.
	Workers int `yaml:"workers"`

	ObjectStore ObjectStoreSpec `yaml:"object_store,omitempty"`
	Serving     ServingSpec     `yaml:"serving,omitempty"`
}

type ObjectStoreSpec struct {
	Enabled         bool   `yaml:"enabled"`
	Endpoint        string `yaml:"endpoint"`
	Bucket          string `yaml:"bucket"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Prefix          string `yaml:"prefix,omitempty"`
	UploadWorkers   int    `yaml:"upload_workers,omitempty"`
}

type ServingSpec struct {
	BaseURL string `yaml:"base_url"`
}

func defaults() Config {
	return Config{
		HistoryDir: "./data/history",
		Workers:    4,
	}
}

// Load reads a pipeline config file; a blank path yields defaults.
func Load(path string) (Config, error) {
	cfg := defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("pipeline.yaml: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) Normalize() {
	c.GameMapID = strings.TrimSpace(c.GameMapID)
	c.HistoryDir = strings.TrimSpace(c.HistoryDir)
	c.LegacyDir = strings.TrimSpace(c.LegacyDir)
	if c.Workers <= 0 {
		c.Workers = defaults().Workers
	}
	if c.DatasetPath == "" && c.GameMapID != "" {
		c.DatasetPath = filepath.Join("data", "datasets", c.GameMapID+".csv")
	}
	if c.ObjectStore.UploadWorkers <= 0 {
		c.ObjectStore.UploadWorkers = 2
	}
}

func (c *Config) Validate() error {
	if c.GameMapID == "" {
		return fmt.Errorf("game_map_id is required")
	}
	if c.HistoryDir == "" {
		return fmt.Errorf("history_dir is required")
	}
	if c.ObjectStore.Enabled {
		o := c.ObjectStore
		if o.Endpoint == "" || o.Bucket == "" || o.AccessKeyID == "" || o.SecretAccessKey == "" {
			return fmt.Errorf("object_store enabled but endpoint/bucket/access_key_id/secret_access_key are not fully set")
		}
	}
	return nil
}
