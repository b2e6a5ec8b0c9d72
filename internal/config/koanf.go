// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/animerec/config.yaml",
	"/etc/animerec/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Load reads configuration from layered sources:
//  1. Defaults: defaultConfig()
//  2. Config File: optional YAML file (CONFIG_PATH or DefaultConfigPaths)
//  3. Environment Variables: the names listed in envMappings
//
// The result is validated before it is returned.
func Load() (*Config, error) {
	return load(findConfigFile())
}

// LoadFile is Load with an explicit config file path. An empty path skips
// the file layer.
func LoadFile(path string) (*Config, error) {
	return load(path)
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// HTTP_PORT -> server.port, TRAIN_NCF_EPOCHS -> training.models.ncf.epochs
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	// One rating scale governs serving and training.
	cfg.Training.Scale = cfg.Recommend.Scale

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices.
var sliceConfigPaths = []string{
	"server.cors_origins",
	"scheduler.models",
	"training.models.ncf.layers",
}

// processSliceFields splits comma-separated env values of slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lower-cased) to config paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	// Server
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"cors_origins":          "server.cors_origins",
	"rate_limit_requests":   "server.rate_limit_reqs",
	"rate_limit_window":     "server.rate_limit_window",
	"disable_rate_limit":    "server.rate_limit_disabled",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Database
	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",
	"seed_demo_data":    "database.seed_demo_data",

	// Storage
	"model_dir": "storage.model_dir",
	"jobs_dir":  "storage.jobs_dir",

	// Events
	"events_topic": "events.topic",
	"nats_url":     "events.nats_url",

	// Serving
	"rating_min":                    "recommend.scale.min",
	"rating_max":                    "recommend.scale.max",
	"recommend_default_n":           "recommend.limits.default_n",
	"recommend_max_n":               "recommend.limits.max_n",
	"recommend_cache_enabled":       "recommend.cache.enabled",
	"recommend_cache_ttl":           "recommend.cache.ttl",
	"recommend_cache_max_entries":   "recommend.cache.max_entries",
	"recommend_popularity_fallback": "recommend.popularity_fallback",
	"recommend_default_model":       "recommend.default_model",

	// Training
	"train_test_ratio":           "training.split.test_ratio",
	"train_min_ratings":          "training.split.min_ratings",
	"train_seed":                 "training.split.seed",
	"train_eval_k":               "training.evaluation.k",
	"train_relevance_threshold":  "training.evaluation.relevance_threshold",
	"train_keep_versions":        "training.keep_versions",
	"train_activate":             "training.activate_on_complete",
	"train_timeout":              "training.timeout",
	"train_user_knn_k":           "training.models.user_knn.k",
	"train_user_knn_metric":      "training.models.user_knn.metric",
	"train_item_knn_k":           "training.models.item_knn.k",
	"train_item_knn_metric":      "training.models.item_knn.metric",
	"train_item_knn_min_ratings": "training.models.item_knn.min_ratings",
	"train_ncf_embedding_dim":    "training.models.ncf.embedding_dim",
	"train_ncf_layers":           "training.models.ncf.layers",
	"train_ncf_dropout":          "training.models.ncf.dropout",
	"train_ncf_learning_rate":    "training.models.ncf.learning_rate",
	"train_ncf_batch_size":       "training.models.ncf.batch_size",
	"train_ncf_epochs":           "training.models.ncf.epochs",

	// Circuit breaker around rating loads
	"breaker_failure_threshold": "breaker.failure_threshold",
	"breaker_timeout":           "breaker.timeout",

	// Scheduler
	"retrain_enabled":    "scheduler.enabled",
	"retrain_interval":   "scheduler.interval",
	"retrain_on_startup": "scheduler.train_on_startup",
	"retrain_models":     "scheduler.models",
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
