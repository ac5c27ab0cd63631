package core

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	manifest "github.com/joeydtaylor/steeze-kv/pkg/manifest"
	toml "github.com/pelletier/go-toml/v2"
)

const DefaultManifestPath = "manifest.toml"

// ManifestPath is KV_MANIFEST or manifest.toml.
func ManifestPath() string { return envOr("KV_MANIFEST", DefaultManifestPath) }

// LoadConfig reads the manifest at path, applies env overrides and validates.
// A missing file yields the built-in defaults.
func LoadConfig(path string) (manifest.Config, error) {
	var cfg manifest.Config
	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg = manifest.Default()
	case err != nil:
		return manifest.Config{}, err
	default:
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return manifest.Config{}, fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return manifest.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return manifest.Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *manifest.Config) error {
	cfg.Server.Listen = envOr("SERVER_LISTEN_ADDRESS", cfg.Server.Listen)
	cfg.Store.Path = envOr("KV_STORE_PATH", cfg.Store.Path)
	cfg.Store.ValueCodec = envOr("KV_VALUE_CODEC", cfg.Store.ValueCodec)
	n, err := envInt("KV_POOL_WORKERS", cfg.Pool.Workers)
	if err != nil {
		return err
	}
	cfg.Pool.Workers = n
	return nil
}
