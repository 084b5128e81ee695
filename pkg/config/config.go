// Package config holds the shim's configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config selects the backend and the routing parameters.
type Config struct {
	// Prefix is the first path component that routes to the async
	// backend.
	Prefix string `yaml:"prefix"`
	// FDBase is the first descriptor number the backend issues; the
	// fallback uses the host range below it.
	FDBase int64 `yaml:"fd_base"`
	// Root is the directory the fallback filesystem is rooted at.
	// Empty means fallback paths are used as given.
	Root string `yaml:"root"`
	// Backend is "mem" or "s3".
	Backend string `yaml:"backend"`

	S3 S3Config `yaml:"s3"`
}

// S3Config configures the object-store backend.
type S3Config struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
	Region string `yaml:"region"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Prefix:  "persistent",
		FDBase:  1 << 20,
		Backend: "mem",
	}
}

// Load reads a configuration file, filling unset fields from Default.
func Load(path string) (*Config, error) {
	conf := Default()
	r, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(conf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// Validate rejects configurations the dispatcher cannot route on.
func (c *Config) Validate() error {
	if c.Prefix == "" {
		return fmt.Errorf("prefix must not be empty")
	}
	if c.FDBase <= 0 {
		return fmt.Errorf("fd_base must be positive")
	}
	switch c.Backend {
	case "mem":
	case "s3":
		if c.S3.Bucket == "" {
			return fmt.Errorf("s3 backend requires a bucket")
		}
	default:
		return fmt.Errorf("unknown backend: %s", c.Backend)
	}
	return nil
}
