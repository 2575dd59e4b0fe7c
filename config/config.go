// Package config loads the TOML file that describes a single varlink
// service: its self-description fields and the interfaces it serves.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// ServiceConfig is the on-disk description of a service.
type ServiceConfig struct {
	Vendor  string `toml:"vendor"`
	Product string `toml:"product"`
	Version string `toml:"version"`
	URL     string `toml:"url"`

	// Listen is a transport address as parsed by package transport,
	// e.g. "unix:/run/example.sock" or "tcp:127.0.0.1:9999".
	Listen string `toml:"listen"`

	// Interfaces lists the paths to the .varlink files this service
	// implements, in the order they should be registered.
	Interfaces []string `toml:"interfaces"`
}

// Load reads and decodes the TOML file at path.
func Load(path string) (*ServiceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var c ServiceConfig
	if _, err := toml.Decode(string(data), &c); err != nil {
		return nil, fmt.Errorf("config: decoding %s: %w", path, err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &c, nil
}

func (c *ServiceConfig) validate() error {
	if c.Vendor == "" {
		return fmt.Errorf("vendor is required")
	}
	if c.Product == "" {
		return fmt.Errorf("product is required")
	}
	if c.Version == "" {
		return fmt.Errorf("version is required")
	}
	if c.Listen == "" {
		return fmt.Errorf("listen is required")
	}
	if len(c.Interfaces) == 0 {
		return fmt.Errorf("at least one interface is required")
	}
	return nil
}
