package world

import (
	"encoding/json"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/helix-engine/helix/internal/core/memory"
)

// Config describes one simulation world. It is read once at construction;
// later changes to the struct have no effect.
type Config struct {
	// Name identifies the world in logs.
	Name string `json:"name" yaml:"name"`
	// InitialEntityCapacity pre-sizes the entity table.
	InitialEntityCapacity int `json:"initial_entity_capacity" yaml:"initial_entity_capacity"`
	// ComponentPoolSize bounds each per-type component recycle pool.
	ComponentPoolSize int `json:"component_pool_size" yaml:"component_pool_size"`
	// TickDeadline bounds parallel work inside one tick; zero disables it.
	TickDeadline time.Duration `json:"tick_deadline,omitempty" yaml:"tick_deadline,omitempty"`
	// Memory configures the chunked component allocator.
	Memory memory.PoolConfig `json:"memory" yaml:"memory"`
	// LogLevel selects the world logger verbosity (debug, info, warn, error).
	LogLevel string `json:"log_level,omitempty" yaml:"log_level,omitempty"`
}

// DefaultConfig returns a configuration suitable for tests and small
// simulations.
func DefaultConfig() Config {
	return Config{
		Name:                  "world",
		InitialEntityCapacity: 1024,
		ComponentPoolSize:     256,
		Memory:                memory.DefaultPoolConfig(),
	}
}

// LoadJSON loads a world config from a JSON reader, applied over defaults.
func LoadJSON(r io.Reader) (Config, error) {
	c := DefaultConfig()
	dec := json.NewDecoder(r)
	if err := dec.Decode(&c); err != nil {
		return Config{}, err
	}
	return c.normalized(), nil
}

// LoadYAML loads a world config from a YAML reader, applied over defaults.
func LoadYAML(r io.Reader) (Config, error) {
	c := DefaultConfig()
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&c); err != nil {
		return Config{}, err
	}
	return c.normalized(), nil
}

func (c Config) normalized() Config {
	if c.Name == "" {
		c.Name = "world"
	}
	if c.InitialEntityCapacity <= 0 {
		c.InitialEntityCapacity = 1024
	}
	if c.ComponentPoolSize <= 0 {
		c.ComponentPoolSize = 256
	}
	return c
}
