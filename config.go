package framegraph

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config holds settings shared by the graph, the transient pool and tools.
//
// Example framegraph.toml:
//
//	backend = "wgpu"
//	debug_names = true
//	capture = "frame.fgcap"
//
//	[pool]
//	max_age = 3
//	budget_mb = 256
type Config struct {
	// Backend is the registered backend name tools should open. Empty
	// selects the default backend.
	Backend string `toml:"backend"`

	// DebugNames tags transient objects with their resource names.
	DebugNames bool `toml:"debug_names"`

	// Capture is the path a recording capture is written to. Empty
	// disables capture.
	Capture string `toml:"capture"`

	Pool PoolConfig `toml:"pool"`
}

// PoolConfig configures transient resource recycling.
type PoolConfig struct {
	// MaxAge is the number of frames an unused object is kept before it is
	// released.
	MaxAge uint64 `toml:"max_age"`

	// BudgetMB is the soft memory budget of the pool in megabytes. Zero
	// disables the budget.
	BudgetMB uint64 `toml:"budget_mb"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Pool: PoolConfig{
			MaxAge:   3,
			BudgetMB: 256,
		},
	}
}

// LoadConfig reads a TOML configuration file. Missing keys keep their
// DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("framegraph: load config: %w", err)
	}
	return ParseConfig(bytes.NewReader(data))
}

// ParseConfig decodes a TOML configuration. Unknown keys are rejected.
func ParseConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("framegraph: parse config: %w", err)
	}
	return cfg, nil
}
