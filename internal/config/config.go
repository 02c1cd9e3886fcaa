// Package config defines the Kernel's configuration file shape (spec
// §4.6/§6) and loads it with github.com/spf13/viper, the way the teacher's
// internal/config package loads its own YAML config. The spec's file is a
// JSON document instead of YAML, but the loader otherwise follows the
// teacher's shape closely: mapstructure-tagged struct, env-var overrides,
// a Validate method the caller runs after Load.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// PluginSpec is one entry of data_sources[], algorithms[], or
// execution_engines[] (spec §4.6).
type PluginSpec struct {
	Name   string         `mapstructure:"name"`
	File   string         `mapstructure:"file"`
	Params map[string]any `mapstructure:"params"`

	// Required marks a plugin whose load/init failure is fatal for the
	// Kernel (spec §6: "exit code 2, ≥ 1 required plugin failed to
	// load"). A spec entry with Required unset tolerates the usual
	// log-and-skip behavior for plugin load/init failures (spec §7).
	Required bool `mapstructure:"required"`
}

// Metadata holds the four queue capacities (spec §4.6).
type Metadata struct {
	L2BroadcastBuffer int `mapstructure:"l2_broadcast_buffer"`
	MetricsBuffer     int `mapstructure:"metrics_buffer"`
	OrderBuffer       int `mapstructure:"order_buffer"`
	FillBuffer        int `mapstructure:"fill_buffer"`
}

// Config is the top-level configuration tree (spec §4.6). Unknown keys in
// the file are ignored, per spec §6.
type Config struct {
	Metadata         Metadata     `mapstructure:"metadata"`
	DataSources      []PluginSpec `mapstructure:"data_sources"`
	Algorithms       []PluginSpec `mapstructure:"algorithms"`
	ExecutionEngines []PluginSpec `mapstructure:"execution_engines"`
}

// envPrefix is the prefix viper uses for env-var overrides, e.g.
// NUMERI_METADATA_ORDER_BUFFER overrides metadata.order_buffer.
const envPrefix = "NUMERI"

// Load reads the JSON config at path, applying NUMERI_* env overrides on
// top of it (spec §6's NUMERI_CONFIG_PATH names the file itself; this
// prefix covers the ambient override convention the teacher's config
// package uses for every other knob).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the shape Load cannot express on its own: buffer
// capacities of at least 2, and that every plugin spec has a name and a
// file.
func (c *Config) Validate() error {
	// internal/queue wraps lfq.NewMPMC, which panics below capacity 2
	// (hayabusa-cloud-lfq's SCQ core needs room for at least one producer
	// and one consumer slot), so a capacity of 1 is rejected here rather
	// than accepted and left to panic the process inside Kernel.Start.
	if c.Metadata.L2BroadcastBuffer < 2 {
		return fmt.Errorf("metadata.l2_broadcast_buffer must be >= 2")
	}
	if c.Metadata.MetricsBuffer < 2 {
		return fmt.Errorf("metadata.metrics_buffer must be >= 2")
	}
	if c.Metadata.OrderBuffer < 2 {
		return fmt.Errorf("metadata.order_buffer must be >= 2")
	}
	if c.Metadata.FillBuffer < 2 {
		return fmt.Errorf("metadata.fill_buffer must be >= 2")
	}
	for _, group := range [][]PluginSpec{c.DataSources, c.Algorithms, c.ExecutionEngines} {
		for _, spec := range group {
			if spec.Name == "" {
				return fmt.Errorf("plugin spec missing name")
			}
			if spec.File == "" {
				return fmt.Errorf("plugin spec %q missing file", spec.Name)
			}
		}
	}
	return nil
}

// configPathEnv is the environment variable spec §6 names for the config
// file's location.
const configPathEnv = "NUMERI_CONFIG_PATH"

// PathFromEnv returns the config file path from NUMERI_CONFIG_PATH, or an
// error if it is unset.
func PathFromEnv() (string, error) {
	path := os.Getenv(configPathEnv)
	if path == "" {
		return "", fmt.Errorf("%s is not set", configPathEnv)
	}
	return path, nil
}
