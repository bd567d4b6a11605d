// Package config loads the gazectl YAML configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/wolfeidau/gazerecorder/internal/filter"
	"github.com/wolfeidau/gazerecorder/internal/recorder"
	"github.com/wolfeidau/gazerecorder/internal/store"
	"github.com/wolfeidau/gazerecorder/internal/store/postgres"
	"github.com/wolfeidau/gazerecorder/internal/tracking"
	"gopkg.in/yaml.v3"
)

// DefaultAppID tags sessions when no app id is configured.
const DefaultAppID = "gazectl"

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// DefaultStorePath is the SQLite database used when none is configured.
const DefaultStorePath = "gaze.db"

// Config is the on-disk configuration. Every field is optional.
//
// Example:
//
//	appID: com.example.reader
//	signals: [eyeBlinkLeft, eyeBlinkRight, jawOpen]
//	smoothingFactor: 0.85
//	pointer:
//	  orientations:
//	    landscapeLeft: {factorX: 0.5, factorY: 0.5, signX: 1, signY: -1}
//	store:
//	  driver: sqlite
//	  path: gaze.db
//	  retry:
//	    maxTries: 5
//	    initialInterval: 20ms
type Config struct {
	AppID           string        `yaml:"appID"`
	Signals         []string      `yaml:"signals"`
	SmoothingFactor float64       `yaml:"smoothingFactor"`
	Pointer         PointerConfig `yaml:"pointer"`
	Store           StoreConfig   `yaml:"store"`
}

// PointerConfig overrides the live pointer calibration.
type PointerConfig struct {
	// Fallback applies to orientations without an entry. Defaults to the
	// portrait calibration.
	Fallback *tracking.Adjustment `yaml:"fallback"`

	// Orientations is keyed by orientation name, e.g. "landscapeLeft".
	Orientations map[string]tracking.Adjustment `yaml:"orientations"`
}

type StoreConfig struct {
	// Driver is one of sqlite, memory or postgres.
	// Default: sqlite
	Driver string `yaml:"driver"`

	// Path is the SQLite database file.
	// Default: gaze.db
	Path string `yaml:"path"`

	Postgres postgres.PoolConfig `yaml:"postgres"`
	Retry    store.RetryConfig   `yaml:"retry"`
}

// Load reads a configuration file. A missing path returns defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if cfg, err = Parse(data); err != nil {
			return nil, err
		}
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// Parse decodes YAML configuration. Unknown keys are rejected so typos do
// not silently fall back to defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// ApplyDefaults applies default values to unset configuration fields.
func (c *Config) ApplyDefaults() {
	if c.AppID == "" {
		c.AppID = DefaultAppID
	}
	if c.SmoothingFactor == 0 {
		c.SmoothingFactor = filter.DefaultFactor
	}
	if c.Store.Driver == "" {
		c.Store.Driver = DriverSQLite
	}
	if c.Store.Driver == DriverSQLite && c.Store.Path == "" {
		c.Store.Path = DefaultStorePath
	}
	c.Store.Retry.ApplyDefaults()
	if c.Store.Driver == DriverPostgres {
		c.Store.Postgres.ApplyDefaults()
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if _, err := c.PointerPolicy(); err != nil {
		return err
	}
	rc := c.Recorder()
	if err := rc.Validate(); err != nil {
		return err
	}
	if err := c.Store.Retry.Validate(); err != nil {
		return fmt.Errorf("invalid retry config: %w", err)
	}

	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store path is required for the sqlite driver")
		}
	case DriverMemory:
	case DriverPostgres:
		if err := c.Store.Postgres.Validate(); err != nil {
			return fmt.Errorf("invalid postgres config: %w", err)
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	return nil
}

// PointerPolicy builds the live pointer policy from the overrides.
func (c *Config) PointerPolicy() (*tracking.PointerPolicy, error) {
	policy := tracking.DefaultPointerPolicy()
	if c.Pointer.Fallback == nil && len(c.Pointer.Orientations) == 0 {
		return policy, nil
	}

	fallback := tracking.PortraitAdjustment
	if c.Pointer.Fallback != nil {
		fallback = *c.Pointer.Fallback
	}

	entries := map[tracking.Orientation]tracking.Adjustment{
		tracking.OrientationPortrait: tracking.PortraitAdjustment,
	}
	for name, adj := range c.Pointer.Orientations {
		o, err := tracking.ParseOrientation(name)
		if err != nil {
			return nil, fmt.Errorf("invalid pointer config: %w", err)
		}
		entries[o] = adj
	}
	return tracking.NewPointerPolicy(fallback, entries), nil
}

// Recorder returns the recorder configuration. Call Validate first; an
// invalid pointer override falls back to the default policy here.
func (c *Config) Recorder() recorder.Config {
	policy, err := c.PointerPolicy()
	if err != nil {
		policy = tracking.DefaultPointerPolicy()
	}
	return recorder.Config{
		AppID:           c.AppID,
		Signals:         append([]string(nil), c.Signals...),
		SmoothingFactor: c.SmoothingFactor,
		PointerPolicy:   policy,
	}
}
