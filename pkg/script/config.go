package script

import (
	"encoding/json"
	"fmt"
	"time"
)

// Security levels for script execution
const (
	SecurityLevelStrict     = "strict"
	SecurityLevelStandard   = "standard"
	SecurityLevelPermissive = "permissive"
)

// Config represents the configuration of an Evaluator
type Config struct {
	// Timeout is the maximum execution time of a single evaluation
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// SecurityLevel defines security restrictions (strict, standard, permissive)
	SecurityLevel string `json:"security_level,omitempty" yaml:"security_level,omitempty"`

	// EnabledUtilities lists utility modules to install (console, json, encoding).
	// The flow signals are always installed.
	EnabledUtilities []string `json:"enabled_utilities,omitempty" yaml:"enabled_utilities,omitempty"`

	// MaxStackDepth is the maximum call stack depth
	MaxStackDepth int `json:"max_stack_depth,omitempty" yaml:"max_stack_depth,omitempty"`
}

// DefaultConfig returns a standard-level configuration with defaults applied
func DefaultConfig() Config {
	var c Config
	c.ApplyDefaults()
	return c
}

// ApplyDefaults sets default values for configuration fields
func (c *Config) ApplyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 5 * time.Second
	}
	if c.SecurityLevel == "" {
		c.SecurityLevel = SecurityLevelStandard
	}
	if c.EnabledUtilities == nil {
		c.EnabledUtilities = DefaultUtilitiesByLevel[c.SecurityLevel]
	}
	if c.MaxStackDepth == 0 {
		c.MaxStackDepth = 100
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.SecurityLevel != SecurityLevelStrict &&
		c.SecurityLevel != SecurityLevelStandard &&
		c.SecurityLevel != SecurityLevelPermissive {
		return fmt.Errorf("invalid security level: %s", c.SecurityLevel)
	}
	if c.MaxStackDepth <= 0 {
		return fmt.Errorf("max_stack_depth must be positive")
	}
	return nil
}

// DefaultUtilitiesByLevel defines default utilities for each security level
var DefaultUtilitiesByLevel = map[string][]string{
	SecurityLevelStrict:     {"json"},
	SecurityLevelStandard:   {"console", "json", "encoding"},
	SecurityLevelPermissive: {"console", "json", "encoding"},
}

// UnmarshalJSON accepts the timeout either as a duration string or as nanoseconds
func (c *Config) UnmarshalJSON(data []byte) error {
	type Alias Config
	aux := &struct {
		Timeout any `json:"timeout,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(c),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	switch v := aux.Timeout.(type) {
	case nil:
	case string:
		duration, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid timeout format: %w", err)
		}
		c.Timeout = duration
	case float64:
		c.Timeout = time.Duration(v)
	default:
		return fmt.Errorf("invalid timeout format: %v", v)
	}

	return nil
}
