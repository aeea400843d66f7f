package config

import (
	"fmt"
)

// Validate checks that all configuration values are within acceptable
// ranges. Returns an error describing the first validation failure found.
func (c *Config) Validate() error {
	if err := c.Target.Validate(); err != nil {
		return fmt.Errorf("target config: %w", err)
	}
	if err := c.Gamer.Validate(); err != nil {
		return fmt.Errorf("gamer config: %w", err)
	}
	if err := c.RTMPS.Validate(); err != nil {
		return fmt.Errorf("rtmps config: %w", err)
	}
	if err := c.Coordinator.Validate(); err != nil {
		return fmt.Errorf("coordinator config: %w", err)
	}
	return nil
}

// Validate checks the publish target.
func (t *TargetConfig) Validate() error {
	if t.URL == "" {
		return fmt.Errorf("url is required")
	}
	return nil
}

// Validate checks gamer-mode tuning values.
func (g *GamerConfig) Validate() error {
	if !g.Enabled {
		return nil
	}
	if g.TickIntervalMS <= 0 {
		return fmt.Errorf("tick_interval_ms must be positive, got %d", g.TickIntervalMS)
	}
	if g.ReleaseMultiplier <= 1.0 {
		return fmt.Errorf("release_multiplier must be greater than 1.0, got %f", g.ReleaseMultiplier)
	}
	if g.MaxBufferBytes <= 0 {
		return fmt.Errorf("max_buffer_bytes must be positive, got %d", g.MaxBufferBytes)
	}
	return nil
}

// Validate checks RTMPS client certificate settings.
func (r *RTMPSConfig) Validate() error {
	if !r.Enabled {
		return nil
	}
	if r.CertFile == "" || r.KeyFile == "" {
		return fmt.Errorf("cert_file and key_file are required when rtmps is enabled")
	}
	if r.ReloadIntervalMS <= 0 {
		return fmt.Errorf("reload_interval_ms must be positive, got %d", r.ReloadIntervalMS)
	}
	return nil
}

// Validate checks the redis cross-process coordinator settings.
func (c *CoordinatorConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.RedisAddr == "" {
		return fmt.Errorf("redis_addr is required when coordinator is enabled")
	}
	return nil
}
