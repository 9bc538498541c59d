package config

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Env               string
	ListenAddr        string
	DatabaseURL       string
	AccessTokens      map[string]string
	AnalysisInterval  time.Duration
	BroadcastThrottle time.Duration
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	if len(c.AccessTokens) == 0 {
		return fmt.Errorf("ACCESS_TOKENS is required")
	}
	for token, userID := range c.AccessTokens {
		if strings.TrimSpace(token) == "" || strings.TrimSpace(userID) == "" {
			return fmt.Errorf("ACCESS_TOKENS contains an empty token or user id")
		}
	}
	if c.AnalysisInterval <= 0 {
		return fmt.Errorf("ANALYSIS_INTERVAL_SECONDS must be positive, got %s", c.AnalysisInterval)
	}
	if c.BroadcastThrottle < 0 {
		return fmt.Errorf("BROADCAST_THROTTLE_MS must not be negative, got %s", c.BroadcastThrottle)
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "LISTEN_ADDR", value: c.ListenAddr},
		{name: "DATABASE_URL", value: c.DatabaseURL},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
