package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/focuslab/focusguard/internal/config"
)

type envConfig struct {
	Env                     string `env:"ENV" envDefault:"production"`
	ListenAddr              string `env:"LISTEN_ADDR" envDefault:":8080"`
	DatabaseURL             string `env:"DATABASE_URL,required"`
	AccessTokens            string `env:"ACCESS_TOKENS,required"`
	AnalysisIntervalSeconds int    `env:"ANALYSIS_INTERVAL_SECONDS" envDefault:"5"`
	BroadcastThrottleMS     int    `env:"BROADCAST_THROTTLE_MS" envDefault:"100"`
}

func Load() (*internalconfig.Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	tokens, err := parseAccessTokens(raw.AccessTokens)
	if err != nil {
		return nil, err
	}

	cfg := &internalconfig.Config{
		Env:               raw.Env,
		ListenAddr:        raw.ListenAddr,
		DatabaseURL:       raw.DatabaseURL,
		AccessTokens:      tokens,
		AnalysisInterval:  time.Duration(raw.AnalysisIntervalSeconds) * time.Second,
		BroadcastThrottle: time.Duration(raw.BroadcastThrottleMS) * time.Millisecond,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseAccessTokens reads "token:userID" pairs separated by commas.
func parseAccessTokens(raw string) (map[string]string, error) {
	tokens := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		token, userID, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("ACCESS_TOKENS entry %q is not in token:user_id form", pair)
		}
		tokens[token] = userID
	}
	return tokens, nil
}
