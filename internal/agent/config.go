package agent

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the desktop agent settings loaded from a YAML file.
type Config struct {
	BackendURL      string        `yaml:"backend_url"`
	AccessToken     string        `yaml:"access_token"`
	EngineCommand   []string      `yaml:"engine_command"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	StopGracePeriod time.Duration `yaml:"stop_grace_period"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		BackendURL:      "http://localhost:8080",
		PollInterval:    5 * time.Second,
		StopGracePeriod: 3 * time.Second,
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.AccessToken == "" {
		return fmt.Errorf("access_token is required")
	}
	if len(c.EngineCommand) == 0 {
		return fmt.Errorf("engine_command is required")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	if c.StopGracePeriod <= 0 {
		return fmt.Errorf("stop_grace_period must be positive")
	}
	return nil
}
