package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/danmuck/gpiolink/internal/line"
	"github.com/danmuck/gpiolink/internal/link"
	"github.com/pelletier/go-toml/v2"
)

// LinkConfig is the on-disk shape of a linkctl config file.
type LinkConfig struct {
	Node             string   `toml:"node"`
	Role             string   `toml:"role"`
	Pin              string   `toml:"pin"`
	Pull             string   `toml:"pull"`
	Simulate         bool     `toml:"simulate"`
	HTTPAddr         string   `toml:"http_addr"`
	CorsOrigins      []string `toml:"cors_origins"`
	CycleDelay       string   `toml:"cycle_delay"`
	AckTimeout       string   `toml:"ack_timeout"`
	BackpressurePoll string   `toml:"backpressure_poll"`
	LogLevel         string   `toml:"log_level"`
}

func LoadLinkConfig(path string) (LinkConfig, error) {
	var cfg LinkConfig
	if err := loadToml(path, &cfg); err != nil {
		return LinkConfig{}, err
	}
	if cfg.Node == "" {
		cfg.Node = "gpiolink"
	}
	if cfg.Role == "" {
		cfg.Role = "master"
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":9300"
	}
	if err := ValidateLinkConfig(cfg); err != nil {
		return LinkConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateLinkConfig(cfg LinkConfig) error {
	if strings.TrimSpace(cfg.Node) == "" {
		return fmt.Errorf("link config missing node")
	}
	if _, err := link.ParseRole(cfg.Role); err != nil {
		return fmt.Errorf("link config role: %w", err)
	}
	if strings.TrimSpace(cfg.HTTPAddr) == "" {
		return fmt.Errorf("link config missing http_addr")
	}
	if !cfg.Simulate && strings.TrimSpace(cfg.Pin) == "" {
		return fmt.Errorf("link config pin required unless simulate = true")
	}
	if _, err := line.ParsePull(cfg.Pull); err != nil {
		return fmt.Errorf("link config pull: %w", err)
	}
	durations := []struct {
		key string
		raw string
	}{
		{"cycle_delay", cfg.CycleDelay},
		{"ack_timeout", cfg.AckTimeout},
		{"backpressure_poll", cfg.BackpressurePoll},
	}
	for _, d := range durations {
		if _, err := ParseDuration(d.raw); err != nil {
			return fmt.Errorf("link config %s: %w", d.key, err)
		}
	}
	return nil
}

// ParseDuration accepts Go duration strings. An empty value means unset
// and parses as zero.
func ParseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return time.ParseDuration(raw)
}
