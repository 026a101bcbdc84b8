package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/gpiolink/internal/config"
	"github.com/danmuck/gpiolink/internal/line"
	"github.com/danmuck/gpiolink/internal/link"
	"github.com/danmuck/gpiolink/internal/protocol/session"
	"periph.io/x/periph/conn/gpio"
)

type serviceConfig struct {
	Node        string
	Role        link.Role
	Pin         string
	Pull        gpio.Pull
	Simulate    bool
	HTTPAddr    string
	CorsOrigins []string
	LogLevel    string
	Session     session.Config
}

func defaultServiceConfig() serviceConfig {
	return serviceConfig{
		Node:     "gpiolink",
		Role:     link.RoleMaster,
		Pull:     gpio.PullUp,
		HTTPAddr: ":9300",
		Session:  session.DefaultConfig(),
	}
}

func loadServiceConfig(path string) (serviceConfig, error) {
	cfg := defaultServiceConfig()

	var raw config.LinkConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return serviceConfig{}, fmt.Errorf("load linkctl config: %w", err)
	}

	if meta.IsDefined("node") {
		if node := strings.TrimSpace(raw.Node); node != "" {
			cfg.Node = node
		}
	}

	if meta.IsDefined("role") {
		role, err := link.ParseRole(raw.Role)
		if err != nil {
			return serviceConfig{}, fmt.Errorf("parse role: %w", err)
		}
		cfg.Role = role
	}

	if meta.IsDefined("pin") {
		cfg.Pin = strings.TrimSpace(raw.Pin)
	}

	if meta.IsDefined("pull") {
		pull, err := line.ParsePull(raw.Pull)
		if err != nil {
			return serviceConfig{}, fmt.Errorf("parse pull: %w", err)
		}
		cfg.Pull = pull
	}

	if meta.IsDefined("simulate") {
		cfg.Simulate = raw.Simulate
	}

	if meta.IsDefined("http_addr") {
		cfg.HTTPAddr = strings.TrimSpace(raw.HTTPAddr)
	}

	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = normalizeList(raw.CorsOrigins)
	}

	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"cycle_delay", raw.CycleDelay, &cfg.Session.CycleDelay},
		{"ack_timeout", raw.AckTimeout, &cfg.Session.AckTimeout},
		{"backpressure_poll", raw.BackpressurePoll, &cfg.Session.BackpressurePoll},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return serviceConfig{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if !cfg.Simulate && cfg.Pin == "" {
		return serviceConfig{}, fmt.Errorf("pin is required unless simulate = true")
	}
	if cfg.HTTPAddr == "" {
		return serviceConfig{}, fmt.Errorf("http_addr must not be empty")
	}
	return cfg, nil
}

func normalizeList(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
