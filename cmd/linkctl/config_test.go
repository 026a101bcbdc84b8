package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danmuck/gpiolink/internal/config"
	"github.com/danmuck/gpiolink/internal/link"
	"periph.io/x/periph/conn/gpio"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadServiceConfigExample(t *testing.T) {
	cfg, err := loadServiceConfig("ex.config.toml")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Node != "gpiolink.local" {
		t.Fatalf("unexpected node: %q", cfg.Node)
	}
	if cfg.Role != link.RoleSlave {
		t.Fatalf("unexpected role: %v", cfg.Role)
	}
	if cfg.Pin != "GPIO27" || cfg.Pull != gpio.Float {
		t.Fatalf("unexpected pin config: %q %v", cfg.Pin, cfg.Pull)
	}
	if cfg.HTTPAddr != "127.0.0.1:9301" {
		t.Fatalf("unexpected http addr: %q", cfg.HTTPAddr)
	}
	if len(cfg.CorsOrigins) != 1 || cfg.CorsOrigins[0] != "http://localhost:3000" {
		t.Fatalf("unexpected cors origins: %+v", cfg.CorsOrigins)
	}
	if cfg.Session.CycleDelay != 20*time.Millisecond {
		t.Fatalf("unexpected cycle delay: %v", cfg.Session.CycleDelay)
	}
	if cfg.Session.AckWait() != 0 {
		t.Fatalf("negative ack_timeout must wait indefinitely, got %v", cfg.Session.AckWait())
	}
	if cfg.Session.BackpressurePoll != 2*time.Millisecond {
		t.Fatalf("unexpected backpressure poll: %v", cfg.Session.BackpressurePoll)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("unexpected log level: %q", cfg.LogLevel)
	}
}

func TestLoadServiceConfigDefaults(t *testing.T) {
	cfg, err := loadServiceConfig(writeConfig(t, "simulate = true\n"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	def := defaultServiceConfig()
	if cfg.Role != link.RoleMaster || cfg.HTTPAddr != def.HTTPAddr || cfg.Pull != gpio.PullUp {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Session.AckTimeout != 50*time.Millisecond || cfg.Session.CycleDelay != 10*time.Millisecond {
		t.Fatalf("unexpected session defaults: %+v", cfg.Session)
	}
}

func TestLoadServiceConfigErrors(t *testing.T) {
	cases := map[string]string{
		"bad duration": "simulate = true\ncycle_delay = \"abc\"\n",
		"bad role":     "simulate = true\nrole = \"observer\"\n",
		"bad pull":     "simulate = true\npull = \"sideways\"\n",
		"missing pin":  "role = \"master\"\n",
		"empty addr":   "simulate = true\nhttp_addr = \"\"\n",
	}
	for name, content := range cases {
		if _, err := loadServiceConfig(writeConfig(t, content)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadServiceConfigReadsGeneratedTemplates(t *testing.T) {
	for _, kind := range []string{"link", "sim"} {
		path := filepath.Join(t.TempDir(), kind+".toml")
		if err := config.WriteTemplate(path, kind, false); err != nil {
			t.Fatalf("write %s template: %v", kind, err)
		}
		shared, err := config.LoadLinkConfig(path)
		if err != nil {
			t.Fatalf("%s template rejected by config package: %v", kind, err)
		}
		cfg, err := loadServiceConfig(path)
		if err != nil {
			t.Fatalf("%s template rejected by linkctl: %v", kind, err)
		}
		if cfg.Node != shared.Node || cfg.Simulate != shared.Simulate || cfg.HTTPAddr != shared.HTTPAddr || cfg.Role.String() != shared.Role {
			t.Fatalf("%s template read differently: linkctl=%+v config=%+v", kind, cfg, shared)
		}
	}
}
