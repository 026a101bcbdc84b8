package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "link":
		return linkTemplate, nil
	case "sim", "simulate":
		return simTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const linkTemplate = `node = "gpiolink"
role = "master"
pin = "GPIO17"
pull = "up"
simulate = false
http_addr = ":9300"
cors_origins = ["http://localhost:3000"]
cycle_delay = "10ms"
ack_timeout = "50ms"
backpressure_poll = "1ms"
log_level = "info"
`

const simTemplate = `node = "gpiolink-sim"
role = "master"
simulate = true
http_addr = "127.0.0.1:9300"
cors_origins = ["http://localhost:3000"]
log_level = "debug"
`
