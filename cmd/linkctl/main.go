package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/gpiolink/internal/line"
	"github.com/danmuck/gpiolink/internal/link"
	"github.com/danmuck/gpiolink/internal/logging"
	"github.com/danmuck/gpiolink/internal/observability"
	"github.com/danmuck/gpiolink/internal/server"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "cmd/linkctl/config.toml", "path to linkctl config")
	flag.Parse()

	logging.ConfigureRuntime()
	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "linkctl: %v\n", err)
		os.Exit(1)
	}
}

func run(path string) error {
	cfg, err := loadServiceConfig(path)
	if err != nil {
		return err
	}
	if cfg.LogLevel != "" && !logging.SetLevel(cfg.LogLevel) {
		log.Warn().Str("log_level", cfg.LogLevel).Msg("unknown log level, keeping default")
	}
	observability.RegisterMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events := server.NewEventHub()
	l, release, err := buildLink(cfg, events)
	if err != nil {
		return err
	}
	defer release()

	if err := l.Start(cfg.Role); err != nil {
		return err
	}
	defer func() {
		if err := l.Stop(); err != nil {
			log.Warn().Err(err).Msg("stop session")
		}
	}()
	log.Info().
		Str("node", cfg.Node).
		Str("role", cfg.Role.String()).
		Bool("simulate", cfg.Simulate).
		Str("pin", cfg.Pin).
		Msg("link session started")

	srv := server.New(cfg.Node, cfg.HTTPAddr, cfg.CorsOrigins, l, events)
	return srv.Serve(ctx)
}

// buildLink opens the configured GPIO pin, or a simulated wire with an echo
// peer, and returns a func that tears the line down.
func buildLink(cfg serviceConfig, notifier link.Notifier) (*link.Link, func(), error) {
	if cfg.Simulate {
		pin, peer, err := startSimulatedPeer(cfg)
		if err != nil {
			return nil, nil, err
		}
		l := link.New(pin, pin, cfg.Session, link.WithNotifier(notifier))
		return l, func() {
			peer.Close()
			pin.Detach()
		}, nil
	}

	gl, err := line.OpenGPIOLine(cfg.Pin, cfg.Pull)
	if err != nil {
		return nil, nil, err
	}
	l := link.New(gl, line.NewSpinClock(), cfg.Session, link.WithNotifier(notifier))
	return l, func() {
		if err := gl.Halt(); err != nil {
			log.Warn().Err(err).Str("pin", gl.Name()).Msg("halt pin")
		}
	}, nil
}
