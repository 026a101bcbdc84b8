package main

import (
	"flag"

	"github.com/danmuck/gpiolink/internal/config"
	"github.com/danmuck/gpiolink/internal/logging"
	"github.com/rs/zerolog/log"
)

const defaultPath = "cmd/linkctl/config.toml"

func main() {
	logging.ConfigureRuntime()

	kind := flag.String("kind", "link", "config kind: link|sim")
	output := flag.String("output", "", "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", "", "config path for validation (defaults to cmd/linkctl/config.toml)")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	if *validate {
		path := *input
		if path == "" {
			path = defaultPath
		}
		cfg, err := config.LoadLinkConfig(path)
		if err != nil {
			log.Fatal().Err(err).Str("path", path).Msg("config invalid")
		}
		log.Info().Str("path", path).Str("role", cfg.Role).Bool("simulate", cfg.Simulate).Msg("config valid")
		return
	}

	target := *output
	if target == "" {
		target = defaultPath
	}
	if err := config.WriteTemplate(target, *kind, *force); err != nil {
		log.Fatal().Err(err).Msg("write template")
	}
	log.Info().Str("kind", *kind).Str("path", target).Msg("wrote config template")
}
