package main

import (
	"github.com/Carmen-Shannon/oxy2d/engine/config"
	"github.com/Carmen-Shannon/oxy2d/engine/log"
	"github.com/urfave/cli"
)

var logger = log.New("oxy2d")

// loadConfig reads the --config file when one is given and applies the logging flags on top of its level.
func loadConfig(ctx *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if path := ctx.GlobalString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	log.SetLevel(cfg.LogLevel())
	setupLogging(ctx)
	return cfg, nil
}

func setupLogging(ctx *cli.Context) {
	if ctx.GlobalBool("v") {
		log.SetLevel(log.LevelInfo)
	}

	if ctx.GlobalBool("vv") {
		log.SetLevel(log.LevelDebug)
	}
}
