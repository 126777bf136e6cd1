package main

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/rprtr258/hello-http/internal/cli"
	"github.com/rprtr258/hello-http/internal/config"
)

func run() int {
	config.SetupLogger(os.Stderr, false)

	if err := cli.Run(context.Background(), os.Args); err != nil {
		log.Error().Err(err).Msg("app exited abnormally")
		return 1
	}
	return 0
}

func main() {
	os.Exit(run())
}
