package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/smartstudy/studycli/internal/client/cli"
	"github.com/smartstudy/studycli/internal/client/config"
	"github.com/smartstudy/studycli/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("%v", err)
	}

	// An emailed verification or reset link may be passed as the first
	// argument; it overrides any configured launch link.
	if len(os.Args) > 1 {
		cfg.LaunchLink = os.Args[1]
	}

	logger, err := logging.NewZapLogger(cfg.Log.Level)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}
}
