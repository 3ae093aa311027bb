package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mchush24/rork-masalbak-studio-sub007/internal/config"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/di"
)

func main() {
	os.Exit(run())
}

func run() int {
	app, err := di.InitializeApp()
	if err != nil {
		log.Printf("initialize app: %v", err)
		return 1
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config.LogEnvStatus(app.Config, app.Logger)
	if err := app.Run(ctx); err != nil {
		app.Logger.Error("server_failed", "err", err)
		return 1
	}
	return 0
}
