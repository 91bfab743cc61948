package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"tradejournal/internal/bootstrap"
)

func main() {
	container := bootstrap.NewContainer()
	container.MustInit()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exitCode := 0
	if err := container.Run(ctx); err != nil {
		container.Log.Errorw("System stopped with error", "error", err)
		exitCode = 1
	} else {
		container.Log.Info("Shutdown signal received")
	}

	container.Shutdown()
	os.Exit(exitCode)
}
