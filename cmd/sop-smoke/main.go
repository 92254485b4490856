package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/sopchecker/internal/smoke"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := smoke.NewCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
