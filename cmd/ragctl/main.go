// Package main is the entry point for ragctl, the command line client of the RAG service.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/kart-io/sentinel-rag/cmd/ragctl/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := app.NewCommand(os.Stdout).ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
