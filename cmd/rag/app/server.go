// Package app provides the RAG server application.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kart-io/sentinel-rag/cmd/rag/app/options"
	ragsvc "github.com/kart-io/sentinel-rag/internal/rag"
	"github.com/kart-io/sentinel-rag/pkg/app"
)

// commandDesc is the description of the command.
const commandDesc = `Sentinel RAG Service

The retrieval orchestration service. It splits documents into overlapping
chunks, embeds them and stores the vectors in a vector database, then answers
semantic queries with ranked chunks and an optional LLM generated answer.

The server exposes:
  - Document ingestion (JSON, form and UTF-8 text file upload)
  - Semantic similarity search with optional answer generation
  - Index statistics and index listing
  - Health, service info and Prometheus metrics endpoints`

// NewApp creates and returns a new App object with default parameters.
func NewApp() *app.App {
	opts := options.NewServerOptions()

	var application *app.App
	application = app.NewApp(
		app.WithName(ragsvc.Name),
		app.WithShortDescription("Retrieval-augmented generation service"),
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithRunFunc(func() error {
			return run(opts, application)
		}),
	)

	return application
}

// run contains the main logic for initializing and running the server.
func run(opts *options.ServerOptions, application *app.App) error {
	cfg, err := opts.Config()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg.Viper = application.Viper()

	ctx := setupSignalContext()

	server, err := cfg.NewServer(ctx)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	// Run 阻塞直到收到信号或初始化失败
	return server.Run(ctx)
}

// setupSignalContext returns a context that is cancelled on SIGINT or SIGTERM.
// A second signal exits immediately.
func setupSignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
		<-c
		os.Exit(1)
	}()
	return ctx
}
