// Package app provides the guidebot server application.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kart-io/guidebot/cmd/guidebot/app/options"
	"github.com/kart-io/guidebot/pkg/infra/app"
)

const (
	// Name is the name of the application.
	Name = "guidebot"

	// commandDesc is the description of the command.
	commandDesc = `Guidebot customer support service

Answers customer questions from a small corpus of store guides.

This server provides:
  - POST /chat: retrieval augmented answers for authenticated users
  - Optional delivery of the answer over WhatsApp
  - GET /healthz and GET /metrics for operators`
)

// NewApp creates and returns a new App object with default parameters.
func NewApp() *app.App {
	opts := options.NewServerOptions()
	return app.NewApp(
		app.WithName(Name),
		app.WithShortDescription("Guidebot customer support service"),
		app.WithDescription(commandDesc),
		app.WithConfigName(Name),
		app.WithEnvPrefix("GUIDEBOT"),
		app.WithDotenv(".env"),
		app.WithOptions(opts),
		app.WithRunFunc(run(opts)),
	)
}

// run contains the main logic for initializing and running the server.
func run(opts *options.ServerOptions) app.RunFunc {
	return func() error {
		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		ctx := setupSignalContext()

		server, err := cfg.NewServer(ctx)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		return server.Run(ctx)
	}
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
