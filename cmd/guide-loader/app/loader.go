// Package app provides the guide-loader application.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/kart-io/guidebot/cmd/guide-loader/app/options"
	"github.com/kart-io/guidebot/internal/guidebot/biz"
	"github.com/kart-io/guidebot/pkg/infra/app"
	"github.com/kart-io/guidebot/pkg/utils/json"
)

const (
	// Name is the name of the application.
	Name = "guide-loader"

	commandDesc = `Load the guide corpus into a persistent guide store.

Each passage is embedded with the configured provider and upserted by its
content, so running the loader twice leaves the store unchanged. The load
report is printed as JSON on stdout. Passages that fail are reported and
the command exits non-zero.`
)

// NewApp creates and returns a new App object with default parameters.
func NewApp() *app.App {
	opts := options.NewLoaderOptions()
	return app.NewApp(
		app.WithName(Name),
		app.WithShortDescription("Load the guide corpus into a guide store"),
		app.WithDescription(commandDesc),
		app.WithConfigName("guidebot"),
		app.WithEnvPrefix("GUIDEBOT"),
		app.WithDotenv(".env"),
		app.WithOptions(opts),
		app.WithRunFunc(run(opts, os.Stdout)),
	)
}

func run(opts *options.LoaderOptions, out io.Writer) app.RunFunc {
	return func() error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		report, err := opts.Config().Load(ctx)
		if report != nil {
			if werr := writeReport(out, report); werr != nil {
				return werr
			}
		}
		if err != nil {
			return fmt.Errorf("corpus load failed: %w", err)
		}
		return nil
	}
}

func writeReport(out io.Writer, report *biz.LoadReport) error {
	return json.NewEncoder(out).Encode(report)
}
