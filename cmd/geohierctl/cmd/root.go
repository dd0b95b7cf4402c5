package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/event-geo-hierarchy/internal/adapter/nominatim"
	"github.com/couchcryptid/event-geo-hierarchy/internal/config"
	"github.com/couchcryptid/event-geo-hierarchy/internal/observability"
	"github.com/couchcryptid/event-geo-hierarchy/internal/pipeline"
	"github.com/couchcryptid/event-geo-hierarchy/internal/store"
)

var (
	labelColor = color.New(color.FgCyan)
	okColor    = color.New(color.FgGreen)
	warnColor  = color.New(color.FgYellow)
	errColor   = color.New(color.FgRed, color.Bold)
)

type rootOptions struct {
	verbose bool
	noColor bool
}

// app holds the collaborators built from configuration for one invocation.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	opts    pipeline.LocatorOptions
	store   store.Store
	locator *pipeline.Locator
}

// NewRootCmd builds the geohierctl command tree.
func NewRootCmd() *cobra.Command {
	o := &rootOptions{}
	root := &cobra.Command{
		Use:           "geohierctl",
		Short:         "Inspect and maintain the event geo hierarchy",
		Long:          "geohierctl works against the store and geocoder configured through the same environment variables as geohierd.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if o.noColor {
				color.NoColor = true
			}
		},
	}
	root.PersistentFlags().BoolVarP(&o.verbose, "verbose", "v", false, "log at debug level")
	root.PersistentFlags().BoolVar(&o.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newNormalizeCmd(o),
		newSyncCmd(o),
		newResolveCmd(o),
		newImportICSCmd(o),
	)
	return root
}

// Execute runs the root command and prints a failure to stderr.
func Execute() error {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		errColor.Fprintln(root.ErrOrStderr(), "error:", err)
		return err
	}
	return nil
}

// configure loads configuration and the locator options. Logs go to errOut
// so they never mix with command output.
func (o *rootOptions) configure(errOut io.Writer) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level}))

	opts, err := pipeline.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:     cfg,
		logger:  logger,
		metrics: observability.NewUnregisteredMetrics(),
		opts:    opts,
	}, nil
}

// open additionally connects the store and wires a Locator.
func (o *rootOptions) open(ctx context.Context, errOut io.Writer) (*app, error) {
	a, err := o.configure(errOut)
	if err != nil {
		return nil, err
	}
	a.store, err = store.Open(ctx, a.cfg, a.metrics, a.logger)
	if err != nil {
		return nil, err
	}
	a.locator = pipeline.NewLocator(a.geocoder(), a.store, a.opts, a.metrics, a.logger)
	return a, nil
}

func (a *app) geocoder() *nominatim.CachedGeocoder {
	client := nominatim.NewClient(a.cfg.GeocoderURL, a.cfg.GeocoderUserAgent, a.cfg.GeocoderTimeout, a.metrics, a.logger)
	return nominatim.NewCachedGeocoder(client, a.cfg.GeocoderCacheTTL, a.metrics)
}

func (a *app) close() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("store close failed", "error", err)
	}
}

func printField(w io.Writer, label, value string) {
	labelColor.Fprintf(w, "%-16s", label)
	if value == "" {
		warnColor.Fprintln(w, "-")
		return
	}
	fmt.Fprintln(w, value)
}
