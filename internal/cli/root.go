// Package cli implements the firerest command line: document reads and
// writes against the configured backend, and the HTTP gateway.
package cli

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/firerest"
	"github.com/kailas-cloud/firerest/internal/config"
	logpkg "github.com/kailas-cloud/firerest/internal/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Env     string
	Config  string // explicit config path, overrides Env lookup
	Format  string // "json" | "text"
	Verbose bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the firerest CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "firerest",
		Short: "firerest - document client for the Firestore REST API",
		Long: `Read and write Firestore documents through the v1 REST API, a local
emulator or a Valkey/Redis backend, and serve them over HTTP.

Paths are slash-separated: an odd number of segments is a collection,
an even number a document (users, users/alice, users/alice/posts).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitUsage, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Env, "env", config.GetEnv(), "config environment (loads config/<env>.yaml)")
	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", "", "config file path (overrides --env)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log SDK operations to stderr")

	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewSetCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewVersionCommand(opts))

	return cmd
}

// loadConfig reads the config file selected by --config or --env.
func (o *RootOptions) loadConfig() (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if o.Config != "" {
		cfg, err = config.LoadFile(o.Config)
	} else {
		cfg, err = config.Load(o.Env)
	}
	if err != nil {
		return config.Config{}, WrapExitError(ExitUsage, "load config", err)
	}
	return cfg, nil
}

// connect loads the config and opens a client with a quiet stderr logger.
func (o *RootOptions) connect(ctx context.Context) (*firerest.Client, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	level := ""
	if o.Verbose {
		level = "debug"
	}
	logger, err := logpkg.NewLogger("cli", level)
	if err != nil {
		return nil, err
	}

	return firerest.New(ctx, ClientOptions(cfg, logger)...)
}

// formatter returns an output formatter writing to the command's stdout.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout()}
}

// ClientOptions maps file configuration onto client options.
func ClientOptions(cfg config.Config, logger *zap.Logger) []firerest.Option {
	opts := []firerest.Option{
		firerest.WithProject(cfg.Project),
		firerest.WithLogger(logger),
		firerest.WithReadinessTimeout(time.Duration(cfg.Backend.ReadinessTimeout) * time.Second),
	}

	switch cfg.Backend.Driver {
	case config.DriverEmulator:
		opts = append(opts, firerest.WithEmulator(cfg.Backend.Endpoint))
	case config.DriverValkey, config.DriverRedis:
		with := firerest.WithValkey
		if cfg.Backend.Driver == config.DriverRedis {
			with = firerest.WithRedis
		}
		opts = append(opts,
			with(cfg.Backend.Addrs[0], cfg.Backend.Password),
			firerest.WithInitAddrs(cfg.Backend.Addrs...),
		)
	default:
		opts = append(opts, firerest.WithCredentialsFile(cfg.CredentialsFile))
		if cfg.Backend.Endpoint != "" {
			opts = append(opts, firerest.WithEndpoint(cfg.Backend.Endpoint))
		}
	}

	return opts
}
