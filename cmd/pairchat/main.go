package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/pairchat/internal/config"
	"github.com/vovakirdan/pairchat/internal/log"
)

// rootOptions are the flags shared by every command.
type rootOptions struct {
	configPath    string
	logLevel      string
	logFormat     string
	storeDriver   string
	sessionDriver string

	// overrides collects command-specific flag values.
	overrides config.Config
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "pairchat",
		Short:        "Realtime private-room chat server",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config file (default ./config.yaml)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&opts.logFormat, "log-format", "", "log format: console or json")
	flags.StringVar(&opts.storeDriver, "store", "", "durable store driver: mongo or sqlite")
	flags.StringVar(&opts.sessionDriver, "sessions", "", "session store driver: redis or memory")

	root.AddCommand(
		newServeCmd(opts),
		newMigrateCmd(opts),
		newUserCmd(opts),
		newTokenCmd(opts),
	)
	return root
}

// load resolves the configuration and builds the logger it asks for.
func (o *rootOptions) load() (*config.Config, *zerolog.Logger, error) {
	bootstrap := log.New(o.logLevel, "console")

	cfg, path, err := config.Load(bootstrap, o.configPath)
	if err != nil {
		return nil, nil, err
	}

	overrides := o.overrides
	overrides.LogLevel = o.logLevel
	overrides.LogFormat = o.logFormat
	overrides.Store.Driver = o.storeDriver
	overrides.Session.Driver = o.sessionDriver
	cfg.UpdateFrom(overrides)

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logger := log.New(cfg.LogLevel, cfg.LogFormat)
	logger.Debug().Str("path", path).Msg("configuration loaded")
	return &cfg, logger, nil
}
