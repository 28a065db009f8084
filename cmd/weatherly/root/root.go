// Package root is the weatherly command.
package root

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/sakif/weatherly/internal/config"
	"github.com/sakif/weatherly/internal/server"
)

const (
	configFlag = "config"
	dbFlag     = "db"
	addrFlag   = "addr"
)

// flagKeys maps a flag to the configuration key it overrides.
var flagKeys = map[string]string{
	dbFlag:   "db.path",
	addrFlag: "server.addr",
}

func newFlags() map[string]cobraflags.Flag {
	return map[string]cobraflags.Flag{
		configFlag: &cobraflags.StringFlag{
			Name:  configFlag,
			Value: "",
			Usage: "Config file (default: weatherly.yaml|toml|json in the working directory, if present)",
		},
		dbFlag: &cobraflags.StringFlag{
			Name:  dbFlag,
			Value: "",
			Usage: "SQLite database file (overrides db.path)",
		},
		addrFlag: &cobraflags.StringFlag{
			Name:  addrFlag,
			Value: "",
			Usage: "Listen address for the local UI (overrides server.addr)",
		},
	}
}

// NewCommand builds the root command. Each call returns an independent
// command with its own flag values.
func NewCommand() *cobra.Command {
	cmd, _ := newCommand()
	return cmd
}

func newCommand() (*cobra.Command, map[string]cobraflags.Flag) {
	flags := newFlags()

	cmd := &cobra.Command{
		Use:   "weatherly",
		Short: "Desktop weather app served as a local web UI",
		Long: `Weatherly shows current conditions and a five-day forecast for any city.

It stores accounts, favorites, recent searches and settings in a local SQLite
file and serves its UI on a loopback address. Open the printed URL in a browser.

The OpenWeatherMap API key is read from WEATHERLY_WEATHER_API_KEY, a .env file,
or weather.api_key in the config file.

Examples:
  weatherly                              # defaults, weatherly.db in the working directory
  weatherly --db ~/.weatherly.db         # another database file
  weatherly --addr 127.0.0.1:9000        # another port
  weatherly --config ./weatherly.toml    # explicit config file`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(Options(cmd, flags))
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	cobraflags.RegisterMap(cmd, flags)
	return cmd, flags
}

// Options turns the flags the user actually set into config.Load options.
// Unset flags leave the lower-precedence sources alone.
func Options(cmd *cobra.Command, flags map[string]cobraflags.Flag) config.Options {
	opts := config.Options{
		ConfigFile: flags[configFlag].GetString(),
		Overrides:  make(map[string]any),
	}
	for name, key := range flagKeys {
		if cmd.Flags().Changed(name) {
			opts.Overrides[key] = flags[name].GetString()
		}
	}
	return opts
}

func run(parent context.Context, cfg *config.Config) error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(cfg, logger, nil)
	if err != nil {
		return fmt.Errorf("starting weatherly: %w", err)
	}

	return srv.Start(ctx)
}
