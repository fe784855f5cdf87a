package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/hydrolink/internal/config"
	"github.com/couchcryptid/hydrolink/internal/observability"
)

type globalFlags struct {
	logLevel  string
	logFormat string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "hydrolink",
		Short: "Hydrolink point observations to the National Hydrography Dataset",
		Long: `hydrolink assigns each point an address on the NHD stream network: the
reachcode of the most likely flowline and the measure along it, together with
measures of certainty (snap distance, distance to the closest confluence and
name similarity).`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn, error (default $LOG_LEVEL or info)")
	root.PersistentFlags().StringVar(&g.logFormat, "log-format", "", "log format: text or json (default $LOG_FORMAT or text)")

	root.AddCommand(newLinkCmd(g), newValidateCmd(g), newDocsCmd(g, root))
	return root
}

// load reads environment configuration, applies command line overrides and
// builds a logger writing to logOut.
func (g *globalFlags) load(logOut io.Writer) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}
	switch {
	case g.logFormat != "":
		cfg.LogFormat = g.logFormat
	case os.Getenv("LOG_FORMAT") == "":
		cfg.LogFormat = "text"
	}
	return cfg, observability.NewCLILogger(cfg, logOut), nil
}
