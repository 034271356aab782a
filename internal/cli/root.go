package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yungbote/flightwx/internal/config"
	"github.com/yungbote/flightwx/internal/platform/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Format     string // "json" | "text"
}

var ValidFormats = []string{"text", "json"}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "flightwx",
		Short: "flightwx - airport catalog, weather and conditions services",
		Long: `flightwx runs the airport, weather, conditions and gateway services, and
aggregates current METARs for every catalogued airport from the command line.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config (default $FLIGHTWX_CONFIG or ./config/flightwx.yaml)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewSummaryCommand(opts))
	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func (o *RootOptions) load() (*config.Config, *logger.Logger, error) {
	var (
		cfg *config.Config
		err error
	)
	if strings.TrimSpace(o.ConfigPath) != "" {
		cfg, err = config.LoadFile(o.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "load config", err)
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "init logger", err)
	}
	return cfg, log, nil
}
