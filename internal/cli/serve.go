package cli

import (
	"github.com/spf13/cobra"

	"github.com/yungbote/flightwx/internal/app"
	"github.com/yungbote/flightwx/internal/platform/shutdown"
)

type ServeOptions struct {
	*RootOptions
	Addr string
}

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve <airport|weather|conditions|gateway>",
		Short: "Run one flightwx service",
		Long: `Run one flightwx service until SIGINT or SIGTERM.

Each service listens on the port of its configured URL unless --addr is set;
the gateway listens on http.addr.

Example:
  flightwx serve airport
  flightwx serve gateway --addr :9090`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"airport", "weather", "conditions", "gateway"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := app.ParseKind(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "serve", err)
			}
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, stop := shutdown.NotifyContext(cmd.Context())
			defer stop()

			a, err := app.New(ctx, cfg, log, kind, opts.Addr)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to initialize "+string(kind), err)
			}
			if err := a.Run(ctx); err != nil {
				return WrapExitError(ExitFailure, string(kind)+" exited", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides the configured port)")
	return cmd
}
