package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/artic-select/internal/server"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a selection session over HTTP",
		Long: `Starts the session API: one selection session exposed as JSON endpoints
under /api, plus /health, /ready and /metrics.`,
		Example: `  # Start on the configured listen address (default :8080)
  artic-select serve

  # Start on a custom address with a shared Redis response cache
  artic-select serve --addr :9090 --redis localhost:6379`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := opts.setupLogging(cmd.ErrOrStderr()); err != nil {
				return err
			}
			defer opts.closeLog()

			s, err := openSession(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			srv, err := server.New(server.Config{
				Session:        s.ctrl,
				Redis:          s.redis,
				RequestTimeout: time.Duration(opts.cfg.RequestTimeout),
			})
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("addr") {
				addr = opts.cfg.ListenAddr
			}
			return srv.ListenAndServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")

	return cmd
}
