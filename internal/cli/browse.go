package cli

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/artic-select/internal/tui"
)

func newBrowseCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Launch the interactive artwork browser",
		Long: `Launch the interactive terminal browser.

Controls:
  ↑/k, ↓/j   - Move between rows
  space      - Toggle the row
  a          - Toggle the whole page
  ←/p, →/n   - Previous / next page
  s          - Select the first N items
  c          - Clear the selection
  ?          - Toggle help
  q          - Quit

Logs are discarded unless --log-file is given.`,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if r := recover(); r != nil {
					fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
					fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
					err = fmt.Errorf("tui panic: %v", r)
				}
			}()

			if _, err := opts.setupLogging(io.Discard); err != nil {
				return err
			}
			defer opts.closeLog()

			s, err := openSession(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := tui.Run(cmd.Context(), s.ctrl); err != nil {
				return fmt.Errorf("TUI error: %w", err)
			}
			return nil
		},
	}
}
