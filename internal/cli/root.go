// Package cli implements the artic-select command line.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/artic-select/internal/config"
	"github.com/Sternrassler/artic-select/pkg/logging"
)

// rootOptions holds the persistent flags and the configuration resolved from them.
type rootOptions struct {
	configPath string
	logLevel   string
	logPretty  bool
	logFile    string
	redisAddr  string

	cfg     config.Config
	logSink io.Closer
}

// NewRootCmd creates the artic-select root command.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "artic-select",
		Short: "Browse and select artworks from the Art Institute of Chicago collection",
		Long: `artic-select pages through the Art Institute of Chicago artworks API and
keeps a selection of records across pages.

Selections can be made row by row, a whole page at a time, or with a bulk
"select first N" that pulls in further pages as needed.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			return opts.load(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to a TOML config file")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.BoolVar(&opts.logPretty, "log-pretty", false, "human readable console logs")
	flags.StringVar(&opts.logFile, "log-file", "", "write logs to this file instead of stderr")
	flags.StringVar(&opts.redisAddr, "redis", "", "redis address for the shared response cache")

	cmd.AddCommand(newBrowseCmd(opts))
	cmd.AddCommand(newSelectCmd(opts))
	cmd.AddCommand(newServeCmd(opts))

	return cmd
}

// load resolves the configuration: defaults, config file, environment, then flags.
func (o *rootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if flags.Changed("log-pretty") {
		cfg.LogPretty = o.logPretty
	}
	if flags.Changed("redis") {
		cfg.RedisAddr = o.redisAddr
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	o.cfg = cfg
	return nil
}

// setupLogging configures the global logger. Logs go to --log-file when set,
// otherwise to fallback. Callers defer closeLog once it succeeds.
func (o *rootOptions) setupLogging(fallback io.Writer) (zerolog.Logger, error) {
	lc := o.cfg.Logging()
	lc.Output = fallback

	if o.logFile != "" {
		f, err := os.OpenFile(o.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("open log file: %w", err)
		}
		o.logSink = f
		lc.Output = f
	}

	return logging.Setup(lc), nil
}

// closeLog closes the --log-file handle opened by setupLogging.
func (o *rootOptions) closeLog() {
	if o.logSink == nil {
		return
	}
	_ = o.logSink.Close()
	o.logSink = nil
}
