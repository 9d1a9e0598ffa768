package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/dshills/dealcache/internal/cache"
	"github.com/dshills/dealcache/internal/config"
	"github.com/dshills/dealcache/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const version = "0.3.0"

// Exit codes
const (
	ExitSuccess      = 0
	ExitMiss         = 1
	ExitUsageError   = 2
	ExitRuntimeError = 4
)

// Global flags
var (
	flagCacheDir   string
	flagLogLevel   string
	flagLogFormat  string
	flagVendorURL  string
	flagMaxRetries int
)

var rootCmd = &cobra.Command{
	Use:   "dealcache",
	Short: "Vendor response cache for the deals bot",
	Long:  "dealcache manages the on-disk TTL cache shared by the maps, food and product integrations.",
}

// Run executes the root command and returns an exit code.
func Run() int {
	exitCode = ExitSuccess
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error
		var re *runtimeError
		if errors.As(err, &re) {
			return ExitRuntimeError
		}
		return ExitUsageError
	}
	return exitCode
}

// runtimeError marks failures of the environment rather than of the
// command line, so Run can exit with ExitRuntimeError.
type runtimeError struct {
	err error
}

func (e *runtimeError) Error() string { return e.err.Error() }
func (e *runtimeError) Unwrap() error { return e.err }

func runtimeErr(err error) error {
	if err == nil {
		return nil
	}
	return &runtimeError{err: err}
}

// exitCode is set by command handlers to control the process exit code.
var exitCode = ExitSuccess

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print dealcache version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "dealcache version %s\n", version)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagCacheDir, "cache-dir", "", "Cache root directory")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&flagLogFormat, "log-format", "", "Log format (console, json)")
	pf.StringVar(&flagVendorURL, "vendor-url", "", "Vendor API base URL")
	pf.IntVar(&flagMaxRetries, "max-retries", 0, "Vendor request retries")

	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(keyCmd)
	rootCmd.AddCommand(ttlCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func buildOverrides() map[string]string {
	m := make(map[string]string)
	if flagCacheDir != "" {
		m["cacheDir"] = flagCacheDir
	}
	if flagLogLevel != "" {
		m["logLevel"] = flagLogLevel
	}
	if flagLogFormat != "" {
		m["logFormat"] = flagLogFormat
	}
	if flagVendorURL != "" {
		m["vendorUrl"] = flagVendorURL
	}
	if rootCmd.PersistentFlags().Changed("max-retries") {
		m["maxRetries"] = strconv.Itoa(flagMaxRetries)
	}
	return m
}

// openStore loads the effective config and opens the cache it describes.
func openStore() (*cache.Store, config.Config, *zap.Logger, error) {
	cfg, err := config.Load(buildOverrides())
	if err != nil {
		return nil, config.Config{}, nil, runtimeErr(err)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, config.Config{}, nil, runtimeErr(err)
	}
	store := cache.New(cfg.Cache.Dir,
		cache.WithLogger(logger),
		cache.WithPolicy(cfg.Cache.Policy()),
	)
	return store, cfg, logger, nil
}
