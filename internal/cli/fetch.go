package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dshills/dealcache/internal/vendor"
	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <prefix> <category> <path> [name=value ...]",
	Short: "Fetch a vendor endpoint through the cache",
	Long: "Fetch derives the cache key from <prefix> and the parameters, serves a cached " +
		"response when one is fresh, and otherwise calls <path> on the vendor base URL and " +
		"caches the result for the TTL of <category>.",
	Args: cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := parseParams(args[3:])
		if err != nil {
			return err
		}
		store, cfg, logger, err := openStore()
		if err != nil {
			return err
		}
		defer logger.Sync()

		client := vendor.NewClient(cfg.Vendor.BaseURL,
			vendor.WithTimeout(time.Duration(cfg.Vendor.TimeoutSeconds)*time.Second),
			vendor.WithMaxRetries(cfg.Vendor.MaxRetries),
			vendor.WithLogger(logger),
		)
		src := vendor.NewSource[json.RawMessage](client, store, args[0], args[1], args[2])

		payload, origin, err := src.Fetch(context.Background(), params)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%s (%s)\n", src.Key(params), origin)
		fmt.Fprintln(cmd.OutOrStdout(), string(payload))
		return nil
	},
}
