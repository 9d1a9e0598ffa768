package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var (
	flagTTL      time.Duration
	flagCategory string
	flagEvery    time.Duration
	flagWatch    bool
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the cache",
}

var cacheGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the cached payload for a key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, logger, err := openStore()
		if err != nil {
			return err
		}
		defer logger.Sync()

		payload, ok := store.Get(args[0])
		if !ok {
			fmt.Fprintf(cmd.ErrOrStderr(), "No entry for %q.\n", args[0])
			exitCode = ExitMiss
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(payload))
		return nil
	},
}

var cacheSetCmd = &cobra.Command{
	Use:   "set <key> <json>",
	Short: "Store a JSON payload under a key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !json.Valid([]byte(args[1])) {
			return fmt.Errorf("payload is not valid JSON")
		}
		store, _, logger, err := openStore()
		if err != nil {
			return err
		}
		defer logger.Sync()

		ttl := flagTTL
		if ttl <= 0 {
			ttl = store.ResolveTTL(flagCategory)
		}
		store.Set(args[0], json.RawMessage(args[1]), ttl)
		fmt.Fprintf(cmd.OutOrStdout(), "Stored %q for %s.\n", args[0], ttl)
		return nil
	},
}

var cacheDeleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Remove the entry for a key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, logger, err := openStore()
		if err != nil {
			return err
		}
		defer logger.Sync()

		store.Delete(args[0])
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %q.\n", args[0])
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, logger, err := openStore()
		if err != nil {
			return err
		}
		defer logger.Sync()

		n := store.Clear()
		fmt.Fprintf(cmd.OutOrStdout(), "Cache cleared (%d entries removed).\n", n)
		return nil
	},
}

var cacheSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove expired and corrupt entries",
	Long: "Remove expired and corrupt entries once, or with --watch keep sweeping " +
		"every --every (default: cache.sweepInterval) until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, cfg, logger, err := openStore()
		if err != nil {
			return err
		}
		defer logger.Sync()

		n := store.SweepExpired()
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired entries.\n", n)
		if !flagWatch {
			return nil
		}

		every := flagEvery
		if every <= 0 {
			every = cfg.Cache.SweepEvery()
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		fmt.Fprintf(cmd.ErrOrStderr(), "Sweeping every %s, press Ctrl+C to stop.\n", every)
		store.RunSweeper(ctx, every)
		return nil
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, logger, err := openStore()
		if err != nil {
			return err
		}
		defer logger.Sync()

		data, err := json.MarshalIndent(store.Stats(), "", "  ")
		if err != nil {
			return runtimeErr(err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	cacheSetCmd.Flags().DurationVar(&flagTTL, "ttl", 0, "Entry lifetime (overrides --category)")
	cacheSetCmd.Flags().StringVar(&flagCategory, "category", "", "Data category used to resolve the TTL")
	cacheSweepCmd.Flags().BoolVar(&flagWatch, "watch", false, "Keep sweeping until interrupted")
	cacheSweepCmd.Flags().DurationVar(&flagEvery, "every", 0, "Sweep interval with --watch")

	cacheCmd.AddCommand(cacheGetCmd)
	cacheCmd.AddCommand(cacheSetCmd)
	cacheCmd.AddCommand(cacheDeleteCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheSweepCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
}
