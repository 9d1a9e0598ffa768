package cli

import (
	"fmt"
	"strings"

	"github.com/dshills/dealcache/internal/cache"
	"github.com/spf13/cobra"
)

var keyCmd = &cobra.Command{
	Use:   "key <prefix> [name=value ...]",
	Short: "Print the cache key for a prefix and parameters",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := parseParams(args[1:])
		if err != nil {
			return err
		}
		key := cache.DeriveKey(args[0], params)
		fmt.Fprintln(cmd.OutOrStdout(), key)
		return nil
	},
}

// parseParams turns name=value arguments into a parameter map.
func parseParams(args []string) (map[string]any, error) {
	params := make(map[string]any, len(args))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid parameter %q, want name=value", arg)
		}
		params[name] = value
	}
	return params, nil
}
