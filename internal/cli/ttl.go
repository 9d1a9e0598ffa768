package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/dshills/dealcache/internal/config"
	"github.com/spf13/cobra"
)

var ttlCmd = &cobra.Command{
	Use:   "ttl [category]",
	Short: "Show the TTL policy, or the TTL for one category",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(buildOverrides())
		if err != nil {
			return runtimeErr(err)
		}
		policy := cfg.Cache.Policy()

		if len(args) == 1 {
			d := policy.Resolve(args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\t%s\n", args[0], d.Milliseconds(), d)
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CATEGORY\tMILLIS\tDURATION")
		for _, name := range policy.Names() {
			d := policy.Resolve(name)
			fmt.Fprintf(w, "%s\t%d\t%s\n", name, d.Milliseconds(), d)
		}
		d := policy.Resolve("")
		fmt.Fprintf(w, "(default)\t%d\t%s\n", d.Milliseconds(), d)
		return w.Flush()
	},
}
