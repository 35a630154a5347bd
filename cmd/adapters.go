package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/synapse/internal/adapters"
)

func newAdaptersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "adapters",
		Short: "List the built-in language profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tEXTENSIONS\tKNOWN SMELLS")
			for _, p := range adapters.All() {
				fmt.Fprintf(tw, "%s\t%s\t%d\n", p.Name, strings.Join(p.Extensions, ","), len(p.KnownSmells))
			}
			return tw.Flush()
		},
	}
}
