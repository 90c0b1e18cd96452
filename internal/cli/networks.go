package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func createNetworksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "networks",
		Short: "List supported networks",
		Long: `List the networks that can be verified against, with their
explorer and the environment variables that select the contract.

Explorer overrides from the project config are applied.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := buildRegistry(loadProjectConfigSilent())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tCHAIN ID\tEXPLORER\tIMPLEMENTATION ENV\tPROXY ENV")
			for _, n := range registry.List() {
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", n.Name, n.ChainID, n.ExplorerURL, n.ImplementationEnv, n.ProxyEnv)
			}
			return w.Flush()
		},
	}

	return cmd
}
