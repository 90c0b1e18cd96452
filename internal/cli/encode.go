package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/colordrop/blockscout-verify/internal/config"
)

func createEncodeCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Print ABI-encoded constructor arguments",
		Long: `Print the ABI-encoded constructor arguments built from
ADMIN_ADDRESS, UPGRADER_ADDRESS, TREASURY_ADDRESS_1, TREASURY_ADDRESS_2
and VERIFIER_ADDRESS. The output has no 0x prefix and can be pasted into
the explorer's manual verification form.

EXAMPLES:
  blockscout-verify encode
  blockscout-verify encode --env-file deploy/.env.sepolia
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadEnvironment(); err != nil {
				return err
			}

			addrs, err := config.LoadConstructorAddresses()
			if err != nil {
				return err
			}
			encoded, err := addrs.Encode()
			if err != nil {
				return fmt.Errorf("%w: %v", config.ErrConfiguration, err)
			}

			out := cmd.OutOrStdout()
			if verbose {
				printConfiguration(out, &config.Config{Addresses: addrs})
				fmt.Fprintln(out)
			}
			fmt.Fprintln(out, encoded)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "also print the addresses being encoded")

	return cmd
}
