package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/colordrop/blockscout-verify/internal/config"
	"github.com/colordrop/blockscout-verify/internal/networks"
	"github.com/colordrop/blockscout-verify/internal/source"
	"github.com/colordrop/blockscout-verify/internal/verification"
)

func createManualCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manual <network>",
		Short: "Print manual verification instructions",
		Long: `Print step-by-step instructions for verifying the implementation
through the explorer's web interface, with the compiler settings and
encoded constructor arguments filled in.

Missing environment values are shown as placeholders.

EXAMPLES:
  blockscout-verify manual celo
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadEnvironment(); err != nil {
				return err
			}

			project := loadProjectConfigSilent()
			registry, err := buildRegistry(project)
			if err != nil {
				return err
			}
			network, err := registry.Lookup(args[0])
			if err != nil {
				return err
			}

			printManualInstructions(cmd.OutOrStdout(), network, project.settings())
			return nil
		},
	}

	return cmd
}

func printManualInstructions(out io.Writer, network networks.Network, s verification.Settings) {
	impl := envOr(network.ImplementationEnv, "<"+network.ImplementationEnv+">")
	proxy := os.Getenv(network.ProxyEnv)

	args := "<set the constructor address variables, then run 'blockscout-verify encode'>"
	if addrs, err := config.LoadConstructorAddresses(); err == nil {
		if encoded, err := addrs.Encode(); err == nil {
			args = encoded
		}
	}

	fmt.Fprintln(out, "🔍 Blockscout Manual Verification")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Network: %s (chain %d)\n", network.DisplayName, network.ChainID)
	fmt.Fprintf(out, "Blockscout URL: %s\n", network.ExplorerURL)
	fmt.Fprintf(out, "Implementation Address: %s\n", impl)
	if proxy != "" {
		fmt.Fprintf(out, "Proxy Address: %s\n", proxy)
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "1. Go to Blockscout:")
	fmt.Fprintf(out, "   %s\n\n", network.ContractCodeURL(impl))

	fmt.Fprintln(out, "2. Click 'Code' tab → 'Verify & Publish'")
	fmt.Fprintln(out)

	fmt.Fprintln(out, "3. Enter the following details:")
	fmt.Fprintf(out, "   - Contract Address: %s\n", impl)
	fmt.Fprintf(out, "   - Contract Name: %s\n", s.ContractName)
	fmt.Fprintf(out, "   - Compiler: %s\n", s.Compiler)
	if s.OptimizationUsed {
		fmt.Fprintln(out, "   - Optimization: Yes")
		fmt.Fprintf(out, "   - Runs: %d\n", s.Runs)
	} else {
		fmt.Fprintln(out, "   - Optimization: No")
	}
	fmt.Fprintf(out, "   - EVM Version: %s\n", s.EVMVersion)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "4. Paste the flattened contract source code:")
	fmt.Fprintf(out, "   Run: %s (writes %s)\n\n", source.FlattenCommand, source.DefaultPath)

	fmt.Fprintln(out, "5. Constructor Arguments (ABI-encoded):")
	fmt.Fprintf(out, "   %s\n\n", args)

	fmt.Fprintln(out, "6. Click 'Verify and Publish'")
	fmt.Fprintln(out)

	fmt.Fprintln(out, "🔗 Quick Links:")
	if proxy != "" {
		fmt.Fprintf(out, "   Proxy: %s\n", network.AddressURL(proxy))
	}
	fmt.Fprintf(out, "   Implementation: %s\n", network.AddressURL(impl))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
