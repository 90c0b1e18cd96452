package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/colordrop/blockscout-verify/internal/config"
	"github.com/colordrop/blockscout-verify/internal/networks"
)

var (
	cfgFile string
	envFile string
	apiKey  string
)

// Execute runs the CLI
func Execute(version string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return newRootCmd(version).ExecuteContext(ctx)
}

func newRootCmd(version string) *cobra.Command {
	var opts verifyOptions

	rootCmd := &cobra.Command{
		Use:   "blockscout-verify <network>",
		Short: "Verify the ColorDropPool implementation on Blockscout",
		Long: `Submit the flattened ColorDropPool source to a Blockscout explorer so the
deployed implementation bytecode can be matched to its published source.

Supported networks: ` + strings.Join(networks.DefaultRegistry().Names(), ", ") + `

ENVIRONMENT:
  ADMIN_ADDRESS, UPGRADER_ADDRESS, TREASURY_ADDRESS_1,
  TREASURY_ADDRESS_2, VERIFIER_ADDRESS     constructor arguments (required)
  SEPOLIA_IMPLEMENTATION_ADDRESS           contract to verify on sepolia (required)
  IMPLEMENTATION_ADDRESS                   contract to verify on celo (required)
  SEPOLIA_PROXY_ADDRESS, PROXY_ADDRESS     proxy for explorer links (optional)
  BLOCKSCOUT_API_KEY                       explorer API key (optional)
  CELO_RPC_URL, SEPOLIA_RPC_URL            JSON-RPC endpoints for --check-code (optional)

EXAMPLES:
  # Generate the flattened source, then verify on Celo Sepolia
  npm run flatten
  blockscout-verify sepolia

  # Verify on Celo mainnet with an explicit source file
  blockscout-verify celo --source build/flattened.sol

  # Show what would be submitted without calling the explorer
  blockscout-verify celo --dry-run

  # Confirm the implementation is deployed before submitting
  blockscout-verify celo --check-code
`,
		Version:       version,
		Args:          networkArg,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd, args[0], opts)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "project config file (default: blockscout-verify.toml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "Blockscout API key (default from BLOCKSCOUT_API_KEY or credentials)")

	rootCmd.Flags().StringVar(&opts.source, "source", "", "flattened source file (default: flattened.sol)")
	rootCmd.Flags().StringVar(&opts.explorerURL, "explorer-url", "", "override the explorer base URL for the selected network")
	rootCmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "request timeout (default: VERIFY_TIMEOUT_SECONDS or 60s)")
	rootCmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "print the request instead of submitting it")
	rootCmd.Flags().BoolVar(&opts.checkCode, "check-code", false, "confirm the implementation has deployed code before submitting")
	rootCmd.Flags().StringVar(&opts.rpcURL, "rpc-url", "", "JSON-RPC endpoint for --check-code (default: CELO_RPC_URL / SEPOLIA_RPC_URL or the public endpoint)")

	// Add subcommands
	rootCmd.AddCommand(createEncodeCmd())
	rootCmd.AddCommand(createManualCmd())
	rootCmd.AddCommand(createNetworksCmd())
	rootCmd.AddCommand(createConfigCmd())
	rootCmd.AddCommand(createAuthCmd())

	return rootCmd
}

// networkArg requires exactly one network argument
func networkArg(cmd *cobra.Command, args []string) error {
	usage := fmt.Sprintf("usage: %s [%s]", cmd.Root().Name(), strings.Join(networks.DefaultRegistry().Names(), "|"))
	switch {
	case len(args) == 0:
		return fmt.Errorf("missing network argument\n%s", usage)
	case len(args) > 1:
		return fmt.Errorf("expected one network argument, got %d\n%s", len(args), usage)
	}
	return nil
}

// loadEnvironment loads the dotenv file selected by --env-file
func loadEnvironment() error {
	return config.LoadDotEnv(envFile)
}

// getAPIKey returns the API key from flag, env, or credentials file
func getAPIKey(envKey, explorerURL string) string {
	// 1. Command line flag
	if apiKey != "" {
		return apiKey
	}

	// 2. Environment variable
	if envKey != "" {
		return envKey
	}

	// 3. Credentials file (keyed by explorer URL)
	return getCredential(explorerURL)
}

// buildRegistry returns the network registry with project and flag overrides applied
func buildRegistry(project *ProjectConfig) (*networks.Registry, error) {
	registry := networks.DefaultRegistry()
	if project == nil {
		return registry, nil
	}
	for name, n := range project.Networks {
		if n.Explorer == "" {
			continue
		}
		if err := registry.OverrideExplorer(name, n.Explorer); err != nil {
			return nil, fmt.Errorf("project config: %w", err)
		}
	}
	return registry, nil
}
