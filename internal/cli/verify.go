package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/colordrop/blockscout-verify/internal/blockscout"
	"github.com/colordrop/blockscout-verify/internal/config"
	"github.com/colordrop/blockscout-verify/internal/evm"
	"github.com/colordrop/blockscout-verify/internal/networks"
	"github.com/colordrop/blockscout-verify/internal/observability/metrics"
	"github.com/colordrop/blockscout-verify/internal/source"
	"github.com/colordrop/blockscout-verify/internal/verification"
)

type verifyOptions struct {
	source      string
	explorerURL string
	timeout     time.Duration
	dryRun      bool
	checkCode   bool
	rpcURL      string
}

// runVerify loads config, loads the source, encodes the constructor
// arguments and submits them. Any failing stage stops the run.
func runVerify(cmd *cobra.Command, networkName string, opts verifyOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	if err := loadEnvironment(); err != nil {
		fmt.Fprintf(out, "❌ %v\n", err)
		return err
	}

	project := loadProjectConfigSilent()
	registry, err := buildRegistry(project)
	if err != nil {
		return err
	}

	network, err := registry.Lookup(networkName)
	if err != nil {
		fmt.Fprintf(out, "❌ Unsupported network: %s\n", networkName)
		return err
	}
	if opts.explorerURL != "" {
		if err := registry.OverrideExplorer(network.Name, opts.explorerURL); err != nil {
			return err
		}
		network, _ = registry.Get(network.Name)
	}

	// Load config
	cfg, err := config.Load(network)
	if err != nil {
		fmt.Fprintln(out, "❌ Missing or invalid environment variables")
		fmt.Fprintf(out, "   %v\n", err)
		fmt.Fprintf(out, "   Required: %v\n", config.RequiredKeys(network))
		return err
	}

	logger := setupLogger(cfg.Logging, cmd.ErrOrStderr())
	metrics.Init(cfg.Metrics.PushgatewayURL != "", "blockscout-verify")
	defer pushMetrics(cfg.Metrics, logger)

	printConfiguration(out, cfg)

	settings := project.settings()
	timeout := cfg.HTTP.Timeout
	if opts.timeout > 0 {
		timeout = opts.timeout
	}
	key := getAPIKey(cfg.APIKey, network.ExplorerURL)

	// Load source
	sourcePath := opts.source
	if sourcePath == "" && project != nil {
		sourcePath = project.Source
	}
	sourceCode, err := source.Load(sourcePath)
	if err != nil {
		if errors.Is(err, source.ErrMissingArtifact) {
			fmt.Fprintf(out, "\n❌ %s not found. Run: %s\n", displayPath(sourcePath), source.FlattenCommand)
		}
		return err
	}
	fmt.Fprintf(out, "\n📄 Source loaded: %d characters\n", utf8.RuneCountInString(sourceCode))

	// Encode constructor arguments
	constructorArgs, err := cfg.Addresses.Encode()
	if err != nil {
		return fmt.Errorf("%w: %v", config.ErrConfiguration, err)
	}
	fmt.Fprintln(out, "\n🔧 Constructor Args:")
	fmt.Fprintf(out, "   %s\n", constructorArgs)

	if opts.checkCode {
		rpcURL := cfg.RPCURL
		if opts.rpcURL != "" {
			rpcURL = opts.rpcURL
		}
		if err := checkDeployedCode(ctx, out, rpcURL, cfg.Implementation, settings); err != nil {
			return err
		}
	}

	svc := verification.NewService(registry, settings, verification.BlockscoutClients(timeout, logger), logger)
	sub := verification.Submission{
		Network:         network.Name,
		Address:         cfg.Implementation,
		SourceCode:      sourceCode,
		ConstructorArgs: constructorArgs,
		APIKey:          key,
	}

	fmt.Fprintf(out, "\n🔍 Verifying on %s\n", network.Name)
	fmt.Fprintf(out, "   API: %s\n", network.VerificationURL(cfg.Implementation))
	fmt.Fprintf(out, "   Contract: %s\n", cfg.Implementation)

	if opts.dryRun {
		printDryRun(out, svc.Request(sub), key != "")
		return nil
	}

	result, err := svc.Submit(ctx, sub)
	if err != nil {
		printFailure(out, err)
		printManualGuidance(out, network, cfg.Implementation, settings, constructorArgs)
		return err
	}

	printSuccess(out, result, cfg.Proxy)
	return nil
}

// checkDeployedCode confirms the implementation has code and compares the
// compiler recorded in its metadata with the configured one.
func checkDeployedCode(ctx context.Context, out io.Writer, rpcURL, address string, settings verification.Settings) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client, err := evm.Dial(ctx, rpcURL)
	if err != nil {
		return err
	}
	defer client.Close()

	code, err := evm.InspectCode(ctx, client, address)
	if err != nil {
		if errors.Is(err, evm.ErrNoCode) {
			fmt.Fprintf(out, "\n❌ No contract code at %s (rpc: %s)\n", address, rpcURL)
		}
		return err
	}

	fmt.Fprintf(out, "\n⛓️  Deployed code: %d bytes", code.Size)
	if code.SolcVersion != "" {
		fmt.Fprintf(out, ", compiled with solc %s", code.SolcVersion)
	}
	fmt.Fprintln(out)
	if code.SolcVersion != "" && code.SolcVersion != settings.CompilerRelease() {
		fmt.Fprintf(out, "   ⚠️  Compiler mismatch: deployed %s, configured %s\n", code.SolcVersion, settings.Compiler)
	}
	return nil
}

func printConfiguration(out io.Writer, cfg *config.Config) {
	fmt.Fprintln(out, "\n📋 Configuration:")
	fmt.Fprintf(out, "   Admin: %s\n", cfg.Addresses.Admin)
	fmt.Fprintf(out, "   Upgrader: %s\n", cfg.Addresses.Upgrader)
	fmt.Fprintf(out, "   Treasury 1: %s\n", cfg.Addresses.Treasury1)
	fmt.Fprintf(out, "   Treasury 2: %s\n", cfg.Addresses.Treasury2)
	fmt.Fprintf(out, "   Verifier: %s\n", cfg.Addresses.Verifier)
}

func printDryRun(out io.Writer, req blockscout.FlattenedRequest, authenticated bool) {
	fmt.Fprintln(out, "\n📝 Dry run, request not sent:")
	fmt.Fprintf(out, "   compiler: %s\n", req.Compiler)
	fmt.Fprintf(out, "   contractName: %s\n", req.ContractName)
	fmt.Fprintf(out, "   optimizationUsed: %t\n", req.OptimizationUsed)
	fmt.Fprintf(out, "   runs: %d\n", req.Runs)
	fmt.Fprintf(out, "   evmVersion: %s\n", req.EVMVersion)
	fmt.Fprintf(out, "   sourceCode: %d bytes\n", len(req.SourceCode))
	fmt.Fprintf(out, "   authenticated: %t\n", authenticated)
}

func printFailure(out io.Writer, err error) {
	var rejected *blockscout.RejectedError
	switch {
	case errors.As(err, &rejected):
		fmt.Fprintln(out, "❌ Verification failed")
		fmt.Fprintf(out, "   Status: %d\n", rejected.StatusCode)
		fmt.Fprintf(out, "   Response: %s\n", blockscout.Preview(rejected.Body, 500))
	default:
		fmt.Fprintf(out, "❌ Error: %v\n", err)
	}
}

func printSuccess(out io.Writer, result *verification.Result, proxy string) {
	if result.Outcome == blockscout.OutcomeVerified {
		fmt.Fprintln(out, "✅ Verification successful!")
	} else {
		fmt.Fprintln(out, "⚠️  Verification submitted")
	}
	fmt.Fprintf(out, "   Response: %s\n", result.Preview)

	fmt.Fprintln(out, "\n✅ Verification complete!")
	fmt.Fprintf(out, "   🔗 %s\n", result.AddressURL)
	if proxy != "" {
		fmt.Fprintf(out, "   🔗 Proxy: %s\n", result.Network.AddressURL(proxy))
		fmt.Fprintln(out, "\n⚠️  Note: Proxy contracts are automatically detected by Blockscout")
		fmt.Fprintln(out, "   once the implementation is verified.")
	}
}

func printManualGuidance(out io.Writer, network networks.Network, address string, settings verification.Settings, constructorArgs string) {
	fmt.Fprintln(out, "\n❌ Verification failed")
	fmt.Fprintln(out, "\n💡 Try manual verification:")
	fmt.Fprintf(out, "   1. Go to the contract page: %s\n", network.ContractCodeURL(address))
	fmt.Fprintln(out, "   2. Click 'Verify & Publish'")
	fmt.Fprintln(out, "   3. Use the constructor args above")
	fmt.Fprintln(out, "\nManual verification details:")
	fmt.Fprintf(out, "  - Compiler: %s\n", settings.Compiler)
	if settings.OptimizationUsed {
		fmt.Fprintf(out, "  - Optimization: Yes (%d runs)\n", settings.Runs)
	} else {
		fmt.Fprintln(out, "  - Optimization: No")
	}
	fmt.Fprintf(out, "  - Constructor args: %s\n", constructorArgs)
}

func displayPath(path string) string {
	if path == "" {
		return source.DefaultPath
	}
	return path
}
