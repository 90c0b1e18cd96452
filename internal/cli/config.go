package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/colordrop/blockscout-verify/internal/buildinfo"
	"github.com/colordrop/blockscout-verify/internal/config"
	"github.com/colordrop/blockscout-verify/internal/networks"
	"github.com/colordrop/blockscout-verify/internal/source"
	"github.com/colordrop/blockscout-verify/internal/verification"
)

// projectConfigFiles is the search order for project config files
var projectConfigFiles = []string{"blockscout-verify.toml", ".blockscout-verify.toml"}

// ProjectConfig is the project-level TOML configuration
type ProjectConfig struct {
	Source   string                       `toml:"source,omitempty"`
	Contract ContractConfigTOML           `toml:"contract,omitempty"`
	Networks map[string]NetworkConfigTOML `toml:"networks,omitempty"`
}

// ContractConfigTOML overrides the compiler settings sent to the explorer
type ContractConfigTOML struct {
	Name         string `toml:"name,omitempty"`
	Compiler     string `toml:"compiler,omitempty"`
	Optimization *bool  `toml:"optimization,omitempty"`
	Runs         *int   `toml:"runs,omitempty"`
	EVMVersion   string `toml:"evm_version,omitempty"`
}

// NetworkConfigTOML overrides a network's explorer
type NetworkConfigTOML struct {
	Explorer string `toml:"explorer,omitempty"`
}

// settings returns the verification settings with project overrides applied
func (p *ProjectConfig) settings() verification.Settings {
	s := verification.DefaultSettings()
	if p == nil {
		return s
	}
	c := p.Contract
	if c.Name != "" {
		s.ContractName = c.Name
	}
	if c.Compiler != "" {
		s.Compiler = c.Compiler
	}
	if c.Optimization != nil {
		s.OptimizationUsed = *c.Optimization
	}
	if c.Runs != nil {
		s.Runs = *c.Runs
	}
	if c.EVMVersion != "" {
		s.EVMVersion = c.EVMVersion
	}
	return s
}

func createConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration commands",
	}

	cmd.AddCommand(createConfigInitCmd())
	cmd.AddCommand(createConfigShowCmd())

	return cmd
}

func createConfigInitCmd() *cobra.Command {
	var force bool
	var buildInfoDir string
	var contract string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create config file",
		Long: `Create a blockscout-verify.toml configuration file in the current directory.

The file records the compiler settings the contract was built with and
optional explorer overrides. Every value defaults to the ColorDropPool build.

EXAMPLES:
  # Create config with defaults
  blockscout-verify config init

  # Overwrite existing config
  blockscout-verify config init --force

  # Take compiler settings from the Hardhat build (artifacts/build-info)
  blockscout-verify config init --from-build-info
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(cmd.OutOrStdout(), force, buildInfoDir, contract)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing config")
	cmd.Flags().StringVar(&buildInfoDir, "from-build-info", "", "read compiler settings from a Hardhat build-info directory")
	cmd.Flags().Lookup("from-build-info").NoOptDefVal = buildinfo.DefaultDir
	cmd.Flags().StringVar(&contract, "contract", "", "contract to look up in build-info (default: ColorDropPool)")

	return cmd
}

func createConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display current config",
		Long: `Display the effective configuration for each network.

Shows the project config, the environment variables that are read,
and the resolved explorer and API key source.

EXAMPLES:
  blockscout-verify config show
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd.OutOrStdout())
		},
	}

	return cmd
}

func runConfigInit(out io.Writer, force bool, buildInfoDir, contract string) error {
	configPath := projectConfigFiles[0]

	// Check if any config file already exists
	for _, name := range projectConfigFiles {
		if _, err := os.Stat(name); err == nil && !force {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", name)
		}
	}

	s := verification.DefaultSettings()
	if contract != "" {
		s.ContractName = contract
	}
	if buildInfoDir != "" {
		comp, err := buildinfo.Find(buildInfoDir, s.ContractName)
		if err != nil {
			return err
		}
		s.Compiler = comp.Compiler
		s.OptimizationUsed = comp.OptimizationUsed
		s.Runs = comp.Runs
		s.EVMVersion = comp.EVMVersion
		fmt.Fprintf(out, "Detected %s (%s) in %s\n", comp.ContractName, comp.SourcePath, comp.File)
	}
	if err := s.Validate(); err != nil {
		return err
	}

	content := fmt.Sprintf(`# blockscout-verify project configuration

# Flattened source produced by: %s
source = %q

[contract]
name = %q
compiler = %q
optimization = %t
runs = %d
evm_version = %q

# Explorer overrides (self-hosted Blockscout)
# [networks.sepolia]
# explorer = "https://celo-sepolia.blockscout.com"
`, source.FlattenCommand, source.DefaultPath, s.ContractName, s.Compiler, s.OptimizationUsed, s.Runs, s.EVMVersion)

	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Fprintf(out, "Created %s\n", configPath)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintf(out, "  1. Run '%s' to generate %s\n", source.FlattenCommand, source.DefaultPath)
	fmt.Fprintln(out, "  2. Set the constructor addresses in .env")
	fmt.Fprintln(out, "  3. Run 'blockscout-verify sepolia'")

	return nil
}

func runConfigShow(out io.Writer) error {
	if err := loadEnvironment(); err != nil {
		return err
	}

	fmt.Fprintln(out, "Configuration sources (in order of precedence):")
	fmt.Fprintln(out)

	// 1. Command line flags
	fmt.Fprintln(out, "1. Command line flags")
	fmt.Fprintln(out, "   --api-key, --config, --env-file, --source, --explorer-url, --timeout")
	fmt.Fprintln(out)

	// 2. Environment
	fmt.Fprintf(out, "2. Environment (dotenv file: %s)\n", envFile)
	registry := networks.DefaultRegistry()
	keys := []string{config.EnvAdmin, config.EnvUpgrader, config.EnvTreasury1, config.EnvTreasury2, config.EnvVerifier}
	for _, n := range registry.List() {
		keys = append(keys, n.ImplementationEnv, n.ProxyEnv)
	}
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			fmt.Fprintf(out, "   %s=%s\n", key, v)
		} else {
			fmt.Fprintf(out, "   %s=(not set)\n", key)
		}
	}
	if v := os.Getenv(config.EnvAPIKey); v != "" {
		fmt.Fprintf(out, "   %s=%s\n", config.EnvAPIKey, maskAPIKey(v))
	} else {
		fmt.Fprintf(out, "   %s=(not set)\n", config.EnvAPIKey)
	}
	fmt.Fprintln(out)

	// 3. Project config
	fmt.Fprintln(out, "3. Project config (blockscout-verify.toml or .blockscout-verify.toml)")
	project, configPath, err := loadProjectConfig()
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintln(out, "   (not found)")
		} else {
			fmt.Fprintf(out, "   Error: %v\n", err)
		}
	} else {
		fmt.Fprintf(out, "   Loaded from: %s\n", configPath)
		if project.Source != "" {
			fmt.Fprintf(out, "   source: %s\n", project.Source)
		}
		for name, n := range project.Networks {
			if n.Explorer != "" {
				fmt.Fprintf(out, "   networks.%s.explorer: %s\n", name, n.Explorer)
			}
		}
	}
	fmt.Fprintln(out)

	// Effective config
	s := project.settings()
	fmt.Fprintln(out, "Effective configuration:")
	fmt.Fprintf(out, "   Contract:     %s\n", s.ContractName)
	fmt.Fprintf(out, "   Compiler:     %s\n", s.Compiler)
	fmt.Fprintf(out, "   Optimization: %t (%d runs)\n", s.OptimizationUsed, s.Runs)
	fmt.Fprintf(out, "   EVM version:  %s\n", s.EVMVersion)
	fmt.Fprintf(out, "   Timeout:      %s\n", config.LoadHTTP().Timeout)
	if err := s.Validate(); err != nil {
		fmt.Fprintf(out, "   ⚠️  %v\n", err)
	}

	overridden, err := buildRegistry(project)
	if err != nil {
		return err
	}
	for _, n := range overridden.List() {
		fmt.Fprintf(out, "   %s explorer: %s\n", n.Name, n.ExplorerURL)
		if key := getAPIKey(os.Getenv(config.EnvAPIKey), n.ExplorerURL); key != "" {
			fmt.Fprintf(out, "   %s API key:  %s\n", n.Name, maskAPIKey(key))
		} else {
			fmt.Fprintf(out, "   %s API key:  (not set)\n", n.Name)
		}
	}

	return nil
}

// loadProjectConfig loads the project config from the first matching config file.
// Returns the config, the path it was loaded from, and an error.
func loadProjectConfig() (*ProjectConfig, string, error) {
	// If --config flag was provided, use that directly
	if cfgFile != "" {
		cfg, err := loadProjectConfigFromPath(cfgFile)
		if err != nil {
			return nil, cfgFile, err
		}
		return cfg, cfgFile, nil
	}

	// Search for config files in order
	for _, name := range projectConfigFiles {
		if _, err := os.Stat(name); err == nil {
			cfg, err := loadProjectConfigFromPath(name)
			if err != nil {
				return nil, name, err
			}
			return cfg, name, nil
		}
	}
	return nil, "", os.ErrNotExist
}

// loadProjectConfigFromPath loads a project config from a specific path
func loadProjectConfigFromPath(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg ProjectConfig
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, fmt.Errorf("parsing TOML: %w", err)
	}

	// Relative source paths are relative to the config file
	if cfg.Source != "" && !filepath.IsAbs(cfg.Source) {
		cfg.Source = filepath.Join(filepath.Dir(path), cfg.Source)
	}

	return &cfg, nil
}

// loadProjectConfigSilent loads the project config without returning errors for missing files.
// Returns nil if the file doesn't exist, but warns about parse failures.
func loadProjectConfigSilent() *ProjectConfig {
	cfg, _, err := loadProjectConfig()
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		fmt.Fprintf(os.Stderr, "Warning: failed to load project config: %v\n", err)
		return nil
	}
	return cfg
}
