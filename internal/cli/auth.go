package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/colordrop/blockscout-verify/internal/networks"
)

// Credentials stores API keys per explorer
type Credentials struct {
	Explorers map[string]ExplorerCredential `yaml:"explorers"`
}

// ExplorerCredential stores the API key for a single explorer
type ExplorerCredential struct {
	APIKey  string `yaml:"api_key"`
	Network string `yaml:"network,omitempty"`
}

type authTarget struct {
	network  string
	explorer string
}

func (a *authTarget) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&a.network, "network", networks.Sepolia, "network whose explorer the key belongs to")
	cmd.Flags().StringVar(&a.explorer, "explorer", "", "explorer base URL (overrides --network)")
}

// resolve returns the explorer URL and the network name it belongs to
func (a authTarget) resolve() (string, string, error) {
	if a.explorer != "" {
		return strings.TrimRight(a.explorer, "/"), "", nil
	}
	registry, err := buildRegistry(loadProjectConfigSilent())
	if err != nil {
		return "", "", err
	}
	n, err := registry.Lookup(a.network)
	if err != nil {
		return "", "", err
	}
	return n.ExplorerURL, n.Name, nil
}

func createAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authentication commands",
	}

	cmd.AddCommand(createAuthLoginCmd())
	cmd.AddCommand(createAuthLogoutCmd())
	cmd.AddCommand(createAuthStatusCmd())

	return cmd
}

func createAuthLoginCmd() *cobra.Command {
	var target authTarget
	var apiKeyFlag string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Save an explorer API key",
		Long: `Save a Blockscout API key for an explorer.

The key is stored in ~/.blockscout-verify/credentials with secure file
permissions and is sent as a Bearer token when no --api-key flag or
BLOCKSCOUT_API_KEY is set.

EXAMPLES:
  # Interactive login (prompts for API key)
  blockscout-verify auth login --network celo

  # Self-hosted explorer
  blockscout-verify auth login --explorer https://explorer.example.com

  # Non-interactive login (for CI)
  blockscout-verify auth login --network sepolia --api-key $BLOCKSCOUT_API_KEY
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			explorer, network, err := target.resolve()
			if err != nil {
				return err
			}
			return runAuthLogin(cmd.InOrStdin(), cmd.OutOrStdout(), explorer, network, apiKeyFlag)
		},
	}

	target.register(cmd)
	cmd.Flags().StringVar(&apiKeyFlag, "api-key", "", "API key (prompts if not provided)")

	return cmd
}

func createAuthLogoutCmd() *cobra.Command {
	var target authTarget
	var allFlag bool

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Clear credentials",
		Long: `Remove the saved API key for an explorer.

EXAMPLES:
  # Logout from the Celo explorer
  blockscout-verify auth logout --network celo

  # Clear all credentials
  blockscout-verify auth logout --all
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if allFlag {
				return runAuthLogout(cmd.OutOrStdout(), "", true)
			}
			explorer, _, err := target.resolve()
			if err != nil {
				return err
			}
			return runAuthLogout(cmd.OutOrStdout(), explorer, false)
		},
	}

	target.register(cmd)
	cmd.Flags().BoolVar(&allFlag, "all", false, "clear all credentials")

	return cmd
}

func createAuthStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show authentication status",
		Long: `Show the explorers an API key is saved for.

EXAMPLES:
  blockscout-verify auth status
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthStatus(cmd.OutOrStdout())
		},
	}

	return cmd
}

func runAuthLogin(in io.Reader, out io.Writer, explorerURL, network, apiKeyInput string) error {
	key := apiKeyInput
	if key == "" {
		fmt.Fprintf(out, "Enter API key for %s: ", explorerURL)

		var err error
		key, err = readAPIKey(in)
		fmt.Fprintln(out)
		if err != nil {
			return fmt.Errorf("failed to read API key: %w", err)
		}
	}

	if key == "" {
		return fmt.Errorf("API key cannot be empty")
	}

	// Blockscout has no key-check endpoint, the key is stored as given
	if err := saveCredential(explorerURL, network, key); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	fmt.Fprintf(out, "✅ Saved API key for %s (key: %s)\n", explorerURL, maskAPIKey(key))
	fmt.Fprintf(out, "   Credentials saved to %s\n", credentialsFilePath())

	return nil
}

// readAPIKey reads without echo from a terminal, otherwise one line
func readAPIKey(in io.Reader) (string, error) {
	if f, ok := in.(*os.File); ok {
		fd := int(f.Fd())
		if term.IsTerminal(fd) {
			b, err := term.ReadPassword(fd)
			if err != nil {
				return "", err
			}
			return strings.TrimSpace(string(b)), nil
		}
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func runAuthLogout(out io.Writer, explorerURL string, all bool) error {
	if all {
		path := credentialsFilePath()
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove credentials: %w", err)
		}
		fmt.Fprintln(out, "✅ All credentials cleared")
		return nil
	}

	creds, err := loadCredentials()
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintf(out, "No credentials found for %s\n", explorerURL)
			return nil
		}
		return fmt.Errorf("failed to load credentials: %w", err)
	}

	if _, exists := creds.Explorers[explorerURL]; !exists {
		fmt.Fprintf(out, "No credentials found for %s\n", explorerURL)
		return nil
	}

	delete(creds.Explorers, explorerURL)

	if err := writeCredentials(creds); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	fmt.Fprintf(out, "✅ Logged out from %s\n", explorerURL)
	return nil
}

func runAuthStatus(out io.Writer) error {
	creds, err := loadCredentials()
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load credentials: %w", err)
	}

	if creds == nil || len(creds.Explorers) == 0 {
		fmt.Fprintln(out, "No saved API keys")
		fmt.Fprintln(out, "\nRun 'blockscout-verify auth login' to save one")
		return nil
	}

	explorers := make([]string, 0, len(creds.Explorers))
	for explorer := range creds.Explorers {
		explorers = append(explorers, explorer)
	}
	sort.Strings(explorers)

	fmt.Fprintln(out, "Saved API keys:")
	for _, explorer := range explorers {
		cred := creds.Explorers[explorer]
		masked := maskAPIKey(cred.APIKey)
		if cred.Network != "" {
			fmt.Fprintf(out, "  • %s (%s, key: %s)\n", explorer, cred.Network, masked)
		} else {
			fmt.Fprintf(out, "  • %s (key: %s)\n", explorer, masked)
		}
	}

	return nil
}

// Credential file helpers

func credentialsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".blockscout-verify"
	}
	return filepath.Join(home, ".blockscout-verify")
}

func credentialsFilePath() string {
	return filepath.Join(credentialsDir(), "credentials")
}

func loadCredentials() (*Credentials, error) {
	data, err := os.ReadFile(credentialsFilePath())
	if err != nil {
		return nil, err
	}

	var creds Credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return nil, err
	}

	if creds.Explorers == nil {
		creds.Explorers = make(map[string]ExplorerCredential)
	}

	return &creds, nil
}

func writeCredentials(creds *Credentials) error {
	if err := os.MkdirAll(credentialsDir(), 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(creds)
	if err != nil {
		return err
	}

	return os.WriteFile(credentialsFilePath(), data, 0600)
}

func saveCredential(explorerURL, network, key string) error {
	creds, err := loadCredentials()
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		creds = &Credentials{Explorers: make(map[string]ExplorerCredential)}
	}

	creds.Explorers[explorerURL] = ExplorerCredential{APIKey: key, Network: network}
	return writeCredentials(creds)
}

func getCredential(explorerURL string) string {
	creds, err := loadCredentials()
	if err != nil {
		return ""
	}
	return creds.Explorers[strings.TrimRight(explorerURL, "/")].APIKey
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:8] + "..." + key[len(key)-4:]
}
