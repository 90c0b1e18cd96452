package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/colordrop/blockscout-verify/internal/evm"
	"github.com/colordrop/blockscout-verify/internal/networks"
	"github.com/colordrop/blockscout-verify/internal/validation"
)

// Environment keys for the constructor addresses and explorer credentials
const (
	EnvAdmin     = "ADMIN_ADDRESS"
	EnvUpgrader  = "UPGRADER_ADDRESS"
	EnvTreasury1 = "TREASURY_ADDRESS_1"
	EnvTreasury2 = "TREASURY_ADDRESS_2"
	EnvVerifier  = "VERIFIER_ADDRESS"
	EnvAPIKey    = "BLOCKSCOUT_API_KEY"
)

// DefaultTimeout bounds the single verification request
const DefaultTimeout = 60 * time.Second

// ErrConfiguration is returned when required input is missing or malformed
var ErrConfiguration = errors.New("configuration error")

// constructorKeys are the constructor address keys, in constructor order
var constructorKeys = []string{EnvAdmin, EnvUpgrader, EnvTreasury1, EnvTreasury2, EnvVerifier}

// Config holds everything a verification run needs, resolved once at startup
type Config struct {
	Network        string
	Addresses      evm.ConstructorAddresses
	Implementation string // contract being verified
	Proxy          string // optional, only used for explorer links
	APIKey         string // optional
	RPCURL         string // network default unless overridden by the network's RPC env key
	HTTP           HTTPConfig
	Logging        LoggingConfig
	Metrics        MetricsConfig
}

// HTTPConfig holds outbound request settings
type HTTPConfig struct {
	Timeout time.Duration
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string
	Format string // "text" or "json"
}

// MetricsConfig holds Pushgateway settings. Metrics are only collected when
// PushgatewayURL is set.
type MetricsConfig struct {
	PushgatewayURL string
	Job            string
}

// Load loads configuration for network from environment variables.
// All required keys are checked before failing, and the error names every
// missing or malformed key.
func Load(network networks.Network) (*Config, error) {
	var p problems

	addrs := readAddresses(&p)
	impl := p.requireAddress(network.ImplementationEnv)
	proxy := p.optionalAddress(network.ProxyEnv)

	if err := p.err(); err != nil {
		return nil, err
	}

	return &Config{
		Network:        network.Name,
		Addresses:      addrs,
		Implementation: impl,
		Proxy:          proxy,
		APIKey:         getEnv(EnvAPIKey, ""),
		RPCURL:         getEnv(network.RPCEnv, network.RPCURL),
		HTTP:           LoadHTTP(),
		Logging:        LoadLogging(),
		Metrics:        LoadMetrics(),
	}, nil
}

// LoadConstructorAddresses loads only the constructor addresses
func LoadConstructorAddresses() (evm.ConstructorAddresses, error) {
	var p problems
	addrs := readAddresses(&p)
	if err := p.err(); err != nil {
		return evm.ConstructorAddresses{}, err
	}
	return addrs, nil
}

// LoadHTTP loads outbound request settings
func LoadHTTP() HTTPConfig {
	seconds := getEnvInt("VERIFY_TIMEOUT_SECONDS", int(DefaultTimeout/time.Second))
	if seconds <= 0 {
		seconds = int(DefaultTimeout / time.Second)
	}
	return HTTPConfig{Timeout: time.Duration(seconds) * time.Second}
}

// LoadLogging loads logging settings
func LoadLogging() LoggingConfig {
	return LoggingConfig{
		Level:  getEnv("LOG_LEVEL", "info"),
		Format: getEnv("LOG_FORMAT", "text"),
	}
}

// LoadMetrics loads Pushgateway settings
func LoadMetrics() MetricsConfig {
	return MetricsConfig{
		PushgatewayURL: getEnv("METRICS_PUSHGATEWAY_URL", ""),
		Job:            getEnv("METRICS_JOB", "blockscout_verify"),
	}
}

// RequiredKeys returns the environment keys a verification run on network needs
func RequiredKeys(network networks.Network) []string {
	keys := append([]string{}, constructorKeys...)
	return append(keys, network.ImplementationEnv)
}

// LoadDotEnv loads KEY=value pairs from path into the process environment.
// Variables that are already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("checking %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("%w: parsing %s: %v", ErrConfiguration, path, err)
	}
	return nil
}

func readAddresses(p *problems) evm.ConstructorAddresses {
	return evm.ConstructorAddresses{
		Admin:     p.requireAddress(EnvAdmin),
		Upgrader:  p.requireAddress(EnvUpgrader),
		Treasury1: p.requireAddress(EnvTreasury1),
		Treasury2: p.requireAddress(EnvTreasury2),
		Verifier:  p.requireAddress(EnvVerifier),
	}
}

// problems accumulates missing and malformed keys so they are reported together
type problems struct {
	missing []string
	invalid []string
}

func (p *problems) requireAddress(key string) string {
	value := getEnv(key, "")
	if value == "" {
		p.missing = append(p.missing, key)
		return ""
	}
	if err := validation.ValidateAddress(value); err != nil {
		p.invalid = append(p.invalid, fmt.Sprintf("%s (%v)", key, err))
	}
	return value
}

func (p *problems) optionalAddress(key string) string {
	value := getEnv(key, "")
	if value == "" {
		return ""
	}
	if err := validation.ValidateAddress(value); err != nil {
		p.invalid = append(p.invalid, fmt.Sprintf("%s (%v)", key, err))
	}
	return value
}

func (p *problems) err() error {
	var parts []string
	if len(p.missing) > 0 {
		parts = append(parts, "missing environment variables: "+strings.Join(p.missing, ", "))
	}
	if len(p.invalid) > 0 {
		parts = append(parts, "invalid addresses: "+strings.Join(p.invalid, "; "))
	}
	if len(parts) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrConfiguration, strings.Join(parts, "; "))
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
