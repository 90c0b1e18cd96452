// Package verification submits flattened contract source to a network's
// Blockscout explorer.
package verification

import (
	"strings"

	"golang.org/x/mod/semver"

	"github.com/colordrop/blockscout-verify/internal/blockscout"
	"github.com/colordrop/blockscout-verify/internal/networks"
)

// Settings are the compiler settings sent with every submission
type Settings struct {
	Compiler         string
	ContractName     string
	OptimizationUsed bool
	Runs             int
	EVMVersion       string
}

// DefaultSettings returns the settings the ColorDropPool implementation is
// compiled with.
func DefaultSettings() Settings {
	return Settings{
		Compiler:         blockscout.DefaultCompiler,
		ContractName:     blockscout.DefaultContractName,
		OptimizationUsed: true,
		Runs:             blockscout.DefaultRuns,
		EVMVersion:       blockscout.DefaultEVMVersion,
	}
}

// CompilerRelease returns the compiler version without build metadata,
// e.g. "0.8.22" for "v0.8.22+commit.4fc1097e".
func (st Settings) CompilerRelease() string {
	return strings.TrimPrefix(semver.Canonical(st.Compiler), "v")
}

// Submission is one verification request
type Submission struct {
	Network         string
	Address         string
	SourceCode      string
	ConstructorArgs string // ABI-encoded, no 0x prefix
	APIKey          string // optional
}

// Result is an accepted submission
type Result struct {
	Network    networks.Network
	Address    string
	Outcome    blockscout.Outcome
	StatusCode int
	Body       string
	Preview    string
	RequestID  string
	AddressURL string
}
