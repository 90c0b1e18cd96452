// Package validation provides input validation for blockscout-verify.
package validation

import (
	"errors"
	"regexp"
	"strings"

	"golang.org/x/mod/semver"
)

// Solidity identifiers: letters, digits, underscore and dollar, not starting with a digit
var contractNameRegex = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]{0,127}$`)

// ValidateAddress validates an Ethereum address
func ValidateAddress(addr string) error {
	if len(addr) != 42 {
		return errors.New("invalid address length: must be 42 characters (0x + 40 hex)")
	}
	if !strings.HasPrefix(addr, "0x") && !strings.HasPrefix(addr, "0X") {
		return errors.New("invalid address: must start with 0x")
	}
	// Check hex characters
	for _, c := range addr[2:] {
		isDigit := c >= '0' && c <= '9'
		isLowerHex := c >= 'a' && c <= 'f'
		isUpperHex := c >= 'A' && c <= 'F'
		if !isDigit && !isLowerHex && !isUpperHex {
			return errors.New("invalid address: contains non-hex characters")
		}
	}
	return nil
}

// ValidateCompilerVersion validates a solc long version string such as
// v0.8.22+commit.4fc1097e. The commit build metadata is required because
// explorers match compilers by their full build string.
func ValidateCompilerVersion(v string) error {
	if v == "" {
		return errors.New("compiler version cannot be empty")
	}
	if !strings.HasPrefix(v, "v") {
		return errors.New("invalid compiler version: must start with 'v'")
	}
	if !semver.IsValid(v) {
		return errors.New("invalid compiler version: must be in format vX.Y.Z+commit.<hash>")
	}

	// semver accepts v0.8 as shorthand, solc versions are always major.minor.patch
	core := strings.SplitN(strings.TrimPrefix(v, "v"), "+", 2)[0]
	core = strings.SplitN(core, "-", 2)[0]
	if strings.Count(core, ".") != 2 {
		return errors.New("invalid compiler version: must be in format vX.Y.Z+commit.<hash>")
	}

	if !strings.HasPrefix(semver.Build(v), "+commit.") {
		return errors.New("invalid compiler version: missing +commit.<hash> build metadata")
	}
	return nil
}

// ValidateContractName validates a Solidity contract identifier
func ValidateContractName(name string) error {
	if name == "" {
		return errors.New("contract name cannot be empty")
	}
	if !contractNameRegex.MatchString(name) {
		return errors.New("invalid contract name: must be a Solidity identifier")
	}
	return nil
}

// ValidateOptimizerRuns validates the solc optimizer runs setting
func ValidateOptimizerRuns(runs int) error {
	if runs < 0 {
		return errors.New("optimizer runs cannot be negative")
	}
	return nil
}
