// Package buildinfo reads the compiler settings a contract was built with
// from Hardhat build-info files (hh-sol-build-info-1 format).
package buildinfo

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultDir is where Hardhat writes build-info files
const DefaultDir = "artifacts/build-info"

// ErrNotFound is returned when no build-info compiled the contract
var ErrNotFound = errors.New("build-info not found")

// BuildInfo is a Hardhat build-info file
type BuildInfo struct {
	Format          string          `json:"_format"`
	ID              string          `json:"id"`
	SolcVersion     string          `json:"solcVersion"`     // "0.8.22"
	SolcLongVersion string          `json:"solcLongVersion"` // "0.8.22+commit.4fc1097e"
	Input           Input           `json:"input"`
	Output          json.RawMessage `json:"output"`
}

// Input is the subset of the standard JSON input that affects verification
type Input struct {
	Language string   `json:"language"`
	Settings Settings `json:"settings"`
}

// Settings are the compiler settings from the standard JSON input
type Settings struct {
	Optimizer  Optimizer `json:"optimizer"`
	EVMVersion string    `json:"evmVersion"`
}

// Optimizer holds optimizer settings
type Optimizer struct {
	Enabled bool `json:"enabled"`
	Runs    int  `json:"runs"`
}

// Compilation describes how one contract was compiled
type Compilation struct {
	File             string // build-info file it was read from
	SourcePath       string // e.g. "contracts/ColorDropPool.sol"
	ContractName     string
	Compiler         string // explorer form, e.g. "v0.8.22+commit.4fc1097e"
	OptimizationUsed bool
	Runs             int
	EVMVersion       string // "default" when the build left it to solc
}

// outputContracts is output.contracts: source path -> contract name -> output
type outputContracts map[string]map[string]json.RawMessage

// Find returns the compilation of contractName from the first build-info in
// dir (by file name) whose output contains it.
func Find(dir, contractName string) (*Compilation, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s does not exist (run: npx hardhat compile)", ErrNotFound, dir)
		}
		return nil, fmt.Errorf("reading build-info directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		info, err := Read(path)
		if err != nil {
			continue
		}

		sourcePath, ok := info.sourceOf(contractName)
		if !ok {
			continue
		}
		return info.compilation(path, sourcePath, contractName), nil
	}

	return nil, fmt.Errorf("%w: no build-info in %s compiles %s", ErrNotFound, dir, contractName)
}

// Read parses a single build-info file
func Read(path string) (*BuildInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var info BuildInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if info.SolcLongVersion == "" {
		return nil, fmt.Errorf("parsing %s: missing solcLongVersion", path)
	}
	return &info, nil
}

// sourceOf returns the source path that produced contractName. When several
// sources declare the name, the first in sorted order wins.
func (b *BuildInfo) sourceOf(contractName string) (string, bool) {
	var output struct {
		Contracts outputContracts `json:"contracts"`
	}
	if err := json.Unmarshal(b.Output, &output); err != nil {
		return "", false
	}

	paths := make([]string, 0, len(output.Contracts))
	for path := range output.Contracts {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		if _, ok := output.Contracts[path][contractName]; ok {
			return path, true
		}
	}
	return "", false
}

func (b *BuildInfo) compilation(file, sourcePath, contractName string) *Compilation {
	opt := b.Input.Settings.Optimizer
	runs := opt.Runs
	// solc defaults runs to 200 when the optimizer is on and runs is omitted
	if opt.Enabled && runs == 0 {
		runs = 200
	}

	evmVersion := b.Input.Settings.EVMVersion
	if evmVersion == "" {
		evmVersion = "default"
	}

	return &Compilation{
		File:             file,
		SourcePath:       sourcePath,
		ContractName:     contractName,
		Compiler:         "v" + strings.TrimPrefix(b.SolcLongVersion, "v"),
		OptimizationUsed: opt.Enabled,
		Runs:             runs,
		EVMVersion:       evmVersion,
	}
}
