// Package source loads the pre-generated flattened contract source.
package source

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// DefaultPath is where the flatten build step writes its output
const DefaultPath = "flattened.sol"

// FlattenCommand is the build step that produces the flattened source
const FlattenCommand = "npm run flatten"

// ErrMissingArtifact is returned when the flattened source has not been generated
var ErrMissingArtifact = errors.New("flattened source not found")

// Load reads the flattened source at path
func Load(path string) (string, error) {
	if path == "" {
		path = DefaultPath
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s (run: %s)", ErrMissingArtifact, path, FlattenCommand)
		}
		return "", fmt.Errorf("checking %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory (run: %s)", ErrMissingArtifact, path, FlattenCommand)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}

	if strings.TrimSpace(string(data)) == "" {
		return "", fmt.Errorf("%w: %s is empty (run: %s)", ErrMissingArtifact, path, FlattenCommand)
	}

	return string(data), nil
}
