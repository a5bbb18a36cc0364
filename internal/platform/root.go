package platform

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/aretw0/continuum/internal/config"
	"github.com/aretw0/continuum/pkg/adapters/fs"
)

// ErrRootNotFound is returned by FindRoot when no marker exists up to the
// filesystem root.
var ErrRootNotFound = errors.New("root not found")

// rootMarkers identify a document root, in order of precedence.
var rootMarkers = []string{config.DefaultFile, fs.DefaultSystemDir, ".git"}

// FindRoot looks upwards from startDir for a document root: a directory
// holding continuum.toml, a .continuum directory or a .git directory.
// It returns the absolute path of the first one found.
func FindRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		for _, marker := range rootMarkers {
			if hasFile(dir, marker) {
				return dir, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrRootNotFound
		}
		dir = parent
	}
}

func hasFile(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}
