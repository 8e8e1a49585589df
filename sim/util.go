package sim

import (
	"path/filepath"
	"strings"
)

// pluginBase strips the directory and .so extension from a plugin path.
func pluginBase(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ".so")
}
