package treegraph

import (
	_ "embed"
	"fmt"
	"os"
)

// defaultTreeJSON is a small synthetic passive-tree graph vendored for
// environments that don't supply a TREE_DATA_PATH. A production
// deployment points TREE_DATA_PATH at the real game's exported
// passive-tree JSON; this bundled copy exists so the server has
// something to boot with.
//
//go:embed data/default_tree.json
var defaultTreeJSON []byte

// LoadDefault parses the bundled default tree.
func LoadDefault() (*Graph, error) {
	return Load(defaultTreeJSON)
}

// LoadFromFile reads path and parses it as a passive-tree JSON blob. An
// empty path loads the bundled default instead.
func LoadFromFile(path string) (*Graph, error) {
	if path == "" {
		return LoadDefault()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("treegraph: read %s: %w", path, err)
	}
	return Load(raw)
}
