package cluster

import (
	"errors"
	"strings"

	"github.com/alfredjeanlab/issuegraph/internal/model"
)

// ErrInvalidKeys is returned by CommonPath for a nil key list.
var ErrInvalidKeys = errors.New("cluster: keys must be a list")

// PathToRoot returns the normalized names of the levels above key. A key
// with children contributes nothing itself; a leaf is named by the level
// directly above it. found is false when key is not in the tree.
func PathToRoot(tree *Tree, key string) (path []string, found bool) {
	path, leaf, found := pathToRoot(tree, key)
	if leaf {
		// Only reachable when key is a top-level leaf.
		return []string{}, found
	}
	return path, found
}

func pathToRoot(tree *Tree, key string) (path []string, leaf, found bool) {
	for _, name := range tree.keys {
		sub := tree.children[name]
		if name == key {
			if sub.Len() > 0 {
				return []string{}, false, true
			}
			return nil, true, true
		}
		rest, leaf, found := pathToRoot(sub, key)
		if !found {
			continue
		}
		if leaf {
			return []string{model.SnakeCase(name)}, false, true
		}
		return append([]string{model.SnakeCase(name)}, rest...), false, true
	}
	return nil, false, false
}

// CommonPath returns the longest common prefix of the paths of keys. A key
// missing from the tree yields an empty result.
func CommonPath(tree *Tree, keys []string) ([]string, error) {
	if keys == nil {
		return nil, ErrInvalidKeys
	}
	if len(keys) == 0 {
		return []string{}, nil
	}
	paths := make([][]string, 0, len(keys))
	for _, k := range keys {
		p, ok := PathToRoot(tree, k)
		if !ok {
			return []string{}, nil
		}
		paths = append(paths, p)
	}

	common := []string{}
	for i := 0; ; i++ {
		if i >= len(paths[0]) {
			return common, nil
		}
		seg := paths[0][i]
		for _, p := range paths[1:] {
			if i >= len(p) || p[i] != seg {
				return common, nil
			}
		}
		common = append(common, seg)
	}
}

// ContainingCluster names the cluster for path: segments are paired
// (parent, state) and the deepest group names the cluster. An empty path
// has no cluster.
func ContainingCluster(path []string) string {
	if len(path) == 0 {
		return ""
	}
	start := (len(path) - 1) / 2 * 2
	return "cluster_" + strings.Join(path[start:], "_")
}
