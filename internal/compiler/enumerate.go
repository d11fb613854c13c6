package compiler

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Enumerate walks root for files whose extension is one of extensions
// and which no rule in ignores excludes, implementing spec.md §4.1
// step 3.
func Enumerate(root string, extensions []string, ignores *IgnoreSet) ([]SourcePath, error) {
	extSet := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		extSet[e] = true
	}

	var out []SourcePath
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !extSet[filepath.Ext(path)] {
			return nil
		}
		if ignores.Ignored(path) {
			return nil
		}
		out = append(out, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("enumerating %s: %w", root, err)
	}
	return out, nil
}

// GroupRootFor returns the nearest ancestor directory of path containing
// a package.json manifest — spec.md §3's GroupRoot.
func GroupRootFor(path string) (GroupRoot, error) {
	dir := filepath.Dir(path)
	for {
		if info, err := os.Stat(filepath.Join(dir, "package.json")); err == nil && !info.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no package.json found above %s", path)
		}
		dir = parent
	}
}

func contains(haystack []SourcePath, needle SourcePath) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
