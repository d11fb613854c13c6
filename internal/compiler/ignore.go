package compiler

import (
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/denormal/go-gitignore"
)

// hardIgnores are enforced regardless of ProjectConfig.Ignore, per
// spec.md §4.1 step 3 ("minus configured ignore patterns and
// node_modules and **/*.d.ts").
var hardIgnores = []string{"node_modules/", "**/node_modules/**", "**/*.d.ts"}

type ignoreRule struct {
	pattern string
	ignore  gitignore.GitIgnore
}

// IgnoreSet evaluates a source path against a project's configured
// ignore patterns, the always-on node_modules/*.d.ts exclusions, and
// (per SPEC_FULL.md's supplemented features) the .gitignore in the
// group root, if present. Patterns use gitignore syntax, matching
// spec.md's own example ("**/generated/**").
type IgnoreSet struct {
	root  string
	rules []ignoreRule
}

// NewIgnoreSet builds the ignore evaluator for a group root.
func NewIgnoreSet(root string, configured []string) (*IgnoreSet, error) {
	all := make([]string, 0, len(configured)+len(hardIgnores)+8)
	all = append(all, hardIgnores...)
	all = append(all, configured...)
	all = append(all, gitignoreLines(root)...)

	rules := make([]ignoreRule, 0, len(all))
	for _, pattern := range all {
		gi := gitignore.New(strings.NewReader(pattern), root, nil)
		rules = append(rules, ignoreRule{pattern: pattern, ignore: gi})
	}
	return &IgnoreSet{root: root, rules: rules}, nil
}

func gitignoreLines(root string) []string {
	data, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// MatchedPattern returns the first pattern that ignores path and true,
// or ("", false) if no rule ignores it. Rules are checked in order: the
// hardcoded exclusions, then the configured patterns, then .gitignore
// lines. Implements spec.md
// §4.1's "ignored by configured pattern" diagnostic and §8 invariant 5.
func (is *IgnoreSet) MatchedPattern(path string) (string, bool) {
	for _, r := range is.rules {
		m := r.ignore.Match(path)
		if m != nil && m.Ignore() {
			return r.pattern, true
		}
	}
	return "", false
}

// Ignored reports whether path is excluded by any rule.
func (is *IgnoreSet) Ignored(path string) bool {
	_, ignored := is.MatchedPattern(path)
	return ignored
}

// WithoutPattern returns a copy of the set with the named pattern
// removed, used to implement spec.md §8 invariant 5's "glob with
// include-set minus G" comparison.
func (is *IgnoreSet) WithoutPattern(pattern string) *IgnoreSet {
	out := &IgnoreSet{root: is.root}
	for _, r := range is.rules {
		if r.pattern == pattern {
			continue
		}
		out.rules = append(out.rules, r)
	}
	return out
}
