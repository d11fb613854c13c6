package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateArgumentRejectsShellMetacharacters(t *testing.T) {
	for _, bad := range []string{"a;rm -rf /", "a && b", "$(whoami)", "a | b", "a`b`", "a>out"} {
		assert.Error(t, validateArgument(bad), "expected %q to be rejected", bad)
	}
}

func TestValidateArgumentAcceptsOrdinaryPaths(t *testing.T) {
	for _, ok := range []string{"src/index.ts", "--outfile=/tmp/out.js", "--format=cjs"} {
		assert.NoError(t, validateArgument(ok))
	}
}
