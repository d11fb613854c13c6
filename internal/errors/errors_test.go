package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompileErrorCarriesFileAndCause(t *testing.T) {
	cause := errors.New("unexpected token")
	err := Compile("/proj/a.ts", cause)

	assert.Equal(t, KindCompile, err.Kind)
	assert.Equal(t, "/proj/a.ts", err.File)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "/proj/a.ts")
}

func TestMissingDestinationNamesThePattern(t *testing.T) {
	err := MissingDestination("/proj/generated/a.ts", "**/generated/**")
	assert.Equal(t, "**/generated/**", err.Pattern)
	assert.Contains(t, err.Error(), "**/generated/**")
}

func TestIsMatchesByKindOnly(t *testing.T) {
	a := Compile("/proj/a.ts", errors.New("x"))
	b := Compile("/proj/b.ts", errors.New("y"))
	assert.True(t, errors.Is(a, b), "two Compile errors must match by Kind regardless of File")

	c := OutsideProject("/proj/c.ts")
	assert.False(t, errors.Is(a, c))
}

func TestSyncBridgeProtocolMessage(t *testing.T) {
	err := SyncBridgeProtocol("1", "2")
	assert.Contains(t, err.Error(), "1")
	assert.Contains(t, err.Error(), "2")
	assert.Equal(t, KindSyncBridgeProtocol, err.Kind)
}
