package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := NewRootCommand()

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, want := range []string{"sync", "watch", "recent", "status", "serve", "validate-config"} {
		assert.Contains(t, names, want)
	}
}

func TestRootCommand_InvalidFormat(t *testing.T) {
	_, err := runCLI(t, "validate-config", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestIsValidFormat(t *testing.T) {
	assert.True(t, isValidFormat("json"))
	assert.True(t, isValidFormat("text"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("yaml"))
}
