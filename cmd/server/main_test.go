package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandConfigFlagDefaultsToEnv(t *testing.T) {
	t.Setenv("RFID_BRIDGE_CONFIG", "/etc/rfid-bridge/site.yaml")

	flag := newRootCommand().PersistentFlags().Lookup("config")

	require.NotNil(t, flag)
	assert.Equal(t, "/etc/rfid-bridge/site.yaml", flag.DefValue)
}

func TestRootCommandFailsOnMissingConfig(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")})

	err := cmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load configuration")
}

func TestRootCommandRejectsArgs(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{"serve"})

	assert.Error(t, cmd.Execute())
}
