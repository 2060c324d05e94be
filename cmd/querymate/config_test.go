package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qm.yaml")

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, defaultBaseURL, cfg.BaseURL)
	assert.Empty(t, cfg.Token)

	cfg.Token = "tok"
	cfg.Email = "owner@acme.test"
	require.NoError(t, cfg.save())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "tok", again.Token)
	assert.Equal(t, "owner@acme.test", again.Email)
}

func TestConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qm.yaml")
	require.NoError(t, os.WriteFile(path, []byte("base_url: [oops"), 0o600))

	_, err := loadConfig(path)
	assert.Error(t, err)
}
