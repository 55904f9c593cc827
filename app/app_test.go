package app

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scopeguard/scopeguard/internal/config"
)

func run(t *testing.T, args ...string) string {
	t.Helper()

	var out bytes.Buffer

	rootCmd.SetOut(&out)
	rootCmd.SetArgs(append(args, "--config", "../etc/"))

	require.NoError(t, rootCmd.Execute())

	return out.String()
}

func TestCommandsRegistered(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"start", "expire", "seed", "config"} {
		assert.True(t, names[want], want)
	}
}

func TestConfigCommand(t *testing.T) {
	out := run(t, "config")
	assert.Contains(t, out, `Title = "ScopeGuard"`)

	out = run(t, "config", "--json")

	var c config.Config
	require.NoError(t, json.Unmarshal([]byte(out), &c))
	assert.Equal(t, "ScopeGuard", c.Title)
	assert.Equal(t, filepath.Join("../etc/", "catalog.toml"), c.CatalogFile)

	dumpJSON = false
}

func TestSeedThenExpire(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "scopeguard.db")
	t.Setenv(config.EnvConfigJSON, `{"DB":{"Engine":"sqlite","Path":"`+dbPath+`"}}`)

	out := run(t, "seed")
	assert.Equal(t, "modules: 3, tenants: 1, users: 2, roles: 4, incompatibilities: 1\n", out)

	out = run(t, "expire")
	assert.Equal(t, "expired assignments: 0\n", out)
}
