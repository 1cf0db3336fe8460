package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	configassets "github.com/andreybo/r2-file-manager/internal/assets/configs"
)

func TestConfigShow_AppliesFlags(t *testing.T) {
	out, err := runCLI(t, "config", "show", "--backend", "memory", "--bucket", "assets")
	require.NoError(t, err)

	var shown map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &shown))
	store, ok := shown["store"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "memory", store["backend"])
	assert.Equal(t, "assets", store["bucket"])
	assert.NotContains(t, store, "secret_access_key")
}

func TestConfigInit_DefaultLocation(t *testing.T) {
	out, err := runCLI(t, "config", "init")
	require.NoError(t, err)

	target := filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "r2fm", "config.yaml")
	assert.Contains(t, out, target)
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, configassets.ExampleConfig, data)
}

func TestConfigInit_ExplicitPathRoundTrip(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "r2fm.yaml")

	_, err := runCLI(t, "config", "init", target)
	require.NoError(t, err)

	_, err = runCLI(t, "config", "init", target)
	require.Error(t, err)
	assert.Equal(t, foundry.ExitFileWriteError, exitCode(t, err))

	_, err = runCLI(t, "config", "init", target, "--force")
	require.NoError(t, err)

	out, err := runCLI(t, "config", "show", "--config", target)
	require.NoError(t, err)
	assert.Contains(t, out, "bucket: my-bucket")
	assert.Contains(t, out, "max_file_size: 10485760")
}
