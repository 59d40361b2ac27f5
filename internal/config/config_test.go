package config_test

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argus-dev/argus/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"ARGUS_HOST", "ARGUS_PORT", "ARGUS_DATA_DIR", "CLAUDE_PROJECTS_DIR", "OPENCLAW_AGENTS_DIR"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestDefault_FillsEveryTunable(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 4242, cfg.Port)
	assert.Equal(t, 20, cfg.CompletedWorkCap)
	assert.Equal(t, "v1.0.0", cfg.ProtocolVersionMin)
}

func TestLoadMinimal_EnvOverridesDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("ARGUS_HOST", "0.0.0.0")
	t.Setenv("ARGUS_PORT", "9999")

	cfg, err := config.LoadMinimal()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 9999, cfg.Port)
}

func TestLoadMinimal_ConfigFileOverridesDefaultsButNotEnv(t *testing.T) {
	clearEnv(t)
	dataDir := t.TempDir()
	t.Setenv("ARGUS_DATA_DIR", dataDir)
	t.Setenv("ARGUS_HOST", "10.0.0.1")

	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "config.json"),
		[]byte(`{"host":"192.168.1.1","port":5555}`), 0o644))

	cfg, err := config.LoadMinimal()
	require.NoError(t, err)
	// The file overrides the default port, but ARGUS_HOST beats the
	// file's "host".
	assert.Equal(t, "10.0.0.1", cfg.Host)
	assert.Equal(t, 5555, cfg.Port)
}

func TestLoadMinimal_MissingConfigFileIsNotAnError(t *testing.T) {
	clearEnv(t)
	t.Setenv("ARGUS_DATA_DIR", t.TempDir())

	_, err := config.LoadMinimal()
	assert.NoError(t, err)
}

func TestLoad_FlagsOverrideEverything(t *testing.T) {
	clearEnv(t)
	dataDir := t.TempDir()
	t.Setenv("ARGUS_DATA_DIR", dataDir)
	t.Setenv("ARGUS_HOST", "10.0.0.1")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	config.RegisterServeFlags(fs)
	require.NoError(t, fs.Parse([]string{"-host", "172.16.0.1", "-port", "8080"}))

	cfg, err := config.Load(fs)
	require.NoError(t, err)
	assert.Equal(t, "172.16.0.1", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
}

func TestLoad_UnsetFlagsDoNotClobberLowerLayers(t *testing.T) {
	clearEnv(t)
	t.Setenv("ARGUS_DATA_DIR", t.TempDir())
	t.Setenv("ARGUS_HOST", "10.0.0.1")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	config.RegisterServeFlags(fs)
	require.NoError(t, fs.Parse(nil))

	cfg, err := config.Load(fs)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", cfg.Host, "flags.Visit only applies flags explicitly set on the command line")
}

func TestResolveDataDir_RespectsEnvOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("ARGUS_DATA_DIR", "/custom/data/dir")

	dir, err := config.ResolveDataDir()
	require.NoError(t, err)
	assert.Equal(t, "/custom/data/dir", dir)
}
