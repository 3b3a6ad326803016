package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/w3studio/internal/config"
)

func TestLoadDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "ethereum", cfg.DefaultChain)
	assert.Equal(t, "fastest", cfg.RPCAlgorithm)
	assert.Equal(t, 16, cfg.CacheSizeMB)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTLDuration())
	assert.False(t, cfg.FollowBeacon)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestSaveAndReloadConfig(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)

	cfg.DefaultChain = "base"
	cfg.RPCAlgorithm = "round-robin"
	cfg.FollowBeacon = true
	cfg.AI.Endpoint = "https://ai.example/v1/chat/completions"

	require.NoError(t, cfg.Save())

	reloaded, err := config.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "base", reloaded.DefaultChain)
	assert.Equal(t, "round-robin", reloaded.RPCAlgorithm)
	assert.True(t, reloaded.FollowBeacon)
	assert.Equal(t, "https://ai.example/v1/chat/completions", reloaded.AI.Endpoint)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)
	cfg.DefaultChain = "base"
	require.NoError(t, cfg.Save())

	t.Setenv("W3STUDIO_DEFAULT_CHAIN", "polygon")
	t.Setenv("W3STUDIO_FOLLOW_BEACON", "true")
	t.Setenv("W3STUDIO_AI_MODEL", "local-model")

	reloaded, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "polygon", reloaded.DefaultChain)
	assert.True(t, reloaded.FollowBeacon)
	assert.Equal(t, "local-model", reloaded.AI.Model)
}

func TestBadEnvValue(t *testing.T) {
	t.Setenv("W3STUDIO_CACHE_SIZE_MB", "lots")
	_, err := config.Load(t.TempDir())
	assert.Error(t, err)
}

func TestCorruptConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte("{"), 0o600))
	_, err := config.Load(dir)
	assert.Error(t, err)
}

func TestAddCustomRPC(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)

	require.NoError(t, cfg.AddRPC("base", "https://custom.base.rpc"))

	rpcs := cfg.GetRPCs("base")
	assert.Contains(t, rpcs, "https://custom.base.rpc")
}

func TestAddDuplicateRPCErrors(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := config.Load(dir)

	cfg.AddRPC("base", "https://custom.base.rpc") //nolint:errcheck
	err := cfg.AddRPC("base", "https://custom.base.rpc")
	assert.Error(t, err)
}

func TestRemoveCustomRPC(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)

	cfg.AddRPC("base", "https://rpc1.base") //nolint:errcheck
	cfg.AddRPC("base", "https://rpc2.base") //nolint:errcheck

	require.NoError(t, cfg.RemoveRPC("base", "https://rpc1.base"))

	rpcs := cfg.GetRPCs("base")
	assert.NotContains(t, rpcs, "https://rpc1.base")
	assert.Contains(t, rpcs, "https://rpc2.base")

	require.NoError(t, cfg.RemoveRPC("base", "https://rpc2.base"))
	assert.Empty(t, cfg.GetRPCs("base"))
}

func TestRemoveNonExistentRPCErrors(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := config.Load(dir)

	err := cfg.RemoveRPC("base", "https://nonexistent.rpc")
	assert.Error(t, err)
}

func TestConfigFileCreatedOnSave(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := config.Load(dir)
	require.NoError(t, cfg.Save())

	info, err := os.Stat(filepath.Join(dir, "config.json"))
	require.NoError(t, err, "config.json should be created on save")
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestConfigPaths(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := config.Load(dir)
	assert.Equal(t, dir, cfg.Dir())
	assert.Equal(t, filepath.Join(dir, "wallets.json"), cfg.WalletsPath())
	assert.Equal(t, filepath.Join(dir, "session.json"), cfg.SessionPath())
}

func TestLoadFromNonExistentDir(t *testing.T) {
	dir := t.TempDir() + "/subdir"
	cfg, err := config.Load(dir)
	require.NoError(t, err)
	// Should create dir and return defaults.
	assert.Equal(t, "ethereum", cfg.DefaultChain)
}

func TestLoadServeDefaults(t *testing.T) {
	cfg, _ := config.Load(t.TempDir())
	sc, err := cfg.LoadServe("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8787", sc.Addr)
	assert.Equal(t, 5*time.Minute, sc.ProxyCacheTTL)
	assert.Equal(t, float64(5), sc.RateLimit)
	assert.Equal(t, 256, sc.ProxyMaxEntryKB)
}

func TestLoadServeYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := config.Load(dir)
	path := filepath.Join(dir, "custom.yaml")
	yml := "addr: 0.0.0.0:9000\nproxyCacheTTL: 90s\nrateLimit: 2.5\nextraHosts:\n  - rpc.example.org\n"
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	t.Setenv("W3STUDIO_SERVE_RATE_BURST", "7")
	sc, err := cfg.LoadServe(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", sc.Addr)
	assert.Equal(t, 90*time.Second, sc.ProxyCacheTTL)
	assert.Equal(t, 2.5, sc.RateLimit)
	assert.Equal(t, 7, sc.RateBurst)
	assert.Equal(t, []string{"rpc.example.org"}, sc.ExtraHosts)
	assert.Equal(t, 32, sc.ProxyCacheMB, "unset keys keep defaults")
}

func TestLoadServeMissingExplicitFile(t *testing.T) {
	cfg, _ := config.Load(t.TempDir())
	_, err := cfg.LoadServe(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
