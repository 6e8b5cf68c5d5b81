package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
database:
  driver: sqlite
  path: /tmp/tactoe.db
nats:
  host: nats.internal
  port: 4333
  stream:
    name: TACTOE
    subjects: ["tactoe.>"]
server:
  port: "9090"
chain:
  genesis: "2024-01-01T00:00:00Z"
  blockinterval: 5s
game:
  admin: SP-ADMIN
  movetimeoutblocks: 20
  platformfeebps: 250
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfigFrom(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.NotNil(t, cfg, "Config should not be nil")
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/tactoe.db", cfg.Database.Path)
	assert.Equal(t, "nats.internal", cfg.NATS.Host)
	assert.Equal(t, 4333, cfg.NATS.Port)
	assert.Equal(t, "TACTOE", cfg.NATS.Stream.Name)
	assert.Equal(t, []string{"tactoe.>"}, cfg.NATS.Stream.Subjects)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Chain.BlockInterval)
	assert.Equal(t, "SP-ADMIN", cfg.Game.Admin)
	assert.Equal(t, uint64(20), cfg.Game.MoveTimeoutBlocks)
	assert.Equal(t, uint64(250), cfg.Game.PlatformFeeBps)

	genesis, err := cfg.Chain.GenesisTime()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), genesis)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfigFrom(writeConfig(t, "server:\n  port: \"8081\"\n"))
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "STACKSTACTOE", cfg.NATS.Stream.Name)
	assert.Equal(t, "stackstactoe-task-queue", cfg.Temporal.TaskQueue)
	assert.Equal(t, time.Hour, cfg.Temporal.MaxSleep)
	assert.Equal(t, 600*time.Second, cfg.Chain.BlockInterval)
	assert.Equal(t, uint64(144), cfg.Game.MoveTimeoutBlocks)
	assert.Equal(t, uint64(1), cfg.Game.MinBet)

	genesis, err := cfg.Chain.GenesisTime()
	require.NoError(t, err)
	assert.Equal(t, int64(0), genesis.Unix())
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("STACKSTACTOE_GAME_MOVETIMEOUTBLOCKS", "50")
	t.Setenv("STACKSTACTOE_SERVER_PORT", "7000")

	cfg, err := LoadConfigFrom(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, uint64(50), cfg.Game.MoveTimeoutBlocks)
	assert.Equal(t, "7000", cfg.Server.Port)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := LoadConfigFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestGenesisTimeInvalid(t *testing.T) {
	_, err := ChainConfig{Genesis: "yesterday"}.GenesisTime()
	assert.Error(t, err)
}
