package preferences

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStore_MissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")

	s, err := NewStore(path, Preferences{AgentEndpoint: "ws://127.0.0.1:42123"}, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, Preferences{AutoConnect: false, AgentEndpoint: "ws://127.0.0.1:42123"}, s.Get())
}

func TestStore_SaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prefs.yaml")

	s, err := NewStore(path, Preferences{}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Save(Preferences{AutoConnect: true, AgentEndpoint: "ws://10.0.0.2:42123"}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "auto_connect: true")

	reloaded, err := NewStore(path, Preferences{AgentEndpoint: "ignored"}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, Preferences{AutoConnect: true, AgentEndpoint: "ws://10.0.0.2:42123"}, reloaded.Get())
}

func TestStore_SetAutoConnectKeepsEndpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	s, err := NewStore(path, Preferences{AgentEndpoint: "ws://127.0.0.1:42123"}, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, s.SetAutoConnect(true))

	assert.Equal(t, Preferences{AutoConnect: true, AgentEndpoint: "ws://127.0.0.1:42123"}, s.Get())
}

func TestStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("auto_connect: [unterminated"), 0o644))

	_, err := NewStore(path, Preferences{}, zap.NewNop())
	assert.Error(t, err)
}
