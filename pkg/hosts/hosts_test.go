package hosts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, initial string) *Manager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hosts")
	require.NoError(t, os.WriteFile(path, []byte(initial), 0o644))
	return &Manager{Path: path, IP: "127.0.0.1"}
}

func read(t *testing.T, m *Manager) string {
	t.Helper()
	data, err := os.ReadFile(m.Path)
	require.NoError(t, err)
	return string(data)
}

func TestApplyAndRevert(t *testing.T) {
	initial := "127.0.0.1 localhost\n192.168.1.5 nas.local\n"
	m := newTestManager(t, initial)

	require.NoError(t, m.Apply([]string{"a.example.com", "b.example.com"}))

	content := read(t, m)
	assert.Contains(t, content, "127.0.0.1 a.example.com")
	assert.Contains(t, content, "127.0.0.1 b.example.com")
	assert.Contains(t, content, "192.168.1.5 nas.local")

	applied, err := m.Applied()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.example.com", "b.example.com"}, applied)

	require.NoError(t, m.Revert())
	assert.Equal(t, initial, read(t, m))

	applied, err = m.Applied()
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestApplyIdempotent(t *testing.T) {
	m := newTestManager(t, "127.0.0.1 localhost\n")

	require.NoError(t, m.Apply([]string{"a.example.com"}))
	first := read(t, m)

	require.NoError(t, m.Apply([]string{"a.example.com"}))
	assert.Equal(t, first, read(t, m))
}

func TestApplyReplacesStaleBlock(t *testing.T) {
	m := newTestManager(t, "")

	require.NoError(t, m.Apply([]string{"a.example.com"}))
	require.NoError(t, m.Apply([]string{"b.example.com"}))

	applied, err := m.Applied()
	require.NoError(t, err)
	assert.Equal(t, []string{"b.example.com"}, applied)
}

func TestRevertWithoutApply(t *testing.T) {
	initial := "127.0.0.1 localhost\n"
	m := newTestManager(t, initial)

	require.NoError(t, m.Revert())
	assert.Equal(t, initial, read(t, m))
}

func TestRevertMissingFile(t *testing.T) {
	m := &Manager{Path: filepath.Join(t.TempDir(), "nonexistent"), IP: "127.0.0.1"}
	assert.NoError(t, m.Revert())
}

func TestBackupCreatedOnce(t *testing.T) {
	initial := "127.0.0.1 localhost\n"
	m := newTestManager(t, initial)

	require.NoError(t, m.Apply([]string{"a.example.com"}))
	backup, err := os.ReadFile(m.Path + ".lanlobby.bak")
	require.NoError(t, err)
	assert.Equal(t, initial, string(backup))

	// A second apply must not overwrite the pristine backup.
	require.NoError(t, m.Apply([]string{"b.example.com"}))
	backup, err = os.ReadFile(m.Path + ".lanlobby.bak")
	require.NoError(t, err)
	assert.Equal(t, initial, string(backup))
}
