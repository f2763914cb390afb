package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_ValidTopology(t *testing.T) {
	cfg, err := Parse([]byte(`
max_subsystems: 8
log_level: debug
subsystems:
  - name: os
    autostart: true
  - name: camera
    parents: [os]
  - name: metadata
    parents: [os]
`))
	require.NoError(t, err)

	assert.Equal(t, uint32(8), cfg.MaxSubsystems)
	assert.Equal(t, "debug", cfg.LogLevel)
	require.Len(t, cfg.Subsystems, 3)
	assert.True(t, cfg.Subsystems[0].AutoStart)
	assert.Equal(t, []string{"os"}, cfg.Subsystems[1].Parents)
}

func TestParse_DefaultLogLevel(t *testing.T) {
	cfg, err := Parse([]byte(`
subsystems:
  - name: a
`))
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte(`subsystems: [}`))
	assert.Error(t, err)
}

func TestValidate_EmptyName(t *testing.T) {
	_, err := Parse([]byte(`
subsystems:
  - parents: []
`))
	assert.Error(t, err)
}

func TestValidate_DuplicateName(t *testing.T) {
	_, err := Parse([]byte(`
subsystems:
  - name: a
  - name: a
`))
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestValidate_UnknownParent(t *testing.T) {
	_, err := Parse([]byte(`
subsystems:
  - name: child
    parents: [ghost]
`))
	assert.ErrorIs(t, err, ErrUnknownParent)
}

func TestValidate_DirectCycle(t *testing.T) {
	_, err := Parse([]byte(`
subsystems:
  - name: a
    parents: [b]
  - name: b
    parents: [a]
`))
	assert.ErrorIs(t, err, ErrCycle)
}

func TestValidate_SelfCycle(t *testing.T) {
	_, err := Parse([]byte(`
subsystems:
  - name: a
    parents: [a]
`))
	assert.ErrorIs(t, err, ErrCycle)
}

func TestValidate_DiamondIsNotACycle(t *testing.T) {
	_, err := Parse([]byte(`
subsystems:
  - name: a
  - name: b
    parents: [a]
  - name: c
    parents: [a]
  - name: d
    parents: [b, c]
`))
	assert.NoError(t, err)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "topology.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
subsystems:
  - name: os
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Subsystems, 1)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
