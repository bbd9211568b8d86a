package app_config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "timeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseTimelineAppConfigDefaults(t *testing.T) {
	c, err := ParseTimelineAppConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultTimelineAppConfig(), c)
	assert.NoError(t, c.Validate())
}

func TestParseTimelineAppConfigOverrides(t *testing.T) {
	path := writeConfig(t, `
TIMELINE_MAX_SIZE: 0
FANOUT_CHUNK_SIZE: 200
SAMPLER: range_probe
ARCHIVE_ENABLED: true
`)
	c, err := ParseTimelineAppConfig(path)
	require.NoError(t, err)
	assert.Equal(t, int64(0), c.TIMELINE_MAX_SIZE)
	assert.Equal(t, 200, c.FANOUT_CHUNK_SIZE)
	assert.Equal(t, SamplerRangeProbe, c.SAMPLER)
	assert.True(t, c.ARCHIVE_ENABLED)
	// Untouched keys keep defaults.
	assert.Equal(t, 3000, c.LOADER_CHUNK_SIZE)
	assert.Equal(t, ":8080", c.HTTP_ADDR)
}

func TestParseTimelineAppConfigErrors(t *testing.T) {
	_, err := ParseTimelineAppConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = ParseTimelineAppConfig(writeConfig(t, "SAMPLER: reservoir\n"))
	assert.Error(t, err)

	_, err = ParseTimelineAppConfig(writeConfig(t, "FANOUT_CHUNK_SIZE: 0\n"))
	assert.Error(t, err)

	_, err = ParseTimelineAppConfig(writeConfig(t, "TIMELINE_MAX_SIZE: -1\n"))
	assert.Error(t, err)

	_, err = ParseTimelineAppConfig(writeConfig(t, "HOME_TIMELINE_LIMIT: 20\nHOME_TIMELINE_MAX_LIMIT: 5\n"))
	assert.Error(t, err)

	_, err = ParseTimelineAppConfig(writeConfig(t, "NOT_A_KEY: 1\n"))
	assert.Error(t, err)
}
