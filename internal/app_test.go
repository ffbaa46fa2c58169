package internal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toylytics/internal/config"
)

func TestValidateFunnelMapping(t *testing.T) {
	// no override configured means the embedded default, always valid
	assert.NoError(t, validateFunnelMapping(&config.Config{}))

	good := filepath.Join(t.TempDir(), "stages.yml")
	require.NoError(t, os.WriteFile(good, []byte(`stages:
  - name: Landing Page
    paths: ["/home"]
`), 0o644))
	assert.NoError(t, validateFunnelMapping(&config.Config{FunnelMapPath: good}))

	bad := filepath.Join(t.TempDir(), "stages.yml")
	require.NoError(t, os.WriteFile(bad, []byte(`stages:
  - name: Warp Zone
    paths: ["/warp"]
`), 0o644))
	assert.Error(t, validateFunnelMapping(&config.Config{FunnelMapPath: bad}))

	missing := filepath.Join(t.TempDir(), "missing.yml")
	assert.Error(t, validateFunnelMapping(&config.Config{FunnelMapPath: missing}))
}
