package helper

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func sameFile(t *testing.T, want, got string) {
	t.Helper()
	w, err := filepath.EvalSymlinks(want)
	require.NoError(t, err)
	g, err := filepath.EvalSymlinks(got)
	require.NoError(t, err)
	assert.Equal(t, w, g)
}

func TestGetCfgPath_Absolute(t *testing.T) {
	assert.Panics(t, func() { GetCfgPath("") })
	assert.Equal(t, "/opt/contentd.yaml", GetCfgPath("/opt/contentd.yaml"))
}

func TestGetCfgPath_SearchOrder(t *testing.T) {
	tmp := t.TempDir()
	chdir(t, tmp)
	require.NoError(t, os.MkdirAll("configs", 0o755))

	assert.Equal(t, filepath.Join(SystemConfigDir, "contentd.yaml"), GetCfgPath("contentd.yaml"))

	inConfigs := filepath.Join(tmp, "configs", "contentd.yaml")
	require.NoError(t, os.WriteFile(inConfigs, []byte("server: {}"), 0o644))
	sameFile(t, inConfigs, GetCfgPath("contentd.yaml"))

	inWd := filepath.Join(tmp, "contentd.yaml")
	require.NoError(t, os.WriteFile(inWd, []byte("server: {}"), 0o644))
	sameFile(t, inWd, GetCfgPath("contentd.yaml"))
}

func TestGetCfgPath_SkipsDirectories(t *testing.T) {
	tmp := t.TempDir()
	chdir(t, tmp)
	require.NoError(t, os.MkdirAll("contentd.yaml", 0o755))
	assert.Equal(t, filepath.Join(SystemConfigDir, "contentd.yaml"), GetCfgPath("contentd.yaml"))
}
