// 指示: miu200521358
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/miu200521358/mu_skin2dae/pkg/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadExportConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadExportConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultExportConfig(), cfg)

	cfg, err = LoadExportConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultExportConfig(), cfg)
}

func TestLoadExportConfigKeepsDefaultsForUnsetFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	body := "export:\n  only_deform: false\n  max_weight_per_vertex: 2\n  rotation_convention: y_up_to_z_up\nauthor: Alice\nverify: true\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := LoadExportConfig(path)
	require.NoError(t, err)
	assert.False(t, cfg.Export.OnlyDeform)
	assert.Equal(t, 2, cfg.Export.MaxWeightPerVertex)
	assert.Equal(t, model.DefaultPrecision, cfg.Export.Precision)
	assert.Equal(t, "Alice", cfg.Author)
	assert.True(t, cfg.Verify)

	ctx, err := cfg.ExportContext()
	require.NoError(t, err)
	assert.Equal(t, model.RotationConventionYUpToZUp, ctx.RotationConvention)
	assert.Equal(t, 1, ctx.WorkerCount())
}

func TestLoadExportConfigRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{name: "broken yaml", body: "export: [\n"},
		{name: "weights", body: "export:\n  max_weight_per_vertex: 0\n"},
		{name: "convention", body: "export:\n  rotation_convention: sideways\n"},
		{name: "log level", body: "log_level: loud\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "profile.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.body), 0o644))
			_, err := LoadExportConfig(path)
			require.Error(t, err)
		})
	}
}

func TestSaveExportConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "profile.yaml")
	cfg := DefaultExportConfig()
	cfg.Export.Workers = 4
	cfg.Export.UseBindPose = true
	cfg.HistoryPath = "history.db"

	require.NoError(t, SaveExportConfig(path, cfg))
	loaded, err := LoadExportConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
