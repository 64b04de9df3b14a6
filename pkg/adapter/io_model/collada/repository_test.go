// 指示: miu200521358
package collada

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/miu200521358/mu_skin2dae/pkg/domain/model"
	"github.com/miu200521358/mu_skin2dae/pkg/usecase/port/moutput"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColladaRepositorySaveWritesVerifiableDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.dae")
	repository := NewColladaRepository()

	require.NoError(t, repository.Save(path, newTestPayload(), moutput.SaveOptions{Verify: true}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.HasPrefix(text, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, text, `<COLLADA xmlns="http://www.collada.org/2005/11/COLLADASchema" version="1.4.1">`)
	assert.Contains(t, text, `<triangles material="Skin-material" count="2">`)
	assert.Contains(t, text, `<polylist material="Metal-material" count="1">`)
	assert.Contains(t, text, `<Name_array id="Armature_Body-skin-joints-array" count="2">Hips Spine</Name_array>`)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestColladaRepositoryMarshalIsDeterministic(t *testing.T) {
	repository := NewColladaRepository()
	first, err := repository.Marshal(newTestPayload())
	require.NoError(t, err)
	second, err := repository.Marshal(newTestPayload())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestColladaRepositoryRejectsUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.obj")
	err := NewColladaRepository().Save(path, newTestPayload(), moutput.SaveOptions{})
	kind, ok := model.ErrorKindOf(err)
	require.True(t, ok)
	assert.Equal(t, model.ErrorKindUnwritableOutput, kind)
}

func TestColladaRepositorySaveFailsForMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "model.dae")
	err := NewColladaRepository().Save(path, newTestPayload(), moutput.SaveOptions{})
	kind, ok := model.ErrorKindOf(err)
	require.True(t, ok)
	assert.Equal(t, model.ErrorKindUnwritableOutput, kind)
}

func TestVerifyBytesDetectsJointMismatch(t *testing.T) {
	repository := NewColladaRepository()
	data, err := repository.Marshal(newTestPayload())
	require.NoError(t, err)

	other := newTestPayload()
	other.Joints.Append("Chest", 3)
	err = VerifyBytes(data, other)
	require.Error(t, err)
	kind, ok := model.ErrorKindOf(err)
	require.True(t, ok)
	assert.Equal(t, model.ErrorKindUnwritableOutput, kind)
}

func TestVerifyBytesRejectsBrokenDocument(t *testing.T) {
	err := VerifyBytes([]byte("<COLLADA"), nil)
	require.Error(t, err)
}
