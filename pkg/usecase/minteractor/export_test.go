// 指示: miu200521358
package minteractor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/miu200521358/mu_skin2dae/pkg/domain/model"
	"github.com/miu200521358/mu_skin2dae/pkg/usecase/port/moutput"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	mu       sync.Mutex
	paths    []string
	payloads []*model.ExportPayload
	err      error
}

func (w *recordingWriter) Save(path string, payload *model.ExportPayload, _ moutput.SaveOptions) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.paths = append(w.paths, path)
	w.payloads = append(w.payloads, payload)
	return nil
}

type stubProber struct {
	statuses map[string]moutput.TextureStatus
}

func (p stubProber) Probe(path string) (moutput.TextureStatus, error) {
	return p.statuses[filepath.Base(path)], nil
}

type recordingHistory struct {
	records []moutput.ExportRecord
}

func (h *recordingHistory) Record(_ context.Context, record moutput.ExportRecord) error {
	h.records = append(h.records, record)
	return nil
}

type collectingReporter struct {
	events []ExportProgressEvent
}

func (r *collectingReporter) ReportExportProgress(event ExportProgressEvent) {
	r.events = append(r.events, event)
}

type cancellingReporter struct {
	cancel context.CancelFunc
}

func (r cancellingReporter) ReportExportProgress(event ExportProgressEvent) {
	if event.Type == ExportProgressEventTypeMeshProcessed {
		r.cancel()
	}
}

func newTestRequest(t *testing.T, scene *model.Scene) ExportRequest {
	t.Helper()
	return ExportRequest{
		OutputPath: filepath.Join(t.TempDir(), "avatar.dae"),
		Scene:      scene,
		Context:    model.NewExportContext(),
		Now:        time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestExportBuildsPayloadInMeshNameOrder(t *testing.T) {
	writer := &recordingWriter{}
	history := &recordingHistory{}
	reporter := &collectingReporter{}
	uc := NewSkinExportUsecase(SkinExportUsecaseDeps{DocumentWriter: writer, HistoryStore: history})
	request := newTestRequest(t, newTestScene(t))
	request.ProgressReporter = reporter

	result, err := uc.Export(context.Background(), request)
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, 2, result.ObjectCount)
	assert.Equal(t, request.OutputPath, result.OutputPath)
	assert.NotEmpty(t, result.RunID)

	payload := writer.payloads[0]
	assert.Equal(t, []string{"Body", "Face"}, []string{payload.Meshes[0].Name, payload.Meshes[1].Name})
	assert.Equal(t, []string{"Hips", "Spine", "Neck", "Head", "LeftLeg", "LeftFoot"}, payload.Joints.Names())
	assert.Equal(t, result.JointCount, payload.Joints.Len())
	assert.Equal(t, "Skin", payload.Materials[0].Name)
	assert.Equal(t, "Face", payload.Materials[1].Name)
	assert.Equal(t, request.Now, payload.Created)
	assert.Equal(t, "tester", payload.Author)

	for _, mesh := range payload.Meshes {
		assert.Len(t, mesh.InverseBinds, payload.Joints.Len())
		for vertexIndex, influences := range mesh.Weights.Influences {
			total := 0.0
			for _, influence := range influences {
				require.Less(t, influence.JointIndex, payload.Joints.Len())
				total += influence.Weight
			}
			assert.InDelta(t, 1.0, total, 1e-6, "mesh=%s vertex=%d", mesh.Name, vertexIndex)
		}
	}

	require.Len(t, history.records, 1)
	assert.True(t, history.records[0].Success)
	assert.Equal(t, result.RunID, history.records[0].RunID)

	types := []ExportProgressEventType{}
	for _, event := range reporter.events {
		types = append(types, event.Type)
	}
	assert.Equal(t, []ExportProgressEventType{
		ExportProgressEventTypeInputValidated,
		ExportProgressEventTypeOutputPathResolved,
		ExportProgressEventTypeSceneLoaded,
		ExportProgressEventTypeJointsResolved,
		ExportProgressEventTypeMeshProcessed,
		ExportProgressEventTypeMeshProcessed,
		ExportProgressEventTypeDocumentWritten,
	}, types)
}

func TestExportParallelMatchesSequential(t *testing.T) {
	scene := newTestScene(t)
	for i := 0; i < 6; i++ {
		mesh := newTestMesh(fmt.Sprintf("Part%02d", 5-i), weights("Head", 1.0), weights("Spine", 2.0, "Hips", 1.0))
		scene.Meshes = append(scene.Meshes, mesh)
	}

	run := func(workers int) *ExportResult {
		writer := &recordingWriter{}
		uc := NewSkinExportUsecase(SkinExportUsecaseDeps{DocumentWriter: writer})
		request := newTestRequest(t, scene)
		request.Context.Workers = workers
		result, err := uc.Export(context.Background(), request)
		require.NoError(t, err)
		return result
	}

	sequential := run(1)
	parallel := run(4)
	assert.Equal(t, sequential.Warnings, parallel.Warnings)
	require.Len(t, parallel.Payload.Meshes, len(sequential.Payload.Meshes))
	for i := range sequential.Payload.Meshes {
		assert.Equal(t, sequential.Payload.Meshes[i].Name, parallel.Payload.Meshes[i].Name)
		assert.Equal(t, sequential.Payload.Meshes[i].Weights, parallel.Payload.Meshes[i].Weights)
		assert.Equal(t, sequential.Payload.Meshes[i].InverseBinds, parallel.Payload.Meshes[i].InverseBinds)
		assert.Equal(t, sequential.Payload.Meshes[i].Geometry, parallel.Payload.Meshes[i].Geometry)
	}
}

func TestExportDoesNotMutateCallerScene(t *testing.T) {
	scene := newTestScene(t)
	uc := NewSkinExportUsecase(SkinExportUsecaseDeps{DocumentWriter: &recordingWriter{}})
	request := newTestRequest(t, scene)
	request.Context.RotationConvention = model.RotationConventionYUpToZUp

	result, err := uc.Export(context.Background(), request)
	require.NoError(t, err)
	assert.Equal(t, model.UpAxisZ, result.Payload.UpAxis)
	assert.Equal(t, 1.0, scene.Meshes[1].Vertices[2].Position.Y)
	assert.Equal(t, 0.7, scene.Meshes[1].Vertices[2].Weights[0].Weight)
}

func TestExportKeepsObjectWorldForUnskinnedMesh(t *testing.T) {
	testCases := []struct {
		name       string
		convention model.RotationConvention
		want       mgl64.Vec3
	}{
		{name: "no remap", convention: model.RotationConventionNone, want: mgl64.Vec3{5, 2, 0}},
		{name: "y up to z up", convention: model.RotationConventionYUpToZUp, want: mgl64.Vec3{5, 0, 2}},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			scene := newTestScene(t)
			prop := newTestMesh("Prop")
			prop.ObjectWorld = mgl64.Translate3D(5, 2, 0)
			scene.Meshes = []*model.Mesh{prop}
			writer := &recordingWriter{}
			uc := NewSkinExportUsecase(SkinExportUsecaseDeps{DocumentWriter: writer})
			request := newTestRequest(t, scene)
			request.Context.OnlyWeighted = true
			request.Context.RotationConvention = tc.convention

			result, err := uc.Export(context.Background(), request)
			require.NoError(t, err)
			assert.Equal(t, 0, result.JointCount)

			exported := writer.payloads[0].Meshes[0]
			require.False(t, exported.IsSkinned())
			translation := exported.ObjectWorld.Col(3).Vec3()
			assert.InDeltaSlice(t, tc.want[:], translation[:], 1e-9)

			// 出力座標系の頂点をノード行列で配置すると元のワールド位置を軸変換した位置になる
			placed := exported.ObjectWorld.Mul4x1(mgl64.Vec4{1, 0, 0, 1})
			localX := exported.Geometry.Positions[1]
			assert.InDelta(t, 1.0, localX.X, 1e-9)
			placedPos := placed.Vec3()
			assert.InDeltaSlice(t, []float64{tc.want[0] + 1, tc.want[1], tc.want[2]}, placedPos[:], 1e-9)
		})
	}
}

func TestExportWarnsMissingMaterialAndTexture(t *testing.T) {
	scene := newTestScene(t)
	delete(scene.Materials, "Face")
	scene.Materials["Skin"].TexturePath = "skin.png"
	uc := NewSkinExportUsecase(SkinExportUsecaseDeps{
		DocumentWriter: &recordingWriter{},
		TextureProber:  stubProber{statuses: map[string]moutput.TextureStatus{"skin.png": moutput.TextureStatusMissing}},
	})

	result, err := uc.Export(context.Background(), newTestRequest(t, scene))
	require.NoError(t, err)

	kinds := map[model.WarningKind]model.Warning{}
	for _, warning := range result.Warnings {
		kinds[warning.Kind] = warning
	}
	assert.Equal(t, "Face", kinds[model.WarningMissingMaterial].Detail)
	assert.Equal(t, "Skin", kinds[model.WarningTextureMissing].Object)
	assert.Len(t, result.Payload.Materials, 2)
}

func TestExportReturnsStructuralErrorWithObject(t *testing.T) {
	scene := newTestScene(t)
	scene.Meshes[0].Polygons = append(scene.Meshes[0].Polygons, model.Polygon{VertexIndexes: []int{0, 1}})
	history := &recordingHistory{}
	uc := NewSkinExportUsecase(SkinExportUsecaseDeps{DocumentWriter: &recordingWriter{}, HistoryStore: history})

	_, err := uc.Export(context.Background(), newTestRequest(t, scene))
	require.Error(t, err)
	var exportErr *model.ExportError
	require.ErrorAs(t, err, &exportErr)
	assert.Equal(t, model.ErrorKindInvalidPolygon, exportErr.Kind)
	assert.Equal(t, "Face", exportErr.Object)
	require.Len(t, history.records, 1)
	assert.False(t, history.records[0].Success)
	assert.NotEmpty(t, history.records[0].ErrorMessage)
}

func TestExportWrapsWriterFailure(t *testing.T) {
	writer := &recordingWriter{err: errors.New("disk full")}
	uc := NewSkinExportUsecase(SkinExportUsecaseDeps{DocumentWriter: writer})

	_, err := uc.Export(context.Background(), newTestRequest(t, newTestScene(t)))
	kind, ok := model.ErrorKindOf(err)
	require.True(t, ok)
	assert.Equal(t, model.ErrorKindUnwritableOutput, kind)
}

func TestExportCancelledBetweenMeshes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	writer := &recordingWriter{}
	uc := NewSkinExportUsecase(SkinExportUsecaseDeps{DocumentWriter: writer})
	request := newTestRequest(t, newTestScene(t))
	request.ProgressReporter = cancellingReporter{cancel: cancel}

	_, err := uc.Export(ctx, request)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	kind, _ := model.ErrorKindOf(err)
	assert.Equal(t, model.ErrorKindCancelled, kind)
	assert.Empty(t, writer.paths)
}

func TestExportRejectsInvalidContext(t *testing.T) {
	uc := NewSkinExportUsecase(SkinExportUsecaseDeps{DocumentWriter: &recordingWriter{}})
	request := newTestRequest(t, newTestScene(t))
	request.Context.MaxWeightPerVertex = 0

	_, err := uc.Export(context.Background(), request)
	kind, ok := model.ErrorKindOf(err)
	require.True(t, ok)
	assert.Equal(t, model.ErrorKindInvalidContext, kind)
}

func TestExportBatchIsolatesFailures(t *testing.T) {
	broken := newTestScene(t)
	mustBone(t, broken.Skeleton, "Hips").ParentIndex = mustBone(t, broken.Skeleton, "Head").Index
	uc := NewSkinExportUsecase(SkinExportUsecaseDeps{DocumentWriter: &recordingWriter{}})
	requests := []ExportRequest{
		newTestRequest(t, newTestScene(t)),
		newTestRequest(t, broken),
		newTestRequest(t, newTestScene(t)),
	}

	result := uc.ExportBatch(context.Background(), BatchExportRequest{Requests: requests})
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	kind, _ := model.ErrorKindOf(result.Items[1].Err)
	assert.Equal(t, model.ErrorKindBoneCycle, kind)

	failFast := uc.ExportBatch(context.Background(), BatchExportRequest{Requests: requests, FailFast: true})
	assert.Equal(t, 1, failFast.Succeeded)
	assert.Equal(t, 1, failFast.Failed)
	assert.Equal(t, 1, failFast.Skipped)
	assert.True(t, failFast.Items[2].Skipped)
}
