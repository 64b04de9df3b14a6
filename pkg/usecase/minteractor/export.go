// 指示: miu200521358
package minteractor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/miu200521358/mu_skin2dae/pkg/domain/model"
	"github.com/miu200521358/mu_skin2dae/pkg/usecase/port/moutput"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"
)

// Export はシーンを1つのスキンメッシュ交換文書として出力する。
func (uc *SkinExportUsecase) Export(ctx context.Context, request ExportRequest) (*ExportResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	runID := uuid.NewString()
	result, err := uc.export(ctx, runID, request)
	uc.recordHistory(ctx, runID, request, result, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// export は出力処理本体を実行する。
func (uc *SkinExportUsecase) export(ctx context.Context, runID string, request ExportRequest) (*ExportResult, error) {
	exportCtx := request.Context
	if err := exportCtx.Validate(); err != nil {
		return nil, err
	}
	reporter := newLockedProgressReporter(request.ProgressReporter)
	reporter.report(ExportProgressEvent{Type: ExportProgressEventTypeInputValidated})

	outputPath, err := resolveDaeOutputPath(request.InputPath, request.OutputPath)
	if err != nil {
		return nil, err
	}
	reporter.report(ExportProgressEvent{Type: ExportProgressEventTypeOutputPathResolved})

	scene, err := uc.resolveScene(request.InputPath, request.Scene)
	if err != nil {
		return nil, err
	}
	meshes := sortedMeshes(scene.Meshes)
	reporter.report(ExportProgressEvent{
		Type:      ExportProgressEventTypeSceneLoaded,
		MeshCount: len(meshes),
	})
	logExportInfo("出力を開始します: run=%s scene=%s meshes=%d", runID, scene.Name, len(meshes))

	warnings := model.NewWarnings()
	skeleton := scene.Skeleton
	joints, err := ResolveJointSet(skeleton, meshes, exportCtx, warnings)
	if err != nil {
		return nil, err
	}
	joints = FilterPosedJoints(skeleton, joints, exportCtx, warnings)
	jointLocals, jointParents, err := ComputeJointNodes(skeleton, joints, exportCtx)
	if err != nil {
		return nil, err
	}
	reporter.report(ExportProgressEvent{
		Type:       ExportProgressEventTypeJointsResolved,
		MeshCount:  len(meshes),
		JointCount: joints.Len(),
	})

	exports, err := uc.buildMeshExports(ctx, skeleton, meshes, joints, request, warnings, reporter)
	if err != nil {
		return nil, err
	}

	materials := uc.collectMaterials(scene, request.InputPath, exports, warnings)
	created := request.Now
	if created.IsZero() {
		created = nowFunc()
	}
	author := scene.Author
	if request.Author != "" {
		author = request.Author
	}
	payload := &model.ExportPayload{
		SceneName:    scene.Name,
		Author:       author,
		Created:      created.UTC(),
		UpAxis:       exportUpAxis(exportCtx.RotationConvention, scene.UpAxis),
		Precision:    exportCtx.Precision,
		Joints:       joints,
		JointLocals:  jointLocals,
		JointParents: jointParents,
		Meshes:       exports,
		Materials:    materials,
	}

	if err := ctx.Err(); err != nil {
		return nil, model.NewExportError(model.ErrorKindCancelled, "", "", err)
	}
	if err := createOutputDir(outputPath); err != nil {
		return nil, model.NewExportError(model.ErrorKindUnwritableOutput, "", "", err)
	}
	if err := uc.SaveDocument(outputPath, payload, request.SaveOptions); err != nil {
		return nil, err
	}
	reporter.report(ExportProgressEvent{
		Type:       ExportProgressEventTypeDocumentWritten,
		MeshCount:  len(exports),
		JointCount: joints.Len(),
	})
	logExportInfo("出力が完了しました: run=%s path=%s meshes=%d joints=%d warnings=%d",
		runID, outputPath, len(exports), joints.Len(), warnings.Len())

	return &ExportResult{
		RunID:       runID,
		Success:     true,
		ObjectCount: len(exports),
		JointCount:  joints.Len(),
		OutputPath:  outputPath,
		Warnings:    warnings.Values(),
		Payload:     payload,
	}, nil
}

// buildMeshExports はメッシュごとの出力データを並列に構築し、名前順に並べて返す。
func (uc *SkinExportUsecase) buildMeshExports(
	ctx context.Context,
	skeleton *model.Skeleton,
	meshes []*model.Mesh,
	joints *model.JointSet,
	request ExportRequest,
	warnings *model.Warnings,
	reporter *lockedProgressReporter,
) ([]*model.MeshExport, error) {
	exportCtx := request.Context
	space := newExportSpace(skeleton, exportCtx)
	exports := make([]*model.MeshExport, len(meshes))
	meshWarnings := make([]*model.Warnings, len(meshes))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(exportCtx.WorkerCount())
	for i, mesh := range meshes {
		i, mesh := i, mesh
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			local := model.NewWarnings()
			exported, err := buildMeshExport(skeleton, mesh, joints, space, exportCtx, request.WeldOverrides[mesh.Name], local)
			if err != nil {
				return err
			}
			exports[i] = exported
			meshWarnings[i] = local
			reporter.report(ExportProgressEvent{
				Type:       ExportProgressEventTypeMeshProcessed,
				MeshName:   mesh.Name,
				MeshCount:  len(meshes),
				JointCount: joints.Len(),
			})
			logExportDebug("メッシュを処理しました: mesh=%s vertices=%d polygons=%d", mesh.Name, len(mesh.Vertices), len(mesh.Polygons))
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, model.NewExportError(model.ErrorKindCancelled, "", "", ctxErr)
		}
		return nil, err
	}
	for _, local := range meshWarnings {
		warnings.Merge(local)
	}
	return exports, nil
}

// buildMeshExport はメッシュ1つ分の逆バインド行列・ウェイト表・形状を構築する。
func buildMeshExport(
	skeleton *model.Skeleton,
	mesh *model.Mesh,
	joints *model.JointSet,
	space exportSpace,
	ctx model.ExportContext,
	overrides WeldOverrides,
	warnings *model.Warnings,
) (*model.MeshExport, error) {
	exported := &model.MeshExport{
		Name:            mesh.Name,
		BindShapeMatrix: mgl64.Ident4(),
		Joints:          joints,
		InverseBinds:    []mgl64.Mat4{},
		Weights:         &model.WeightTable{},
		MaterialNames:   append([]string(nil), mesh.MaterialNames...),
	}
	if joints.Len() > 0 {
		inverseBinds, err := ComputeInverseBindMatrices(skeleton, joints, mesh.ObjectWorld, ctx)
		if err != nil {
			return nil, withObject(err, mesh.Name)
		}
		exported.InverseBinds = inverseBinds

		weights, err := BuildWeightTable(mesh, joints, skeleton, ctx, warnings)
		if err != nil {
			return nil, withObject(err, mesh.Name)
		}
		exported.Weights = weights
	} else {
		exported.ObjectWorld = space.objectWorld(mesh.ObjectWorld)
	}

	spaceMesh, spaceOverrides := toExportSpace(mesh, overrides, space)
	geometry, err := AssemblePolylists(spaceMesh, spaceOverrides, ctx, warnings)
	if err != nil {
		return nil, withObject(err, mesh.Name)
	}
	exported.Geometry = geometry
	return exported, nil
}

// toExportSpace は頂点位置と法線を出力座標系へ変換した複製を返す。
func toExportSpace(mesh *model.Mesh, overrides WeldOverrides, space exportSpace) (*model.Mesh, WeldOverrides) {
	out := &model.Mesh{
		Name:          mesh.Name,
		Vertices:      make([]model.Vertex, len(mesh.Vertices)),
		Polygons:      make([]model.Polygon, len(mesh.Polygons)),
		MaterialNames: mesh.MaterialNames,
		ObjectWorld:   mesh.ObjectWorld,
	}
	for i, vertex := range mesh.Vertices {
		out.Vertices[i] = model.Vertex{Position: space.point(vertex.Position), Weights: vertex.Weights}
	}
	for i, polygon := range mesh.Polygons {
		converted := polygon
		if len(polygon.Normals) > 0 {
			converted.Normals = make([]r3.Vec, len(polygon.Normals))
			for j, normal := range polygon.Normals {
				converted.Normals[j] = space.direction(normal)
			}
		}
		out.Polygons[i] = converted
	}
	var convertedOverrides WeldOverrides
	if len(overrides) > 0 {
		convertedOverrides = make(WeldOverrides, len(overrides))
		for vertexIndex, normal := range overrides {
			convertedOverrides[vertexIndex] = space.direction(normal)
		}
	}
	return out, convertedOverrides
}

// collectMaterials は出力メッシュが参照する材質を初出順で集め、テクスチャを確認する。
func (uc *SkinExportUsecase) collectMaterials(
	scene *model.Scene,
	inputPath string,
	exports []*model.MeshExport,
	warnings *model.Warnings,
) []*model.Material {
	materials := []*model.Material{}
	seen := map[string]struct{}{}
	for _, exported := range exports {
		for _, polylist := range exported.Geometry.Polylists {
			name := polylist.MaterialName
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			material, ok := scene.Material(name)
			if !ok {
				warnings.Add(model.WarningMissingMaterial, exported.Name, 1, name)
				logExportWarn("材質が見つからないため既定材質を使います: mesh=%s material=%s", exported.Name, name)
				material = model.NewMaterial(name)
			}
			uc.probeTexture(material, inputPath, warnings)
			materials = append(materials, material)
		}
	}
	return materials
}

// probeTexture は材質のテクスチャファイルを確認し、問題があれば警告を追加する。
func (uc *SkinExportUsecase) probeTexture(material *model.Material, inputPath string, warnings *model.Warnings) {
	if uc.textureProber == nil || material.TexturePath == "" {
		return
	}
	path := resolveTexturePath(inputPath, material.TexturePath)
	status, err := uc.textureProber.Probe(path)
	if err != nil {
		logExportDebug("テクスチャ確認に失敗しました: material=%s path=%s err=%v", material.Name, path, err)
	}
	switch status {
	case moutput.TextureStatusMissing:
		warnings.Add(model.WarningTextureMissing, material.Name, 1, material.TexturePath)
		logExportWarn("テクスチャファイルが見つかりません: material=%s path=%s", material.Name, path)
	case moutput.TextureStatusUnreadable:
		warnings.Add(model.WarningTextureUnreadable, material.Name, 1, material.TexturePath)
		logExportWarn("テクスチャファイルを読み込めません: material=%s path=%s", material.Name, path)
	}
}

// recordHistory は出力履歴を保存する。保存失敗は出力結果に影響させない。
func (uc *SkinExportUsecase) recordHistory(
	ctx context.Context,
	runID string,
	request ExportRequest,
	result *ExportResult,
	exportErr error,
) {
	if uc.historyStore == nil {
		return
	}
	record := moutput.ExportRecord{
		RunID:     runID,
		InputPath: request.InputPath,
		CreatedAt: nowFunc().UTC(),
	}
	if result != nil {
		record.OutputPath = result.OutputPath
		record.Success = result.Success
		record.ObjectCount = result.ObjectCount
		record.JointCount = result.JointCount
		record.Warnings = result.Warnings
	}
	if exportErr != nil {
		record.OutputPath = request.OutputPath
		record.ErrorMessage = exportErr.Error()
	}
	if err := uc.historyStore.Record(context.WithoutCancel(ctx), record); err != nil {
		logExportWarn("出力履歴の保存に失敗しました: run=%s err=%v", runID, err)
	}
}

// sortedMeshes はメッシュを名前順に並べた複製を返す。
func sortedMeshes(meshes []*model.Mesh) []*model.Mesh {
	out := make([]*model.Mesh, 0, len(meshes))
	for _, mesh := range meshes {
		if mesh != nil {
			out = append(out, mesh)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

// withObject は構造エラーへオブジェクト名を補完する。
func withObject(err error, object string) error {
	var exportErr *model.ExportError
	if errors.As(err, &exportErr) {
		return exportErr.WithObject(object)
	}
	return fmt.Errorf("メッシュ処理に失敗しました: mesh=%s: %w", object, err)
}

// lockedProgressReporter は並列処理から安全に進捗を通知する。
type lockedProgressReporter struct {
	mu       sync.Mutex
	reporter IExportProgressReporter
}

// newLockedProgressReporter は進捗通知をロックで保護する。
func newLockedProgressReporter(reporter IExportProgressReporter) *lockedProgressReporter {
	return &lockedProgressReporter{reporter: reporter}
}

// report は進捗を通知する。
func (r *lockedProgressReporter) report(event ExportProgressEvent) {
	if r == nil || r.reporter == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reporter.ReportExportProgress(event)
}
