// 指示: miu200521358
package collada

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/miu200521358/mu_skin2dae/pkg/domain/mmath"
	"github.com/miu200521358/mu_skin2dae/pkg/domain/model"
)

// documentBuilder は計算済みデータから文書要素を組み立てる。
type documentBuilder struct {
	payload      *model.ExportPayload
	precision    int
	ids          *idRegistry
	sids         *idRegistry
	doc          *Document
	materialIDs  map[string]string
	jointSids    []string
	jointNodeIDs []string
}

// BuildDocument は計算済みデータからCOLLADA文書を組み立てる。
// ジョイント集合外の参照や範囲外の頂点参照は構造エラーとして返す。
func BuildDocument(payload *model.ExportPayload) (*Document, error) {
	if payload == nil {
		return nil, fmt.Errorf("出力データが未設定です")
	}
	if payload.Joints == nil {
		payload.Joints = model.NewJointSet()
	}
	b := &documentBuilder{
		payload:     payload,
		precision:   payload.Precision,
		ids:         newIDRegistry(),
		sids:        newIDRegistry(),
		materialIDs: map[string]string{},
	}
	b.doc = &Document{
		Xmlns:   colladaNamespace,
		Version: colladaVersion,
		Asset:   b.buildAsset(),
	}
	for _, material := range payload.Materials {
		if material == nil {
			continue
		}
		b.addMaterial(material)
	}
	if err := b.registerJoints(); err != nil {
		return nil, err
	}

	scene := VisualScene{ID: b.ids.unique("Scene"), Name: "Scene"}
	if armature, err := b.buildArmatureNode(); err != nil {
		return nil, err
	} else if armature != nil {
		scene.Nodes = append(scene.Nodes, armature)
	}
	for _, mesh := range payload.Meshes {
		if mesh == nil {
			continue
		}
		node, err := b.addMesh(mesh)
		if err != nil {
			return nil, err
		}
		scene.Nodes = append(scene.Nodes, node)
	}
	b.doc.LibraryScenes.VisualScenes = []VisualScene{scene}
	b.doc.Scene.InstanceVisualScene.URL = "#" + scene.ID
	return b.doc, nil
}

// buildAsset は文書ヘッダを組み立てる。
func (b *documentBuilder) buildAsset() Asset {
	created := b.payload.Created
	if created.IsZero() {
		created = time.Unix(0, 0)
	}
	stamp := created.UTC().Format(time.RFC3339)
	upAxis := b.payload.UpAxis
	if upAxis == "" {
		upAxis = model.UpAxisY
	}
	return Asset{
		Contributor: Contributor{Author: b.payload.Author, AuthoringTool: authoringTool},
		Created:     stamp,
		Modified:    stamp,
		Unit:        Unit{Name: "meter", Meter: "1"},
		UpAxis:      upAxis,
	}
}

// addMaterial は材質・エフェクト・画像を登録する。
func (b *documentBuilder) addMaterial(material *model.Material) string {
	if id, ok := b.materialIDs[material.Name]; ok {
		return id
	}
	materialID := b.ids.unique(material.Name + "-material")
	effectID := b.ids.unique(material.Name + "-effect")
	b.materialIDs[material.Name] = materialID

	effect := Effect{ID: effectID, Profile: ProfileCommon{Technique: Technique{Sid: "common"}}}
	if material.TexturePath != "" {
		imageID := b.ids.unique(material.Name + "-image")
		if b.doc.LibraryImages == nil {
			b.doc.LibraryImages = &LibraryImages{}
		}
		b.doc.LibraryImages.Images = append(b.doc.LibraryImages.Images, Image{
			ID:       imageID,
			Name:     imageID,
			InitFrom: strings.ReplaceAll(material.TexturePath, "\\", "/"),
		})
		surfaceSid := imageID + "-surface"
		samplerSid := imageID + "-sampler"
		effect.Profile.NewParams = []NewParam{
			{Sid: surfaceSid, Surface: &Surface{Type: "2D", InitFrom: imageID}},
			{Sid: samplerSid, Sampler2D: &Sampler2D{Source: surfaceSid}},
		}
		effect.Profile.Technique.Lambert.Diffuse.Texture = &TextureBinding{Texture: samplerSid, Texcoord: uvSetName}
	} else {
		effect.Profile.Technique.Lambert.Diffuse.Color = &Color{
			Sid:   "diffuse",
			Value: b.formatFloats(material.DiffuseColor[:]),
		}
	}
	if material.DoubleSided {
		effect.Profile.Extra = &Extra{Technique: ExtraTechnique{Profile: "GOOGLEEARTH", DoubleSided: 1}}
	}
	b.doc.LibraryEffects.Effects = append(b.doc.LibraryEffects.Effects, effect)
	b.doc.LibraryMaterials.Materials = append(b.doc.LibraryMaterials.Materials, Material{
		ID:             materialID,
		Name:           material.Name,
		InstanceEffect: InstanceEffect{URL: "#" + effectID},
	})
	return materialID
}

// materialID は材質名のIDを返す。未登録の場合は既定材質として登録する。
func (b *documentBuilder) materialID(name string) string {
	if id, ok := b.materialIDs[name]; ok {
		return id
	}
	return b.addMaterial(model.NewMaterial(name))
}

// registerJoints はジョイントのsidとノードIDを払い出し、親参照を検証する。
func (b *documentBuilder) registerJoints() error {
	joints := b.payload.Joints
	if len(b.payload.JointLocals) != joints.Len() || len(b.payload.JointParents) != joints.Len() {
		return model.NewExportError(
			model.ErrorKindJointIndexOutOfRange,
			"",
			"",
			fmt.Errorf("ジョイント行列数が一致しません: joints=%d matrices=%d parents=%d",
				joints.Len(), len(b.payload.JointLocals), len(b.payload.JointParents)),
		)
	}
	b.jointSids = make([]string, joints.Len())
	b.jointNodeIDs = make([]string, joints.Len())
	for i := 0; i < joints.Len(); i++ {
		parent := b.payload.JointParents[i]
		if parent >= i || parent < -1 {
			return model.NewExportError(
				model.ErrorKindJointIndexOutOfRange,
				"",
				joints.Name(i),
				fmt.Errorf("親ジョイントが先に出力されていません: parent=%d", parent),
			)
		}
		b.jointSids[i] = b.sids.unique(joints.Name(i))
		b.jointNodeIDs[i] = b.ids.unique("Armature_" + joints.Name(i))
	}
	return nil
}

// buildArmatureNode はアーマチュアノードとジョイントノード階層を組み立てる。
func (b *documentBuilder) buildArmatureNode() (*Node, error) {
	joints := b.payload.Joints
	if joints.Len() == 0 {
		return nil, nil
	}
	armature := &Node{
		ID:     b.ids.unique("Armature"),
		Name:   "Armature",
		Type:   "NODE",
		Matrix: b.matrix(mgl64.Ident4()),
	}
	nodes := make([]*Node, joints.Len())
	for i := 0; i < joints.Len(); i++ {
		nodes[i] = &Node{
			ID:     b.jointNodeIDs[i],
			Name:   joints.Name(i),
			Sid:    b.jointSids[i],
			Type:   "JOINT",
			Matrix: b.matrix(b.payload.JointLocals[i]),
		}
		parent := b.payload.JointParents[i]
		if parent < 0 {
			armature.Children = append(armature.Children, nodes[i])
			continue
		}
		nodes[parent].Children = append(nodes[parent].Children, nodes[i])
	}
	return armature, nil
}

// addMesh は形状・コントローラを登録し、シーンノードを返す。
func (b *documentBuilder) addMesh(mesh *model.MeshExport) (*Node, error) {
	if mesh.Geometry == nil {
		return nil, model.NewExportError(model.ErrorKindInvalidPolygon, mesh.Name, "", fmt.Errorf("形状が未設定です"))
	}
	geometryID, err := b.addGeometry(mesh)
	if err != nil {
		return nil, err
	}
	node := &Node{
		ID:     b.ids.unique(mesh.Name),
		Name:   mesh.Name,
		Type:   "NODE",
		Matrix: b.matrix(mgl64.Ident4()),
	}
	bindMaterial := b.buildBindMaterial(mesh.Geometry)
	if !mesh.IsSkinned() {
		node.Matrix = b.matrix(mmath.OrIdentity(mesh.ObjectWorld))
		node.InstanceGeometry = &InstanceGeometry{
			URL:          "#" + geometryID,
			Name:         mesh.Name,
			BindMaterial: bindMaterial,
		}
		return node, nil
	}

	controllerID, err := b.addController(mesh, geometryID)
	if err != nil {
		return nil, err
	}
	skeletons := []string{}
	for i, parent := range b.payload.JointParents {
		if parent < 0 {
			skeletons = append(skeletons, "#"+b.jointNodeIDs[i])
		}
	}
	node.InstanceController = &InstanceController{
		URL:          "#" + controllerID,
		Skeletons:    skeletons,
		BindMaterial: bindMaterial,
	}
	return node, nil
}

// addGeometry は形状を登録し、形状IDを返す。
func (b *documentBuilder) addGeometry(mesh *model.MeshExport) (string, error) {
	geometry := mesh.Geometry
	geometryID := b.ids.unique(mesh.Name + "-mesh")
	positionsID := b.ids.unique(geometryID + "-positions")
	normalsID := b.ids.unique(geometryID + "-normals")
	uvsID := b.ids.unique(geometryID + "-map-0")
	verticesID := b.ids.unique(geometryID + "-vertices")

	positions := make([]float64, 0, len(geometry.Positions)*3)
	for _, position := range geometry.Positions {
		positions = append(positions, position.X, position.Y, position.Z)
	}
	normals := make([]float64, 0, geometry.Normals.Len()*3)
	for _, normal := range geometry.Normals.Normals {
		normals = append(normals, normal.X, normal.Y, normal.Z)
	}
	out := Geometry{
		ID:   geometryID,
		Name: mesh.Name,
		Mesh: Mesh{
			Sources: []Source{
				b.floatSource(positionsID, positions, 3, "X", "Y", "Z"),
				b.floatSource(normalsID, normals, 3, "X", "Y", "Z"),
			},
			Vertices: Vertices{
				ID:    verticesID,
				Input: []Input{{Semantic: "POSITION", Source: "#" + positionsID}},
			},
		},
	}
	if geometry.HasUvs {
		uvs := make([]float64, 0, len(geometry.Uvs)*2)
		for _, uv := range geometry.Uvs {
			uvs = append(uvs, uv[0], uv[1])
		}
		out.Mesh.Sources = append(out.Mesh.Sources, b.floatSource(uvsID, uvs, 2, "S", "T"))
	}

	stride := geometry.Stride()
	for _, polylist := range geometry.Polylists {
		if err := validatePolylist(mesh.Name, geometry, polylist); err != nil {
			return "", err
		}
		inputs := []Input{
			{Semantic: "VERTEX", Source: "#" + verticesID, Offset: intPtr(0)},
			{Semantic: "NORMAL", Source: "#" + normalsID, Offset: intPtr(1)},
		}
		if stride == 3 {
			inputs = append(inputs, Input{Semantic: "TEXCOORD", Source: "#" + uvsID, Offset: intPtr(2), Set: intPtr(0)})
		}
		primitive := Primitive{
			Material: b.materialID(polylist.MaterialName),
			Count:    polylist.FaceCount(),
			Inputs:   inputs,
			P:        formatInts(polylist.Indexes),
		}
		if polylist.AllTriangles {
			primitive.XMLName.Local = "triangles"
		} else {
			primitive.XMLName.Local = "polylist"
			primitive.VCount = formatInts(polylist.VCounts)
		}
		out.Mesh.Primitives = append(out.Mesh.Primitives, primitive)
	}
	b.doc.LibraryGeometries.Geometries = append(b.doc.LibraryGeometries.Geometries, out)
	return geometryID, nil
}

// addController はスキンコントローラを登録し、コントローラIDを返す。
func (b *documentBuilder) addController(mesh *model.MeshExport, geometryID string) (string, error) {
	joints := b.payload.Joints
	if mesh.Joints != nil && mesh.Joints.Len() != joints.Len() {
		return "", model.NewExportError(
			model.ErrorKindJointIndexOutOfRange,
			mesh.Name,
			"",
			fmt.Errorf("メッシュのジョイント数が文書と一致しません: mesh=%d document=%d", mesh.Joints.Len(), joints.Len()),
		)
	}
	if len(mesh.InverseBinds) != joints.Len() {
		return "", model.NewExportError(
			model.ErrorKindJointIndexOutOfRange,
			mesh.Name,
			"",
			fmt.Errorf("逆バインド行列数が一致しません: joints=%d matrices=%d", joints.Len(), len(mesh.InverseBinds)),
		)
	}
	vertexCount := len(mesh.Geometry.Positions)
	if mesh.Weights == nil || len(mesh.Weights.Influences) != vertexCount {
		return "", model.NewExportError(
			model.ErrorKindInvalidPolygon,
			mesh.Name,
			"",
			fmt.Errorf("ウェイト表の頂点数が一致しません: vertices=%d", vertexCount),
		)
	}

	controllerID := b.ids.unique("Armature_" + mesh.Name + "-skin")
	jointsID := b.ids.unique(controllerID + "-joints")
	bindPosesID := b.ids.unique(controllerID + "-bind_poses")
	weightsID := b.ids.unique(controllerID + "-weights")

	bindPoses := make([]float64, 0, joints.Len()*16)
	for _, inverse := range mesh.InverseBinds {
		bindPoses = append(bindPoses, mmath.MatToRowMajor(inverse)...)
	}

	weightValues := []float64{}
	weightIndexes := map[float64]int{}
	vcounts := make([]int, vertexCount)
	pairs := []int{}
	for vertexIndex, influences := range mesh.Weights.Influences {
		vcounts[vertexIndex] = len(influences)
		rounded := quantizeWeights(influences, b.precision)
		for i, influence := range influences {
			if influence.JointIndex < 0 || influence.JointIndex >= joints.Len() {
				return "", model.NewExportError(
					model.ErrorKindJointIndexOutOfRange,
					mesh.Name,
					"",
					fmt.Errorf("ジョイント集合外を参照しています: vertex=%d joint=%d", vertexIndex, influence.JointIndex),
				)
			}
			weight := rounded[i]
			weightIndex, ok := weightIndexes[weight]
			if !ok {
				weightIndex = len(weightValues)
				weightIndexes[weight] = weightIndex
				weightValues = append(weightValues, weight)
			}
			pairs = append(pairs, influence.JointIndex, weightIndex)
		}
	}

	controller := Controller{
		ID:   controllerID,
		Name: "Armature",
		Skin: Skin{
			Source:          "#" + geometryID,
			BindShapeMatrix: b.formatFloats(mmath.MatToRowMajor(mmath.OrIdentity(mesh.BindShapeMatrix))),
			Sources: []Source{
				{
					ID: jointsID,
					NameArray: &NameArray{
						ID:    jointsID + "-array",
						Count: len(b.jointSids),
						Value: strings.Join(b.jointSids, " "),
					},
					Technique: TechniqueCommon{Accessor: Accessor{
						Source: "#" + jointsID + "-array",
						Count:  len(b.jointSids),
						Stride: 1,
						Params: []Param{{Name: "JOINT", Type: "name"}},
					}},
				},
				{
					ID: bindPosesID,
					FloatArray: &FloatArray{
						ID:    bindPosesID + "-array",
						Count: len(bindPoses),
						Value: b.formatFloats(bindPoses),
					},
					Technique: TechniqueCommon{Accessor: Accessor{
						Source: "#" + bindPosesID + "-array",
						Count:  joints.Len(),
						Stride: 16,
						Params: []Param{{Name: "TRANSFORM", Type: "float4x4"}},
					}},
				},
				b.floatSource(weightsID, weightValues, 1, "WEIGHT"),
			},
			Joints: SkinJoints{Inputs: []Input{
				{Semantic: "JOINT", Source: "#" + jointsID},
				{Semantic: "INV_BIND_MATRIX", Source: "#" + bindPosesID},
			}},
			VertexWeights: VertexWeights{
				Count: vertexCount,
				Inputs: []Input{
					{Semantic: "JOINT", Source: "#" + jointsID, Offset: intPtr(0)},
					{Semantic: "WEIGHT", Source: "#" + weightsID, Offset: intPtr(1)},
				},
				VCount: formatInts(vcounts),
				V:      formatInts(pairs),
			},
		},
	}
	b.doc.LibraryControllers.Controllers = append(b.doc.LibraryControllers.Controllers, controller)
	return controllerID, nil
}

// buildBindMaterial は形状が参照する材質の結合を初出順で組み立てる。
func (b *documentBuilder) buildBindMaterial(geometry *model.Geometry) *BindMaterial {
	if len(geometry.Polylists) == 0 {
		return nil
	}
	bind := &BindMaterial{}
	seen := map[string]struct{}{}
	for _, polylist := range geometry.Polylists {
		id := b.materialID(polylist.MaterialName)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		instance := InstanceMaterial{Symbol: id, Target: "#" + id}
		if geometry.HasUvs {
			instance.BindVertexInputs = []BindVertexInput{{
				Semantic:      uvSetName,
				InputSemantic: "TEXCOORD",
				InputSet:      0,
			}}
		}
		bind.Technique.Materials = append(bind.Technique.Materials, instance)
	}
	return bind
}

// validatePolylist は面リストのindexが各配列の範囲内か検証する。
func validatePolylist(meshName string, geometry *model.Geometry, polylist *model.Polylist) error {
	stride := geometry.Stride()
	corners := 0
	for _, count := range polylist.VCounts {
		corners += count
	}
	if len(polylist.Indexes) != corners*stride {
		return model.NewExportError(
			model.ErrorKindInvalidPolygon,
			meshName,
			"",
			fmt.Errorf("面indexの数が一致しません: material=%s indexes=%d corners=%d", polylist.MaterialName, len(polylist.Indexes), corners),
		)
	}
	limits := []int{len(geometry.Positions), geometry.Normals.Len(), len(geometry.Uvs)}
	for i, index := range polylist.Indexes {
		limit := limits[i%stride]
		if index < 0 || index >= limit {
			return model.NewExportError(
				model.ErrorKindInvalidPolygon,
				meshName,
				"",
				fmt.Errorf("面が範囲外の要素を参照しています: material=%s index=%d", polylist.MaterialName, index),
			)
		}
	}
	return nil
}

// floatSource は数値配列ソースを組み立てる。
func (b *documentBuilder) floatSource(id string, values []float64, stride int, names ...string) Source {
	params := make([]Param, 0, len(names))
	for _, name := range names {
		params = append(params, Param{Name: name, Type: "float"})
	}
	return Source{
		ID: id,
		FloatArray: &FloatArray{
			ID:    id + "-array",
			Count: len(values),
			Value: b.formatFloats(values),
		},
		Technique: TechniqueCommon{Accessor: Accessor{
			Source: "#" + id + "-array",
			Count:  len(values) / stride,
			Stride: stride,
			Params: params,
		}},
	}
}

// matrix は行優先の行列要素を組み立てる。
func (b *documentBuilder) matrix(m mgl64.Mat4) Matrix {
	return Matrix{Sid: "transform", Value: b.formatFloats(mmath.MatToRowMajor(m))}
}

// formatFloats は数値を丸めて空白区切りの文字列にする。
func (b *documentBuilder) formatFloats(values []float64) string {
	parts := make([]string, len(values))
	for i, value := range values {
		parts[i] = mmath.FormatFloat(value, b.precision)
	}
	return strings.Join(parts, " ")
}

// quantizeWeights は1頂点分のウェイトを小数桁数単位へ丸める。
// 丸め誤差は端数の大きい順に1単位ずつ配分し、合計を1に保つ。
func quantizeWeights(influences []model.Influence, precision int) []float64 {
	out := make([]float64, len(influences))
	if precision < 0 {
		for i, influence := range influences {
			out[i] = influence.Weight
		}
		return out
	}
	scale := math.Pow(10, float64(precision))
	units := make([]float64, len(influences))
	fractions := make([]float64, len(influences))
	used := 0.0
	for i, influence := range influences {
		scaled := math.Max(influence.Weight, 0) * scale
		units[i] = math.Floor(scaled)
		fractions[i] = scaled - units[i]
		used += units[i]
	}
	order := make([]int, len(influences))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return fractions[order[a]] > fractions[order[b]]
	})
	leftover := int(math.Round(scale - used))
	for i := 0; i < leftover && i < len(order); i++ {
		units[order[i]]++
	}
	for i := range units {
		out[i] = units[i] / scale
	}
	return out
}

// formatInts は整数を空白区切りの文字列にする。
func formatInts(values []int) string {
	parts := make([]string, len(values))
	for i, value := range values {
		parts[i] = strconv.Itoa(value)
	}
	return strings.Join(parts, " ")
}

// intPtr は整数のポインタを返す。
func intPtr(value int) *int {
	return &value
}
