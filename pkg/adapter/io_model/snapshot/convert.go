// 指示: miu200521358
package snapshot

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/miu200521358/mu_skin2dae/pkg/domain/mmath"
	"github.com/miu200521358/mu_skin2dae/pkg/domain/model"
	"gonum.org/v1/gonum/spatial/r3"
)

// toScene は保存形式からシーンを組み立てる。
func toScene(doc *sceneDocument, fallbackName string) (*model.Scene, error) {
	if doc.Version > snapshotFormatVersion {
		return nil, fmt.Errorf("未対応のスナップショット形式です: version=%d", doc.Version)
	}
	name := strings.TrimSpace(doc.Name)
	if name == "" {
		name = fallbackName
	}
	scene := model.NewScene(name)
	scene.SourceName = fallbackName
	scene.Author = doc.Author
	switch doc.UpAxis {
	case "":
	case model.UpAxisY, model.UpAxisZ:
		scene.UpAxis = doc.UpAxis
	default:
		return nil, fmt.Errorf("上方向軸が不正です: %s", doc.UpAxis)
	}

	if len(doc.ArmatureWorld) > 0 {
		armature, ok := mmath.MatFromRowMajor(doc.ArmatureWorld)
		if !ok {
			return nil, fmt.Errorf("アーマチュア行列の要素数が不正です: %d", len(doc.ArmatureWorld))
		}
		scene.Skeleton.ArmatureWorld = armature
	}
	if doc.ScaleCorrection != 0 {
		scene.Skeleton.ScaleCorrection = doc.ScaleCorrection
	}
	if err := addBones(scene.Skeleton, doc.Bones); err != nil {
		return nil, err
	}

	for i := range doc.Meshes {
		mesh, err := toMesh(&doc.Meshes[i])
		if err != nil {
			return nil, err
		}
		scene.Meshes = append(scene.Meshes, mesh)
	}
	for _, materialDoc := range doc.Materials {
		if strings.TrimSpace(materialDoc.Name) == "" {
			return nil, fmt.Errorf("材質名が未指定です")
		}
		material := model.NewMaterial(materialDoc.Name)
		if materialDoc.Diffuse != nil {
			material.DiffuseColor = *materialDoc.Diffuse
		}
		material.TexturePath = materialDoc.Texture
		material.DoubleSided = materialDoc.DoubleSided
		scene.Materials[material.Name] = material
	}
	return scene, nil
}

// addBones は親が登録済みのボーンから順に追加する。
// 親が解決できないボーンが残った場合は循環または欠落として扱う。
func addBones(skeleton *model.Skeleton, bones []boneDocument) error {
	pending := make([]boneDocument, len(bones))
	copy(pending, bones)
	for len(pending) > 0 {
		rest := pending[:0]
		progressed := false
		for _, boneDoc := range pending {
			if boneDoc.Parent != "" {
				if _, ok := skeleton.GetByName(boneDoc.Parent); !ok {
					rest = append(rest, boneDoc)
					continue
				}
			}
			bone := model.NewBone(boneDoc.Name)
			bone.Rest = toTransform(boneDoc.Rest)
			if boneDoc.Pose != nil {
				bone.Pose = toTransform(*boneDoc.Pose)
				bone.HasPose = true
			}
			if boneDoc.Reference != nil {
				bone.Reference = toTransform(*boneDoc.Reference)
				bone.HasReference = true
			}
			bone.Deform = boneDoc.Deform == nil || *boneDoc.Deform
			if _, err := skeleton.AddBone(bone, boneDoc.Parent); err != nil {
				return err
			}
			progressed = true
		}
		if !progressed {
			names := make([]string, 0, len(rest))
			for _, boneDoc := range rest {
				names = append(names, boneDoc.Name)
			}
			return model.NewExportError(
				model.ErrorKindBoneCycle,
				"",
				rest[0].Name,
				fmt.Errorf("親ボーンを解決できません: bones=%s", strings.Join(names, ",")),
			)
		}
		pending = rest
	}
	return nil
}

// toMesh は保存形式からメッシュを組み立てる。
func toMesh(doc *meshDocument) (*model.Mesh, error) {
	if strings.TrimSpace(doc.Name) == "" {
		return nil, fmt.Errorf("メッシュ名が未指定です")
	}
	mesh := &model.Mesh{
		Name:          doc.Name,
		Vertices:      make([]model.Vertex, 0, len(doc.Vertices)),
		Polygons:      make([]model.Polygon, 0, len(doc.Polygons)),
		MaterialNames: append([]string{}, doc.Materials...),
		ObjectWorld:   mgl64.Ident4(),
	}
	if len(doc.ObjectWorld) > 0 {
		world, ok := mmath.MatFromRowMajor(doc.ObjectWorld)
		if !ok {
			return nil, fmt.Errorf("オブジェクト行列の要素数が不正です: mesh=%s count=%d", doc.Name, len(doc.ObjectWorld))
		}
		mesh.ObjectWorld = world
	}
	for _, vertexDoc := range doc.Vertices {
		vertex := model.Vertex{Position: toVec3(vertexDoc.Position)}
		for _, weightDoc := range vertexDoc.Weights {
			vertex.Weights = append(vertex.Weights, model.WeightEntry{BoneName: weightDoc.Bone, Weight: weightDoc.Weight})
		}
		mesh.Vertices = append(mesh.Vertices, vertex)
	}
	for _, polygonDoc := range doc.Polygons {
		polygon := model.Polygon{
			VertexIndexes: append([]int{}, polygonDoc.Vertices...),
			MaterialIndex: polygonDoc.Material,
			Smooth:        polygonDoc.Smooth,
		}
		for _, normal := range polygonDoc.Normals {
			polygon.Normals = append(polygon.Normals, toVec3(normal))
		}
		for _, uv := range polygonDoc.Uvs {
			polygon.Uvs = append(polygon.Uvs, mgl64.Vec2{uv[0], uv[1]})
		}
		mesh.Polygons = append(mesh.Polygons, polygon)
	}
	return mesh, nil
}

// fromScene はシーンを保存形式へ変換する。ボーンは親を先に並べる。
func fromScene(scene *model.Scene) (*sceneDocument, error) {
	if scene == nil || scene.Skeleton == nil {
		return nil, fmt.Errorf("シーンが未設定です")
	}
	skeleton := scene.Skeleton
	doc := &sceneDocument{
		Version:         snapshotFormatVersion,
		Name:            scene.Name,
		Author:          scene.Author,
		UpAxis:          scene.UpAxis,
		ArmatureWorld:   mmath.MatToRowMajor(skeleton.ArmatureMatrix()),
		ScaleCorrection: skeleton.ScaleCorrection,
		Bones:           []boneDocument{},
		Meshes:          []meshDocument{},
	}
	for _, index := range skeleton.Hierarchy() {
		bone, err := skeleton.Get(index)
		if err != nil {
			return nil, err
		}
		boneDoc := boneDocument{Name: bone.Name, Rest: fromTransform(bone.Rest)}
		if parent, err := skeleton.Get(bone.ParentIndex); err == nil && !parent.IsRoot() {
			boneDoc.Parent = parent.Name
		}
		if bone.HasPose {
			pose := fromTransform(bone.Pose)
			boneDoc.Pose = &pose
		}
		if bone.HasReference {
			reference := fromTransform(bone.Reference)
			boneDoc.Reference = &reference
		}
		deform := bone.Deform
		boneDoc.Deform = &deform
		doc.Bones = append(doc.Bones, boneDoc)
	}
	for _, mesh := range scene.Meshes {
		if mesh == nil {
			continue
		}
		doc.Meshes = append(doc.Meshes, fromMesh(mesh))
	}
	names := make([]string, 0, len(scene.Materials))
	for name := range scene.Materials {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		material := scene.Materials[name]
		if material == nil {
			continue
		}
		diffuse := material.DiffuseColor
		doc.Materials = append(doc.Materials, materialDocument{
			Name:        material.Name,
			Diffuse:     &diffuse,
			Texture:     material.TexturePath,
			DoubleSided: material.DoubleSided,
		})
	}
	return doc, nil
}

// fromMesh はメッシュを保存形式へ変換する。
func fromMesh(mesh *model.Mesh) meshDocument {
	doc := meshDocument{
		Name:        mesh.Name,
		ObjectWorld: mmath.MatToRowMajor(mmath.OrIdentity(mesh.ObjectWorld)),
		Materials:   append([]string{}, mesh.MaterialNames...),
		Vertices:    make([]vertexDocument, 0, len(mesh.Vertices)),
		Polygons:    make([]polygonDocument, 0, len(mesh.Polygons)),
	}
	for _, vertex := range mesh.Vertices {
		vertexDoc := vertexDocument{Position: fromVec3(vertex.Position)}
		for _, entry := range vertex.Weights {
			vertexDoc.Weights = append(vertexDoc.Weights, weightDocument{Bone: entry.BoneName, Weight: entry.Weight})
		}
		doc.Vertices = append(doc.Vertices, vertexDoc)
	}
	for _, polygon := range mesh.Polygons {
		polygonDoc := polygonDocument{
			Vertices: append([]int{}, polygon.VertexIndexes...),
			Material: polygon.MaterialIndex,
			Smooth:   polygon.Smooth,
		}
		for _, normal := range polygon.Normals {
			polygonDoc.Normals = append(polygonDoc.Normals, fromVec3(normal))
		}
		for _, uv := range polygon.Uvs {
			polygonDoc.Uvs = append(polygonDoc.Uvs, [2]float64{uv[0], uv[1]})
		}
		doc.Polygons = append(doc.Polygons, polygonDoc)
	}
	return doc
}

// toTransform は保存形式の変換を正規化済みの変換へ戻す。
func toTransform(doc transformDocument) mmath.Transform {
	t := mmath.NewTransform()
	t.Position = toVec3(doc.Position)
	if doc.Rotation != nil {
		rotation := *doc.Rotation
		t.Rotation = mgl64.Quat{W: rotation[3], V: mgl64.Vec3{rotation[0], rotation[1], rotation[2]}}
	}
	if doc.Scale != nil {
		t.Scale = toVec3(*doc.Scale)
	}
	return t.Normalized()
}

// fromTransform は変換を保存形式へ変換する。
func fromTransform(t mmath.Transform) transformDocument {
	rotation := [4]float64{t.Rotation.V[0], t.Rotation.V[1], t.Rotation.V[2], t.Rotation.W}
	scale := fromVec3(t.Scale)
	return transformDocument{
		Position: fromVec3(t.Position),
		Rotation: &rotation,
		Scale:    &scale,
	}
}

func toVec3(values [3]float64) r3.Vec {
	return r3.Vec{X: values[0], Y: values[1], Z: values[2]}
}

func fromVec3(v r3.Vec) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}
