// 指示: miu200521358
package minteractor

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/miu200521358/mu_skin2dae/pkg/domain/mmath"
	"github.com/miu200521358/mu_skin2dae/pkg/domain/model"
	"gonum.org/v1/gonum/spatial/r3"
)

type testBoneSpec struct {
	name   string
	parent string
	deform bool
	y      float64
}

// newTestSkeleton は Hips>Spine>Neck>Head と補助ボーンを持つスケルトンを生成する。
func newTestSkeleton(t *testing.T) *model.Skeleton {
	t.Helper()
	return buildTestSkeleton(t, []testBoneSpec{
		{name: "Hips", deform: true, y: 1.0},
		{name: "Spine", parent: "Hips", deform: true, y: 0.2},
		{name: "Neck", parent: "Spine", deform: true, y: 0.3},
		{name: "Head", parent: "Neck", deform: true, y: 0.1},
		{name: "att_Hat", parent: "Head", deform: true, y: 0.2},
		{name: "Helper", parent: "Hips", deform: false, y: 0.1},
		{name: "LeftLeg", parent: "Hips", deform: true, y: -0.1},
		{name: "LeftFoot", parent: "LeftLeg", deform: true, y: -0.8},
	})
}

func buildTestSkeleton(t *testing.T, specs []testBoneSpec) *model.Skeleton {
	t.Helper()
	skeleton := model.NewSkeleton()
	for _, spec := range specs {
		bone := model.NewBone(spec.name)
		bone.Deform = spec.deform
		bone.Rest = mmath.NewTransformByPosition(0, spec.y, 0)
		if _, err := skeleton.AddBone(bone, spec.parent); err != nil {
			t.Fatalf("add bone failed: %v", err)
		}
	}
	return skeleton
}

func mustBone(t *testing.T, skeleton *model.Skeleton, name string) *model.Bone {
	t.Helper()
	bone, ok := skeleton.GetByName(name)
	if !ok {
		t.Fatalf("bone not found: %s", name)
	}
	return bone
}

func weights(entries ...any) []model.WeightEntry {
	out := make([]model.WeightEntry, 0, len(entries)/2)
	for i := 0; i+1 < len(entries); i += 2 {
		out = append(out, model.WeightEntry{BoneName: entries[i].(string), Weight: entries[i+1].(float64)})
	}
	return out
}

// newTestMesh は三角形2枚の四角形メッシュを生成する。
func newTestMesh(name string, vertexWeights ...[]model.WeightEntry) *model.Mesh {
	positions := []r3.Vec{
		{X: 0, Y: 0, Z: 0},
		{X: 1, Y: 0, Z: 0},
		{X: 1, Y: 1, Z: 0},
		{X: 0, Y: 1, Z: 0},
	}
	mesh := &model.Mesh{
		Name:          name,
		Vertices:      make([]model.Vertex, len(positions)),
		MaterialNames: []string{"Skin"},
		ObjectWorld:   mgl64.Ident4(),
		Polygons: []model.Polygon{
			{VertexIndexes: []int{0, 1, 2}},
			{VertexIndexes: []int{0, 2, 3}},
		},
	}
	for i, position := range positions {
		mesh.Vertices[i].Position = position
		if i < len(vertexWeights) {
			mesh.Vertices[i].Weights = vertexWeights[i]
		}
	}
	return mesh
}

func newTestScene(t *testing.T) *model.Scene {
	t.Helper()
	scene := model.NewScene("avatar")
	scene.Author = "tester"
	scene.Skeleton = newTestSkeleton(t)
	body := newTestMesh(
		"Body",
		weights("Hips", 1.0),
		weights("Spine", 0.5, "Hips", 0.5),
		weights("Neck", 0.7, "Head", 0.5),
		weights("LeftLeg", 1.0),
	)
	face := newTestMesh(
		"Face",
		weights("Head", 1.0),
		weights("Head", 1.0),
		weights("Head", 0.5, "Neck", 0.5),
		weights("Head", 1.0),
	)
	face.MaterialNames = []string{"Face"}
	scene.Meshes = []*model.Mesh{face, body}
	scene.Materials["Skin"] = model.NewMaterial("Skin")
	scene.Materials["Face"] = model.NewMaterial("Face")
	return scene
}

func jointNames(joints *model.JointSet) []string {
	return joints.Names()
}
