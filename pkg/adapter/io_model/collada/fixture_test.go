// 指示: miu200521358
package collada

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/miu200521358/mu_skin2dae/pkg/domain/model"
	"gonum.org/v1/gonum/spatial/r3"
)

// newTestPayload は2ジョイント・スキンありメッシュ1つとスキンなしメッシュ1つの出力データを返す。
func newTestPayload() *model.ExportPayload {
	joints := model.NewJointSet()
	joints.Append("Hips", 1)
	joints.Append("Spine", 2)

	normals := model.NewNormalTable()
	normals.IndexOf(r3.Vec{X: 0, Y: 0, Z: 1})

	body := &model.MeshExport{
		Name:            "Body",
		BindShapeMatrix: mgl64.Ident4(),
		Joints:          joints,
		InverseBinds: []mgl64.Mat4{
			mgl64.Translate3D(0, -1, 0),
			mgl64.Translate3D(0, -1.2, 0),
		},
		Weights: &model.WeightTable{Influences: [][]model.Influence{
			{{JointIndex: 0, Weight: 1}},
			{{JointIndex: 0, Weight: 0.5}, {JointIndex: 1, Weight: 0.5}},
			{{JointIndex: 1, Weight: 1}},
			{{JointIndex: 1, Weight: 1}},
		}},
		Geometry: &model.Geometry{
			Positions: []r3.Vec{{X: 0, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 2}, {X: 0, Y: 2}},
			Normals:   normals,
			Uvs:       []mgl64.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}},
			HasUvs:    true,
			Polylists: []*model.Polylist{{
				MaterialSlot: 0,
				MaterialName: "Skin",
				AllTriangles: true,
				VCounts:      []int{3, 3},
				Indexes:      []int{0, 0, 0, 1, 0, 1, 2, 0, 2, 0, 0, 0, 2, 0, 2, 3, 0, 3},
				Triangles:    2,
			}},
		},
		MaterialNames: []string{"Skin"},
	}

	propNormals := model.NewNormalTable()
	propNormals.IndexOf(r3.Vec{X: 0, Y: 1, Z: 0})
	prop := &model.MeshExport{
		Name:            "Prop",
		BindShapeMatrix: mgl64.Ident4(),
		Joints:          model.NewJointSet(),
		Geometry: &model.Geometry{
			Positions: []r3.Vec{{X: 0}, {X: 1}, {X: 1, Z: 1}, {Z: 1}},
			Normals:   propNormals,
			Polylists: []*model.Polylist{{
				MaterialSlot: 0,
				MaterialName: "Metal",
				VCounts:      []int{4},
				Indexes:      []int{0, 0, 1, 0, 2, 0, 3, 0},
				Triangles:    2,
			}},
		},
		MaterialNames: []string{"Metal"},
	}

	skin := model.NewMaterial("Skin")
	skin.TexturePath = "textures\\skin.png"
	metal := model.NewMaterial("Metal")
	metal.DoubleSided = true

	return &model.ExportPayload{
		SceneName:    "scene",
		Author:       "tester",
		Created:      time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		UpAxis:       model.UpAxisZ,
		Precision:    6,
		Joints:       joints,
		JointLocals:  []mgl64.Mat4{mgl64.Translate3D(0, 1, 0), mgl64.Translate3D(0, 0.2, 0)},
		JointParents: []int{-1, 0},
		Meshes:       []*model.MeshExport{body, prop},
		Materials:    []*model.Material{skin, metal},
	}
}
