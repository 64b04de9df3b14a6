// 指示: miu200521358
package minteractor

import (
	"reflect"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/miu200521358/mu_skin2dae/pkg/domain/mmath"
	"github.com/miu200521358/mu_skin2dae/pkg/domain/model"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestAssemblePolylistsFlatFacesShareNormal(t *testing.T) {
	mesh := newTestMesh("Body")
	geometry, err := AssemblePolylists(mesh, nil, model.NewExportContext(), model.NewWarnings())
	if err != nil {
		t.Fatalf("assemble failed: %v", err)
	}
	if geometry.Normals.Len() != 1 {
		t.Fatalf("coplanar faces should share one normal: got=%v", geometry.Normals.Normals)
	}
	if geometry.Normals.Normals[0] != (r3.Vec{X: 0, Y: 0, Z: 1}) {
		t.Fatalf("face normal mismatch: got=%v", geometry.Normals.Normals[0])
	}
	if len(geometry.Polylists) != 1 || !geometry.Polylists[0].AllTriangles {
		t.Fatalf("triangle bucket mismatch: got=%v", geometry.Polylists)
	}
	if geometry.HasUvs || geometry.Stride() != 2 {
		t.Fatalf("mesh without uvs should not emit uv stream")
	}
	want := []int{0, 0, 1, 0, 2, 0, 0, 0, 2, 0, 3, 0}
	if got := geometry.Polylists[0].Indexes; !reflect.DeepEqual(got, want) {
		t.Fatalf("index stream mismatch: got=%v want=%v", got, want)
	}
}

func TestAssemblePolylistsNormalDedupByRoundedValue(t *testing.T) {
	mesh := newTestMesh("Body")
	mesh.Polygons = []model.Polygon{
		{
			VertexIndexes: []int{0, 1, 2},
			Smooth:        true,
			Normals: []r3.Vec{
				{X: 0, Y: 0, Z: 1},
				{X: 0.00001, Y: 0, Z: 1},
				{X: 0.001, Y: 0, Z: 1},
			},
		},
		{
			VertexIndexes: []int{0, 2, 3},
			Smooth:        true,
			Normals: []r3.Vec{
				{X: -0.00001, Y: 0, Z: 1},
				{X: 0.001, Y: 0, Z: 1},
				{X: 0, Y: 1, Z: 0},
			},
		},
	}
	ctx := model.NewExportContext()

	geometry, err := AssemblePolylists(mesh, nil, ctx, model.NewWarnings())
	if err != nil {
		t.Fatalf("assemble failed: %v", err)
	}
	normalIndexes := []int{}
	indexes := geometry.Polylists[0].Indexes
	for i := 1; i < len(indexes); i += geometry.Stride() {
		normalIndexes = append(normalIndexes, indexes[i])
	}
	if !reflect.DeepEqual(normalIndexes, []int{0, 0, 1, 0, 1, 2}) {
		t.Fatalf("normal index mismatch: got=%v", normalIndexes)
	}

	// 丸め後の値が一致する角は同じindex、異なる角は別indexになる。
	for i, first := range normalIndexes {
		for j, second := range normalIndexes {
			a := geometry.Normals.Normals[first]
			b := geometry.Normals.Normals[second]
			if (a == b) != (first == second) {
				t.Fatalf("dedup mismatch: corner=%d,%d", i, j)
			}
		}
	}
	for _, normal := range geometry.Normals.Normals {
		if normal != mmath.RoundVec3(normal, ctx.NormalPrecision) {
			t.Fatalf("stored normal should be rounded: got=%v", normal)
		}
	}
}

func TestAssemblePolylistsWeldOverrideReplacesSmoothNormal(t *testing.T) {
	mesh := newTestMesh("Body")
	mesh.Polygons = []model.Polygon{{
		VertexIndexes: []int{0, 1, 2},
		Smooth:        true,
		Normals:       []r3.Vec{{Z: 1}, {Z: 1}, {Z: 1}},
	}}
	overrides := WeldOverrides{1: {X: 0, Y: 2, Z: 0}}

	geometry, err := AssemblePolylists(mesh, overrides, model.NewExportContext(), model.NewWarnings())
	if err != nil {
		t.Fatalf("assemble failed: %v", err)
	}
	indexes := geometry.Polylists[0].Indexes
	if geometry.Normals.Normals[indexes[3]] != (r3.Vec{X: 0, Y: 1, Z: 0}) {
		t.Fatalf("override normal should be normalized and used: got=%v", geometry.Normals.Normals[indexes[3]])
	}
	if indexes[1] != indexes[5] || indexes[1] == indexes[3] {
		t.Fatalf("non overridden corners should keep loop normal: got=%v", indexes)
	}
}

func TestAssemblePolylistsBucketsBySlotWithPolylistEncoding(t *testing.T) {
	mesh := newTestMesh("Body")
	mesh.MaterialNames = []string{"Skin", "Cloth"}
	mesh.Polygons = []model.Polygon{
		{VertexIndexes: []int{0, 1, 2, 3}, MaterialIndex: 1, Uvs: []mgl64.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}}},
		{VertexIndexes: []int{0, 1, 2}, MaterialIndex: 0},
		{VertexIndexes: []int{0, 2, 3}, MaterialIndex: 1},
	}
	ctx := model.NewExportContext()
	ctx.MaxTrianglesPerMaterial = 2
	warnings := model.NewWarnings()

	geometry, err := AssemblePolylists(mesh, nil, ctx, warnings)
	if err != nil {
		t.Fatalf("assemble failed: %v", err)
	}
	if len(geometry.Polylists) != 2 {
		t.Fatalf("bucket count mismatch: got=%d", len(geometry.Polylists))
	}
	skin, cloth := geometry.Polylists[0], geometry.Polylists[1]
	if skin.MaterialName != "Skin" || cloth.MaterialName != "Cloth" {
		t.Fatalf("slot order mismatch: got=%s,%s", skin.MaterialName, cloth.MaterialName)
	}
	if !skin.AllTriangles || cloth.AllTriangles {
		t.Fatalf("triangle flag mismatch: skin=%v cloth=%v", skin.AllTriangles, cloth.AllTriangles)
	}
	if !reflect.DeepEqual(cloth.VCounts, []int{4, 3}) || cloth.Triangles != 3 {
		t.Fatalf("vcount mismatch: got=%v triangles=%d", cloth.VCounts, cloth.Triangles)
	}
	if !geometry.HasUvs || len(geometry.Uvs) != 10 {
		t.Fatalf("uv stream mismatch: has=%v count=%d", geometry.HasUvs, len(geometry.Uvs))
	}
	if got := len(skin.Indexes) + len(cloth.Indexes); got != 10*geometry.Stride() {
		t.Fatalf("index streams should stay aligned: got=%d", got)
	}
	if geometry.Uvs[1] != (mgl64.Vec2{1, 0}) {
		t.Fatalf("uv order mismatch: got=%v", geometry.Uvs[1])
	}
	found, ok := warnings.Find(model.WarningTriangleCountOverLimit, "")
	if !ok || found.Count != 3 || warnings.Len() != 1 {
		t.Fatalf("triangle limit warning mismatch: got=%v", warnings.Values())
	}
}

func TestAssemblePolylistsRejectsInvalidPolygon(t *testing.T) {
	testCases := []struct {
		name    string
		polygon model.Polygon
	}{
		{name: "too few corners", polygon: model.Polygon{VertexIndexes: []int{0, 1}}},
		{name: "out of range", polygon: model.Polygon{VertexIndexes: []int{0, 1, 9}}},
		{name: "negative slot", polygon: model.Polygon{VertexIndexes: []int{0, 1, 2}, MaterialIndex: -1}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mesh := newTestMesh("Body")
			mesh.Polygons = []model.Polygon{tc.polygon}
			_, err := AssemblePolylists(mesh, nil, model.NewExportContext(), model.NewWarnings())
			kind, ok := model.ErrorKindOf(err)
			if !ok || kind != model.ErrorKindInvalidPolygon {
				t.Fatalf("error kind mismatch: got=%v", err)
			}
		})
	}
}
