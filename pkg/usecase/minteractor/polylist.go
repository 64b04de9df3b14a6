// 指示: miu200521358
package minteractor

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/miu200521358/mu_skin2dae/pkg/domain/mmath"
	"github.com/miu200521358/mu_skin2dae/pkg/domain/model"
	"gonum.org/v1/gonum/spatial/r3"
)

// WeldOverrides は頂点indexごとの置換法線を表す。
type WeldOverrides map[int]r3.Vec

// AssemblePolylists はメッシュを材質スロットごとの面リストと重複なし法線表へ変換する。
func AssemblePolylists(
	mesh *model.Mesh,
	weldOverrides WeldOverrides,
	ctx model.ExportContext,
	warnings *model.Warnings,
) (*model.Geometry, error) {
	if mesh == nil {
		return nil, fmt.Errorf("メッシュが未設定です")
	}

	geometry := &model.Geometry{
		Positions: make([]r3.Vec, len(mesh.Vertices)),
		Normals:   model.NewNormalTable(),
		Uvs:       []mgl64.Vec2{},
		Polylists: []*model.Polylist{},
	}
	for i, vertex := range mesh.Vertices {
		geometry.Positions[i] = mmath.RoundVec3(vertex.Position, ctx.Precision)
	}
	for _, polygon := range mesh.Polygons {
		if polygon.HasUvs() {
			geometry.HasUvs = true
			break
		}
	}

	buckets := map[int]*model.Polylist{}
	for polygonIndex, polygon := range mesh.Polygons {
		if err := validatePolygon(mesh, polygonIndex, polygon); err != nil {
			return nil, err
		}
		bucket, ok := buckets[polygon.MaterialIndex]
		if !ok {
			bucket = &model.Polylist{
				MaterialSlot: polygon.MaterialIndex,
				MaterialName: resolveSlotMaterialName(mesh, polygon.MaterialIndex),
				AllTriangles: true,
				VCounts:      []int{},
				Indexes:      []int{},
			}
			buckets[polygon.MaterialIndex] = bucket
		}

		corners := len(polygon.VertexIndexes)
		faceNormal := newellNormal(mesh, polygon.VertexIndexes)
		useLoopNormals := polygon.Smooth && len(polygon.Normals) == corners
		for corner, vertexIndex := range polygon.VertexIndexes {
			normal := faceNormal
			if polygon.Smooth {
				if override, ok := weldOverrides[vertexIndex]; ok {
					normal = unitOrZero(override)
				} else if useLoopNormals {
					normal = unitOrZero(polygon.Normals[corner])
				}
			}
			normalIndex := geometry.Normals.IndexOf(mmath.RoundVec3(normal, ctx.NormalPrecision))
			bucket.Indexes = append(bucket.Indexes, vertexIndex, normalIndex)
			if geometry.HasUvs {
				uv := mgl64.Vec2{}
				if polygon.HasUvs() {
					uv = polygon.Uvs[corner]
				}
				uv = mgl64.Vec2{
					mmath.RoundFloat(uv[0], ctx.Precision),
					mmath.RoundFloat(uv[1], ctx.Precision),
				}
				bucket.Indexes = append(bucket.Indexes, len(geometry.Uvs))
				geometry.Uvs = append(geometry.Uvs, uv)
			}
		}
		bucket.VCounts = append(bucket.VCounts, corners)
		bucket.Triangles += corners - 2
		if corners != 3 {
			bucket.AllTriangles = false
		}
	}

	slots := make([]int, 0, len(buckets))
	for slot := range buckets {
		slots = append(slots, slot)
	}
	sort.Ints(slots)
	for _, slot := range slots {
		bucket := buckets[slot]
		geometry.Polylists = append(geometry.Polylists, bucket)
		if ctx.MaxTrianglesPerMaterial > 0 && bucket.Triangles > ctx.MaxTrianglesPerMaterial {
			warnings.Add(
				model.WarningTriangleCountOverLimit,
				mesh.Name,
				bucket.Triangles,
				fmt.Sprintf("material=%s limit=%d", bucket.MaterialName, ctx.MaxTrianglesPerMaterial),
			)
			logExportWarn("材質あたりの三角形数が上限を超えています: mesh=%s material=%s count=%d limit=%d",
				mesh.Name, bucket.MaterialName, bucket.Triangles, ctx.MaxTrianglesPerMaterial)
		}
	}
	return geometry, nil
}

// validatePolygon は面の角数と頂点参照を検証する。
func validatePolygon(mesh *model.Mesh, polygonIndex int, polygon model.Polygon) error {
	if len(polygon.VertexIndexes) < 3 {
		return model.NewExportError(
			model.ErrorKindInvalidPolygon,
			mesh.Name,
			"",
			fmt.Errorf("面の頂点数が不足しています: polygon=%d corners=%d", polygonIndex, len(polygon.VertexIndexes)),
		)
	}
	for _, vertexIndex := range polygon.VertexIndexes {
		if vertexIndex < 0 || vertexIndex >= len(mesh.Vertices) {
			return model.NewExportError(
				model.ErrorKindInvalidPolygon,
				mesh.Name,
				"",
				fmt.Errorf("面が範囲外の頂点を参照しています: polygon=%d vertex=%d", polygonIndex, vertexIndex),
			)
		}
	}
	if polygon.MaterialIndex < 0 {
		return model.NewExportError(
			model.ErrorKindInvalidPolygon,
			mesh.Name,
			"",
			fmt.Errorf("材質スロットが不正です: polygon=%d slot=%d", polygonIndex, polygon.MaterialIndex),
		)
	}
	return nil
}

// resolveSlotMaterialName はスロットの材質名を返す。未割当の場合はメッシュ名から生成する。
func resolveSlotMaterialName(mesh *model.Mesh, slot int) string {
	if name, ok := mesh.MaterialName(slot); ok {
		return name
	}
	return fmt.Sprintf("%s-material%d", mesh.Name, slot)
}

// newellNormal は Newell 法で面法線を求める。
func newellNormal(mesh *model.Mesh, vertexIndexes []int) r3.Vec {
	normal := r3.Vec{}
	for i, current := range vertexIndexes {
		next := vertexIndexes[(i+1)%len(vertexIndexes)]
		a := mesh.Vertices[current].Position
		b := mesh.Vertices[next].Position
		normal.X += (a.Y - b.Y) * (a.Z + b.Z)
		normal.Y += (a.Z - b.Z) * (a.X + b.X)
		normal.Z += (a.X - b.X) * (a.Y + b.Y)
	}
	return unitOrZero(normal)
}

// unitOrZero は単位ベクトルを返す。長さ0の場合は零ベクトルを返す。
func unitOrZero(v r3.Vec) r3.Vec {
	if r3.Norm(v) == 0 {
		return r3.Vec{}
	}
	return r3.Unit(v)
}
