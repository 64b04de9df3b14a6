// 指示: miu200521358
package model

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/spatial/r3"
)

// WeightEntry は頂点が参照するボーン名とウェイトの組を表す。
type WeightEntry struct {
	BoneName string
	Weight   float64
}

// Vertex はメッシュ頂点を表す。ウェイトは合計1とは限らない。
type Vertex struct {
	Position r3.Vec
	Weights  []WeightEntry
}

// Polygon は面を表す。Normals/Uvs は角ごとの値で、未設定の場合は空。
type Polygon struct {
	VertexIndexes []int
	MaterialIndex int
	Smooth        bool
	Normals       []r3.Vec
	Uvs           []mgl64.Vec2
}

// HasUvs は全ての角にUVがあるか判定する。
func (p Polygon) HasUvs() bool {
	return len(p.Uvs) > 0 && len(p.Uvs) == len(p.VertexIndexes)
}

// Mesh はメッシュオブジェクトを表す。
type Mesh struct {
	Name          string
	Vertices      []Vertex
	Polygons      []Polygon
	MaterialNames []string
	ObjectWorld   mgl64.Mat4
}

// WeightGroupNames はメッシュ内で正のウェイトを持つボーン名と参照頂点数を返す。
func (m *Mesh) WeightGroupNames() map[string]int {
	counts := map[string]int{}
	if m == nil {
		return counts
	}
	for _, vertex := range m.Vertices {
		seen := map[string]struct{}{}
		for _, entry := range vertex.Weights {
			if entry.BoneName == "" || !(entry.Weight > 0) || math.IsInf(entry.Weight, 0) {
				continue
			}
			if _, ok := seen[entry.BoneName]; ok {
				continue
			}
			seen[entry.BoneName] = struct{}{}
			counts[entry.BoneName]++
		}
	}
	return counts
}

// MaterialName はスロットindexに対応する材質名を返す。
func (m *Mesh) MaterialName(slot int) (string, bool) {
	if m == nil || slot < 0 || slot >= len(m.MaterialNames) {
		return "", false
	}
	name := m.MaterialNames[slot]
	return name, name != ""
}

// Material は材質を表す。
type Material struct {
	Name         string
	DiffuseColor [4]float64
	TexturePath  string
	DoubleSided  bool
}

// NewMaterial は既定色の材質を生成する。
func NewMaterial(name string) *Material {
	return &Material{
		Name:         name,
		DiffuseColor: [4]float64{0.8, 0.8, 0.8, 1.0},
	}
}
