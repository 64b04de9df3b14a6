// 指示: miu200521358
package model

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/spatial/r3"
)

// Influence は頂点へのジョイント影響を表す。JointIndex は JointSet のindex。
type Influence struct {
	JointIndex int
	Weight     float64
}

// WeightTable は頂点indexごとの影響リストを表す。
type WeightTable struct {
	Influences [][]Influence
	// ZeroWeightVertices は有効ウェイトを持たない頂点index。
	ZeroWeightVertices []int
	TruncatedVertices  int
}

// AsVertices は影響リストをジョイント名のウェイトへ戻した頂点列を返す。
func (t *WeightTable) AsVertices(source []Vertex, joints *JointSet) []Vertex {
	out := make([]Vertex, len(source))
	for i, vertex := range source {
		out[i] = Vertex{Position: vertex.Position}
		if i >= len(t.Influences) {
			continue
		}
		weights := make([]WeightEntry, 0, len(t.Influences[i]))
		for _, influence := range t.Influences[i] {
			weights = append(weights, WeightEntry{
				BoneName: joints.Name(influence.JointIndex),
				Weight:   influence.Weight,
			})
		}
		out[i].Weights = weights
	}
	return out
}

// NormalTable は丸め済み法線の重複なし配列を表す。
type NormalTable struct {
	Normals []r3.Vec
	indexes map[r3.Vec]int
}

// NewNormalTable は空の法線表を生成する。
func NewNormalTable() *NormalTable {
	return &NormalTable{Normals: []r3.Vec{}, indexes: map[r3.Vec]int{}}
}

// IndexOf は丸め済み法線のindexを返し、未登録なら末尾へ追加する。
func (t *NormalTable) IndexOf(rounded r3.Vec) int {
	if index, ok := t.indexes[rounded]; ok {
		return index
	}
	index := len(t.Normals)
	t.indexes[rounded] = index
	t.Normals = append(t.Normals, rounded)
	return index
}

// Len は法線数を返す。
func (t *NormalTable) Len() int {
	return len(t.Normals)
}

// Polylist は1材質スロット分の面リストを表す。
// Indexes は角ごとに (position, normal[, uv]) の順で並ぶ。
type Polylist struct {
	MaterialSlot int
	MaterialName string
	AllTriangles bool
	VCounts      []int
	Indexes      []int
	Triangles    int
}

// FaceCount は面数を返す。
func (p *Polylist) FaceCount() int {
	return len(p.VCounts)
}

// Geometry はメッシュ1つ分の出力形状を表す。
type Geometry struct {
	Positions []r3.Vec
	Normals   *NormalTable
	Uvs       []mgl64.Vec2
	HasUvs    bool
	Polylists []*Polylist
}

// Stride は角あたりのindex数を返す。
func (g *Geometry) Stride() int {
	if g.HasUvs {
		return 3
	}
	return 2
}

// MeshExport はメッシュ1つ分の出力データを表す。
type MeshExport struct {
	Name            string
	BindShapeMatrix mgl64.Mat4
	Joints          *JointSet
	InverseBinds    []mgl64.Mat4
	Weights         *WeightTable
	Geometry        *Geometry
	MaterialNames   []string
	// ObjectWorld はスキンなしメッシュのノード行列。スキンありの場合は逆バインド行列に含まれるため使わない。
	ObjectWorld mgl64.Mat4
}

// IsSkinned はスキン出力対象か判定する。
func (m *MeshExport) IsSkinned() bool {
	return m != nil && m.Joints.Len() > 0
}

// ExportPayload は文書化に必要な計算済みデータ一式を表す。
type ExportPayload struct {
	SceneName string
	Author    string
	Created   time.Time
	UpAxis    string
	Precision int
	Joints    *JointSet
	// JointLocals は出力親ジョイントからの相対行列。Joints と同順。
	JointLocals []mgl64.Mat4
	// JointParents は出力親ジョイントのindex。出力親がない場合は -1。
	JointParents []int
	Meshes       []*MeshExport
	Materials    []*Material
}
