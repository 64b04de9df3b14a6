// 指示: miu200521358
package snapshot

// snapshotFormatVersion はシーンスナップショットの形式バージョン。
const snapshotFormatVersion = 1

// sceneDocument はシーンスナップショットの保存形式を表す。
// 行列は行優先16要素、回転は (x, y, z, w) の四元数。
type sceneDocument struct {
	Version         int                `json:"version" msgpack:"version"`
	Name            string             `json:"name" msgpack:"name"`
	Author          string             `json:"author,omitempty" msgpack:"author,omitempty"`
	UpAxis          string             `json:"up_axis,omitempty" msgpack:"up_axis,omitempty"`
	ArmatureWorld   []float64          `json:"armature_world,omitempty" msgpack:"armature_world,omitempty"`
	ScaleCorrection float64            `json:"scale_correction,omitempty" msgpack:"scale_correction,omitempty"`
	Bones           []boneDocument     `json:"bones" msgpack:"bones"`
	Meshes          []meshDocument     `json:"meshes" msgpack:"meshes"`
	Materials       []materialDocument `json:"materials,omitempty" msgpack:"materials,omitempty"`
}

// transformDocument はローカル変換の保存形式を表す。
type transformDocument struct {
	Position [3]float64  `json:"position" msgpack:"position"`
	Rotation *[4]float64 `json:"rotation,omitempty" msgpack:"rotation,omitempty"`
	Scale    *[3]float64 `json:"scale,omitempty" msgpack:"scale,omitempty"`
}

// boneDocument はボーンの保存形式を表す。Deform 未指定は変形ボーン扱い。
type boneDocument struct {
	Name      string             `json:"name" msgpack:"name"`
	Parent    string             `json:"parent,omitempty" msgpack:"parent,omitempty"`
	Rest      transformDocument  `json:"rest" msgpack:"rest"`
	Pose      *transformDocument `json:"pose,omitempty" msgpack:"pose,omitempty"`
	Reference *transformDocument `json:"reference,omitempty" msgpack:"reference,omitempty"`
	Deform    *bool              `json:"deform,omitempty" msgpack:"deform,omitempty"`
}

// weightDocument は頂点ウェイトの保存形式を表す。
type weightDocument struct {
	Bone   string  `json:"bone" msgpack:"bone"`
	Weight float64 `json:"weight" msgpack:"weight"`
}

// vertexDocument は頂点の保存形式を表す。
type vertexDocument struct {
	Position [3]float64       `json:"position" msgpack:"position"`
	Weights  []weightDocument `json:"weights,omitempty" msgpack:"weights,omitempty"`
}

// polygonDocument は面の保存形式を表す。
type polygonDocument struct {
	Vertices []int        `json:"vertices" msgpack:"vertices"`
	Material int          `json:"material,omitempty" msgpack:"material,omitempty"`
	Smooth   bool         `json:"smooth,omitempty" msgpack:"smooth,omitempty"`
	Normals  [][3]float64 `json:"normals,omitempty" msgpack:"normals,omitempty"`
	Uvs      [][2]float64 `json:"uvs,omitempty" msgpack:"uvs,omitempty"`
}

// meshDocument はメッシュの保存形式を表す。
type meshDocument struct {
	Name        string            `json:"name" msgpack:"name"`
	ObjectWorld []float64         `json:"object_world,omitempty" msgpack:"object_world,omitempty"`
	Materials   []string          `json:"materials,omitempty" msgpack:"materials,omitempty"`
	Vertices    []vertexDocument  `json:"vertices" msgpack:"vertices"`
	Polygons    []polygonDocument `json:"polygons" msgpack:"polygons"`
}

// materialDocument は材質の保存形式を表す。
type materialDocument struct {
	Name        string      `json:"name" msgpack:"name"`
	Diffuse     *[4]float64 `json:"diffuse,omitempty" msgpack:"diffuse,omitempty"`
	Texture     string      `json:"texture,omitempty" msgpack:"texture,omitempty"`
	DoubleSided bool        `json:"double_sided,omitempty" msgpack:"double_sided,omitempty"`
}
