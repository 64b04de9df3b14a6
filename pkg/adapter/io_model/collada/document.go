// 指示: miu200521358
package collada

import "encoding/xml"

const (
	colladaNamespace = "http://www.collada.org/2005/11/COLLADASchema"
	colladaVersion   = "1.4.1"
	authoringTool    = "mu_skin2dae"
	uvSetName        = "UVMap"
)

// Document はCOLLADA 1.4.1文書のルート要素を表す。
type Document struct {
	XMLName            xml.Name           `xml:"COLLADA"`
	Xmlns              string             `xml:"xmlns,attr"`
	Version            string             `xml:"version,attr"`
	Asset              Asset              `xml:"asset"`
	LibraryImages      *LibraryImages     `xml:"library_images,omitempty"`
	LibraryEffects     LibraryEffects     `xml:"library_effects"`
	LibraryMaterials   LibraryMaterials   `xml:"library_materials"`
	LibraryGeometries  LibraryGeometries  `xml:"library_geometries"`
	LibraryControllers LibraryControllers `xml:"library_controllers"`
	LibraryScenes      LibraryScenes      `xml:"library_visual_scenes"`
	Scene              SceneInstance      `xml:"scene"`
}

// Asset は文書ヘッダを表す。
type Asset struct {
	Contributor Contributor `xml:"contributor"`
	Created     string      `xml:"created"`
	Modified    string      `xml:"modified"`
	Unit        Unit        `xml:"unit"`
	UpAxis      string      `xml:"up_axis"`
}

// Contributor は作成者情報を表す。
type Contributor struct {
	Author        string `xml:"author,omitempty"`
	AuthoringTool string `xml:"authoring_tool"`
}

// Unit は長さ単位を表す。
type Unit struct {
	Name  string `xml:"name,attr"`
	Meter string `xml:"meter,attr"`
}

// LibraryImages は画像ライブラリを表す。
type LibraryImages struct {
	Images []Image `xml:"image"`
}

// Image は画像参照を表す。
type Image struct {
	ID       string `xml:"id,attr"`
	Name     string `xml:"name,attr"`
	InitFrom string `xml:"init_from"`
}

// LibraryEffects はエフェクトライブラリを表す。
type LibraryEffects struct {
	Effects []Effect `xml:"effect"`
}

// Effect は材質の描画設定を表す。
type Effect struct {
	ID      string        `xml:"id,attr"`
	Profile ProfileCommon `xml:"profile_COMMON"`
}

// ProfileCommon は共通プロファイルを表す。
type ProfileCommon struct {
	NewParams []NewParam `xml:"newparam"`
	Technique Technique  `xml:"technique"`
	Extra     *Extra     `xml:"extra,omitempty"`
}

// NewParam はテクスチャ参照パラメータを表す。
type NewParam struct {
	Sid       string     `xml:"sid,attr"`
	Surface   *Surface   `xml:"surface,omitempty"`
	Sampler2D *Sampler2D `xml:"sampler2D,omitempty"`
}

// Surface は画像サーフェスを表す。
type Surface struct {
	Type     string `xml:"type,attr"`
	InitFrom string `xml:"init_from"`
}

// Sampler2D は2Dサンプラを表す。
type Sampler2D struct {
	Source string `xml:"source"`
}

// Technique は描画テクニックを表す。
type Technique struct {
	Sid     string  `xml:"sid,attr"`
	Lambert Lambert `xml:"lambert"`
}

// Lambert はランバート反射の設定を表す。
type Lambert struct {
	Diffuse Diffuse `xml:"diffuse"`
}

// Diffuse は拡散色またはテクスチャを表す。
type Diffuse struct {
	Color   *Color          `xml:"color,omitempty"`
	Texture *TextureBinding `xml:"texture,omitempty"`
}

// Color は色値を表す。
type Color struct {
	Sid   string `xml:"sid,attr"`
	Value string `xml:",chardata"`
}

// TextureBinding はテクスチャサンプラの参照を表す。
type TextureBinding struct {
	Texture  string `xml:"texture,attr"`
	Texcoord string `xml:"texcoord,attr"`
}

// Extra は拡張設定を表す。
type Extra struct {
	Technique ExtraTechnique `xml:"technique"`
}

// ExtraTechnique は拡張テクニックを表す。
type ExtraTechnique struct {
	Profile     string `xml:"profile,attr"`
	DoubleSided int    `xml:"double_sided"`
}

// LibraryMaterials は材質ライブラリを表す。
type LibraryMaterials struct {
	Materials []Material `xml:"material"`
}

// Material は材質を表す。
type Material struct {
	ID             string         `xml:"id,attr"`
	Name           string         `xml:"name,attr"`
	InstanceEffect InstanceEffect `xml:"instance_effect"`
}

// InstanceEffect はエフェクト参照を表す。
type InstanceEffect struct {
	URL string `xml:"url,attr"`
}

// LibraryGeometries は形状ライブラリを表す。
type LibraryGeometries struct {
	Geometries []Geometry `xml:"geometry"`
}

// Geometry はメッシュ形状を表す。
type Geometry struct {
	ID   string `xml:"id,attr"`
	Name string `xml:"name,attr"`
	Mesh Mesh   `xml:"mesh"`
}

// Mesh は頂点配列と面リストを表す。
// Primitives は要素名を値側の XMLName で決める(triangles または polylist)。
type Mesh struct {
	Sources    []Source `xml:"source"`
	Vertices   Vertices `xml:"vertices"`
	Primitives []Primitive
}

// Source はデータ配列とアクセサを表す。
type Source struct {
	ID         string          `xml:"id,attr"`
	FloatArray *FloatArray     `xml:"float_array,omitempty"`
	NameArray  *NameArray      `xml:"Name_array,omitempty"`
	Technique  TechniqueCommon `xml:"technique_common"`
}

// FloatArray は数値配列を表す。
type FloatArray struct {
	ID    string `xml:"id,attr"`
	Count int    `xml:"count,attr"`
	Value string `xml:",chardata"`
}

// NameArray は名前配列を表す。
type NameArray struct {
	ID    string `xml:"id,attr"`
	Count int    `xml:"count,attr"`
	Value string `xml:",chardata"`
}

// TechniqueCommon はアクセサを包む要素を表す。
type TechniqueCommon struct {
	Accessor Accessor `xml:"accessor"`
}

// Accessor は配列の読み方を表す。
type Accessor struct {
	Source string  `xml:"source,attr"`
	Count  int     `xml:"count,attr"`
	Stride int     `xml:"stride,attr"`
	Params []Param `xml:"param"`
}

// Param はアクセサの成分を表す。
type Param struct {
	Name string `xml:"name,attr"`
	Type string `xml:"type,attr"`
}

// Vertices は頂点位置の入力を表す。
type Vertices struct {
	ID    string  `xml:"id,attr"`
	Input []Input `xml:"input"`
}

// Input はソース参照を表す。
type Input struct {
	Semantic string `xml:"semantic,attr"`
	Source   string `xml:"source,attr"`
	Offset   *int   `xml:"offset,attr,omitempty"`
	Set      *int   `xml:"set,attr,omitempty"`
}

// Primitive は triangles または polylist 要素を表す。
type Primitive struct {
	XMLName  xml.Name
	Material string  `xml:"material,attr"`
	Count    int     `xml:"count,attr"`
	Inputs   []Input `xml:"input"`
	VCount   string  `xml:"vcount,omitempty"`
	P        string  `xml:"p"`
}

// LibraryControllers はコントローラライブラリを表す。
type LibraryControllers struct {
	Controllers []Controller `xml:"controller"`
}

// Controller はスキンコントローラを表す。
type Controller struct {
	ID   string `xml:"id,attr"`
	Name string `xml:"name,attr"`
	Skin Skin   `xml:"skin"`
}

// Skin はスキン結合情報を表す。
type Skin struct {
	Source          string        `xml:"source,attr"`
	BindShapeMatrix string        `xml:"bind_shape_matrix"`
	Sources         []Source      `xml:"source"`
	Joints          SkinJoints    `xml:"joints"`
	VertexWeights   VertexWeights `xml:"vertex_weights"`
}

// SkinJoints はジョイントと逆バインド行列の入力を表す。
type SkinJoints struct {
	Inputs []Input `xml:"input"`
}

// VertexWeights は頂点ごとの影響リストを表す。
type VertexWeights struct {
	Count  int     `xml:"count,attr"`
	Inputs []Input `xml:"input"`
	VCount string  `xml:"vcount"`
	V      string  `xml:"v"`
}

// LibraryScenes はビジュアルシーンライブラリを表す。
type LibraryScenes struct {
	VisualScenes []VisualScene `xml:"visual_scene"`
}

// VisualScene はシーングラフを表す。
type VisualScene struct {
	ID    string  `xml:"id,attr"`
	Name  string  `xml:"name,attr"`
	Nodes []*Node `xml:"node"`
}

// Node はシーングラフのノードを表す。
type Node struct {
	ID                 string              `xml:"id,attr"`
	Name               string              `xml:"name,attr"`
	Sid                string              `xml:"sid,attr,omitempty"`
	Type               string              `xml:"type,attr"`
	Matrix             Matrix              `xml:"matrix"`
	InstanceController *InstanceController `xml:"instance_controller,omitempty"`
	InstanceGeometry   *InstanceGeometry   `xml:"instance_geometry,omitempty"`
	Children           []*Node             `xml:"node"`
}

// Matrix は行優先の4x4行列を表す。
type Matrix struct {
	Sid   string `xml:"sid,attr"`
	Value string `xml:",chardata"`
}

// InstanceController はスキンコントローラのインスタンスを表す。
type InstanceController struct {
	URL          string        `xml:"url,attr"`
	Skeletons    []string      `xml:"skeleton"`
	BindMaterial *BindMaterial `xml:"bind_material,omitempty"`
}

// InstanceGeometry はスキンなし形状のインスタンスを表す。
type InstanceGeometry struct {
	URL          string        `xml:"url,attr"`
	Name         string        `xml:"name,attr"`
	BindMaterial *BindMaterial `xml:"bind_material,omitempty"`
}

// BindMaterial は材質シンボルの結合を表す。
type BindMaterial struct {
	Technique BindTechnique `xml:"technique_common"`
}

// BindTechnique は材質インスタンスの一覧を表す。
type BindTechnique struct {
	Materials []InstanceMaterial `xml:"instance_material"`
}

// InstanceMaterial は材質インスタンスを表す。
type InstanceMaterial struct {
	Symbol           string            `xml:"symbol,attr"`
	Target           string            `xml:"target,attr"`
	BindVertexInputs []BindVertexInput `xml:"bind_vertex_input"`
}

// BindVertexInput はUVセットの結合を表す。
type BindVertexInput struct {
	Semantic      string `xml:"semantic,attr"`
	InputSemantic string `xml:"input_semantic,attr"`
	InputSet      int    `xml:"input_set,attr"`
}

// SceneInstance は表示シーンの参照を表す。
type SceneInstance struct {
	InstanceVisualScene InstanceEffect `xml:"instance_visual_scene"`
}
