// 指示: miu200521358
package vrm

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/miu200521358/mu_skin2dae/pkg/domain/mmath"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	glbHeaderLength   = 12
	glbChunkHeadSize  = 8
	glbMagic          = 0x46546C67
	glbJSONChunkType  = 0x4E4F534A
	glbBINChunkType   = 0x004E4942
	glbMinValidLength = glbHeaderLength + glbChunkHeadSize

	vrm0ExtensionName = "VRM"
	vrm1ExtensionName = "VRMC_vrm"
)

// gltfDocument はシーン読込に必要なglTFトップレベル要素を表す。
type gltfDocument struct {
	Asset          gltfAsset                  `json:"asset"`
	Buffers        []gltfBuffer               `json:"buffers"`
	BufferViews    []gltfBufferView           `json:"bufferViews"`
	Accessors      []gltfAccessor             `json:"accessors"`
	Meshes         []gltfMesh                 `json:"meshes"`
	Skins          []gltfSkin                 `json:"skins"`
	Materials      []gltfMaterial             `json:"materials"`
	Textures       []gltfTexture              `json:"textures"`
	Images         []gltfImage                `json:"images"`
	ExtensionsUsed []string                   `json:"extensionsUsed"`
	Nodes          []gltfNode                 `json:"nodes"`
	Extensions     map[string]json.RawMessage `json:"extensions"`
	Scenes         []gltfScene                `json:"scenes"`
	Scene          int                        `json:"scene"`
}

// gltfAsset はglTF asset要素を表す。
type gltfAsset struct {
	Version   string `json:"version"`
	Generator string `json:"generator"`
}

// gltfScene はglTF scene要素を表す。
type gltfScene struct {
	Nodes []int `json:"nodes"`
}

// gltfNode はglTF node要素を表す。
type gltfNode struct {
	Name        string    `json:"name"`
	Mesh        *int      `json:"mesh"`
	Skin        *int      `json:"skin"`
	Children    []int     `json:"children"`
	Matrix      []float64 `json:"matrix"`
	Translation []float64 `json:"translation"`
	Rotation    []float64 `json:"rotation"`
	Scale       []float64 `json:"scale"`
}

// gltfBuffer はglTF buffer要素を表す。
type gltfBuffer struct {
	ByteLength int `json:"byteLength"`
}

// gltfBufferView はglTF bufferView要素を表す。
type gltfBufferView struct {
	Buffer     int `json:"buffer"`
	ByteOffset int `json:"byteOffset"`
	ByteLength int `json:"byteLength"`
	ByteStride int `json:"byteStride"`
}

// gltfAccessor はglTF accessor要素を表す。
type gltfAccessor struct {
	BufferView    *int   `json:"bufferView"`
	ByteOffset    int    `json:"byteOffset"`
	ComponentType int    `json:"componentType"`
	Count         int    `json:"count"`
	Type          string `json:"type"`
	Normalized    bool   `json:"normalized"`
}

// gltfMesh はglTF mesh要素を表す。
type gltfMesh struct {
	Name       string          `json:"name"`
	Primitives []gltfPrimitive `json:"primitives"`
}

// gltfPrimitive はglTF mesh primitive要素を表す。
type gltfPrimitive struct {
	Attributes map[string]int `json:"attributes"`
	Indices    *int           `json:"indices"`
	Material   *int           `json:"material"`
	Mode       *int           `json:"mode"`
}

// gltfSkin はglTF skin要素を表す。
type gltfSkin struct {
	InverseBindMatrices *int  `json:"inverseBindMatrices"`
	Joints              []int `json:"joints"`
}

// gltfMaterial はglTF material要素を表す。
type gltfMaterial struct {
	Name                 string                   `json:"name"`
	DoubleSided          bool                     `json:"doubleSided"`
	PbrMetallicRoughness gltfPbrMetallicRoughness `json:"pbrMetallicRoughness"`
}

// gltfPbrMetallicRoughness はPBR基本材質情報を表す。
type gltfPbrMetallicRoughness struct {
	BaseColorFactor  []float64       `json:"baseColorFactor"`
	BaseColorTexture *gltfTextureRef `json:"baseColorTexture"`
}

// gltfTextureRef は材質から参照されるテクスチャ参照を表す。
type gltfTextureRef struct {
	Index int `json:"index"`
}

// gltfTexture はglTF texture要素を表す。
type gltfTexture struct {
	Source *int `json:"source"`
}

// gltfImage はglTF image要素を表す。
type gltfImage struct {
	Name       string `json:"name"`
	URI        string `json:"uri"`
	BufferView *int   `json:"bufferView"`
	MimeType   string `json:"mimeType"`
}

// vrm0Extension はVRM0拡張の必要要素を表す。
type vrm0Extension struct {
	ExporterVersion string   `json:"exporterVersion"`
	Meta            vrm0Meta `json:"meta"`
}

// vrm0Meta はVRM0 meta要素を表す。
type vrm0Meta struct {
	Title   string `json:"title"`
	Version string `json:"version"`
	Author  string `json:"author"`
}

// vrm1Extension はVRM1拡張の必要要素を表す。
type vrm1Extension struct {
	SpecVersion string   `json:"specVersion"`
	Meta        vrm1Meta `json:"meta"`
}

// vrm1Meta はVRM1 meta要素を表す。
type vrm1Meta struct {
	Name    string   `json:"name"`
	Version string   `json:"version"`
	Authors []string `json:"authors"`
}

// parseGLBChunks はGLBバイト列からJSON/BINチャンクを抽出する。
func parseGLBChunks(sourceBytes []byte) ([]byte, []byte, error) {
	if len(sourceBytes) < glbMinValidLength {
		return nil, nil, fmt.Errorf("GLBヘッダが不足しています")
	}
	if binary.LittleEndian.Uint32(sourceBytes[0:4]) != glbMagic {
		return nil, nil, fmt.Errorf("GLBマジックが不正です")
	}
	if version := binary.LittleEndian.Uint32(sourceBytes[4:8]); version != 2 {
		return nil, nil, fmt.Errorf("GLBバージョンが未対応です: %d", version)
	}

	totalLength := int(binary.LittleEndian.Uint32(sourceBytes[8:12]))
	if totalLength <= 0 || totalLength > len(sourceBytes) {
		return nil, nil, fmt.Errorf("GLB全体長が不正です")
	}

	var jsonChunk []byte
	var binChunk []byte
	offset := glbHeaderLength
	for offset+glbChunkHeadSize <= totalLength {
		chunkLength := int(binary.LittleEndian.Uint32(sourceBytes[offset : offset+4]))
		chunkType := binary.LittleEndian.Uint32(sourceBytes[offset+4 : offset+8])
		chunkStart := offset + glbChunkHeadSize
		chunkEnd := chunkStart + chunkLength
		if chunkLength < 0 || chunkEnd > totalLength {
			return nil, nil, fmt.Errorf("GLBチャンク長が不正です")
		}
		chunkBytes := sourceBytes[chunkStart:chunkEnd]
		switch chunkType {
		case glbJSONChunkType:
			jsonChunk = append([]byte(nil), chunkBytes...)
		case glbBINChunkType:
			if len(binChunk) == 0 {
				binChunk = append([]byte(nil), chunkBytes...)
			}
		}
		offset = chunkEnd
	}
	if len(jsonChunk) == 0 {
		return nil, nil, fmt.Errorf("GLB JSONチャンクが見つかりません")
	}
	return jsonChunk, binChunk, nil
}

// buildNodeParentIndexes はnode配列から親インデックス配列を生成する。
func buildNodeParentIndexes(nodes []gltfNode) ([]int, error) {
	parentIndexes := make([]int, len(nodes))
	for i := range parentIndexes {
		parentIndexes[i] = -1
	}
	for parentIndex, node := range nodes {
		for _, childIndex := range node.Children {
			if childIndex < 0 || childIndex >= len(nodes) {
				return nil, fmt.Errorf("node.children のindexが不正です: %d", childIndex)
			}
			if parentIndexes[childIndex] == -1 {
				parentIndexes[childIndex] = parentIndex
			}
		}
	}
	return parentIndexes, nil
}

// buildNodeWorldMatrices はnodeのローカル変換からワールド行列を算出する。
func buildNodeWorldMatrices(nodes []gltfNode, parents []int) ([]mgl64.Mat4, error) {
	worldMats := make([]mgl64.Mat4, len(nodes))
	state := make([]int, len(nodes))
	for i := range nodes {
		if err := resolveNodeWorldMatrix(nodes, parents, i, state, worldMats); err != nil {
			return nil, err
		}
	}
	return worldMats, nil
}

// resolveNodeWorldMatrix はnodeのワールド行列を再帰的に解決する。
func resolveNodeWorldMatrix(
	nodes []gltfNode,
	parents []int,
	nodeIndex int,
	state []int,
	worldMats []mgl64.Mat4,
) error {
	if state[nodeIndex] == 2 {
		return nil
	}
	if state[nodeIndex] == 1 {
		return fmt.Errorf("node親子関係に循環があります: %d", nodeIndex)
	}
	state[nodeIndex] = 1
	local, err := nodeLocalTransform(nodes[nodeIndex])
	if err != nil {
		return err
	}
	parentIndex := parents[nodeIndex]
	if parentIndex >= 0 {
		if err := resolveNodeWorldMatrix(nodes, parents, parentIndex, state, worldMats); err != nil {
			return err
		}
		worldMats[nodeIndex] = worldMats[parentIndex].Mul4(local.Mat4())
	} else {
		worldMats[nodeIndex] = local.Mat4()
	}
	state[nodeIndex] = 2
	return nil
}

// nodeLocalTransform はnode要素からローカル変換を生成する。
// matrix 指定時は分解した変換を返す。
func nodeLocalTransform(node gltfNode) (mmath.Transform, error) {
	if len(node.Matrix) > 0 {
		if len(node.Matrix) != 16 {
			return mmath.NewTransform(), fmt.Errorf("node.matrix の要素数が不正です: %d", len(node.Matrix))
		}
		// glTF の matrix は列優先。
		m := mgl64.Mat4{}
		copy(m[:], node.Matrix)
		return mmath.DecomposeMat4(m), nil
	}

	t := mmath.NewTransform()
	translation, err := parseVec3(node.Translation, mmath.ZERO_VEC3, "node.translation")
	if err != nil {
		return t, err
	}
	scale, err := parseVec3(node.Scale, mmath.ONE_VEC3, "node.scale")
	if err != nil {
		return t, err
	}
	rotation, err := parseQuaternion(node.Rotation)
	if err != nil {
		return t, err
	}
	t.Position = translation
	t.Rotation = rotation
	t.Scale = scale
	return t, nil
}

// parseVec3 はスライスをベクトルへ変換する。
func parseVec3(values []float64, defaultValue r3.Vec, label string) (r3.Vec, error) {
	if len(values) == 0 {
		return defaultValue, nil
	}
	if len(values) != 3 {
		return mmath.ZERO_VEC3, fmt.Errorf("%s の要素数が不正です: %d", label, len(values))
	}
	return r3.Vec{X: values[0], Y: values[1], Z: values[2]}, nil
}

// parseQuaternion はスライス (x, y, z, w) を四元数へ変換する。
func parseQuaternion(values []float64) (mgl64.Quat, error) {
	if len(values) == 0 {
		return mgl64.QuatIdent(), nil
	}
	if len(values) != 4 {
		return mgl64.QuatIdent(), fmt.Errorf("node.rotation の要素数が不正です: %d", len(values))
	}
	q := mgl64.Quat{W: values[3], V: mgl64.Vec3{values[0], values[1], values[2]}}
	if q.Len() == 0 {
		return mgl64.QuatIdent(), nil
	}
	return q.Normalize(), nil
}

// detectVrmVersion はVRM拡張の有無から版を判定する。VRM1を優先する。
func detectVrmVersion(doc *gltfDocument) string {
	if doc == nil || doc.Extensions == nil {
		return ""
	}
	if _, ok := doc.Extensions[vrm1ExtensionName]; ok {
		return "1.0"
	}
	if _, ok := doc.Extensions[vrm0ExtensionName]; ok {
		return "0.x"
	}
	return ""
}

// resolveMeta はVRMメタ情報からモデル名と作者を返す。
func resolveMeta(doc *gltfDocument) (string, string, error) {
	switch detectVrmVersion(doc) {
	case "1.0":
		ext := vrm1Extension{}
		if err := json.Unmarshal(doc.Extensions[vrm1ExtensionName], &ext); err != nil {
			return "", "", fmt.Errorf("VRM1拡張の解析に失敗しました: %w", err)
		}
		return ext.Meta.Name, joinAuthors(ext.Meta.Authors), nil
	case "0.x":
		ext := vrm0Extension{}
		if err := json.Unmarshal(doc.Extensions[vrm0ExtensionName], &ext); err != nil {
			return "", "", fmt.Errorf("VRM0拡張の解析に失敗しました: %w", err)
		}
		return ext.Meta.Title, ext.Meta.Author, nil
	default:
		return "", "", nil
	}
}

// joinAuthors は作者一覧を表示用に連結する。
func joinAuthors(authors []string) string {
	out := ""
	for _, author := range authors {
		if author == "" {
			continue
		}
		if out != "" {
			out += ", "
		}
		out += author
	}
	return out
}
