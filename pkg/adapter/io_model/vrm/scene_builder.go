// 指示: miu200521358
package vrm

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/miu200521358/mu_skin2dae/pkg/domain/mmath"
	"github.com/miu200521358/mu_skin2dae/pkg/domain/model"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	defaultMaterialName = "default"

	attributePosition = "POSITION"
	attributeNormal   = "NORMAL"
	attributeTexcoord = "TEXCOORD_0"
	attributeJoints   = "JOINTS_0"
	attributeWeights  = "WEIGHTS_0"
)

// sceneBuilder はglTF文書からシーンを組み立てる。
type sceneBuilder struct {
	doc        *gltfDocument
	cache      *accessorValueCache
	parents    []int
	worlds     []mgl64.Mat4
	imagePaths []string
	progress   func(done int, total int)

	jointNodes    map[int]bool
	bindWorlds    map[int]mgl64.Mat4
	boneNames     map[int]string
	materialNames map[int]string
}

// newSceneBuilder はsceneBuilderを生成する。
func newSceneBuilder(doc *gltfDocument, binChunk []byte, imagePaths []string) (*sceneBuilder, error) {
	parents, err := buildNodeParentIndexes(doc.Nodes)
	if err != nil {
		return nil, err
	}
	worlds, err := buildNodeWorldMatrices(doc.Nodes, parents)
	if err != nil {
		return nil, err
	}
	return &sceneBuilder{
		doc:           doc,
		cache:         newAccessorValueCache(doc, binChunk),
		parents:       parents,
		worlds:        worlds,
		imagePaths:    imagePaths,
		jointNodes:    map[int]bool{},
		bindWorlds:    map[int]mgl64.Mat4{},
		boneNames:     map[int]string{},
		materialNames: map[int]string{},
	}, nil
}

// build はシーンへスケルトン・材質・メッシュを格納する。
func (b *sceneBuilder) build(scene *model.Scene) error {
	if err := b.collectSkinBinds(); err != nil {
		return err
	}
	if err := b.buildSkeleton(scene.Skeleton); err != nil {
		return err
	}
	b.buildMaterials(scene)
	return b.buildMeshes(scene)
}

// collectSkinBinds はskin.joints と inverseBindMatrices からバインド時のワールド行列を集める。
// 複数skinが同じnodeを参照する場合は先に現れた値を使う。
func (b *sceneBuilder) collectSkinBinds() error {
	for skinIndex, skin := range b.doc.Skins {
		var ibms [][]float64
		if skin.InverseBindMatrices != nil {
			values, err := b.cache.readFloatValues(*skin.InverseBindMatrices)
			if err != nil {
				return fmt.Errorf("inverseBindMatrices の読み取りに失敗しました(skin=%d): %w", skinIndex, err)
			}
			ibms = values
		}
		for jointIndex, nodeIndex := range skin.Joints {
			if nodeIndex < 0 || nodeIndex >= len(b.doc.Nodes) {
				return fmt.Errorf("skin.joints のindexが不正です(skin=%d): %d", skinIndex, nodeIndex)
			}
			b.jointNodes[nodeIndex] = true
			if _, exists := b.bindWorlds[nodeIndex]; exists {
				continue
			}
			if jointIndex >= len(ibms) || len(ibms[jointIndex]) != 16 {
				continue
			}
			ibm := mgl64.Mat4{}
			copy(ibm[:], ibms[jointIndex])
			if mmath.IsSingular(ibm) {
				logVrmWarn("逆バインド行列が特異のためノード姿勢を使います: node=%d", nodeIndex)
				continue
			}
			b.bindWorlds[nodeIndex] = ibm.Inv()
		}
	}
	return nil
}

// bindWorld はnodeのバインド時ワールド行列を返す。逆バインド行列が無い場合はノード姿勢を使う。
func (b *sceneBuilder) bindWorld(nodeIndex int) mgl64.Mat4 {
	if m, ok := b.bindWorlds[nodeIndex]; ok {
		return m
	}
	return b.worlds[nodeIndex]
}

// collectBoneNodes はジョイントnodeとメッシュを持たない祖先nodeをボーン対象として返す。
func (b *sceneBuilder) collectBoneNodes() map[int]bool {
	boneNodes := map[int]bool{}
	for nodeIndex := range b.jointNodes {
		for current := nodeIndex; current >= 0; current = b.parents[current] {
			if boneNodes[current] {
				break
			}
			if current != nodeIndex && b.doc.Nodes[current].Mesh != nil {
				break
			}
			boneNodes[current] = true
		}
	}
	return boneNodes
}

// traversalOrder はシーンのルートから深さ優先でnode順を返す。
func (b *sceneBuilder) traversalOrder() []int {
	roots := []int{}
	if b.doc.Scene >= 0 && b.doc.Scene < len(b.doc.Scenes) {
		roots = append(roots, b.doc.Scenes[b.doc.Scene].Nodes...)
	}
	visited := map[int]bool{}
	order := make([]int, 0, len(b.doc.Nodes))
	var visit func(nodeIndex int)
	visit = func(nodeIndex int) {
		if nodeIndex < 0 || nodeIndex >= len(b.doc.Nodes) || visited[nodeIndex] {
			return
		}
		visited[nodeIndex] = true
		order = append(order, nodeIndex)
		for _, child := range b.doc.Nodes[nodeIndex].Children {
			visit(child)
		}
	}
	for _, root := range roots {
		visit(root)
	}
	// シーン外のnodeも親なしのものから拾う。
	for nodeIndex := range b.doc.Nodes {
		if b.parents[nodeIndex] < 0 {
			visit(nodeIndex)
		}
	}
	return order
}

// buildSkeleton はボーン対象nodeを親から順にスケルトンへ追加する。
// レスト姿勢はバインド時の相対変換、ポーズはnodeのローカル変換とする。
func (b *sceneBuilder) buildSkeleton(skeleton *model.Skeleton) error {
	boneNodes := b.collectBoneNodes()
	if len(boneNodes) == 0 {
		return nil
	}

	armatureWorld := mgl64.Ident4()
	armatureResolved := false
	used := map[string]int{model.RootBoneName: 1}
	for _, nodeIndex := range b.traversalOrder() {
		if !boneNodes[nodeIndex] {
			continue
		}
		node := b.doc.Nodes[nodeIndex]
		parentNode := b.nearestBoneAncestor(nodeIndex, boneNodes)

		parentWorld := armatureWorld
		parentName := ""
		if parentNode >= 0 {
			parentWorld = b.bindWorld(parentNode)
			parentName = b.boneNames[parentNode]
		} else if !armatureResolved {
			if p := b.parents[nodeIndex]; p >= 0 {
				armatureWorld = b.worlds[p]
			}
			parentWorld = armatureWorld
			armatureResolved = true
		}
		if mmath.IsSingular(parentWorld) {
			return model.NewExportError(model.ErrorKindSingularMatrix, "", node.Name,
				fmt.Errorf("親のバインド行列が特異です: node=%d", nodeIndex))
		}

		bone := model.NewBone(ensureUniqueName(resolveNodeBoneName(nodeIndex, node.Name), used))
		bone.Rest = mmath.DecomposeMat4(parentWorld.Inv().Mul4(b.bindWorld(nodeIndex)))
		pose, err := nodeLocalTransform(node)
		if err != nil {
			return fmt.Errorf("node姿勢の解析に失敗しました(node=%d): %w", nodeIndex, err)
		}
		bone.Pose = pose
		bone.HasPose = true
		bone.Deform = b.jointNodes[nodeIndex]
		if _, err := skeleton.AddBone(bone, parentName); err != nil {
			return err
		}
		b.boneNames[nodeIndex] = bone.Name
	}
	skeleton.ArmatureWorld = armatureWorld
	logVrmDebug("VRMスケルトン構築完了: bones=%d joints=%d", len(b.boneNames), len(b.jointNodes))
	return nil
}

// nearestBoneAncestor はボーン対象の最も近い祖先nodeを返す。無い場合は -1。
func (b *sceneBuilder) nearestBoneAncestor(nodeIndex int, boneNodes map[int]bool) int {
	for current := b.parents[nodeIndex]; current >= 0; current = b.parents[current] {
		if boneNodes[current] {
			return current
		}
	}
	return -1
}

// buildMaterials はglTF材質をシーン材質へ変換する。
func (b *sceneBuilder) buildMaterials(scene *model.Scene) {
	used := map[string]int{}
	for materialIndex, source := range b.doc.Materials {
		name := source.Name
		if name == "" {
			name = fmt.Sprintf("material_%03d", materialIndex)
		}
		name = ensureUniqueName(name, used)
		material := model.NewMaterial(name)
		material.DoubleSided = source.DoubleSided
		if factor := source.PbrMetallicRoughness.BaseColorFactor; len(factor) == 4 {
			copy(material.DiffuseColor[:], factor)
		}
		if ref := source.PbrMetallicRoughness.BaseColorTexture; ref != nil {
			material.TexturePath = b.texturePath(ref.Index)
		}
		scene.Materials[name] = material
		b.materialNames[materialIndex] = name
	}
}

// texturePath はtexture indexから画像パスを返す。
func (b *sceneBuilder) texturePath(textureIndex int) string {
	if textureIndex < 0 || textureIndex >= len(b.doc.Textures) {
		return ""
	}
	source := b.doc.Textures[textureIndex].Source
	if source == nil || *source < 0 || *source >= len(b.imagePaths) {
		return ""
	}
	return b.imagePaths[*source]
}

// buildMeshes はメッシュを持つnodeごとに1メッシュを生成し、primitiveを結合する。
func (b *sceneBuilder) buildMeshes(scene *model.Scene) error {
	total := countGltfPrimitives(b.doc.Meshes)
	done := 0
	used := map[string]int{}
	for nodeIndex, node := range b.doc.Nodes {
		if node.Mesh == nil {
			continue
		}
		meshIndex := *node.Mesh
		if meshIndex < 0 || meshIndex >= len(b.doc.Meshes) {
			return fmt.Errorf("node.mesh のindexが不正です(node=%d): %d", nodeIndex, meshIndex)
		}
		source := b.doc.Meshes[meshIndex]
		name := node.Name
		if name == "" {
			name = source.Name
		}
		if name == "" {
			name = fmt.Sprintf("mesh_%03d", meshIndex)
		}
		mesh := &model.Mesh{
			Name:        ensureUniqueName(name, used),
			ObjectWorld: b.worlds[nodeIndex],
		}
		skinJoints := resolveSkinJoints(b.doc, node)
		if skinJoints != nil {
			// スキン済み頂点はバインド時のワールド空間にある。
			mesh.ObjectWorld = mgl64.Ident4()
		}
		slots := map[string]int{}
		for primitiveIndex, primitive := range source.Primitives {
			if err := b.appendPrimitive(mesh, primitive, skinJoints, slots); err != nil {
				return model.NewExportError(model.ErrorKindInvalidPolygon, mesh.Name, "",
					fmt.Errorf("primitive の変換に失敗しました(mesh=%d primitive=%d): %w", meshIndex, primitiveIndex, err))
			}
			done++
			if b.progress != nil {
				b.progress(done, total)
			}
		}
		scene.Meshes = append(scene.Meshes, mesh)
	}
	return nil
}

// appendPrimitive はprimitiveの頂点と三角形をメッシュへ追加する。
func (b *sceneBuilder) appendPrimitive(
	mesh *model.Mesh,
	primitive gltfPrimitive,
	skinJoints []int,
	slots map[string]int,
) error {
	mode := gltfPrimitiveModeTriangles
	if primitive.Mode != nil {
		mode = *primitive.Mode
	}
	positionAccessor, ok := primitive.Attributes[attributePosition]
	if !ok {
		logVrmWarn("POSITION の無いprimitiveを読み飛ばします: mesh=%s", mesh.Name)
		return nil
	}
	positions, err := b.cache.readFloatValues(positionAccessor)
	if err != nil {
		return err
	}
	normals, err := b.cache.readOptionalFloatAttribute(primitive.Attributes, attributeNormal)
	if err != nil {
		return err
	}
	uvs, err := b.cache.readOptionalFloatAttribute(primitive.Attributes, attributeTexcoord)
	if err != nil {
		return err
	}
	joints, err := b.cache.readOptionalIntAttribute(primitive.Attributes, attributeJoints)
	if err != nil {
		return err
	}
	weights, err := b.cache.readOptionalFloatAttribute(primitive.Attributes, attributeWeights)
	if err != nil {
		return err
	}
	indices, err := b.cache.readPrimitiveIndices(primitive, len(positions))
	if err != nil {
		return err
	}

	offset := len(mesh.Vertices)
	for i, position := range positions {
		vertex := model.Vertex{Position: toVec3(position)}
		if skinJoints != nil && i < len(joints) && i < len(weights) {
			vertex.Weights = b.buildVertexWeights(joints[i], weights[i], skinJoints)
		}
		mesh.Vertices = append(mesh.Vertices, vertex)
	}

	slot := b.materialSlot(mesh, primitive, slots)
	for _, triangle := range triangulateIndices(indices, mode) {
		polygon := model.Polygon{
			VertexIndexes: make([]int, 0, 3),
			MaterialIndex: slot,
			Smooth:        len(normals) == len(positions),
		}
		for _, index := range triangle {
			if index < 0 || index >= len(positions) {
				return fmt.Errorf("頂点indexが範囲外です: %d", index)
			}
			polygon.VertexIndexes = append(polygon.VertexIndexes, offset+index)
			if polygon.Smooth {
				polygon.Normals = append(polygon.Normals, toVec3(normals[index]))
			}
			if len(uvs) == len(positions) && len(uvs[index]) >= 2 {
				// glTF のUV原点は左上。
				polygon.Uvs = append(polygon.Uvs, mgl64.Vec2{uvs[index][0], 1 - uvs[index][1]})
			}
		}
		mesh.Polygons = append(mesh.Polygons, polygon)
	}
	return nil
}

// materialSlot はprimitive材質のメッシュ内スロットを返す。
func (b *sceneBuilder) materialSlot(mesh *model.Mesh, primitive gltfPrimitive, slots map[string]int) int {
	name := defaultMaterialName
	if primitive.Material != nil {
		if materialName, ok := b.materialNames[*primitive.Material]; ok {
			name = materialName
		}
	}
	if slot, ok := slots[name]; ok {
		return slot
	}
	slot := len(mesh.MaterialNames)
	mesh.MaterialNames = append(mesh.MaterialNames, name)
	slots[name] = slot
	return slot
}

// buildVertexWeights はJOINTS/WEIGHTSからボーン名ウェイトを生成する。
// 0以下のウェイトとボーン化されていないジョイントは除外する。
func (b *sceneBuilder) buildVertexWeights(joints []int, weights []float64, skinJoints []int) []model.WeightEntry {
	entries := make([]model.WeightEntry, 0, len(joints))
	for k := 0; k < len(joints) && k < len(weights); k++ {
		if weights[k] <= 0 {
			continue
		}
		jointIndex := joints[k]
		if jointIndex < 0 || jointIndex >= len(skinJoints) {
			logVrmDebug("skin.joints 範囲外のジョイントを除外します: joint=%d", jointIndex)
			continue
		}
		boneName, ok := b.boneNames[skinJoints[jointIndex]]
		if !ok {
			continue
		}
		entries = append(entries, model.WeightEntry{BoneName: boneName, Weight: weights[k]})
	}
	return entries
}

// resolveSkinJoints はnodeが参照するskinのジョイントnode一覧を返す。
func resolveSkinJoints(doc *gltfDocument, node gltfNode) []int {
	if node.Skin == nil || doc == nil {
		return nil
	}
	skinIndex := *node.Skin
	if skinIndex < 0 || skinIndex >= len(doc.Skins) {
		return nil
	}
	return doc.Skins[skinIndex].Joints
}

// resolveNodeBoneName はnode名からボーン名を決める。名前が無い場合は連番名を使う。
func resolveNodeBoneName(nodeIndex int, nodeName string) string {
	trimmed := strings.TrimSpace(nodeName)
	if trimmed != "" {
		return trimmed
	}
	return fmt.Sprintf("node_%03d", nodeIndex)
}

// ensureUniqueName は重複しない名前を返す。重複時は連番を付ける。
func ensureUniqueName(name string, used map[string]int) string {
	if _, exists := used[name]; !exists {
		used[name] = 1
		return name
	}
	serial := used[name] + 1
	for {
		candidate := fmt.Sprintf("%s_%d", name, serial)
		if _, exists := used[candidate]; !exists {
			used[name] = serial
			used[candidate] = 1
			return candidate
		}
		serial++
	}
}

// countGltfPrimitives はprimitive総数を返す。
func countGltfPrimitives(meshes []gltfMesh) int {
	total := 0
	for _, mesh := range meshes {
		total += len(mesh.Primitives)
	}
	return total
}

// toVec3 はfloat配列をベクトルへ変換する。
func toVec3(values []float64) r3.Vec {
	if len(values) < 3 {
		return r3.Vec{}
	}
	return r3.Vec{X: values[0], Y: values[1], Z: values[2]}
}
