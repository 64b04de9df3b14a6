// 指示: miu200521358
package vrm

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/miu200521358/mu_skin2dae/pkg/domain/model"
)

var testPngBytes = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D}

func TestVrmRepositoryCanLoad(t *testing.T) {
	repository := NewVrmRepository()

	cases := []struct {
		path string
		want bool
	}{
		{path: "sample.vrm", want: true},
		{path: "sample.VRM", want: true},
		{path: "sample.glb", want: true},
		{path: "sample.gltf", want: false},
		{path: "sample.pmx", want: false},
	}
	for _, tc := range cases {
		if got := repository.CanLoad(tc.path); got != tc.want {
			t.Fatalf("CanLoad(%s): got=%v want=%v", tc.path, got, tc.want)
		}
	}
}

func TestVrmRepositoryInferName(t *testing.T) {
	repository := NewVrmRepository()

	got := repository.InferName("C:/work/avatar.vrm")
	if got != "avatar" {
		t.Fatalf("expected avatar, got %s", got)
	}
}

func TestVrmRepositoryLoadReturnsErrorForInvalidExtension(t *testing.T) {
	repository := NewVrmRepository()

	if _, err := repository.Load("sample.pmx"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestVrmRepositoryLoadReturnsErrorForMissingFile(t *testing.T) {
	repository := NewVrmRepository()

	if _, err := repository.Load(filepath.Join(t.TempDir(), "missing.vrm")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestVrmRepositoryLoadBuildsSkinnedScene(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "model.vrm")
	doc, bin := buildSampleGltfForTest(true)
	writeGLBFileForTestWithBin(t, path, doc, bin)

	textureDir := filepath.Join(tempDir, "textures")
	repository := NewVrmRepository()
	repository.SetTextureDir(textureDir)
	events := []LoadProgressEvent{}
	repository.SetLoadProgressReporter(func(event LoadProgressEvent) {
		events = append(events, event)
	})

	scene, err := repository.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if scene.Name != "Sample" || scene.Author != "Alice" || scene.SourceName != "model.vrm" {
		t.Fatalf("meta mismatch: name=%s author=%s source=%s", scene.Name, scene.Author, scene.SourceName)
	}
	if scene.UpAxis != model.UpAxisY {
		t.Fatalf("up axis mismatch: got=%s", scene.UpAxis)
	}

	skeleton := scene.Skeleton
	if skeleton.Len() != 4 {
		t.Fatalf("bone count mismatch: got=%d want=4", skeleton.Len())
	}
	root, ok := skeleton.GetByName("Root")
	if !ok || root.Deform {
		t.Fatalf("Root should exist as non-deform bone: ok=%v", ok)
	}
	hips, ok := skeleton.GetByName("Hips")
	if !ok || !hips.Deform || hips.ParentIndex != root.Index {
		t.Fatalf("Hips mismatch: ok=%v", ok)
	}
	if !approxEqual(hips.Rest.Position.Y, 1.0) {
		t.Fatalf("Hips rest mismatch: got=%v", hips.Rest.Position)
	}
	spine, ok := skeleton.GetByName("Spine")
	if !ok || spine.ParentIndex != hips.Index {
		t.Fatalf("Spine parent mismatch: ok=%v", ok)
	}
	if !approxEqual(spine.Rest.Position.Y, 0.5) {
		t.Fatalf("Spine rest should come from inverse bind: got=%v", spine.Rest.Position)
	}
	if !spine.HasPose || !approxEqual(spine.Pose.Position.Y, 0.6) {
		t.Fatalf("Spine pose should come from node: got=%v", spine.Pose.Position)
	}

	if len(scene.Meshes) != 2 {
		t.Fatalf("mesh count mismatch: got=%d want=2", len(scene.Meshes))
	}
	body := scene.Meshes[0]
	if body.Name != "Body" || body.ObjectWorld != mgl64.Ident4() {
		t.Fatalf("Body mismatch: name=%s world=%v", body.Name, body.ObjectWorld)
	}
	if len(body.Vertices) != 3 || len(body.Polygons) != 1 {
		t.Fatalf("Body geometry mismatch: vertices=%d polygons=%d", len(body.Vertices), len(body.Polygons))
	}
	weights := body.Vertices[1].Weights
	if len(weights) != 2 || weights[0].BoneName != "Hips" || weights[1].BoneName != "Spine" {
		t.Fatalf("weights mismatch: got=%v", weights)
	}
	if len(body.Vertices[0].Weights) != 1 || body.Vertices[0].Weights[0].BoneName != "Hips" {
		t.Fatalf("zero weights should be dropped: got=%v", body.Vertices[0].Weights)
	}
	polygon := body.Polygons[0]
	if !polygon.Smooth || len(polygon.Normals) != 3 || !polygon.HasUvs() {
		t.Fatalf("polygon attributes mismatch: %+v", polygon)
	}
	if polygon.Uvs[0] != (mgl64.Vec2{0, 1}) || polygon.Uvs[2] != (mgl64.Vec2{0, 0}) {
		t.Fatalf("uv should be flipped: got=%v", polygon.Uvs)
	}
	if name, ok := body.MaterialName(polygon.MaterialIndex); !ok || name != "Skin" {
		t.Fatalf("material slot mismatch: got=%s", name)
	}

	prop := scene.Meshes[1]
	if prop.ObjectWorld.At(0, 3) != 2 {
		t.Fatalf("unskinned mesh should keep node world: got=%v", prop.ObjectWorld)
	}
	if len(prop.Vertices[0].Weights) != 0 {
		t.Fatalf("unskinned mesh should have no weights")
	}

	material, ok := scene.Material("Skin")
	if !ok {
		t.Fatalf("material Skin missing")
	}
	if !material.DoubleSided || material.DiffuseColor != [4]float64{1, 0.5, 0.5, 1} {
		t.Fatalf("material mismatch: %+v", material)
	}
	if material.TexturePath != filepath.Join(textureDir, "skin_tex.png") {
		t.Fatalf("texture path mismatch: got=%s", material.TexturePath)
	}
	extracted, err := os.ReadFile(material.TexturePath)
	if err != nil || !bytes.Equal(extracted, testPngBytes) {
		t.Fatalf("extracted texture mismatch: err=%v", err)
	}

	if len(events) == 0 || events[len(events)-1].Type != LoadProgressEventTypeCompleted {
		t.Fatalf("progress should end with completed: got=%v", events)
	}
}

func TestVrmRepositoryLoadSkipsEmbeddedTextureWithoutDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.vrm")
	doc, bin := buildSampleGltfForTest(true)
	writeGLBFileForTestWithBin(t, path, doc, bin)

	scene, err := NewVrmRepository().Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	material, ok := scene.Material("Skin")
	if !ok || material.TexturePath != "" {
		t.Fatalf("texture path should be empty: ok=%v path=%s", ok, material.TexturePath)
	}
}

func TestVrmRepositoryLoadRequiresVrmExtensionForVrmFile(t *testing.T) {
	tempDir := t.TempDir()
	doc, bin := buildSampleGltfForTest(false)

	vrmPath := filepath.Join(tempDir, "plain.vrm")
	writeGLBFileForTestWithBin(t, vrmPath, doc, bin)
	if _, err := NewVrmRepository().Load(vrmPath); err == nil {
		t.Fatalf("expected error for vrm without extension")
	}

	glbPath := filepath.Join(tempDir, "plain.glb")
	writeGLBFileForTestWithBin(t, glbPath, doc, bin)
	scene, err := NewVrmRepository().Load(glbPath)
	if err != nil {
		t.Fatalf("Load glb failed: %v", err)
	}
	if scene.Name != "plain" || scene.Author != "" {
		t.Fatalf("name should fall back to file name: name=%s author=%s", scene.Name, scene.Author)
	}
}

func TestVrmRepositoryLoadUsesVrm1Meta(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.vrm")
	doc, bin := buildSampleGltfForTest(false)
	doc["extensionsUsed"] = []string{"VRMC_vrm"}
	doc["extensions"] = map[string]any{
		"VRMC_vrm": map[string]any{
			"specVersion": "1.0",
			"meta": map[string]any{
				"name":    "Avatar",
				"authors": []string{"Alice", "", "Bob"},
			},
		},
	}
	writeGLBFileForTestWithBin(t, path, doc, bin)

	scene, err := NewVrmRepository().Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if scene.Name != "Avatar" || scene.Author != "Alice, Bob" {
		t.Fatalf("meta mismatch: name=%s author=%s", scene.Name, scene.Author)
	}
}

func TestParseGLBChunksRejectsBrokenHeader(t *testing.T) {
	if _, _, err := parseGLBChunks([]byte("short")); err == nil {
		t.Fatalf("expected error for short header")
	}
	broken := make([]byte, 32)
	binary.LittleEndian.PutUint32(broken[0:4], 0x12345678)
	if _, _, err := parseGLBChunks(broken); err == nil {
		t.Fatalf("expected error for bad magic")
	}
}

func TestTriangulateIndices(t *testing.T) {
	strip := triangulateIndices([]int{0, 1, 2, 3}, gltfPrimitiveModeTriangleStrip)
	if len(strip) != 2 || strip[1] != [3]int{2, 1, 3} {
		t.Fatalf("strip mismatch: got=%v", strip)
	}
	fan := triangulateIndices([]int{0, 1, 2, 3}, gltfPrimitiveModeTriangleFan)
	if len(fan) != 2 || fan[1] != [3]int{0, 2, 3} {
		t.Fatalf("fan mismatch: got=%v", fan)
	}
	if lines := triangulateIndices([]int{0, 1}, 1); len(lines) != 0 {
		t.Fatalf("lines should be ignored: got=%v", lines)
	}
}

func TestEnsureUniqueName(t *testing.T) {
	used := map[string]int{}
	got := []string{
		ensureUniqueName("Bone", used),
		ensureUniqueName("Bone", used),
		ensureUniqueName("Bone_2", used),
		ensureUniqueName("Bone", used),
	}
	want := []string{"Bone", "Bone_2", "Bone_2_2", "Bone_3"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("name mismatch at %d: got=%s want=%s", i, got[i], want[i])
		}
	}
}

func approxEqual(a float64, b float64) bool {
	return math.Abs(a-b) < 1e-5
}

// glbBinBuilder はテスト用BINチャンクとbufferViewを組み立てる。
type glbBinBuilder struct {
	buf   bytes.Buffer
	views []map[string]any
}

func (b *glbBinBuilder) add(values any) int {
	for b.buf.Len()%4 != 0 {
		b.buf.WriteByte(0)
	}
	offset := b.buf.Len()
	_ = binary.Write(&b.buf, binary.LittleEndian, values)
	b.views = append(b.views, map[string]any{
		"buffer":     0,
		"byteOffset": offset,
		"byteLength": b.buf.Len() - offset,
	})
	return len(b.views) - 1
}

// buildSampleGltfForTest はスキン付きメッシュと非スキンメッシュを持つglTF文書を構築する。
func buildSampleGltfForTest(withVrm0 bool) (map[string]any, []byte) {
	bin := &glbBinBuilder{}
	positions := bin.add([]float32{0, 1, 0, 1, 1, 0, 0, 2, 0})
	normals := bin.add([]float32{0, 0, 1, 0, 0, 1, 0, 0, 1})
	uvs := bin.add([]float32{0, 0, 1, 0, 0, 1})
	joints := bin.add([]uint8{0, 0, 0, 0, 0, 1, 0, 0, 1, 0, 0, 0})
	weights := bin.add([]float32{1, 0, 0, 0, 0.5, 0.5, 0, 0, 1, 0, 0, 0})
	indices := bin.add([]uint16{0, 1, 2})
	ibms := bin.add([]float32{
		1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, -1, 0, 1,
		1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, -1.5, 0, 1,
	})
	image := bin.add(testPngBytes)

	accessor := func(view int, componentType int, count int, typeName string) map[string]any {
		return map[string]any{"bufferView": view, "componentType": componentType, "count": count, "type": typeName}
	}
	doc := map[string]any{
		"asset":       map[string]any{"version": "2.0"},
		"buffers":     []map[string]any{{"byteLength": bin.buf.Len()}},
		"bufferViews": bin.views,
		"accessors": []map[string]any{
			accessor(positions, gltfComponentTypeFloat, 3, "VEC3"),
			accessor(normals, gltfComponentTypeFloat, 3, "VEC3"),
			accessor(uvs, gltfComponentTypeFloat, 3, "VEC2"),
			accessor(joints, gltfComponentTypeUnsignedByte, 3, "VEC4"),
			accessor(weights, gltfComponentTypeFloat, 3, "VEC4"),
			accessor(indices, gltfComponentTypeUnsignedShort, 3, "SCALAR"),
			accessor(ibms, gltfComponentTypeFloat, 2, "MAT4"),
		},
		"meshes": []map[string]any{{
			"name": "BodyMesh",
			"primitives": []map[string]any{{
				"attributes": map[string]int{
					"POSITION":   0,
					"NORMAL":     1,
					"TEXCOORD_0": 2,
					"JOINTS_0":   3,
					"WEIGHTS_0":  4,
				},
				"indices":  5,
				"material": 0,
			}},
		}},
		"skins": []map[string]any{{"inverseBindMatrices": 6, "joints": []int{1, 2}}},
		"materials": []map[string]any{{
			"name":        "Skin",
			"doubleSided": true,
			"pbrMetallicRoughness": map[string]any{
				"baseColorFactor":  []float64{1, 0.5, 0.5, 1},
				"baseColorTexture": map[string]any{"index": 0},
			},
		}},
		"textures": []map[string]any{{"source": 0}},
		"images":   []map[string]any{{"name": "skin_tex", "bufferView": image, "mimeType": "image/png"}},
		"nodes": []map[string]any{
			{"name": "Root", "children": []int{1, 3, 4}},
			{"name": "Hips", "translation": []float64{0, 1, 0}, "children": []int{2}},
			{"name": "Spine", "translation": []float64{0, 0.6, 0}},
			{"name": "Body", "mesh": 0, "skin": 0},
			{"name": "Prop", "mesh": 0, "translation": []float64{2, 0, 0}},
		},
		"scenes": []map[string]any{{"nodes": []int{0}}},
		"scene":  0,
	}
	if withVrm0 {
		doc["extensionsUsed"] = []string{"VRM"}
		doc["extensions"] = map[string]any{
			"VRM": map[string]any{
				"exporterVersion": "UniVRM-0.99",
				"meta":            map[string]any{"title": "Sample", "author": "Alice"},
			},
		}
	}
	return doc, bin.buf.Bytes()
}

// writeGLBFileForTestWithBin はJSON/BINチャンクを持つGLBを書き出す。
func writeGLBFileForTestWithBin(t *testing.T, path string, doc map[string]any, binChunk []byte) {
	t.Helper()
	jsonBytes, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("json marshal failed: %v", err)
	}
	jsonPadSize := (4 - (len(jsonBytes) % 4)) % 4
	if jsonPadSize > 0 {
		jsonBytes = append(jsonBytes, bytes.Repeat([]byte(" "), jsonPadSize)...)
	}
	binBytes := append([]byte(nil), binChunk...)
	if len(binBytes) > 0 {
		binPadSize := (4 - (len(binBytes) % 4)) % 4
		if binPadSize > 0 {
			binBytes = append(binBytes, bytes.Repeat([]byte{0x00}, binPadSize)...)
		}
	}

	totalLength := uint32(12 + 8 + len(jsonBytes))
	if len(binBytes) > 0 {
		totalLength += uint32(8 + len(binBytes))
	}
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, uint32(0x46546C67)); err != nil {
		t.Fatalf("write magic failed: %v", err)
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint32(2)); err != nil {
		t.Fatalf("write version failed: %v", err)
	}
	if err := binary.Write(&buf, binary.LittleEndian, totalLength); err != nil {
		t.Fatalf("write length failed: %v", err)
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(jsonBytes))); err != nil {
		t.Fatalf("write chunk length failed: %v", err)
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint32(0x4E4F534A)); err != nil {
		t.Fatalf("write json chunk type failed: %v", err)
	}
	if _, err := buf.Write(jsonBytes); err != nil {
		t.Fatalf("write json chunk body failed: %v", err)
	}
	if len(binBytes) > 0 {
		if err := binary.Write(&buf, binary.LittleEndian, uint32(len(binBytes))); err != nil {
			t.Fatalf("write bin chunk length failed: %v", err)
		}
		if err := binary.Write(&buf, binary.LittleEndian, uint32(0x004E4942)); err != nil {
			t.Fatalf("write bin chunk type failed: %v", err)
		}
		if _, err := buf.Write(binBytes); err != nil {
			t.Fatalf("write bin chunk body failed: %v", err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write file failed: %v", err)
	}
}
