// 指示: miu200521358
package collada

import (
	"encoding/xml"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/miu200521358/mu_skin2dae/pkg/domain/model"
)

// verifyDocument は保存済み文書の読み戻し用の構造を表す。
type verifyDocument struct {
	Version     string           `xml:"version,attr"`
	Geometries  []verifyGeometry `xml:"library_geometries>geometry"`
	Controllers []Controller     `xml:"library_controllers>controller"`
	Scenes      []VisualScene    `xml:"library_visual_scenes>visual_scene"`
}

// verifyGeometry は面リストを要素名ごとに読み戻す形状を表す。
type verifyGeometry struct {
	ID        string      `xml:"id,attr"`
	Triangles []Primitive `xml:"mesh>triangles"`
	Polylists []Primitive `xml:"mesh>polylist"`
}

// VerifyFile は保存済み文書を読み戻し、計算済みデータとの整合を検証する。
func VerifyFile(path string, payload *model.ExportPayload) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return verifyError(fmt.Errorf("保存済み文書の読み取りに失敗しました: %w", err))
	}
	return VerifyBytes(data, payload)
}

// VerifyBytes は文書のバイト列を読み戻し、計算済みデータとの整合を検証する。
func VerifyBytes(data []byte, payload *model.ExportPayload) error {
	doc := verifyDocument{}
	if err := xml.Unmarshal(data, &doc); err != nil {
		return verifyError(fmt.Errorf("文書の解析に失敗しました: %w", err))
	}
	if doc.Version != colladaVersion {
		return verifyError(fmt.Errorf("文書バージョンが不正です: version=%s", doc.Version))
	}
	if payload == nil {
		return nil
	}
	if len(doc.Geometries) != len(payload.Meshes) {
		return verifyError(fmt.Errorf("形状数が一致しません: got=%d want=%d", len(doc.Geometries), len(payload.Meshes)))
	}
	skinned := 0
	for _, mesh := range payload.Meshes {
		if mesh != nil && mesh.IsSkinned() {
			skinned++
		}
	}
	if len(doc.Controllers) != skinned {
		return verifyError(fmt.Errorf("コントローラ数が一致しません: got=%d want=%d", len(doc.Controllers), skinned))
	}
	for _, geometry := range doc.Geometries {
		for _, primitive := range append(append([]Primitive{}, geometry.Triangles...), geometry.Polylists...) {
			if err := verifyPrimitive(geometry.ID, primitive); err != nil {
				return err
			}
		}
	}

	jointCount := 0
	if payload.Joints != nil {
		jointCount = payload.Joints.Len()
	}
	sids := map[string]struct{}{}
	for _, scene := range doc.Scenes {
		collectJointSids(scene.Nodes, sids)
	}
	if len(sids) != jointCount {
		return verifyError(fmt.Errorf("ジョイントノード数が一致しません: got=%d want=%d", len(sids), jointCount))
	}
	for _, controller := range doc.Controllers {
		if err := verifyController(controller, jointCount, sids, payload.Precision); err != nil {
			return err
		}
	}
	return nil
}

// verifyPrimitive は面リストのindex数を検証する。
func verifyPrimitive(geometryID string, primitive Primitive) error {
	stride := 0
	for _, input := range primitive.Inputs {
		if input.Offset != nil && *input.Offset+1 > stride {
			stride = *input.Offset + 1
		}
	}
	indexes, err := parseInts(primitive.P)
	if err != nil {
		return verifyError(fmt.Errorf("面indexの解析に失敗しました: geometry=%s: %w", geometryID, err))
	}
	corners := primitive.Count * 3
	if primitive.XMLName.Local == "polylist" {
		vcounts, err := parseInts(primitive.VCount)
		if err != nil {
			return verifyError(fmt.Errorf("vcountの解析に失敗しました: geometry=%s: %w", geometryID, err))
		}
		if len(vcounts) != primitive.Count {
			return verifyError(fmt.Errorf("vcount数が一致しません: geometry=%s got=%d want=%d", geometryID, len(vcounts), primitive.Count))
		}
		corners = 0
		for _, count := range vcounts {
			corners += count
		}
	}
	if len(indexes) != corners*stride {
		return verifyError(fmt.Errorf("面index数が一致しません: geometry=%s got=%d want=%d", geometryID, len(indexes), corners*stride))
	}
	return nil
}

// verifyController はスキンコントローラの配列長と参照範囲を検証する。
func verifyController(controller Controller, jointCount int, sids map[string]struct{}, precision int) error {
	var names []string
	var bindPoses []float64
	var weights []float64
	for _, source := range controller.Skin.Sources {
		switch {
		case source.NameArray != nil:
			names = strings.Fields(source.NameArray.Value)
		case source.FloatArray != nil && source.Technique.Accessor.Stride == 16:
			values, err := parseFloats(source.FloatArray.Value)
			if err != nil {
				return verifyError(fmt.Errorf("逆バインド行列の解析に失敗しました: controller=%s: %w", controller.ID, err))
			}
			bindPoses = values
		case source.FloatArray != nil:
			values, err := parseFloats(source.FloatArray.Value)
			if err != nil {
				return verifyError(fmt.Errorf("ウェイトの解析に失敗しました: controller=%s: %w", controller.ID, err))
			}
			weights = values
		}
	}
	if len(names) != jointCount {
		return verifyError(fmt.Errorf("ジョイント名数が一致しません: controller=%s got=%d want=%d", controller.ID, len(names), jointCount))
	}
	for _, name := range names {
		if _, ok := sids[name]; !ok {
			return verifyError(fmt.Errorf("ジョイントノードが見つかりません: controller=%s joint=%s", controller.ID, name))
		}
	}
	if len(bindPoses) != jointCount*16 {
		return verifyError(fmt.Errorf("逆バインド行列数が一致しません: controller=%s got=%d want=%d", controller.ID, len(bindPoses), jointCount*16))
	}

	vcounts, err := parseInts(controller.Skin.VertexWeights.VCount)
	if err != nil {
		return verifyError(fmt.Errorf("vcountの解析に失敗しました: controller=%s: %w", controller.ID, err))
	}
	pairs, err := parseInts(controller.Skin.VertexWeights.V)
	if err != nil {
		return verifyError(fmt.Errorf("影響リストの解析に失敗しました: controller=%s: %w", controller.ID, err))
	}
	if len(vcounts) != controller.Skin.VertexWeights.Count {
		return verifyError(fmt.Errorf("頂点ウェイト数が一致しません: controller=%s got=%d want=%d", controller.ID, len(vcounts), controller.Skin.VertexWeights.Count))
	}
	cursor := 0
	for vertexIndex, count := range vcounts {
		if cursor+count*2 > len(pairs) {
			return verifyError(fmt.Errorf("影響リストが不足しています: controller=%s vertex=%d", controller.ID, vertexIndex))
		}
		total := 0.0
		for i := 0; i < count; i++ {
			jointIndex := pairs[cursor]
			weightIndex := pairs[cursor+1]
			cursor += 2
			if jointIndex < 0 || jointIndex >= jointCount {
				return model.NewExportError(
					model.ErrorKindJointIndexOutOfRange,
					controller.ID,
					"",
					fmt.Errorf("保存済み文書がジョイント集合外を参照しています: vertex=%d joint=%d", vertexIndex, jointIndex),
				)
			}
			if weightIndex < 0 || weightIndex >= len(weights) {
				return verifyError(fmt.Errorf("ウェイト参照が範囲外です: controller=%s vertex=%d weight=%d", controller.ID, vertexIndex, weightIndex))
			}
			total += weights[weightIndex]
		}
		tolerance := float64(count)*0.5*math.Pow(10, -float64(precision)) + 1e-9
		if count > 0 && math.Abs(total-1.0) > tolerance {
			return verifyError(fmt.Errorf("ウェイト合計が1ではありません: controller=%s vertex=%d total=%v", controller.ID, vertexIndex, total))
		}
	}
	if cursor != len(pairs) {
		return verifyError(fmt.Errorf("影響リストの長さが一致しません: controller=%s got=%d want=%d", controller.ID, len(pairs), cursor))
	}
	return nil
}

// collectJointSids はJOINTノードのsidを再帰的に集める。
func collectJointSids(nodes []*Node, sids map[string]struct{}) {
	for _, node := range nodes {
		if node == nil {
			continue
		}
		if node.Type == "JOINT" {
			sids[node.Sid] = struct{}{}
		}
		collectJointSids(node.Children, sids)
	}
}

// verifyError は検証失敗を出力不可エラーとして包む。
func verifyError(err error) error {
	return model.NewExportError(model.ErrorKindUnwritableOutput, "", "", fmt.Errorf("文書検証に失敗しました: %w", err))
}

// parseInts は空白区切りの整数列を解析する。
func parseInts(value string) ([]int, error) {
	fields := strings.Fields(value)
	out := make([]int, len(fields))
	for i, field := range fields {
		parsed, err := strconv.Atoi(field)
		if err != nil {
			return nil, err
		}
		out[i] = parsed
	}
	return out, nil
}

// parseFloats は空白区切りの数値列を解析する。
func parseFloats(value string) ([]float64, error) {
	fields := strings.Fields(value)
	out := make([]float64, len(fields))
	for i, field := range fields {
		parsed, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, err
		}
		out[i] = parsed
	}
	return out, nil
}
