// 指示: miu200521358
package minteractor

import (
	"fmt"
	"math"
	"sort"

	"github.com/miu200521358/mu_skin2dae/pkg/domain/model"
	"gonum.org/v1/gonum/floats"
)

// normalizedWeightTolerance は再正規化を省略する合計誤差。
const normalizedWeightTolerance = 1e-12

// weightCandidate は正規化前のウェイト候補を表す。
type weightCandidate struct {
	name   string
	weight float64
	order  int
}

// BuildWeightTable は頂点ごとのジョイント影響リストを構築する。
// 影響のindexは joints のindexと一致する。
func BuildWeightTable(
	mesh *model.Mesh,
	joints *model.JointSet,
	skeleton *model.Skeleton,
	ctx model.ExportContext,
	warnings *model.Warnings,
) (*model.WeightTable, error) {
	if mesh == nil {
		return nil, fmt.Errorf("メッシュが未設定です")
	}
	if joints == nil || skeleton == nil {
		return nil, fmt.Errorf("ジョイント集合が未設定です: mesh=%s", mesh.Name)
	}
	maxInfluences := ctx.MaxWeightPerVertex
	if maxInfluences <= 0 {
		maxInfluences = model.DefaultMaxWeightPerVertex
	}

	table := &model.WeightTable{
		Influences:         make([][]model.Influence, len(mesh.Vertices)),
		ZeroWeightVertices: []int{},
	}
	ignored := map[string]int{}
	undeformable := map[string]int{}

	for vertexIndex, vertex := range mesh.Vertices {
		merged := mergeWeightEntries(vertex.Weights)
		valid := make([]weightCandidate, 0, len(merged))
		for _, candidate := range merged {
			bone, exists := skeleton.GetByName(candidate.name)
			if !exists {
				continue
			}
			if !bone.Deform {
				undeformable[candidate.name]++
				continue
			}
			if !joints.Contains(candidate.name) {
				ignored[candidate.name]++
				continue
			}
			valid = append(valid, candidate)
		}

		sort.SliceStable(valid, func(i, j int) bool {
			if valid[i].weight != valid[j].weight {
				return valid[i].weight > valid[j].weight
			}
			return valid[i].order < valid[j].order
		})
		if len(valid) > maxInfluences {
			valid = valid[:maxInfluences]
			table.TruncatedVertices++
		}

		values := make([]float64, len(valid))
		for i, candidate := range valid {
			values[i] = candidate.weight
		}
		total := floats.Sum(values)
		if len(valid) == 0 || total <= 0 {
			table.Influences[vertexIndex] = []model.Influence{}
			table.ZeroWeightVertices = append(table.ZeroWeightVertices, vertexIndex)
			continue
		}
		if math.Abs(total-1.0) > normalizedWeightTolerance {
			floats.Scale(1.0/total, values)
		}

		influences := make([]model.Influence, 0, len(valid))
		for i, candidate := range valid {
			jointIndex, _ := joints.IndexOf(candidate.name)
			influences = append(influences, model.Influence{JointIndex: jointIndex, Weight: values[i]})
		}
		table.Influences[vertexIndex] = influences
	}

	if table.TruncatedVertices > 0 {
		warnings.Add(
			model.WarningWeightsTruncated,
			mesh.Name,
			table.TruncatedVertices,
			fmt.Sprintf("max=%d", maxInfluences),
		)
		logExportWarn("頂点ウェイトを切り捨てました: mesh=%s vertices=%d max=%d", mesh.Name, table.TruncatedVertices, maxInfluences)
	}
	if len(table.ZeroWeightVertices) > 0 {
		warnings.Add(model.WarningZeroWeightVertex, mesh.Name, len(table.ZeroWeightVertices), "")
		logExportWarn("有効ウェイトのない頂点があります: mesh=%s vertices=%d", mesh.Name, len(table.ZeroWeightVertices))
	}
	addBoneGroupWarnings(warnings, model.WarningIgnoredBoneGroup, mesh.Name, ignored)
	addBoneGroupWarnings(warnings, model.WarningUndeformableBoneGroup, mesh.Name, undeformable)
	return table, nil
}

// mergeWeightEntries は同名ボーンのウェイトを合算し、初出順で返す。
// 0以下や非数のウェイトは捨てる。
func mergeWeightEntries(entries []model.WeightEntry) []weightCandidate {
	merged := make([]weightCandidate, 0, len(entries))
	positions := map[string]int{}
	for _, entry := range entries {
		if entry.BoneName == "" || !(entry.Weight > 0) || math.IsInf(entry.Weight, 0) {
			continue
		}
		if index, ok := positions[entry.BoneName]; ok {
			merged[index].weight += entry.Weight
			continue
		}
		positions[entry.BoneName] = len(merged)
		merged = append(merged, weightCandidate{
			name:   entry.BoneName,
			weight: entry.Weight,
			order:  len(merged),
		})
	}
	return merged
}

// addBoneGroupWarnings はボーン名順で集計済み警告を追加する。
func addBoneGroupWarnings(warnings *model.Warnings, kind model.WarningKind, object string, counts map[string]int) {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		warnings.Add(kind, object, counts[name], name)
		logExportDebug("ウェイトを除外しました: kind=%s mesh=%s bone=%s vertices=%d", kind, object, name, counts[name])
	}
}
