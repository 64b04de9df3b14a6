// 指示: miu200521358
package minteractor

import (
	"fmt"
	"sort"

	"github.com/miu200521358/mu_skin2dae/pkg/domain/model"
)

// ResolveJointSet は出力対象のジョイント集合を親→子の順で解決する。
func ResolveJointSet(
	skeleton *model.Skeleton,
	meshes []*model.Mesh,
	ctx model.ExportContext,
	warnings *model.Warnings,
) (*model.JointSet, error) {
	if skeleton == nil {
		return nil, fmt.Errorf("スケルトンが未設定です")
	}
	if err := skeleton.Validate(); err != nil {
		return nil, err
	}

	weighted := map[string]struct{}{}
	for _, mesh := range meshes {
		if mesh == nil {
			continue
		}
		counts := mesh.WeightGroupNames()
		missing := make([]string, 0)
		for name := range counts {
			if _, ok := skeleton.GetByName(name); !ok {
				missing = append(missing, name)
				continue
			}
			weighted[name] = struct{}{}
		}
		sort.Strings(missing)
		for _, name := range missing {
			warnings.Add(model.WarningMissingBone, mesh.Name, counts[name], name)
			logExportWarn("スケルトンに存在しないボーンを参照しています: mesh=%s bone=%s vertices=%d", mesh.Name, name, counts[name])
		}
	}

	hierarchy := skeleton.Hierarchy()
	selected := make([]bool, skeleton.Len())
	for _, index := range hierarchy {
		bone := skeleton.Bones[index]
		if !isJointCandidate(bone, weighted, ctx) {
			continue
		}
		selected[index] = true
	}

	for _, index := range hierarchy {
		if !selected[index] {
			continue
		}
		for _, ancestor := range skeleton.Ancestors(index) {
			if selected[ancestor] {
				break
			}
			bone := skeleton.Bones[ancestor]
			if !ctx.EnforceFullHierarchy && !bone.HasJointOffset() && !bone.Deform {
				break
			}
			selected[ancestor] = true
		}
	}

	joints := model.NewJointSet()
	for _, index := range hierarchy {
		if selected[index] {
			joints.Append(skeleton.Bones[index].Name, index)
		}
	}

	if ctx.MaxBones > 0 && joints.Len() > ctx.MaxBones {
		warnings.Add(
			model.WarningBoneCountOverLimit,
			"",
			joints.Len(),
			fmt.Sprintf("limit=%d", ctx.MaxBones),
		)
		logExportWarn("出力ボーン数が上限を超えています: count=%d limit=%d", joints.Len(), ctx.MaxBones)
	}
	logExportDebug("ジョイント集合を解決しました: count=%d", joints.Len())
	return joints, nil
}

// isJointCandidate は出力設定によるジョイント候補判定を行う。
func isJointCandidate(bone *model.Bone, weighted map[string]struct{}, ctx model.ExportContext) bool {
	if bone == nil || bone.IsRoot() {
		return false
	}
	if ctx.OnlyDeform && !bone.Deform {
		return false
	}
	if ctx.OnlyWeighted {
		if _, ok := weighted[bone.Name]; !ok {
			return false
		}
	}
	if bone.IsAttachment() && !ctx.AllowAttachmentWeights && !ctx.EnforceFullHierarchy {
		return false
	}
	return true
}
