// 指示: miu200521358
package minteractor

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/miu200521358/mu_skin2dae/pkg/domain/mmath"
	"github.com/miu200521358/mu_skin2dae/pkg/domain/model"
	"gonum.org/v1/gonum/spatial/r3"
)

// exportSpace は出力座標系への変換条件を表す。
type exportSpace struct {
	remap         mgl64.Mat4
	factor        float64
	armature      mgl64.Mat4
	armatureScale r3.Vec
	applyScale    bool
	useBindPose   bool
}

// newExportSpace はスケルトンと出力設定から出力座標系を構築する。
func newExportSpace(skeleton *model.Skeleton, ctx model.ExportContext) exportSpace {
	armature := skeleton.ArmatureMatrix()
	space := exportSpace{
		remap:         axisRemap(ctx.RotationConvention),
		factor:        1.0,
		armature:      armature,
		armatureScale: mmath.ONE_VEC3,
		useBindPose:   ctx.UseBindPose,
	}
	if ctx.ApplyScaleCorrection {
		space.applyScale = true
		space.factor = skeleton.ScaleFactor()
		space.armatureScale = mmath.ExtractScale(armature)
		space.armature = mmath.RemoveScale(armature)
	}
	return space
}

// axisRemap は軸変換規約に対応する行列を返す。
func axisRemap(convention model.RotationConvention) mgl64.Mat4 {
	switch convention {
	case model.RotationConventionYUpToZUp:
		return mmath.AxisRemapYUpToZUp()
	case model.RotationConventionZUpToYUp:
		return mmath.AxisRemapZUpToYUp()
	default:
		return mgl64.Ident4()
	}
}

// exportUpAxis は出力文書の上方向軸を返す。
func exportUpAxis(convention model.RotationConvention, sceneUpAxis string) string {
	switch convention {
	case model.RotationConventionYUpToZUp:
		return model.UpAxisZ
	case model.RotationConventionZUpToYUp:
		return model.UpAxisY
	}
	if sceneUpAxis == "" {
		return model.UpAxisY
	}
	return sceneUpAxis
}

// point は頂点位置を出力座標系へ変換する。
func (s exportSpace) point(v r3.Vec) r3.Vec {
	return r3.Scale(s.factor, mmath.TransformPoint(s.remap, v))
}

// direction は法線を出力座標系へ変換する。
func (s exportSpace) direction(v r3.Vec) r3.Vec {
	return mmath.TransformDirection(s.remap, v)
}

// objectWorld はオブジェクト行列を出力座標系へ変換する。頂点は point で変換済みのため軸変換で挟む。
func (s exportSpace) objectWorld(m mgl64.Mat4) mgl64.Mat4 {
	object := mmath.OrIdentity(m)
	return mmath.ScaleTranslation(s.remap.Mul4(object).Mul4(s.remap.Inv()), s.factor)
}

// poseWorld はルートからボーンまでのローカル変換を合成したアーマチュア空間行列を返す。
func (s exportSpace) poseWorld(skeleton *model.Skeleton, boneIndex int) (mgl64.Mat4, error) {
	if _, err := skeleton.Get(boneIndex); err != nil {
		return mgl64.Ident4(), err
	}
	chain := append([]int{boneIndex}, skeleton.Ancestors(boneIndex)...)
	world := mgl64.Ident4()
	for i := len(chain) - 1; i >= 0; i-- {
		local, _ := skeleton.Bones[chain[i]].LocalTransform(s.useBindPose)
		if s.applyScale {
			local = local.ScaledTranslation(s.armatureScale)
		}
		world = world.Mul4(local.Mat4())
	}
	return world, nil
}

// jointWorld はジョイントの出力座標系での行列を返す。objectWorld を指定した場合はそのオブジェクト空間で返す。
func (s exportSpace) jointWorld(skeleton *model.Skeleton, boneIndex int, objectWorld *mgl64.Mat4) (mgl64.Mat4, error) {
	pose, err := s.poseWorld(skeleton, boneIndex)
	if err != nil {
		return mgl64.Ident4(), err
	}
	world := s.armature.Mul4(pose)
	if objectWorld != nil {
		object := mmath.OrIdentity(*objectWorld)
		if mmath.IsSingular(object) {
			return mgl64.Ident4(), fmt.Errorf("オブジェクト行列が逆行列を持ちません")
		}
		world = object.Inv().Mul4(world)
	}
	return mmath.ScaleTranslation(s.remap.Mul4(world), s.factor), nil
}

// ComputeInverseBind はボーンの逆バインド行列をメッシュオブジェクト空間で算出する。
func ComputeInverseBind(
	skeleton *model.Skeleton,
	boneIndex int,
	meshWorld mgl64.Mat4,
	ctx model.ExportContext,
) (mgl64.Mat4, error) {
	if skeleton == nil {
		return mgl64.Ident4(), fmt.Errorf("スケルトンが未設定です")
	}
	return computeInverseBind(newExportSpace(skeleton, ctx), skeleton, boneIndex, meshWorld, ctx.Precision)
}

// computeInverseBind は構築済みの出力座標系で逆バインド行列を算出する。
func computeInverseBind(
	space exportSpace,
	skeleton *model.Skeleton,
	boneIndex int,
	meshWorld mgl64.Mat4,
	precision int,
) (mgl64.Mat4, error) {
	boneName := ""
	if bone, err := skeleton.Get(boneIndex); err == nil {
		boneName = bone.Name
	}
	world, err := space.jointWorld(skeleton, boneIndex, &meshWorld)
	if err != nil {
		return mgl64.Ident4(), model.NewExportError(model.ErrorKindSingularMatrix, "", boneName, err)
	}
	if mmath.IsSingular(world) {
		return mgl64.Ident4(), model.NewExportError(
			model.ErrorKindSingularMatrix,
			"",
			boneName,
			fmt.Errorf("ジョイント行列が逆行列を持ちません"),
		)
	}
	return mmath.RoundMat4(world.Inv(), precision), nil
}

// ComputeInverseBindMatrices はジョイント集合の順で逆バインド行列を算出する。
func ComputeInverseBindMatrices(
	skeleton *model.Skeleton,
	joints *model.JointSet,
	meshWorld mgl64.Mat4,
	ctx model.ExportContext,
) ([]mgl64.Mat4, error) {
	if skeleton == nil {
		return nil, fmt.Errorf("スケルトンが未設定です")
	}
	space := newExportSpace(skeleton, ctx)
	matrices := make([]mgl64.Mat4, 0, joints.Len())
	for i := 0; i < joints.Len(); i++ {
		matrix, err := computeInverseBind(space, skeleton, joints.BoneIndex(i), meshWorld, ctx.Precision)
		if err != nil {
			return nil, err
		}
		matrices = append(matrices, matrix)
	}
	return matrices, nil
}

// FilterPosedJoints はバインド姿勢指定時にポーズ情報のないジョイントを除いた集合を返す。
func FilterPosedJoints(
	skeleton *model.Skeleton,
	joints *model.JointSet,
	ctx model.ExportContext,
	warnings *model.Warnings,
) *model.JointSet {
	if !ctx.UseBindPose {
		return joints
	}
	return joints.Filter(func(name string, boneIndex int) bool {
		bone, err := skeleton.Get(boneIndex)
		if err == nil && bone.HasPose {
			return true
		}
		warnings.Add(model.WarningMissingPoseBone, "", 1, name)
		logExportWarn("ポーズ情報のないボーンを除外しました: bone=%s", name)
		return false
	})
}

// ComputeJointNodes はジョイントノードの親相対行列と出力親indexを算出する。
// 出力親のないジョイントはアーマチュアノード直下に置く。
func ComputeJointNodes(
	skeleton *model.Skeleton,
	joints *model.JointSet,
	ctx model.ExportContext,
) ([]mgl64.Mat4, []int, error) {
	if skeleton == nil {
		return nil, nil, fmt.Errorf("スケルトンが未設定です")
	}
	space := newExportSpace(skeleton, ctx)
	worlds := make([]mgl64.Mat4, joints.Len())
	locals := make([]mgl64.Mat4, joints.Len())
	parents := make([]int, joints.Len())
	for i := 0; i < joints.Len(); i++ {
		boneIndex := joints.BoneIndex(i)
		world, err := space.jointWorld(skeleton, boneIndex, nil)
		if err != nil {
			return nil, nil, model.NewExportError(model.ErrorKindSingularMatrix, "", joints.Name(i), err)
		}
		worlds[i] = world

		parents[i] = -1
		for _, ancestor := range skeleton.Ancestors(boneIndex) {
			if parentIndex, ok := joints.IndexOf(skeleton.Bones[ancestor].Name); ok {
				parents[i] = parentIndex
				break
			}
		}
		if parents[i] < 0 {
			locals[i] = mmath.RoundMat4(world, ctx.Precision)
			continue
		}
		parentWorld := worlds[parents[i]]
		if mmath.IsSingular(parentWorld) {
			return nil, nil, model.NewExportError(
				model.ErrorKindSingularMatrix,
				"",
				joints.Name(parents[i]),
				fmt.Errorf("親ジョイント行列が逆行列を持ちません"),
			)
		}
		locals[i] = mmath.RoundMat4(parentWorld.Inv().Mul4(world), ctx.Precision)
	}
	return locals, parents, nil
}
