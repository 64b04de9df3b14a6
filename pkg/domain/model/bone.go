// 指示: miu200521358
package model

import (
	"strings"

	"github.com/miu200521358/mu_skin2dae/pkg/domain/mmath"
)

const (
	// RootBoneName は合成ルートボーンの名前。出力対象にはならない。
	RootBoneName = "__root__"
)

// attachmentBonePrefixes は装着点ボーンの名前接頭辞。
var attachmentBonePrefixes = []string{"att_", "ATTACH_"}

// Bone はスケルトン内の1ボーンを表す。親子はindexで参照する。
type Bone struct {
	Index        int
	Name         string
	ParentIndex  int
	ChildIndexes []int
	// Rest はレスト姿勢のローカル変換。
	Rest mmath.Transform
	// Pose は現在(バインド)姿勢のローカル変換。HasPose が false の場合は未設定。
	Pose    mmath.Transform
	HasPose bool
	// Reference は既定スケルトン上のローカル変換。HasReference が false の場合は比較しない。
	Reference    mmath.Transform
	HasReference bool
	Deform       bool
}

// NewBone はレスト姿勢を単位変換としたボーンを生成する。
func NewBone(name string) *Bone {
	return &Bone{
		Index:        -1,
		Name:         name,
		ParentIndex:  -1,
		ChildIndexes: []int{},
		Rest:         mmath.NewTransform(),
		Pose:         mmath.NewTransform(),
		Reference:    mmath.NewTransform(),
	}
}

// IsRoot は合成ルートボーンか判定する。
func (b *Bone) IsRoot() bool {
	return b != nil && b.Index == 0
}

// IsAttachment は装着点ボーンか判定する。
func (b *Bone) IsAttachment() bool {
	if b == nil {
		return false
	}
	for _, prefix := range attachmentBonePrefixes {
		if strings.HasPrefix(b.Name, prefix) {
			return true
		}
	}
	return false
}

// HasJointOffset は既定位置から移動されたボーンか判定する。
func (b *Bone) HasJointOffset() bool {
	if b == nil || !b.HasReference {
		return false
	}
	return !b.Rest.ApproxEqual(b.Reference, mmath.TransformEpsilon)
}

// LocalTransform は姿勢選択に応じたローカル変換を返す。
// バインド姿勢指定でポーズ未設定の場合はレスト姿勢と false を返す。
func (b *Bone) LocalTransform(useBindPose bool) (mmath.Transform, bool) {
	if !useBindPose {
		return b.Rest, true
	}
	if !b.HasPose {
		return b.Rest, false
	}
	return b.Pose, true
}
