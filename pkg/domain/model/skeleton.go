// 指示: miu200521358
package model

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/miu200521358/mu_skin2dae/pkg/domain/mmath"
)

// Skeleton はボーンをindex参照で保持するアリーナを表す。
// index 0 は常に合成ルートボーン。
type Skeleton struct {
	Bones []*Bone
	// ArmatureWorld はアーマチュアオブジェクトのワールド行列。
	ArmatureWorld mgl64.Mat4
	// ScaleCorrection は全体スケール補正係数。
	ScaleCorrection float64

	nameIndexes map[string]int
}

// NewSkeleton は合成ルートのみを持つスケルトンを生成する。
func NewSkeleton() *Skeleton {
	root := NewBone(RootBoneName)
	root.Index = 0
	return &Skeleton{
		Bones:           []*Bone{root},
		ArmatureWorld:   mgl64.Ident4(),
		ScaleCorrection: 1.0,
		nameIndexes:     map[string]int{RootBoneName: 0},
	}
}

// Root は合成ルートボーンを返す。
func (s *Skeleton) Root() *Bone {
	if s == nil || len(s.Bones) == 0 {
		return nil
	}
	return s.Bones[0]
}

// Len はルートを含むボーン数を返す。
func (s *Skeleton) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bones)
}

// AddBone は親名を指定してボーンを追加する。親名が空の場合はルート直下に追加する。
func (s *Skeleton) AddBone(bone *Bone, parentName string) (*Bone, error) {
	if s == nil {
		return nil, fmt.Errorf("スケルトンが未設定です")
	}
	if bone == nil || strings.TrimSpace(bone.Name) == "" {
		return nil, fmt.Errorf("ボーン名が未指定です")
	}
	s.ensureIndex()
	if _, exists := s.nameIndexes[bone.Name]; exists {
		return nil, fmt.Errorf("ボーン名が重複しています: %s", bone.Name)
	}
	parentIndex := 0
	if strings.TrimSpace(parentName) != "" {
		idx, ok := s.nameIndexes[parentName]
		if !ok {
			return nil, fmt.Errorf("親ボーンが見つかりません: bone=%s parent=%s", bone.Name, parentName)
		}
		parentIndex = idx
	}
	bone.Index = len(s.Bones)
	bone.ParentIndex = parentIndex
	bone.ChildIndexes = []int{}
	s.Bones = append(s.Bones, bone)
	s.Bones[parentIndex].ChildIndexes = append(s.Bones[parentIndex].ChildIndexes, bone.Index)
	s.nameIndexes[bone.Name] = bone.Index
	return bone, nil
}

// Get はindexからボーンを返す。
func (s *Skeleton) Get(index int) (*Bone, error) {
	if s == nil || index < 0 || index >= len(s.Bones) || s.Bones[index] == nil {
		return nil, fmt.Errorf("ボーンindexが不正です: %d", index)
	}
	return s.Bones[index], nil
}

// GetByName は名前からボーンを返す。
func (s *Skeleton) GetByName(name string) (*Bone, bool) {
	if s == nil {
		return nil, false
	}
	s.ensureIndex()
	idx, ok := s.nameIndexes[name]
	if !ok {
		return nil, false
	}
	return s.Bones[idx], true
}

// Reindex は名前索引と子リストを ParentIndex から再構築し、構造を検証する。
// 外部で Bones を直接組み立てた後や複製後に呼び出す。
func (s *Skeleton) Reindex() error {
	if s == nil {
		return fmt.Errorf("スケルトンが未設定です")
	}
	if len(s.Bones) == 0 || s.Bones[0] == nil || s.Bones[0].Name != RootBoneName {
		return NewExportError(ErrorKindBoneCycle, "", "", fmt.Errorf("合成ルートボーンがありません"))
	}
	s.nameIndexes = make(map[string]int, len(s.Bones))
	for index, bone := range s.Bones {
		if bone == nil {
			return fmt.Errorf("ボーンが未設定です: index=%d", index)
		}
		if _, exists := s.nameIndexes[bone.Name]; exists {
			return fmt.Errorf("ボーン名が重複しています: %s", bone.Name)
		}
		bone.Index = index
		bone.ChildIndexes = bone.ChildIndexes[:0]
		s.nameIndexes[bone.Name] = index
	}
	for index, bone := range s.Bones {
		if index == 0 {
			bone.ParentIndex = -1
			continue
		}
		if bone.ParentIndex < 0 || bone.ParentIndex >= len(s.Bones) {
			return NewExportError(
				ErrorKindBoneCycle,
				"",
				bone.Name,
				fmt.Errorf("親ボーンindexが不正です: %d", bone.ParentIndex),
			)
		}
		parent := s.Bones[bone.ParentIndex]
		parent.ChildIndexes = append(parent.ChildIndexes, index)
	}
	return s.Validate()
}

// Validate は親子関係に循環や欠落がないか検証する。
func (s *Skeleton) Validate() error {
	if s == nil {
		return fmt.Errorf("スケルトンが未設定です")
	}
	const (
		unvisited = 0
		visiting  = 1
		visited   = 2
	)
	state := make([]int, len(s.Bones))
	for index := range s.Bones {
		current := index
		path := []int{}
		for current > 0 && state[current] == unvisited {
			state[current] = visiting
			path = append(path, current)
			parent := s.Bones[current].ParentIndex
			if parent < 0 || parent >= len(s.Bones) {
				return NewExportError(
					ErrorKindBoneCycle,
					"",
					s.Bones[current].Name,
					fmt.Errorf("親ボーンが存在しません: %d", parent),
				)
			}
			current = parent
		}
		if current > 0 && state[current] == visiting {
			return NewExportError(
				ErrorKindBoneCycle,
				"",
				s.Bones[current].Name,
				fmt.Errorf("ボーン親子関係に循環があります"),
			)
		}
		for _, visitedIndex := range path {
			state[visitedIndex] = visited
		}
	}
	return nil
}

// Hierarchy はルートを除くボーンindexを親→子の順(深さ優先、子は登録順)で返す。
func (s *Skeleton) Hierarchy() []int {
	if s == nil || len(s.Bones) == 0 {
		return nil
	}
	order := make([]int, 0, len(s.Bones)-1)
	seen := make([]bool, len(s.Bones))
	seen[0] = true
	stack := reversedInts(s.Bones[0].ChildIndexes)
	for len(stack) > 0 {
		index := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if index <= 0 || index >= len(s.Bones) || seen[index] {
			continue
		}
		seen[index] = true
		order = append(order, index)
		stack = append(stack, reversedInts(s.Bones[index].ChildIndexes)...)
	}
	return order
}

// ReverseHierarchy は Hierarchy の逆順(子→親)を返す。
func (s *Skeleton) ReverseHierarchy() []int {
	return reversedInts(s.Hierarchy())
}

// Ancestors はルートを除く祖先indexを近い順に返す。
func (s *Skeleton) Ancestors(index int) []int {
	if s == nil || index <= 0 || index >= len(s.Bones) {
		return nil
	}
	ancestors := []int{}
	current := s.Bones[index].ParentIndex
	for current > 0 && current < len(s.Bones) {
		ancestors = append(ancestors, current)
		if len(ancestors) > len(s.Bones) {
			break
		}
		current = s.Bones[current].ParentIndex
	}
	return ancestors
}

// ArmatureMatrix はアーマチュアのワールド行列を返す。未設定の場合は単位行列。
func (s *Skeleton) ArmatureMatrix() mgl64.Mat4 {
	if s == nil {
		return mgl64.Ident4()
	}
	return mmath.OrIdentity(s.ArmatureWorld)
}

// ScaleFactor はスケール補正係数を返す。未設定の場合は 1。
func (s *Skeleton) ScaleFactor() float64 {
	if s == nil || s.ScaleCorrection <= 0 {
		return 1.0
	}
	return s.ScaleCorrection
}

// ensureIndex は名前索引が未構築の場合に構築する。
func (s *Skeleton) ensureIndex() {
	if s.nameIndexes != nil {
		return
	}
	s.nameIndexes = make(map[string]int, len(s.Bones))
	for index, bone := range s.Bones {
		if bone == nil {
			continue
		}
		s.nameIndexes[bone.Name] = index
	}
}

// reversedInts は逆順の新しいスライスを返す。
func reversedInts(values []int) []int {
	out := make([]int, len(values))
	for i, value := range values {
		out[len(values)-1-i] = value
	}
	return out
}
