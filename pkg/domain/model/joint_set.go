// 指示: miu200521358
package model

// JointSet は1回の出力で使う重複なしの順序付きジョイント名集合を表す。
// 親ジョイントは常に子より前に並ぶ。
type JointSet struct {
	names   []string
	indexes map[string]int
	// boneIndexes はスケルトン上のボーンindex。names と同順。
	boneIndexes []int
}

// NewJointSet は空のジョイント集合を生成する。
func NewJointSet() *JointSet {
	return &JointSet{
		names:       []string{},
		indexes:     map[string]int{},
		boneIndexes: []int{},
	}
}

// Append はジョイントを末尾に追加する。既に含まれる場合は false を返す。
func (j *JointSet) Append(name string, boneIndex int) bool {
	if _, exists := j.indexes[name]; exists {
		return false
	}
	j.indexes[name] = len(j.names)
	j.names = append(j.names, name)
	j.boneIndexes = append(j.boneIndexes, boneIndex)
	return true
}

// Len はジョイント数を返す。
func (j *JointSet) Len() int {
	if j == nil {
		return 0
	}
	return len(j.names)
}

// Names はジョイント名の複製を返す。
func (j *JointSet) Names() []string {
	if j == nil {
		return []string{}
	}
	out := make([]string, len(j.names))
	copy(out, j.names)
	return out
}

// Name はindexのジョイント名を返す。
func (j *JointSet) Name(index int) string {
	if j == nil || index < 0 || index >= len(j.names) {
		return ""
	}
	return j.names[index]
}

// BoneIndex はindexのジョイントに対応するボーンindexを返す。
func (j *JointSet) BoneIndex(index int) int {
	if j == nil || index < 0 || index >= len(j.boneIndexes) {
		return -1
	}
	return j.boneIndexes[index]
}

// IndexOf はジョイント名のindexを返す。
func (j *JointSet) IndexOf(name string) (int, bool) {
	if j == nil {
		return -1, false
	}
	index, ok := j.indexes[name]
	return index, ok
}

// Contains はジョイント名が含まれるか判定する。
func (j *JointSet) Contains(name string) bool {
	_, ok := j.IndexOf(name)
	return ok
}

// Filter は条件を満たすジョイントだけを元の順序で持つ新しい集合を返す。
func (j *JointSet) Filter(keep func(name string, boneIndex int) bool) *JointSet {
	out := NewJointSet()
	if j == nil {
		return out
	}
	for i, name := range j.names {
		if keep(name, j.boneIndexes[i]) {
			out.Append(name, j.boneIndexes[i])
		}
	}
	return out
}
