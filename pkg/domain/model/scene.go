// 指示: miu200521358
package model

import (
	"fmt"

	"github.com/tiendc/go-deepcopy"
)

const (
	// UpAxisY はY軸上向き。
	UpAxisY = "Y_UP"
	// UpAxisZ はZ軸上向き。
	UpAxisZ = "Z_UP"
)

// Scene は出力対象の読み取り専用スナップショットを表す。
type Scene struct {
	Name       string
	SourceName string
	Author     string
	UpAxis     string
	Skeleton   *Skeleton
	Meshes     []*Mesh
	Materials  map[string]*Material
}

// NewScene は空のスケルトンを持つシーンを生成する。
func NewScene(name string) *Scene {
	return &Scene{
		Name:      name,
		UpAxis:    UpAxisY,
		Skeleton:  NewSkeleton(),
		Meshes:    []*Mesh{},
		Materials: map[string]*Material{},
	}
}

// Material は名前から材質を返す。
func (s *Scene) Material(name string) (*Material, bool) {
	if s == nil || s.Materials == nil {
		return nil, false
	}
	material, ok := s.Materials[name]
	return material, ok && material != nil
}

// Snapshot はシーンを深く複製し、スケルトン索引を再構築する。
func (s *Scene) Snapshot() (*Scene, error) {
	if s == nil {
		return nil, fmt.Errorf("シーンが未設定です")
	}
	var copied Scene
	if err := deepcopy.Copy(&copied, s); err != nil {
		return nil, fmt.Errorf("シーン複製に失敗しました: %w", err)
	}
	if copied.Skeleton == nil {
		copied.Skeleton = NewSkeleton()
	}
	if err := copied.Skeleton.Reindex(); err != nil {
		return nil, err
	}
	if copied.UpAxis == "" {
		copied.UpAxis = UpAxisY
	}
	if copied.Materials == nil {
		copied.Materials = map[string]*Material{}
	}
	return &copied, nil
}
