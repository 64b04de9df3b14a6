// 指示: miu200521358
package reader

import (
	"fmt"

	"github.com/miu200521358/mu_skin2dae/pkg/domain/model"
	"github.com/miu200521358/mu_skin2dae/pkg/usecase/port/moutput"
)

// SceneReader は拡張子に応じて読み込みリポジトリを選択する。
type SceneReader struct {
	readers []moutput.ISceneReader
}

// NewSceneReader は候補リポジトリを登録順に保持する。
func NewSceneReader(readers ...moutput.ISceneReader) *SceneReader {
	filtered := make([]moutput.ISceneReader, 0, len(readers))
	for _, r := range readers {
		if r != nil {
			filtered = append(filtered, r)
		}
	}
	return &SceneReader{readers: filtered}
}

// CanLoad はいずれかのリポジトリで読み込めるか判定する。
func (s *SceneReader) CanLoad(path string) bool {
	return s.find(path) != nil
}

// Load は最初に対応したリポジトリで読み込む。
func (s *SceneReader) Load(path string) (*model.Scene, error) {
	r := s.find(path)
	if r == nil {
		return nil, fmt.Errorf("読み込みに対応していない入力です: %s", path)
	}
	return r.Load(path)
}

func (s *SceneReader) find(path string) moutput.ISceneReader {
	if s == nil {
		return nil
	}
	for _, r := range s.readers {
		if r.CanLoad(path) {
			return r
		}
	}
	return nil
}
