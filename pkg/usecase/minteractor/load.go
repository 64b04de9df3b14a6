// 指示: miu200521358
package minteractor

import (
	"fmt"
	"strings"

	"github.com/miu200521358/mu_skin2dae/pkg/domain/model"
)

// LoadScene は入力シーンを読み込む。
func (uc *SkinExportUsecase) LoadScene(path string) (*model.Scene, error) {
	if uc.sceneReader == nil {
		return nil, fmt.Errorf("シーン読み込みリポジトリが設定されていません")
	}
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("入力パスが未指定です")
	}
	if !uc.sceneReader.CanLoad(path) {
		return nil, fmt.Errorf("読み込みに対応していない入力です: %s", path)
	}
	return uc.sceneReader.Load(path)
}

// resolveScene は出力対象シーンを解決し、読み取り専用の複製を返す。
func (uc *SkinExportUsecase) resolveScene(inputPath string, scene *model.Scene) (*model.Scene, error) {
	resolved := scene
	if resolved == nil {
		loaded, err := uc.LoadScene(inputPath)
		if err != nil {
			return nil, err
		}
		resolved = loaded
	}
	if resolved == nil {
		return nil, fmt.Errorf("シーン読み込み結果が空です")
	}
	if resolved.Skeleton == nil {
		return nil, fmt.Errorf("スケルトンが見つかりません")
	}
	return resolved.Snapshot()
}
