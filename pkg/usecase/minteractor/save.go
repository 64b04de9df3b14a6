// 指示: miu200521358
package minteractor

import (
	"fmt"
	"strings"

	"github.com/miu200521358/mu_skin2dae/pkg/domain/model"
)

// SaveDocument は計算済みデータを文書として保存する。
func (uc *SkinExportUsecase) SaveDocument(path string, payload *model.ExportPayload, opts SaveOptions) error {
	if uc.documentWriter == nil {
		return fmt.Errorf("文書保存リポジトリが設定されていません")
	}
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("保存先パスが未指定です")
	}
	if payload == nil {
		return fmt.Errorf("保存対象データが未設定です")
	}
	if err := uc.documentWriter.Save(path, payload, opts); err != nil {
		if _, ok := model.ErrorKindOf(err); ok {
			return err
		}
		return model.NewExportError(model.ErrorKindUnwritableOutput, "", "", err)
	}
	return nil
}
