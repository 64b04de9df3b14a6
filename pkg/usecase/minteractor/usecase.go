// 指示: miu200521358
package minteractor

import (
	"github.com/miu200521358/mu_skin2dae/pkg/shared/logging"
	"github.com/miu200521358/mu_skin2dae/pkg/usecase/port/moutput"
)

// SkinExportUsecaseDeps はスキンメッシュ出力ユースケースの依存を表す。
type SkinExportUsecaseDeps struct {
	SceneReader    moutput.ISceneReader
	DocumentWriter moutput.IDocumentWriter
	TextureProber  moutput.ITextureProber
	HistoryStore   moutput.IHistoryStore
}

// SkinExportUsecase はシーンをスキンメッシュ交換文書へ出力する処理をまとめたユースケースを表す。
type SkinExportUsecase struct {
	sceneReader    moutput.ISceneReader
	documentWriter moutput.IDocumentWriter
	textureProber  moutput.ITextureProber
	historyStore   moutput.IHistoryStore
}

// NewSkinExportUsecase はスキンメッシュ出力ユースケースを生成する。
func NewSkinExportUsecase(deps SkinExportUsecaseDeps) *SkinExportUsecase {
	return &SkinExportUsecase{
		sceneReader:    deps.SceneReader,
		documentWriter: deps.DocumentWriter,
		textureProber:  deps.TextureProber,
		historyStore:   deps.HistoryStore,
	}
}

// logExportInfo は出力処理のINFOログを出力する。
func logExportInfo(format string, params ...any) {
	logger := logging.DefaultLogger()
	if logger == nil {
		return
	}
	logger.Info(format, params...)
}

// logExportDebug は出力処理のDEBUGログを出力する。
func logExportDebug(format string, params ...any) {
	logger := logging.DefaultLogger()
	if logger == nil {
		return
	}
	logger.Debug(format, params...)
}

// logExportWarn は出力処理の警告ログを出力する。
func logExportWarn(format string, params ...any) {
	logger := logging.DefaultLogger()
	if logger == nil {
		return
	}
	logger.Warn(format, params...)
}
