// 指示: miu200521358
package collada

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/miu200521358/mu_skin2dae/pkg/domain/model"
	"github.com/miu200521358/mu_skin2dae/pkg/shared/logging"
	"github.com/miu200521358/mu_skin2dae/pkg/usecase/port/moutput"
)

const (
	documentExtension = ".dae"
	documentFileMode  = 0o644
	xmlIndent         = "  "
)

// ColladaRepository はCOLLADA文書の保存契約を表す。
type ColladaRepository struct{}

// NewColladaRepository はColladaRepositoryを生成する。
func NewColladaRepository() *ColladaRepository {
	return &ColladaRepository{}
}

// CanSave は拡張子に応じて保存可否を判定する。
func (r *ColladaRepository) CanSave(path string) bool {
	return strings.EqualFold(filepath.Ext(path), documentExtension)
}

// Marshal は計算済みデータを文書のバイト列へ変換する。
func (r *ColladaRepository) Marshal(payload *model.ExportPayload) ([]byte, error) {
	doc, err := BuildDocument(payload)
	if err != nil {
		return nil, err
	}
	body, err := xml.MarshalIndent(doc, "", xmlIndent)
	if err != nil {
		return nil, fmt.Errorf("COLLADA文書の変換に失敗しました: %w", err)
	}
	var buf bytes.Buffer
	buf.Grow(len(xml.Header) + len(body) + 1)
	buf.WriteString(xml.Header)
	buf.Write(body)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Save は計算済みデータをCOLLADA文書として保存する。
// 一時ファイルへ書き出してから置き換えるため、失敗時に既存ファイルは残る。
func (r *ColladaRepository) Save(path string, payload *model.ExportPayload, opts moutput.SaveOptions) error {
	if !r.CanSave(path) {
		return model.NewExportError(
			model.ErrorKindUnwritableOutput,
			"",
			"",
			fmt.Errorf("保存先の拡張子が不正です: path=%s", path),
		)
	}
	data, err := r.Marshal(payload)
	if err != nil {
		return err
	}
	logColladaInfo("COLLADA保存開始: file=%s bytes=%d", filepath.Base(path), len(data))
	if err := writeFileAtomic(path, data); err != nil {
		return model.NewExportError(model.ErrorKindUnwritableOutput, "", "", err)
	}
	if opts.Verify {
		if err := VerifyFile(path, payload); err != nil {
			return err
		}
		logColladaDebug("COLLADA検証完了: file=%s", filepath.Base(path))
	}
	logColladaInfo("COLLADA保存完了: file=%s", filepath.Base(path))
	return nil
}

// writeFileAtomic は同一ディレクトリの一時ファイル経由で書き込む。
func writeFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("一時ファイルの作成に失敗しました: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()
	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("一時ファイルへの書き込みに失敗しました: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("一時ファイルの同期に失敗しました: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("一時ファイルのクローズに失敗しました: %w", err)
	}
	if err = os.Chmod(tmpPath, documentFileMode); err != nil {
		return fmt.Errorf("ファイル権限の設定に失敗しました: %w", err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("出力ファイルの置き換えに失敗しました: %w", err)
	}
	return nil
}

// logColladaInfo はCOLLADA保存の情報ログを出力する。
func logColladaInfo(format string, params ...any) {
	logger := logging.DefaultLogger()
	if logger == nil {
		return
	}
	logger.Info(format, params...)
}

// logColladaDebug はCOLLADA保存のデバッグログを出力する。
func logColladaDebug(format string, params ...any) {
	logger := logging.DefaultLogger()
	if logger == nil {
		return
	}
	logger.Debug(format, params...)
}
