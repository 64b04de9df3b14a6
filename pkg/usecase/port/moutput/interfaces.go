// 指示: miu200521358
package moutput

import (
	"context"
	"time"

	"github.com/miu200521358/mu_skin2dae/pkg/domain/model"
)

// ISceneReader はシーン入力の読み込み契約を表す。
type ISceneReader interface {
	// CanLoad は読み込み可能なパスか判定する。
	CanLoad(path string) bool
	// Load はシーンを読み込む。
	Load(path string) (*model.Scene, error)
}

// SaveOptions は保存時のオプションを表す。
type SaveOptions struct {
	// Verify は保存後に文書を再読込して構造検証するか。
	Verify bool
}

// IDocumentWriter は出力文書の書き込み契約を表す。
type IDocumentWriter interface {
	// Save は計算済みデータを文書として保存する。
	Save(path string, payload *model.ExportPayload, opts SaveOptions) error
}

// TextureStatus はテクスチャファイルの確認結果を表す。
type TextureStatus int

const (
	// TextureStatusOK は読込可能。
	TextureStatusOK TextureStatus = iota
	// TextureStatusMissing はファイルなし。
	TextureStatusMissing
	// TextureStatusUnreadable は画像として読めない。
	TextureStatusUnreadable
)

// ITextureProber はテクスチャファイル確認の契約を表す。
type ITextureProber interface {
	// Probe はテクスチャファイルを確認する。
	Probe(path string) (TextureStatus, error)
}

// ExportRecord は出力履歴1件を表す。
type ExportRecord struct {
	RunID        string
	InputPath    string
	OutputPath   string
	Success      bool
	ObjectCount  int
	JointCount   int
	ErrorMessage string
	Warnings     []model.Warning
	CreatedAt    time.Time
}

// IHistoryStore は出力履歴保存の契約を表す。
type IHistoryStore interface {
	// Record は出力履歴を保存する。
	Record(ctx context.Context, record ExportRecord) error
}
