// 指示: miu200521358
package minteractor

import (
	"time"

	"github.com/miu200521358/mu_skin2dae/pkg/domain/model"
	"github.com/miu200521358/mu_skin2dae/pkg/usecase/port/moutput"
)

// SaveOptions は保存時オプションを表す。
type SaveOptions = moutput.SaveOptions

// ExportProgressEventType は出力処理の進捗イベント種別を表す。
type ExportProgressEventType string

const (
	// ExportProgressEventTypeInputValidated は入力検証完了イベントを表す。
	ExportProgressEventTypeInputValidated ExportProgressEventType = "input_validated"
	// ExportProgressEventTypeOutputPathResolved は出力パス解決完了イベントを表す。
	ExportProgressEventTypeOutputPathResolved ExportProgressEventType = "output_path_resolved"
	// ExportProgressEventTypeSceneLoaded はシーン読込完了イベントを表す。
	ExportProgressEventTypeSceneLoaded ExportProgressEventType = "scene_loaded"
	// ExportProgressEventTypeJointsResolved はジョイント集合解決完了イベントを表す。
	ExportProgressEventTypeJointsResolved ExportProgressEventType = "joints_resolved"
	// ExportProgressEventTypeMeshProcessed はメッシュ1件の処理完了イベントを表す。
	ExportProgressEventTypeMeshProcessed ExportProgressEventType = "mesh_processed"
	// ExportProgressEventTypeDocumentWritten は文書保存完了イベントを表す。
	ExportProgressEventTypeDocumentWritten ExportProgressEventType = "document_written"
)

// ExportProgressEvent は出力処理の進捗イベントを表す。
type ExportProgressEvent struct {
	Type       ExportProgressEventType
	MeshName   string
	MeshCount  int
	JointCount int
}

// IExportProgressReporter は出力処理の進捗通知契約を表す。
type IExportProgressReporter interface {
	// ReportExportProgress は出力処理進捗を通知する。
	ReportExportProgress(event ExportProgressEvent)
}

// ExportRequest はスキンメッシュ出力要求を表す。
type ExportRequest struct {
	InputPath  string
	OutputPath string
	// Scene は読込済みシーン。nil の場合は InputPath から読み込む。
	Scene   *model.Scene
	Context model.ExportContext
	// WeldOverrides はメッシュ名ごとの置換法線。
	WeldOverrides    map[string]WeldOverrides
	SaveOptions      SaveOptions
	ProgressReporter IExportProgressReporter
	// Now は文書の作成日時。ゼロ値の場合は現在時刻を使う。
	Now time.Time
	// Author は文書の作成者。空の場合はシーンの作者を使う。
	Author string
}

// ExportResult はスキンメッシュ出力結果を表す。
type ExportResult struct {
	RunID       string
	Success     bool
	ObjectCount int
	JointCount  int
	OutputPath  string
	Warnings    []model.Warning
	Payload     *model.ExportPayload
}

// BatchExportRequest は複数出力要求を表す。
type BatchExportRequest struct {
	Requests []ExportRequest
	// FailFast は構造エラー発生時に残りの出力を中止するか。
	FailFast bool
}

// BatchExportItem は複数出力のうち1件の結果を表す。
type BatchExportItem struct {
	Request ExportRequest
	Result  *ExportResult
	Err     error
	Skipped bool
}

// BatchExportResult は複数出力結果を表す。
type BatchExportResult struct {
	Items     []BatchExportItem
	Succeeded int
	Failed    int
	Skipped   int
}
