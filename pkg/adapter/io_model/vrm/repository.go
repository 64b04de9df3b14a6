// 指示: miu200521358
package vrm

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/miu200521358/mu_skin2dae/pkg/domain/model"
	"github.com/miu200521358/mu_skin2dae/pkg/shared/logging"
)

// LoadProgressEventType はVRM読込進捗イベント種別を表す。
type LoadProgressEventType string

const (
	// LoadProgressEventTypeFileReadComplete はファイル読込完了イベントを表す。
	LoadProgressEventTypeFileReadComplete LoadProgressEventType = "file_read_complete"
	// LoadProgressEventTypeJsonParsed はJSON解析完了イベントを表す。
	LoadProgressEventTypeJsonParsed LoadProgressEventType = "json_parsed"
	// LoadProgressEventTypePrimitiveProcessed はプリミティブ変換進行イベントを表す。
	LoadProgressEventTypePrimitiveProcessed LoadProgressEventType = "primitive_processed"
	// LoadProgressEventTypeCompleted はVRM読込完了イベントを表す。
	LoadProgressEventTypeCompleted LoadProgressEventType = "completed"
)

// LoadProgressEvent はVRM読込進捗イベントを表す。
type LoadProgressEvent struct {
	Type           LoadProgressEventType
	FileSizeBytes  int
	NodeCount      int
	AccessorCount  int
	PrimitiveTotal int
	PrimitiveDone  int
}

// VrmRepository はVRM/GLB入力をシーンとして読み込む。
type VrmRepository struct {
	loadProgressReporter func(LoadProgressEvent)
	textureDir           string
}

// NewVrmRepository はVrmRepositoryを生成する。
func NewVrmRepository() *VrmRepository {
	return &VrmRepository{}
}

// SetLoadProgressReporter はVRM読込進捗受信コールバックを設定する。
func (r *VrmRepository) SetLoadProgressReporter(reporter func(LoadProgressEvent)) {
	if r == nil {
		return
	}
	r.loadProgressReporter = reporter
}

// SetTextureDir は埋め込みテクスチャの抽出先を設定する。空の場合は抽出しない。
func (r *VrmRepository) SetTextureDir(dir string) {
	if r == nil {
		return
	}
	r.textureDir = dir
}

// CanLoad は拡張子に応じて読み込み可否を判定する。
func (r *VrmRepository) CanLoad(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".vrm" || ext == ".glb"
}

// InferName はパスから表示名を推定する。
func (r *VrmRepository) InferName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Load はVRM/GLBを読み込んでシーンを返す。
func (r *VrmRepository) Load(path string) (*model.Scene, error) {
	if !r.CanLoad(path) {
		return nil, fmt.Errorf("VRMの拡張子が不正です: %s", path)
	}
	logVrmInfo("VRM読込開始: file=%s", filepath.Base(path))

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("VRMファイルの読み取りに失敗しました: path=%s: %w", path, err)
	}
	r.reportLoadProgress(LoadProgressEvent{
		Type:          LoadProgressEventTypeFileReadComplete,
		FileSizeBytes: len(b),
	})

	jsonChunk, binChunk, err := parseGLBChunks(b)
	if err != nil {
		return nil, fmt.Errorf("VRM GLBチャンクの解析に失敗しました: %w", err)
	}
	doc := &gltfDocument{}
	if err := json.Unmarshal(jsonChunk, doc); err != nil {
		return nil, fmt.Errorf("VRM JSONチャンクの解析に失敗しました: %w", err)
	}
	primitiveTotal := countGltfPrimitives(doc.Meshes)
	r.reportLoadProgress(LoadProgressEvent{
		Type:           LoadProgressEventTypeJsonParsed,
		FileSizeBytes:  len(b),
		NodeCount:      len(doc.Nodes),
		AccessorCount:  len(doc.Accessors),
		PrimitiveTotal: primitiveTotal,
	})
	logVrmDebug("VRM読込ステップ: JSON解析完了 nodes=%d meshes=%d primitives=%d accessors=%d",
		len(doc.Nodes), len(doc.Meshes), primitiveTotal, len(doc.Accessors))

	if strings.EqualFold(filepath.Ext(path), ".vrm") && detectVrmVersion(doc) == "" {
		return nil, fmt.Errorf("VRM拡張が見つかりません: %s", path)
	}
	title, author, err := resolveMeta(doc)
	if err != nil {
		return nil, err
	}

	name := r.InferName(path)
	imagePaths, err := resolveImagePaths(doc, binChunk, r.textureDir, name)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(title) != "" {
		name = strings.TrimSpace(title)
	}
	scene := model.NewScene(name)
	scene.SourceName = filepath.Base(path)
	scene.Author = author
	scene.UpAxis = model.UpAxisY

	builder, err := newSceneBuilder(doc, binChunk, imagePaths)
	if err != nil {
		return nil, fmt.Errorf("VRMノード構造の解析に失敗しました: %w", err)
	}
	builder.progress = func(done int, total int) {
		r.reportLoadProgress(LoadProgressEvent{
			Type:           LoadProgressEventTypePrimitiveProcessed,
			FileSizeBytes:  len(b),
			PrimitiveTotal: total,
			PrimitiveDone:  done,
		})
	}
	if err := builder.build(scene); err != nil {
		return nil, fmt.Errorf("VRMシーンの構築に失敗しました: %w", err)
	}

	r.reportLoadProgress(LoadProgressEvent{
		Type:           LoadProgressEventTypeCompleted,
		FileSizeBytes:  len(b),
		NodeCount:      len(doc.Nodes),
		AccessorCount:  len(doc.Accessors),
		PrimitiveTotal: primitiveTotal,
		PrimitiveDone:  primitiveTotal,
	})
	logVrmInfo("VRM読込完了: bones=%d meshes=%d materials=%d",
		scene.Skeleton.Len()-1, len(scene.Meshes), len(scene.Materials))
	return scene, nil
}

// reportLoadProgress は読込進捗をコールバックへ通知する。
func (r *VrmRepository) reportLoadProgress(event LoadProgressEvent) {
	if r == nil || r.loadProgressReporter == nil {
		return
	}
	r.loadProgressReporter(event)
}

// logVrmInfo はVRM読込の情報ログを出力する。
func logVrmInfo(format string, params ...any) {
	logger := logging.DefaultLogger()
	if logger == nil {
		return
	}
	logger.Info(format, params...)
}

// logVrmDebug はVRM読込のデバッグログを出力する。
func logVrmDebug(format string, params ...any) {
	logger := logging.DefaultLogger()
	if logger == nil {
		return
	}
	logger.Debug(format, params...)
}

// logVrmWarn はVRM読込の警告ログを出力する。
func logVrmWarn(format string, params ...any) {
	logger := logging.DefaultLogger()
	if logger == nil {
		return
	}
	logger.Warn(format, params...)
}
