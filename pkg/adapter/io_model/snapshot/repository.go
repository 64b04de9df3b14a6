// 指示: miu200521358
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/miu200521358/mu_skin2dae/pkg/domain/model"
	"github.com/miu200521358/mu_skin2dae/pkg/shared/logging"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	// JsonExtension はJSONスナップショットの拡張子。
	JsonExtension = ".json"
	// MsgpackExtension はMessagePackスナップショットの拡張子。
	MsgpackExtension = ".msgpack"

	snapshotFileMode = 0o644
)

// SnapshotRepository はシーンスナップショットの読み書き契約を表す。
type SnapshotRepository struct{}

// NewSnapshotRepository はSnapshotRepositoryを生成する。
func NewSnapshotRepository() *SnapshotRepository {
	return &SnapshotRepository{}
}

// CanLoad は拡張子に応じて読み込み可否を判定する。
func (r *SnapshotRepository) CanLoad(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case JsonExtension, MsgpackExtension:
		return true
	default:
		return false
	}
}

// InferName はパスから表示名を推定する。
func (r *SnapshotRepository) InferName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Load はスナップショットを読み込んでシーンを返す。
func (r *SnapshotRepository) Load(path string) (*model.Scene, error) {
	if !r.CanLoad(path) {
		return nil, fmt.Errorf("スナップショットの拡張子が不正です: %s", path)
	}
	logSnapshotInfo("スナップショット読込開始: file=%s", filepath.Base(path))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("スナップショットの読み取りに失敗しました: path=%s: %w", path, err)
	}
	doc := &sceneDocument{}
	if err := unmarshal(filepath.Ext(path), data, doc); err != nil {
		return nil, fmt.Errorf("スナップショットの解析に失敗しました: path=%s: %w", path, err)
	}
	scene, err := toScene(doc, r.InferName(path))
	if err != nil {
		return nil, fmt.Errorf("スナップショットの変換に失敗しました: path=%s: %w", path, err)
	}
	logSnapshotDebug("スナップショット読込完了: bones=%d meshes=%d materials=%d",
		scene.Skeleton.Len()-1, len(scene.Meshes), len(scene.Materials))
	return scene, nil
}

// Save はシーンをスナップショットとして保存する。形式は拡張子で決める。
func (r *SnapshotRepository) Save(path string, scene *model.Scene) error {
	if !r.CanLoad(path) {
		return fmt.Errorf("スナップショットの拡張子が不正です: %s", path)
	}
	doc, err := fromScene(scene)
	if err != nil {
		return err
	}
	data, err := marshal(filepath.Ext(path), doc)
	if err != nil {
		return fmt.Errorf("スナップショットの変換に失敗しました: %w", err)
	}
	if err := os.WriteFile(path, data, snapshotFileMode); err != nil {
		return fmt.Errorf("スナップショットの書き込みに失敗しました: path=%s: %w", path, err)
	}
	logSnapshotInfo("スナップショット保存完了: file=%s bytes=%d", filepath.Base(path), len(data))
	return nil
}

func unmarshal(ext string, data []byte, doc *sceneDocument) error {
	if strings.EqualFold(ext, MsgpackExtension) {
		return msgpack.Unmarshal(data, doc)
	}
	return json.Unmarshal(data, doc)
}

func marshal(ext string, doc *sceneDocument) ([]byte, error) {
	if strings.EqualFold(ext, MsgpackExtension) {
		return msgpack.Marshal(doc)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// logSnapshotInfo はスナップショット入出力の情報ログを出力する。
func logSnapshotInfo(format string, params ...any) {
	logger := logging.DefaultLogger()
	if logger == nil {
		return
	}
	logger.Info(format, params...)
}

// logSnapshotDebug はスナップショット入出力のデバッグログを出力する。
func logSnapshotDebug(format string, params ...any) {
	logger := logging.DefaultLogger()
	if logger == nil {
		return
	}
	logger.Debug(format, params...)
}
