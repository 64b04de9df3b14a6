// 指示: miu200521358
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/miu200521358/mu_skin2dae/pkg/domain/model"
	"github.com/miu200521358/mu_skin2dae/pkg/shared/logging"
	"gopkg.in/yaml.v3"
)

const (
	configDirMode  = 0o755
	configFileMode = 0o644
)

// ExportSection は出力設定のYAML表現を表す。
type ExportSection struct {
	OnlyDeform              bool   `yaml:"only_deform"`
	OnlyWeighted            bool   `yaml:"only_weighted"`
	EnforceFullHierarchy    bool   `yaml:"enforce_full_hierarchy"`
	AllowAttachmentWeights  bool   `yaml:"allow_attachment_weights"`
	MaxWeightPerVertex      int    `yaml:"max_weight_per_vertex"`
	ApplyScaleCorrection    bool   `yaml:"apply_scale_correction"`
	UseBindPose             bool   `yaml:"use_bind_pose"`
	RotationConvention      string `yaml:"rotation_convention"`
	Precision               int    `yaml:"precision"`
	NormalPrecision         int    `yaml:"normal_precision"`
	MaxBones                int    `yaml:"max_bones,omitempty"`
	MaxTrianglesPerMaterial int    `yaml:"max_triangles_per_material,omitempty"`
	Workers                 int    `yaml:"workers"`
}

// ExportConfig は出力プロファイルを表す。
type ExportConfig struct {
	Export      ExportSection `yaml:"export"`
	Author      string        `yaml:"author,omitempty"`
	LogLevel    string        `yaml:"log_level,omitempty"`
	Verify      bool          `yaml:"verify,omitempty"`
	HistoryPath string        `yaml:"history_path,omitempty"`
	TextureDir  string        `yaml:"texture_dir,omitempty"`
}

// DefaultExportConfig は既定値の出力プロファイルを返す。
func DefaultExportConfig() ExportConfig {
	ctx := model.NewExportContext()
	return ExportConfig{
		Export: ExportSection{
			OnlyDeform:              ctx.OnlyDeform,
			OnlyWeighted:            ctx.OnlyWeighted,
			EnforceFullHierarchy:    ctx.EnforceFullHierarchy,
			AllowAttachmentWeights:  ctx.AllowAttachmentWeights,
			MaxWeightPerVertex:      ctx.MaxWeightPerVertex,
			ApplyScaleCorrection:    ctx.ApplyScaleCorrection,
			UseBindPose:             ctx.UseBindPose,
			RotationConvention:      string(ctx.RotationConvention),
			Precision:               ctx.Precision,
			NormalPrecision:         ctx.NormalPrecision,
			MaxBones:                ctx.MaxBones,
			MaxTrianglesPerMaterial: ctx.MaxTrianglesPerMaterial,
			Workers:                 ctx.Workers,
		},
		LogLevel: "info",
	}
}

// LoadExportConfig はYAMLの出力プロファイルを読み込む。
// パスが空またはファイルが無い場合は既定値を返す。未指定の項目は既定値のまま。
func LoadExportConfig(path string) (ExportConfig, error) {
	cfg := DefaultExportConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logConfigDebug("設定ファイルが無いため既定値を使います: path=%s", path)
			return cfg, nil
		}
		return cfg, fmt.Errorf("設定ファイルの読み取りに失敗しました: path=%s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("設定ファイルの解析に失敗しました: path=%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("設定ファイルの値が不正です: path=%s: %w", path, err)
	}
	return cfg, nil
}

// SaveExportConfig は出力プロファイルをYAMLで保存する。
func SaveExportConfig(path string, cfg ExportConfig) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("設定ファイルのパスが未指定です")
	}
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("設定の変換に失敗しました: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, configDirMode); err != nil {
			return fmt.Errorf("設定フォルダの作成に失敗しました: %w", err)
		}
	}
	if err := os.WriteFile(path, data, configFileMode); err != nil {
		return fmt.Errorf("設定ファイルの書き込みに失敗しました: path=%s: %w", path, err)
	}
	return nil
}

// Validate はプロファイルの値域を検証する。
func (c ExportConfig) Validate() error {
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	ctx, err := c.ExportContext()
	if err != nil {
		return err
	}
	return ctx.Validate()
}

// ExportContext はプロファイルから出力設定を生成する。
func (c ExportConfig) ExportContext() (model.ExportContext, error) {
	convention, err := model.ParseRotationConvention(c.Export.RotationConvention)
	if err != nil {
		return model.ExportContext{}, err
	}
	return model.ExportContext{
		OnlyDeform:              c.Export.OnlyDeform,
		OnlyWeighted:            c.Export.OnlyWeighted,
		EnforceFullHierarchy:    c.Export.EnforceFullHierarchy,
		AllowAttachmentWeights:  c.Export.AllowAttachmentWeights,
		MaxWeightPerVertex:      c.Export.MaxWeightPerVertex,
		ApplyScaleCorrection:    c.Export.ApplyScaleCorrection,
		UseBindPose:             c.Export.UseBindPose,
		RotationConvention:      convention,
		Precision:               c.Export.Precision,
		NormalPrecision:         c.Export.NormalPrecision,
		MaxBones:                c.Export.MaxBones,
		MaxTrianglesPerMaterial: c.Export.MaxTrianglesPerMaterial,
		Workers:                 c.Export.Workers,
	}, nil
}

// logConfigDebug は設定処理のデバッグログを出力する。
func logConfigDebug(format string, params ...any) {
	logger := logging.DefaultLogger()
	if logger == nil {
		return
	}
	logger.Debug(format, params...)
}
