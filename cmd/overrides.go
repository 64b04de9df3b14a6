// 指示: miu200521358
package main

import (
	"fmt"
	"strconv"

	"github.com/miu200521358/mu_skin2dae/pkg/infra/config"
)

// applyOverrides は明示指定されたフラグ値で設定を上書きする。
func applyOverrides(cfg *config.ExportConfig, overrides map[string]string) error {
	for name, value := range overrides {
		if err := applyOverride(cfg, name, value); err != nil {
			return fmt.Errorf("フラグ -%s の値が不正です: %w", name, err)
		}
	}
	return nil
}

// applyOverride はフラグ1件を設定へ反映する。
func applyOverride(cfg *config.ExportConfig, name string, value string) error {
	var err error
	switch name {
	case "author":
		cfg.Author = value
	case "log-level":
		cfg.LogLevel = value
	case "history":
		cfg.HistoryPath = value
	case "textures":
		cfg.TextureDir = value
	case "verify":
		cfg.Verify, err = strconv.ParseBool(value)
	case "workers":
		cfg.Export.Workers, err = strconv.Atoi(value)
	case "only-deform":
		cfg.Export.OnlyDeform, err = strconv.ParseBool(value)
	case "only-weighted":
		cfg.Export.OnlyWeighted, err = strconv.ParseBool(value)
	case "full-hierarchy":
		cfg.Export.EnforceFullHierarchy, err = strconv.ParseBool(value)
	case "attachment-weights":
		cfg.Export.AllowAttachmentWeights, err = strconv.ParseBool(value)
	case "max-weights":
		cfg.Export.MaxWeightPerVertex, err = strconv.Atoi(value)
	case "scale-correction":
		cfg.Export.ApplyScaleCorrection, err = strconv.ParseBool(value)
	case "bind-pose":
		cfg.Export.UseBindPose, err = strconv.ParseBool(value)
	case "axis":
		cfg.Export.RotationConvention = value
	case "precision":
		cfg.Export.Precision, err = strconv.Atoi(value)
	case "normal-precision":
		cfg.Export.NormalPrecision, err = strconv.Atoi(value)
	case "max-bones":
		cfg.Export.MaxBones, err = strconv.Atoi(value)
	case "max-triangles":
		cfg.Export.MaxTrianglesPerMaterial, err = strconv.Atoi(value)
	default:
		return fmt.Errorf("未対応のフラグです")
	}
	return err
}
