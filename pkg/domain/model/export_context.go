// 指示: miu200521358
package model

import "fmt"

// RotationConvention は出力時の軸変換規約を表す。
type RotationConvention string

const (
	// RotationConventionNone は軸変換を行わない。
	RotationConventionNone RotationConvention = "none"
	// RotationConventionYUpToZUp はY上向きからZ上向きへ変換する。
	RotationConventionYUpToZUp RotationConvention = "y_up_to_z_up"
	// RotationConventionZUpToYUp はZ上向きからY上向きへ変換する。
	RotationConventionZUpToYUp RotationConvention = "z_up_to_y_up"
)

const (
	// DefaultMaxWeightPerVertex は頂点あたり最大影響数の既定値。
	DefaultMaxWeightPerVertex = 4
	// DefaultPrecision は行列・座標の出力小数桁数の既定値。
	DefaultPrecision = 6
	// DefaultNormalPrecision は法線重複判定の小数桁数の既定値。
	DefaultNormalPrecision = 4
)

// ExportContext は1回の出力で不変の出力設定を表す。
type ExportContext struct {
	OnlyDeform              bool
	OnlyWeighted            bool
	EnforceFullHierarchy    bool
	AllowAttachmentWeights  bool
	MaxWeightPerVertex      int
	ApplyScaleCorrection    bool
	UseBindPose             bool
	RotationConvention      RotationConvention
	Precision               int
	NormalPrecision         int
	MaxBones                int
	MaxTrianglesPerMaterial int
	Workers                 int
}

// NewExportContext は既定値の出力設定を返す。
func NewExportContext() ExportContext {
	return ExportContext{
		OnlyDeform:         true,
		MaxWeightPerVertex: DefaultMaxWeightPerVertex,
		RotationConvention: RotationConventionNone,
		Precision:          DefaultPrecision,
		NormalPrecision:    DefaultNormalPrecision,
		Workers:            1,
	}
}

// Validate は出力設定の値域を検証する。
func (c ExportContext) Validate() error {
	if c.MaxWeightPerVertex <= 0 {
		return NewExportError(ErrorKindInvalidContext, "", "",
			fmt.Errorf("頂点あたり最大影響数が不正です: %d", c.MaxWeightPerVertex))
	}
	if c.Precision < 0 || c.Precision > 15 {
		return NewExportError(ErrorKindInvalidContext, "", "",
			fmt.Errorf("出力小数桁数が不正です: %d", c.Precision))
	}
	if c.NormalPrecision < 0 || c.NormalPrecision > 15 {
		return NewExportError(ErrorKindInvalidContext, "", "",
			fmt.Errorf("法線小数桁数が不正です: %d", c.NormalPrecision))
	}
	if c.MaxBones < 0 || c.MaxTrianglesPerMaterial < 0 {
		return NewExportError(ErrorKindInvalidContext, "", "",
			fmt.Errorf("上限値が不正です: bones=%d triangles=%d", c.MaxBones, c.MaxTrianglesPerMaterial))
	}
	if c.Workers < 0 {
		return NewExportError(ErrorKindInvalidContext, "", "",
			fmt.Errorf("並列数が不正です: %d", c.Workers))
	}
	switch c.RotationConvention {
	case "", RotationConventionNone, RotationConventionYUpToZUp, RotationConventionZUpToYUp:
	default:
		return NewExportError(ErrorKindInvalidContext, "", "",
			fmt.Errorf("軸変換規約が不正です: %s", c.RotationConvention))
	}
	return nil
}

// WorkerCount は並列数を返す。0以下は1とする。
func (c ExportContext) WorkerCount() int {
	if c.Workers <= 0 {
		return 1
	}
	return c.Workers
}

// ParseRotationConvention は文字列を軸変換規約へ変換する。
func ParseRotationConvention(value string) (RotationConvention, error) {
	switch RotationConvention(value) {
	case "", RotationConventionNone:
		return RotationConventionNone, nil
	case RotationConventionYUpToZUp, RotationConventionZUpToYUp:
		return RotationConvention(value), nil
	default:
		return RotationConventionNone, fmt.Errorf("軸変換規約が不正です: %s", value)
	}
}
