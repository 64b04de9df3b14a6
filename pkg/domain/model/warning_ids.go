// 指示: miu200521358
package model

// WarningKind は出力時警告の種別IDを表す。
type WarningKind string

const (
	// WarningWeightsTruncated は頂点ウェイト切り捨て警告。
	WarningWeightsTruncated WarningKind = "WarningWeightsTruncated"
	// WarningZeroWeightVertex は有効ウェイトを持たない頂点の警告。
	WarningZeroWeightVertex WarningKind = "WarningZeroWeightVertex"
	// WarningIgnoredBoneGroup は出力対象外ボーンを参照するウェイトの警告。
	WarningIgnoredBoneGroup WarningKind = "WarningIgnoredBoneGroup"
	// WarningUndeformableBoneGroup は変形しないボーンを参照するウェイトの警告。
	WarningUndeformableBoneGroup WarningKind = "WarningUndeformableBoneGroup"
	// WarningMissingBone はスケルトンに存在しないボーン名の警告。
	WarningMissingBone WarningKind = "WarningMissingBone"
	// WarningMissingPoseBone はポーズ情報のないボーンの警告。
	WarningMissingPoseBone WarningKind = "WarningMissingPoseBone"
	// WarningBoneCountOverLimit はボーン数上限超過警告。
	WarningBoneCountOverLimit WarningKind = "WarningBoneCountOverLimit"
	// WarningTriangleCountOverLimit は材質あたり三角形数上限超過警告。
	WarningTriangleCountOverLimit WarningKind = "WarningTriangleCountOverLimit"
	// WarningTextureMissing はテクスチャファイル不在警告。
	WarningTextureMissing WarningKind = "WarningTextureMissing"
	// WarningTextureUnreadable はテクスチャ読込不可警告。
	WarningTextureUnreadable WarningKind = "WarningTextureUnreadable"
	// WarningMissingMaterial は材質未定義警告。
	WarningMissingMaterial WarningKind = "WarningMissingMaterial"
)

// Warning は出力時に蓄積される警告を表す。
type Warning struct {
	Kind   WarningKind
	Object string
	Count  int
	Detail string
}

// Warnings は警告を発生順に保持する。
type Warnings struct {
	values []Warning
}

// NewWarnings は空の警告集合を生成する。
func NewWarnings() *Warnings {
	return &Warnings{values: []Warning{}}
}

// Add は警告を追加する。
func (w *Warnings) Add(kind WarningKind, object string, count int, detail string) {
	if w == nil {
		return
	}
	w.values = append(w.values, Warning{Kind: kind, Object: object, Count: count, Detail: detail})
}

// Merge は別の警告集合を末尾へ追加する。
func (w *Warnings) Merge(other *Warnings) {
	if w == nil || other == nil {
		return
	}
	w.values = append(w.values, other.values...)
}

// Values は警告の複製を返す。
func (w *Warnings) Values() []Warning {
	if w == nil {
		return []Warning{}
	}
	out := make([]Warning, len(w.values))
	copy(out, w.values)
	return out
}

// Len は警告数を返す。
func (w *Warnings) Len() int {
	if w == nil {
		return 0
	}
	return len(w.values)
}

// CountOf は指定種別の警告数を返す。
func (w *Warnings) CountOf(kind WarningKind) int {
	if w == nil {
		return 0
	}
	count := 0
	for _, value := range w.values {
		if value.Kind == kind {
			count++
		}
	}
	return count
}

// Find は指定種別かつ詳細が一致する最初の警告を返す。詳細が空の場合は種別のみで判定する。
func (w *Warnings) Find(kind WarningKind, detail string) (Warning, bool) {
	if w == nil {
		return Warning{}, false
	}
	for _, value := range w.values {
		if value.Kind != kind {
			continue
		}
		if detail != "" && value.Detail != detail {
			continue
		}
		return value, true
	}
	return Warning{}, false
}
