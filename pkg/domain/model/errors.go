// 指示: miu200521358
package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind は出力を中断する構造エラーの種別を表す。
type ErrorKind string

const (
	// ErrorKindBoneCycle はボーン親子関係の循環または欠落。
	ErrorKindBoneCycle ErrorKind = "bone_cycle"
	// ErrorKindJointIndexOutOfRange はジョイント集合外のindex参照。
	ErrorKindJointIndexOutOfRange ErrorKind = "joint_index_out_of_range"
	// ErrorKindInvalidPolygon は不正な面。
	ErrorKindInvalidPolygon ErrorKind = "invalid_polygon"
	// ErrorKindSingularMatrix は逆行列を持たない行列。
	ErrorKindSingularMatrix ErrorKind = "singular_matrix"
	// ErrorKindUnwritableOutput は出力先へ書き込めない。
	ErrorKindUnwritableOutput ErrorKind = "unwritable_output"
	// ErrorKindInvalidContext は不正な出力設定。
	ErrorKindInvalidContext ErrorKind = "invalid_context"
	// ErrorKindCancelled は中断。
	ErrorKindCancelled ErrorKind = "cancelled"
)

// ExportError は出力を中断する構造エラーを表す。
type ExportError struct {
	Kind   ErrorKind
	Object string
	Bone   string
	Err    error
}

// NewExportError は構造エラーを生成する。
func NewExportError(kind ErrorKind, object string, bone string, err error) *ExportError {
	return &ExportError{Kind: kind, Object: object, Bone: bone, Err: err}
}

// Error はエラーメッセージを返す。
func (e *ExportError) Error() string {
	if e == nil {
		return ""
	}
	parts := []string{string(e.Kind)}
	if e.Object != "" {
		parts = append(parts, fmt.Sprintf("object=%s", e.Object))
	}
	if e.Bone != "" {
		parts = append(parts, fmt.Sprintf("bone=%s", e.Bone))
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	return strings.Join(parts, ": ")
}

// Unwrap は元エラーを返す。
func (e *ExportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// WithObject はオブジェクト名未設定の場合に補完した複製を返す。
func (e *ExportError) WithObject(object string) *ExportError {
	if e == nil {
		return nil
	}
	out := *e
	if out.Object == "" {
		out.Object = object
	}
	return &out
}

// ErrorKindOf はエラー連鎖から構造エラー種別を返す。
func ErrorKindOf(err error) (ErrorKind, bool) {
	var exportErr *ExportError
	if errors.As(err, &exportErr) && exportErr != nil {
		return exportErr.Kind, true
	}
	return "", false
}
