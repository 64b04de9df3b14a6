// 指示: miu200521358
package mmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// TransformEpsilon は姿勢比較で同一とみなす許容差。
	TransformEpsilon = 1e-6
	// scaleEpsilon はスケール成分を0とみなす閾値。
	scaleEpsilon = 1e-12
)

var (
	// ZERO_VEC3 は零ベクトル。
	ZERO_VEC3 = r3.Vec{}
	// ONE_VEC3 は全成分1のベクトル。
	ONE_VEC3 = r3.Vec{X: 1, Y: 1, Z: 1}
)

// Transform は平行移動・回転・拡縮で構成されるローカル変換を表す。
type Transform struct {
	Position r3.Vec
	Rotation mgl64.Quat
	Scale    r3.Vec
}

// NewTransform は単位変換を生成する。
func NewTransform() Transform {
	return Transform{
		Position: ZERO_VEC3,
		Rotation: mgl64.QuatIdent(),
		Scale:    ONE_VEC3,
	}
}

// NewTransformByPosition は平行移動のみの変換を生成する。
func NewTransformByPosition(x float64, y float64, z float64) Transform {
	t := NewTransform()
	t.Position = r3.Vec{X: x, Y: y, Z: z}
	return t
}

// Normalized は回転の正規化と未設定値の補完を行った変換を返す。
func (t Transform) Normalized() Transform {
	out := t
	if out.Rotation.W == 0 && out.Rotation.V.Len() == 0 {
		out.Rotation = mgl64.QuatIdent()
	} else {
		out.Rotation = out.Rotation.Normalize()
	}
	if out.Scale == ZERO_VEC3 {
		out.Scale = ONE_VEC3
	}
	return out
}

// Mat4 は T * R * S の順で合成した行列を返す。
func (t Transform) Mat4() mgl64.Mat4 {
	n := t.Normalized()
	translation := mgl64.Translate3D(n.Position.X, n.Position.Y, n.Position.Z)
	scale := mgl64.Scale3D(n.Scale.X, n.Scale.Y, n.Scale.Z)
	return translation.Mul4(n.Rotation.Mat4()).Mul4(scale)
}

// ScaledTranslation は平行移動成分のみを軸ごとに拡縮した変換を返す。
func (t Transform) ScaledTranslation(scale r3.Vec) Transform {
	out := t
	out.Position = r3.Vec{
		X: t.Position.X * scale.X,
		Y: t.Position.Y * scale.Y,
		Z: t.Position.Z * scale.Z,
	}
	return out
}

// ApproxEqual は2つの変換が許容差内で等しいか判定する。
func (t Transform) ApproxEqual(other Transform, epsilon float64) bool {
	a := t.Normalized()
	b := other.Normalized()
	if r3.Norm(r3.Sub(a.Position, b.Position)) > epsilon {
		return false
	}
	if r3.Norm(r3.Sub(a.Scale, b.Scale)) > epsilon {
		return false
	}
	// q と -q は同じ回転を表す。
	dot := math.Abs(a.Rotation.Dot(b.Rotation))
	return 1-dot <= epsilon
}

// IsIdentity は単位変換か判定する。
func (t Transform) IsIdentity(epsilon float64) bool {
	return t.ApproxEqual(NewTransform(), epsilon)
}

// DecomposeMat4 はアフィン行列を平行移動・回転・拡縮へ分解する。
// 負のスケールや剪断は回転へ吸収される。
func DecomposeMat4(m mgl64.Mat4) Transform {
	position := r3.Vec{X: m.At(0, 3), Y: m.At(1, 3), Z: m.At(2, 3)}
	scale := ExtractScale(m)
	rotation := RemoveScale(m)
	rotation.SetCol(3, mgl64.Vec4{0, 0, 0, 1})
	return Transform{
		Position: position,
		Rotation: mgl64.Mat4ToQuat(rotation).Normalize(),
		Scale:    scale,
	}
}

// ExtractScale は行列の基底ベクトル長を軸ごとのスケールとして返す。
func ExtractScale(m mgl64.Mat4) r3.Vec {
	return r3.Vec{
		X: m.Col(0).Vec3().Len(),
		Y: m.Col(1).Vec3().Len(),
		Z: m.Col(2).Vec3().Len(),
	}
}

// RemoveScale は行列の基底ベクトルを正規化し、スケールを取り除く。
func RemoveScale(m mgl64.Mat4) mgl64.Mat4 {
	out := m
	for col := 0; col < 3; col++ {
		axis := m.Col(col).Vec3()
		length := axis.Len()
		if length <= scaleEpsilon {
			continue
		}
		axis = axis.Mul(1 / length)
		out.SetCol(col, mgl64.Vec4{axis[0], axis[1], axis[2], 0})
	}
	return out
}

// ScaleTranslation は行列の平行移動成分だけを係数倍する。
func ScaleTranslation(m mgl64.Mat4, factor float64) mgl64.Mat4 {
	out := m
	out.Set(0, 3, m.At(0, 3)*factor)
	out.Set(1, 3, m.At(1, 3)*factor)
	out.Set(2, 3, m.At(2, 3)*factor)
	return out
}

// OrIdentity は未設定(全要素0)の行列を単位行列へ置き換える。
func OrIdentity(m mgl64.Mat4) mgl64.Mat4 {
	if m == (mgl64.Mat4{}) {
		return mgl64.Ident4()
	}
	return m
}

// IsSingular は逆行列を持たない行列か判定する。
func IsSingular(m mgl64.Mat4) bool {
	return math.Abs(m.Det()) <= scaleEpsilon
}

// TransformPoint は点を行列で変換する。
func TransformPoint(m mgl64.Mat4, v r3.Vec) r3.Vec {
	out := m.Mul4x1(mgl64.Vec4{v.X, v.Y, v.Z, 1})
	return r3.Vec{X: out[0], Y: out[1], Z: out[2]}
}

// TransformDirection は方向ベクトルを行列の回転成分のみで変換する。
func TransformDirection(m mgl64.Mat4, v r3.Vec) r3.Vec {
	out := m.Mul4x1(mgl64.Vec4{v.X, v.Y, v.Z, 0})
	return r3.Vec{X: out[0], Y: out[1], Z: out[2]}
}

// MatFromRowMajor は行優先の16要素配列から行列を生成する。
func MatFromRowMajor(values []float64) (mgl64.Mat4, bool) {
	if len(values) != 16 {
		return mgl64.Ident4(), false
	}
	m := mgl64.Mat4{}
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			m.Set(row, col, values[row*4+col])
		}
	}
	return m, true
}

// MatToRowMajor は行列を行優先の16要素配列へ変換する。
func MatToRowMajor(m mgl64.Mat4) []float64 {
	values := make([]float64, 16)
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			values[row*4+col] = m.At(row, col)
		}
	}
	return values
}
