// 指示: miu200521358
package mmath

import (
	"math"
	"strconv"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/spatial/r3"
)

// RoundFloat は指定桁数で四捨五入する。-0 は 0 に揃える。
func RoundFloat(value float64, digits int) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	if digits < 0 {
		return value + 0
	}
	pow := math.Pow(10, float64(digits))
	rounded := math.Round(value*pow) / pow
	if rounded == 0 {
		return 0
	}
	return rounded
}

// RoundMat4 は行列の全要素を指定桁数で四捨五入する。
func RoundMat4(m mgl64.Mat4, digits int) mgl64.Mat4 {
	out := mgl64.Mat4{}
	for i := range m {
		out[i] = RoundFloat(m[i], digits)
	}
	return out
}

// RoundVec3 はベクトルの全成分を指定桁数で四捨五入する。
func RoundVec3(v r3.Vec, digits int) r3.Vec {
	return r3.Vec{
		X: RoundFloat(v.X, digits),
		Y: RoundFloat(v.Y, digits),
		Z: RoundFloat(v.Z, digits),
	}
}

// FormatFloat は四捨五入済みの値を最短表現の文字列へ変換する。
func FormatFloat(value float64, digits int) string {
	return strconv.FormatFloat(RoundFloat(value, digits), 'f', -1, 64)
}
