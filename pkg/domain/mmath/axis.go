// 指示: miu200521358
package mmath

import "github.com/go-gl/mathgl/mgl64"

// AxisRemapYUpToZUp はY-up座標をZ-up座標へ移す90度回転行列を返す。
// (x, y, z) -> (x, -z, y)
func AxisRemapYUpToZUp() mgl64.Mat4 {
	return mgl64.Mat4{
		1, 0, 0, 0,
		0, 0, 1, 0,
		0, -1, 0, 0,
		0, 0, 0, 1,
	}
}

// AxisRemapZUpToYUp はZ-up座標をY-up座標へ移す90度回転行列を返す。
// (x, y, z) -> (x, z, -y)
func AxisRemapZUpToYUp() mgl64.Mat4 {
	return mgl64.Mat4{
		1, 0, 0, 0,
		0, 0, -1, 0,
		0, 1, 0, 0,
		0, 0, 0, 1,
	}
}
