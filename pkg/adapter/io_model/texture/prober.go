// 指示: miu200521358
package texture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ftrvxmtrx/tga"
	"github.com/miu200521358/mu_skin2dae/pkg/shared/logging"
	"github.com/miu200521358/mu_skin2dae/pkg/usecase/port/moutput"
	"golang.org/x/image/bmp"
	"golang.org/x/image/webp"
)

// TextureProber はテクスチャファイルの存在とデコード可否を確認する。
// 画像は読み取るだけで出力へは埋め込まない。
type TextureProber struct{}

// NewTextureProber はTextureProberを生成する。
func NewTextureProber() *TextureProber {
	return &TextureProber{}
}

// Probe はテクスチャファイルの状態を返す。
func (p *TextureProber) Probe(path string) (moutput.TextureStatus, error) {
	sourceBytes, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return moutput.TextureStatusMissing, nil
		}
		return moutput.TextureStatusUnreadable, fmt.Errorf("テクスチャの読み取りに失敗しました: path=%s: %w", path, err)
	}
	format, err := decodeTextureBytes(sourceBytes, filepath.Ext(path))
	if err != nil {
		logTextureDebug("テクスチャデコード失敗: file=%s err=%v", filepath.Base(path), err)
		return moutput.TextureStatusUnreadable, nil
	}
	logTextureDebug("テクスチャ確認: file=%s format=%s", filepath.Base(path), format)
	return moutput.TextureStatusOK, nil
}

// decodeTextureBytes は拡張子優先でデコードし、失敗時は実データの形式で再試行する。
func decodeTextureBytes(sourceBytes []byte, extension string) (string, error) {
	extension = strings.ToLower(strings.TrimSpace(extension))
	decodeErr := decodeTextureBytesByExtension(sourceBytes, extension)
	if decodeErr == nil {
		return normalizeImageFormat(extension), nil
	}
	detectedExtension := detectTextureDataExtension(sourceBytes)
	if detectedExtension == "" || detectedExtension == extension {
		return normalizeImageFormat(extension), decodeErr
	}
	if fallbackErr := decodeTextureBytesByExtension(sourceBytes, detectedExtension); fallbackErr != nil {
		return normalizeImageFormat(extension), fmt.Errorf(
			"拡張子=%s と実データ=%s の両方でデコードに失敗しました: extErr=%w fallbackErr=%v",
			extension,
			detectedExtension,
			decodeErr,
			fallbackErr,
		)
	}
	return normalizeImageFormat(detectedExtension), nil
}

// decodeTextureBytesByExtension は拡張子指定で画像バイト列をデコードする。
func decodeTextureBytesByExtension(sourceBytes []byte, extension string) error {
	reader := bytes.NewReader(sourceBytes)
	var err error
	switch extension {
	case ".png":
		_, err = png.Decode(reader)
	case ".jpg", ".jpeg":
		_, err = jpeg.Decode(reader)
	case ".gif":
		_, err = gif.Decode(reader)
	case ".bmp":
		_, err = bmp.Decode(reader)
	case ".webp":
		_, err = webp.Decode(reader)
	case ".tga":
		var img image.Image
		img, err = tga.Decode(reader)
		if err == nil && img.Bounds().Empty() {
			err = fmt.Errorf("画像サイズが0です")
		}
	default:
		err = fmt.Errorf("未対応画像拡張子です: %s", extension)
	}
	return err
}

// detectTextureDataExtension は画像バイト列のシグネチャから拡張子を推定する。
func detectTextureDataExtension(sourceBytes []byte) string {
	switch {
	case bytes.HasPrefix(sourceBytes, []byte("\x89PNG\r\n\x1a\n")):
		return ".png"
	case bytes.HasPrefix(sourceBytes, []byte{0xFF, 0xD8, 0xFF}):
		return ".jpg"
	case bytes.HasPrefix(sourceBytes, []byte("GIF87a")), bytes.HasPrefix(sourceBytes, []byte("GIF89a")):
		return ".gif"
	case bytes.HasPrefix(sourceBytes, []byte("BM")):
		return ".bmp"
	case len(sourceBytes) >= 12 && string(sourceBytes[0:4]) == "RIFF" && string(sourceBytes[8:12]) == "WEBP":
		return ".webp"
	default:
		return ""
	}
}

// normalizeImageFormat は拡張子文字列をログ出力用のフォーマット名へ変換する。
func normalizeImageFormat(extension string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(extension)), ".")
}

// logTextureDebug はテクスチャ確認のデバッグログを出力する。
func logTextureDebug(format string, params ...any) {
	logger := logging.DefaultLogger()
	if logger == nil {
		return
	}
	logger.Debug(format, params...)
}
