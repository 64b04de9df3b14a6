// 指示: miu200521358
package vrm

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	extractDirMode  = 0o755
	extractFileMode = 0o644
)

// resolveImagePaths はimage要素ごとの材質テクスチャパスを返す。
// 外部URIはそのまま返し、埋め込み画像は textureDir 指定時のみ抽出して保存先を返す。
func resolveImagePaths(doc *gltfDocument, binChunk []byte, textureDir string, baseName string) ([]string, error) {
	if doc == nil || len(doc.Images) == 0 {
		return []string{}, nil
	}
	paths := make([]string, len(doc.Images))
	used := map[string]int{}
	dirReady := false
	for imageIndex, image := range doc.Images {
		uri := strings.TrimSpace(image.URI)
		if uri != "" && !strings.HasPrefix(uri, "data:") {
			paths[imageIndex] = uri
			continue
		}
		if textureDir == "" {
			logVrmDebug("埋め込みテクスチャを抽出しません: image=%d", imageIndex)
			continue
		}
		imageBytes, ext, ok := resolveEmbeddedImageData(image, doc.BufferViews, binChunk)
		if !ok || len(imageBytes) == 0 {
			logVrmDebug("埋め込みテクスチャを解決できません: image=%d", imageIndex)
			continue
		}
		if ext == "" {
			ext = detectImageExt(imageBytes)
		}
		if !dirReady {
			if err := os.MkdirAll(textureDir, extractDirMode); err != nil {
				return nil, fmt.Errorf("テクスチャ出力フォルダの作成に失敗しました: %w", err)
			}
			dirReady = true
		}
		fileName := buildUniqueTextureFileName(chooseTextureBaseName(image, imageIndex, baseName), ext, used)
		savePath := filepath.Join(textureDir, fileName)
		if err := os.WriteFile(savePath, imageBytes, extractFileMode); err != nil {
			return nil, fmt.Errorf("テクスチャ抽出ファイルの保存に失敗しました: %w", err)
		}
		paths[imageIndex] = savePath
	}
	return paths, nil
}

// resolveEmbeddedImageData はdata URIまたはbufferViewから画像バイト列を解決する。
func resolveEmbeddedImageData(image gltfImage, bufferViews []gltfBufferView, binChunk []byte) ([]byte, string, bool) {
	if uri := strings.TrimSpace(image.URI); strings.HasPrefix(uri, "data:") {
		data, ext, err := decodeDataURI(uri)
		if err != nil {
			return nil, "", false
		}
		if ext == "" {
			ext = extByMimeType(image.MimeType)
		}
		return data, ext, true
	}

	if image.BufferView == nil {
		return nil, "", false
	}
	viewIndex := *image.BufferView
	if viewIndex < 0 || viewIndex >= len(bufferViews) {
		return nil, "", false
	}
	view := bufferViews[viewIndex]
	if view.ByteLength <= 0 || view.ByteOffset < 0 {
		return nil, "", false
	}
	end := view.ByteOffset + view.ByteLength
	if end > len(binChunk) {
		return nil, "", false
	}
	data := append([]byte(nil), binChunk[view.ByteOffset:end]...)
	return data, extByMimeType(image.MimeType), true
}

// decodeDataURI はdata URIをデコードする。
func decodeDataURI(uri string) ([]byte, string, error) {
	commaIndex := strings.Index(uri, ",")
	if commaIndex <= 0 {
		return nil, "", fmt.Errorf("data URI の形式が不正です")
	}
	meta := strings.TrimPrefix(uri[:commaIndex], "data:")
	payload := uri[commaIndex+1:]

	mediaType := ""
	isBase64 := false
	for _, part := range strings.Split(meta, ";") {
		token := strings.TrimSpace(part)
		if token == "" {
			continue
		}
		if token == "base64" {
			isBase64 = true
			continue
		}
		if mediaType == "" {
			mediaType = token
		}
	}
	if !isBase64 {
		return []byte(payload), extByMimeType(mediaType), nil
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", err
	}
	return data, extByMimeType(mediaType), nil
}

// extByMimeType はMIMEタイプから拡張子を返す。
func extByMimeType(mimeType string) string {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/bmp":
		return ".bmp"
	case "image/gif":
		return ".gif"
	case "image/tga":
		return ".tga"
	default:
		return ""
	}
}

// detectImageExt はシグネチャから画像拡張子を推定する。
func detectImageExt(data []byte) string {
	if len(data) >= 8 &&
		data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 &&
		data[4] == 0x0D && data[5] == 0x0A && data[6] == 0x1A && data[7] == 0x0A {
		return ".png"
	}
	if len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return ".jpg"
	}
	if len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP" {
		return ".webp"
	}
	if len(data) >= 2 && data[0] == 'B' && data[1] == 'M' {
		return ".bmp"
	}
	if len(data) >= 6 && (string(data[0:6]) == "GIF87a" || string(data[0:6]) == "GIF89a") {
		return ".gif"
	}
	return ""
}

// chooseTextureBaseName は画像出力ファイルのベース名を決定する。
func chooseTextureBaseName(image gltfImage, index int, fallbackBase string) string {
	if name := sanitizeFileName(image.Name); name != "" {
		return name
	}
	base := sanitizeFileName(fallbackBase)
	if base == "" {
		base = "texture"
	}
	return fmt.Sprintf("%s_tex_%03d", base, index+1)
}

// buildUniqueTextureFileName は重複しないテクスチャファイル名を生成する。
func buildUniqueTextureFileName(base string, ext string, used map[string]int) string {
	safeBase := sanitizeFileName(base)
	if safeBase == "" {
		safeBase = "texture"
	}
	if ext == "" {
		ext = ".bin"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	ext = strings.ToLower(ext)

	key := strings.ToLower(safeBase + ext)
	if _, exists := used[key]; !exists {
		used[key] = 1
		return safeBase + ext
	}
	serial := used[key]
	for {
		candidate := fmt.Sprintf("%s_%d", safeBase, serial)
		candidateKey := strings.ToLower(candidate + ext)
		if _, exists := used[candidateKey]; !exists {
			used[candidateKey] = 1
			used[key] = serial + 1
			return candidate + ext
		}
		serial++
	}
}

// sanitizeFileName はファイル名に使えない文字を置換する。
func sanitizeFileName(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ""
	}
	replacer := strings.NewReplacer(
		"\\", "_",
		"/", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	safe := strings.TrimSpace(replacer.Replace(trimmed))
	if safe == "" {
		return ""
	}
	return strings.Trim(safe, ".")
}
