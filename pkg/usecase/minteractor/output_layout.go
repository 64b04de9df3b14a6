// 指示: miu200521358
package minteractor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// OutputExtension は出力文書の拡張子。
	OutputExtension   = ".dae"
	outputDirFileMode = 0o755
)

var nowFunc = time.Now

// BuildDefaultOutputPath は入力パスから既定の出力パスを生成する。
func BuildDefaultOutputPath(inputPath string) string {
	return buildDefaultOutputPathAt(inputPath, nowFunc())
}

// buildDefaultOutputPathAt は指定時刻で既定の出力パスを生成する。
func buildDefaultOutputPathAt(inputPath string, now time.Time) string {
	dir := filepath.Dir(inputPath)
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	base = strings.TrimSpace(base)
	if base == "" || base == "." || base == string(filepath.Separator) {
		return ""
	}
	stamp := now.Format("20060102150405")
	outDir := filepath.Join(dir, fmt.Sprintf("%s_%s", base, stamp))
	return filepath.Join(outDir, base+OutputExtension)
}

// resolveDaeOutputPath は出力先パスを解決し、拡張子を検証する。
func resolveDaeOutputPath(inputPath string, outputPath string) (string, error) {
	resolved := strings.TrimSpace(outputPath)
	if resolved == "" && strings.TrimSpace(inputPath) != "" {
		resolved = BuildDefaultOutputPath(inputPath)
	}
	if strings.TrimSpace(resolved) == "" {
		return "", fmt.Errorf("保存先パスが未指定です")
	}
	if !strings.EqualFold(filepath.Ext(resolved), OutputExtension) {
		return "", fmt.Errorf("保存先拡張子が %s ではありません: %s", OutputExtension, resolved)
	}
	return resolved, nil
}

// createOutputDir は出力先ディレクトリを作成する。
func createOutputDir(outputPath string) error {
	outputDir := filepath.Dir(outputPath)
	if outputDir == "" {
		return fmt.Errorf("保存先ディレクトリの解決に失敗しました")
	}
	if err := os.MkdirAll(outputDir, outputDirFileMode); err != nil {
		return fmt.Errorf("保存先ディレクトリの作成に失敗しました: %w", err)
	}
	return nil
}

// resolveTexturePath は材質のテクスチャパスを入力ファイル基準で解決する。
func resolveTexturePath(inputPath string, texturePath string) string {
	if texturePath == "" || filepath.IsAbs(texturePath) || strings.TrimSpace(inputPath) == "" {
		return texturePath
	}
	return filepath.Join(filepath.Dir(inputPath), texturePath)
}
