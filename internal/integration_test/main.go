// 指示: miu200521358
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/miu200521358/mu_skin2dae/pkg/adapter/io_model/collada"
	"github.com/miu200521358/mu_skin2dae/pkg/adapter/io_model/reader"
	"github.com/miu200521358/mu_skin2dae/pkg/adapter/io_model/snapshot"
	"github.com/miu200521358/mu_skin2dae/pkg/adapter/io_model/texture"
	"github.com/miu200521358/mu_skin2dae/pkg/adapter/io_model/vrm"
	"github.com/miu200521358/mu_skin2dae/pkg/infra/config"
	"github.com/miu200521358/mu_skin2dae/pkg/usecase/minteractor"
)

const (
	batchOutputDirMode = 0o755
)

// batchConfig はバッチ出力の実行設定を表す。
type batchConfig struct {
	OutputRoot string
	ListPath   string
	ConfigPath string
	DryRun     bool
	FailFast   bool
	InputPaths []string
}

// exportEntry は1シーン分の出力入力情報を表す。
type exportEntry struct {
	Index      int
	SourcePath string
	SceneName  string
	CaseDir    string
	OutputPath string
}

// exportProgressCollector は出力処理の進捗イベントを収集する。
type exportProgressCollector struct {
	eventCounts map[minteractor.ExportProgressEventType]int
	meshMax     int
	jointMax    int
}

// main はシーン群を一括でスキンメッシュ文書へ出力する。
func main() {
	os.Exit(run())
}

// run は実行設定を解決して一括出力を実行し、終了コードを返す。
func run() int {
	cfg, err := parseBatchConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "設定解析に失敗しました: %v\n", err)
		return 2
	}
	inputPaths, err := collectInputPaths(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "入力一覧の読込に失敗しました: %v\n", err)
		return 2
	}
	entries := buildExportEntries(cfg.OutputRoot, inputPaths)
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "出力対象シーンがありません")
		return 2
	}

	if cfg.DryRun {
		for _, entry := range entries {
			fmt.Printf("[%d/%d] DRY-RUN: scene=%s input=%s output=%s\n", entry.Index, len(entries), entry.SceneName, entry.SourcePath, entry.OutputPath)
		}
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	result, collectors, err := executeBatchExport(ctx, cfg, entries)
	if err != nil {
		fmt.Fprintf(os.Stderr, "一括出力の準備に失敗しました: %v\n", err)
		return 2
	}
	printBatchItems(entries, result, collectors)
	printBatchSummary(result)
	if result.Failed > 0 {
		return 1
	}
	return 0
}

// parseBatchConfig はコマンドライン引数から実行設定を構築する。
func parseBatchConfig() (batchConfig, error) {
	defaultOutputRoot, err := resolveDefaultOutputRoot()
	if err != nil {
		return batchConfig{}, err
	}
	outputRoot := flag.String("output-root", defaultOutputRoot, "出力結果のルートディレクトリ")
	listPath := flag.String("list", "", "入力パスを1行ずつ記載した一覧ファイル")
	configPath := flag.String("config", "", "出力プロファイルYAML")
	dryRun := flag.Bool("dry-run", false, "実出力せず、入力解決と出力先計画のみ表示する")
	failFast := flag.Bool("fail-fast", false, "失敗時に残りを中止する")
	flag.Parse()

	trimmedOutputRoot := strings.TrimSpace(*outputRoot)
	if trimmedOutputRoot == "" {
		return batchConfig{}, errors.New("output-root が空です")
	}
	return batchConfig{
		OutputRoot: filepath.Clean(trimmedOutputRoot),
		ListPath:   strings.TrimSpace(*listPath),
		ConfigPath: strings.TrimSpace(*configPath),
		DryRun:     *dryRun,
		FailFast:   *failFast,
		InputPaths: flag.Args(),
	}, nil
}

// resolveDefaultOutputRoot はスクリプト配置ディレクトリ基準の既定出力先を返す。
func resolveDefaultOutputRoot() (string, error) {
	_, currentFilePath, _, ok := runtime.Caller(0)
	if !ok {
		return "", errors.New("実行ファイル位置を取得できません")
	}
	currentDir := filepath.Dir(currentFilePath)
	return filepath.Join(currentDir, "output"), nil
}

// collectInputPaths は引数と一覧ファイルから入力パスを集める。# で始まる行は無視する。
func collectInputPaths(cfg batchConfig) ([]string, error) {
	paths := append([]string{}, cfg.InputPaths...)
	if cfg.ListPath == "" {
		return paths, nil
	}
	file, err := os.Open(cfg.ListPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		paths = append(paths, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return paths, nil
}

// buildExportEntries は入力パス一覧から出力対象エントリを生成する。
func buildExportEntries(outputRoot string, inputPaths []string) []exportEntry {
	entries := make([]exportEntry, 0, len(inputPaths))
	for i, rawPath := range inputPaths {
		resolvedInputPath := normalizeInputPath(rawPath)
		sceneName := resolveSceneName(rawPath)
		safeSceneName := sanitizePathComponent(sceneName)
		caseDir := filepath.Join(outputRoot, fmt.Sprintf("%03d_%s", i+1, safeSceneName))
		entries = append(entries, exportEntry{
			Index:      i + 1,
			SourcePath: resolvedInputPath,
			SceneName:  sceneName,
			CaseDir:    caseDir,
			OutputPath: filepath.Join(caseDir, safeSceneName+".dae"),
		})
	}
	return entries
}

// executeBatchExport は全シーンの出力要求を組み立てて一括実行する。
func executeBatchExport(
	ctx context.Context,
	cfg batchConfig,
	entries []exportEntry,
) (*minteractor.BatchExportResult, []*exportProgressCollector, error) {
	exportConfig, err := config.LoadExportConfig(cfg.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	exportCtx, err := exportConfig.ExportContext()
	if err != nil {
		return nil, nil, err
	}
	vrmRepository := vrm.NewVrmRepository()
	usecase := minteractor.NewSkinExportUsecase(minteractor.SkinExportUsecaseDeps{
		SceneReader:    reader.NewSceneReader(snapshot.NewSnapshotRepository(), vrmRepository),
		DocumentWriter: collada.NewColladaRepository(),
		TextureProber:  texture.NewTextureProber(),
	})

	requests := make([]minteractor.ExportRequest, 0, len(entries))
	collectors := make([]*exportProgressCollector, 0, len(entries))
	for _, entry := range entries {
		if err := os.MkdirAll(entry.CaseDir, batchOutputDirMode); err != nil {
			return nil, nil, fmt.Errorf("出力ディレクトリ作成に失敗しました: %w", err)
		}
		collector := newExportProgressCollector()
		collectors = append(collectors, collector)
		requests = append(requests, minteractor.ExportRequest{
			InputPath:        entry.SourcePath,
			OutputPath:       entry.OutputPath,
			Context:          exportCtx,
			SaveOptions:      minteractor.SaveOptions{Verify: true},
			ProgressReporter: collector,
			Author:           exportConfig.Author,
		})
	}

	startedAt := time.Now()
	result := usecase.ExportBatch(ctx, minteractor.BatchExportRequest{
		Requests: requests,
		FailFast: cfg.FailFast,
	})
	fmt.Printf("一括出力完了: elapsed=%s\n", time.Since(startedAt).Round(time.Millisecond))
	return result, collectors, nil
}

// printBatchItems は1件ごとの結果を標準出力へ表示する。
func printBatchItems(entries []exportEntry, result *minteractor.BatchExportResult, collectors []*exportProgressCollector) {
	total := len(entries)
	for i, item := range result.Items {
		entry := entries[i]
		switch {
		case item.Skipped:
			fmt.Printf("[%d/%d] スキップ: scene=%s\n", entry.Index, total, entry.SceneName)
		case item.Err != nil:
			fmt.Printf("[%d/%d] 出力失敗: scene=%s reason=%v\n", entry.Index, total, entry.SceneName, item.Err)
		default:
			fmt.Printf(
				"[%d/%d] 出力成功: scene=%s output=%s objects=%d joints=%d warnings=%d\n",
				entry.Index,
				total,
				entry.SceneName,
				item.Result.OutputPath,
				item.Result.ObjectCount,
				item.Result.JointCount,
				len(item.Result.Warnings),
			)
			if summary := collectors[i].Summary(); summary != "" {
				fmt.Printf("[%d/%d] 進捗: %s\n", entry.Index, total, summary)
			}
		}
	}
}

// printBatchSummary は出力結果の集計を標準出力へ表示する。
func printBatchSummary(result *minteractor.BatchExportResult) {
	fmt.Printf(
		"バッチ出力サマリ: total=%d succeeded=%d failed=%d skipped=%d\n",
		len(result.Items),
		result.Succeeded,
		result.Failed,
		result.Skipped,
	)
}

// resolveSceneName は入力パスから拡張子を除いたシーン名を返す。
func resolveSceneName(path string) string {
	base := strings.TrimSpace(filepath.Base(path))
	name := strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base)))
	if name == "" {
		return "scene"
	}
	return name
}

// normalizeInputPath は入力パスを実行環境向けに正規化する。
func normalizeInputPath(path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return ""
	}
	return filepath.Clean(convertWindowsPathToWsl(trimmed))
}

// convertWindowsPathToWsl は Linux 実行時に Windows パスを WSL パスへ変換する。
func convertWindowsPathToWsl(path string) string {
	if runtime.GOOS != "linux" || len(path) < 2 || path[1] != ':' {
		return path
	}
	drive := strings.ToLower(path[:1])
	rest := strings.ReplaceAll(path[2:], "\\", "/")
	if rest == "" {
		return filepath.ToSlash(filepath.Join("/mnt", drive))
	}
	if !strings.HasPrefix(rest, "/") {
		rest = "/" + rest
	}
	return filepath.ToSlash(filepath.Join("/mnt", drive) + rest)
}

// sanitizePathComponent は出力ディレクトリ/ファイル名に使えない文字を置換する。
func sanitizePathComponent(name string) string {
	trimmed := strings.TrimSpace(name)
	replaced := strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', ':', '"', '/', '\\', '|', '?', '*':
			return '_'
		default:
			if r < 0x20 {
				return '_'
			}
			return r
		}
	}, trimmed)
	replaced = strings.Trim(replaced, " .")
	if replaced == "" {
		return "scene"
	}
	return replaced
}

// newExportProgressCollector は出力進捗収集器を生成する。
func newExportProgressCollector() *exportProgressCollector {
	return &exportProgressCollector{
		eventCounts: map[minteractor.ExportProgressEventType]int{},
	}
}

// ReportExportProgress は出力進捗イベントを収集する。
func (collector *exportProgressCollector) ReportExportProgress(event minteractor.ExportProgressEvent) {
	if collector == nil {
		return
	}
	collector.eventCounts[event.Type]++
	if event.MeshCount > collector.meshMax {
		collector.meshMax = event.MeshCount
	}
	if event.JointCount > collector.jointMax {
		collector.jointMax = event.JointCount
	}
}

// Summary は収集した進捗の要約文字列を返す。
func (collector *exportProgressCollector) Summary() string {
	if collector == nil || len(collector.eventCounts) == 0 {
		return ""
	}
	types := make([]string, 0, len(collector.eventCounts))
	for eventType := range collector.eventCounts {
		types = append(types, string(eventType))
	}
	sort.Strings(types)
	return fmt.Sprintf(
		"events=%d meshMax=%d jointMax=%d stages=%s",
		len(collector.eventCounts),
		collector.meshMax,
		collector.jointMax,
		strings.Join(types, ","),
	)
}
