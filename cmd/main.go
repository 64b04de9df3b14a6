// 指示: miu200521358
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/miu200521358/mu_skin2dae/pkg/adapter/io_model/collada"
	"github.com/miu200521358/mu_skin2dae/pkg/adapter/io_model/reader"
	"github.com/miu200521358/mu_skin2dae/pkg/adapter/io_model/snapshot"
	"github.com/miu200521358/mu_skin2dae/pkg/adapter/io_model/texture"
	"github.com/miu200521358/mu_skin2dae/pkg/adapter/io_model/vrm"
	"github.com/miu200521358/mu_skin2dae/pkg/adapter/mpresenter/messages"
	"github.com/miu200521358/mu_skin2dae/pkg/infra/config"
	"github.com/miu200521358/mu_skin2dae/pkg/infra/history"
	"github.com/miu200521358/mu_skin2dae/pkg/infra/watch"
	"github.com/miu200521358/mu_skin2dae/pkg/shared/logging"
	"github.com/miu200521358/mu_skin2dae/pkg/usecase/minteractor"
)

// options はCLI引数を保持する。
type options struct {
	inputPath   string
	outputPath  string
	configPath  string
	writeConfig string
	watch       bool

	// overrides は明示指定されたフラグのみを設定へ上書きする。
	overrides map[string]string
}

// main はシーンをスキンメッシュ交換文書へ出力する。
func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run はCLI処理全体を実行する。
func run(args []string, out io.Writer, errOut io.Writer) error {
	opts, err := parseOptions(args, errOut)
	if err != nil {
		return err
	}

	cfg, err := config.LoadExportConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf(messages.MessageConfigFailed, err)
	}
	if err := applyOverrides(&cfg, opts.overrides); err != nil {
		return fmt.Errorf(messages.MessageConfigFailed, err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf(messages.MessageConfigFailed, err)
	}
	if level, err := logging.ParseLevel(cfg.LogLevel); err == nil {
		logging.DefaultLogger().SetLevel(level)
	}
	if opts.writeConfig != "" {
		if err := config.SaveExportConfig(opts.writeConfig, cfg); err != nil {
			return fmt.Errorf(messages.MessageConfigSaveFailed, err)
		}
		fmt.Fprintf(out, messages.LogConfigSaved, opts.writeConfig)
	}
	exportCtx, err := cfg.ExportContext()
	if err != nil {
		return fmt.Errorf(messages.MessageConfigFailed, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	vrmRepository := vrm.NewVrmRepository()
	vrmRepository.SetTextureDir(cfg.TextureDir)
	sceneReader := reader.NewSceneReader(snapshot.NewSnapshotRepository(), vrmRepository)
	if !sceneReader.CanLoad(opts.inputPath) {
		return fmt.Errorf(messages.MessageUnsupportedInput, opts.inputPath)
	}
	deps := minteractor.SkinExportUsecaseDeps{
		SceneReader:    sceneReader,
		DocumentWriter: collada.NewColladaRepository(),
		TextureProber:  texture.NewTextureProber(),
	}
	if strings.TrimSpace(cfg.HistoryPath) != "" {
		store, err := history.OpenHistoryStore(ctx, cfg.HistoryPath)
		if err != nil {
			return fmt.Errorf(messages.MessageHistoryFailed, err)
		}
		defer store.Close()
		deps.HistoryStore = store
	}
	usecase := minteractor.NewSkinExportUsecase(deps)

	request := minteractor.ExportRequest{
		InputPath:   opts.inputPath,
		OutputPath:  opts.outputPath,
		Context:     exportCtx,
		SaveOptions: minteractor.SaveOptions{Verify: cfg.Verify},
		Author:      cfg.Author,
	}
	exportErr := exportOnce(ctx, usecase, request, out)
	if !opts.watch {
		return exportErr
	}
	if exportErr != nil {
		fmt.Fprintf(errOut, messages.LogExportFailure, exportErr)
	}

	fmt.Fprintf(out, messages.LogWatchStart, opts.inputPath)
	err = watch.Watch(ctx, opts.inputPath, watch.DefaultDebounce, func(string) {
		if err := exportOnce(ctx, usecase, request, out); err != nil {
			fmt.Fprintf(errOut, messages.LogExportFailure, err)
		}
	})
	if err != nil {
		return fmt.Errorf(messages.MessageWatchFailed, err)
	}
	return nil
}

// exportOnce は1回分の出力を実行し、結果と警告を表示する。
func exportOnce(ctx context.Context, usecase *minteractor.SkinExportUsecase, request minteractor.ExportRequest, out io.Writer) error {
	fmt.Fprintf(out, messages.LogExportStart, request.InputPath)
	result, err := usecase.Export(ctx, request)
	if err != nil {
		return fmt.Errorf(messages.MessageExportFailed, err)
	}
	for _, warning := range result.Warnings {
		fmt.Fprintf(out, messages.LogExportWarning, warning.Kind, warning.Object, warning.Count, warning.Detail)
	}
	fmt.Fprintf(out, messages.LogExportSuccess, result.OutputPath, result.ObjectCount, result.JointCount, len(result.Warnings))
	return nil
}

// overrideFlags は設定へ上書きできるフラグ名。
var overrideFlags = []string{
	"author",
	"log-level",
	"history",
	"textures",
	"verify",
	"workers",
	"only-deform",
	"only-weighted",
	"full-hierarchy",
	"attachment-weights",
	"max-weights",
	"scale-correction",
	"bind-pose",
	"axis",
	"precision",
	"normal-precision",
	"max-bones",
	"max-triangles",
}

// parseOptions はCLI引数を解析する。
func parseOptions(args []string, errOut io.Writer) (options, error) {
	fs := flag.NewFlagSet("mu_skin2dae", flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.Usage = func() {
		fmt.Fprintf(errOut, "%s: %s\n", messages.HelpUsageTitle, messages.HelpUsage)
		fs.PrintDefaults()
	}

	in := fs.String("in", "", "入力ファイルパス (.json/.msgpack/.vrm/.glb)")
	out := fs.String("out", "", "出力DAEファイルパス")
	configPath := fs.String("config", "", "出力プロファイルYAML")
	writeConfig := fs.String("write-config", "", "解決した出力プロファイルの保存先")
	watchMode := fs.Bool("watch", false, "入力の変更を監視して再出力する")

	fs.String("author", "", "文書の作成者")
	fs.String("log-level", "", "ログレベル (debug/info/warn/error)")
	fs.String("history", "", "出力履歴SQLiteファイル")
	fs.String("textures", "", "埋め込みテクスチャの抽出先")
	fs.Bool("verify", false, "保存後に文書を検証する")
	fs.Int("workers", 0, "メッシュ処理の並列数")
	fs.Bool("only-deform", true, "変形ボーンのみ出力する")
	fs.Bool("only-weighted", false, "ウェイトを持つボーンのみ出力する")
	fs.Bool("full-hierarchy", false, "親ボーンを全て含める")
	fs.Bool("attachment-weights", false, "装着点ボーンへのウェイトを許可する")
	fs.Int("max-weights", 0, "頂点あたり最大影響数")
	fs.Bool("scale-correction", false, "全体スケール補正を適用する")
	fs.Bool("bind-pose", false, "バインド姿勢で出力する")
	fs.String("axis", "", "軸変換 (none/y_up_to_z_up/z_up_to_y_up)")
	fs.Int("precision", 0, "座標・行列の小数桁数")
	fs.Int("normal-precision", 0, "法線重複判定の小数桁数")
	fs.Int("max-bones", 0, "ボーン数上限 (0は無制限)")
	fs.Int("max-triangles", 0, "材質あたり三角形数上限 (0は無制限)")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	if *in == "" && fs.NArg() > 0 {
		*in = fs.Arg(0)
	}
	if *out == "" && fs.NArg() > 1 {
		*out = fs.Arg(1)
	}
	if strings.TrimSpace(*in) == "" {
		return options{}, errors.New(messages.MessageInputRequired)
	}

	overrides := map[string]string{}
	fs.Visit(func(f *flag.Flag) {
		for _, name := range overrideFlags {
			if f.Name == name {
				overrides[name] = f.Value.String()
			}
		}
	})
	return options{
		inputPath:   *in,
		outputPath:  *out,
		configPath:  *configPath,
		writeConfig: *writeConfig,
		watch:       *watchMode,
		overrides:   overrides,
	}, nil
}
