// 指示: miu200521358
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/miu200521358/mu_skin2dae/pkg/shared/logging"
)

// DefaultDebounce は連続した変更をまとめる既定の待機時間。
const DefaultDebounce = 300 * time.Millisecond

// Watch は対象ファイルの変更を監視し、変更が落ち着いた後に onChange を呼ぶ。
// 保存時の置き換えも拾うため親フォルダを監視する。ctx 終了で nil を返す。
func Watch(ctx context.Context, path string, debounce time.Duration, onChange func(path string)) error {
	if onChange == nil {
		return fmt.Errorf("変更通知先が未設定です")
	}
	target, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("監視対象パスの解決に失敗しました: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("ファイル監視の開始に失敗しました: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("監視フォルダの登録に失敗しました: %w", err)
	}
	logWatchInfo("ファイル監視を開始します: path=%s", target)

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isRelevant(event, target) {
				continue
			}
			logWatchDebug("変更を検知しました: op=%s path=%s", event.Op, event.Name)
			timer.Reset(debounce)
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logWatchWarn("ファイル監視でエラーが発生しました: %v", watchErr)
		case <-timer.C:
			onChange(target)
		}
	}
}

// isRelevant は対象ファイルへの書き込み系イベントか判定する。
func isRelevant(event fsnotify.Event, target string) bool {
	name, err := filepath.Abs(event.Name)
	if err != nil || name != target {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

// logWatchInfo はファイル監視の情報ログを出力する。
func logWatchInfo(format string, params ...any) {
	logger := logging.DefaultLogger()
	if logger == nil {
		return
	}
	logger.Info(format, params...)
}

// logWatchDebug はファイル監視のデバッグログを出力する。
func logWatchDebug(format string, params ...any) {
	logger := logging.DefaultLogger()
	if logger == nil {
		return
	}
	logger.Debug(format, params...)
}

// logWatchWarn はファイル監視の警告ログを出力する。
func logWatchWarn(format string, params ...any) {
	logger := logging.DefaultLogger()
	if logger == nil {
		return
	}
	logger.Warn(format, params...)
}
