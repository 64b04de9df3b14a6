// 指示: miu200521358
// Package messages はCLI表示に使うメッセージを提供する。
package messages

// メッセージ一覧。
const (
	HelpUsageTitle = "使い方"
	HelpUsage      = "mu_skin2dae -in <scene.json|scene.msgpack|model.vrm|model.glb> [-out <output.dae>] [options]"

	MessageInputRequired    = "入力ファイルを指定してください (-in)"
	MessageUnsupportedInput = "入力形式が未対応です: %s"
	MessageConfigFailed     = "設定の読み込みに失敗しました: %w"
	MessageConfigSaveFailed = "設定の保存に失敗しました: %w"
	MessageHistoryFailed    = "出力履歴を開けませんでした: %w"
	MessageExportFailed     = "出力に失敗しました: %w"
	MessageWatchFailed      = "変更監視に失敗しました: %w"

	LogExportStart   = "[mu_skin2dae] 出力開始: %s\n"
	LogExportSuccess = "[mu_skin2dae] 出力完了: %s objects=%d joints=%d warnings=%d\n"
	LogExportWarning = "[mu_skin2dae] 警告: %s object=%s count=%d %s\n"
	LogExportFailure = "[mu_skin2dae] 出力失敗: %v\n"
	LogConfigSaved   = "[mu_skin2dae] 設定を保存しました: %s\n"
	LogWatchStart    = "[mu_skin2dae] 変更を監視します: %s\n"
)
