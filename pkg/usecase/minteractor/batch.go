// 指示: miu200521358
package minteractor

import "context"

// ExportBatch は複数の出力要求を順に実行する。
// 構造エラーは要求ごとに記録し、FailFast の場合のみ残りを中止する。
func (uc *SkinExportUsecase) ExportBatch(ctx context.Context, batch BatchExportRequest) *BatchExportResult {
	if ctx == nil {
		ctx = context.Background()
	}
	result := &BatchExportResult{Items: make([]BatchExportItem, 0, len(batch.Requests))}
	stopped := false
	for _, request := range batch.Requests {
		item := BatchExportItem{Request: request}
		if stopped || ctx.Err() != nil {
			item.Skipped = true
			result.Skipped++
			result.Items = append(result.Items, item)
			continue
		}
		exported, err := uc.Export(ctx, request)
		item.Result = exported
		item.Err = err
		if err != nil {
			result.Failed++
			logExportWarn("出力に失敗しました: input=%s err=%v", request.InputPath, err)
			if batch.FailFast {
				stopped = true
			}
		} else {
			result.Succeeded++
		}
		result.Items = append(result.Items, item)
	}
	return result
}
