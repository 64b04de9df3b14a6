// 指示: miu200521358
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/miu200521358/mu_skin2dae/pkg/domain/model"
	"github.com/miu200521358/mu_skin2dae/pkg/shared/logging"
	"github.com/miu200521358/mu_skin2dae/pkg/usecase/port/moutput"

	// sqlite ドライバ登録。
	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

// createdAtLayout は文字列比較で時系列順になる固定幅の日時書式。
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS export_runs (
	run_id TEXT PRIMARY KEY,
	input_path TEXT NOT NULL,
	output_path TEXT NOT NULL,
	success INTEGER NOT NULL,
	object_count INTEGER NOT NULL,
	joint_count INTEGER NOT NULL,
	error_message TEXT NOT NULL,
	created_at TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS export_warnings (
	run_id TEXT NOT NULL REFERENCES export_runs(run_id),
	seq INTEGER NOT NULL,
	kind TEXT NOT NULL,
	object TEXT NOT NULL,
	count INTEGER NOT NULL,
	detail TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
)`,
}

const insertRunQuery = `INSERT INTO export_runs ` +
	`(run_id, input_path, output_path, success, object_count, joint_count, error_message, created_at) ` +
	`VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

const insertWarningQuery = `INSERT INTO export_warnings (run_id, seq, kind, object, count, detail) VALUES (?, ?, ?, ?, ?, ?)`

const selectRunsQuery = `SELECT run_id, input_path, output_path, success, object_count, joint_count, error_message, created_at ` +
	`FROM export_runs ORDER BY created_at DESC, run_id LIMIT ?`

const selectWarningsQuery = `SELECT kind, object, count, detail FROM export_warnings WHERE run_id = ? ORDER BY seq`

// HistoryStore は出力履歴をSQLiteへ保存する。
type HistoryStore struct {
	db *sql.DB
}

// OpenHistoryStore はSQLiteファイルを開き、履歴テーブルを用意する。
func OpenHistoryStore(ctx context.Context, path string) (*HistoryStore, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("履歴DBを開けませんでした: path=%s: %w", path, err)
	}
	store, err := NewHistoryStore(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewHistoryStore は接続済みDBから履歴ストアを生成する。
func NewHistoryStore(ctx context.Context, db *sql.DB) (*HistoryStore, error) {
	if db == nil {
		return nil, fmt.Errorf("履歴DBが未設定です")
	}
	for _, statement := range schemaStatements {
		if _, err := db.ExecContext(ctx, statement); err != nil {
			return nil, fmt.Errorf("履歴テーブルの作成に失敗しました: %w", err)
		}
	}
	return &HistoryStore{db: db}, nil
}

// Record は出力履歴1件と警告を1トランザクションで保存する。
func (s *HistoryStore) Record(ctx context.Context, record moutput.ExportRecord) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("履歴トランザクションの開始に失敗しました: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	if _, err = tx.ExecContext(ctx, insertRunQuery,
		record.RunID,
		record.InputPath,
		record.OutputPath,
		boolToInt(record.Success),
		record.ObjectCount,
		record.JointCount,
		record.ErrorMessage,
		createdAt.UTC().Format(createdAtLayout),
	); err != nil {
		return fmt.Errorf("出力履歴の保存に失敗しました: run=%s: %w", record.RunID, err)
	}
	for seq, warning := range record.Warnings {
		if _, err = tx.ExecContext(ctx, insertWarningQuery,
			record.RunID, seq, string(warning.Kind), warning.Object, warning.Count, warning.Detail,
		); err != nil {
			return fmt.Errorf("警告履歴の保存に失敗しました: run=%s: %w", record.RunID, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("履歴トランザクションの確定に失敗しました: %w", err)
	}
	logHistoryDebug("出力履歴を保存しました: run=%s warnings=%d", record.RunID, len(record.Warnings))
	return nil
}

// Recent は新しい順に最大 limit 件の出力履歴を返す。
func (s *HistoryStore) Recent(ctx context.Context, limit int) ([]moutput.ExportRecord, error) {
	if limit <= 0 {
		return []moutput.ExportRecord{}, nil
	}
	rows, err := s.db.QueryContext(ctx, selectRunsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("出力履歴の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	records := []moutput.ExportRecord{}
	for rows.Next() {
		var record moutput.ExportRecord
		var success int
		var createdAt string
		if err := rows.Scan(
			&record.RunID,
			&record.InputPath,
			&record.OutputPath,
			&success,
			&record.ObjectCount,
			&record.JointCount,
			&record.ErrorMessage,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("出力履歴の読み取りに失敗しました: %w", err)
		}
		record.Success = success != 0
		if parsed, parseErr := time.Parse(time.RFC3339Nano, createdAt); parseErr == nil {
			record.CreatedAt = parsed
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("出力履歴の読み取りに失敗しました: %w", err)
	}
	for i := range records {
		warnings, err := s.warnings(ctx, records[i].RunID)
		if err != nil {
			return nil, err
		}
		records[i].Warnings = warnings
	}
	return records, nil
}

// warnings は出力1件分の警告を発生順に返す。
func (s *HistoryStore) warnings(ctx context.Context, runID string) ([]model.Warning, error) {
	rows, err := s.db.QueryContext(ctx, selectWarningsQuery, runID)
	if err != nil {
		return nil, fmt.Errorf("警告履歴の取得に失敗しました: run=%s: %w", runID, err)
	}
	defer rows.Close()

	warnings := []model.Warning{}
	for rows.Next() {
		var warning model.Warning
		var kind string
		if err := rows.Scan(&kind, &warning.Object, &warning.Count, &warning.Detail); err != nil {
			return nil, fmt.Errorf("警告履歴の読み取りに失敗しました: run=%s: %w", runID, err)
		}
		warning.Kind = model.WarningKind(kind)
		warnings = append(warnings, warning)
	}
	return warnings, rows.Err()
}

// Close はDB接続を閉じる。
func (s *HistoryStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

// logHistoryDebug は履歴保存のデバッグログを出力する。
func logHistoryDebug(format string, params ...any) {
	logger := logging.DefaultLogger()
	if logger == nil {
		return
	}
	logger.Debug(format, params...)
}
