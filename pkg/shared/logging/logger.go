// 指示: miu200521358
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// LogLevel はログ出力レベルを表す。
type LogLevel int

const (
	LOG_LEVEL_DEBUG LogLevel = iota
	LOG_LEVEL_INFO
	LOG_LEVEL_WARN
	LOG_LEVEL_ERROR
)

// messageBufferLimit はメッセージバッファの最大保持行数。
const messageBufferLimit = 2000

var (
	defaultMu     sync.RWMutex
	defaultLogger = NewLogger(os.Stderr)
)

// DefaultLogger は既定ロガーを返す。
func DefaultLogger() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetDefaultLogger は既定ロガーを差し替える。
func SetDefaultLogger(logger *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = logger
}

// Logger は printf 形式で slog へ出力するロガーを表す。
type Logger struct {
	level  *slog.LevelVar
	slog   *slog.Logger
	buffer *MessageBuffer
}

// NewLogger はロガーを生成する。writer が nil の場合はメッセージバッファのみに記録する。
func NewLogger(writer io.Writer) *Logger {
	level := &slog.LevelVar{}
	level.Set(slog.LevelInfo)
	if writer == nil {
		writer = io.Discard
	}
	handler := slog.NewTextHandler(writer, &slog.HandlerOptions{Level: level})
	return &Logger{
		level:  level,
		slog:   slog.New(handler),
		buffer: &MessageBuffer{},
	}
}

// SetLevel は出力レベルを設定する。
func (l *Logger) SetLevel(level LogLevel) {
	if l == nil {
		return
	}
	l.level.Set(toSlogLevel(level))
}

// Slog は内部の slog.Logger を返す。
func (l *Logger) Slog() *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l.slog
}

// MessageBuffer は出力済みメッセージのバッファを返す。
func (l *Logger) MessageBuffer() *MessageBuffer {
	if l == nil {
		return &MessageBuffer{}
	}
	return l.buffer
}

// Debug はDEBUGログを出力する。
func (l *Logger) Debug(format string, params ...any) {
	l.log(slog.LevelDebug, format, params...)
}

// Info はINFOログを出力する。
func (l *Logger) Info(format string, params ...any) {
	l.log(slog.LevelInfo, format, params...)
}

// Warn はWARNログを出力する。
func (l *Logger) Warn(format string, params ...any) {
	l.log(slog.LevelWarn, format, params...)
}

// Error はERRORログを出力する。
func (l *Logger) Error(format string, params ...any) {
	l.log(slog.LevelError, format, params...)
}

// log はレベル判定後に slog とメッセージバッファへ出力する。
func (l *Logger) log(level slog.Level, format string, params ...any) {
	if l == nil || level < l.level.Level() {
		return
	}
	message := format
	if len(params) > 0 {
		message = fmt.Sprintf(format, params...)
	}
	l.buffer.append(message)
	l.slog.Log(context.Background(), level, message)
}

// ParseLevel は設定文字列をログレベルへ変換する。
func ParseLevel(value string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return LOG_LEVEL_DEBUG, nil
	case "", "info":
		return LOG_LEVEL_INFO, nil
	case "warn", "warning":
		return LOG_LEVEL_WARN, nil
	case "error":
		return LOG_LEVEL_ERROR, nil
	default:
		return LOG_LEVEL_INFO, fmt.Errorf("ログレベルが不正です: %s", value)
	}
}

// toSlogLevel はログレベルを slog のレベルへ変換する。
func toSlogLevel(level LogLevel) slog.Level {
	switch level {
	case LOG_LEVEL_DEBUG:
		return slog.LevelDebug
	case LOG_LEVEL_WARN:
		return slog.LevelWarn
	case LOG_LEVEL_ERROR:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// MessageBuffer は直近のログメッセージを保持する。
type MessageBuffer struct {
	mu    sync.Mutex
	lines []string
}

// Lines は保持中のメッセージの複製を返す。
func (b *MessageBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out
}

// Clear は保持中のメッセージを破棄する。
func (b *MessageBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = nil
}

// append はメッセージを追加する。
func (b *MessageBuffer) append(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = append(b.lines, line)
	if len(b.lines) > messageBufferLimit {
		b.lines = b.lines[len(b.lines)-messageBufferLimit:]
	}
}
