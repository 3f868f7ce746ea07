// internal/logger/pretty.go
package logger

import (
	"time"

	"go.uber.org/zap/zapcore"
)

// Colors for terminal output
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

// colorLevelEncoder formats log levels with colors for the console.
func colorLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch level {
	case zapcore.DebugLevel:
		enc.AppendString(colorCyan + "[DEBUG]" + colorReset)
	case zapcore.InfoLevel:
		enc.AppendString(colorGreen + "[INFO]" + colorReset)
	case zapcore.WarnLevel:
		enc.AppendString(colorYellow + "[WARN]" + colorReset)
	case zapcore.ErrorLevel:
		enc.AppendString(colorRed + "[ERROR]" + colorReset)
	case zapcore.FatalLevel:
		enc.AppendString(colorRed + colorBold + "[FATAL]" + colorReset)
	default:
		enc.AppendString("[" + level.CapitalString() + "]")
	}
}

// consoleTimeEncoder keeps console timestamps short; the JSON file
// carries the full ISO8601 form.
func consoleTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("15:04:05"))
}
