// Package console provides the leveled, emoji-prefixed terminal logger used
// across the bot's commands and components.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// LogLevel represents different logging levels
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// Logger provides structured logging for CLI applications
type Logger struct {
	Level      LogLevel
	ShowEmojis bool
	SilentMode bool
	Out        io.Writer
}

// NewLogger creates a new logger with default settings
func NewLogger() *Logger {
	return &Logger{
		Level:      LogLevelInfo,
		ShowEmojis: true,
		Out:        os.Stdout,
	}
}

// SetSilentMode enables or disables silent mode
func (l *Logger) SetSilentMode(silent bool) {
	l.SilentMode = silent
}

// Header prints a formatted header
func (l *Logger) Header(title string) {
	if l.SilentMode {
		return
	}
	emoji := "🎯"
	if !l.ShowEmojis {
		emoji = "***"
	}
	fmt.Fprintf(l.Out, "\n%s %s\n", emoji, strings.ToUpper(title))
	fmt.Fprintf(l.Out, "%s\n", strings.Repeat("=", len(title)+5))
}

// Section prints a formatted section header
func (l *Logger) Section(title string) {
	if l.SilentMode {
		return
	}
	emoji := "📋"
	if !l.ShowEmojis {
		emoji = "---"
	}
	fmt.Fprintf(l.Out, "\n%s %s\n", emoji, title)
	fmt.Fprintf(l.Out, "%s\n", strings.Repeat("-", len(title)+5))
}

// Step prints a named workflow step with its description
func (l *Logger) Step(name, format string, args ...interface{}) {
	if l.SilentMode || l.Level < LogLevelInfo {
		return
	}
	emoji := "🔄"
	if !l.ShowEmojis {
		emoji = "[STEP]"
	}
	fmt.Fprintf(l.Out, "%s %s: %s\n", emoji, name, fmt.Sprintf(format, args...))
}

// Info prints an info message
func (l *Logger) Info(format string, args ...interface{}) {
	if l.SilentMode || l.Level < LogLevelInfo {
		return
	}
	emoji := "ℹ️"
	if !l.ShowEmojis {
		emoji = "[INFO]"
	}
	fmt.Fprintf(l.Out, "%s  %s\n", emoji, fmt.Sprintf(format, args...))
}

// Success prints a success message
func (l *Logger) Success(format string, args ...interface{}) {
	if l.SilentMode {
		return
	}
	emoji := "✅"
	if !l.ShowEmojis {
		emoji = "[SUCCESS]"
	}
	fmt.Fprintf(l.Out, "%s %s\n", emoji, fmt.Sprintf(format, args...))
}

// Warn prints a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.Level < LogLevelWarn {
		return
	}
	emoji := "⚠️"
	if !l.ShowEmojis {
		emoji = "[WARN]"
	}
	fmt.Fprintf(l.Out, "%s  %s\n", emoji, fmt.Sprintf(format, args...))
}

// Error prints an error message
func (l *Logger) Error(format string, args ...interface{}) {
	emoji := "❌"
	if !l.ShowEmojis {
		emoji = "[ERROR]"
	}
	fmt.Fprintf(l.Out, "%s %s\n", emoji, fmt.Sprintf(format, args...))
}

// Debug prints a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.Level < LogLevelDebug {
		return
	}
	emoji := "🔍"
	if !l.ShowEmojis {
		emoji = "[DEBUG]"
	}
	fmt.Fprintf(l.Out, "%s %s\n", emoji, fmt.Sprintf(format, args...))
}
