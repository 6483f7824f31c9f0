package droidusb

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// LogLevel represents bridge log levels.
type LogLevel int32

// Log level constants, numbered like libusb's.
const (
	LogNone    LogLevel = 0 // Print no output
	LogError   LogLevel = 1 // Java exceptions, refused opens
	LogWarning LogLevel = 2 // Missing symbols, teardown problems
	LogInfo    LogLevel = 3
	LogDebug   LogLevel = 4 // Load/unload progress
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch {
	case l <= LogNone:
		return "none"
	case l == LogError:
		return "error"
	case l == LogWarning:
		return "warning"
	case l == LogInfo:
		return "info"
	default:
		return "debug"
	}
}

// ParseLogLevel parses a level name as produced by String.
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "quiet", "off":
		return LogNone, nil
	case "error":
		return LogError, nil
	case "warning", "warn":
		return LogWarning, nil
	case "info":
		return LogInfo, nil
	case "debug":
		return LogDebug, nil
	}
	return LogNone, fmt.Errorf("droidusb: unknown log level %q", s)
}

// MarshalYAML implements yaml.Marshaler.
func (l LogLevel) MarshalYAML() (any, error) {
	return l.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *LogLevel) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	lvl, err := ParseLogLevel(s)
	if err != nil {
		return err
	}
	*l = lvl
	return nil
}

// LogCallback receives every diagnostic the bridge emits.
// function names the bridge operation the message is attributed to.
type LogCallback func(level LogLevel, function, message string)

func discardLog(LogLevel, string, string) {}

// ZapLogger returns a LogCallback writing to l. The function name is
// attached as the "function" field.
func ZapLogger(l *zap.Logger) LogCallback {
	if l == nil {
		return discardLog
	}
	return func(level LogLevel, function, message string) {
		fn := zap.String("function", function)
		switch level {
		case LogError:
			l.Error(message, fn)
		case LogWarning:
			l.Warn(message, fn)
		case LogInfo:
			l.Info(message, fn)
		case LogDebug:
			l.Debug(message, fn)
		}
	}
}

// logf formats and emits a message if level is enabled.
func (b *Bridge) logf(level LogLevel, function, format string, args ...any) {
	if level <= LogNone || level > b.cfg.LogLevel {
		return
	}
	b.log(level, function, fmt.Sprintf(format, args...))
}
