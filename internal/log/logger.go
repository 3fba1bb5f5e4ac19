package log

import (
	"encoding/json"
	//nolint:depguard
	stdlog "log"
	"os"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

// Fatal is for failures before a Logger exists.
func Fatal(v ...any) {
	stdlog.Fatal(v...)
}

// Logger is a zap logger that knows its module path, so Module can derive
// child loggers with their own level (see moduleLevel).
type Logger struct {
	*zap.Logger
	names []string
	build func(names []string) *zap.Logger
}

func (l *Logger) Module(name string) *Logger {
	names := append(append(make([]string, 0, len(l.names)+1), l.names...), name)
	return &Logger{
		Logger: l.build(names),
		names:  names,
		build:  l.build,
	}
}

// NewLogger builds a console logger, or one from a zap JSON config file when configFile is set.
func NewLogger(configFile string) (*Logger, error) {
	if configFile == "" {
		return newConsoleLogger(), nil
	}
	return newFileConfigLogger(configFile)
}

func newFileConfigLogger(configFile string) (*Logger, error) {
	bs, err := os.ReadFile(configFile)
	if err != nil {
		return nil, err
	}

	var cfg zap.Config
	if err := json.Unmarshal(bs, &cfg); err != nil {
		return nil, err
	}

	base, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	return &Logger{
		Logger: base.Named("main"),
		build: func(names []string) *zap.Logger {
			return base.Named(strings.Join(names, "."))
		},
	}, nil
}

func consoleEncoder() zapcore.Encoder {
	return zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalColorLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeName: func(name string, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString("[" + name + "]")
		},
	})
}

func newConsoleLogger() *Logger {
	encoder := consoleEncoder()
	out := zapcore.AddSync(os.Stdout)

	newZap := func(lv zapcore.Level) *zap.Logger {
		core := zapcore.NewCore(encoder, out, zap.NewAtomicLevelAt(lv))
		return zap.New(core, zap.AddStacktrace(zapcore.FatalLevel))
	}

	rootLevel := zapcore.InfoLevel
	if lv, ok := levelFromEnv(levelEnvKey); ok {
		rootLevel = lv
	}

	return &Logger{
		Logger: newZap(rootLevel).Named("main"),
		build: func(names []string) *zap.Logger {
			lv := moduleLevel(names)
			return newZap(lv).Named(strings.Join(names, "."))
		},
	}
}

func NewTest(t *testing.T) *Logger {
	base := zaptest.NewLogger(t)
	return &Logger{
		Logger: base,
		build: func(names []string) *zap.Logger {
			return base.Named(strings.Join(names, "."))
		},
	}
}

func NewNop() *Logger {
	base := zap.NewNop()
	return &Logger{
		Logger: base,
		build: func([]string) *zap.Logger {
			return base
		},
	}
}
