package log

import (
	"os"
	"strings"

	"github.com/iancoleman/strcase"
	"go.uber.org/zap/zapcore"
)

const levelEnvKey = "LOG_LEVEL"

// swapped in tests
var lookupEnv = env

func env(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

func parseLevel(s string) (zapcore.Level, bool) {
	var lvl zapcore.Level
	if err := lvl.Set(strings.ToLower(s)); err != nil {
		return zapcore.InfoLevel, false
	}
	return lvl, true
}

func levelFromEnv(key string) (zapcore.Level, bool) {
	v, ok := lookupEnv(key)
	if !ok {
		return zapcore.InfoLevel, false
	}
	return parseLevel(v)
}

// levelKeys lists env keys from the most to the least specific, e.g. for
// ["Gateway", "ConnDir"]: LOG_LEVEL__GATEWAY__CONN_DIR, LOG_LEVEL__GATEWAY, LOG_LEVEL.
func levelKeys(names []string) []string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = strcase.ToScreamingSnake(n)
	}

	keys := make([]string, 0, len(parts)+1)
	for i := len(parts); i > 0; i-- {
		keys = append(keys, levelEnvKey+"__"+strings.Join(parts[:i], "__"))
	}
	return append(keys, levelEnvKey)
}

func moduleLevel(names []string) zapcore.Level {
	for _, k := range levelKeys(names) {
		if lv, ok := levelFromEnv(k); ok {
			return lv
		}
	}
	return zapcore.InfoLevel
}
