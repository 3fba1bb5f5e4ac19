package activity

import (
	"time"

	"github.com/spf13/viper"

	"github.com/imtaco/watch-party/internal/retry"
)

type Config struct {
	Enabled bool   `mapstructure:"enabled"`
	Stream  string `mapstructure:"stream"`
	// Buffer bounds the queue between room events and the redis writer.
	Buffer int `mapstructure:"buffer"`
	// MaxLen caps the stream approximately; 0 leaves it uncapped.
	MaxLen int64 `mapstructure:"max_len"`
	// Retention drops entries older than this every TrimInterval; 0 disables.
	Retention    time.Duration `mapstructure:"retention"`
	TrimInterval time.Duration `mapstructure:"trim_interval"`
	Retry        retry.Policy  `mapstructure:"retry"`
}

func Setup(v *viper.Viper, prefix string) {
	p := func(key string) string { return prefix + "." + key }

	v.SetDefault(p("enabled"), false)
	v.SetDefault(p("stream"), "watchparty:activity")
	v.SetDefault(p("buffer"), 1024)
	v.SetDefault(p("max_len"), 100000)
	v.SetDefault(p("retention"), "168h")
	v.SetDefault(p("trim_interval"), "10m")
	retry.Setup(v, p("retry"))
}
