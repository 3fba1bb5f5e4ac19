package gateway

import (
	"github.com/spf13/viper"

	wsrpc "github.com/imtaco/watch-party/internal/jsonrpc/websocket"
)

type Config struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// AllowedNames restricts join-room display names; empty allows anyone.
	AllowedNames []string `mapstructure:"allowed_names"`
	// EventRate is the steady inbound events per second per connection; 0 disables limiting.
	EventRate       float64 `mapstructure:"event_rate"`
	EventBurst      int     `mapstructure:"event_burst"`
	SystemMessages  bool    `mapstructure:"system_messages"`
	MaxMessageBytes int64   `mapstructure:"max_message_bytes"`
	WriteBuffer     int     `mapstructure:"write_buffer"`
}

func Setup(v *viper.Viper, prefix string) {
	p := func(key string) string { return prefix + "." + key }

	v.SetDefault(p("allowed_origins"), []string{"*"})
	v.SetDefault(p("allowed_names"), []string{})
	v.SetDefault(p("event_rate"), 20)
	v.SetDefault(p("event_burst"), 40)
	v.SetDefault(p("system_messages"), true)
	v.SetDefault(p("max_message_bytes"), 64<<10)
	v.SetDefault(p("write_buffer"), 64)
}

func (c *Config) WSOptions() []wsrpc.Option {
	return []wsrpc.Option{
		wsrpc.WithReadLimit(c.MaxMessageBytes),
		wsrpc.WithBuffer(c.WriteBuffer),
	}
}
