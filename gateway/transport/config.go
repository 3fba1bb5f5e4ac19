package transport

import (
	"github.com/spf13/viper"
)

var defaultSTUN = []string{
	"stun:stun.l.google.com:19302",
	"stun:stun1.l.google.com:19302",
	"stun:stun2.l.google.com:19302",
	"stun:stun3.l.google.com:19302",
	"stun:stun4.l.google.com:19302",
	"stun:global.stun.twilio.com:3478",
	"stun:stun.cloudflare.com:3478",
}

func Setup(v *viper.Viper, prefix string) {
	p := func(key string) string { return prefix + "." + key }

	servers := make([]map[string]any, 0, len(defaultSTUN))
	for _, url := range defaultSTUN {
		servers = append(servers, map[string]any{"urls": []string{url}})
	}
	v.SetDefault(p("servers"), servers)
	v.SetDefault(p("candidate_pool_size"), 10)
}
