package gateway

import (
	"context"
	"strings"

	"golang.org/x/time/rate"
)

// Session is the per-connection state. Fields change only under the
// dispatch lock, apart from connID which is set once on connect.
type Session struct {
	connID      string
	displayName string
	roomID      string
	inVoice     bool
	sharing     bool
	reqCtx      context.Context
	limiter     *rate.Limiter
}

func (s *Session) ConnID() string {
	return s.connID
}

func (s *Session) DisplayName() string {
	return s.displayName
}

func (s *Session) RoomID() string {
	return s.roomID
}

// nameOr prefers the name sent with the event over the joined name.
func (s *Session) nameOr(name string) string {
	if name != "" {
		return name
	}
	return s.displayName
}

func (s *Session) reset() {
	s.roomID = ""
	s.displayName = ""
	s.inVoice = false
	s.sharing = false
}

func newLimiter(cfg *Config) *rate.Limiter {
	if cfg.EventRate <= 0 {
		return nil
	}
	burst := cfg.EventBurst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(cfg.EventRate), burst)
}

// nameFilter matches display names case-insensitively after trimming.
// An empty filter allows every name.
type nameFilter map[string]struct{}

func newNameFilter(names []string) nameFilter {
	f := make(nameFilter, len(names))
	for _, n := range names {
		if key := normalizeName(n); key != "" {
			f[key] = struct{}{}
		}
	}
	return f
}

func (f nameFilter) allowed(name string) bool {
	if len(f) == 0 {
		return true
	}
	_, ok := f[normalizeName(name)]
	return ok
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
