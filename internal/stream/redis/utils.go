package redis

import (
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
)

// minID is the smallest stream id written at or after now-age.
func minID(clock clockwork.Clock, age time.Duration) string {
	return strconv.FormatInt(clock.Now().Add(-age).UnixMilli(), 10) + "-0"
}
