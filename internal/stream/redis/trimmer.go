package redis

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"

	"github.com/imtaco/watch-party/internal/errors"
	"github.com/imtaco/watch-party/internal/log"
)

type Trimmer interface {
	// TrimByAge drops entries older than maxAge and returns how many went.
	TrimByAge(ctx context.Context, maxAge time.Duration) (int64, error)
}

func NewTrimmer(
	client redis.Cmdable,
	stream string,
	clock clockwork.Clock,
	logger *log.Logger,
) Trimmer {
	return &trimmerImpl{
		client: client,
		stream: stream,
		clock:  clock,
		logger: logger,
	}
}

type trimmerImpl struct {
	client redis.Cmdable
	stream string
	clock  clockwork.Clock
	logger *log.Logger
}

func (t *trimmerImpl) TrimByAge(ctx context.Context, maxAge time.Duration) (int64, error) {
	id := minID(t.clock, maxAge)
	n, err := t.client.XTrimMinID(ctx, t.stream, id).Result()
	if err != nil {
		return 0, errors.Wrapf(ErrWrite, err, "xtrim %s", t.stream)
	}
	if n > 0 {
		t.logger.Debug("Trimmed stream",
			log.String("stream", t.stream),
			log.String("min_id", id),
			log.Int64("trimmed", n))
	}
	return n, nil
}
