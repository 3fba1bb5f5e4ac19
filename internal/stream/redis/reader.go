package redis

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"

	"github.com/imtaco/watch-party/internal/errors"
	"github.com/imtaco/watch-party/internal/log"
	"github.com/imtaco/watch-party/internal/retry"
)

const (
	ErrRead errors.Code = "stream_read"

	defaultBlockTime = 5 * time.Second
	readBatch        = 16
)

type Message struct {
	ID     string
	Values map[string]any
}

// Reader follows a stream without a consumer group, like `XREAD BLOCK`.
type Reader interface {
	// Open starts following from entries written in the last `since`; zero
	// means only new entries.
	Open(ctx context.Context, since time.Duration) error
	Close()
	Channel() <-chan *Message
}

type readerImpl struct {
	client    redis.Cmdable
	stream    string
	blockTime time.Duration
	lastID    string
	chMsg     chan *Message
	openOnce  sync.Once
	cancel    context.CancelFunc
	retry     retry.Retry
	clock     clockwork.Clock
	logger    *log.Logger
}

func NewReader(
	client redis.Cmdable,
	stream string,
	blockTime time.Duration,
	clock clockwork.Clock,
	logger *log.Logger,
) (Reader, error) {
	if client == nil {
		return nil, errors.New(ErrArgs, "redis client is required")
	}
	if stream == "" {
		return nil, errors.New(ErrArgs, "stream name is required")
	}
	if logger == nil {
		return nil, errors.New(ErrArgs, "logger is required")
	}
	if blockTime <= 0 {
		blockTime = defaultBlockTime
	}

	return &readerImpl{
		client:    client,
		stream:    stream,
		blockTime: blockTime,
		lastID:    "$",
		chMsg:     make(chan *Message, readBatch),
		retry:     retry.New(retry.Forever(), logger),
		clock:     clock,
		logger:    logger,
	}, nil
}

func (r *readerImpl) Open(ctx context.Context, since time.Duration) error {
	if since > 0 {
		r.lastID = minID(r.clock, since)
	}
	r.openOnce.Do(func() {
		ctx, r.cancel = context.WithCancel(ctx)
		go r.follow(ctx)
	})
	return nil
}

func (r *readerImpl) Close() {
	if r.cancel != nil {
		r.cancel()
	}
}

func (r *readerImpl) Channel() <-chan *Message {
	return r.chMsg
}

func (r *readerImpl) read(ctx context.Context) ([]redis.XMessage, error) {
	streams, err := r.client.XRead(ctx, &redis.XReadArgs{
		Streams: []string{r.stream, r.lastID},
		Count:   readBatch,
		Block:   r.blockTime,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(ErrRead, err, "xread %s", r.stream)
	}
	if len(streams) == 0 {
		return nil, nil
	}
	return streams[0].Messages, nil
}

func (r *readerImpl) follow(ctx context.Context) {
	defer close(r.chMsg)

	for ctx.Err() == nil {
		var msgs []redis.XMessage
		err := r.retry.Do(ctx, func() error {
			var err error
			msgs, err = r.read(ctx)
			return err
		})
		if err != nil {
			return
		}

		for _, m := range msgs {
			r.lastID = m.ID
			select {
			case <-ctx.Done():
				return
			case r.chMsg <- &Message{ID: m.ID, Values: m.Values}:
			}
		}
	}
}
