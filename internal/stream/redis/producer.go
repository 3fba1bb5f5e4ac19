package redis

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/imtaco/watch-party/internal/errors"
	"github.com/imtaco/watch-party/internal/log"
)

const (
	ErrArgs  errors.Code = "stream_args"
	ErrWrite errors.Code = "stream_write"
)

type Producer interface {
	Add(ctx context.Context, values map[string]any) (string, error)
}

type producerImpl struct {
	client redis.Cmdable
	stream string
	maxLen int64
	logger *log.Logger
}

// NewProducer appends entries to stream. A positive maxLen keeps the stream
// roughly that long (XADD MAXLEN ~).
func NewProducer(
	client redis.Cmdable,
	stream string,
	maxLen int64,
	logger *log.Logger,
) (Producer, error) {
	if client == nil {
		return nil, errors.New(ErrArgs, "redis client is required")
	}
	if stream == "" {
		return nil, errors.New(ErrArgs, "stream name is required")
	}
	if logger == nil {
		return nil, errors.New(ErrArgs, "logger is required")
	}

	return &producerImpl{
		client: client,
		stream: stream,
		maxLen: maxLen,
		logger: logger,
	}, nil
}

func (p *producerImpl) Add(ctx context.Context, values map[string]any) (string, error) {
	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: values,
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	id, err := p.client.XAdd(ctx, args).Result()
	if err != nil {
		return "", errors.Wrapf(ErrWrite, err, "xadd %s", p.stream)
	}

	p.logger.Debug("Added stream entry",
		log.String("stream", p.stream),
		log.String("id", id))
	return id, nil
}
