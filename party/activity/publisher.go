package activity

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"

	"github.com/imtaco/watch-party/internal/errors"
	"github.com/imtaco/watch-party/internal/log"
	"github.com/imtaco/watch-party/internal/network"
	"github.com/imtaco/watch-party/internal/retry"
	stream "github.com/imtaco/watch-party/internal/stream/redis"
	"github.com/imtaco/watch-party/party"
)

const drainTimeout = 2 * time.Second

// Publisher writes room activity to a redis stream. Publish only enqueues;
// Run owns the redis writes.
type Publisher struct {
	cfg      *Config
	producer stream.Producer
	trimmer  stream.Trimmer
	retry    retry.Retry
	clock    clockwork.Clock
	node     string
	queue    chan party.ActivityEvent
	logger   *log.Logger
}

func NewPublisher(
	cfg *Config,
	client redis.Cmdable,
	clock clockwork.Clock,
	logger *log.Logger,
) (*Publisher, error) {
	producer, err := stream.NewProducer(client, cfg.Stream, cfg.MaxLen, logger)
	if err != nil {
		return nil, err
	}

	size := cfg.Buffer
	if size <= 0 {
		size = 1
	}

	return &Publisher{
		cfg:      cfg,
		producer: producer,
		trimmer:  stream.NewTrimmer(client, cfg.Stream, clock, logger),
		retry:    retry.New(cfg.Retry, logger),
		clock:    clock,
		node:     network.NodeName(),
		queue:    make(chan party.ActivityEvent, size),
		logger:   logger,
	}, nil
}

// Publish never blocks: when the queue is full the event is dropped.
func (p *Publisher) Publish(ev party.ActivityEvent) {
	ctx := context.Background()
	select {
	case p.queue <- ev:
		eventsQueued.Add(ctx, 1)
	default:
		eventsDropped.Add(ctx, 1)
		p.logger.Warn("activity queue full, dropping event",
			log.String("type", ev.Type),
			log.RoomID(ev.RoomID))
	}
}

// Run writes queued events until ctx ends, then flushes what is left
// without retrying.
func (p *Publisher) Run(ctx context.Context) error {
	var trimC <-chan time.Time
	if p.cfg.Retention > 0 && p.cfg.TrimInterval > 0 {
		ticker := p.clock.NewTicker(p.cfg.TrimInterval)
		defer ticker.Stop()
		trimC = ticker.Chan()
	}

	p.logger.Info("activity publisher started", log.String("stream", p.cfg.Stream))
	for {
		select {
		case <-ctx.Done():
			p.drain()
			return nil
		case ev := <-p.queue:
			p.write(ctx, ev)
		case <-trimC:
			p.trim(ctx)
		}
	}
}

func (p *Publisher) write(ctx context.Context, ev party.ActivityEvent) {
	values := Encode(ev, p.node)
	err := p.retry.Do(ctx, func() error {
		_, err := p.producer.Add(ctx, values)
		return err
	})
	if err != nil {
		eventsFailed.Add(ctx, 1)
		p.logger.Error("failed to write activity event",
			log.String("type", ev.Type),
			log.RoomID(ev.RoomID),
			log.Error(err))
		return
	}
	eventsWritten.Add(ctx, 1)
}

func (p *Publisher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	for {
		select {
		case ev := <-p.queue:
			if _, err := p.producer.Add(ctx, Encode(ev, p.node)); err != nil {
				eventsFailed.Add(ctx, 1)
				p.logger.Warn("dropping activity event on shutdown", log.Error(err))
				continue
			}
			eventsWritten.Add(ctx, 1)
		default:
			return
		}
	}
}

func (p *Publisher) trim(ctx context.Context) {
	n, err := p.trimmer.TrimByAge(ctx, p.cfg.Retention)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			p.logger.Warn("failed to trim activity stream", log.Error(err))
		}
		return
	}
	entriesTrimmed.Add(ctx, n)
}
