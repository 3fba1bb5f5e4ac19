package activity

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/imtaco/watch-party/internal/constants"
	"github.com/imtaco/watch-party/internal/log"
	"github.com/imtaco/watch-party/internal/retry"
	"github.com/imtaco/watch-party/party"
)

const testStream = "test:activity"

type PublisherSuite struct {
	suite.Suite
	mr     *miniredis.Miniredis
	client *redis.Client
	clock  *clockwork.FakeClock
	cfg    *Config
	ctx    context.Context
	cancel context.CancelFunc
}

func TestPublisherSuite(t *testing.T) {
	suite.Run(t, new(PublisherSuite))
}

func (s *PublisherSuite) SetupTest() {
	s.mr = miniredis.RunT(s.T())
	s.client = redis.NewClient(&redis.Options{Addr: s.mr.Addr()})
	s.clock = clockwork.NewFakeClockAt(time.UnixMilli(60_000))
	s.cfg = &Config{
		Enabled: true,
		Stream:  testStream,
		Buffer:  8,
		Retry: retry.Policy{
			InitialInterval: time.Millisecond,
			MaxInterval:     time.Millisecond,
			MaxElapsedTime:  50 * time.Millisecond,
		},
	}
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 5*time.Second)
}

func (s *PublisherSuite) TearDownTest() {
	s.cancel()
	_ = s.client.Close()
}

func (s *PublisherSuite) newPublisher() *Publisher {
	p, err := NewPublisher(s.cfg, s.client, s.clock, log.NewNop())
	s.Require().NoError(err)
	return p
}

func (s *PublisherSuite) run(p *Publisher) (context.CancelFunc, <-chan struct{}) {
	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.NoError(p.Run(ctx))
	}()
	return cancel, done
}

func (s *PublisherSuite) streamLen() int64 {
	n, err := s.client.XLen(s.ctx, testStream).Result()
	s.Require().NoError(err)
	return n
}

func (s *PublisherSuite) TestPublishWritesEntries() {
	p := s.newPublisher()
	stop, done := s.run(p)
	defer func() {
		stop()
		<-done
	}()

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p.Publish(party.ActivityEvent{Type: constants.ActivityRoomOpened, RoomID: "r1", At: at})
	p.Publish(party.ActivityEvent{
		Type:        constants.ActivityMemberJoined,
		RoomID:      "r1",
		ConnID:      "c1",
		DisplayName: "Alice",
		At:          at,
	})

	s.Eventually(func() bool { return s.streamLen() == 2 }, time.Second, 10*time.Millisecond)

	msgs, err := s.client.XRange(s.ctx, testStream, "-", "+").Result()
	s.Require().NoError(err)
	s.Require().Len(msgs, 2)

	ev, node := Decode(msgs[1].Values)
	s.Equal(constants.ActivityMemberJoined, ev.Type)
	s.Equal("r1", ev.RoomID)
	s.Equal("c1", ev.ConnID)
	s.Equal("Alice", ev.DisplayName)
	s.True(at.Equal(ev.At))
	s.NotEmpty(node)

	s.NotContains(msgs[0].Values, fieldConnID)
}

func (s *PublisherSuite) TestPublishDropsWhenFull() {
	s.cfg.Buffer = 2
	p := s.newPublisher()

	for i := 0; i < 5; i++ {
		p.Publish(party.ActivityEvent{Type: constants.ActivityMemberJoined, RoomID: "r1"})
	}
	s.Len(p.queue, 2)
}

func (s *PublisherSuite) TestRunDrainsOnShutdown() {
	p := s.newPublisher()
	for i := 0; i < 3; i++ {
		p.Publish(party.ActivityEvent{Type: constants.ActivityMemberLeft, RoomID: "r1"})
	}

	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	s.NoError(p.Run(ctx))

	s.Equal(int64(3), s.streamLen())
	s.Empty(p.queue)
}

func (s *PublisherSuite) TestWriteGivesUpAfterRetries() {
	p := s.newPublisher()
	s.mr.SetError("LOADING redis is loading")

	p.write(s.ctx, party.ActivityEvent{Type: constants.ActivityRoomClosed, RoomID: "r1"})

	s.mr.SetError("")
	s.Equal(int64(0), s.streamLen())
}

func (s *PublisherSuite) TestRetentionTrim() {
	s.cfg.Retention = 30 * time.Second
	s.cfg.TrimInterval = time.Minute
	for _, id := range []string{"1000-0", "20000-0", "50000-0"} {
		s.Require().NoError(s.client.XAdd(s.ctx, &redis.XAddArgs{
			Stream: testStream,
			ID:     id,
			Values: map[string]any{fieldType: "seed"},
		}).Err())
	}

	p := s.newPublisher()
	stop, done := s.run(p)
	defer func() {
		stop()
		<-done
	}()

	s.Require().NoError(s.clock.BlockUntilContext(s.ctx, 1))
	s.clock.Advance(time.Minute)

	// clock is now 120s; entries before 90s go
	s.Eventually(func() bool { return s.streamLen() == 0 }, time.Second, 10*time.Millisecond)
}

func (s *PublisherSuite) TestEncodeOmitsEmpty() {
	values := Encode(party.ActivityEvent{
		Type:   constants.ActivityModeChanged,
		RoomID: "r1",
		Detail: "netflix",
		At:     time.Unix(0, 0),
	}, "")

	s.Equal(map[string]any{
		fieldType:   constants.ActivityModeChanged,
		fieldRoomID: "r1",
		fieldDetail: "netflix",
		fieldAt:     "1970-01-01T00:00:00Z",
	}, values)
}

func (s *PublisherSuite) TestNewPublisherRequiresStream() {
	s.cfg.Stream = ""
	_, err := NewPublisher(s.cfg, s.client, s.clock, log.NewNop())
	s.Error(err)
}
