package retry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/imtaco/watch-party/internal/errors"
	"github.com/imtaco/watch-party/internal/log"
)

const errFlaky errors.Code = "flaky"

type RetrySuite struct {
	suite.Suite
	retry Retry
}

func TestRetrySuite(t *testing.T) {
	suite.Run(t, new(RetrySuite))
}

func (s *RetrySuite) SetupTest() {
	s.retry = New(Policy{
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		MaxElapsedTime:  200 * time.Millisecond,
	}, log.NewTest(s.T()))
}

func (s *RetrySuite) TestSucceedsAfterFailures() {
	calls := 0
	err := s.retry.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New(errFlaky, "not yet")
		}
		return nil
	})
	s.NoError(err)
	s.Equal(3, calls)
}

func (s *RetrySuite) TestPermanentStopsImmediately() {
	calls := 0
	err := s.retry.Do(context.Background(), func() error {
		calls++
		return Permanent(errors.New(errFlaky, "give up"))
	})
	s.ErrorIs(err, errFlaky)
	s.Equal(1, calls)
}

func (s *RetrySuite) TestGivesUpAfterMaxElapsed() {
	err := s.retry.Do(context.Background(), func() error {
		return errors.New(errFlaky, "always")
	})
	s.ErrorIs(err, errFlaky)
}

func (s *RetrySuite) TestStopsOnContextCancel() {
	ctx, cancel := context.WithCancel(context.Background())
	r := New(Forever(), log.NewTest(s.T()))

	calls := 0
	err := r.Do(ctx, func() error {
		calls++
		cancel()
		return errors.New(errFlaky, "down")
	})
	s.ErrorIs(err, context.Canceled)
	s.Equal(1, calls)
}
