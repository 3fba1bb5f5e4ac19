package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/viper"

	"github.com/imtaco/watch-party/internal/log"
)

type Retry interface {
	// Do runs operation until it succeeds, returns a Permanent error, the
	// policy gives up or ctx ends.
	Do(ctx context.Context, operation func() error) error
}

// Policy is an exponential backoff schedule. MaxElapsedTime 0 retries forever.
type Policy struct {
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time"`
}

func Forever() Policy {
	return Policy{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

func Setup(v *viper.Viper, prefix string) {
	p := func(key string) string { return prefix + "." + key }

	v.SetDefault(p("initial_interval"), "100ms")
	v.SetDefault(p("max_interval"), "5s")
	v.SetDefault(p("max_elapsed_time"), "30s")
}

// Permanent stops Do immediately and makes it return err.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

func New(policy Policy, logger *log.Logger) Retry {
	return &retryImpl{
		policy: policy,
		logger: logger,
	}
}

type retryImpl struct {
	policy Policy
	logger *log.Logger
}

func (r *retryImpl) backoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	if r.policy.InitialInterval > 0 {
		b.InitialInterval = r.policy.InitialInterval
	}
	if r.policy.MaxInterval > 0 {
		b.MaxInterval = r.policy.MaxInterval
	}
	b.MaxElapsedTime = r.policy.MaxElapsedTime
	b.Reset()
	return b
}

func (r *retryImpl) Do(ctx context.Context, operation func() error) error {
	attempt := 0
	return backoff.RetryNotify(
		func() error {
			attempt++
			return operation()
		},
		backoff.WithContext(r.backoff(), ctx),
		func(err error, next time.Duration) {
			r.logger.Warn("Retry attempt failed",
				log.Int("attempt", attempt),
				log.Duration("next", next),
				log.Error(err))
		},
	)
}
