package workflow

import "context"

// WithEitherDone derives a context from a that is also cancelled when b is done.
func WithEitherDone(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(a)
	stop := context.AfterFunc(b, cancel)

	return ctx, func() {
		stop()
		cancel()
	}
}
