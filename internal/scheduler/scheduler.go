package scheduler

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/imtaco/watch-party/internal/log"
)

// KeyedScheduler fires a callback once per key after a delay. Scheduling a
// key again replaces its pending deadline; Cancel drops it.
//
//	ks := NewKeyedScheduler(clock, func(peer string) { ... }, logger)
//	ks.Schedule("peer-1", 30*time.Second)
//	ks.Cancel("peer-1")
type KeyedScheduler struct {
	mu      sync.Mutex
	pending map[string]*deadline
	seq     uint64
	closed  bool
	onFire  func(key string)
	clock   clockwork.Clock
	logger  *log.Logger
}

type deadline struct {
	seq   uint64
	timer clockwork.Timer
	due   time.Time
}

func NewKeyedScheduler(clock clockwork.Clock, onFire func(key string), logger *log.Logger) *KeyedScheduler {
	if logger == nil {
		panic("logger is required")
	}
	if clock == nil {
		panic("clock is required")
	}
	if onFire == nil {
		panic("onFire is required")
	}
	return &KeyedScheduler{
		pending: make(map[string]*deadline),
		onFire:  onFire,
		clock:   clock,
		logger:  logger,
	}
}

func (ks *KeyedScheduler) Schedule(key string, delay time.Duration) {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	if ks.closed {
		return
	}
	if cur, ok := ks.pending[key]; ok {
		cur.timer.Stop()
	}

	ks.seq++
	seq := ks.seq
	ks.pending[key] = &deadline{
		seq:   seq,
		due:   ks.clock.Now().Add(delay),
		timer: ks.clock.AfterFunc(delay, func() { ks.fire(key, seq) }),
	}
}

// Due reports the pending deadline of key.
func (ks *KeyedScheduler) Due(key string) (time.Time, bool) {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	d, ok := ks.pending[key]
	if !ok {
		return time.Time{}, false
	}
	return d.due, true
}

func (ks *KeyedScheduler) Cancel(key string) {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	if d, ok := ks.pending[key]; ok {
		d.timer.Stop()
		delete(ks.pending, key)
	}
}

func (ks *KeyedScheduler) Len() int {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	return len(ks.pending)
}

// Shutdown cancels everything; later Schedule calls are ignored.
func (ks *KeyedScheduler) Shutdown() {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	ks.closed = true
	for key, d := range ks.pending {
		d.timer.Stop()
		delete(ks.pending, key)
	}
}

func (ks *KeyedScheduler) fire(key string, seq uint64) {
	ks.mu.Lock()
	d, ok := ks.pending[key]
	// a stopped timer may still run if it raced with Schedule or Cancel
	if !ok || d.seq != seq {
		ks.mu.Unlock()
		return
	}
	delete(ks.pending, key)
	ks.mu.Unlock()

	ks.logger.Debug("Deadline fired", log.String("key", key))
	ks.onFire(key)
}
