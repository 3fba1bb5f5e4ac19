package partyclient

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
	"time"

	"github.com/imtaco/watch-party/internal/constants"
	"github.com/imtaco/watch-party/internal/errors"
	"github.com/imtaco/watch-party/internal/jsonrpc"
	wsrpc "github.com/imtaco/watch-party/internal/jsonrpc/websocket"
	"github.com/imtaco/watch-party/internal/log"
	"github.com/imtaco/watch-party/internal/retry"
	"github.com/imtaco/watch-party/internal/workflow"
	"github.com/imtaco/watch-party/party"
)

const (
	ErrNotConnected errors.Code = "not_connected"
	ErrClientClosed errors.Code = "client_closed"
	ErrNotJoined    errors.Code = "not_joined"
)

// serverEvents is every notification the gateway pushes to a member.
var serverEvents = []string{
	constants.EventRoomState,
	constants.EventUserJoined,
	constants.EventUserLeft,
	constants.EventVideoPlayed,
	constants.EventVideoPaused,
	constants.EventVideoSeeked,
	constants.EventVideoChanged,
	constants.EventSyncModeChanged,
	constants.EventReceiveChat,
	constants.EventReceiveNudge,
	constants.EventUserTyping,
	constants.EventUserStoppedTyping,
	constants.EventCountdownTick,
	constants.EventSyncCommand,
	constants.EventVoiceUserJoined,
	constants.EventVoiceUserLeft,
	constants.EventVoiceOffer,
	constants.EventVoiceAnswer,
	constants.EventVoiceICECandidate,
	constants.EventScreenStarted,
	constants.EventScreenStopped,
	constants.EventScreenOffer,
	constants.EventScreenAnswer,
	constants.EventScreenICECandidate,
}

type ConnState int

const (
	StateConnected ConnState = iota
	StateReconnecting
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Conn is what the voice, screen and countdown helpers need from a Client.
type Conn interface {
	Emit(ctx context.Context, event string, params any) error
	// Subscribe registers fn for a server event and returns a func that
	// removes it.
	Subscribe(event string, fn func(json.RawMessage)) func()
}

type listener struct {
	fn func(json.RawMessage)
}

// Client is one member connection to a watch party gateway. Callbacks run
// on the connection's read loop in arrival order and must not block.
type Client struct {
	url    string
	opts   options
	logger *log.Logger

	mu          sync.Mutex
	peer        jsonrpc.Peer[struct{}]
	state       ConnState
	connID      string
	roomID      string
	displayName string

	lmu       sync.RWMutex
	listeners map[string][]*listener
	stateFns  []func(ConnState)

	ctx    context.Context
	cancel context.CancelFunc
}

var _ Conn = (*Client)(nil)

// Dial connects to the gateway websocket endpoint, e.g. ws://host:8080/ws.
func Dial(ctx context.Context, url string, opts ...Option) (*Client, error) {
	o := newOptions(opts)
	c := &Client{
		url:       url,
		opts:      o,
		logger:    o.logger.Module("PartyClient"),
		listeners: make(map[string][]*listener),
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())

	peer, err := c.connect(ctx)
	if err != nil {
		c.cancel()
		return nil, err
	}
	c.peer = peer
	go c.supervise(peer)
	return c, nil
}

func (c *Client) connect(ctx context.Context) (jsonrpc.Peer[struct{}], error) {
	stream, err := wsrpc.Dial(ctx, c.url, c.opts.header, c.logger, c.opts.streamOpts...)
	if err != nil {
		return nil, err
	}
	peer := jsonrpc.NewPeer[struct{}](stream, nil, c.logger)
	for _, event := range serverEvents {
		peer.Def(event, c.dispatcher(event))
	}
	if err := peer.Open(c.ctx); err != nil {
		_ = peer.Close()
		return nil, err
	}
	return peer, nil
}

func (c *Client) dispatcher(event string) jsonrpc.MethodHandler[struct{}] {
	return func(_ jsonrpc.MethodContext[struct{}], params *json.RawMessage) (any, error) {
		var raw json.RawMessage
		if params != nil {
			raw = *params
		}
		c.dispatch(event, raw)
		return nil, nil
	}
}

func (c *Client) dispatch(event string, raw json.RawMessage) {
	c.lmu.RLock()
	ls := slices.Clone(c.listeners[event])
	c.lmu.RUnlock()

	for _, l := range ls {
		l.fn(raw)
	}
}

func (c *Client) Subscribe(event string, fn func(json.RawMessage)) func() {
	l := &listener{fn: fn}
	c.lmu.Lock()
	c.listeners[event] = append(c.listeners[event], l)
	c.lmu.Unlock()

	return func() {
		c.lmu.Lock()
		defer c.lmu.Unlock()
		c.listeners[event] = slices.DeleteFunc(c.listeners[event], func(x *listener) bool {
			return x == l
		})
	}
}

// OnStateChange reports reconnects and the final close.
func (c *Client) OnStateChange(fn func(ConnState)) {
	c.lmu.Lock()
	defer c.lmu.Unlock()
	c.stateFns = append(c.stateFns, fn)
}

func (c *Client) setState(s ConnState) {
	c.mu.Lock()
	if c.state == s {
		c.mu.Unlock()
		return
	}
	c.state = s
	c.mu.Unlock()

	c.logger.Info("Connection state changed", log.String("state", s.String()))

	c.lmu.RLock()
	fns := slices.Clone(c.stateFns)
	c.lmu.RUnlock()
	for _, fn := range fns {
		fn(s)
	}
}

func (c *Client) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ConnID is the id the gateway assigned on the last successful join.
func (c *Client) ConnID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connID
}

func (c *Client) RoomID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID
}

func (c *Client) DisplayName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.displayName
}

// Done is closed once the client is closed or gave up reconnecting.
func (c *Client) Done() <-chan struct{} {
	return c.ctx.Done()
}

func (c *Client) current() (jsonrpc.Peer[struct{}], error) {
	if c.ctx.Err() != nil {
		return nil, errors.New(ErrClientClosed, "client closed")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateConnected {
		return nil, errors.New(ErrNotConnected, "not connected")
	}
	return c.peer, nil
}

// Emit sends a client event as a notification.
func (c *Client) Emit(ctx context.Context, event string, params any) error {
	peer, err := c.current()
	if err != nil {
		return err
	}
	return peer.Notify(ctx, event, params)
}

// Request sends a client event as a request and waits for the gateway to
// process it. result may be nil. Closing the client aborts the wait.
func (c *Client) Request(ctx context.Context, event string, params, result any) error {
	peer, err := c.current()
	if err != nil {
		return err
	}
	ctx, cancel := workflow.WithEitherDone(ctx, c.ctx)
	defer cancel()
	return call(ctx, peer, c.opts.callTimeout, event, params, result)
}

func call(ctx context.Context, peer jsonrpc.Peer[struct{}], timeout time.Duration, event string, params, result any) error {
	return jsonrpc.TimeoutClient[struct{}](peer, timeout).Call(ctx, event, params, result)
}

// Join enters roomID and remembers it for rejoin after a reconnect. The
// gateway also pushes room-state before the reply arrives.
func (c *Client) Join(ctx context.Context, roomID, displayName string) (*party.JoinReply, error) {
	var reply party.JoinReply
	params := &party.JoinRoomParams{RoomID: roomID, DisplayName: displayName}
	if err := c.Request(ctx, constants.EventJoinRoom, params, &reply); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.roomID = roomID
	c.displayName = displayName
	c.connID = reply.ConnectionID
	c.mu.Unlock()

	c.logger.Info("Joined room",
		log.RoomID(roomID),
		log.ConnID(reply.ConnectionID),
		log.Int("users", len(reply.Room.Users)))
	return &reply, nil
}

// Leave exits the current room. It is a no-op when not joined.
func (c *Client) Leave(ctx context.Context) error {
	roomID := c.RoomID()
	if roomID == "" {
		return nil
	}
	if err := c.Request(ctx, constants.EventLeaveRoom, &party.RoomParams{RoomID: roomID}, nil); err != nil {
		return err
	}

	c.mu.Lock()
	c.roomID = ""
	c.displayName = ""
	c.mu.Unlock()
	return nil
}

func (c *Client) Close() error {
	c.cancel()

	c.mu.Lock()
	peer := c.peer
	c.mu.Unlock()

	var err error
	if peer != nil {
		if err = peer.Close(); errors.Is(err, jsonrpc.ErrClosed) {
			err = nil
		}
	}
	c.setState(StateClosed)
	return err
}

// supervise waits for the connection to drop and, when allowed, replaces it.
func (c *Client) supervise(peer jsonrpc.Peer[struct{}]) {
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-peer.Done():
		}
		if c.ctx.Err() != nil {
			return
		}

		if !c.opts.reconnect {
			c.logger.Info("Connection lost")
			c.shutdown()
			return
		}

		c.logger.Warn("Connection lost, reconnecting")
		c.setState(StateReconnecting)
		next, err := c.reconnect()
		if err != nil {
			c.logger.Error("Reconnect gave up", log.Error(err))
			c.shutdown()
			return
		}
		peer = next
		c.setState(StateConnected)
	}
}

func (c *Client) shutdown() {
	c.setState(StateClosed)
	c.cancel()
}

func (c *Client) reconnect() (jsonrpc.Peer[struct{}], error) {
	var next jsonrpc.Peer[struct{}]
	err := retry.New(c.opts.policy, c.logger).Do(c.ctx, func() error {
		ctx, cancel := context.WithTimeout(c.ctx, c.opts.callTimeout)
		defer cancel()

		peer, err := c.connect(ctx)
		if err != nil {
			return err
		}
		if err := c.rejoin(ctx, peer); err != nil {
			_ = peer.Close()
			// the gateway refused us, redialing will not change that
			if _, ok := errors.As[*jsonrpc.Error](err); ok {
				return retry.Permanent(err)
			}
			return err
		}
		next = peer
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctx.Err() != nil {
		_ = next.Close()
		return nil, errors.New(ErrClientClosed, "client closed")
	}
	c.peer = next
	return next, nil
}

// rejoin restores membership on a fresh connection. The gateway sees a new
// connection, so the member gets a new id and a fresh room-state.
func (c *Client) rejoin(ctx context.Context, peer jsonrpc.Peer[struct{}]) error {
	c.mu.Lock()
	roomID, name := c.roomID, c.displayName
	c.mu.Unlock()
	if roomID == "" {
		return nil
	}

	var reply party.JoinReply
	params := &party.JoinRoomParams{RoomID: roomID, DisplayName: name}
	if err := call(ctx, peer, c.opts.callTimeout, constants.EventJoinRoom, params, &reply); err != nil {
		return err
	}

	c.mu.Lock()
	c.connID = reply.ConnectionID
	c.mu.Unlock()
	c.logger.Info("Rejoined room", log.RoomID(roomID), log.ConnID(reply.ConnectionID))
	return nil
}
