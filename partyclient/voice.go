package partyclient

import (
	"context"
	"encoding/json"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pion/webrtc/v4"

	"github.com/imtaco/watch-party/internal/constants"
	"github.com/imtaco/watch-party/internal/log"
	"github.com/imtaco/watch-party/internal/scheduler"
	"github.com/imtaco/watch-party/party"
)

type PeerState int

const (
	PeerIdle PeerState = iota
	PeerNegotiating
	PeerConnected
	PeerDisconnected
	PeerFailed
)

func (s PeerState) String() string {
	switch s {
	case PeerIdle:
		return "idle"
	case PeerNegotiating:
		return "negotiating"
	case PeerConnected:
		return "connected"
	case PeerDisconnected:
		return "disconnected"
	case PeerFailed:
		return "failed"
	}
	return "unknown"
}

// Negotiator owns the media side of every remote voice peer.
// PionNegotiator is the stock implementation.
type Negotiator interface {
	Bind(r PeerReporter)
	Offer(remoteID string) (webrtc.SessionDescription, error)
	Answer(remoteID string, offer webrtc.SessionDescription) (webrtc.SessionDescription, error)
	Accept(remoteID string, answer webrtc.SessionDescription) error
	AddCandidate(remoteID string, cand webrtc.ICECandidateInit) error
	Close(remoteID string)
}

// PeerReporter receives what a Negotiator observes on its connections.
type PeerReporter interface {
	ReportState(remoteID string, state webrtc.PeerConnectionState)
	ReportCandidate(remoteID string, cand webrtc.ICECandidateInit)
}

type voicePeer struct {
	displayName string
	state       PeerState
}

// VoiceMesh keeps one peer connection per voice participant in a room.
// Newcomers are offered by everyone already in voice. A peer that does not
// reach connected within the negotiation timeout is failed and dropped;
// disconnected and failed peers are dropped as well.
type VoiceMesh struct {
	conn    Conn
	roomID  string
	neg     Negotiator
	timeout time.Duration
	sched   *scheduler.KeyedScheduler
	logger  *log.Logger

	mu       sync.Mutex
	active   bool
	peers    map[string]*voicePeer
	stateFns []func(remoteID string, state PeerState)
	unsubs   []func()
}

var _ PeerReporter = (*VoiceMesh)(nil)

func NewVoiceMesh(
	conn Conn,
	roomID string,
	neg Negotiator,
	timeout time.Duration,
	clock clockwork.Clock,
	logger *log.Logger,
) *VoiceMesh {
	if timeout <= 0 {
		timeout = DefaultNegotiationTimeout
	}
	m := &VoiceMesh{
		conn:    conn,
		roomID:  roomID,
		neg:     neg,
		timeout: timeout,
		logger:  logger.Module("VoiceMesh"),
		peers:   make(map[string]*voicePeer),
	}
	m.sched = scheduler.NewKeyedScheduler(clock, m.onTimeout, m.logger)
	neg.Bind(m)

	m.unsubs = []func(){
		subscribe(conn, m.logger, constants.EventVoiceUserJoined, m.handleUserJoined),
		subscribe(conn, m.logger, constants.EventVoiceUserLeft, m.handleUserLeft),
		subscribe(conn, m.logger, constants.EventVoiceOffer, m.handleOffer),
		subscribe(conn, m.logger, constants.EventVoiceAnswer, m.handleAnswer),
		subscribe(conn, m.logger, constants.EventVoiceICECandidate, m.handleCandidate),
	}
	return m
}

// NewVoiceMesh binds a mesh to the room the client is in.
func (c *Client) NewVoiceMesh(neg Negotiator, timeout time.Duration) (*VoiceMesh, error) {
	roomID, err := c.room()
	if err != nil {
		return nil, err
	}
	return NewVoiceMesh(c, roomID, neg, timeout, c.opts.clock, c.logger), nil
}

// OnPeerState reports every transition. Dropped peers report their final
// state and are idle afterwards.
func (m *VoiceMesh) OnPeerState(fn func(remoteID string, state PeerState)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stateFns = append(m.stateFns, fn)
}

func (m *VoiceMesh) State(remoteID string) PeerState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.peers[remoteID]; ok {
		return p.state
	}
	return PeerIdle
}

func (m *VoiceMesh) Peers() map[string]PeerState {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]PeerState, len(m.peers))
	for id, p := range m.peers {
		out[id] = p.state
	}
	return out
}

func (m *VoiceMesh) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Join announces this member in voice; members already in voice send offers.
func (m *VoiceMesh) Join(ctx context.Context) error {
	m.mu.Lock()
	if m.active {
		m.mu.Unlock()
		return nil
	}
	m.active = true
	m.mu.Unlock()

	if err := m.conn.Emit(ctx, constants.EventVoiceJoin, &party.PresenceParams{RoomID: m.roomID}); err != nil {
		m.mu.Lock()
		m.active = false
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *VoiceMesh) Leave(ctx context.Context) error {
	m.mu.Lock()
	if !m.active {
		m.mu.Unlock()
		return nil
	}
	m.active = false
	m.mu.Unlock()

	m.dropAll()
	return m.conn.Emit(ctx, constants.EventVoiceLeave, &party.RoomParams{RoomID: m.roomID})
}

// Close tears down every peer without telling the room.
func (m *VoiceMesh) Close() {
	for _, unsub := range m.unsubs {
		unsub()
	}
	m.mu.Lock()
	m.active = false
	m.mu.Unlock()

	m.dropAll()
	m.sched.Shutdown()
}

func (m *VoiceMesh) handleUserJoined(ev party.VoiceUserJoined) {
	if !m.begin(ev.ConnectionID, ev.DisplayName) {
		return
	}
	offer, err := m.neg.Offer(ev.ConnectionID)
	if err != nil {
		m.logger.Warn("Failed to create offer", log.ConnID(ev.ConnectionID), log.Error(err))
		m.drop(ev.ConnectionID, PeerFailed)
		return
	}
	m.send(constants.EventVoiceOffer, ev.ConnectionID, offer)
}

func (m *VoiceMesh) handleUserLeft(ev party.VoiceUserLeft) {
	m.drop(ev.ConnectionID, PeerIdle)
}

func (m *VoiceMesh) handleOffer(sig party.Signal) {
	var offer webrtc.SessionDescription
	if !m.decode(sig, &offer) || !m.begin(sig.From, "") {
		return
	}
	answer, err := m.neg.Answer(sig.From, offer)
	if err != nil {
		m.logger.Warn("Failed to answer offer", log.ConnID(sig.From), log.Error(err))
		m.drop(sig.From, PeerFailed)
		return
	}
	m.send(constants.EventVoiceAnswer, sig.From, answer)
}

func (m *VoiceMesh) handleAnswer(sig party.Signal) {
	var answer webrtc.SessionDescription
	if !m.known(sig.From) || !m.decode(sig, &answer) {
		return
	}
	if err := m.neg.Accept(sig.From, answer); err != nil {
		m.logger.Warn("Failed to apply answer", log.ConnID(sig.From), log.Error(err))
		m.drop(sig.From, PeerFailed)
	}
}

func (m *VoiceMesh) handleCandidate(sig party.Signal) {
	var cand webrtc.ICECandidateInit
	if !m.known(sig.From) || !m.decode(sig, &cand) {
		return
	}
	if err := m.neg.AddCandidate(sig.From, cand); err != nil {
		m.logger.Warn("Failed to add ICE candidate", log.ConnID(sig.From), log.Error(err))
	}
}

func (m *VoiceMesh) ReportState(remoteID string, state webrtc.PeerConnectionState) {
	switch state {
	case webrtc.PeerConnectionStateConnected:
		m.sched.Cancel(remoteID)
		m.transition(remoteID, PeerConnected)
	case webrtc.PeerConnectionStateDisconnected:
		m.drop(remoteID, PeerDisconnected)
	case webrtc.PeerConnectionStateFailed:
		m.drop(remoteID, PeerFailed)
	case webrtc.PeerConnectionStateClosed:
		m.drop(remoteID, PeerIdle)
	}
}

func (m *VoiceMesh) ReportCandidate(remoteID string, cand webrtc.ICECandidateInit) {
	if m.known(remoteID) {
		m.send(constants.EventVoiceICECandidate, remoteID, cand)
	}
}

// begin moves a peer into negotiation and arms its timeout. It refuses
// while the mesh is inactive.
func (m *VoiceMesh) begin(remoteID, displayName string) bool {
	if remoteID == "" {
		return false
	}
	m.mu.Lock()
	if !m.active {
		m.mu.Unlock()
		m.logger.Debug("Ignoring voice peer while not in voice", log.ConnID(remoteID))
		return false
	}
	p, ok := m.peers[remoteID]
	if !ok {
		p = &voicePeer{}
		m.peers[remoteID] = p
	}
	if displayName != "" {
		p.displayName = displayName
	}
	p.state = PeerNegotiating
	m.mu.Unlock()

	m.sched.Schedule(remoteID, m.timeout)
	m.notify(remoteID, PeerNegotiating)
	return true
}

func (m *VoiceMesh) transition(remoteID string, state PeerState) {
	m.mu.Lock()
	p, ok := m.peers[remoteID]
	if !ok || p.state == state {
		m.mu.Unlock()
		return
	}
	p.state = state
	m.mu.Unlock()

	m.notify(remoteID, state)
}

// drop forgets a peer and closes its connection, reporting final.
func (m *VoiceMesh) drop(remoteID string, final PeerState) {
	m.mu.Lock()
	if _, ok := m.peers[remoteID]; !ok {
		m.mu.Unlock()
		return
	}
	delete(m.peers, remoteID)
	m.mu.Unlock()

	m.sched.Cancel(remoteID)
	m.neg.Close(remoteID)
	m.logger.Info("Voice peer dropped", log.ConnID(remoteID), log.String("state", final.String()))
	m.notify(remoteID, final)
}

func (m *VoiceMesh) dropAll() {
	m.mu.Lock()
	ids := slices.Sorted(maps.Keys(m.peers))
	m.mu.Unlock()

	for _, id := range ids {
		m.drop(id, PeerIdle)
	}
}

func (m *VoiceMesh) onTimeout(remoteID string) {
	if m.State(remoteID) != PeerNegotiating {
		return
	}
	m.logger.Warn("Voice negotiation timed out", log.ConnID(remoteID), log.Duration("timeout", m.timeout))
	m.drop(remoteID, PeerFailed)
}

func (m *VoiceMesh) known(remoteID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.peers[remoteID]
	return ok
}

func (m *VoiceMesh) decode(sig party.Signal, v any) bool {
	if err := json.Unmarshal(sig.Payload, v); err != nil {
		m.logger.Warn("Dropping undecodable voice signal", log.ConnID(sig.From), log.Error(err))
		return false
	}
	return true
}

func (m *VoiceMesh) send(event, remoteID string, payload any) {
	// signals are emitted from callbacks, there is no caller context
	if err := emitSignal(context.Background(), m.conn, event, m.roomID, remoteID, payload); err != nil {
		m.logger.Warn("Failed to send voice signal",
			log.Event(event),
			log.ConnID(remoteID),
			log.Error(err))
	}
}

func (m *VoiceMesh) notify(remoteID string, state PeerState) {
	m.mu.Lock()
	fns := slices.Clone(m.stateFns)
	m.mu.Unlock()
	for _, fn := range fns {
		fn(remoteID, state)
	}
}
