package partyclient

import (
	"context"
	"encoding/json"
	"slices"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/imtaco/watch-party/internal/errors"
)

type emitted struct {
	event  string
	params any
}

// fakeConn records emits and lets tests push server events.
type fakeConn struct {
	mu        sync.Mutex
	emits     []emitted
	listeners map[string][]*listener
	err       error
}

func newFakeConn() *fakeConn {
	return &fakeConn{listeners: make(map[string][]*listener)}
}

func (f *fakeConn) Emit(_ context.Context, event string, params any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.emits = append(f.emits, emitted{event: event, params: params})
	return nil
}

func (f *fakeConn) Subscribe(event string, fn func(json.RawMessage)) func() {
	l := &listener{fn: fn}
	f.mu.Lock()
	f.listeners[event] = append(f.listeners[event], l)
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.listeners[event] = slices.DeleteFunc(f.listeners[event], func(x *listener) bool { return x == l })
	}
}

func (f *fakeConn) push(event string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	f.mu.Lock()
	ls := slices.Clone(f.listeners[event])
	f.mu.Unlock()
	for _, l := range ls {
		l.fn(raw)
	}
}

func (f *fakeConn) sent() []emitted {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.emits)
}

func (f *fakeConn) events() []string {
	out := []string{}
	for _, e := range f.sent() {
		out = append(out, e.event)
	}
	return out
}

func (f *fakeConn) last() emitted {
	s := f.sent()
	if len(s) == 0 {
		return emitted{}
	}
	return s[len(s)-1]
}

func (f *fakeConn) subscribers(event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners[event])
}

// fakeNegotiator answers with canned descriptions.
type fakeNegotiator struct {
	mu         sync.Mutex
	reporter   PeerReporter
	offered    []string
	answered   []string
	accepted   []string
	candidates []webrtc.ICECandidateInit
	closed     []string
	offerErr   error
}

func (n *fakeNegotiator) Bind(r PeerReporter) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reporter = r
}

func (n *fakeNegotiator) Offer(remoteID string) (webrtc.SessionDescription, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.offerErr != nil {
		return webrtc.SessionDescription{}, n.offerErr
	}
	n.offered = append(n.offered, remoteID)
	return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "offer-" + remoteID}, nil
}

func (n *fakeNegotiator) Answer(remoteID string, offer webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if offer.Type != webrtc.SDPTypeOffer {
		return webrtc.SessionDescription{}, errors.New(ErrNegotiation, "not an offer")
	}
	n.answered = append(n.answered, remoteID)
	return webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "answer-" + remoteID}, nil
}

func (n *fakeNegotiator) Accept(remoteID string, _ webrtc.SessionDescription) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.accepted = append(n.accepted, remoteID)
	return nil
}

func (n *fakeNegotiator) AddCandidate(_ string, cand webrtc.ICECandidateInit) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.candidates = append(n.candidates, cand)
	return nil
}

func (n *fakeNegotiator) Close(remoteID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = append(n.closed, remoteID)
}

func (n *fakeNegotiator) closedPeers() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.closed)
}

func (n *fakeNegotiator) acceptedPeers() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.accepted)
}

func (n *fakeNegotiator) answeredPeers() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.answered)
}
