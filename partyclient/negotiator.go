package partyclient

import (
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/imtaco/watch-party/internal/errors"
	"github.com/imtaco/watch-party/internal/log"
)

const (
	ErrNoPeer      errors.Code = "no_peer"
	ErrNegotiation errors.Code = "negotiation_failed"
)

// PionNegotiator runs one pion PeerConnection per remote member. Local
// tracks added with AddTrack are sent to every peer created afterwards;
// without any, peers are negotiated receive-only for audio.
type PionNegotiator struct {
	config webrtc.Configuration
	logger *log.Logger

	mu       sync.Mutex
	peers    map[string]*webrtc.PeerConnection
	tracks   []webrtc.TrackLocal
	reporter PeerReporter
	onTrack  func(remoteID string, track *webrtc.TrackRemote)
}

var _ Negotiator = (*PionNegotiator)(nil)

func NewPionNegotiator(config webrtc.Configuration, logger *log.Logger) *PionNegotiator {
	return &PionNegotiator{
		config: config,
		logger: logger.Module("Negotiator"),
		peers:  make(map[string]*webrtc.PeerConnection),
	}
}

func (n *PionNegotiator) Bind(r PeerReporter) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reporter = r
}

func (n *PionNegotiator) AddTrack(track webrtc.TrackLocal) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tracks = append(n.tracks, track)
}

// OnTrack sets the callback for remote audio.
func (n *PionNegotiator) OnTrack(fn func(remoteID string, track *webrtc.TrackRemote)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onTrack = fn
}

func (n *PionNegotiator) Offer(remoteID string) (webrtc.SessionDescription, error) {
	pc, err := n.peer(remoteID, true)
	if err != nil {
		return webrtc.SessionDescription{}, err
	}
	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, errors.Wrap(ErrNegotiation, err, "create offer")
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		return webrtc.SessionDescription{}, errors.Wrap(ErrNegotiation, err, "set local offer")
	}
	return offer, nil
}

func (n *PionNegotiator) Answer(remoteID string, offer webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	pc, err := n.peer(remoteID, true)
	if err != nil {
		return webrtc.SessionDescription{}, err
	}
	if err := pc.SetRemoteDescription(offer); err != nil {
		return webrtc.SessionDescription{}, errors.Wrap(ErrNegotiation, err, "set remote offer")
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, errors.Wrap(ErrNegotiation, err, "create answer")
	}
	if err := pc.SetLocalDescription(answer); err != nil {
		return webrtc.SessionDescription{}, errors.Wrap(ErrNegotiation, err, "set local answer")
	}
	return answer, nil
}

func (n *PionNegotiator) Accept(remoteID string, answer webrtc.SessionDescription) error {
	pc, err := n.peer(remoteID, false)
	if err != nil {
		return err
	}
	return errors.Wrap(ErrNegotiation, pc.SetRemoteDescription(answer), "set remote answer")
}

func (n *PionNegotiator) AddCandidate(remoteID string, cand webrtc.ICECandidateInit) error {
	pc, err := n.peer(remoteID, false)
	if err != nil {
		return err
	}
	return errors.Wrap(ErrNegotiation, pc.AddICECandidate(cand), "add ice candidate")
}

func (n *PionNegotiator) Close(remoteID string) {
	n.mu.Lock()
	pc, ok := n.peers[remoteID]
	delete(n.peers, remoteID)
	n.mu.Unlock()

	if !ok {
		return
	}
	// state callbacks may still fire while closing
	if err := pc.Close(); err != nil {
		n.logger.Warn("Failed to close peer connection", log.ConnID(remoteID), log.Error(err))
	}
}

func (n *PionNegotiator) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.peers)
}

func (n *PionNegotiator) peer(remoteID string, create bool) (*webrtc.PeerConnection, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if pc, ok := n.peers[remoteID]; ok {
		return pc, nil
	}
	if !create {
		return nil, errors.Newf(ErrNoPeer, "no peer connection for %s", remoteID)
	}

	pc, err := webrtc.NewPeerConnection(n.config)
	if err != nil {
		return nil, errors.Wrap(ErrNegotiation, err, "new peer connection")
	}
	if err := n.setupMedia(pc); err != nil {
		_ = pc.Close()
		return nil, err
	}

	reporter, onTrack := n.reporter, n.onTrack
	pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		// nil marks the end of gathering
		if cand != nil && reporter != nil {
			reporter.ReportCandidate(remoteID, cand.ToJSON())
		}
	})
	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		n.logger.Debug("Peer connection state",
			log.ConnID(remoteID),
			log.String("state", s.String()))
		if reporter != nil {
			reporter.ReportState(remoteID, s)
		}
	})
	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		n.logger.Info("Remote track",
			log.ConnID(remoteID),
			log.String("kind", track.Kind().String()),
			log.String("trackId", track.ID()))
		if onTrack != nil {
			onTrack(remoteID, track)
		}
	})

	n.peers[remoteID] = pc
	return pc, nil
}

func (n *PionNegotiator) setupMedia(pc *webrtc.PeerConnection) error {
	if len(n.tracks) == 0 {
		_, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio, webrtc.RTPTransceiverInit{
			Direction: webrtc.RTPTransceiverDirectionRecvonly,
		})
		return errors.Wrap(ErrNegotiation, err, "add audio transceiver")
	}
	for _, track := range n.tracks {
		if _, err := pc.AddTrack(track); err != nil {
			return errors.Wrap(ErrNegotiation, err, "add local track")
		}
	}
	return nil
}
