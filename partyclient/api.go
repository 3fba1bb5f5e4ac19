package partyclient

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pion/webrtc/v4"

	"github.com/imtaco/watch-party/internal/errors"
	"github.com/imtaco/watch-party/internal/log"
	"github.com/imtaco/watch-party/party"
)

const (
	apiTimeout = 10 * time.Second

	ErrHTTP errors.Code = "http_error"
)

// API is the read side of the party HTTP server.
type API struct {
	client *resty.Client
	logger *log.Logger
}

func NewAPI(baseURL string, logger *log.Logger) *API {
	if logger == nil {
		panic("logger is required")
	}
	return &API{
		client: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetHeader("Accept", "application/json").
			SetTimeout(apiTimeout),
		logger: logger.Module("PartyAPI"),
	}
}

func (a *API) ListRooms(ctx context.Context) ([]party.RoomSummary, error) {
	var out struct {
		Rooms []party.RoomSummary `json:"rooms"`
	}
	if err := a.get(ctx, "/api/rooms", nil, &out); err != nil {
		return nil, err
	}
	return out.Rooms, nil
}

// GetRoom fails with party.ErrRoomNotFound when the room has no members.
func (a *API) GetRoom(ctx context.Context, roomID string) (*party.Snapshot, error) {
	var snap party.Snapshot
	err := a.get(ctx, "/api/rooms/{roomId}", map[string]string{"roomId": roomID}, &snap)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (a *API) ICEConfig(ctx context.Context) (*party.ICEConfig, error) {
	var ice party.ICEConfig
	if err := a.get(ctx, "/api/ice-servers", nil, &ice); err != nil {
		return nil, err
	}
	return &ice, nil
}

// FetchICEConfig returns the server's ICE setup ready for pion.
func (a *API) FetchICEConfig(ctx context.Context) (webrtc.Configuration, error) {
	ice, err := a.ICEConfig(ctx)
	if err != nil {
		return webrtc.Configuration{}, err
	}
	return WebRTCConfig(ice), nil
}

func (a *API) get(ctx context.Context, path string, pathParams map[string]string, result any) error {
	resp, err := a.client.R().
		SetContext(ctx).
		SetPathParams(pathParams).
		SetResult(result).
		Get(path)
	if err != nil {
		return errors.Wrapf(ErrHTTP, err, "GET %s", path)
	}

	a.logger.Debug("API response",
		log.String("path", resp.Request.URL),
		log.Int("status", resp.StatusCode()),
		log.Duration("took", resp.Time()))

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return errors.Newf(party.ErrRoomNotFound, "%s not found", resp.Request.URL)
	case resp.IsError():
		return errors.Newf(ErrHTTP, "GET %s: %s", resp.Request.URL, resp.Status())
	}
	return nil
}

func WebRTCConfig(ice *party.ICEConfig) webrtc.Configuration {
	servers := make([]webrtc.ICEServer, 0, len(ice.Servers))
	for _, s := range ice.Servers {
		server := webrtc.ICEServer{URLs: s.URLs}
		if s.Username != "" {
			server.Username = s.Username
			server.Credential = s.Credential
		}
		servers = append(servers, server)
	}
	pool := min(max(ice.CandidatePoolSize, 0), math.MaxUint8)
	return webrtc.Configuration{
		ICEServers:           servers,
		ICECandidatePoolSize: uint8(pool),
	}
}
