package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/suite"

	"github.com/imtaco/watch-party/internal/jsonrpc"
	"github.com/imtaco/watch-party/internal/log"
)

type peerState struct {
	name string
}

type recordingHooks struct {
	reject       bool
	connected    chan jsonrpc.MethodContext[peerState]
	disconnected chan int
}

func (h *recordingHooks) OnVerify(r *http.Request) (*peerState, bool, error) {
	if h.reject {
		return nil, false, nil
	}
	return &peerState{name: r.URL.Query().Get("name")}, true, nil
}

func (h *recordingHooks) OnConnect(mctx jsonrpc.MethodContext[peerState]) {
	h.connected <- mctx
}

func (h *recordingHooks) OnDisconnect(_ jsonrpc.MethodContext[peerState], code int) {
	h.disconnected <- code
}

type ServerSuite struct {
	suite.Suite
	hooks  *recordingHooks
	server *Server[peerState]
	http   *httptest.Server
	ctx    context.Context
	cancel context.CancelFunc
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerSuite))
}

func (s *ServerSuite) SetupTest() {
	s.hooks = &recordingHooks{
		connected:    make(chan jsonrpc.MethodContext[peerState], 8),
		disconnected: make(chan int, 8),
	}
	s.server = NewServer[peerState](s.hooks, []string{"*"}, log.NewTest(s.T()), WithReadLimit(1024))
	s.server.Def("whoami", func(mctx jsonrpc.MethodContext[peerState], _ *json.RawMessage) (any, error) {
		return map[string]string{"name": mctx.Get().name}, nil
	})
	s.http = httptest.NewServer(http.HandlerFunc(s.server.HandleWebSocket))
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 5*time.Second)
}

func (s *ServerSuite) TearDownTest() {
	s.cancel()
	s.http.Close()
}

func (s *ServerSuite) url(query string) string {
	return "ws" + strings.TrimPrefix(s.http.URL, "http") + "/?" + query
}

func (s *ServerSuite) dialPeer(query string) jsonrpc.Peer[peerState] {
	stream, err := Dial(s.ctx, s.url(query), nil, log.NewTest(s.T()))
	s.Require().NoError(err)
	peer := jsonrpc.NewPeer[peerState](stream, nil, log.NewTest(s.T()))
	return peer
}

func (s *ServerSuite) TestCallRoundTrip() {
	peer := s.dialPeer("name=alice")
	s.Require().NoError(peer.Open(s.ctx))
	defer peer.Close()

	var out map[string]string
	s.Require().NoError(peer.Call(s.ctx, "whoami", nil, &out))
	s.Equal("alice", out["name"])
}

func (s *ServerSuite) TestServerNotifiesClient() {
	got := make(chan string, 1)
	peer := s.dialPeer("name=bob")
	peer.Def("greet", func(_ jsonrpc.MethodContext[peerState], params *json.RawMessage) (any, error) {
		var p struct {
			Text string `json:"text"`
		}
		_ = json.Unmarshal(*params, &p)
		got <- p.Text
		return nil, nil
	})
	s.Require().NoError(peer.Open(s.ctx))
	defer peer.Close()

	mctx := <-s.hooks.connected
	s.Require().NoError(mctx.Peer().Notify(s.ctx, "greet", map[string]string{"text": "hi bob"}))

	select {
	case text := <-got:
		s.Equal("hi bob", text)
	case <-s.ctx.Done():
		s.Fail("notification not delivered")
	}
}

func (s *ServerSuite) TestNormalCloseReportsStatus() {
	peer := s.dialPeer("name=carol")
	s.Require().NoError(peer.Open(s.ctx))
	<-s.hooks.connected

	s.Require().NoError(peer.Close())

	select {
	case code := <-s.hooks.disconnected:
		s.Equal(int(websocket.StatusNormalClosure), code)
	case <-s.ctx.Done():
		s.Fail("disconnect hook not called")
	}
	<-peer.Done()
}

func (s *ServerSuite) TestGarbageFrameGetsParseErrorAndConnectionSurvives() {
	conn, _, err := websocket.Dial(s.ctx, s.url("name=dave"), nil)
	s.Require().NoError(err)
	defer conn.CloseNow()

	s.Require().NoError(conn.Write(s.ctx, websocket.MessageText, []byte("not json")))
	_, data, err := conn.Read(s.ctx)
	s.Require().NoError(err)
	s.Contains(string(data), `"code":-32700`)

	s.Require().NoError(conn.Write(s.ctx, websocket.MessageText,
		[]byte(`{"jsonrpc":"2.0","id":1,"method":"whoami"}`)))
	_, data, err = conn.Read(s.ctx)
	s.Require().NoError(err)
	s.JSONEq(`{"jsonrpc":"2.0","id":1,"result":{"name":"dave"}}`, string(data))
}

func (s *ServerSuite) TestOversizedFrameClosesConnection() {
	conn, _, err := websocket.Dial(s.ctx, s.url("name=erin"), nil)
	s.Require().NoError(err)
	defer conn.CloseNow()
	<-s.hooks.connected

	big := `{"jsonrpc":"2.0","method":"whoami","params":"` + strings.Repeat("x", 4096) + `"}`
	_ = conn.Write(s.ctx, websocket.MessageText, []byte(big))

	select {
	case code := <-s.hooks.disconnected:
		s.NotEqual(int(websocket.StatusNormalClosure), code)
	case <-s.ctx.Done():
		s.Fail("oversized frame should drop the connection")
	}
}

func (s *ServerSuite) TestRejectedVerification() {
	s.hooks.reject = true
	_, err := Dial(s.ctx, s.url("name=mallory"), nil, log.NewTest(s.T()))
	s.Require().Error(err)
	s.ErrorIs(err, ErrDial)
}
