package transport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"

	"github.com/imtaco/watch-party/internal/log"
	"github.com/imtaco/watch-party/party"
	"github.com/imtaco/watch-party/party/mocks"
)

var testNow = time.Unix(1714593600, 0)

func setupRouter(t *testing.T, origins ...string) (*Router, *mocks.MockRoomDirectory) {
	gin.SetMode(gin.TestMode)

	ctrl := gomock.NewController(t)
	mockRooms := mocks.NewMockRoomDirectory(ctrl)
	ice := &party.ICEConfig{
		Servers: []party.ICEServer{
			{URLs: []string{"stun:stun.example.org:3478"}},
			{URLs: []string{"turn:turn.example.org:443"}, Username: "u", Credential: "p"},
		},
		CandidatePoolSize: 10,
	}
	ws := func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router := NewRouter(mockRooms, ice, ws, origins, clockwork.NewFakeClockAt(testNow), log.NewTest(t))
	return router, mockRooms
}

func serve(router *Router, method, url string, header http.Header) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, url, nil)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	router.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	router, _ := setupRouter(t)

	w := serve(router, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "ok", response["status"])
	assert.Equal(t, "partyd", response["service"])
	assert.Equal(t, float64(testNow.Unix()), response["timestamp"])
}

func TestListRooms(t *testing.T) {
	router, mockRooms := setupRouter(t)

	mockRooms.EXPECT().ListRooms().Return([]party.RoomSummary{
		{RoomID: "a", MemberCount: 2, Mode: party.ModePlatform, IsPlaying: true},
		{RoomID: "b", MemberCount: 1, Mode: party.ModeEmbedded, VideoURL: "u1"},
	})

	w := serve(router, "GET", "/api/rooms", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"rooms":[
		{"roomId":"a","memberCount":2,"mode":"netflix","videoUrl":"","isPlaying":true},
		{"roomId":"b","memberCount":1,"mode":"movie2watch","videoUrl":"u1","isPlaying":false}
	]}`, w.Body.String())
}

func TestListRoomsEmpty(t *testing.T) {
	router, mockRooms := setupRouter(t)
	mockRooms.EXPECT().ListRooms().Return([]party.RoomSummary{})

	w := serve(router, "GET", "/api/rooms", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"rooms":[]}`, w.Body.String())
}

func TestGetRoom(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		router, mockRooms := setupRouter(t)
		mockRooms.EXPECT().GetRoom("r1").Return(party.Snapshot{
			VideoURL:    "u1",
			IsPlaying:   true,
			CurrentTime: 12.5,
			Mode:        party.ModeEmbedded,
			Users:       []string{"Alice", "Bob"},
		}, true)

		w := serve(router, "GET", "/api/rooms/r1", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"videoUrl":"u1","isPlaying":true,"currentTime":12.5,"mode":"movie2watch","users":["Alice","Bob"]}`,
			w.Body.String())
	})

	t.Run("EscapedID", func(t *testing.T) {
		router, mockRooms := setupRouter(t)
		mockRooms.EXPECT().GetRoom("Movie Night").Return(party.Snapshot{Mode: party.ModeEmbedded, Users: []string{"Alice"}}, true)

		w := serve(router, "GET", "/api/rooms/Movie%20Night", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("NotFound", func(t *testing.T) {
		router, mockRooms := setupRouter(t)
		mockRooms.EXPECT().GetRoom("gone").Return(party.Snapshot{}, false)

		w := serve(router, "GET", "/api/rooms/gone", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("InvalidID", func(t *testing.T) {
		router, _ := setupRouter(t)

		w := serve(router, "GET", "/api/rooms/%20%20", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "Validation failed", response["error"])
		assert.NotEmpty(t, response["details"])
	})
}

func TestICEServers(t *testing.T) {
	router, _ := setupRouter(t)

	w := serve(router, "GET", "/api/ice-servers", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"iceServers":[
			{"urls":["stun:stun.example.org:3478"]},
			{"urls":["turn:turn.example.org:443"],"username":"u","credential":"p"}
		],
		"iceCandidatePoolSize":10
	}`, w.Body.String())
}

func TestWebSocketRoute(t *testing.T) {
	router, _ := setupRouter(t)

	w := serve(router, "GET", "/ws", nil)
	assert.Equal(t, http.StatusTeapot, w.Code)
}

func TestCORS(t *testing.T) {
	t.Run("AllowAll", func(t *testing.T) {
		router, mockRooms := setupRouter(t)
		mockRooms.EXPECT().ListRooms().Return(nil)

		w := serve(router, "GET", "/api/rooms", http.Header{"Origin": {"https://party.example"}})
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("Restricted", func(t *testing.T) {
		router, _ := setupRouter(t, "https://party.example")

		w := serve(router, "GET", "/api/rooms", http.Header{"Origin": {"https://evil.example"}})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestSetupDefaults(t *testing.T) {
	v := viper.New()
	Setup(v, "ice")

	var cfg struct {
		ICE party.ICEConfig `mapstructure:"ice"`
	}
	require.NoError(t, v.Unmarshal(&cfg))
	assert.Equal(t, 10, cfg.ICE.CandidatePoolSize)
	require.Len(t, cfg.ICE.Servers, len(defaultSTUN))
	assert.Equal(t, []string{"stun:stun.l.google.com:19302"}, cfg.ICE.Servers[0].URLs)
	assert.Empty(t, cfg.ICE.Servers[0].Username)
}
