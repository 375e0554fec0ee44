package ws

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AiPlugs/backend/internal/navigation"
)

func newServer(t *testing.T, s *Stream) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/events", s.HandleConnection)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/events"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg message
	require.NoError(t, sonic.Unmarshal(data, &msg))
	return msg
}

func TestStreamDeliversReports(t *testing.T) {
	s := NewStream(nil, nil)
	conn := dial(t, newServer(t, s))

	assert.Equal(t, "system", readMessage(t, conn).Type)
	require.Eventually(t, func() bool { return s.Clients() == 1 }, time.Second, 10*time.Millisecond)

	s.Report(navigation.Delivery{
		Type:      navigation.OutcomeDelivered,
		ContextID: "tab-1",
		NavID:     "nav-1",
		Scripts:   []string{"http://127.0.0.1:5000/a.js"},
		Time:      time.Now(),
	})

	msg := readMessage(t, conn)
	assert.Equal(t, "delivery", msg.Type)
	require.NotNil(t, msg.Delivery)
	assert.Equal(t, navigation.OutcomeDelivered, msg.Delivery.Type)
	assert.Equal(t, []string{"http://127.0.0.1:5000/a.js"}, msg.Delivery.Scripts)
}

func TestStreamAnswersPing(t *testing.T) {
	s := NewStream(nil, nil)
	conn := dial(t, newServer(t, s))
	readMessage(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	assert.Equal(t, "pong", readMessage(t, conn).Type)
}

func TestStreamForgetsClosedClients(t *testing.T) {
	s := NewStream(nil, nil)
	conn := dial(t, newServer(t, s))
	readMessage(t, conn)
	require.Eventually(t, func() bool { return s.Clients() == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return s.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestReportWithoutClientsDoesNotBlock(t *testing.T) {
	s := NewStream(nil, nil)
	for i := 0; i < 1000; i++ {
		s.Report(navigation.Delivery{Type: navigation.OutcomeAbandoned, Time: time.Now()})
	}
	assert.Zero(t, s.Dropped())
}

func TestSlowClientDropsFrames(t *testing.T) {
	s := NewStream(nil, nil)
	cl := &client{send: make(chan []byte, 1)}
	s.clients[cl] = struct{}{}

	s.broadcast([]byte("a"))
	s.broadcast([]byte("b"))
	s.broadcast([]byte("c"))

	assert.Equal(t, uint64(2), s.Dropped())
	s.Close()
	assert.Zero(t, s.Clients())
}
