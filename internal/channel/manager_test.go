package channel

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/RF-YVY/aprswx/internal/config"
	"github.com/RF-YVY/aprswx/pkg/logger"
)

func testChannelConfig(relayURL string) config.ChannelConfig {
	return config.ChannelConfig{
		RelayURL:              relayURL,
		HandshakeTimeoutSecs:  5,
		ReconnectBaseDelaySec: 1,
		ReconnectMaxDelaySec:  4,
		PacketWindowSize:      500,
		MessageWindowSize:     200,
	}
}

// testRelay is an in-process websocket endpoint standing in for the relay
type testRelay struct {
	server  *httptest.Server
	dials   atomic.Int64
	handler func(*websocket.Conn)
}

func newTestRelay(t *testing.T, handler func(*websocket.Conn)) *testRelay {
	t.Helper()
	r := &testRelay{handler: handler}
	upgrader := websocket.Upgrader{}
	r.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		r.dials.Add(1)
		if r.handler != nil {
			r.handler(conn)
		}
	}))
	t.Cleanup(r.server.Close)
	return r
}

func (r *testRelay) url() string {
	return "ws" + strings.TrimPrefix(r.server.URL, "http") + "/ws/aprs/"
}

func testManager(t *testing.T, relayURL string) *Manager {
	t.Helper()
	m := NewManager(testChannelConfig(relayURL), logger.NewNop())
	t.Cleanup(m.Close)
	return m
}

func waitState(t *testing.T, m *Manager, want ConnectionState) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if m.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("state never reached %s, got %s", want, m.State())
}

func TestManagerMergesStationUpdates(t *testing.T) {
	relay := newTestRelay(t, func(conn *websocket.Conn) {
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(
			`{"type":"station_update","station":{"callsign":"N0CALL-9","latitude":35.0,"longitude":-97.0,"packet_count":1}}`))
		conn.WriteMessage(websocket.TextMessage, []byte(
			`{"type":"station_update","station":{"callsign":"N0CALL-9","latitude":35.5,"longitude":-97.5,"packet_count":2}}`))
		// Hold the connection open until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	m := testManager(t, relay.url())

	updates := make(chan []Station, 16)
	defer m.SubscribeStations(func(s []Station) { updates <- s })()

	m.Connect(Credentials{}, Filters{})
	waitState(t, m, StateConnected)

	deadline := time.After(3 * time.Second)
	for {
		select {
		case snapshot := <-updates:
			if len(snapshot) != 1 {
				t.Fatalf("expected 1 merged station, got %d", len(snapshot))
			}
			st := snapshot[0]
			if st.Latitude == nil || *st.Latitude != 35.5 {
				continue // first update, keep waiting for the second
			}
			if st.Callsign != "N0CALL-9" {
				t.Errorf("callsign = %q, want N0CALL-9", st.Callsign)
			}
			if st.PacketCount != 2 {
				t.Errorf("packet count = %d, want 2", st.PacketCount)
			}
			return
		case <-deadline:
			t.Fatal("never saw the merged station update")
		}
	}
}

func TestManagerInitialStationsReplace(t *testing.T) {
	relay := newTestRelay(t, func(conn *websocket.Conn) {
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(
			`{"type":"station_update","station":{"callsign":"STALE-1","latitude":1,"longitude":1}}`))
		conn.WriteMessage(websocket.TextMessage, []byte(
			`{"type":"initial_stations","stations":[{"callsign":"W1AW","latitude":41.7,"longitude":-72.7},{"callsign":"K5XYZ","latitude":32.8,"longitude":-96.8}]}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	m := testManager(t, relay.url())
	m.Connect(Credentials{}, Filters{})
	waitState(t, m, StateConnected)

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		stations := m.Stations()
		if len(stations) == 2 {
			if stations[0].Callsign != "K5XYZ" || stations[1].Callsign != "W1AW" {
				t.Fatalf("unexpected station set: %+v", stations)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("initial_stations never replaced the set, have %+v", m.Stations())
}

func TestManagerDoubleConnectDialsOnce(t *testing.T) {
	relay := newTestRelay(t, func(conn *websocket.Conn) {
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	m := testManager(t, relay.url())
	m.Connect(Credentials{}, Filters{})
	m.Connect(Credentials{}, Filters{})
	m.Connect(Credentials{}, Filters{})
	waitState(t, m, StateConnected)

	time.Sleep(100 * time.Millisecond)
	if n := relay.dials.Load(); n != 1 {
		t.Errorf("expected exactly 1 dial, got %d", n)
	}
}

func TestManagerNoReconnectAfterDisconnect(t *testing.T) {
	relay := newTestRelay(t, func(conn *websocket.Conn) {
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	m := testManager(t, relay.url())
	m.Connect(Credentials{}, Filters{})
	waitState(t, m, StateConnected)
	m.Disconnect()

	// Longer than the reconnect base delay; no new dial may arrive
	time.Sleep(1500 * time.Millisecond)
	if n := relay.dials.Load(); n != 1 {
		t.Errorf("dial count after deliberate disconnect = %d, want 1", n)
	}
	if got := m.State(); got != StateDisconnected {
		t.Errorf("state = %s, want %s", got, StateDisconnected)
	}
}

func TestManagerReconnectsAfterDrop(t *testing.T) {
	// First connection is dropped immediately, later ones held open
	held := make(chan struct{})
	var first atomic.Bool
	relay := newTestRelay(t, func(conn *websocket.Conn) {
		if first.CompareAndSwap(false, true) {
			conn.Close()
			return
		}
		defer conn.Close()
		close(held)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	m := testManager(t, relay.url())
	m.Connect(Credentials{}, Filters{})

	select {
	case <-held:
	case <-time.After(5 * time.Second):
		t.Fatal("never reconnected after unexpected drop")
	}
	waitState(t, m, StateConnected)
	if n := relay.dials.Load(); n < 2 {
		t.Errorf("expected a second dial after drop, got %d", n)
	}
}

func TestManagerDropsMalformedMessages(t *testing.T) {
	relay := newTestRelay(t, func(conn *websocket.Conn) {
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(`{not json`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"station_update","station":"wrong shape"}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"no":"type field"}`))
		conn.WriteMessage(websocket.TextMessage, []byte(
			`{"type":"station_update","station":{"callsign":"N0CALL","latitude":30,"longitude":-90}}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	m := testManager(t, relay.url())
	m.Connect(Credentials{}, Filters{})
	waitState(t, m, StateConnected)

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if s := m.Stations(); len(s) == 1 && s[0].Callsign == "N0CALL" {
			if m.State() != StateConnected {
				t.Fatalf("connection should survive malformed messages, state = %s", m.State())
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("valid message after malformed ones was never processed")
}

func TestManagerReplaysQueuedSubscriptions(t *testing.T) {
	type subReq struct {
		Type             string `json:"type"`
		SubscriptionType string `json:"subscription_type"`
	}
	subs := make(chan subReq, 16)
	relay := newTestRelay(t, func(conn *websocket.Conn) {
		defer conn.Close()
		for {
			var req subReq
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			if req.Type == "subscribe" {
				subs <- req
			}
		}
	})

	m := testManager(t, relay.url())

	// Subscriptions issued before any connection exists must be queued
	m.Subscribe(DomainStations, Filters{})
	m.Subscribe(DomainWeather, Filters{})

	m.Connect(Credentials{}, Filters{})
	waitState(t, m, StateConnected)

	got := map[string]bool{}
	deadline := time.After(3 * time.Second)
	for len(got) < 2 {
		select {
		case req := <-subs:
			got[req.SubscriptionType] = true
		case <-deadline:
			t.Fatalf("queued subscriptions not replayed, saw %v", got)
		}
	}
	if !got[string(DomainStations)] || !got[string(DomainWeather)] {
		t.Errorf("replayed subscriptions = %v, want stations and weather", got)
	}
}

func TestManagerPacketWindowBounded(t *testing.T) {
	relay := newTestRelay(t, func(conn *websocket.Conn) {
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(
			`{"type":"packet_update","packet":{"source_callsign":"A1","timestamp":"2026-08-28T00:00:01Z"}}`))
		conn.WriteMessage(websocket.TextMessage, []byte(
			`{"type":"packet_update","packet":{"source_callsign":"A2","timestamp":"2026-08-28T00:00:02Z"}}`))
		conn.WriteMessage(websocket.TextMessage, []byte(
			`{"type":"packet_update","packet":{"source_callsign":"A3","timestamp":"2026-08-28T00:00:03Z"}}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	cfg := testChannelConfig(relay.url())
	cfg.PacketWindowSize = 2
	m := NewManager(cfg, logger.NewNop())
	t.Cleanup(m.Close)

	m.Connect(Credentials{}, Filters{})
	waitState(t, m, StateConnected)

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		p := m.Packets()
		if len(p) == 2 && p[0].SourceCallsign == "A2" && p[1].SourceCallsign == "A3" {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("packet window not bounded to oldest-out, have %+v", m.Packets())
}

func TestManagerSendFailsFastWhenDisconnected(t *testing.T) {
	m := testManager(t, "ws://127.0.0.1:1/ws/aprs/")

	if err := m.ConnectUpstream(UpstreamSettings{Callsign: "N0CALL"}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("ConnectUpstream while disconnected = %v, want ErrNotConnected", err)
	}
	if err := m.DisconnectUpstream(); !errors.Is(err, ErrNotConnected) {
		t.Errorf("DisconnectUpstream while disconnected = %v, want ErrNotConnected", err)
	}
}

func TestManagerStateReplayOnSubscribe(t *testing.T) {
	m := testManager(t, "ws://127.0.0.1:1/ws/aprs/")

	got := make(chan ConnectionState, 1)
	defer m.SubscribeState(func(s ConnectionState) {
		select {
		case got <- s:
		default:
		}
	})()

	select {
	case s := <-got:
		if s != StateDisconnected {
			t.Errorf("replayed state = %s, want %s", s, StateDisconnected)
		}
	case <-time.After(time.Second):
		t.Fatal("state subscriber saw no replay")
	}
}
