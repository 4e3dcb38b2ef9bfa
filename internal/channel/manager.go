package channel

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/RF-YVY/aprswx/internal/broadcast"
	"github.com/RF-YVY/aprswx/internal/config"
	"github.com/RF-YVY/aprswx/pkg/logger"
)

// ErrNotConnected is returned by send-side operations attempted while the
// channel is not connected. Subscription requests are the exception; those
// are queued and replayed on connect.
var ErrNotConnected = errors.New("channel not connected")

// Manager owns the single realtime connection to the relay. It tracks the
// connection lifecycle, demultiplexes server-pushed messages into typed
// per-domain broadcasters, and keeps desired subscription state across
// reconnects. The relay's own APRS-IS upstream link is toggled through the
// channel but its status is tracked independently of channel state.
type Manager struct {
	cfg    config.ChannelConfig
	dialer *websocket.Dialer
	logger *logger.Logger

	mu         sync.Mutex
	state      ConnectionState
	conn       *websocket.Conn
	deliberate bool
	closed     bool
	creds      Credentials
	filters    Filters
	desired    map[Domain]Filters
	backoff    time.Duration
	reconnect  *time.Timer
	upstream   UpstreamStatus

	writeMu sync.Mutex

	stations *stationSet
	packets  *recentWindow[Packet]
	messages *recentWindow[Message]
	weather  WeatherSnapshot
	radar    *recentWindow[RadarSweep]

	stateB       *broadcast.Broadcaster[ConnectionState]
	upstreamB    *broadcast.Broadcaster[UpstreamStatus]
	stationsB    *broadcast.Broadcaster[[]Station]
	packetsB     *broadcast.Broadcaster[[]Packet]
	packetStream *broadcast.Broadcaster[Packet]
	weatherB     *broadcast.Broadcaster[WeatherSnapshot]
	radarB       *broadcast.Broadcaster[[]RadarSweep]
	messagesB    *broadcast.Broadcaster[[]Message]
}

// NewManager creates a channel manager in the disconnected state
func NewManager(cfg config.ChannelConfig, log *logger.Logger) *Manager {
	m := &Manager{
		cfg: cfg,
		dialer: &websocket.Dialer{
			HandshakeTimeout: time.Duration(cfg.HandshakeTimeoutSecs) * time.Second,
		},
		logger:       log.Named("channel"),
		state:        StateDisconnected,
		desired:      make(map[Domain]Filters),
		stations:     newStationSet(),
		packets:      newRecentWindow[Packet](cfg.PacketWindowSize),
		messages:     newRecentWindow[Message](cfg.MessageWindowSize),
		radar:        newRecentWindow[RadarSweep](32),
		stateB:       broadcast.New[ConnectionState]("channel-state", log),
		upstreamB:    broadcast.New[UpstreamStatus]("upstream-status", log),
		stationsB:    broadcast.New[[]Station]("stations", log),
		packetsB:     broadcast.New[[]Packet]("packets", log),
		packetStream: broadcast.New[Packet]("packet-stream", log),
		weatherB:     broadcast.New[WeatherSnapshot]("weather", log),
		radarB:       broadcast.New[[]RadarSweep]("radar", log),
		messagesB:    broadcast.New[[]Message]("messages", log),
	}
	m.stateB.Publish(StateDisconnected)
	return m
}

// Connect opens the channel with the given credentials and filters. A no-op
// while already connecting or connected; exactly one dial attempt results
// from any burst of Connect calls.
func (m *Manager) Connect(creds Credentials, filters Filters) {
	m.mu.Lock()
	if m.closed || m.state == StateConnecting || m.state == StateConnected {
		m.mu.Unlock()
		return
	}
	m.creds = creds
	m.filters = filters
	m.deliberate = false
	m.state = StateConnecting
	m.mu.Unlock()

	m.stateB.Publish(StateConnecting)
	m.logger.Info("Connecting to relay", logger.String("url", m.cfg.RelayURL))
	go m.dial()
}

// Disconnect closes the channel deliberately. No automatic reconnect follows;
// that is what distinguishes it from an unexpected close.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.deliberate = true
	if m.reconnect != nil {
		m.reconnect.Stop()
		m.reconnect = nil
	}
	conn := m.conn
	m.conn = nil
	m.backoff = 0
	m.state = StateDisconnected
	m.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	m.stateB.Publish(StateDisconnected)
	m.logger.Info("Disconnected from relay")
}

// Close shuts the manager down for good and tears down all broadcasters
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.Disconnect()

	for _, b := range []interface{ Close() }{
		m.stateB, m.upstreamB, m.stationsB, m.packetsB, m.packetStream,
		m.weatherB, m.radarB, m.messagesB,
	} {
		b.Close()
	}
}

// Subscribe records the desire for a domain's data. When connected the
// subscription is issued immediately; otherwise it is queued and replayed
// once the connection succeeds, and again after every reconnect.
func (m *Manager) Subscribe(domain Domain, filters Filters) {
	m.mu.Lock()
	m.desired[domain] = filters
	connected := m.state == StateConnected && m.conn != nil
	m.mu.Unlock()

	if connected {
		if err := m.send(subscribeRequest{Type: "subscribe", SubscriptionType: string(domain), Filters: filters}); err != nil {
			m.logger.Warn("Failed to send subscribe, will replay on reconnect",
				logger.String("domain", string(domain)), logger.Error(err))
		}
	}
}

// Unsubscribe drops the desired subscription for a domain
func (m *Manager) Unsubscribe(domain Domain) {
	m.mu.Lock()
	_, had := m.desired[domain]
	delete(m.desired, domain)
	connected := m.state == StateConnected && m.conn != nil
	m.mu.Unlock()

	if had && connected {
		if err := m.send(subscribeRequest{Type: "unsubscribe", SubscriptionType: string(domain)}); err != nil {
			m.logger.Warn("Failed to send unsubscribe",
				logger.String("domain", string(domain)), logger.Error(err))
		}
	}
}

// UpstreamSettings parametrizes the relay's APRS-IS connection
type UpstreamSettings struct {
	Callsign string    `json:"callsign"`
	Passcode int       `json:"passcode"`
	Location *Location `json:"location"`
	Filters  *Filters  `json:"aprsIsFilters,omitempty"`
}

// Location is a geographic position with its provenance
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Source    string  `json:"source,omitempty"` // gps, manual, map
}

// ConnectUpstream asks the relay to open its APRS-IS connection. This is an
// explicit user action, separate from the channel's own lifecycle, and fails
// fast when the channel is down.
func (m *Manager) ConnectUpstream(s UpstreamSettings) error {
	return m.send(struct {
		Type         string           `json:"type"`
		UserSettings UpstreamSettings `json:"user_settings"`
	}{Type: "connect_aprsis", UserSettings: s})
}

// DisconnectUpstream asks the relay to drop its APRS-IS connection
func (m *Manager) DisconnectUpstream() error {
	return m.send(struct {
		Type string `json:"type"`
	}{Type: "disconnect_aprsis"})
}

// State returns the current connection state
func (m *Manager) State() ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Upstream returns the last reported relay APRS-IS status
func (m *Manager) Upstream() UpstreamStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upstream
}

// Stations returns the merged station set
func (m *Manager) Stations() []Station {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stations.list()
}

// Packets returns the recent packet window
func (m *Manager) Packets() []Packet {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.packets.list()
}

// Messages returns the recent message window
func (m *Manager) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.messages.list()
}

// Weather returns the current weather snapshot
func (m *Manager) Weather() WeatherSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.weather
}

// Radar returns the recent radar sweep window
func (m *Manager) Radar() []RadarSweep {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.radar.list()
}

// Per-domain subscription surface. Each replays the last value on subscribe.

func (m *Manager) SubscribeState(fn func(ConnectionState)) func() { return m.stateB.Subscribe(fn) }

func (m *Manager) SubscribeUpstream(fn func(UpstreamStatus)) func() { return m.upstreamB.Subscribe(fn) }

func (m *Manager) SubscribeStations(fn func([]Station)) func() { return m.stationsB.Subscribe(fn) }

func (m *Manager) SubscribePackets(fn func([]Packet)) func() { return m.packetsB.Subscribe(fn) }

func (m *Manager) SubscribePacketStream(fn func(Packet)) func() { return m.packetStream.Subscribe(fn) }

func (m *Manager) SubscribeWeather(fn func(WeatherSnapshot)) func() { return m.weatherB.Subscribe(fn) }

func (m *Manager) SubscribeRadar(fn func([]RadarSweep)) func() { return m.radarB.Subscribe(fn) }

func (m *Manager) SubscribeMessages(fn func([]Message)) func() { return m.messagesB.Subscribe(fn) }

// subscribeRequest is the wire form of subscribe/unsubscribe
type subscribeRequest struct {
	Type             string  `json:"type"`
	SubscriptionType string  `json:"subscription_type"`
	Filters          Filters `json:"filters,omitempty"`
}

// dial performs one connection attempt. Failure moves to the error state and
// arms the reconnect timer.
func (m *Manager) dial() {
	conn, _, err := m.dialer.Dial(m.cfg.RelayURL, nil)

	m.mu.Lock()
	if m.closed || m.deliberate {
		m.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		m.state = StateError
		delay := m.nextBackoffLocked()
		m.scheduleReconnectLocked(delay)
		m.mu.Unlock()
		m.stateB.Publish(StateError)
		m.logger.Warn("Relay dial failed",
			logger.Error(err),
			logger.Duration("retry_in", delay))
		return
	}
	m.conn = conn
	m.state = StateConnected
	m.backoff = 0
	desired := make(map[Domain]Filters, len(m.desired))
	for d, f := range m.desired {
		desired[d] = f
	}
	m.mu.Unlock()

	m.stateB.Publish(StateConnected)
	m.logger.Info("Channel connected", logger.String("url", m.cfg.RelayURL))

	// Reissue every desired subscription with current filters
	for d, f := range desired {
		if err := m.send(subscribeRequest{Type: "subscribe", SubscriptionType: string(d), Filters: f}); err != nil {
			m.logger.Warn("Failed to replay subscription",
				logger.String("domain", string(d)), logger.Error(err))
		}
	}

	go m.readLoop(conn)
}

// readLoop pumps messages off one connection until it dies
func (m *Manager) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			m.handleClosed(conn, err)
			return
		}
		m.handleMessage(data)
	}
}

// handleClosed reacts to a connection ending. Deliberate disconnects were
// already transitioned by Disconnect; anything else is an error followed by a
// scheduled reconnect.
func (m *Manager) handleClosed(conn *websocket.Conn, err error) {
	m.mu.Lock()
	if m.conn != conn {
		// A stale read loop from a superseded connection
		m.mu.Unlock()
		return
	}
	m.conn = nil
	if m.closed || m.deliberate {
		m.mu.Unlock()
		return
	}
	m.state = StateError
	delay := m.nextBackoffLocked()
	m.scheduleReconnectLocked(delay)
	m.mu.Unlock()

	m.stateB.Publish(StateError)
	m.logger.Warn("Channel closed unexpectedly",
		logger.Error(err),
		logger.Duration("reconnect_in", delay))
}

// nextBackoffLocked doubles the reconnect delay up to the configured cap
func (m *Manager) nextBackoffLocked() time.Duration {
	base := time.Duration(m.cfg.ReconnectBaseDelaySec) * time.Second
	max := time.Duration(m.cfg.ReconnectMaxDelaySec) * time.Second
	if m.backoff == 0 {
		m.backoff = base
	} else {
		m.backoff *= 2
		if m.backoff > max {
			m.backoff = max
		}
	}
	return m.backoff
}

// scheduleReconnectLocked arms the reconnect timer; caller holds mu
func (m *Manager) scheduleReconnectLocked(delay time.Duration) {
	if m.reconnect != nil {
		m.reconnect.Stop()
	}
	m.reconnect = time.AfterFunc(delay, m.redial)
}

// redial transitions back to connecting after a backoff delay
func (m *Manager) redial() {
	m.mu.Lock()
	if m.closed || m.deliberate || m.state == StateConnected || m.state == StateConnecting {
		m.mu.Unlock()
		return
	}
	m.state = StateConnecting
	m.mu.Unlock()

	m.stateB.Publish(StateConnecting)
	m.logger.Info("Reconnecting to relay", logger.String("url", m.cfg.RelayURL))
	m.dial()
}

// send writes one JSON message, failing fast when not connected
func (m *Manager) send(v any) error {
	m.mu.Lock()
	conn := m.conn
	connected := m.state == StateConnected
	m.mu.Unlock()

	if !connected || conn == nil {
		return ErrNotConnected
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	if err := conn.WriteJSON(v); err != nil {
		return fmt.Errorf("failed to write channel message: %w", err)
	}
	return nil
}

// handleMessage demultiplexes one incoming frame. Malformed messages are
// dropped with a warning; the connection stays open.
func (m *Manager) handleMessage(data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		m.logger.Warn("Dropping unparsable channel message", logger.Error(err))
		return
	}

	switch env.Type {
	case typeInitialStations:
		var msg struct {
			Stations []Station `json:"stations"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			m.logger.Warn("Dropping malformed initial_stations", logger.Error(err))
			return
		}
		m.mu.Lock()
		m.stations.replace(msg.Stations)
		snapshot := m.stations.list()
		m.mu.Unlock()
		m.stationsB.Publish(snapshot)

	case typeStationUpdate:
		var msg struct {
			Station Station `json:"station"`
		}
		if err := json.Unmarshal(data, &msg); err != nil || msg.Station.Callsign == "" {
			m.logger.Warn("Dropping malformed station_update", logger.Error(err))
			return
		}
		m.mu.Lock()
		m.stations.merge(msg.Station)
		snapshot := m.stations.list()
		m.mu.Unlock()
		m.stationsB.Publish(snapshot)

	case typeInitialPackets:
		var msg struct {
			Packets []Packet `json:"packets"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			m.logger.Warn("Dropping malformed initial_packets", logger.Error(err))
			return
		}
		m.mu.Lock()
		m.packets.replace(msg.Packets)
		snapshot := m.packets.list()
		m.mu.Unlock()
		m.packetsB.Publish(snapshot)

	case typePacketUpdate:
		var msg struct {
			Packet Packet `json:"packet"`
		}
		if err := json.Unmarshal(data, &msg); err != nil || msg.Packet.SourceCallsign == "" {
			m.logger.Warn("Dropping malformed packet_update", logger.Error(err))
			return
		}
		m.mu.Lock()
		m.packets.append(msg.Packet)
		snapshot := m.packets.list()
		m.mu.Unlock()
		m.packetStream.Publish(msg.Packet)
		m.packetsB.Publish(snapshot)

	case typeInitialWeather:
		var msg struct {
			Observations []WeatherObservation `json:"observations"`
			Alerts       []WeatherAlert       `json:"alerts"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			m.logger.Warn("Dropping malformed initial_weather", logger.Error(err))
			return
		}
		m.mu.Lock()
		m.weather = WeatherSnapshot{Observations: msg.Observations, Alerts: msg.Alerts}
		snapshot := m.weather
		m.mu.Unlock()
		m.weatherB.Publish(snapshot)

	case typeWeatherUpdate:
		var msg struct {
			Data WeatherObservation `json:"data"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			m.logger.Warn("Dropping malformed weather_update", logger.Error(err))
			return
		}
		m.mu.Lock()
		m.weather.Observations = append(m.weather.Observations, msg.Data)
		snapshot := m.weather
		m.mu.Unlock()
		m.weatherB.Publish(snapshot)

	case typeWeatherAlert:
		var msg struct {
			Alert WeatherAlert `json:"alert"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			m.logger.Warn("Dropping malformed weather_alert", logger.Error(err))
			return
		}
		m.mu.Lock()
		m.weather.Alerts = append(m.weather.Alerts, msg.Alert)
		snapshot := m.weather
		m.mu.Unlock()
		m.weatherB.Publish(snapshot)

	case typeInitialRadar:
		var msg struct {
			Sweeps []RadarSweep `json:"sweeps"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			m.logger.Warn("Dropping malformed initial_radar", logger.Error(err))
			return
		}
		m.mu.Lock()
		m.radar.replace(msg.Sweeps)
		snapshot := m.radar.list()
		m.mu.Unlock()
		m.radarB.Publish(snapshot)

	case typeRadarUpdate:
		var msg struct {
			Sweep RadarSweep `json:"sweep"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			m.logger.Warn("Dropping malformed radar_update", logger.Error(err))
			return
		}
		m.mu.Lock()
		m.radar.append(msg.Sweep)
		snapshot := m.radar.list()
		m.mu.Unlock()
		m.radarB.Publish(snapshot)

	case typeInitialMessages:
		var msg struct {
			Messages []Message `json:"messages"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			m.logger.Warn("Dropping malformed initial_messages", logger.Error(err))
			return
		}
		m.mu.Lock()
		m.messages.replace(msg.Messages)
		snapshot := m.messages.list()
		m.mu.Unlock()
		m.messagesB.Publish(snapshot)

	case typeMessageUpdate:
		var msg struct {
			Message Message `json:"message"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			m.logger.Warn("Dropping malformed message_update", logger.Error(err))
			return
		}
		m.mu.Lock()
		m.messages.append(msg.Message)
		snapshot := m.messages.list()
		m.mu.Unlock()
		m.messagesB.Publish(snapshot)

	case typeUpstreamStatus:
		var msg UpstreamStatus
		if err := json.Unmarshal(data, &msg); err != nil {
			m.logger.Warn("Dropping malformed aprsis_status", logger.Error(err))
			return
		}
		m.mu.Lock()
		m.upstream = msg
		m.mu.Unlock()
		m.upstreamB.Publish(msg)

	case "subscribed", "unsubscribed", "filter_updated", "pong", "aprsis_connecting", "aprsis_disconnected":
		m.logger.Debug("Channel acknowledgement", logger.String("type", env.Type))

	case "error":
		var msg struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(data, &msg)
		m.logger.Warn("Relay reported error", logger.String("message", msg.Message))

	case "":
		m.logger.Warn("Dropping channel message without type")

	default:
		m.logger.Debug("Ignoring unknown channel message type", logger.String("type", env.Type))
	}
}
