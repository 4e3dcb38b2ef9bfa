package sqlite

import "time"

// PacketRecord is one received APRS packet persisted for history queries
type PacketRecord struct {
	ID             int64     `json:"id"`
	SourceCallsign string    `json:"source_callsign"`
	PacketType     string    `json:"packet_type,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	RawPacket      string    `json:"raw_packet,omitempty"`
	ParsedData     string    `json:"parsed_data,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// SettingsRecord is the single locally cached settings payload
type SettingsRecord struct {
	Payload   []byte    `json:"payload"`
	UpdatedAt time.Time `json:"updated_at"`
}
