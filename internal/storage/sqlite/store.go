package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/RF-YVY/aprswx/pkg/logger"
)

// Open opens (creating if needed) the local sqlite database at path
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// modernc sqlite does not tolerate concurrent writers on one file
	db.SetMaxOpenConns(1)
	return db, nil
}

// Store handles local persistence: the cached settings payload and a bounded
// packet history
type Store struct {
	db        *sql.DB
	retention int
	logger    *logger.Logger
}

// NewStore creates a new SQLite store. retention bounds the packet history
// row count; older rows are trimmed on insert.
func NewStore(db *sql.DB, retention int, log *logger.Logger) *Store {
	store := &Store{
		db:        db,
		retention: retention,
		logger:    log.Named("sqlite-store"),
	}

	if err := store.initDB(); err != nil {
		store.logger.Error("Failed to initialize local store", logger.Error(err))
	}

	return store
}

// initDB initializes the database tables
func (s *Store) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS settings (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			payload TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create settings table: %w", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS packets (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source_callsign TEXT NOT NULL,
			packet_type TEXT,
			timestamp TIMESTAMP NOT NULL,
			raw_packet TEXT,
			parsed_data TEXT,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create packets table: %w", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_packets_callsign ON packets(source_callsign)`,
		`CREATE INDEX IF NOT EXISTS idx_packets_timestamp ON packets(timestamp)`,
	}
	for _, indexSQL := range indexes {
		if _, err = s.db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create packet index: %w", err)
		}
	}

	return nil
}

// SaveSettings upserts the single cached settings payload
func (s *Store) SaveSettings(payload []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (id, payload, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		string(payload),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// LoadSettings returns the cached settings payload, or nil when none is stored
func (s *Store) LoadSettings() (*SettingsRecord, error) {
	var payload, updatedAt string
	err := s.db.QueryRow(`SELECT payload, updated_at FROM settings WHERE id = 1`).
		Scan(&payload, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	record := &SettingsRecord{Payload: []byte(payload)}
	record.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse settings updated_at: %w", err)
	}
	return record, nil
}

// ClearSettings removes the cached settings payload
func (s *Store) ClearSettings() error {
	if _, err := s.db.Exec(`DELETE FROM settings WHERE id = 1`); err != nil {
		return fmt.Errorf("failed to clear settings: %w", err)
	}
	return nil
}

// StorePacket appends one packet to the history and trims old rows past the
// retention bound
func (s *Store) StorePacket(record *PacketRecord) (int64, error) {
	result, err := s.db.Exec(
		`INSERT INTO packets
		(source_callsign, packet_type, timestamp, raw_packet, parsed_data, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		record.SourceCallsign,
		record.PacketType,
		record.Timestamp.Format(time.RFC3339),
		record.RawPacket,
		record.ParsedData,
		record.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert packet: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	if s.retention > 0 {
		_, err = s.db.Exec(
			`DELETE FROM packets WHERE id NOT IN
			(SELECT id FROM packets ORDER BY id DESC LIMIT ?)`,
			s.retention,
		)
		if err != nil {
			return id, fmt.Errorf("failed to trim packet history: %w", err)
		}
	}

	return id, nil
}

// RecentPackets returns the newest packets across all stations
func (s *Store) RecentPackets(limit int) ([]*PacketRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, source_callsign, packet_type, timestamp, raw_packet, parsed_data, created_at
		FROM packets
		ORDER BY id DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent packets: %w", err)
	}
	defer rows.Close()

	return s.scanPacketRows(rows)
}

// PacketsByCallsign returns the newest packets from one station
func (s *Store) PacketsByCallsign(callsign string, limit int) ([]*PacketRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, source_callsign, packet_type, timestamp, raw_packet, parsed_data, created_at
		FROM packets
		WHERE source_callsign = ?
		ORDER BY id DESC
		LIMIT ?`,
		callsign, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query packets by callsign: %w", err)
	}
	defer rows.Close()

	return s.scanPacketRows(rows)
}

// PacketCount returns the number of rows currently in the history
func (s *Store) PacketCount() (int64, error) {
	var count int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM packets`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count packets: %w", err)
	}
	return count, nil
}

// scanPacketRows scans database rows into PacketRecord structs
func (s *Store) scanPacketRows(rows *sql.Rows) ([]*PacketRecord, error) {
	var records []*PacketRecord
	for rows.Next() {
		var record PacketRecord
		var timestamp, createdAt string
		var packetType, rawPacket, parsedData sql.NullString

		if err := rows.Scan(
			&record.ID,
			&record.SourceCallsign,
			&packetType,
			&timestamp,
			&rawPacket,
			&parsedData,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan packet: %w", err)
		}

		var err error
		record.Timestamp, err = time.Parse(time.RFC3339, timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to parse timestamp: %w", err)
		}
		record.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}

		if packetType.Valid {
			record.PacketType = packetType.String
		}
		if rawPacket.Valid {
			record.RawPacket = rawPacket.String
		}
		if parsedData.Valid {
			record.ParsedData = parsedData.String
		}

		records = append(records, &record)
	}

	return records, rows.Err()
}
