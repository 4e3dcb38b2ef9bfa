package sqlite

import (
	"testing"
	"time"

	"github.com/RF-YVY/aprswx/pkg/logger"
)

func testStore(t *testing.T, retention int) *Store {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db, retention, logger.NewNop())
}

func TestSettingsRoundTrip(t *testing.T) {
	s := testStore(t, 0)

	record, err := s.LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings on empty store: %v", err)
	}
	if record != nil {
		t.Fatalf("expected nil record on empty store, got %+v", record)
	}

	if err := s.SaveSettings([]byte(`{"callsign":"N0CALL"}`)); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	if err := s.SaveSettings([]byte(`{"callsign":"W1AW"}`)); err != nil {
		t.Fatalf("SaveSettings overwrite: %v", err)
	}

	record, err = s.LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if record == nil || string(record.Payload) != `{"callsign":"W1AW"}` {
		t.Errorf("loaded payload = %s, want latest save", record.Payload)
	}
	if record.UpdatedAt.IsZero() {
		t.Error("updated_at not recorded")
	}

	if err := s.ClearSettings(); err != nil {
		t.Fatalf("ClearSettings: %v", err)
	}
	record, err = s.LoadSettings()
	if err != nil || record != nil {
		t.Errorf("after clear: record=%+v err=%v, want nil/nil", record, err)
	}
}

func TestPacketHistoryRetention(t *testing.T) {
	s := testStore(t, 3)

	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := s.StorePacket(&PacketRecord{
			SourceCallsign: "N0CALL-9",
			PacketType:     "position",
			Timestamp:      base.Add(time.Duration(i) * time.Second),
			RawPacket:      "N0CALL-9>APRS:!3500.00N/09700.00W>",
			CreatedAt:      base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("StorePacket %d: %v", i, err)
		}
	}

	count, err := s.PacketCount()
	if err != nil {
		t.Fatalf("PacketCount: %v", err)
	}
	if count != 3 {
		t.Errorf("retained %d rows, want 3", count)
	}

	records, err := s.RecentPackets(10)
	if err != nil {
		t.Fatalf("RecentPackets: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	// Newest first; the two oldest inserts were trimmed
	if !records[0].Timestamp.Equal(base.Add(4 * time.Second)) {
		t.Errorf("newest record timestamp = %v, want %v", records[0].Timestamp, base.Add(4*time.Second))
	}
	if !records[2].Timestamp.Equal(base.Add(2 * time.Second)) {
		t.Errorf("oldest retained timestamp = %v, want %v", records[2].Timestamp, base.Add(2*time.Second))
	}
}

func TestPacketsByCallsign(t *testing.T) {
	s := testStore(t, 0)

	now := time.Now().UTC().Truncate(time.Second)
	for _, cs := range []string{"W1AW", "N0CALL", "W1AW"} {
		if _, err := s.StorePacket(&PacketRecord{
			SourceCallsign: cs,
			Timestamp:      now,
			CreatedAt:      now,
		}); err != nil {
			t.Fatalf("StorePacket: %v", err)
		}
	}

	records, err := s.PacketsByCallsign("W1AW", 10)
	if err != nil {
		t.Fatalf("PacketsByCallsign: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("got %d records for W1AW, want 2", len(records))
	}
	for _, r := range records {
		if r.SourceCallsign != "W1AW" {
			t.Errorf("unexpected callsign %q", r.SourceCallsign)
		}
	}
}
