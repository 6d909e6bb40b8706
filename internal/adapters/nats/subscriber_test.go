package natsadapter

import (
	"testing"
	"time"

	"github.com/nats-io/nats.go"
)

func TestDecodeClick(t *testing.T) {
	ev, err := decodeClick([]byte(`{"id":"c1","location_id":"L1","origin":{"lat":34.05,"lon":-118.24},"timestamp":"2025-03-01T12:00:00Z"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.LocationID != "L1" || ev.Origin == nil || ev.Origin.Lat != 34.05 {
		t.Errorf("unexpected event %+v", ev)
	}
	if !ev.Timestamp.Equal(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("timestamp = %v", ev.Timestamp)
	}
}

func TestDecodeClick_Rejects(t *testing.T) {
	for name, data := range map[string]string{
		"not json":    `{`,
		"no location": `{"id":"c1"}`,
	} {
		if _, err := decodeClick([]byte(data)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestClickStreamConfig(t *testing.T) {
	cfg := ClickStreamConfig(30 * 24 * time.Hour)
	if cfg.Name != ClickStream || cfg.Retention != nats.WorkQueuePolicy {
		t.Errorf("unexpected config %+v", cfg)
	}
	if len(cfg.Subjects) != 1 || cfg.Subjects[0] != "clicks.recorded.>" {
		t.Errorf("subjects = %v", cfg.Subjects)
	}
	if cfg.MaxAge != 30*24*time.Hour {
		t.Errorf("max age = %v", cfg.MaxAge)
	}
}
