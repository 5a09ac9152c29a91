package bar

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Health is the snapshot written to the health file.
type Health struct {
	PID       int          `json:"pid"`
	StartedAt time.Time    `json:"started_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	Slots     []SlotStatus `json:"slots"`
}

// Healthy reports whether every slot's last item succeeded.
func (h *Health) Healthy() bool {
	for _, s := range h.Slots {
		if !s.Healthy {
			return false
		}
	}
	return true
}

// WriteHealthFile writes h as indented JSON. Content goes to a temporary
// file that is renamed over path, so readers never see a partial file.
func WriteHealthFile(path string, h *Health) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create health directory: %w", err)
	}

	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal health: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp health file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename health file: %w", err)
	}
	return nil
}

// ReadHealthFile parses a file written by WriteHealthFile.
func ReadHealthFile(path string) (*Health, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read health file: %w", err)
	}
	var h Health
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("parse health file: %w", err)
	}
	return &h, nil
}
