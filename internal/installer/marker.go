package installer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gatewatch/botctl/internal/config"
)

// MarkerFileName is the setup progress file within the state directory.
const MarkerFileName = "setup.state"

// Progress records how far the last setup run got. It is diagnostic: steps
// are idempotent and a re-run executes the whole pipeline regardless.
type Progress struct {
	Variant       config.Variant `json:"variant"`
	LastCompleted string         `json:"last_completed"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Marker persists setup progress in the state directory.
type Marker struct {
	path string
}

// NewMarker creates a Marker rooted in stateDir.
func NewMarker(stateDir string) *Marker {
	return &Marker{path: filepath.Join(stateDir, MarkerFileName)}
}

// Complete records step as the last completed step.
func (m *Marker) Complete(step string, variant config.Variant) error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	progress := Progress{
		Variant:       variant,
		LastCompleted: step,
		UpdatedAt:     time.Now(),
	}
	data, err := json.MarshalIndent(progress, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %w", err)
	}
	if err := os.WriteFile(m.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write progress marker: %w", err)
	}
	return nil
}

// Load returns the recorded progress, or nil if no setup has run yet.
func (m *Marker) Load() (*Progress, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read progress marker: %w", err)
	}

	var progress Progress
	if err := json.Unmarshal(data, &progress); err != nil {
		return nil, fmt.Errorf("failed to parse progress marker: %w", err)
	}
	return &progress, nil
}
