package sandbox

import (
	"time"

	"github.com/GriffinCanCode/AiPlugs/backend/internal/types"
)

// Config defines sandbox configuration
type Config struct {
	Timeout       time.Duration // Execution timeout per batch
	EnableConsole bool          // Capture console.log/warn/error
}

// DefaultConfig returns the configuration used by replay
func DefaultConfig() Config {
	return Config{
		Timeout:       2 * time.Second,
		EnableConsole: true,
	}
}

// LogEntry represents console output
type LogEntry struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// PageSummary is a snapshot of one simulated page
type PageSummary struct {
	ID        types.ContextID `json:"context_id"`
	URL       string          `json:"url"`
	Readiness types.Readiness `json:"readiness"`
	Scripts   []string        `json:"scripts"`
	Config    map[string]any  `json:"config,omitempty"`
	Console   []LogEntry      `json:"console,omitempty"`
	Runs      int             `json:"runs"`
}
