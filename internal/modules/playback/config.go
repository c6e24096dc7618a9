package playback

import (
	"errors"
	"fmt"
	"time"

	"github.com/sglre6355/isabelle/internal/modules/playback/application/contract"
)

// Settings store kinds.
const (
	settingsDatastore = "datastore"
	settingsMemory    = "memory"
)

// Config holds the playback module configuration.
type Config struct {
	LavalinkAddress  string `env:"LAVALINK_ADDRESS,notEmpty"`
	LavalinkPassword string `env:"LAVALINK_PASSWORD"`
	LavalinkSecure   bool   `env:"LAVALINK_SECURE" envDefault:"false"`

	// SettingsStore selects where contract settings live: "datastore" or "memory".
	SettingsStore string `env:"SETTINGS_STORE" envDefault:"datastore"`
	// DataPath is the file contract settings are persisted to by the datastore store.
	DataPath string `env:"DATA_PATH" envDefault:"data/contracts.json"`

	OperationTimeout time.Duration `env:"OPERATION_TIMEOUT" envDefault:"3s"`
	JoinTimeout      time.Duration `env:"JOIN_TIMEOUT" envDefault:"10s"`
	WaitingTimeout   time.Duration `env:"WAITING_TIMEOUT" envDefault:"10m"`
	StandbyTimeout   time.Duration `env:"STANDBY_TIMEOUT" envDefault:"2m"`

	StatusRate  float64 `env:"STATUS_RATE" envDefault:"1"`
	StatusBurst int     `env:"STATUS_BURST" envDefault:"3"`
}

// Timeouts returns the contract timeouts.
func (c *Config) Timeouts() contract.Timeouts {
	return contract.Timeouts{
		Operation: c.OperationTimeout,
		Join:      c.JoinTimeout,
		Waiting:   c.WaitingTimeout,
		Standby:   c.StandbyTimeout,
	}
}

func (c *Config) validate() error {
	var errs []error
	for name, d := range map[string]time.Duration{
		"OPERATION_TIMEOUT": c.OperationTimeout,
		"JOIN_TIMEOUT":      c.JoinTimeout,
		"WAITING_TIMEOUT":   c.WaitingTimeout,
		"STANDBY_TIMEOUT":   c.StandbyTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	if c.SettingsStore != settingsDatastore && c.SettingsStore != settingsMemory {
		errs = append(errs, fmt.Errorf("SETTINGS_STORE must be %q or %q, got %q", settingsDatastore, settingsMemory, c.SettingsStore))
	}
	if c.StatusRate <= 0 {
		errs = append(errs, fmt.Errorf("STATUS_RATE must be positive, got %v", c.StatusRate))
	}
	if c.StatusBurst < 1 {
		errs = append(errs, fmt.Errorf("STATUS_BURST must be at least 1, got %d", c.StatusBurst))
	}
	return errors.Join(errs...)
}
