package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/keshon/datastore"
	"github.com/samber/lo"
	"github.com/sglre6355/isabelle/internal/modules/playback/application/ports"
)

// settingsKey is the datastore key holding the settings of every guild.
const settingsKey = "contracts"

// DatastoreSettingsStore persists contract settings in a JSON file.
type DatastoreSettingsStore struct {
	mu sync.Mutex
	ds *datastore.DataStore
}

// NewDatastoreSettingsStore opens the settings file at path, creating it if missing.
func NewDatastoreSettingsStore(path string) (*DatastoreSettingsStore, error) {
	ds, err := datastore.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings store: %w", err)
	}
	return &DatastoreSettingsStore{ds: ds}, nil
}

// Close flushes the settings to disk.
func (s *DatastoreSettingsStore) Close() error {
	return s.ds.Close()
}

// Save creates or replaces the settings of a guild and writes them to disk.
func (s *DatastoreSettingsStore) Save(_ context.Context, settings ports.ContractSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load()
	if err != nil {
		return err
	}
	all[settings.GuildID.String()] = settings
	s.ds.Add(settingsKey, all)

	if err := s.ds.SaveToFile(); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}

// LoadAll returns the settings of every known guild.
func (s *DatastoreSettingsStore) LoadAll(_ context.Context) ([]ports.ContractSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load()
	if err != nil {
		return nil, err
	}
	return lo.Values(all), nil
}

// load decodes the stored settings. Values read back from disk are generic JSON
// and go through a marshal round trip.
func (s *DatastoreSettingsStore) load() (map[string]ports.ContractSettings, error) {
	data, exists := s.ds.Get(settingsKey)
	if !exists {
		return make(map[string]ports.ContractSettings), nil
	}
	if all, ok := data.(map[string]ports.ContractSettings); ok {
		return lo.Assign(all), nil
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal settings: %w", err)
	}
	var all map[string]ports.ContractSettings
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	if all == nil {
		all = make(map[string]ports.ContractSettings)
	}
	return all, nil
}

// MemorySettingsStore is an in-memory implementation of ports.SettingsStore.
type MemorySettingsStore struct {
	mu       sync.RWMutex
	settings map[string]ports.ContractSettings
}

// NewMemorySettingsStore creates a new MemorySettingsStore.
func NewMemorySettingsStore() *MemorySettingsStore {
	return &MemorySettingsStore{
		settings: make(map[string]ports.ContractSettings),
	}
}

// Save stores the settings.
func (s *MemorySettingsStore) Save(_ context.Context, settings ports.ContractSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings[settings.GuildID.String()] = settings
	return nil
}

// LoadAll returns every stored setting.
func (s *MemorySettingsStore) LoadAll(_ context.Context) ([]ports.ContractSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return lo.Values(s.settings), nil
}

// Close is a no-op.
func (s *MemorySettingsStore) Close() error {
	return nil
}

// Ensure the stores implement ports.SettingsStore.
var (
	_ ports.SettingsStore = (*DatastoreSettingsStore)(nil)
	_ ports.SettingsStore = (*MemorySettingsStore)(nil)
)
