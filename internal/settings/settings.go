// Package settings reads the user settings that gate the automation.
package settings

import (
	"context"
	"log/slog"
	"sync"

	"github.com/prospection/autofollow/internal/log"
)

// Keys of the persisted settings.
const (
	KeyEnabled             = "enabled"
	KeyAutoCloseIrrelevant = "autoCloseIrrelevant"
)

// Settings are read once at the start of a page visit.
type Settings struct {
	Enabled             bool `json:"enabled"`
	AutoCloseIrrelevant bool `json:"autoCloseIrrelevant"`
}

// Defaults are used for every key missing from the store and whenever the
// store cannot be read.
var Defaults = Settings{
	Enabled:             true,
	AutoCloseIrrelevant: true,
}

// A Store is a key-value store. Get returns the stored value for every key of
// defaults, or the default value when a key is not stored.
type Store interface {
	Get(ctx context.Context, defaults map[string]any) (map[string]any, error)
	Set(ctx context.Context, values map[string]any) error
}

func (s Settings) asMap() map[string]any {
	return map[string]any{
		KeyEnabled:             s.Enabled,
		KeyAutoCloseIrrelevant: s.AutoCloseIrrelevant,
	}
}

// Get reads the settings from store. A failing store is not an error: the
// given defaults are returned unchanged.
func Get(ctx context.Context, store Store, defaults Settings) Settings {
	logger := log.LoggerFromContext(ctx)
	values, err := store.Get(ctx, defaults.asMap())
	if err != nil {
		logger.Warn("failed to read settings, using defaults", slog.String("err", err.Error()))
		return defaults
	}
	return Settings{
		Enabled:             boolOr(values, KeyEnabled, defaults.Enabled),
		AutoCloseIrrelevant: boolOr(values, KeyAutoCloseIrrelevant, defaults.AutoCloseIrrelevant),
	}
}

// Save persists all settings.
func Save(ctx context.Context, store Store, s Settings) error {
	return store.Set(ctx, s.asMap())
}

// StatusMessage describes the settings for humans.
func (s Settings) StatusMessage() string {
	if !s.Enabled {
		return "Automation is paused"
	}
	if s.AutoCloseIrrelevant {
		return "Automation is enabled; tabs auto-close when no action is taken"
	}
	return "Automation is enabled; tabs stay open when no action is taken"
}

// boolOr coerces stored values the way a truthiness check would. Missing
// keys fall back to def.
func boolOr(values map[string]any, key string, def bool) bool {
	v, ok := values[key]
	if !ok || v == nil {
		return def
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b != "" && b != "false" && b != "0"
	case int:
		return b != 0
	case int64:
		return b != 0
	case float64:
		return b != 0
	default:
		return def
	}
}

// MemoryStore is a Store kept in memory.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]any
}

func NewMemoryStore(values map[string]any) *MemoryStore {
	m := &MemoryStore{values: map[string]any{}}
	for k, v := range values {
		m.values[k] = v
	}
	return m
}

func (m *MemoryStore) Get(ctx context.Context, defaults map[string]any) (map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make(map[string]any, len(defaults))
	for k, def := range defaults {
		if v, ok := m.values[k]; ok {
			result[k] = v
		} else {
			result[k] = def
		}
	}
	return result, nil
}

func (m *MemoryStore) Set(ctx context.Context, values map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range values {
		m.values[k] = v
	}
	return nil
}
