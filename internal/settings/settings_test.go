package settings

import (
	"context"
	"errors"
	"testing"
)

type failingStore struct{}

func (failingStore) Get(ctx context.Context, defaults map[string]any) (map[string]any, error) {
	return nil, errors.New("hardware unavailable")
}

func (failingStore) Set(ctx context.Context, values map[string]any) error {
	return errors.New("hardware unavailable")
}

func TestGetFallsBackToDefaultsOnReadError(t *testing.T) {
	defaults := Settings{Enabled: true, AutoCloseIrrelevant: false}
	s := Get(context.Background(), failingStore{}, defaults)
	if s != defaults {
		t.Fatalf("expected %+v but got %+v", defaults, s)
	}
}

func TestGetMergesStoredValuesWithDefaults(t *testing.T) {
	store := NewMemoryStore(map[string]any{KeyEnabled: false})
	s := Get(context.Background(), store, Defaults)
	if s.Enabled {
		t.Fatalf("expected enabled=false")
	}
	if !s.AutoCloseIrrelevant {
		t.Fatalf("expected autoCloseIrrelevant to default to true")
	}
}

func TestGetCoercesValues(t *testing.T) {
	tests := []struct {
		stored   any
		expected bool
	}{
		{true, true},
		{false, false},
		{"", false},
		{"false", false},
		{"yes", true},
		{0, false},
		{1, true},
		{float64(0), false},
		{nil, true},
		{[]string{}, true},
	}

	for _, tt := range tests {
		store := NewMemoryStore(map[string]any{KeyAutoCloseIrrelevant: tt.stored})
		s := Get(context.Background(), store, Defaults)
		if s.AutoCloseIrrelevant != tt.expected {
			t.Errorf("stored %#v: expected %v but got %v", tt.stored, tt.expected, s.AutoCloseIrrelevant)
		}
	}
}

func TestSave(t *testing.T) {
	store := NewMemoryStore(nil)
	ctx := context.Background()
	want := Settings{Enabled: false, AutoCloseIrrelevant: false}
	if err := Save(ctx, store, want); err != nil {
		t.Fatalf("got unexpected error: %v", err)
	}
	if got := Get(ctx, store, Defaults); got != want {
		t.Fatalf("expected %+v but got %+v", want, got)
	}
}

func TestStatusMessage(t *testing.T) {
	tests := []struct {
		settings Settings
		expected string
	}{
		{Settings{Enabled: false, AutoCloseIrrelevant: true}, "Automation is paused"},
		{Settings{Enabled: true, AutoCloseIrrelevant: true}, "Automation is enabled; tabs auto-close when no action is taken"},
		{Settings{Enabled: true, AutoCloseIrrelevant: false}, "Automation is enabled; tabs stay open when no action is taken"},
	}
	for _, tt := range tests {
		if m := tt.settings.StatusMessage(); m != tt.expected {
			t.Errorf("%+v: expected %q but got %q", tt.settings, tt.expected, m)
		}
	}
}
