package selector

import (
	"testing"

	"github.com/syntax-syndicate/opencode-dynamic-context-pruning/internal/provider"
)

type recordingToaster struct {
	toasts []string
}

func (r *recordingToaster) Toast(text string) { r.toasts = append(r.toasts, text) }

const (
	knownProvider = "anthropic"
	knownModel    = "claude-sonnet-4-20250514"
)

// The config override wins when present and valid, with no fallback
// toast since it's the first candidate tried.
func TestChooseOverrideWins(t *testing.T) {
	registry := provider.NewModelRegistry()
	cfg := Config{OverrideProviderID: knownProvider, OverrideModelID: knownModel}
	toaster := &recordingToaster{}

	got, err := Choose(registry, cfg, Choice{}, SessionInfo{}, toaster)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ProviderID != knownProvider || got.ModelID != knownModel {
		t.Errorf("Choose = %+v, want %s/%s", got, knownProvider, knownModel)
	}
	if len(toaster.toasts) != 0 {
		t.Errorf("first-choice success must not toast, got %v", toaster.toasts)
	}
}

// An invalid override falls through to the cached choice, surfacing a
// toast since ShowModelErrorToasts is set.
func TestChooseFallsBackToCachedOnInvalidOverride(t *testing.T) {
	registry := provider.NewModelRegistry()
	cfg := Config{
		OverrideProviderID:   "nonexistent",
		OverrideModelID:      "nonexistent-model",
		ShowModelErrorToasts: true,
	}
	cached := Choice{ProviderID: knownProvider, ModelID: knownModel}
	toaster := &recordingToaster{}

	got, err := Choose(registry, cfg, cached, SessionInfo{}, toaster)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != cached {
		t.Errorf("Choose = %+v, want fallback to cached %+v", got, cached)
	}
	if len(toaster.toasts) != 1 {
		t.Errorf("expected exactly one fallback toast, got %v", toaster.toasts)
	}
}

// With StrictModelSelection, an invalid override fails immediately
// instead of falling through to the cached/session-info candidates.
func TestChooseStrictModeDoesNotFallback(t *testing.T) {
	registry := provider.NewModelRegistry()
	cfg := Config{
		OverrideProviderID:   "nonexistent",
		OverrideModelID:      "nonexistent-model",
		StrictModelSelection: true,
	}
	cached := Choice{ProviderID: knownProvider, ModelID: knownModel}

	_, err := Choose(registry, cfg, cached, SessionInfo{}, nil)
	if err == nil {
		t.Fatalf("expected an error under strict mode with an invalid override")
	}
}

// With no toaster wired and ShowModelErrorToasts true, a nil Toaster is
// tolerated (no panic) when a fallback happens.
func TestChooseToleratesNilToaster(t *testing.T) {
	registry := provider.NewModelRegistry()
	cfg := Config{
		OverrideProviderID:   "nonexistent",
		OverrideModelID:      "nonexistent-model",
		ShowModelErrorToasts: true,
	}
	cached := Choice{ProviderID: knownProvider, ModelID: knownModel}

	got, err := Choose(registry, cfg, cached, SessionInfo{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != cached {
		t.Errorf("Choose = %+v, want %+v", got, cached)
	}
}

// The session-info model is the last resort when no override or cached
// choice is available.
func TestChooseFallsBackToSessionInfo(t *testing.T) {
	registry := provider.NewModelRegistry()
	cfg := Config{}
	info := SessionInfo{ProviderID: knownProvider, ModelID: knownModel}

	got, err := Choose(registry, cfg, Choice{}, info, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ProviderID != knownProvider || got.ModelID != knownModel {
		t.Errorf("Choose = %+v, want %s/%s", got, knownProvider, knownModel)
	}
}

// With no candidates offered at all, Choose reports an error rather
// than panicking.
func TestChooseNoCandidatesErrors(t *testing.T) {
	registry := provider.NewModelRegistry()
	_, err := Choose(registry, Config{}, Choice{}, SessionInfo{}, nil)
	if err == nil {
		t.Fatalf("expected an error when no candidates are available")
	}
}

// When every candidate fails validation, Choose returns the last
// observed error rather than succeeding silently.
func TestChooseAllCandidatesInvalid(t *testing.T) {
	registry := provider.NewModelRegistry()
	cfg := Config{OverrideProviderID: "nope", OverrideModelID: "nope-model"}
	cached := Choice{ProviderID: "also-nope", ModelID: "also-nope-model"}

	_, err := Choose(registry, cfg, cached, SessionInfo{}, nil)
	if err == nil {
		t.Fatalf("expected an error when all candidates are invalid")
	}
}
