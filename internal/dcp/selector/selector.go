// Package selector implements the Model Selector described in spec §4.6:
// picking a provider/model for a background analysis pass (the legacy
// on-idle pruning path), with a capability-check fallback chain grounded
// on the teacher's internal/provider.ModelRegistry.
package selector

import (
	"fmt"

	"github.com/syntax-syndicate/opencode-dynamic-context-pruning/internal/provider"
)

// Choice is a resolved provider/model pair.
type Choice struct {
	ProviderID string
	ModelID    string
}

// SessionInfo is the per-session metadata the selector's third-priority
// source draws from (spec §4.6 item 3 "model extracted from session info").
type SessionInfo struct {
	ProviderID string
	ModelID    string
}

// Toaster is the narrow notifier the selector uses to surface fallback
// warnings (spec §4.6 "Surface a toast on fallback").
type Toaster interface {
	Toast(text string)
}

// Config is the subset of dcp.ModelSelectorConfig the selector needs,
// duplicated here (rather than imported) to keep this package
// independent of internal/dcp and usable standalone.
type Config struct {
	OverrideProviderID    string
	OverrideModelID       string
	StrictModelSelection  bool
	ShowModelErrorToasts  bool
}

// Choose implements spec §4.6: config override, then the cached
// per-session provider/model, then the session-info-extracted model; each
// candidate is capability-checked (tool-call support) against registry,
// falling back through the list unless cfg.StrictModelSelection is true.
func Choose(registry *provider.ModelRegistry, cfg Config, cached Choice, info SessionInfo, toaster Toaster) (Choice, error) {
	candidates := []Choice{}
	if cfg.OverrideProviderID != "" && cfg.OverrideModelID != "" {
		candidates = append(candidates, Choice{cfg.OverrideProviderID, cfg.OverrideModelID})
	}
	if cached.ProviderID != "" && cached.ModelID != "" {
		candidates = append(candidates, cached)
	}
	if info.ProviderID != "" && info.ModelID != "" {
		candidates = append(candidates, Choice{info.ProviderID, info.ModelID})
	}

	if len(candidates) == 0 {
		return Choice{}, fmt.Errorf("selector: no candidate provider/model available")
	}

	var lastErr error
	for i, c := range candidates {
		model := registry.GetModel(c.ProviderID, c.ModelID)
		if model == nil {
			lastErr = fmt.Errorf("selector: unknown model %s/%s", c.ProviderID, c.ModelID)
		} else if !model.Capabilities.ToolCall {
			lastErr = fmt.Errorf("selector: model %s/%s does not support tool calls", c.ProviderID, c.ModelID)
		} else {
			if i > 0 && cfg.ShowModelErrorToasts && toaster != nil {
				toaster.Toast(fmt.Sprintf("Falling back to %s/%s for background analysis", c.ProviderID, c.ModelID))
			}
			return c, nil
		}

		if cfg.StrictModelSelection {
			return Choice{}, lastErr
		}
	}
	return Choice{}, lastErr
}
