package dcp

import (
	"strings"
	"testing"
)

func newInjectState() *SessionState {
	return &SessionState{
		ToolParameters:  make(map[string]*ToolEntry),
		PruneToolIDs:    make(map[string]bool),
		PruneMessageIDs: make(map[string]bool),
	}
}

// S5: when the previous turn just ran a prune/distill/compress tool,
// injection emits the cooldown block instead of the prunable-tools
// manifest, even though live tools remain.
func TestInjectCooldownSuppressesManifest(t *testing.T) {
	state := newInjectState()
	state.LastToolPrune = true
	state.ToolIDList = []string{"a"}
	state.ToolParameters["a"] = &ToolEntry{Tool: "read", Parameters: map[string]any{"path": "/x"}, Status: ToolCompleted}

	messages := []Message{{ID: "m1", Role: "user", Parts: []Part{{Type: PartText, Text: "hi"}}}}
	out := Inject(state, messages, DefaultConfig(), "")

	if len(out) != 2 {
		t.Fatalf("expected a synthetic message appended, got %d messages", len(out))
	}
	injected := out[len(out)-1].Parts[0].Text
	if !strings.Contains(injected, "Context management was just performed") {
		t.Errorf("expected cooldown block, got %q", injected)
	}
	if strings.Contains(injected, "<prunable-tools>") {
		t.Errorf("cooldown turn must not also show the prunable-tools manifest")
	}
}

// Absent a cooldown, live non-protected tools produce a <prunable-tools>
// manifest line per tool.
func TestInjectBuildsManifestWhenNoCooldown(t *testing.T) {
	state := newInjectState()
	state.ToolIDList = []string{"a"}
	state.ToolParameters["a"] = &ToolEntry{Tool: "read", Parameters: map[string]any{"path": "/x"}, Status: ToolCompleted}

	messages := []Message{{ID: "m1", Role: "user", Parts: []Part{{Type: PartText, Text: "hi"}}}}
	out := Inject(state, messages, DefaultConfig(), "")

	injected := out[len(out)-1].Parts[0].Text
	if !strings.Contains(injected, "<prunable-tools>") {
		t.Errorf("expected a prunable-tools manifest, got %q", injected)
	}
	if !strings.Contains(injected, "read") {
		t.Errorf("manifest should list the live read call, got %q", injected)
	}
}

// The squash-context block reports the count of non-compacted messages.
func TestInjectSquashBlockCountsLiveMessages(t *testing.T) {
	state := newInjectState()
	state.PruneMessageIDs["m2"] = true
	messages := []Message{
		{ID: "m1", Role: "user", Parts: []Part{{Type: PartText, Text: "hi"}}},
		{ID: "m2", Role: "assistant", Parts: []Part{{Type: PartText, Text: "compacted away"}}},
		{ID: "m3", Role: "user", Parts: []Part{{Type: PartText, Text: "again"}}},
	}
	out := Inject(state, messages, DefaultConfig(), "")

	injected := out[len(out)-1].Parts[0].Text
	if !strings.Contains(injected, "<squash-context>2 live messages in this conversation</squash-context>") {
		t.Errorf("unexpected squash block: %q", injected)
	}
}

// When the conversation's last message is from the user, the synthetic
// injection is appended as its own trailing user message.
func TestInjectRolePlacementLastUser(t *testing.T) {
	state := newInjectState()
	state.ToolIDList = []string{"a"}
	state.ToolParameters["a"] = &ToolEntry{Tool: "read", Parameters: map[string]any{"path": "/x"}, Status: ToolCompleted}

	messages := []Message{{ID: "m1", Role: "user", Parts: []Part{{Type: PartText, Text: "hi"}}}}
	out := Inject(state, messages, DefaultConfig(), "")

	if out[len(out)-1].Role != "user" {
		t.Errorf("expected trailing synthetic message to have role user, got %q", out[len(out)-1].Role)
	}
}

// When the last message is from the assistant and the model family is
// not DeepSeek/Kimi, the injection is a trailing synthetic assistant
// message.
func TestInjectRolePlacementLastAssistant(t *testing.T) {
	state := newInjectState()
	state.ToolIDList = []string{"a"}
	state.ToolParameters["a"] = &ToolEntry{Tool: "read", Parameters: map[string]any{"path": "/x"}, Status: ToolCompleted}

	messages := []Message{
		{ID: "m1", Role: "user", Parts: []Part{{Type: PartText, Text: "hi"}}},
		{ID: "m2", Role: "assistant", Parts: []Part{{Type: PartText, Text: "ok"}}},
	}
	out := Inject(state, messages, DefaultConfig(), "claude")

	if out[len(out)-1].Role != "assistant" {
		t.Errorf("expected trailing synthetic message to have role assistant, got %q", out[len(out)-1].Role)
	}
}

// DeepSeek/Kimi-family models never get a trailing assistant text
// message; the injection is attached as a tool-shaped part on the last
// assistant message instead.
func TestInjectDeepseekKimiUsesToolNote(t *testing.T) {
	state := newInjectState()
	state.ToolIDList = []string{"a"}
	state.ToolParameters["a"] = &ToolEntry{Tool: "read", Parameters: map[string]any{"path": "/x"}, Status: ToolCompleted}

	messages := []Message{
		{ID: "m1", Role: "user", Parts: []Part{{Type: PartText, Text: "hi"}}},
		{ID: "m2", Role: "assistant", Parts: []Part{{Type: PartText, Text: "ok"}}},
	}
	out := Inject(state, messages, DefaultConfig(), "deepseek")

	if len(out) != 2 {
		t.Fatalf("deepseek family must not append a trailing message, got %d", len(out))
	}
	lastParts := out[1].Parts
	found := false
	for _, p := range lastParts {
		if p.Type == PartTool && p.Tool == "context-injector" {
			found = true
			if !strings.Contains(p.Output, "<prunable-tools>") {
				t.Errorf("tool-note output missing manifest: %q", p.Output)
			}
		}
	}
	if !found {
		t.Errorf("expected a context-injector tool part appended to the last assistant message")
	}
}

// With nothing to inject (no cooldown, no live tools, compress
// disabled, nudge not due), Inject is a no-op.
func TestInjectNoopWhenNothingToSay(t *testing.T) {
	state := newInjectState()
	cfg := DefaultConfig()
	cfg.Tools.Prune.Enabled = false
	cfg.Tools.Distill.Enabled = false
	cfg.Tools.Compress.Enabled = false
	cfg.Tools.Settings.NudgeEnabled = false

	messages := []Message{{ID: "m1", Role: "user", Parts: []Part{{Type: PartText, Text: "hi"}}}}
	out := Inject(state, messages, cfg, "")

	if len(out) != 1 {
		t.Errorf("expected no synthetic message appended, got %d messages", len(out))
	}
}
