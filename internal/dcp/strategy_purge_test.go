package dcp

import "testing"

// S3: an errored tool call reaches the configured turn-age threshold ->
// purge marks its input for redaction while leaving the call itself
// live (still referenced, error text untouched by this strategy).
func TestPurgeS3(t *testing.T) {
	state := newTestState()
	state.ToolIDList = []string{"e"}
	state.CurrentTurn = 5
	state.ToolParameters["e"] = &ToolEntry{
		Tool:       "bash",
		Parameters: map[string]any{"command": "rm -rf /nope"},
		Status:     ToolError,
		Error:      "permission denied",
		Turn:       2,
	}

	cfg := DefaultConfig()
	cfg.Strategies.PurgeErrors.Turns = 3

	notes := purgeErrorsStrategy{}.Run(state, cfg)

	if !state.PruneToolIDs["e"] {
		t.Errorf("expected errored call aged past threshold to be purged")
	}
	if len(notes) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notes))
	}
	if notes[0].Reason != ReasonPurge {
		t.Errorf("Reason = %q, want %q", notes[0].Reason, ReasonPurge)
	}
	if state.ToolParameters["e"].Error != "permission denied" {
		t.Errorf("purge must never touch the stored error text")
	}
}

// An errored call younger than the threshold is left alone.
func TestPurgeSkipsYoungErrors(t *testing.T) {
	state := newTestState()
	state.ToolIDList = []string{"e"}
	state.CurrentTurn = 3
	state.ToolParameters["e"] = &ToolEntry{Tool: "bash", Parameters: map[string]any{"command": "x"}, Status: ToolError, Turn: 2}

	cfg := DefaultConfig()
	cfg.Strategies.PurgeErrors.Turns = 3

	purgeErrorsStrategy{}.Run(state, cfg)

	if state.PruneToolIDs["e"] {
		t.Errorf("error only 1 turn old should not be purged against a threshold of 3")
	}
}

// Completed (non-error) calls are never purged, no matter how old.
func TestPurgeSkipsCompletedCalls(t *testing.T) {
	state := newTestState()
	state.ToolIDList = []string{"c"}
	state.CurrentTurn = 10
	state.ToolParameters["c"] = &ToolEntry{Tool: "bash", Parameters: map[string]any{"command": "x"}, Status: ToolCompleted, Turn: 1}

	purgeErrorsStrategy{}.Run(state, DefaultConfig())

	if state.PruneToolIDs["c"] {
		t.Errorf("completed calls must never be purged by purgeErrors")
	}
}

// Disabling the strategy is a hard no-op.
func TestPurgeDisabled(t *testing.T) {
	state := newTestState()
	state.ToolIDList = []string{"e"}
	state.CurrentTurn = 10
	state.ToolParameters["e"] = &ToolEntry{Tool: "bash", Status: ToolError, Turn: 1}

	cfg := DefaultConfig()
	cfg.Strategies.PurgeErrors.Enabled = false

	notes := purgeErrorsStrategy{}.Run(state, cfg)

	if len(state.PruneToolIDs) != 0 || len(notes) != 0 {
		t.Errorf("disabled purgeErrors strategy must not mark or notify")
	}
}
