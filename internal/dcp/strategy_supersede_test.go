package dcp

import "testing"

// S2: write{path:"/x", content:"..."} at a lower index, then a later
// read{path:"/x"} -> supersede marks the write pruned, keeps the read.
func TestSupersedeS2(t *testing.T) {
	state := newTestState()
	state.ToolIDList = []string{"w", "r"}
	state.ToolParameters["w"] = &ToolEntry{Tool: "write", Parameters: map[string]any{"path": "/x", "content": "hello"}, Status: ToolCompleted}
	state.ToolParameters["r"] = &ToolEntry{Tool: "read", Parameters: map[string]any{"path": "/x"}, Status: ToolCompleted}

	notes := supersedeStrategy{}.Run(state, DefaultConfig())

	if !state.PruneToolIDs["w"] {
		t.Errorf("expected write pruned")
	}
	if state.PruneToolIDs["r"] {
		t.Errorf("expected read kept")
	}
	if len(notes) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notes))
	}
	if notes[0].Reason != ReasonSupersede {
		t.Errorf("Reason = %q, want %q", notes[0].Reason, ReasonSupersede)
	}
}

// A read that precedes the write touching the same path must not
// supersede it — only a later read counts.
func TestSupersedeRequiresReadAfterWrite(t *testing.T) {
	state := newTestState()
	state.ToolIDList = []string{"r", "w"}
	state.ToolParameters["r"] = &ToolEntry{Tool: "read", Parameters: map[string]any{"path": "/x"}, Status: ToolCompleted}
	state.ToolParameters["w"] = &ToolEntry{Tool: "write", Parameters: map[string]any{"path": "/x", "content": "hello"}, Status: ToolCompleted}

	supersedeStrategy{}.Run(state, DefaultConfig())

	if state.PruneToolIDs["w"] {
		t.Errorf("write should not be pruned: the read happened before it")
	}
}

// A protected-file glob short-circuits supersession entirely: neither
// the write nor the read participates in the pending-path map.
func TestSupersedeSkipsProtectedPaths(t *testing.T) {
	state := newTestState()
	state.ToolIDList = []string{"w", "r"}
	state.ToolParameters["w"] = &ToolEntry{Tool: "write", Parameters: map[string]any{"path": "secrets.env", "content": "X=1"}, Status: ToolCompleted}
	state.ToolParameters["r"] = &ToolEntry{Tool: "read", Parameters: map[string]any{"path": "secrets.env"}, Status: ToolCompleted}

	cfg := DefaultConfig()
	cfg.ProtectedFilePatterns = []string{"secrets.env"}

	notes := supersedeStrategy{}.Run(state, cfg)

	if state.PruneToolIDs["w"] {
		t.Errorf("protected path write must never be superseded")
	}
	if len(notes) != 0 {
		t.Errorf("expected no notifications for protected path, got %v", notes)
	}
}

// Only the most recent write pending for a path is superseded; an
// earlier write to the same path that was already superseded by an
// intervening read stays out of the pending map once consumed.
func TestSupersedeConsumesPendingOnce(t *testing.T) {
	state := newTestState()
	state.ToolIDList = []string{"w1", "r1", "w2", "r2"}
	state.ToolParameters["w1"] = &ToolEntry{Tool: "write", Parameters: map[string]any{"path": "/x", "content": "a"}, Status: ToolCompleted}
	state.ToolParameters["r1"] = &ToolEntry{Tool: "read", Parameters: map[string]any{"path": "/x"}, Status: ToolCompleted}
	state.ToolParameters["w2"] = &ToolEntry{Tool: "write", Parameters: map[string]any{"path": "/x", "content": "b"}, Status: ToolCompleted}
	state.ToolParameters["r2"] = &ToolEntry{Tool: "read", Parameters: map[string]any{"path": "/x"}, Status: ToolCompleted}

	supersedeStrategy{}.Run(state, DefaultConfig())

	if !state.PruneToolIDs["w1"] || !state.PruneToolIDs["w2"] {
		t.Errorf("both writes should be superseded by their respective later reads, got %v", state.PruneToolIDs)
	}
	if state.PruneToolIDs["r1"] || state.PruneToolIDs["r2"] {
		t.Errorf("reads should never be pruned by supersede")
	}
}
