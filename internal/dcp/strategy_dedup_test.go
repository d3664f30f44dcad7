package dcp

import "testing"

func newTestState() *SessionState {
	return &SessionState{
		ToolParameters: make(map[string]*ToolEntry),
		PruneToolIDs:   make(map[string]bool),
	}
}

// S1: two identical read{filePath:"/x"} calls, ids A,B -> dedup marks A
// pruned, keeps B (the newest); notification matches the spec wording.
func TestDedupS1(t *testing.T) {
	state := newTestState()
	state.ToolIDList = []string{"a", "b"}
	state.ToolParameters["a"] = &ToolEntry{Tool: "read", Parameters: map[string]any{"path": "/x"}, Status: ToolCompleted}
	state.ToolParameters["b"] = &ToolEntry{Tool: "read", Parameters: map[string]any{"path": "/x"}, Status: ToolCompleted}

	notes := dedupStrategy{}.Run(state, DefaultConfig())

	if !state.PruneToolIDs["a"] {
		t.Errorf("expected a pruned")
	}
	if state.PruneToolIDs["b"] {
		t.Errorf("expected b (newest) kept")
	}
	if len(notes) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notes))
	}
	want := "read (1 duplicate): /x (1× duplicate)"
	if notes[0].Summary != want {
		t.Errorf("Summary = %q, want %q", notes[0].Summary, want)
	}
}

// Property 1: running dedup twice produces the same pruned set.
func TestDedupIdempotent(t *testing.T) {
	state := newTestState()
	state.ToolIDList = []string{"a", "b", "c"}
	for _, id := range []string{"a", "b", "c"} {
		state.ToolParameters[id] = &ToolEntry{Tool: "read", Parameters: map[string]any{"path": "/x"}, Status: ToolCompleted}
	}

	dedupStrategy{}.Run(state, DefaultConfig())
	first := snapshotPruneIDs(state)
	dedupStrategy{}.Run(state, DefaultConfig())
	second := snapshotPruneIDs(state)

	if len(first) != len(second) {
		t.Fatalf("pruned set changed: %v vs %v", first, second)
	}
	for id := range first {
		if !second[id] {
			t.Errorf("id %s dropped from pruned set on second run", id)
		}
	}
}

func snapshotPruneIDs(state *SessionState) map[string]bool {
	out := make(map[string]bool, len(state.PruneToolIDs))
	for k, v := range state.PruneToolIDs {
		out[k] = v
	}
	return out
}

// Property 2: signature is stable across key order / null-value presence.
func TestDedupSignatureStability(t *testing.T) {
	a := map[string]any{"path": "/x", "limit": nil}
	b := map[string]any{"limit": nil, "path": "/x"}
	if dedupSignature("read", a) != dedupSignature("read", b) {
		t.Errorf("signatures differ: %q vs %q", dedupSignature("read", a), dedupSignature("read", b))
	}

	c := map[string]any{"path": "/x"}
	if dedupSignature("read", a) != dedupSignature("read", c) {
		t.Errorf("null-valued key should not affect signature: %q vs %q", dedupSignature("read", a), dedupSignature("read", c))
	}
}

func TestDedupPreservesArrayOrder(t *testing.T) {
	a := map[string]any{"paths": []any{"/a", "/b"}}
	b := map[string]any{"paths": []any{"/b", "/a"}}
	if dedupSignature("glob", a) == dedupSignature("glob", b) {
		t.Errorf("array order should matter: got equal signatures")
	}
}

func TestDedupSkipsProtectedTools(t *testing.T) {
	state := newTestState()
	state.ToolIDList = []string{"a", "b"}
	state.ToolParameters["a"] = &ToolEntry{Tool: "todoread", Parameters: map[string]any{}, Status: ToolCompleted}
	state.ToolParameters["b"] = &ToolEntry{Tool: "todoread", Parameters: map[string]any{}, Status: ToolCompleted}

	dedupStrategy{}.Run(state, DefaultConfig())

	if len(state.PruneToolIDs) != 0 {
		t.Errorf("protected tool should never be pruned, got %v", state.PruneToolIDs)
	}
}
