package dcp

import "testing"

func newRewriteState(prunedIDs ...string) *SessionState {
	state := &SessionState{
		PruneToolIDs:    make(map[string]bool),
		PruneMessageIDs: make(map[string]bool),
	}
	for _, id := range prunedIDs {
		state.PruneToolIDs[id] = true
	}
	return state
}

// Property 7: a pruned completed non-write/edit tool gets its output
// redacted; a pruned completed write/edit gets its input redacted
// instead, and the output is left untouched either way.
func TestRewriteOutputVsInputRedaction(t *testing.T) {
	state := newRewriteState("a", "w")
	messages := []Message{
		{ID: "m1", Parts: []Part{
			{Type: PartTool, CallID: "a", Tool: "read", Status: ToolCompleted, Output: "file contents"},
			{Type: PartTool, CallID: "w", Tool: "write", Status: ToolCompleted, Output: "wrote 12 bytes",
				Input: map[string]any{"path": "/x", "content": "hello world"}},
		}},
	}

	Rewrite(state, messages)

	read := messages[0].Parts[0]
	if read.Output != OutputPlaceholder {
		t.Errorf("read output = %q, want placeholder", read.Output)
	}

	write := messages[0].Parts[1]
	if write.Output != "wrote 12 bytes" {
		t.Errorf("write output must be untouched, got %q", write.Output)
	}
	if write.Input["content"] != InputPlaceholder {
		t.Errorf("write input[content] = %v, want placeholder", write.Input["content"])
	}
}

// Edit redacts both old_string and new_string, leaving other input
// fields (e.g. path) alone.
func TestRewriteEditRedactsOldAndNewString(t *testing.T) {
	state := newRewriteState("e")
	messages := []Message{
		{ID: "m1", Parts: []Part{
			{Type: PartTool, CallID: "e", Tool: "edit", Status: ToolCompleted,
				Input: map[string]any{"path": "/x", "old_string": "foo", "new_string": "bar"}},
		}},
	}

	Rewrite(state, messages)

	input := messages[0].Parts[0].Input
	if input["old_string"] != InputPlaceholder || input["new_string"] != InputPlaceholder {
		t.Errorf("edit redaction incomplete: %v", input)
	}
	if input["path"] != "/x" {
		t.Errorf("path must be left alone, got %v", input["path"])
	}
}

// A pruned tool whose call is still pending/running is left alone —
// redacting output that doesn't exist yet would be wrong.
func TestRewriteSkipsPendingAndRunning(t *testing.T) {
	state := newRewriteState("p", "r")
	messages := []Message{
		{ID: "m1", Parts: []Part{
			{Type: PartTool, CallID: "p", Tool: "read", Status: ToolPending, Output: ""},
			{Type: PartTool, CallID: "r", Tool: "read", Status: ToolRunning, Output: ""},
		}},
	}

	Rewrite(state, messages)

	if messages[0].Parts[0].Output == OutputPlaceholder || messages[0].Parts[1].Output == OutputPlaceholder {
		t.Errorf("pending/running parts must never be redacted")
	}
}

// A message listed in PruneMessageIDs (compacted into a summary) is
// skipped entirely by the rewriter, even if one of its tool parts is
// also in PruneToolIDs — the compress injection path owns its display.
func TestRewriteSkipsCompactedMessages(t *testing.T) {
	state := newRewriteState("a")
	state.PruneMessageIDs["m1"] = true
	messages := []Message{
		{ID: "m1", Parts: []Part{
			{Type: PartTool, CallID: "a", Tool: "read", Status: ToolCompleted, Output: "file contents"},
		}},
	}

	Rewrite(state, messages)

	if messages[0].Parts[0].Output != "file contents" {
		t.Errorf("compacted message part must be left untouched by Rewrite, got %q", messages[0].Parts[0].Output)
	}
}

// S3: a purged errored call (e.g. bash aged past purgeErrors.turns) gets
// its input redacted with the generic error placeholder, since it isn't
// write/edit; the stored error text is left untouched.
func TestRewriteRedactsErroredNonWriteInput(t *testing.T) {
	state := newRewriteState("e")
	messages := []Message{
		{ID: "m1", Parts: []Part{
			{Type: PartTool, CallID: "e", Tool: "bash", Status: ToolError,
				Input: map[string]any{"command": "npm test"}, Error: "permission denied"},
		}},
	}

	Rewrite(state, messages)

	part := messages[0].Parts[0]
	if part.Input["command"] != ErrorInputPlaceholder {
		t.Errorf("errored input[command] = %v, want placeholder", part.Input["command"])
	}
	if part.Error != "permission denied" {
		t.Errorf("Rewrite must never touch the stored error text, got %q", part.Error)
	}
}

// Tool parts not marked pruned are never touched.
func TestRewriteLeavesUnprunedPartsAlone(t *testing.T) {
	state := newRewriteState()
	messages := []Message{
		{ID: "m1", Parts: []Part{
			{Type: PartTool, CallID: "a", Tool: "read", Status: ToolCompleted, Output: "file contents"},
		}},
	}

	Rewrite(state, messages)

	if messages[0].Parts[0].Output != "file contents" {
		t.Errorf("unpruned part must be untouched, got %q", messages[0].Parts[0].Output)
	}
}
