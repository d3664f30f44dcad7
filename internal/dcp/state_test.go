package dcp

import (
	"fmt"
	"testing"
	"time"
)

func toolPart(callID, tool string, input map[string]any, status ToolStatus) Part {
	return Part{ID: callID, Type: PartTool, CallID: callID, Tool: tool, Input: input, Status: status}
}

func assistantStep() Part {
	return Part{Type: PartStepStart}
}

func TestCheckSessionBuildsToolCache(t *testing.T) {
	m := NewManager(nil)
	msgs := []Message{
		{ID: "m1", Role: "assistant", Parts: []Part{assistantStep(), toolPart("A", "read", map[string]any{"path": "/x"}, ToolCompleted)}},
	}
	state := m.CheckSession("s1", false, msgs, DefaultConfig())

	if _, ok := state.ToolParameters["a"]; !ok {
		t.Fatalf("expected lowercased callID 'a' in ToolParameters, got %v", state.ToolParameters)
	}
	if len(state.ToolIDList) != 1 || state.ToolIDList[0] != "a" {
		t.Errorf("ToolIDList = %v, want [a]", state.ToolIDList)
	}
}

func TestCompactionClearsCaches(t *testing.T) {
	// Property 3: compaction clears toolParameters, prune sets,
	// compressSummaries, nudgeCounter.
	m := NewManager(nil)
	msgs := []Message{
		{ID: "m1", Role: "assistant", Parts: []Part{assistantStep(), toolPart("A", "bash", map[string]any{"command": "ls"}, ToolCompleted)}},
	}
	state := m.CheckSession("s1", false, msgs, DefaultConfig())
	state.PruneToolIDs["a"] = true
	state.PruneMessageIDs["m1"] = true
	state.CompressSummaries = []CompressSummary{{AnchorMessageID: "m1", Summary: "x"}}
	state.NudgeCounter = 5

	compactAt := time.Now()
	msgs = append(msgs, Message{ID: "m2", Role: "assistant", Summary: true, Created: compactAt})

	state = m.CheckSession("s1", false, msgs, DefaultConfig())

	if len(state.ToolParameters) != 0 {
		t.Errorf("ToolParameters not cleared: %v", state.ToolParameters)
	}
	if len(state.PruneToolIDs) != 0 {
		t.Errorf("PruneToolIDs not cleared: %v", state.PruneToolIDs)
	}
	if len(state.PruneMessageIDs) != 0 {
		t.Errorf("PruneMessageIDs not cleared: %v", state.PruneMessageIDs)
	}
	if len(state.CompressSummaries) != 0 {
		t.Errorf("CompressSummaries not cleared: %v", state.CompressSummaries)
	}
	if state.NudgeCounter != 0 {
		t.Errorf("NudgeCounter not cleared: %d", state.NudgeCounter)
	}
	if !state.LastCompaction.Equal(compactAt) {
		t.Errorf("LastCompaction = %v, want %v", state.LastCompaction, compactAt)
	}
}

func TestToolCallIDCaseInsensitive(t *testing.T) {
	m := NewManager(nil)
	msgs := []Message{
		{ID: "m1", Role: "assistant", Parts: []Part{assistantStep(), toolPart("AbC123", "read", map[string]any{"path": "/x"}, ToolCompleted)}},
	}
	state := m.CheckSession("s1", false, msgs, DefaultConfig())
	if _, ok := state.ToolParameters["abc123"]; !ok {
		t.Fatalf("expected case-insensitively stored callID, got keys %v", state.ToolParameters)
	}
}

func TestFIFOEvictionRespectsPrunedIDs(t *testing.T) {
	m := NewManager(nil)
	var msgs []Message
	for i := 0; i < maxToolParameters+5; i++ {
		id := fmt.Sprintf("call%d", i)
		msgs = append(msgs, Message{ID: "m" + id, Role: "assistant", Parts: []Part{
			assistantStep(),
			toolPart(id, "bash", map[string]any{"command": id}, ToolCompleted),
		}})
	}
	state := m.CheckSession("s1", false, msgs, DefaultConfig())
	if len(state.ToolParameters) > maxToolParameters {
		t.Errorf("ToolParameters size %d exceeds FIFO bound %d", len(state.ToolParameters), maxToolParameters)
	}
}
