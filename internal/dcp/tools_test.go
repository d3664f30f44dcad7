package dcp

import (
	"context"
	"strings"
	"testing"

	hosttool "github.com/syntax-syndicate/opencode-dynamic-context-pruning/internal/tool"
)

type recordingNotifier struct {
	toasts   []string
	messages []string
}

func (r *recordingNotifier) Toast(msg string)    { r.toasts = append(r.toasts, msg) }
func (r *recordingNotifier) Message(text string) { r.messages = append(r.messages, text) }

func newDispatcher() (*Dispatcher, *Manager) {
	m := NewManager(nil)
	return &Dispatcher{Manager: m, Config: DefaultConfig(), Notifier: &recordingNotifier{}}, m
}

func seedToolCache(state *SessionState, ids ...string) {
	for _, id := range ids {
		state.ToolIDList = append(state.ToolIDList, id)
		state.ToolParameters[id] = &ToolEntry{Tool: "read", Parameters: map[string]any{"path": "/" + id}, Status: ToolCompleted, Output: "contents of " + id}
	}
}

// Property 6: an out-of-range index is rejected and the original
// requested string is echoed back in the error/skip text.
func TestPruneRejectsOutOfRangeIndex(t *testing.T) {
	d, m := newDispatcher()
	state := m.EnsureInitialized("s1", false)
	seedToolCache(state, "a")

	tool := d.PruneTool()
	_, err := tool.Execute(context.Background(), &hosttool.ToolContext{SessionID: "s1"}, map[string]interface{}{
		"ids": []any{"9999"},
	})
	if err == nil {
		t.Fatalf("expected an error for an out-of-range id")
	}
	if !strings.Contains(err.Error(), "9999") {
		t.Errorf("error should mention the requested id 9999, got %q", err.Error())
	}
}

// A mix of one valid and one invalid id succeeds, pruning the valid one
// and reporting the invalid one as skipped rather than failing outright.
func TestPruneSkipsInvalidKeepsValid(t *testing.T) {
	d, m := newDispatcher()
	state := m.EnsureInitialized("s1", false)
	seedToolCache(state, "a")

	tool := d.PruneTool()
	result, err := tool.Execute(context.Background(), &hosttool.ToolContext{SessionID: "s1"}, map[string]interface{}{
		"ids": []any{"0", "42"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !state.PruneToolIDs["a"] {
		t.Errorf("expected valid id 0 (callID a) to be pruned")
	}
	if !strings.Contains(result.Output, "42") {
		t.Errorf("expected skipped id 42 mentioned in output, got %q", result.Output)
	}
}

// Property 5: sub-agent sessions get the terminal message and never
// mutate state.
func TestSubAgentGuardBlocksAllThreeTools(t *testing.T) {
	d, m := newDispatcher()
	state := m.EnsureInitialized("s1", false)
	seedToolCache(state, "a")

	tc := &hosttool.ToolContext{SessionID: "s1", IsSubAgent: true}

	for _, tool := range []*hosttool.ToolDef{d.PruneTool(), d.DistillTool(), d.CompressTool()} {
		result, err := tool.Execute(context.Background(), tc, map[string]interface{}{
			"ids":     []any{"0"},
			"targets": []any{map[string]any{"id": "0", "distillation": "x"}},
			"topic":   "x",
			"content": map[string]any{"startString": "a", "endString": "b", "summary": "c"},
		})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tool.Name, err)
		}
		if result.Output != SubAgentTerminalMessage {
			t.Errorf("%s: output = %q, want sub-agent terminal message", tool.Name, result.Output)
		}
	}
	if len(state.PruneToolIDs) != 0 {
		t.Errorf("sub-agent calls must never mutate PruneToolIDs, got %v", state.PruneToolIDs)
	}
}

// With ShowDistillation enabled, a distilled tool's summary text must
// reach the delivered notification's Detail (spec §4.5) — this requires
// the targets' manifest-index keys and the resolved valid entries to
// actually line up.
func TestDistillSurfacesDistillationText(t *testing.T) {
	d, m := newDispatcher()
	d.Config.Tools.Distill.ShowDistillation = true
	d.Config.PruningSummary = SummaryDetailed
	state := m.EnsureInitialized("s1", false)
	seedToolCache(state, "a")

	tool := d.DistillTool()
	_, err := tool.Execute(context.Background(), &hosttool.ToolContext{SessionID: "s1"}, map[string]interface{}{
		"targets": []any{map[string]any{"id": "0", "distillation": "kept the schema, dropped the rows"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	notifier := d.Notifier.(*recordingNotifier)
	if len(notifier.toasts) == 0 && len(notifier.messages) == 0 {
		t.Fatalf("expected a delivered notification")
	}
	var delivered string
	if len(notifier.messages) > 0 {
		delivered = notifier.messages[len(notifier.messages)-1]
	} else {
		delivered = notifier.toasts[len(notifier.toasts)-1]
	}
	if !strings.Contains(delivered, "kept the schema, dropped the rows") {
		t.Errorf("expected distillation text surfaced in the notification, got %q", delivered)
	}
}

func withMessages(d *Dispatcher, messages []Message) {
	d.Messages = func(sessionID string) ([]Message, error) {
		return messages, nil
	}
}

// S4: compress over a contiguous range marks every message and tool
// call in range as pruned and records a new summary anchored at the
// range start.
func TestCompressS4(t *testing.T) {
	d, m := newDispatcher()
	state := m.EnsureInitialized("s1", false)

	messages := []Message{
		{ID: "m0", Role: "user", Parts: []Part{{Type: PartText, Text: "start the task"}}},
		{ID: "m1", Role: "assistant", Parts: []Part{
			{Type: PartTool, CallID: "t1", Tool: "bash", Status: ToolCompleted, Output: "installed deps"},
		}},
		{ID: "m2", Role: "assistant", Parts: []Part{
			{Type: PartTool, CallID: "t2", Tool: "read", Status: ToolCompleted, Output: "file contents here"},
		}},
		{ID: "m3", Role: "user", Parts: []Part{{Type: PartText, Text: "task complete marker"}}},
		{ID: "m4", Role: "user", Parts: []Part{{Type: PartText, Text: "what's next?"}}},
	}
	state.ToolIDList = []string{"t1", "t2"}
	state.ToolParameters["t1"] = &ToolEntry{Tool: "bash", Status: ToolCompleted}
	state.ToolParameters["t2"] = &ToolEntry{Tool: "read", Status: ToolCompleted}

	withMessages(d, messages)

	tool := d.CompressTool()
	_, err := tool.Execute(context.Background(), &hosttool.ToolContext{SessionID: "s1"}, map[string]interface{}{
		"topic": "setup",
		"content": map[string]interface{}{
			"startString": "start the task",
			"endString":   "task complete marker",
			"summary":     "installed dependencies and inspected a file",
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, id := range []string{"m0", "m1", "m2", "m3"} {
		if !state.PruneMessageIDs[id] {
			t.Errorf("expected message %s in compressed range to be pruned", id)
		}
	}
	if state.PruneMessageIDs["m4"] {
		t.Errorf("message m4 is outside the compressed range and must not be pruned")
	}
	if !state.PruneToolIDs["t1"] || !state.PruneToolIDs["t2"] {
		t.Errorf("expected both tool calls in range pruned, got %v", state.PruneToolIDs)
	}
	if len(state.CompressSummaries) != 1 || state.CompressSummaries[0].AnchorMessageID != "m0" {
		t.Errorf("unexpected compress summaries: %+v", state.CompressSummaries)
	}
}

// Property 4: a second compress whose range subsumes an earlier
// summary's anchor replaces that summary rather than keeping both.
func TestCompressSubsumesEarlierSummary(t *testing.T) {
	d, m := newDispatcher()
	state := m.EnsureInitialized("s1", false)
	state.ToolIDList = []string{}
	state.CompressSummaries = []CompressSummary{
		{AnchorMessageID: "m1", Topic: "old", Summary: "previously summarized setup"},
	}

	messages := []Message{
		{ID: "m0", Role: "user", Parts: []Part{{Type: PartText, Text: "unrelated earlier message"}}},
		{ID: "m1", Role: "user", Parts: []Part{{Type: PartText, Text: "begin wider range"}}},
		{ID: "m2", Role: "user", Parts: []Part{{Type: PartText, Text: "end wider range"}}},
	}
	withMessages(d, messages)

	tool := d.CompressTool()
	_, err := tool.Execute(context.Background(), &hosttool.ToolContext{SessionID: "s1"}, map[string]interface{}{
		"topic": "wider",
		"content": map[string]interface{}{
			"startString": "begin wider range",
			"endString":   "end wider range",
			"summary":     "a broader summary spanning the old range",
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(state.CompressSummaries) != 1 {
		t.Fatalf("expected exactly 1 surviving summary after subsumption, got %d: %+v", len(state.CompressSummaries), state.CompressSummaries)
	}
	if state.CompressSummaries[0].Topic != "wider" {
		t.Errorf("expected the old summary (anchored inside the new range) replaced, got %+v", state.CompressSummaries)
	}
}

// A startString/endString that matches zero or more than one location
// is rejected.
func TestCompressRejectsAmbiguousBoundary(t *testing.T) {
	d, m := newDispatcher()
	m.EnsureInitialized("s1", false)

	messages := []Message{
		{ID: "m0", Role: "user", Parts: []Part{{Type: PartText, Text: "duplicate marker"}}},
		{ID: "m1", Role: "user", Parts: []Part{{Type: PartText, Text: "duplicate marker"}}},
		{ID: "m2", Role: "user", Parts: []Part{{Type: PartText, Text: "end marker"}}},
	}
	withMessages(d, messages)

	tool := d.CompressTool()
	_, err := tool.Execute(context.Background(), &hosttool.ToolContext{SessionID: "s1"}, map[string]interface{}{
		"topic": "x",
		"content": map[string]interface{}{
			"startString": "duplicate marker",
			"endString":   "end marker",
			"summary":     "y",
		},
	})
	if err == nil {
		t.Fatalf("expected an error for an ambiguous startString match")
	}
}
