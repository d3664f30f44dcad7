package dcp

import (
	"strings"
	"testing"
)

func newTestEngine() *Engine {
	m := NewManager(nil)
	cfg := DefaultConfig()
	return &Engine{
		Manager: m,
		Config:  cfg,
		Logger:  NopLogger{},
	}
}

func captured() (func(string) error, *[]string) {
	var out []string
	return func(text string) error {
		out = append(out, text)
		return nil
	}, &out
}

func TestCommandContextShowsManifest(t *testing.T) {
	e := newTestEngine()
	state := e.Manager.EnsureInitialized("s1", false)
	state.ToolIDList = []string{"a"}
	state.ToolParameters["a"] = &ToolEntry{Tool: "read", Parameters: map[string]any{"path": "/x"}, Status: ToolCompleted}

	prompt, out := captured()
	err := e.RunCommand("s1", []string{"context"}, prompt)
	if err == nil || err.Error() != ErrContextHandled {
		t.Fatalf("expected sentinel %q, got %v", ErrContextHandled, err)
	}
	if len(*out) != 1 || !strings.Contains((*out)[0], "<prunable-tools>") {
		t.Errorf("expected manifest output, got %v", *out)
	}
}

func TestCommandContextEmptyWhenNoTools(t *testing.T) {
	e := newTestEngine()
	e.Manager.EnsureInitialized("s1", false)

	prompt, out := captured()
	_ = e.RunCommand("s1", []string{"context"}, prompt)
	if len(*out) != 1 || (*out)[0] != "(no prunable tools right now)" {
		t.Errorf("expected the empty-manifest message, got %v", *out)
	}
}

func TestCommandStatsResetsCounter(t *testing.T) {
	e := newTestEngine()
	state := e.Manager.EnsureInitialized("s1", false)
	state.Stats.PruneTokenCounter = 100
	state.Stats.TotalPruneTokens = 500

	prompt, out := captured()
	err := e.RunCommand("s1", []string{"stats"}, prompt)
	if err == nil || err.Error() != ErrStatsHandled {
		t.Fatalf("expected sentinel %q, got %v", ErrStatsHandled, err)
	}
	if !strings.Contains((*out)[0], "100 tokens saved") || !strings.Contains((*out)[0], "500 total") {
		t.Errorf("unexpected stats output: %v", *out)
	}
	if state.Stats.PruneTokenCounter != 0 {
		t.Errorf("expected PruneTokenCounter reset after /dcp stats, got %d", state.Stats.PruneTokenCounter)
	}
	if state.Stats.TotalPruneTokens != 500 {
		t.Errorf("TotalPruneTokens must survive a stats report, got %d", state.Stats.TotalPruneTokens)
	}
}

func TestCommandManualTogglesOnOff(t *testing.T) {
	e := newTestEngine()
	state := e.Manager.EnsureInitialized("s1", false)

	prompt, out := captured()
	_ = e.RunCommand("s1", []string{"manual", "on"}, prompt)
	if !state.ManualMode {
		t.Errorf("expected manual mode on")
	}
	if (*out)[0] != "Manual mode is now on." {
		t.Errorf("unexpected manual-on output: %v", *out)
	}

	prompt2, out2 := captured()
	_ = e.RunCommand("s1", []string{"manual", "off"}, prompt2)
	if state.ManualMode {
		t.Errorf("expected manual mode off")
	}
	if (*out2)[0] != "Manual mode is now off." {
		t.Errorf("unexpected manual-off output: %v", *out2)
	}
}

func TestCommandManualTogglesWithoutArgument(t *testing.T) {
	e := newTestEngine()
	state := e.Manager.EnsureInitialized("s1", false)
	state.ManualMode = false

	prompt, _ := captured()
	_ = e.RunCommand("s1", []string{"manual"}, prompt)
	if !state.ManualMode {
		t.Errorf("expected bare /dcp manual to flip the current value to on")
	}
}

func TestCommandTriggerSetsPendingManualTrigger(t *testing.T) {
	e := newTestEngine()
	state := e.Manager.EnsureInitialized("s1", false)

	prompt, out := captured()
	err := e.RunCommand("s1", []string{"prune", "the", "big", "log"}, prompt)
	if err == nil || err.Error() != ErrTriggerHandled {
		t.Fatalf("expected sentinel %q, got %v", ErrTriggerHandled, err)
	}
	if state.PendingManualTrigger == nil {
		t.Fatalf("expected a pending manual trigger to be set")
	}
	if !strings.Contains(state.PendingManualTrigger.Prompt, "the big log") {
		t.Errorf("expected focus text carried into the trigger prompt, got %q", state.PendingManualTrigger.Prompt)
	}
	if len(*out) != 1 || !strings.Contains((*out)[0], "prune") {
		t.Errorf("unexpected trigger ack output: %v", *out)
	}
}

func TestCommandUnknownShowsHelp(t *testing.T) {
	e := newTestEngine()
	e.Manager.EnsureInitialized("s1", false)

	prompt, out := captured()
	err := e.RunCommand("s1", []string{"bogus"}, prompt)
	if err == nil || err.Error() != ErrHelpHandled {
		t.Fatalf("expected sentinel %q, got %v", ErrHelpHandled, err)
	}
	if len(*out) != 1 || !strings.Contains((*out)[0], "/dcp commands:") {
		t.Errorf("expected help text, got %v", *out)
	}
}

func TestCommandEmptyArgumentsShowsHelp(t *testing.T) {
	e := newTestEngine()
	e.Manager.EnsureInitialized("s1", false)

	prompt, out := captured()
	err := e.RunCommand("s1", nil, prompt)
	if err == nil || err.Error() != ErrHelpHandled {
		t.Fatalf("expected sentinel %q, got %v", ErrHelpHandled, err)
	}
	if len(*out) != 1 {
		t.Errorf("expected help output, got %v", *out)
	}
}

func TestCommandDisabledRefusesEverything(t *testing.T) {
	e := newTestEngine()
	e.Config.Commands.Enabled = false

	prompt, out := captured()
	err := e.RunCommand("s1", []string{"context"}, prompt)
	if err == nil {
		t.Fatalf("expected an error when commands are disabled")
	}
	if len(*out) != 0 {
		t.Errorf("disabled commands must never call prompt, got %v", *out)
	}
}

// /dcp sweep [n] limits the pipeline's working set to the newest n
// non-pruned tool calls, leaving older ones untouched by this pass.
func TestCommandSweepLimitsToNewest(t *testing.T) {
	e := newTestEngine()
	state := e.Manager.EnsureInitialized("s1", false)
	state.ToolIDList = []string{"a", "b", "c", "d"}
	for _, id := range []string{"a", "b", "c", "d"} {
		state.ToolParameters[id] = &ToolEntry{Tool: "read", Parameters: map[string]any{"path": "/" + id}, Status: ToolCompleted}
	}
	// a and c share a signature so dedup has something to prune; only c
	// (the newer of the pair) should survive a sweep scoped to n=2
	// (c, d), since a falls outside that newest-2 window.
	state.ToolParameters["a"].Parameters = map[string]any{"path": "/dup"}
	state.ToolParameters["c"].Parameters = map[string]any{"path": "/dup"}

	prompt, out := captured()
	err := e.RunCommand("s1", []string{"sweep", "2"}, prompt)
	if err == nil || err.Error() != ErrSweepHandled {
		t.Fatalf("expected sentinel %q, got %v", ErrSweepHandled, err)
	}
	if len(*out) != 1 {
		t.Fatalf("expected one sweep report, got %v", *out)
	}
	if state.PruneToolIDs["a"] {
		t.Errorf("sweep scoped to n=2 must not touch the older duplicate outside the window")
	}
	// ToolIDList must be restored to its full form after the sweep.
	if len(state.ToolIDList) != 4 {
		t.Errorf("expected ToolIDList restored to its full length, got %v", state.ToolIDList)
	}
}

func TestCommandSweepDefaultsToFullPipeline(t *testing.T) {
	e := newTestEngine()
	state := e.Manager.EnsureInitialized("s1", false)
	state.ToolIDList = []string{"a", "b"}
	state.ToolParameters["a"] = &ToolEntry{Tool: "read", Parameters: map[string]any{"path": "/x"}, Status: ToolCompleted}
	state.ToolParameters["b"] = &ToolEntry{Tool: "read", Parameters: map[string]any{"path": "/x"}, Status: ToolCompleted}

	prompt, _ := captured()
	_ = e.RunCommand("s1", []string{"sweep"}, prompt)

	if !state.PruneToolIDs["a"] {
		t.Errorf("a bare /dcp sweep should run the full pipeline and dedup the duplicate pair")
	}
}
