package session

import (
	"errors"
	"testing"

	"github.com/syntax-syndicate/opencode-dynamic-context-pruning/internal/tool"
)

func TestModelFamilyOf(t *testing.T) {
	cases := map[string]string{
		"deepseek-chat":          "deepseek",
		"moonshot-v1-8k":         "moonshot",
		"kimi-k2-instruct":       "kimi",
		"claude-sonnet-4-5":      "",
		"gpt-4o":                 "",
		"DeepSeek-R1-Distill-Q4": "deepseek",
	}
	for model, want := range cases {
		if got := modelFamilyOf(model); got != want {
			t.Errorf("modelFamilyOf(%q) = %q, want %q", model, got, want)
		}
	}
}

// fakeContextEngine is a minimal stand-in for *dcp.Engine used to exercise
// PromptEngine's ContextEngine seam without constructing a real engine.
type fakeContextEngine struct {
	runErr    error
	runOutput []string
}

func (f *fakeContextEngine) MessagesTransform(sessionID string, isSubAgent bool, modelFamily string, messages []Message) []Message {
	return messages
}
func (f *fakeContextEngine) SystemTransform(sessionID string, isSubAgent bool, existingSystem []string) []string {
	return nil
}
func (f *fakeContextEngine) ChatMessage(sessionID, providerID, modelID, variant string) {}
func (f *fakeContextEngine) RegisterTools(r *tool.Registry)                             {}
func (f *fakeContextEngine) RunCommand(sessionID string, arguments []string, prompt func(text string) error) error {
	for _, line := range f.runOutput {
		if err := prompt(line); err != nil {
			return err
		}
	}
	return f.runErr
}

func TestRunDCPCommandWithoutEngine(t *testing.T) {
	pe := &PromptEngine{}
	if _, err := pe.RunDCPCommand("s1", []string{"stats"}); err == nil {
		t.Fatal("expected an error when no context engine is configured")
	}
}

// Captured output means handled, even when RunCommand also returns its
// completion sentinel error.
func TestRunDCPCommandCapturesOutputDespiteSentinelError(t *testing.T) {
	pe := &PromptEngine{}
	pe.SetContextEngine(&fakeContextEngine{
		runOutput: []string{"pruned 2 tool calls"},
		runErr:    errors.New("__DCP_PRUNE_HANDLED__"),
	})

	out, err := pe.RunDCPCommand("s1", []string{"prune", "0"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "pruned 2 tool calls" {
		t.Errorf("output = %q, want the captured prompt text", out)
	}
}

// An empty capture with an error (e.g. commands disabled) is a genuine
// failure and must be reported as such.
func TestRunDCPCommandReportsGenuineFailure(t *testing.T) {
	pe := &PromptEngine{}
	pe.SetContextEngine(&fakeContextEngine{runErr: errors.New("commands are disabled")})

	_, err := pe.RunDCPCommand("s1", []string{"prune", "0"})
	if err == nil {
		t.Fatal("expected the underlying error to surface when nothing was captured")
	}
}
