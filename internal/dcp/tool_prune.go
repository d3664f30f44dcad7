package dcp

import (
	"context"
	"fmt"
	"strings"

	hosttool "github.com/syntax-syndicate/opencode-dynamic-context-pruning/internal/tool"
)

// stringList coerces a JSON-decoded array parameter into []string,
// tolerating the []interface{} shape encoding/json produces.
func stringList(v any) ([]string, bool) {
	arr, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// PruneTool builds the model-callable `prune` tool (spec §4.5).
func (d *Dispatcher) PruneTool() *hosttool.ToolDef {
	return &hosttool.ToolDef{
		Name:        "prune",
		Description: PruneToolDescription(d.Config),
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"ids": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Numeric indices (as strings) from the <prunable-tools> manifest to prune",
				},
			},
			"required": []string{"ids"},
		},
		Execute: func(ctx context.Context, tc *hosttool.ToolContext, input map[string]interface{}) (*hosttool.ToolResult, error) {
			if tc.IsSubAgent {
				return &hosttool.ToolResult{Output: SubAgentTerminalMessage}, nil
			}
			ids, ok := stringList(input["ids"])
			if !ok || len(ids) == 0 {
				return nil, fmt.Errorf("prune: ids must be a non-empty array of strings")
			}

			state := d.Manager.EnsureInitialized(tc.SessionID, false)
			valid, skipped := validateIDs(state, d.Config, ids)
			if len(valid) == 0 {
				return nil, &ErrNoValidIDs{Skipped: skipped}
			}

			saved := 0
			var pruned []string
			for _, v := range valid {
				state.PruneToolIDs[v.CallID] = true
				saved += RedactionSavings(v.Entry.Output, OutputPlaceholder)
				pruned = append(pruned, v.CallID)
			}
			state.Stats.PruneTokenCounter += saved
			state.Stats.TotalPruneTokens += saved
			markLastToolPrune(state)
			d.finish(state)

			Deliver(d.Notifier, d.Config, Notification{
				Reason:  ReasonNoise,
				Summary: fmt.Sprintf("Pruned %d tool output%s (~%d tokens saved)", len(pruned), plural(len(pruned)), saved),
			})

			return &hosttool.ToolResult{
				Output: fmt.Sprintf("Pruned: %s%s", strings.Join(pruned, ", "), formatSkipped(skipped)),
			}, nil
		},
	}
}

// PruneToolDescription renders the markdown tool description through
// the conditional-section template renderer (spec §9 "Template
// conditionals"), so its wording tracks which sibling tools are enabled.
func PruneToolDescription(cfg Config) string {
	return RenderPrompt(pruneDescriptionTemplate, cfg)
}

const pruneDescriptionTemplate = `Prune the output of one or more previous tool calls to free up context.
Reference tools by the numeric index shown in <prunable-tools>.
<distill>Prefer distill over prune when the tool's output contains
information you still need — distill lets you keep a short summary.</distill>
The error message of a failed call is never pruned, only its (often large) input.`
