package dcp

import (
	"context"
	"fmt"
	"strings"

	hosttool "github.com/syntax-syndicate/opencode-dynamic-context-pruning/internal/tool"
)

// DistillTarget is one element of the object-array form of the distill
// tool's targets parameter (spec §9 open question (a): two schemas exist
// upstream — array-of-objects and parallel arrays; this implementation
// takes the object-array form as the contract and falls back to parsing
// parallel "ids"/"distillations" arrays when targets is absent).
type DistillTarget struct {
	ID           string
	Distillation string
}

// parseDistillTargets accepts either the object-array shape
// ([{"id":..,"distillation":..}, ...]) or the legacy parallel-array shape
// ("ids": [...], "distillations": [...]), per spec §9 open question (a).
func parseDistillTargets(input map[string]interface{}) ([]DistillTarget, bool) {
	if raw, ok := input["targets"].([]any); ok {
		targets := make([]DistillTarget, 0, len(raw))
		for _, item := range raw {
			obj, ok := item.(map[string]any)
			if !ok {
				return nil, false
			}
			id, _ := obj["id"].(string)
			distillation, _ := obj["distillation"].(string)
			if id == "" {
				return nil, false
			}
			targets = append(targets, DistillTarget{ID: id, Distillation: distillation})
		}
		return targets, true
	}

	ids, idsOK := stringList(input["ids"])
	distillations, distOK := stringList(input["distillations"])
	if idsOK && distOK && len(ids) == len(distillations) && len(ids) > 0 {
		targets := make([]DistillTarget, len(ids))
		for i := range ids {
			targets[i] = DistillTarget{ID: ids[i], Distillation: distillations[i]}
		}
		return targets, true
	}
	return nil, false
}

// DistillTool builds the model-callable `distill` tool (spec §4.5). It
// behaves like prune except the preserved distillation text is stored and
// surfaced in the notification so the user can see what knowledge the
// model chose to keep.
func (d *Dispatcher) DistillTool() *hosttool.ToolDef {
	return &hosttool.ToolDef{
		Name:        "distill",
		Description: DistillToolDescription(d.Config),
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"targets": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"id":           map[string]interface{}{"type": "string"},
							"distillation": map[string]interface{}{"type": "string"},
						},
						"required": []string{"id", "distillation"},
					},
					"description": "Tools to distill: manifest index plus a short summary of what to keep",
				},
			},
			"required": []string{"targets"},
		},
		Execute: func(ctx context.Context, tc *hosttool.ToolContext, input map[string]interface{}) (*hosttool.ToolResult, error) {
			if tc.IsSubAgent {
				return &hosttool.ToolResult{Output: SubAgentTerminalMessage}, nil
			}
			targets, ok := parseDistillTargets(input)
			if !ok || len(targets) == 0 {
				return nil, fmt.Errorf("distill: targets must be a non-empty array of {id, distillation}")
			}

			ids := make([]string, len(targets))
			byIndex := make(map[int]string, len(targets))
			for i, t := range targets {
				ids[i] = t.ID
				if idx, ok := parseIndex(t.ID); ok {
					byIndex[idx] = t.Distillation
				}
			}

			state := d.Manager.EnsureInitialized(tc.SessionID, false)
			valid, skipped := validateIDs(state, d.Config, ids)
			if len(valid) == 0 {
				return nil, &ErrNoValidIDs{Skipped: skipped}
			}

			saved := 0
			var pruned []string
			var kept []string
			for _, v := range valid {
				state.PruneToolIDs[v.CallID] = true
				saved += RedactionSavings(v.Entry.Output, OutputPlaceholder)
				pruned = append(pruned, v.CallID)
				if d.Config.Tools.Distill.ShowDistillation {
					if text := byIndex[v.Index]; text != "" {
						kept = append(kept, fmt.Sprintf("%s: %s", v.CallID, text))
					}
				}
			}
			state.Stats.PruneTokenCounter += saved
			state.Stats.TotalPruneTokens += saved
			markLastToolPrune(state)
			d.finish(state)

			summary := fmt.Sprintf("Distilled %d tool output%s (~%d tokens saved)", len(pruned), plural(len(pruned)), saved)
			detail := strings.Join(kept, "\n")
			Deliver(d.Notifier, d.Config, Notification{
				Reason:  ReasonDistill,
				Summary: summary,
				Detail:  detail,
			})

			return &hosttool.ToolResult{
				Output: fmt.Sprintf("Distilled: %s%s", strings.Join(pruned, ", "), formatSkipped(skipped)),
			}, nil
		},
	}
}

// DistillToolDescription renders the distill tool's markdown description
// through the conditional-section template renderer (spec §9).
func DistillToolDescription(cfg Config) string {
	return RenderPrompt(distillDescriptionTemplate, cfg)
}

const distillDescriptionTemplate = `Distill the output of one or more previous tool calls, keeping a short
summary of what you still need from each instead of discarding it outright.
Reference tools by the numeric index shown in <prunable-tools>.
<prune>Prefer prune when you need nothing at all from the output.</prune>
The distillation text is not parsed or verified; write it for your own future reference.`
