package dcp

import (
	"context"
	"fmt"
	"strings"

	hosttool "github.com/syntax-syndicate/opencode-dynamic-context-pruning/internal/tool"
)

// boundaryHit locates a single occurrence of a boundary string in the
// transcript, per spec §4.5 compress: a single-match search across (a)
// existing compressSummaries' summary text and (b) every message part's
// text/tool-input/tool-output.
type boundaryHit struct {
	MessageIndex int
	MessageID    string
}

// findBoundary returns the unique location of needle across summaries and
// messages, in transcript order. ok is false when the match count is not
// exactly one.
func findBoundary(state *SessionState, messages []Message, needle string) (boundaryHit, bool) {
	if needle == "" {
		return boundaryHit{}, false
	}
	var hits []boundaryHit

	for _, s := range state.CompressSummaries {
		if strings.Contains(s.Summary, needle) {
			for i, msg := range messages {
				if msg.ID == s.AnchorMessageID {
					hits = append(hits, boundaryHit{MessageIndex: i, MessageID: msg.ID})
					break
				}
			}
		}
	}

	for i, msg := range messages {
		for _, part := range msg.Parts {
			if strings.Contains(part.Text, needle) ||
				strings.Contains(part.Output, needle) ||
				containsInInput(part.Input, needle) {
				hits = append(hits, boundaryHit{MessageIndex: i, MessageID: msg.ID})
				break
			}
		}
	}

	if len(hits) != 1 {
		return boundaryHit{}, false
	}
	return hits[0], true
}

func containsInInput(input map[string]any, needle string) bool {
	for _, k := range sortedKeys(input) {
		if s, ok := input[k].(string); ok && strings.Contains(s, needle) {
			return true
		}
	}
	return false
}

// CompressTool builds the model-callable `compress` tool (spec §4.5).
func (d *Dispatcher) CompressTool() *hosttool.ToolDef {
	return &hosttool.ToolDef{
		Name:        "compress",
		Description: CompressToolDescription(d.Config),
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"topic": map[string]interface{}{"type": "string"},
				"content": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"startString": map[string]interface{}{"type": "string"},
						"endString":   map[string]interface{}{"type": "string"},
						"summary":     map[string]interface{}{"type": "string"},
					},
					"required": []string{"startString", "endString", "summary"},
				},
			},
			"required": []string{"topic", "content"},
		},
		Execute: func(ctx context.Context, tc *hosttool.ToolContext, input map[string]interface{}) (*hosttool.ToolResult, error) {
			if tc.IsSubAgent {
				return &hosttool.ToolResult{Output: SubAgentTerminalMessage}, nil
			}
			topic, _ := input["topic"].(string)
			content, ok := input["content"].(map[string]any)
			if !ok {
				return nil, fmt.Errorf("compress: content must be an object with startString, endString, summary")
			}
			startString, _ := content["startString"].(string)
			endString, _ := content["endString"].(string)
			summary, _ := content["summary"].(string)
			if startString == "" || endString == "" || summary == "" {
				return nil, fmt.Errorf("compress: startString, endString and summary are all required")
			}

			if d.Messages == nil {
				return nil, fmt.Errorf("compress: transcript is unavailable")
			}
			messages, err := d.Messages(tc.SessionID)
			if err != nil {
				return nil, fmt.Errorf("compress: failed to read transcript: %w", err)
			}

			state := d.Manager.EnsureInitialized(tc.SessionID, false)

			start, ok := findBoundary(state, messages, startString)
			if !ok {
				return nil, fmt.Errorf("compress: startString must match exactly one location in the transcript")
			}
			end, ok := findBoundary(state, messages, endString)
			if !ok {
				return nil, fmt.Errorf("compress: endString must match exactly one location in the transcript")
			}
			if start.MessageIndex > end.MessageIndex {
				return nil, fmt.Errorf("compress: startString must occur before endString")
			}

			var messageIDs []string
			for i := start.MessageIndex; i <= end.MessageIndex; i++ {
				msg := messages[i]
				messageIDs = append(messageIDs, msg.ID)
				state.PruneMessageIDs[msg.ID] = true
				for _, part := range msg.Parts {
					if part.Type == PartTool && part.CallID != "" {
						state.PruneToolIDs[lowerID(part.CallID)] = true
					}
				}
			}

			kept := state.CompressSummaries[:0:0]
			for _, s := range state.CompressSummaries {
				subsumed := false
				for i := start.MessageIndex; i <= end.MessageIndex; i++ {
					if messages[i].ID == s.AnchorMessageID {
						subsumed = true
						break
					}
				}
				if !subsumed {
					kept = append(kept, s)
				}
			}
			kept = append(kept, CompressSummary{
				AnchorMessageID: start.MessageID,
				Topic:           topic,
				Summary:         summary,
			})
			state.CompressSummaries = kept

			markLastToolPrune(state)
			d.finish(state)

			sum := fmt.Sprintf("Compressed %d message%s into a summary: %s", len(messageIDs), plural(len(messageIDs)), topic)
			detail := summary
			if !d.Config.Tools.Compress.ShowCompression {
				detail = ""
			}
			Deliver(d.Notifier, d.Config, Notification{
				Reason:  ReasonCompress,
				Summary: sum,
				Detail:  detail,
			})

			return &hosttool.ToolResult{
				Output: fmt.Sprintf("Compressed %s through %s (%d messages) under topic %q", start.MessageID, end.MessageID, len(messageIDs), topic),
			}, nil
		},
	}
}

// CompressToolDescription renders the compress tool's markdown description
// through the conditional-section template renderer (spec §9).
func CompressToolDescription(cfg Config) string {
	return RenderPrompt(compressDescriptionTemplate, cfg)
}

const compressDescriptionTemplate = `Compress a contiguous range of the conversation into a short summary.
Give a startString and endString that each appear exactly once in the
transcript; every message and tool call between them, inclusive, is
replaced by your summary.
<prune>Prefer prune for a single tool call; use compress for a whole range of conversation.</prune>
A compress that covers an earlier compressed range replaces it.`
