package dcp

import (
	"github.com/syntax-syndicate/opencode-dynamic-context-pruning/internal/session"
)

// FromSession adapts the teacher's session.Message/session.Part transcript
// (spec §3 binding: "the engine binds to the teacher's existing
// session.Message/session.Part types") onto the engine's own Message/Part
// shape. The teacher models one tool call as a pair of parts (`tool_use`
// carrying the input, `tool_result` carrying the output) linked by
// ToolID, where the spec's Part carries both on one record; this merges
// that pair into a single dcp.Part per tool call, keyed by ToolID within
// a message.
func FromSession(sessionID string, messages []session.Message) []Message {
	out := make([]Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, Message{
			ID:        m.ID,
			Role:      m.Role,
			SessionID: sessionID,
			Agent:     m.AgentName,
			Model:     m.ModelID,
			Variant:   m.Variant,
			Created:   m.CreatedAt,
			Summary:   m.IsSummary,
			Parts:     fromSessionParts(m.Parts),
		})
	}
	return out
}

func fromSessionParts(parts []session.Part) []Part {
	out := make([]Part, 0, len(parts))
	pending := make(map[string]int) // ToolID -> index in out

	for _, p := range parts {
		switch p.Type {
		case "tool_use":
			idx := len(out)
			out = append(out, Part{
				ID:     p.ToolID,
				Type:   PartTool,
				CallID: p.ToolID,
				Tool:   p.ToolName,
				Input:  p.ToolInput,
				Status: sessionStatusToToolStatus(p.Status),
			})
			pending[p.ToolID] = idx
		case "tool_result":
			if idx, ok := pending[p.ToolID]; ok {
				out[idx].Output = p.Content
				out[idx].Status = sessionStatusToToolStatus(p.Status)
				if p.IsError {
					out[idx].Error = p.Content
					out[idx].Status = ToolError
				}
				continue
			}
			// A result with no matching use in this message (teacher may
			// split them across turns); keep it addressable on its own.
			out = append(out, Part{
				ID:     p.ToolID,
				Type:   PartTool,
				CallID: p.ToolID,
				Output: p.Content,
				Status: sessionStatusToToolStatus(p.Status),
			})
		case "text":
			out = append(out, Part{ID: p.ToolID, Type: PartText, Text: p.Content})
		case "step_start":
			out = append(out, Part{Type: PartStepStart})
		case "step_finish":
			out = append(out, Part{Type: PartStepFinish})
		}
	}
	return out
}

func sessionStatusToToolStatus(s string) ToolStatus {
	switch s {
	case "pending":
		return ToolPending
	case "running":
		return ToolRunning
	case "error":
		return ToolError
	default:
		return ToolCompleted
	}
}

// ApplyToSession writes the engine's redaction/injection decisions back
// onto the teacher's session.Message slice in place: output/input
// redaction is expressed by setting IsCompacted and overwriting
// Content/ToolInput to match what Rewrite produced, and synthetic
// messages appended by Inject are converted back into session.Message
// values and appended to the slice.
func ApplyToSession(messages []session.Message, rewritten []Message) []session.Message {
	byID := make(map[string]*Message, len(rewritten))
	for i := range rewritten {
		byID[rewritten[i].ID] = &rewritten[i]
	}

	out := make([]session.Message, 0, len(rewritten))
	seen := make(map[string]bool, len(messages))
	for _, orig := range messages {
		seen[orig.ID] = true
		if m, ok := byID[orig.ID]; ok {
			out = append(out, applyPartsToSession(orig, *m))
		} else {
			out = append(out, orig)
		}
	}
	for _, m := range rewritten {
		if !seen[m.ID] {
			out = append(out, toSessionMessage(m))
		}
	}
	return out
}

func applyPartsToSession(orig session.Message, m Message) session.Message {
	byCallID := make(map[string]Part, len(m.Parts))
	for _, p := range m.Parts {
		if p.CallID != "" {
			byCallID[p.CallID] = p
		}
	}
	origToolIDs := make(map[string]bool, len(orig.Parts))
	for i := range orig.Parts {
		p := &orig.Parts[i]
		if p.ToolID == "" {
			continue
		}
		origToolIDs[p.ToolID] = true
		dp, ok := byCallID[p.ToolID]
		if !ok {
			continue
		}
		switch p.Type {
		case "tool_use":
			p.ToolInput = dp.Input
		case "tool_result":
			p.Content = dp.Output
			p.IsCompacted = dp.Output == OutputPlaceholder || dp.Output == InputPlaceholder
		}
	}
	// Tool parts the injector appended to an existing message (the
	// DeepSeek/Kimi tool note) have no counterpart in orig: carry them over.
	for _, dp := range m.Parts {
		if dp.Type == PartTool && dp.CallID != "" && !origToolIDs[dp.CallID] {
			orig.Parts = append(orig.Parts, session.Part{
				Type: "tool_result", ToolID: dp.CallID, ToolName: dp.Tool, Content: dp.Output, IsSynthetic: true,
			})
		}
	}
	return orig
}

func toSessionMessage(m Message) session.Message {
	out := session.Message{
		ID:        m.ID,
		Role:      m.Role,
		CreatedAt: m.Created,
		IsSummary: m.Summary,
		AgentName: m.Agent,
		ModelID:   m.Model,
		Variant:   m.Variant,
	}
	for _, p := range m.Parts {
		switch p.Type {
		case PartText:
			out.Parts = append(out.Parts, session.Part{Type: "text", Content: p.Text, IsSynthetic: true})
			out.Content = p.Text
		case PartTool:
			out.Parts = append(out.Parts, session.Part{
				Type:        "tool_result",
				ToolID:      p.CallID,
				ToolName:    p.Tool,
				Content:     p.Output,
				IsSynthetic: true,
			})
		}
	}
	return out
}
