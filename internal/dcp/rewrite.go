package dcp

import (
	"strings"

	"github.com/google/uuid"
)

// OutputPlaceholder replaces a pruned tool's output (spec §4.3).
const OutputPlaceholder = "[Output removed to save context - information superseded or no longer needed]"

// InputPlaceholder replaces a pruned write/edit's bulky input fields.
const InputPlaceholder = "[content removed to save context, this is not what was written to the file, but a placeholder]"

// ErrorInputPlaceholder replaces the input of a pruned errored call
// (e.g. one purged by purgeErrorsStrategy) that isn't write/edit. The
// error text itself is never touched by redaction (spec §4.2 "Purge
// errors").
const ErrorInputPlaceholder = "[input removed to save context - this call failed and was purged]"

// isInputRedactedTool reports the tools whose *input* is redacted
// instead of their output (spec §4.3): write and edit carry their
// payload in the input, not a separate output blob worth nuking.
func isInputRedactedTool(tool string) bool {
	switch strings.ToLower(tool) {
	case "write", "edit":
		return true
	default:
		return false
	}
}

// Rewrite mutates messages in place per spec §4.3: for every tool part
// whose callID is in state.PruneToolIDs, either its output or its input
// is replaced with a fixed placeholder, depending on the tool. Messages
// whose id is in state.PruneMessageIDs ("compacted") are skipped by both
// redaction paths — they stay in the array as a cache-stable prefix and
// get their textual replacement from the compress summary at injection
// time instead.
func Rewrite(state *SessionState, messages []Message) {
	for i := range messages {
		msg := &messages[i]
		if state.PruneMessageIDs[msg.ID] {
			continue
		}
		for j := range msg.Parts {
			part := &msg.Parts[j]
			if part.Type != PartTool || part.CallID == "" {
				continue
			}
			id := lowerID(part.CallID)
			if !state.PruneToolIDs[id] {
				continue
			}
			if part.Status == ToolPending || part.Status == ToolRunning {
				continue
			}
			redactPart(part)
		}
	}
}

func redactPart(part *Part) {
	if isInputRedactedTool(part.Tool) {
		redactInput(part)
		return
	}
	if part.Status == ToolError {
		part.Input = redactedInputCopy(part.Input)
		return
	}
	if part.Status == ToolCompleted {
		part.Output = OutputPlaceholder
	}
}

// redactedInputCopy replaces every value in a pruned errored call's input
// with a single generic placeholder, leaving the key set intact so a
// manifest rebuild can still see which fields existed.
func redactedInputCopy(input map[string]any) map[string]any {
	if input == nil {
		return nil
	}
	out := make(map[string]any, len(input))
	for k := range input {
		out[k] = ErrorInputPlaceholder
	}
	return out
}

func redactInput(part *Part) {
	if part.Input == nil {
		return
	}
	switch strings.ToLower(part.Tool) {
	case "write":
		if _, ok := part.Input["content"]; ok {
			part.Input["content"] = InputPlaceholder
		}
	case "edit":
		if _, ok := part.Input["old_string"]; ok {
			part.Input["old_string"] = InputPlaceholder
		}
		if _, ok := part.Input["new_string"]; ok {
			part.Input["new_string"] = InputPlaceholder
		}
	}
}

// newSyntheticID produces a synthetic id with the "msg_"/"prt_" prefixes
// spec §4.3 names, backed by google/uuid the same way session.Store.Create
// mints session/message ids. The suffix is a random UUID, so ids are not
// deterministic: the same input yields a different id on every call.
func newSyntheticID(prefix string) string {
	return prefix + "_" + uuid.New().String()
}

// SyntheticMessage builds a new message carrying a fresh "msg_" id (see
// newSyntheticID) and inheriting SessionID/Agent/Model/Variant from the
// last real user message, per spec §4.3.
func SyntheticMessage(role string, lastUser Message, parts ...Part) Message {
	return Message{
		ID:        newSyntheticID("msg"),
		Role:      role,
		SessionID: lastUser.SessionID,
		Agent:     lastUser.Agent,
		Model:     lastUser.Model,
		Variant:   lastUser.Variant,
		Parts:     parts,
	}
}

// SyntheticTextPart builds a text part with a fresh "prt_" id.
func SyntheticTextPart(text string) Part {
	return Part{ID: newSyntheticID("prt"), Type: PartText, Text: text}
}

// LastNonIgnoredMessage returns the last message in messages, or the
// zero Message if the slice is empty. "Ignored" messages (host-internal,
// e.g. title-generator probes) are expected to already be filtered out
// of the slice the host hands the engine before this is called.
func LastNonIgnoredMessage(messages []Message) (Message, bool) {
	if len(messages) == 0 {
		return Message{}, false
	}
	return messages[len(messages)-1], true
}

// LastUserMessage returns the last user-role message, used as the
// inheritance source for synthetic messages.
func LastUserMessage(messages []Message) (Message, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i], true
		}
	}
	return Message{}, false
}
