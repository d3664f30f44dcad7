package dcp

import (
	"fmt"
	"strings"
)

// ErrNoValidIDs is the user-visible failure for an id list that resolved
// to nothing usable (spec §7 "Invalid IDs provided").
type ErrNoValidIDs struct {
	Skipped []SkipReason
}

func (e *ErrNoValidIDs) Error() string {
	var reasons []string
	for _, s := range e.Skipped {
		reasons = append(reasons, fmt.Sprintf("%s (%s)", s.ID, s.Reason))
	}
	return "Invalid IDs provided: " + strings.Join(reasons, ", ")
}

// SkipReason records why one requested id was not applied, so the
// dispatcher can echo it back in the result string (spec §4.5 "Common
// validation": "Skipped ids are reported back in the result string").
type SkipReason struct {
	ID     string
	Reason string
}

// resolved is one id that passed validation: its numeric index, the
// lowercase callID it resolves to, and its cached entry.
type resolved struct {
	Index  int
	CallID string
	Entry  *ToolEntry
}

// validateIDs implements the common validation chain shared by prune and
// distill (spec §4.5; compress addresses its range by boundary strings
// and does not go through it): parse each requested index,
// resolve it against state.ToolIDList/ToolParameters, and reject
// protected tools/files. Ids that fail any check are skipped (not
// fatal) and returned in skipped; only when nothing survives is it the
// caller's job to surface ErrNoValidIDs.
func validateIDs(state *SessionState, cfg Config, ids []string) (valid []resolved, skipped []SkipReason) {
	for _, raw := range ids {
		idx, ok := parseIndex(raw)
		if !ok {
			skipped = append(skipped, SkipReason{raw, "not a valid index"})
			continue
		}
		if idx < 0 || idx >= len(state.ToolIDList) {
			skipped = append(skipped, SkipReason{raw, fmt.Sprintf("index %d out of range (0-%d)", idx, len(state.ToolIDList)-1)})
			continue
		}
		callID := state.ToolIDList[idx]
		entry, ok := state.ToolParameters[callID]
		if !ok {
			skipped = append(skipped, SkipReason{raw, "hallucinated or turn-protected id"})
			continue
		}
		if cfg.IsProtectedTool(entry.Tool) {
			skipped = append(skipped, SkipReason{raw, fmt.Sprintf("%s is a protected tool", entry.Tool)})
			continue
		}
		if paths := ExtractFilePaths(entry.Tool, entry.Parameters); len(paths) > 0 {
			protected := false
			for _, p := range paths {
				if MatchesAnyGlob(p, cfg.ProtectedFilePatterns) {
					protected = true
					break
				}
			}
			if protected {
				skipped = append(skipped, SkipReason{raw, "touches a protected file path"})
				continue
			}
		}
		valid = append(valid, resolved{Index: idx, CallID: callID, Entry: entry})
	}
	return valid, skipped
}

// formatSkipped renders the skipped-id remediation text appended to
// every tool-dispatcher result (spec §4.5, §7).
func formatSkipped(skipped []SkipReason) string {
	if len(skipped) == 0 {
		return ""
	}
	var lines []string
	for _, s := range skipped {
		lines = append(lines, fmt.Sprintf("  - %s: %s", s.ID, s.Reason))
	}
	return "\nSkipped:\n" + strings.Join(lines, "\n")
}

// Dispatcher executes the three model-callable tools and is the only
// thing allowed to mutate state.PruneToolIDs from model-driven calls
// (as opposed to the automatic strategy pipeline). It is also
// responsible for the sub-agent guard (spec §4.5) and for persisting
// state after every mutation (spec §5).
type Dispatcher struct {
	Manager  *Manager
	Config   Config
	Notifier Notifier
	Logger   Logger

	// Messages fetches the current transcript for a session, used by the
	// compress tool to locate boundary strings (spec §4.5 compress; the
	// host's session.messages RPC is the external collaborator, spec §6).
	Messages func(sessionID string) ([]Message, error)
}

// SubAgentTerminalMessage is returned by prune/distill/compress when
// called from a sub-agent session (spec §4.5 "Sub-agent guard", §8 item 5).
const SubAgentTerminalMessage = "Context management tools are not available in sub-agent sessions. Provide your final answer now; do not call this tool again."

func (d *Dispatcher) finish(state *SessionState) {
	if err := d.Manager.Persist(state); err != nil && d.Logger != nil {
		d.Logger.Warn("dcp: failed to persist sidecar for session %s: %v", state.SessionID, err)
	}
}

// markLastToolPrune is called after a successful prune/distill/compress;
// it is cleared the next time syncToolCache observes a different tool
// (spec §4.5 "State machine for lastToolPrune").
func markLastToolPrune(state *SessionState) {
	state.LastToolPrune = true
}
