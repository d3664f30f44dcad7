package dcp

import "strings"

type supersedeStrategy struct{}

func (supersedeStrategy) Name() string { return "supersedeWrites" }

func isWriteLike(tool string) bool {
	switch strings.ToLower(tool) {
	case "write", "edit", "multiedit", "apply_patch":
		return true
	default:
		return false
	}
}

func isReadLike(tool string) bool {
	return strings.ToLower(tool) == "read"
}

func (supersedeStrategy) Run(state *SessionState, cfg Config) []Notification {
	if !cfg.Strategies.SupersedeWrites.Enabled {
		return nil
	}
	live := liveEntries(state, cfg)

	// pending[path] is the most recent not-yet-superseded write/edit id
	// touching that path.
	pending := make(map[string]string)
	var notifications []Notification

	for _, id := range live {
		entry := state.ToolParameters[id]
		paths := ExtractFilePaths(entry.Tool, entry.Parameters)

		if isWriteLike(entry.Tool) {
			for _, p := range paths {
				if MatchesAnyGlob(p, cfg.ProtectedFilePatterns) {
					continue
				}
				pending[p] = id
			}
			continue
		}

		if isReadLike(entry.Tool) {
			for _, p := range paths {
				if MatchesAnyGlob(p, cfg.ProtectedFilePatterns) {
					continue
				}
				writeID, ok := pending[p]
				if !ok {
					continue
				}
				state.PruneToolIDs[writeID] = true
				notifications = append(notifications, supersedeDetail{
					Path:         p,
					SupersededID: writeID,
				}.notification())
				delete(pending, p)
			}
		}
	}
	return notifications
}
