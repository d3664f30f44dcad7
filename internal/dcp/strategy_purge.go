package dcp

type purgeErrorsStrategy struct{}

func (purgeErrorsStrategy) Name() string { return "purgeErrors" }

// Run implements spec §4.2 Purge Errors: any errored tool call whose age
// (current turn minus the turn it was recorded on) has reached the
// configured threshold gets its input marked for redaction; the error
// text itself is left alone (the rewriter only redacts input/output, it
// never touches part.Error).
func (purgeErrorsStrategy) Run(state *SessionState, cfg Config) []Notification {
	if !cfg.Strategies.PurgeErrors.Enabled {
		return nil
	}
	threshold := cfg.Strategies.PurgeErrors.Turns
	if threshold <= 0 {
		threshold = 1
	}

	var notifications []Notification
	for _, id := range liveEntries(state, cfg) {
		entry := state.ToolParameters[id]
		if entry.Status != ToolError {
			continue
		}
		age := state.CurrentTurn - entry.Turn
		if age < threshold {
			continue
		}
		state.PruneToolIDs[id] = true
		notifications = append(notifications, purgeDetail{
			ToolName: entry.Tool,
			CallID:   id,
			AgeTurns: age,
		}.notification())
	}
	return notifications
}
