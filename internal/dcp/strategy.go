package dcp

// Strategy is one stage of the pruning pipeline (spec §4.2). Each stage
// receives the live (non-pruned, non-protected) tool entries in
// chronological order and appends callIDs to state.PruneToolIDs; stages
// never remove ids a previous stage added.
type Strategy interface {
	Name() string
	Run(state *SessionState, cfg Config) []Notification
}

// RunPipeline runs the strategy pipeline in the fixed order the spec
// mandates: deduplicate, supersedeWrites, purgeErrors. It is idempotent
// per spec §8 item 1: a strategy never un-marks an id, so re-running the
// whole pipeline on an unchanged state produces the same pruned set.
func RunPipeline(state *SessionState, cfg Config) []Notification {
	var notifications []Notification
	stages := []Strategy{
		dedupStrategy{},
		supersedeStrategy{},
		purgeErrorsStrategy{},
	}
	for _, stage := range stages {
		notifications = append(notifications, stage.Run(state, cfg)...)
	}
	return notifications
}

// liveEntries returns callIDs in ToolIDList order, excluding protected
// tools and ids already in PruneToolIDs — the working set every
// strategy operates on.
func liveEntries(state *SessionState, cfg Config) []string {
	live := make([]string, 0, len(state.ToolIDList))
	for _, id := range state.ToolIDList {
		lower := lowerID(id)
		entry, ok := state.ToolParameters[lower]
		if !ok {
			continue
		}
		if cfg.IsProtectedTool(entry.Tool) {
			continue
		}
		if state.PruneToolIDs[lower] {
			continue
		}
		live = append(live, lower)
	}
	return live
}
