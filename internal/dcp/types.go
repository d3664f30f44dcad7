// Package dcp implements the Dynamic Context Pruning engine: a per-session
// interceptor that rewrites outgoing conversation transcripts so that a
// coding-assistant host can keep talking to an LLM provider without its
// working context growing without bound.
package dcp

import "time"

// Message mirrors the host's transcript message envelope (spec §3). The
// engine treats transcripts as read-only input and only mutates them
// through the rewriter/injector operations below.
type Message struct {
	ID        string
	Role      string // "user", "assistant", "system"
	SessionID string
	Agent     string
	Model     string
	Variant   string
	Created   time.Time
	Summary   bool // host-side compaction marker
	Parts     []Part
}

// PartType enumerates the part kinds the engine cares about. The host may
// carry other part types (reasoning, files, ...); the engine passes those
// through untouched.
type PartType string

const (
	PartText       PartType = "text"
	PartTool       PartType = "tool"
	PartStepStart  PartType = "step-start"
	PartStepFinish PartType = "step-finish"
)

// ToolStatus mirrors the host's tool part lifecycle.
type ToolStatus string

const (
	ToolPending   ToolStatus = "pending"
	ToolRunning   ToolStatus = "running"
	ToolCompleted ToolStatus = "completed"
	ToolError     ToolStatus = "error"
)

// Part is one piece of a message: text, a tool call/result, or a step
// marker. Only Tool parts carry CallID/Tool/Input/Output/Error/Status.
type Part struct {
	ID     string
	Type   PartType
	Text   string
	CallID string
	Tool   string
	Input  map[string]any
	Output string
	Error  string
	Status ToolStatus
}

// ToolEntry is the per-tool-call cache record described in spec §3.
type ToolEntry struct {
	Tool       string
	Parameters map[string]any
	Status     ToolStatus
	Error      string
	Output     string // last observed output text, for token-savings estimates
	Turn       int
	Compacted  bool
}

// CompressSummary is a model-authored replacement for a contiguous range
// of messages/tools, anchored at the first message of the range.
type CompressSummary struct {
	AnchorMessageID string
	Topic           string
	Summary         string
}

// Stats accumulates token-savings bookkeeping for a session.
type Stats struct {
	PruneTokenCounter int // since last reset/report
	TotalPruneTokens  int // lifetime for the session
}

// PendingManualTrigger is spliced into the next user turn on behalf of a
// manual `/dcp prune|distill|compress` command.
type PendingManualTrigger struct {
	SessionID string
	Prompt    string
}

// SessionState is the per-session attribute bag described in spec §3.
// All access must go through Manager, which owns the mutex.
type SessionState struct {
	SessionID  string
	IsSubAgent bool

	ToolParameters map[string]*ToolEntry // callID (lowercase) -> entry
	toolOrder      []string              // FIFO order for eviction, parallel to ToolParameters

	ToolIDList []string // numeric-index -> callID, rebuilt every turn

	PruneToolIDs     map[string]bool // callID (lowercase) -> true
	PruneMessageIDs  map[string]bool // messageID -> true
	CompressSummaries []CompressSummary

	Stats Stats

	NudgeCounter  int
	LastToolPrune bool
	LastCompaction time.Time
	CurrentTurn    int

	Variant           string
	ModelContextLimit int
	ProviderID        string
	ModelID           string

	ManualMode           bool
	PendingManualTrigger *PendingManualTrigger
}

// maxToolParameters is the FIFO bound from spec §3.
const maxToolParameters = 500
