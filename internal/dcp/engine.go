package dcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/syntax-syndicate/opencode-dynamic-context-pruning/internal/dcp/dlog"
	"github.com/syntax-syndicate/opencode-dynamic-context-pruning/internal/dcp/selector"
	"github.com/syntax-syndicate/opencode-dynamic-context-pruning/internal/provider"
	"github.com/syntax-syndicate/opencode-dynamic-context-pruning/internal/session"
	hosttool "github.com/syntax-syndicate/opencode-dynamic-context-pruning/internal/tool"
)

// HostCallbacks is the narrow surface the engine needs back from the
// embedding process (spec §5 suspension points: session.messages,
// session.prompt, tui.showToast). Kept separate from internal/dcp/host.Host
// so the engine package itself has no dependency on that package —
// host.Host is a convenience wrapper a real host can implement and adapt
// into this shape.
type HostCallbacks struct {
	Messages func(ctx context.Context, sessionID string) ([]session.Message, error)
	Prompt   func(ctx context.Context, sessionID string, text string) error
	Toast    func(ctx context.Context, sessionID string, text string) error
}

// Engine is the top-level object a host constructs once per process and
// wires into its hook points (spec §2, §6).
type Engine struct {
	Manager    *Manager
	Dispatcher *Dispatcher
	Config     Config
	Logger     Logger
	host       HostCallbacks
}

// NewEngine builds an Engine, wiring the Dispatcher's Messages callback
// to the host's session.messages RPC so the compress tool can search the
// live transcript (spec §4.5 compress).
func NewEngine(cfg Config, store SidecarStore, notifier Notifier, host HostCallbacks) *Engine {
	logger := Logger(dlog.New(cfg.Debug))
	manager := NewManager(store)
	e := &Engine{
		Manager: manager,
		Config:  cfg,
		Logger:  logger,
		host:    host,
	}
	e.Dispatcher = &Dispatcher{
		Manager:  manager,
		Config:   cfg,
		Notifier: notifier,
		Logger:   logger,
		Messages: func(sessionID string) ([]Message, error) {
			if host.Messages == nil {
				return nil, fmt.Errorf("no transcript source configured")
			}
			msgs, err := host.Messages(context.Background(), sessionID)
			if err != nil {
				return nil, err
			}
			return FromSession(sessionID, msgs), nil
		},
	}
	return e
}

// ChatMessage implements the chat.message hook (spec §6): cache
// variant/model for later synthetic-message emission and model
// selection. No output.
func (e *Engine) ChatMessage(sessionID, providerID, modelID, variant string) {
	s := e.Manager.EnsureInitialized(sessionID, false)
	s.ProviderID = providerID
	s.ModelID = modelID
	s.Variant = variant
}

// titleGeneratorSignatures are system-prompt fragments the spec names as
// markers of an internal "title generator" agent the engine must not
// inject into (spec §6 system.transform).
var titleGeneratorSignatures = []string{
	"You are a title generator",
}

func isInternalAgentSystem(system []string) bool {
	for _, s := range system {
		for _, sig := range titleGeneratorSignatures {
			if strings.HasPrefix(s, sig) {
				return true
			}
		}
	}
	return false
}

// SystemTransform implements experimental.chat.system.transform (spec §6):
// appends the rendered system prompt when at least one tool is enabled
// and the session is not an internal agent.
func (e *Engine) SystemTransform(sessionID string, isSubAgent bool, existingSystem []string) []string {
	if !e.Config.Enabled || isSubAgent || isInternalAgentSystem(existingSystem) {
		return nil
	}
	if !e.Config.AnyPrunerEnabled() && !e.Config.Tools.Compress.Enabled {
		return nil
	}
	return []string{RenderPrompt(systemPromptTemplate, e.Config)}
}

const systemPromptTemplate = `You can manage your own context window.
<prune>Use prune to discard the output of tool calls you no longer need.</prune>
<distill>Use distill to discard a tool's output while keeping a short note of what it told you.</distill>
<compress>Use compress to replace a whole range of the conversation with a summary.</compress>`

// MessagesTransform implements the engine's main entry point, spec §4 /
// §6 experimental.chat.messages.transform: Session Check → Tool Cache
// Sync → Strategy Pipeline → Content Rewriter → Context Injector.
func (e *Engine) MessagesTransform(sessionID string, isSubAgent bool, modelFamily string, messages []session.Message) []session.Message {
	if !e.Config.Enabled {
		return messages
	}
	dcpMessages := FromSession(sessionID, messages)

	state := e.Manager.CheckSession(sessionID, isSubAgent, dcpMessages, e.Config)
	if state.IsSubAgent {
		return messages
	}

	if !state.ManualMode {
		RunPipeline(state, e.Config)
	}
	Rewrite(state, dcpMessages)
	if t := state.PendingManualTrigger; t != nil {
		lastUser, _ := LastUserMessage(dcpMessages)
		dcpMessages = append(dcpMessages, SyntheticMessage("user", lastUser, SyntheticTextPart(t.Prompt)))
		state.PendingManualTrigger = nil
	}
	dcpMessages = Inject(state, dcpMessages, e.Config, modelFamily)

	if err := e.Manager.Persist(state); err != nil {
		e.Logger.Warn("failed to persist sidecar for session %s: %v", sessionID, err)
	}

	return ApplyToSession(messages, dcpMessages)
}

// RegisterTools registers the three model-callable tools into r (spec
// §6 "Tools exposed to the model").
func (e *Engine) RegisterTools(r *hosttool.Registry) {
	if e.Config.Tools.Prune.Enabled {
		r.Register(e.Dispatcher.PruneTool())
	}
	if e.Config.Tools.Distill.Enabled {
		r.Register(e.Dispatcher.DistillTool())
	}
	if e.Config.Tools.Compress.Enabled {
		r.Register(e.Dispatcher.CompressTool())
	}
}

// ChooseAnalysisModel implements spec §4.6 for the background analyser:
// config override → cached per-session provider/model → session-info
// model, each capability-checked against registry.
func (e *Engine) ChooseAnalysisModel(registry *provider.ModelRegistry, sessionID string, toaster selector.Toaster) (selector.Choice, error) {
	state := e.Manager.EnsureInitialized(sessionID, false)

	cfg := selector.Config{
		StrictModelSelection: e.Config.Selector.StrictModelSelection,
		ShowModelErrorToasts: e.Config.Selector.ShowModelErrorToasts,
	}
	if p, m, ok := strings.Cut(e.Config.Selector.Override, "/"); ok {
		cfg.OverrideProviderID, cfg.OverrideModelID = p, m
	}

	cached := selector.Choice{ProviderID: state.ProviderID, ModelID: state.ModelID}
	info := selector.SessionInfo{ProviderID: state.ProviderID, ModelID: state.ModelID}
	return selector.Choose(registry, cfg, cached, info, toaster)
}

// Event implements the event({type, properties}) hook (spec §6). It
// filters for session.status=idle on a session the engine already knows
// and then returns without further action: it starts no background
// analysis and does not call the model selector. Callers that want
// background pruning wire selector.Choose into their own idle handler.
func (e *Engine) Event(evt Event) {
	if evt.Type != "session.status" || evt.Properties["status"] != "idle" {
		return
	}
	if !e.Manager.HasSession(evt.SessionID) {
		return
	}
}

// Event mirrors the host hook payload shape (spec §6).
type Event struct {
	Type       string
	SessionID  string
	Properties map[string]any
}
