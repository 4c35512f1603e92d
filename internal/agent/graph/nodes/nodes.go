// Package nodes implements the steps of the per-turn graph. Every node takes
// and returns the turn's *model.ConversationState.
package nodes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/Chative-core-poc-v1/supportbot/internal/agent/graph/conversations"
	"github.com/Chative-core-poc-v1/supportbot/internal/agent/graph/tools"
	"github.com/Chative-core-poc-v1/supportbot/internal/agent/model"
	"github.com/Chative-core-poc-v1/supportbot/internal/metrics"
	logx "github.com/Chative-core-poc-v1/supportbot/pkg/logger"
)

const (
	NodeClassifyIntent    = string(model.StepClassifyIntent)
	NodeEntityExtraction  = string(model.StepEntityExtraction)
	NodeAction            = string(model.StepAction)
	NodeFrustration       = string(model.StepFrustration)
	NodeManagerApproval   = string(model.StepManagerApproval)
	NodeResponseSynthesis = string(model.StepResponseSynthesis)
)

var (
	errEmptyReply = errors.New("model returned an empty reply")
	errNoIntent   = errors.New("model reply held no intent record")
)

// Config wires the collaborators of the graph nodes.
type Config struct {
	ChatModels      *ChatModels
	Tools           *tools.Registry
	Approvals       model.ApprovalRecorder
	MessagesManager *conversations.MessagesManager
	NLUConfig       model.NLUModelConfig
	PromptConfig    model.ResponsePromptConfig
	Timeouts        model.TimeoutConfig
	Metrics         *metrics.Metrics
}

// Handlers owns the node implementations.
type Handlers struct {
	cfg Config
	now func() time.Time
}

func NewHandlers(cfg Config) (*Handlers, error) {
	if cfg.ChatModels == nil || cfg.ChatModels.NLU == nil || cfg.ChatModels.Response == nil {
		return nil, fmt.Errorf("chat models are not properly initialized")
	}
	if cfg.Tools == nil {
		return nil, fmt.Errorf("tool registry is nil")
	}
	if cfg.MessagesManager == nil {
		cfg.MessagesManager = conversations.NewMessagesManager(conversations.DefaultMaxTurns)
	}
	if cfg.Timeouts.LLM <= 0 {
		cfg.Timeouts.LLM = 8 * time.Second
	}
	if cfg.Timeouts.Retrieval <= 0 {
		cfg.Timeouts.Retrieval = 5 * time.Second
	}
	if cfg.Timeouts.Lookup <= 0 {
		cfg.Timeouts.Lookup = 3 * time.Second
	}
	return &Handlers{cfg: cfg, now: time.Now}, nil
}

// NewStepPreHandler records the step in the graph state before a node runs.
func NewStepPreHandler(step model.Step) func(context.Context, *model.ConversationState, *model.AppState) (*model.ConversationState, error) {
	return func(ctx context.Context, in *model.ConversationState, s *model.AppState) (*model.ConversationState, error) {
		if s.SessionID == "" {
			s.SessionID = in.SessionID
		}
		s.Steps = append(s.Steps, step)
		return in, nil
	}
}

// updateState mutates the graph state when the node runs inside the graph.
// Outside a graph (unit tests) there is no state and fn is skipped.
func updateState(ctx context.Context, fn func(*model.AppState)) {
	_ = compose.ProcessState(ctx, func(_ context.Context, s *model.AppState) error {
		fn(s)
		return nil
	})
}

// generate runs one model call under the LLM timeout and accounts its cost.
func (h *Handlers) generate(ctx context.Context, node string, useNLU bool, msgs []*schema.Message) (*schema.Message, error) {
	cm, name := h.cfg.ChatModels.Response, h.cfg.ChatModels.ResponseModelName
	if useNLU {
		cm, name = h.cfg.ChatModels.NLU, h.cfg.ChatModels.NLUModelName
	}

	callCtx, cancel := context.WithTimeout(ctx, h.cfg.Timeouts.LLM)
	defer cancel()
	callCtx = callbacks.ReuseHandlers(callCtx, &callbacks.RunInfo{
		Name:      node,
		Type:      name,
		Component: components.ComponentOfChatModel,
	})

	out, err := cm.Generate(callCtx, msgs, einomodel.WithModel(name))
	cost := model.MessageCost(out, name)
	h.cfg.Metrics.RecordModelCall(name, err, cost)
	updateState(ctx, func(s *model.AppState) {
		s.ModelCalls++
		s.TotalCostUSD += cost
	})
	if err != nil {
		return nil, err
	}
	if out == nil || strings.TrimSpace(out.Content) == "" {
		return nil, errEmptyReply
	}

	if out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
		logx.Debug().
			Str("node", node).
			Str("model", name).
			Int("prompt_tokens", out.ResponseMeta.Usage.PromptTokens).
			Int("completion_tokens", out.ResponseMeta.Usage.CompletionTokens).
			Float64("total_cost_usd", cost).
			Msg("LLM usage")
	}
	return out, nil
}

// fallback records that a node degraded to its deterministic path.
func (h *Handlers) fallback(ctx context.Context, st *model.ConversationState, node string, err error) {
	logx.Session(st.SessionID).Warn().Err(err).Str("node", node).Msg("model call failed, using fallback")
	h.cfg.Metrics.RecordFallback(node)
	updateState(ctx, func(s *model.AppState) {
		s.Fallbacks = append(s.Fallbacks, node)
	})
}
