package nodes

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/Chative-core-poc-v1/supportbot/internal/agent/graph/prompts"
	"github.com/Chative-core-poc-v1/supportbot/internal/agent/graph/replies"
	"github.com/Chative-core-poc-v1/supportbot/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/supportbot/pkg/logger"
)

// Synthesize produces the single reply of the turn and appends the
// user/assistant pair. Structured payloads are rendered from templates;
// only greetings and grounded knowledge answers reach the model.
func (h *Handlers) Synthesize(ctx context.Context, st *model.ConversationState) (*model.ConversationState, error) {
	source := "preset"
	reply := st.Reply

	if reply == "" {
		reply, source = h.draft(ctx, st)
	}
	if reply == "" {
		reply, source = replies.GenericReply(st.Language), "generic"
	}

	if st.IsFirstMessage() && st.QuickActions == nil {
		st.QuickActions = replies.FirstMessageActions(st.Language, st.Intent)
	}

	updateState(ctx, func(s *model.AppState) {
		st.Steps = append([]model.Step(nil), s.Steps...)
		st.CostUSD = s.TotalCostUSD
	})
	st.Finalize(reply)

	logx.Session(st.SessionID).Info().
		Str("node", NodeResponseSynthesis).
		Str("intent", st.Intent.String()).
		Str("source", source).
		Int("quick_actions", len(st.QuickActions)).
		Msg("reply synthesized")
	return st, nil
}

// draft picks the reply for turns whose handler did not set one.
func (h *Handlers) draft(ctx context.Context, st *model.ConversationState) (string, string) {
	if text, ok := replies.Structured(st.Language, st.ActionResult, st.Entity); ok {
		if st.MildFrustration {
			text = replies.WithApology(st.Language, text)
		}
		return text, "template"
	}

	grounded := st.RetrievedContext != nil && st.ActionResult != nil && st.ActionResult.KnowledgeFound
	if st.Intent != model.IntentGreeting && !grounded {
		text := replies.GenericReply(st.Language)
		if st.MildFrustration {
			text = replies.WithApology(st.Language, text)
		}
		return text, "generic"
	}

	text, err := h.respond(ctx, st)
	if err != nil {
		h.fallback(ctx, st, NodeResponseSynthesis, err)
		if st.Intent == model.IntentGreeting {
			return replies.Greeting(st.Language), "template"
		}
		return replies.GenericReply(st.Language), "generic"
	}
	return text, "model"
}

func (h *Handlers) respond(ctx context.Context, st *model.ConversationState) (string, error) {
	vars := prompts.ResponseVars{
		Intent:          st.Intent,
		Language:        st.Language,
		MildFrustration: st.MildFrustration,
	}
	if st.RetrievedContext != nil {
		vars.Context = *st.RetrievedContext
	}
	if st.ActionResult != nil {
		b, err := json.Marshal(st.ActionResult)
		if err != nil {
			return "", err
		}
		vars.ActionResult = string(b)
	}

	system, err := prompts.RenderResponseSystem(ctx, h.cfg.PromptConfig, vars)
	if err != nil {
		return "", err
	}
	msgs := h.cfg.MessagesManager.BuildResponseContext(system, st.History(), st.UserMessage)
	out, err := h.generate(ctx, NodeResponseSynthesis, false, msgs)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Content), nil
}
