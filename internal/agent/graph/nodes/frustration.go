package nodes

import (
	"context"
	"strings"

	"github.com/Chative-core-poc-v1/supportbot/internal/agent/graph/prompts"
	"github.com/Chative-core-poc-v1/supportbot/internal/agent/graph/replies"
	"github.com/Chative-core-poc-v1/supportbot/internal/agent/graph/router"
	"github.com/Chative-core-poc-v1/supportbot/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/supportbot/pkg/logger"
)

// HandleFrustration answers with empathy instead of serving the request.
// At the high level the user is also offered a human agent.
func (h *Handlers) HandleFrustration(ctx context.Context, st *model.ConversationState) (*model.ConversationState, error) {
	high := st.FrustrationCount >= router.HighFrustration

	reply := replies.Frustration(st.Language, high)
	if generated, err := h.empathy(ctx, st, high); err != nil {
		h.fallback(ctx, st, NodeFrustration, err)
	} else {
		reply = generated
	}
	st.Reply = reply
	if high {
		st.QuickActions = replies.HandoffActions(st.Language)
	}
	h.cfg.Metrics.RecordFrustration()
	st.NextStep = router.After(model.StepFrustration)

	logx.Session(st.SessionID).Info().
		Str("node", NodeFrustration).
		Int("frustration_count", st.FrustrationCount).
		Bool("handoff", high).
		Msg("frustration handled")
	return st, nil
}

func (h *Handlers) empathy(ctx context.Context, st *model.ConversationState, high bool) (string, error) {
	system, err := prompts.RenderEmpathySystem(ctx, h.cfg.PromptConfig, st.Language, high)
	if err != nil {
		return "", err
	}
	msgs := h.cfg.MessagesManager.BuildResponseContext(system, st.History(), st.UserMessage)
	out, err := h.generate(ctx, NodeFrustration, false, msgs)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Content), nil
}

