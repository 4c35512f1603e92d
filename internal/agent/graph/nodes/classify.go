package nodes

import (
	"context"

	"github.com/Chative-core-poc-v1/supportbot/internal/agent/graph/parsers"
	"github.com/Chative-core-poc-v1/supportbot/internal/agent/graph/prompts"
	"github.com/Chative-core-poc-v1/supportbot/internal/agent/graph/router"
	"github.com/Chative-core-poc-v1/supportbot/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/supportbot/pkg/logger"
)

// Classify resolves the turn's intent, raises the frustration counter when
// needed and picks the next step.
func (h *Handlers) Classify(ctx context.Context, st *model.ConversationState) (*model.ConversationState, error) {
	if parsers.IsRefundRequest(st.UserMessage) {
		st.Intent = h.verifyRefund(ctx, st)
	} else {
		intent, frustrated := h.classify(ctx, st)
		if intent == model.IntentRefundRequest {
			intent = h.verifyRefund(ctx, st)
		}
		st.Intent = intent
		if frustrated || intent == model.IntentOther {
			st.BumpFrustration()
		}
	}

	d := router.Route(st.Intent, st.FrustrationCount)
	st.NextStep = d.Next
	st.MildFrustration = d.MildFrustration

	logx.Session(st.SessionID).Info().
		Str("node", NodeClassifyIntent).
		Str("intent", st.Intent.String()).
		Int("frustration_count", st.FrustrationCount).
		Bool("frustration_bumped", st.FrustrationBumped()).
		Str("step", string(st.NextStep)).
		Msg("intent classified")
	return st, nil
}

// classify runs the classification call. Failures degrade to other.
func (h *Handlers) classify(ctx context.Context, st *model.ConversationState) (model.Intent, bool) {
	system, err := prompts.RenderClassifySystem(ctx, h.cfg.PromptConfig)
	if err != nil {
		h.fallback(ctx, st, NodeClassifyIntent, err)
		return model.IntentOther, false
	}
	msgs := h.cfg.MessagesManager.NLUMessages(system, st.History(), st.UserMessage)

	out, err := h.generate(ctx, NodeClassifyIntent, true, msgs)
	if err != nil {
		h.fallback(ctx, st, NodeClassifyIntent, err)
		return model.IntentOther, false
	}
	res, err := parsers.ParseNLUResponse(out.Content)
	if err != nil {
		h.fallback(ctx, st, NodeClassifyIntent, err)
		return model.IntentOther, false
	}
	intent, ok := res.PrimaryIntent()
	if !ok {
		h.fallback(ctx, st, NodeClassifyIntent, errNoIntent)
		return model.IntentOther, false
	}
	return intent, res.Frustrated(h.cfg.NLUConfig.FrustrationConfidence)
}

// verifyRefund decides whether a refund message needs a manager or is a
// policy question. Anything but a clear policy question escalates.
func (h *Handlers) verifyRefund(ctx context.Context, st *model.ConversationState) model.Intent {
	system, err := prompts.RenderRefundVerifySystem(ctx)
	if err != nil {
		h.fallback(ctx, st, NodeClassifyIntent, err)
		return model.IntentManagerApproval
	}
	msgs := h.cfg.MessagesManager.NLUMessages(system, st.History(), st.UserMessage)

	out, err := h.generate(ctx, NodeClassifyIntent, true, msgs)
	if err != nil {
		h.fallback(ctx, st, NodeClassifyIntent, err)
		return model.IntentManagerApproval
	}
	res, err := parsers.ParseNLUResponse(out.Content)
	if err != nil {
		h.fallback(ctx, st, NodeClassifyIntent, err)
		return model.IntentManagerApproval
	}
	if intent, ok := res.PrimaryIntent(); ok && intent == model.IntentKnowledgeBaseQuery {
		return model.IntentKnowledgeBaseQuery
	}
	return model.IntentManagerApproval
}
