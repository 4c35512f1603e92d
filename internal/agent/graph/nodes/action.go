package nodes

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/tool"

	"github.com/Chative-core-poc-v1/supportbot/internal/agent/graph/replies"
	"github.com/Chative-core-poc-v1/supportbot/internal/agent/graph/router"
	"github.com/Chative-core-poc-v1/supportbot/internal/agent/graph/tools"
	"github.com/Chative-core-poc-v1/supportbot/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/supportbot/pkg/logger"
)

// Act dispatches the turn to the tool serving its intent and stores the
// normalised outcome. Tool failures become an error payload, never a turn
// failure.
func (h *Handlers) Act(ctx context.Context, st *model.ConversationState) (*model.ConversationState, error) {
	st.NextStep = router.After(model.StepAction)

	if needsEntity(st) && st.Entity.IsUnknown() {
		st.ActionResult = &model.ActionResult{
			Intent:    st.Intent,
			QueryType: model.QueryClarification,
			Message:   replies.Clarification(st.Language, st.Intent),
		}
		h.cfg.Metrics.RecordAction(string(model.QueryClarification), "clarification")
		return st, nil
	}

	name := tools.ToolFor(st.Intent)
	args, timeout := h.toolArgs(st, name)
	raw, err := h.invokeTool(ctx, name, args, timeout)
	if err != nil {
		logx.Session(st.SessionID).Error().Err(err).
			Str("node", NodeAction).
			Str("tool", name).
			Str("intent", st.Intent.String()).
			Msg("tool call failed")
		st.ActionResult = &model.ActionResult{
			Intent:    st.Intent,
			QueryType: queryTypeFor(st),
			Error:     err.Error(),
		}
		h.cfg.Metrics.RecordAction(string(st.ActionResult.QueryType), "error")
		return st, nil
	}

	res, err := decodeToolResult(st, name, raw)
	if err != nil {
		logx.Session(st.SessionID).Error().Err(err).Str("node", NodeAction).Str("tool", name).Msg("tool returned an unreadable result")
		res = &model.ActionResult{Intent: st.Intent, QueryType: queryTypeFor(st), Error: err.Error()}
	}
	st.ActionResult = res

	outcome := "not_found"
	switch {
	case res.Failed():
		outcome = "error"
	case res.Found:
		outcome = "found"
	}
	h.cfg.Metrics.RecordAction(string(res.QueryType), outcome)
	if res.Coupon != nil {
		h.cfg.Metrics.RecordCoupon(string(res.Coupon.Outcome))
	}
	return st, nil
}

// needsEntity reports whether the turn cannot be served without an identifier.
func needsEntity(st *model.ConversationState) bool {
	switch st.Intent {
	case model.IntentOrderStatus:
		return true
	case model.IntentProductAvailability:
		return st.QueryType != model.QueryListProducts
	case model.IntentCouponQuery:
		return st.QueryType == model.QuerySpecificCoupon
	}
	return false
}

func queryTypeFor(st *model.ConversationState) model.QueryType {
	if st.QueryType != "" {
		return st.QueryType
	}
	switch st.Intent {
	case model.IntentOrderStatus:
		return model.QueryOrderStatus
	case model.IntentProductAvailability:
		return model.QuerySpecificProduct
	case model.IntentCouponQuery:
		return model.QueryGeneralCoupon
	}
	return model.QueryKnowledge
}

// toolArgs builds the tool arguments and the timeout that bounds the call.
func (h *Handlers) toolArgs(st *model.ConversationState, name string) (any, time.Duration) {
	switch name {
	case tools.OrderStatusChecker:
		return tools.OrderStatusInput{OrderNumber: st.Entity.Value}, h.cfg.Timeouts.Lookup
	case tools.ProductAvailabilityChecker:
		if st.QueryType == model.QueryListProducts {
			return tools.ProductAvailabilityInput{ListAll: true}, h.cfg.Timeouts.Lookup
		}
		return tools.ProductAvailabilityInput{ProductName: st.Entity.Value}, h.cfg.Timeouts.Lookup
	case tools.CouponLookup:
		in := tools.CouponLookupInput{SessionID: st.SessionID, QueryType: queryTypeFor(st)}
		if in.QueryType == model.QuerySpecificCoupon {
			in.Code = st.Entity.Value
		}
		return in, h.cfg.Timeouts.Lookup
	}
	return tools.KnowledgeInput{Query: st.UserMessage, Language: st.Language}, h.cfg.Timeouts.Retrieval
}

// invokeTool runs one tool under its own timeout. Tools invoked outside a
// ToolsNode do not report to callbacks, so the lifecycle is reported here.
func (h *Handlers) invokeTool(ctx context.Context, name string, args any, timeout time.Duration) (string, error) {
	t, ok := h.cfg.Tools.Get(name)
	if !ok {
		return "", fmt.Errorf("tool %q is not registered", name)
	}
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("marshal %s arguments: %w", name, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	callCtx = callbacks.ReuseHandlers(callCtx, &callbacks.RunInfo{
		Name:      name,
		Type:      name,
		Component: components.ComponentOfTool,
	})
	callCtx = callbacks.OnStart(callCtx, &tool.CallbackInput{ArgumentsInJSON: string(argsJSON)})

	out, err := t.InvokableRun(callCtx, string(argsJSON))
	if err == nil && callCtx.Err() != nil {
		err = callCtx.Err()
	}
	if err != nil {
		callbacks.OnError(callCtx, err)
		return "", err
	}
	callbacks.OnEnd(callCtx, &tool.CallbackOutput{Response: out})
	return out, nil
}

func decodeToolResult(st *model.ConversationState, name, raw string) (*model.ActionResult, error) {
	if name == tools.KnowledgeBaseRetriever {
		var kb tools.KnowledgeOutput
		if err := json.Unmarshal([]byte(raw), &kb); err != nil {
			return nil, fmt.Errorf("decode %s result: %w", name, err)
		}
		res := &model.ActionResult{
			Intent:         st.Intent,
			QueryType:      model.QueryKnowledge,
			Found:          kb.Found,
			KnowledgeFound: kb.Found,
		}
		if kb.Found && kb.Context != "" {
			c := kb.Context
			st.RetrievedContext = &c
		} else {
			res.Found, res.KnowledgeFound = false, false
		}
		return res, nil
	}

	var res model.ActionResult
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return nil, fmt.Errorf("decode %s result: %w", name, err)
	}
	if res.Intent == "" {
		res.Intent = st.Intent
	}
	return &res, nil
}
