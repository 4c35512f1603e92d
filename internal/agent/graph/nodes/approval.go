package nodes

import (
	"context"

	"github.com/Chative-core-poc-v1/supportbot/internal/agent/graph/parsers"
	"github.com/Chative-core-poc-v1/supportbot/internal/agent/graph/replies"
	"github.com/Chative-core-poc-v1/supportbot/internal/agent/graph/router"
	"github.com/Chative-core-poc-v1/supportbot/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/supportbot/pkg/logger"
)

const (
	RequestTypeRefund  = "refund"
	RequestTypeManager = "manager_request"

	UrgencyNormal = "normal"
	UrgencyHigh   = "high"
)

// HandleApproval acknowledges the request and records it for a human.
// A failed write is logged and the acknowledgment is still sent.
func (h *Handlers) HandleApproval(ctx context.Context, st *model.ConversationState) (*model.ConversationState, error) {
	req := &model.ApprovalRequest{
		SessionID:   st.SessionID,
		RequestType: RequestTypeManager,
		Reason:      st.UserMessage,
		Urgency:     UrgencyNormal,
		CreatedAt:   h.now().UTC(),
	}
	if parsers.IsRefundRequest(st.UserMessage) {
		req.RequestType = RequestTypeRefund
	}
	if id, ok := parsers.OrderNumber(st.UserMessage); ok {
		req.OrderID = id
	}
	if name, ok := parsers.ProductName(st.UserMessage); ok {
		req.ProductName = name
	}
	if st.FrustrationCount > 0 {
		req.Urgency = UrgencyHigh
	}

	log := logx.Session(st.SessionID)
	if h.cfg.Approvals != nil {
		callCtx, cancel := context.WithTimeout(ctx, h.cfg.Timeouts.Lookup)
		err := h.cfg.Approvals.RecordApproval(callCtx, req)
		cancel()
		if err != nil {
			log.Error().Err(err).Str("node", NodeManagerApproval).Msg("failed to record approval request")
		}
	}
	h.cfg.Metrics.RecordApproval()

	st.Approval = req
	st.ManagerApprovalRequired = true
	st.Reply = replies.ApprovalAck(st.Language)
	st.NextStep = router.After(model.StepManagerApproval)

	log.Info().
		Str("node", NodeManagerApproval).
		Str("request_type", req.RequestType).
		Str("urgency", req.Urgency).
		Int64("approval_id", req.ID).
		Msg("manager approval requested")
	return st, nil
}
