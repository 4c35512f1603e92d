package nodes

import (
	"context"
	"strings"

	"github.com/Chative-core-poc-v1/supportbot/internal/agent/graph/parsers"
	"github.com/Chative-core-poc-v1/supportbot/internal/agent/graph/prompts"
	"github.com/Chative-core-poc-v1/supportbot/internal/agent/graph/router"
	"github.com/Chative-core-poc-v1/supportbot/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/supportbot/pkg/logger"
)

// Extract pulls the identifier the intent needs. Regex fast paths run first
// and the model is asked only when they miss. It never fails the turn: a
// missing identifier leaves the unknown sentinel in place.
func (h *Handlers) Extract(ctx context.Context, st *model.ConversationState) (*model.ConversationState, error) {
	st.Entity = model.UnknownEntity()

	switch st.Intent {
	case model.IntentOrderStatus:
		st.QueryType = model.QueryOrderStatus
		st.Entity = h.extractOrder(ctx, st)
	case model.IntentCouponQuery:
		st.QueryType, st.Entity = h.extractCoupon(ctx, st)
	case model.IntentProductAvailability:
		st.QueryType, st.Entity = h.extractProduct(ctx, st)
	}
	st.NextStep = router.After(model.StepEntityExtraction)

	logx.Session(st.SessionID).Info().
		Str("node", NodeEntityExtraction).
		Str("intent", st.Intent.String()).
		Str("query_type", string(st.QueryType)).
		Str("entity_type", string(st.Entity.Type)).
		Str("entity", st.Entity.Value).
		Msg("entity extracted")
	return st, nil
}

func (h *Handlers) extractOrder(ctx context.Context, st *model.ConversationState) model.Entity {
	if id, ok := parsers.OrderNumber(st.UserMessage); ok {
		return model.Entity{Type: model.EntityOrderNumber, Value: id}
	}
	ent, ok := h.modelEntity(ctx, st)
	if !ok {
		return model.UnknownEntity()
	}
	id, ok := parsers.BareOrderNumber(ent.Value)
	if !ok {
		return model.UnknownEntity()
	}
	return model.Entity{Type: model.EntityOrderNumber, Value: id}
}

func (h *Handlers) extractCoupon(ctx context.Context, st *model.ConversationState) (model.QueryType, model.Entity) {
	qt, code, decided := parsers.CouponQuery(st.UserMessage)
	if !decided {
		qt = model.QueryGeneralCoupon
		if ent, ok := h.modelEntity(ctx, st); ok {
			if c, valid := parsers.NormalizeCouponCode(ent.Value); valid {
				qt, code = model.QuerySpecificCoupon, c
			}
		}
	}
	if qt != model.QuerySpecificCoupon {
		return qt, model.UnknownEntity()
	}
	return qt, model.Entity{Type: model.EntityCouponCode, Value: code}
}

func (h *Handlers) extractProduct(ctx context.Context, st *model.ConversationState) (model.QueryType, model.Entity) {
	if name, ok := parsers.ProductName(st.UserMessage); ok {
		return model.QuerySpecificProduct, model.Entity{Type: model.EntityProductName, Value: name}
	}
	if parsers.IsProductListRequest(st.UserMessage) {
		return model.QueryListProducts, model.UnknownEntity()
	}
	if ent, ok := h.modelEntity(ctx, st); ok {
		return model.QuerySpecificProduct, model.Entity{Type: model.EntityProductName, Value: strings.TrimSpace(ent.Value)}
	}
	return model.QuerySpecificProduct, model.UnknownEntity()
}

// modelEntity asks the NLU model for the entity of the turn's intent.
func (h *Handlers) modelEntity(ctx context.Context, st *model.ConversationState) (model.Entity, bool) {
	system, err := prompts.RenderExtractSystem(ctx, st.Intent)
	if err != nil {
		h.fallback(ctx, st, NodeEntityExtraction, err)
		return model.UnknownEntity(), false
	}
	msgs := h.cfg.MessagesManager.NLUMessages(system, st.History(), st.UserMessage)

	out, err := h.generate(ctx, NodeEntityExtraction, true, msgs)
	if err != nil {
		h.fallback(ctx, st, NodeEntityExtraction, err)
		return model.UnknownEntity(), false
	}
	res, err := parsers.ParseNLUResponse(out.Content)
	if err != nil {
		h.fallback(ctx, st, NodeEntityExtraction, err)
		return model.UnknownEntity(), false
	}
	return res.PrimaryEntity(model.EntityTypeFor(st.Intent))
}
