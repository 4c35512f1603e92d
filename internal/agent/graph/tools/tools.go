// Package tools exposes the backend capabilities of the support bot as eino
// tools. The action node invokes exactly one of them per turn.
package tools

import (
	"context"
	"fmt"
	"sort"

	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/Chative-core-poc-v1/supportbot/internal/agent/model"
)

const (
	OrderStatusChecker         = "order_status_checker"
	ProductAvailabilityChecker = "product_availability_checker"
	CouponLookup               = "coupon_lookup"
	KnowledgeBaseRetriever     = "knowledge_base_retriever"
)

// Services are the collaborators behind the tools.
type Services struct {
	Orders    model.OrderLookup
	Products  model.ProductCatalog
	Coupons   model.CouponService
	Knowledge retriever.Retriever

	// ProductListLimit caps LIST_PRODUCTS answers.
	ProductListLimit int
}

// Registry holds the invokable tools by name.
type Registry struct {
	tools map[string]tool.InvokableTool
}

func NewRegistry(svc Services) (*Registry, error) {
	if svc.Orders == nil || svc.Products == nil || svc.Coupons == nil || svc.Knowledge == nil {
		return nil, fmt.Errorf("tools: every service must be provided")
	}
	if svc.ProductListLimit <= 0 {
		svc.ProductListLimit = 10
	}

	r := &Registry{tools: map[string]tool.InvokableTool{}}
	for name, t := range map[string]tool.InvokableTool{
		OrderStatusChecker:         createOrderStatusTool(svc.Orders),
		ProductAvailabilityChecker: createProductAvailabilityTool(svc.Products, svc.ProductListLimit),
		CouponLookup:               createCouponLookupTool(svc.Coupons),
		KnowledgeBaseRetriever:     createKnowledgeTool(svc.Knowledge),
	} {
		r.tools[name] = t
	}
	return r, nil
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (tool.InvokableTool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Infos returns the tool descriptions sorted by name.
func (r *Registry) Infos(ctx context.Context) ([]*schema.ToolInfo, error) {
	out := make([]*schema.ToolInfo, 0, len(r.tools))
	for _, t := range r.tools {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ToolFor maps an intent to the tool that serves it. Intents without a
// backend capability fall back to the knowledge base.
func ToolFor(intent model.Intent) string {
	switch intent {
	case model.IntentOrderStatus:
		return OrderStatusChecker
	case model.IntentProductAvailability:
		return ProductAvailabilityChecker
	case model.IntentCouponQuery:
		return CouponLookup
	}
	return KnowledgeBaseRetriever
}
