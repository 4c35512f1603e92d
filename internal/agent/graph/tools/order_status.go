package tools

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/Chative-core-poc-v1/supportbot/internal/agent/model"
)

// ===================================
// Order Status Tool
// ===================================

type OrderStatusInput struct {
	OrderNumber string `json:"order_number"`
}

func createOrderStatusTool(orders model.OrderLookup) tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: OrderStatusChecker,
			Desc: "Look up the status of an order by its order number. Returns status code, label, description, tracking number and delivery dates.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"order_number": {
					Type:     "string",
					Desc:     "The numeric order number, with or without a leading #.",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *OrderStatusInput) (*model.ActionResult, error) {
			if in.OrderNumber == "" {
				return nil, fmt.Errorf("order_number is required")
			}
			o, err := orders.FindOrder(ctx, in.OrderNumber)
			if err != nil {
				return nil, err
			}
			return &model.ActionResult{
				Intent:    model.IntentOrderStatus,
				QueryType: model.QueryOrderStatus,
				Found:     o != nil,
				Order:     o,
			}, nil
		},
	)
}
