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
// Product Availability Tool
// ===================================

type ProductAvailabilityInput struct {
	ProductName string `json:"product_name,omitempty"`
	ListAll     bool   `json:"list_all,omitempty"`
}

func createProductAvailabilityTool(products model.ProductCatalog, listLimit int) tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ProductAvailabilityChecker,
			Desc: "Check whether a product is in stock, or list the products currently available. Names are matched exactly, then partially, then fuzzily.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"product_name": {
					Type: "string",
					Desc: "Product name as the customer wrote it. Required unless list_all is true.",
				},
				"list_all": {
					Type: "boolean",
					Desc: "Return every in-stock product instead of searching for one.",
				},
			}),
		},
		func(ctx context.Context, in *ProductAvailabilityInput) (*model.ActionResult, error) {
			if in.ListAll {
				ps, err := products.ListAvailable(ctx, listLimit)
				if err != nil {
					return nil, err
				}
				return &model.ActionResult{
					Intent:    model.IntentProductAvailability,
					QueryType: model.QueryListProducts,
					Found:     len(ps) > 0,
					Products:  ps,
				}, nil
			}

			if in.ProductName == "" {
				return nil, fmt.Errorf("product_name is required")
			}
			p, err := products.SearchProduct(ctx, in.ProductName)
			if err != nil {
				return nil, err
			}
			return &model.ActionResult{
				Intent:    model.IntentProductAvailability,
				QueryType: model.QuerySpecificProduct,
				Found:     p != nil,
				Product:   p,
			}, nil
		},
	)
}
