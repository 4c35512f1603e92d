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
// Coupon Lookup Tool
// ===================================

type CouponLookupInput struct {
	SessionID string          `json:"session_id"`
	QueryType model.QueryType `json:"query_type"`
	Code      string          `json:"code,omitempty"`
}

func createCouponLookupTool(coupons model.CouponService) tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: CouponLookup,
			Desc: "Request a specific coupon for the session, list active coupons, or answer whether any coupons exist. A session can hold only one coupon.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"session_id": {
					Type:     "string",
					Desc:     "Conversation session the coupon is assigned to.",
					Required: true,
				},
				"query_type": {
					Type:     "string",
					Desc:     "SPECIFIC_COUPON, ALL_COUPONS or GENERAL_COUPON_QUERY.",
					Enum:     []string{string(model.QuerySpecificCoupon), string(model.QueryAllCoupons), string(model.QueryGeneralCoupon)},
					Required: true,
				},
				"code": {
					Type: "string",
					Desc: "Coupon code for SPECIFIC_COUPON requests.",
				},
			}),
		},
		func(ctx context.Context, in *CouponLookupInput) (*model.ActionResult, error) {
			res := &model.ActionResult{Intent: model.IntentCouponQuery, QueryType: in.QueryType}

			switch in.QueryType {
			case model.QuerySpecificCoupon:
				if in.SessionID == "" || in.Code == "" {
					return nil, fmt.Errorf("session_id and code are required")
				}
				req, err := coupons.RequestCoupon(ctx, in.SessionID, in.Code)
				if err != nil {
					return nil, err
				}
				res.Coupon = req
				res.Found = req.Outcome != model.CouponInvalid
				res.Message = string(req.Outcome)

			case model.QueryAllCoupons, model.QueryGeneralCoupon:
				cs, err := coupons.ActiveCoupons(ctx)
				if err != nil {
					return nil, err
				}
				res.Coupons = cs
				res.Found = len(cs) > 0

			default:
				return nil, fmt.Errorf("unsupported query_type %q", in.QueryType)
			}
			return res, nil
		},
	)
}
