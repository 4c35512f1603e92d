package model

import "time"

// QueryType distinguishes the sub-outcomes of product and coupon lookups.
type QueryType string

const (
	QuerySpecificProduct QueryType = "SPECIFIC_PRODUCT"
	QueryListProducts    QueryType = "LIST_PRODUCTS"
	QuerySpecificCoupon  QueryType = "SPECIFIC_COUPON"
	QueryAllCoupons      QueryType = "ALL_COUPONS"
	QueryGeneralCoupon   QueryType = "GENERAL_COUPON_QUERY"
	QueryKnowledge       QueryType = "KNOWLEDGE"
	QueryOrderStatus     QueryType = "ORDER_STATUS"
	QueryClarification   QueryType = "CLARIFICATION"
)

// CouponOutcome is the result of a coupon request for a session.
type CouponOutcome string

const (
	CouponSuccess         CouponOutcome = "success"
	CouponAlreadyAssigned CouponOutcome = "already_assigned"
	CouponInvalid         CouponOutcome = "invalid_coupon"
)

// ActionResult is the normalised outcome of dispatching an intent to its
// backend capability. Exactly one payload field is set for a given intent.
type ActionResult struct {
	Intent    Intent    `json:"intent"`
	QueryType QueryType `json:"query_type,omitempty"`
	Found     bool      `json:"found"`
	Error     string    `json:"error,omitempty"`
	Message   string    `json:"message,omitempty"`

	Order    *OrderInfo     `json:"order,omitempty"`
	Product  *ProductInfo   `json:"product,omitempty"`
	Products []ProductInfo  `json:"products,omitempty"`
	Coupon   *CouponRequest `json:"coupon,omitempty"`
	Coupons  []CouponInfo   `json:"coupons,omitempty"`

	KnowledgeFound bool `json:"knowledge_found,omitempty"`
}

// Failed reports whether the collaborator call itself errored.
func (r *ActionResult) Failed() bool {
	return r != nil && r.Error != ""
}

// Structured reports whether the result carries a payload that must be
// rendered from templates rather than generated text.
func (r *ActionResult) Structured() bool {
	if r == nil {
		return false
	}
	switch r.Intent {
	case IntentOrderStatus, IntentProductAvailability, IntentCouponQuery:
		return true
	}
	return r.Failed()
}

// OrderInfo is the flat order record returned by the order collaborator.
type OrderInfo struct {
	OrderID           string     `json:"order_id"`
	Status            string     `json:"status"`
	StatusLabel       string     `json:"status_label"`
	Description       string     `json:"description"`
	TrackingNumber    string     `json:"tracking_number,omitempty"`
	OrderDate         time.Time  `json:"order_date"`
	EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty"`
	DeliveredAt       *time.Time `json:"delivered_at,omitempty"`
	Total             float64    `json:"total"`
	Currency          string     `json:"currency"`
}

// ProductInfo is the flat product record returned by the catalog collaborator.
type ProductInfo struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Category      string  `json:"category"`
	Description   string  `json:"description"`
	Price         float64 `json:"price"`
	Currency      string  `json:"currency"`
	StockQuantity int     `json:"stock_quantity"`
	InStock       bool    `json:"in_stock"`
	MatchType     string  `json:"match_type,omitempty"`
}

// CouponInfo is the flat coupon record returned by the coupon collaborator.
type CouponInfo struct {
	Code        string     `json:"code"`
	Discount    float64    `json:"discount"`
	Description string     `json:"description"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	IsActive    bool       `json:"is_active"`
}

// Valid reports whether the coupon can be handed out at now.
func (c CouponInfo) Valid(now time.Time) bool {
	return c.IsActive && (c.ExpiresAt == nil || c.ExpiresAt.After(now))
}

// CouponRequest is the session-scoped outcome of asking for a coupon.
type CouponRequest struct {
	Outcome       CouponOutcome `json:"outcome"`
	RequestedCode string        `json:"requested_code"`
	AssignedCode  string        `json:"assigned_code,omitempty"`
	Coupon        *CouponInfo   `json:"coupon,omitempty"`
}
