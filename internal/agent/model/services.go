package model

import (
	"context"
	"time"
)

// OrderLookup resolves order identifiers. A missing order returns (nil, nil).
type OrderLookup interface {
	FindOrder(ctx context.Context, orderID string) (*OrderInfo, error)
}

// ProductCatalog answers product availability questions.
type ProductCatalog interface {
	// SearchProduct returns the best exact, partial or fuzzy match, or nil.
	SearchProduct(ctx context.Context, name string) (*ProductInfo, error)
	// ListAvailable returns in-stock products, at most limit.
	ListAvailable(ctx context.Context, limit int) ([]ProductInfo, error)
}

// CouponService exposes coupons and the session-scoped assignment rule.
type CouponService interface {
	ActiveCoupons(ctx context.Context) ([]CouponInfo, error)
	RequestCoupon(ctx context.Context, sessionID, code string) (*CouponRequest, error)
}

// ApprovalRequest is the summary recorded for human follow-up.
type ApprovalRequest struct {
	ID          int64     `json:"id,omitempty"`
	SessionID   string    `json:"session_id"`
	RequestType string    `json:"request_type"`
	Reason      string    `json:"reason"`
	OrderID     string    `json:"order_id,omitempty"`
	ProductName string    `json:"product_name,omitempty"`
	Urgency     string    `json:"urgency"`
	CreatedAt   time.Time `json:"created_at"`
}

// ApprovalRecorder persists approval requests.
type ApprovalRecorder interface {
	RecordApproval(ctx context.Context, req *ApprovalRequest) error
}
