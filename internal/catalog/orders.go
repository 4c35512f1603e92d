package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Chative-core-poc-v1/supportbot/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/supportbot/internal/core/error"
)

type statusInfo struct {
	Label       string
	Description string
}

var orderStatuses = map[string]statusInfo{
	"processing":        {"Processing", "Your order has been received and is being prepared."},
	"payment_confirmed": {"Payment Confirmed", "Your payment was confirmed and the order will be packed shortly."},
	"shipped":           {"Shipped", "Your order has left our warehouse and is on its way."},
	"out_for_delivery":  {"Out for Delivery", "The courier is delivering your order today."},
	"delivered":         {"Delivered", "Your order has been delivered."},
	"delayed":           {"Delayed", "Your order is delayed. We are working with the carrier to get it to you as soon as possible."},
	"cancelled":         {"Cancelled", "This order was cancelled."},
	"returned":          {"Returned", "This order was returned and the refund is being processed."},
}

// FindOrder implements model.OrderLookup. Unknown ids return (nil, nil).
func (s *Store) FindOrder(ctx context.Context, orderID string) (*model.OrderInfo, error) {
	id := normalizeOrderID(orderID)
	if id == "" {
		return nil, nil
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT order_id, status, tracking_number, order_date, estimated_delivery, delivered_at, total, currency
		FROM orders WHERE order_id = ?`, id)

	var (
		o          model.OrderInfo
		tracking   sql.NullString
		orderDate  int64
		eta        sql.NullInt64
		deliveredA sql.NullInt64
	)
	err := row.Scan(&o.OrderID, &o.Status, &tracking, &orderDate, &eta, &deliveredA, &o.Total, &o.Currency)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan order %s: %w", id, errx.WrapSQL(err))
	}

	info := orderStatuses[o.Status]
	o.StatusLabel = info.Label
	o.Description = info.Description
	o.TrackingNumber = tracking.String
	o.OrderDate = time.Unix(orderDate, 0).UTC()
	o.EstimatedDelivery = timeFromNull(eta)
	o.DeliveredAt = timeFromNull(deliveredA)
	return &o, nil
}

// normalizeOrderID strips "#" and leading zeros. Non-numeric ids are rejected.
func normalizeOrderID(v string) string {
	v = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(v), "#"))
	if v == "" {
		return ""
	}
	for _, r := range v {
		if r < '0' || r > '9' {
			return ""
		}
	}
	v = strings.TrimLeft(v, "0")
	if v == "" {
		return "0"
	}
	return v
}
