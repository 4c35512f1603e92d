package model

import "strings"

// Intent is the closed set of things a user can want in one turn.
type Intent string

const (
	IntentOrderStatus         Intent = "order_status"
	IntentKnowledgeBaseQuery  Intent = "knowledge_base_query"
	IntentProductAvailability Intent = "product_availability"
	IntentCouponQuery         Intent = "coupon_query"
	IntentGreeting            Intent = "greeting"
	IntentRefundRequest       Intent = "refund_request"
	IntentManagerApproval     Intent = "manager_approval"
	IntentOther               Intent = "other"
)

// Intents lists every valid intent in prompt order.
var Intents = []Intent{
	IntentOrderStatus,
	IntentKnowledgeBaseQuery,
	IntentProductAvailability,
	IntentCouponQuery,
	IntentGreeting,
	IntentRefundRequest,
	IntentManagerApproval,
	IntentOther,
}

func (i Intent) String() string { return string(i) }

// Valid reports whether i belongs to the closed enumeration.
func (i Intent) Valid() bool {
	for _, known := range Intents {
		if i == known {
			return true
		}
	}
	return false
}

// RequiresEntity reports whether the intent needs a concrete identifier
// before the backend can be queried.
func (i Intent) RequiresEntity() bool {
	switch i {
	case IntentOrderStatus, IntentProductAvailability, IntentCouponQuery:
		return true
	}
	return false
}

// CoerceIntent normalises a model label. Anything outside the enumeration
// becomes knowledge_base_query.
func CoerceIntent(label string) Intent {
	l := strings.ToLower(strings.TrimSpace(label))
	l = strings.Trim(l, "\"'`.")
	l = strings.ReplaceAll(l, " ", "_")
	if in := Intent(l); in.Valid() {
		return in
	}
	return IntentKnowledgeBaseQuery
}
