package model

// EntityType tags the identifier carried by an Entity.
type EntityType string

const (
	EntityOrderNumber EntityType = "order_number"
	EntityProductName EntityType = "product_name"
	EntityCouponCode  EntityType = "coupon_code"
	EntityNone        EntityType = "none"
)

// UnknownValue is the sentinel value meaning "ask the user to clarify".
const UnknownValue = "unknown"

// Entity is the typed identifier pulled out of a user message.
type Entity struct {
	Type  EntityType `json:"type"`
	Value string     `json:"value"`
}

// UnknownEntity returns the extraction-failure sentinel.
func UnknownEntity() Entity {
	return Entity{Type: EntityNone, Value: UnknownValue}
}

// IsUnknown reports whether the entity must not be used as an identifier.
func (e Entity) IsUnknown() bool {
	return e.Type == EntityNone || e.Type == "" || e.Value == "" || e.Value == UnknownValue
}

// EntityTypeFor maps an intent to the entity type it needs.
func EntityTypeFor(intent Intent) EntityType {
	switch intent {
	case IntentOrderStatus:
		return EntityOrderNumber
	case IntentProductAvailability:
		return EntityProductName
	case IntentCouponQuery:
		return EntityCouponCode
	}
	return EntityNone
}
