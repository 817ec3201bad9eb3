package enums

import "fmt"

// OrderItemStatus tracks fulfillment of a single order item.
type OrderItemStatus string

const (
	OrderItemStatusPending        OrderItemStatus = "pending"
	OrderItemStatusProcessing     OrderItemStatus = "processing"
	OrderItemStatusShipped        OrderItemStatus = "shipped"
	OrderItemStatusOutForDelivery OrderItemStatus = "out_for_delivery"
	OrderItemStatusDelivered      OrderItemStatus = "delivered"
	OrderItemStatusDeliveryFailed OrderItemStatus = "delivery_failed"
	OrderItemStatusCancelled      OrderItemStatus = "cancelled"
)

var validOrderItemStatuses = []OrderItemStatus{
	OrderItemStatusPending,
	OrderItemStatusProcessing,
	OrderItemStatusShipped,
	OrderItemStatusOutForDelivery,
	OrderItemStatusDelivered,
	OrderItemStatusDeliveryFailed,
	OrderItemStatusCancelled,
}

// orderItemTransitions lists the allowed next statuses for each status.
var orderItemTransitions = map[OrderItemStatus][]OrderItemStatus{
	OrderItemStatusPending:        {OrderItemStatusProcessing, OrderItemStatusCancelled},
	OrderItemStatusProcessing:     {OrderItemStatusShipped, OrderItemStatusCancelled},
	OrderItemStatusShipped:        {OrderItemStatusOutForDelivery},
	OrderItemStatusOutForDelivery: {OrderItemStatusDelivered, OrderItemStatusDeliveryFailed},
}

// IsValid reports whether the status matches the canonical enum.
func (s OrderItemStatus) IsValid() bool {
	for _, candidate := range validOrderItemStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the fulfillment state machine allows moving
// from s to next.
func (s OrderItemStatus) CanTransitionTo(next OrderItemStatus) bool {
	for _, candidate := range orderItemTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (s OrderItemStatus) IsTerminal() bool {
	return len(orderItemTransitions[s]) == 0
}

// ParseOrderItemStatus converts raw input into OrderItemStatus.
func ParseOrderItemStatus(value string) (OrderItemStatus, error) {
	for _, candidate := range validOrderItemStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order item status %q", value)
}
