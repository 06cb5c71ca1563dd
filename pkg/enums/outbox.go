package enums

// OutboxAggregateType names the entity an outbox row belongs to. Together
// with the aggregate id it forms the Pub/Sub ordering key.
type OutboxAggregateType string

const (
	AggregateOrder     OutboxAggregateType = "order"
	AggregateInventory OutboxAggregateType = "inventory"
)

// OutboxEventType maps to the event_type column of outbox_events and to the
// event_type message attribute.
type OutboxEventType string

const (
	EventOrderCreated       OutboxEventType = "order_created"
	EventOrderStatusChanged OutboxEventType = "order_status_changed"
	EventInventoryReduced   OutboxEventType = "inventory_reduced"
)

// IsValid reports whether the event type is one the store emits.
func (e OutboxEventType) IsValid() bool {
	_, ok := e.Aggregate()
	return ok
}

// Aggregate returns the aggregate type every event of this type is keyed on.
func (e OutboxEventType) Aggregate() (OutboxAggregateType, bool) {
	switch e {
	case EventOrderCreated, EventOrderStatusChanged:
		return AggregateOrder, true
	case EventInventoryReduced:
		return AggregateInventory, true
	default:
		return "", false
	}
}

// OutboxDLQErrorReason records why the publisher gave up on an event.
type OutboxDLQErrorReason string

const (
	// OutboxDLQReasonMaxAttempts means every publish retry failed.
	OutboxDLQReasonMaxAttempts OutboxDLQErrorReason = "max_attempts"
	// OutboxDLQReasonNonRetryable covers rows that can never be published,
	// such as a broken envelope or an event type without a topic.
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)
