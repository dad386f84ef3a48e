package enums

// OutboxAggregateType is outbox_events.aggregate_type.
type OutboxAggregateType string

const AggregateOrder OutboxAggregateType = "order"

var aggregateTypes = []OutboxAggregateType{AggregateOrder}

func (a OutboxAggregateType) IsValid() bool { return member(aggregateTypes, a) }

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parse(aggregateTypes, value, "aggregate type")
}

// OutboxEventType is outbox_events.event_type and the event_type message attribute.
type OutboxEventType string

const (
	EventOrderCreated OutboxEventType = "order_created"
	EventOrderDecided OutboxEventType = "order_decided"
	EventOrderPaid    OutboxEventType = "order_paid"
)

// eventAggregates pins every event type to the aggregate it describes.
var eventAggregates = map[OutboxEventType]OutboxAggregateType{
	EventOrderCreated: AggregateOrder,
	EventOrderDecided: AggregateOrder,
	EventOrderPaid:    AggregateOrder,
}

func (e OutboxEventType) IsValid() bool {
	_, ok := eventAggregates[e]
	return ok
}

// Aggregate returns the aggregate type the event belongs to, or "" when unknown.
func (e OutboxEventType) Aggregate() OutboxAggregateType {
	return eventAggregates[e]
}

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	types := make([]OutboxEventType, 0, len(eventAggregates))
	for eventType := range eventAggregates {
		types = append(types, eventType)
	}
	return parse(types, value, "event type")
}
