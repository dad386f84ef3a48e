package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

var ErrTransactionRequired = errors.New("outbox emit requires a transaction")

// DomainEvent is what domain services hand to Emit. AggregateType may be left
// empty; it is derived from EventType.
type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Actor         *ActorRef
	Data          any
	Version       int
	OccurredAt    time.Time
}

func (e DomainEvent) validate() (enums.OutboxAggregateType, error) {
	aggregate := e.EventType.Aggregate()
	if aggregate == "" {
		return "", fmt.Errorf("unknown outbox event type %q", e.EventType)
	}
	if e.AggregateType != "" && e.AggregateType != aggregate {
		return "", fmt.Errorf("event %s belongs to %s, not %s", e.EventType, aggregate, e.AggregateType)
	}
	if e.AggregateID == uuid.Nil {
		return "", fmt.Errorf("event %s has no aggregate id", e.EventType)
	}
	return aggregate, nil
}

// Service writes domain events into outbox_events.
type Service struct {
	repo *Repository
	logg *logger.Logger
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{repo: repo, logg: logg}
}

// Emit inserts the event through tx, so it commits or rolls back with the
// state change that produced it.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return ErrTransactionRequired
	}
	aggregate, err := event.validate()
	if err != nil {
		return err
	}
	envelope, err := newEnvelope(event)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	if err := s.repo.Insert(tx, models.OutboxEvent{
		EventType:     event.EventType,
		AggregateType: aggregate,
		AggregateID:   event.AggregateID,
		Payload:       payload,
	}); err != nil {
		return fmt.Errorf("insert outbox event %s: %w", event.EventType, err)
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"event_id":       envelope.EventID,
		"event_type":     event.EventType,
		"aggregate_type": aggregate,
		"aggregate_id":   event.AggregateID.String(),
	}), "outbox event queued")
	return nil
}
