package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/swanstudios/training-storefront/pkg/db/models"
	"github.com/swanstudios/training-storefront/pkg/logger"
)

// Cart lifecycle event types written on checkout transitions.
const (
	AggregateCart = "cart"

	EventCheckoutAuthorized = "cart.checkout_authorized"
	EventCheckoutReverted   = "cart.checkout_reverted"
	EventCartCompleted      = "cart.completed"
)

// DomainEvent is an audit record emitted in the same transaction as the state
// change it describes.
type DomainEvent struct {
	EventType     string
	AggregateType string
	AggregateID   uuid.UUID
	Data          any
	OccurredAt    time.Time
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Data       json.RawMessage `json:"data"`
}

// Emitter writes domain events inside an open transaction.
type Emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error
}

// Service persists domain events. Delivery to downstream consumers is handled
// outside this process.
type Service struct {
	logg *logger.Logger
}

func NewService(logg *logger.Logger) *Service {
	return &Service{logg: logg}
}

// Emit appends the event to outbox_events using the caller's transaction so
// the audit record commits or rolls back with the state change.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if event.AggregateID == uuid.Nil {
		return errors.New("aggregate id required")
	}

	data, err := json.Marshal(event.Data)
	if err != nil {
		return err
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	envelope := PayloadEnvelope{
		EventID:    uuid.NewString(),
		OccurredAt: event.OccurredAt,
		Data:       data,
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	row := models.OutboxEvent{
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       payload,
	}
	if err := tx.WithContext(ctx).Create(&row).Error; err != nil {
		return err
	}

	if s.logg != nil {
		evCtx := s.logg.WithFields(ctx, map[string]any{
			"event_type":   event.EventType,
			"aggregate_id": event.AggregateID.String(),
		})
		s.logg.Info(evCtx, "outbox event recorded")
	}
	return nil
}
