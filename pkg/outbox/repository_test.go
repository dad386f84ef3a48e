package outbox_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
)

func TestRepositoryMarkLifecycle(t *testing.T) {
	client := dbtest.New(t)
	repo := outbox.NewRepository(client.DB())
	event := insertEvent(t, repo, client.DB(), 0, nil)

	require.NoError(t, repo.MarkFailedTx(client.DB(), event.ID, errors.New("unavailable")))
	stored := loadEvent(t, client.DB(), event.ID)
	require.Equal(t, 1, stored.AttemptCount)
	require.NotNil(t, stored.LastError)
	require.Equal(t, "unavailable", *stored.LastError)
	require.Nil(t, stored.PublishedAt)

	require.NoError(t, repo.MarkPublishedTx(client.DB(), event.ID))
	require.NotNil(t, loadEvent(t, client.DB(), event.ID).PublishedAt)
}

func TestRepositoryDeletePublishedBefore(t *testing.T) {
	client := dbtest.New(t)
	repo := outbox.NewRepository(client.DB())
	now := time.Now().UTC()
	old := now.Add(-40 * 24 * time.Hour)
	recent := now.Add(-time.Hour)

	stale := insertEvent(t, repo, client.DB(), 0, &old)
	fresh := insertEvent(t, repo, client.DB(), 0, &recent)
	pending := insertEvent(t, repo, client.DB(), 3, nil)

	deleted, err := repo.DeletePublishedBefore(context.Background(), nil, now.Add(-30*24*time.Hour), 0)
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)

	var remaining []models.OutboxEvent
	require.NoError(t, client.DB().Order("created_at").Find(&remaining).Error)
	ids := map[uuid.UUID]bool{}
	for _, row := range remaining {
		ids[row.ID] = true
	}
	require.False(t, ids[stale.ID])
	require.True(t, ids[fresh.ID])
	require.True(t, ids[pending.ID])
}

func TestRepositoryDeletePublishedBeforeHonoursLimit(t *testing.T) {
	client := dbtest.New(t)
	repo := outbox.NewRepository(client.DB())
	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		old := now.Add(-time.Duration(40+i) * 24 * time.Hour)
		insertEvent(t, repo, client.DB(), 0, &old)
	}
	cutoff := now.Add(-30 * 24 * time.Hour)

	deleted, err := repo.DeletePublishedBefore(context.Background(), nil, cutoff, 2)
	require.NoError(t, err)
	require.EqualValues(t, 2, deleted)

	deleted, err = repo.DeletePublishedBefore(context.Background(), nil, cutoff, 2)
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)
}

func TestRepositoryCountParked(t *testing.T) {
	client := dbtest.New(t)
	repo := outbox.NewRepository(client.DB())
	published := time.Now().UTC()

	insertEvent(t, repo, client.DB(), 10, nil)
	insertEvent(t, repo, client.DB(), 12, nil)
	insertEvent(t, repo, client.DB(), 2, nil)
	insertEvent(t, repo, client.DB(), 10, &published)

	count, err := repo.CountParked(context.Background(), nil, 10)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
}

func TestRepositoryCountForAggregate(t *testing.T) {
	client := dbtest.New(t)
	repo := outbox.NewRepository(client.DB())
	event := insertEvent(t, repo, client.DB(), 0, nil)

	count, err := repo.CountForAggregate(nil, enums.EventOrderCreated, event.AggregateID)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	count, err = repo.CountForAggregate(nil, enums.EventOrderPaid, event.AggregateID)
	require.NoError(t, err)
	require.Zero(t, count)
}

func insertEvent(t *testing.T, repo *outbox.Repository, tx *gorm.DB, attempts int, publishedAt *time.Time) models.OutboxEvent {
	t.Helper()
	event := models.OutboxEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"version":1,"data":{}}`),
		AttemptCount:  attempts,
		PublishedAt:   publishedAt,
	}
	require.NoError(t, repo.Insert(tx, event))
	var stored models.OutboxEvent
	require.NoError(t, tx.Where("aggregate_id = ?", event.AggregateID).First(&stored).Error)
	return stored
}

func loadEvent(t *testing.T, tx *gorm.DB, id uuid.UUID) models.OutboxEvent {
	t.Helper()
	var stored models.OutboxEvent
	require.NoError(t, tx.First(&stored, "id = ?", id).Error)
	return stored
}

func TestServiceEmitDerivesAggregateAndValidates(t *testing.T) {
	client := dbtest.New(t)
	repo := outbox.NewRepository(client.DB())
	svc := outbox.NewService(repo, nil)
	orderID := uuid.New()

	require.ErrorIs(t, svc.Emit(context.Background(), nil, outbox.DomainEvent{EventType: enums.EventOrderPaid}), outbox.ErrTransactionRequired)
	require.Error(t, svc.Emit(context.Background(), client.DB(), outbox.DomainEvent{EventType: "order_lost", AggregateID: orderID}))
	require.Error(t, svc.Emit(context.Background(), client.DB(), outbox.DomainEvent{EventType: enums.EventOrderPaid}))
	require.Error(t, svc.Emit(context.Background(), client.DB(), outbox.DomainEvent{
		EventType:     enums.EventOrderPaid,
		AggregateType: "invoice",
		AggregateID:   orderID,
	}))

	require.NoError(t, svc.Emit(context.Background(), client.DB(), outbox.DomainEvent{
		EventType:   enums.EventOrderPaid,
		AggregateID: orderID,
		Data:        map[string]string{"order_id": orderID.String()},
	}))

	var stored models.OutboxEvent
	require.NoError(t, client.DB().First(&stored, "aggregate_id = ?", orderID).Error)
	require.Equal(t, enums.AggregateOrder, stored.AggregateType)
	envelope, err := outbox.DecodeEnvelope(stored.Payload)
	require.NoError(t, err)
	require.Equal(t, outbox.CurrentEnvelopeVersion, envelope.Version)
}
