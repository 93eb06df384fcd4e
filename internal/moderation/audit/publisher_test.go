package audit_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recompensa/internal/moderation/audit"
	auditmemory "recompensa/internal/moderation/audit/store/memory"
)

func TestPublisher_EmitAssignsIdentity(t *testing.T) {
	store := auditmemory.New()
	publisher := audit.NewPublisher(store)
	listingID := uuid.New()

	require.NoError(t, publisher.Emit(context.Background(), audit.Event{
		ResourceID: listingID,
		Action:     "APPROVE",
		Reason:     "auto",
	}))

	events := store.All()
	require.Len(t, events, 1)
	assert.NotEqual(t, uuid.Nil, events[0].ID)
	assert.Equal(t, audit.ResourceTypeListing, events[0].ResourceType)
	assert.Equal(t, listingID, events[0].ResourceID)
	assert.WithinDuration(t, time.Now(), events[0].CreatedAt, time.Minute)
}

func TestPublisher_EmitKeepsCallerIdentity(t *testing.T) {
	store := auditmemory.New()
	publisher := audit.NewPublisher(store)

	eventID := uuid.New()
	createdAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, publisher.Emit(context.Background(), audit.Event{
		ID:         eventID,
		ResourceID: uuid.New(),
		Action:     "REJECT",
		Reason:     "BANNED:sequestro",
		CreatedAt:  createdAt,
	}))

	events := store.All()
	require.Len(t, events, 1)
	assert.Equal(t, eventID, events[0].ID)
	assert.Equal(t, createdAt, events[0].CreatedAt)
}

func TestPublisher_ListFiltersByListing(t *testing.T) {
	store := auditmemory.New()
	publisher := audit.NewPublisher(store)

	mine := uuid.New()
	other := uuid.New()
	require.NoError(t, publisher.Emit(context.Background(), audit.Event{ResourceID: mine, Action: "ADJUST", Reason: "SENSITIVE:senha"}))
	require.NoError(t, publisher.Emit(context.Background(), audit.Event{ResourceID: other, Action: "APPROVE", Reason: "auto"}))
	require.NoError(t, publisher.Emit(context.Background(), audit.Event{ResourceID: mine, Action: "APPROVE", Reason: "auto"}))

	events, err := publisher.List(context.Background(), mine)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "ADJUST", events[0].Action)
	assert.Equal(t, "APPROVE", events[1].Action)
}
