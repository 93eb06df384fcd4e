package consumer

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recompensa/internal/moderation/audit"
	"recompensa/internal/platform/kafka/consumer"
)

type stubMaterializer struct {
	events []audit.Event
	err    error
}

func (s *stubMaterializer) Materialize(_ context.Context, event audit.Event) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func message(t *testing.T, p payload) *consumer.Message {
	t.Helper()
	raw, err := json.Marshal(p)
	require.NoError(t, err)
	return &consumer.Message{Topic: "moderation.events", Key: []byte(p.ID), Value: raw}
}

func TestHandler_MaterializesEvent(t *testing.T) {
	store := &stubMaterializer{}
	handler := New(store, discardLogger())

	eventID := uuid.New()
	listingID := uuid.New()
	createdAt := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)

	err := handler.Handle(context.Background(), message(t, payload{
		ID:           eventID.String(),
		ResourceType: audit.ResourceTypeListing,
		ResourceID:   listingID.String(),
		Action:       "REJECT",
		Reason:       "BANNED:sequestro",
		CreatedAt:    createdAt.Format(time.RFC3339Nano),
	}))
	require.NoError(t, err)

	require.Len(t, store.events, 1)
	assert.Equal(t, eventID, store.events[0].ID)
	assert.Equal(t, listingID, store.events[0].ResourceID)
	assert.Equal(t, "REJECT", store.events[0].Action)
	assert.Equal(t, createdAt, store.events[0].CreatedAt)
}

func TestHandler_MalformedPayloadIsCommitted(t *testing.T) {
	store := &stubMaterializer{}
	handler := New(store, discardLogger())

	msg := &consumer.Message{Topic: "moderation.events", Value: []byte("{broken")}
	require.NoError(t, handler.Handle(context.Background(), msg),
		"malformed payloads can never succeed on redelivery")
	assert.Empty(t, store.events)
}

func TestHandler_BadIDsAreCommitted(t *testing.T) {
	store := &stubMaterializer{}
	handler := New(store, discardLogger())

	require.NoError(t, handler.Handle(context.Background(), message(t, payload{
		ID:         "not-a-uuid",
		ResourceID: uuid.NewString(),
		Action:     "APPROVE",
	})))
	require.NoError(t, handler.Handle(context.Background(), message(t, payload{
		ID:         uuid.NewString(),
		ResourceID: "not-a-uuid",
		Action:     "APPROVE",
	})))
	assert.Empty(t, store.events)
}

func TestHandler_StoreErrorPropagates(t *testing.T) {
	store := &stubMaterializer{err: assert.AnError}
	handler := New(store, discardLogger())

	err := handler.Handle(context.Background(), message(t, payload{
		ID:         uuid.NewString(),
		ResourceID: uuid.NewString(),
		Action:     "APPROVE",
		Reason:     "auto",
		CreatedAt:  time.Now().Format(time.RFC3339Nano),
	}))
	require.Error(t, err, "offset must not be committed when materialization fails")
}
