package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventpass/eventpass/internal/model"
)

type stubOutbox struct {
	mu        sync.Mutex
	pending   []model.OutboxEvent
	published []int64
}

func (s *stubOutbox) GetUnpublished(_ context.Context, limit int) ([]model.OutboxEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) > limit {
		return s.pending[:limit], nil
	}
	return s.pending, nil
}

func (s *stubOutbox) MarkPublished(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published = append(s.published, id)
	for i, e := range s.pending {
		if e.ID == id {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			break
		}
	}
	return nil
}

type stubStream struct {
	mu       sync.Mutex
	appended []model.OutboxEvent
	failFor  map[int64]bool
}

func (s *stubStream) Append(_ context.Context, event model.OutboxEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFor[event.ID] {
		return errors.New("stream unavailable")
	}
	s.appended = append(s.appended, event)
	return nil
}

func TestPublishBatchDrainsOutbox(t *testing.T) {
	outbox := &stubOutbox{pending: []model.OutboxEvent{
		{ID: 1, AggregateID: "reg-1", EventType: model.EventTypeRegistrationCreated, Payload: []byte(`{}`)},
		{ID: 2, AggregateID: "tkt-1", EventType: model.EventTypeTicketRedeemed, Payload: []byte(`{}`)},
	}}
	stream := &stubStream{}

	p := NewPublisher(outbox, stream, time.Second, 10, discardLogger())
	p.publishBatch(context.Background())

	require.Len(t, stream.appended, 2)
	assert.Equal(t, []int64{1, 2}, outbox.published)
	assert.Empty(t, outbox.pending)
}

func TestPublishBatchKeepsFailedEvents(t *testing.T) {
	outbox := &stubOutbox{pending: []model.OutboxEvent{
		{ID: 1, EventType: model.EventTypeRegistrationCreated, Payload: []byte(`{}`)},
		{ID: 2, EventType: model.EventTypeRegistrationCreated, Payload: []byte(`{}`)},
	}}
	stream := &stubStream{failFor: map[int64]bool{1: true}}

	p := NewPublisher(outbox, stream, time.Second, 10, discardLogger())
	p.publishBatch(context.Background())

	// Event 1 stays unpublished for the next tick; event 2 went through.
	require.Len(t, outbox.pending, 1)
	assert.Equal(t, int64(1), outbox.pending[0].ID)
	assert.Equal(t, []int64{2}, outbox.published)
}
