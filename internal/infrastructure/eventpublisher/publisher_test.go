package eventpublisher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/lexhq/trustledger/internal/domain"
	"github.com/lexhq/trustledger/internal/usecase"
)

func TestProcessEventsPublishesAndMarks(t *testing.T) {
	outbox := &fakeOutbox{events: []*domain.OutboxEvent{
		{ID: "evt-1", AggregateType: domain.AggregateTypeTransaction, EventType: domain.EventTypeDepositPosted},
	}}
	sink := &captureSink{}

	ep := newTestPublisher(outbox, sink)
	if err := ep.processEvents(context.Background()); err != nil {
		t.Fatalf("processEvents failed: %v", err)
	}

	if len(sink.delivered) != 1 || sink.delivered[0].ID != "evt-1" {
		t.Fatalf("expected evt-1 to be delivered, got %#v", sink.delivered)
	}
	if len(outbox.marked) != 1 || outbox.marked[0] != "evt-1" {
		t.Fatalf("expected evt-1 to be marked published, got %#v", outbox.marked)
	}
}

func TestProcessEventsSkipsFailedEvent(t *testing.T) {
	outbox := &fakeOutbox{events: []*domain.OutboxEvent{
		{ID: "evt-1", EventType: domain.EventTypeWithdrawalRequested},
		{ID: "evt-2", EventType: domain.EventTypeTransactionApproved},
	}}
	sink := &captureSink{failing: map[string]error{"evt-1": errors.New("broker down")}}

	ep := newTestPublisher(outbox, sink)
	if err := ep.processEvents(context.Background()); err != nil {
		t.Fatalf("processEvents returned error: %v", err)
	}

	if len(sink.delivered) != 1 || sink.delivered[0].ID != "evt-2" {
		t.Fatalf("expected only evt-2 to be delivered, got %#v", sink.delivered)
	}
	if len(outbox.marked) != 1 || outbox.marked[0] != "evt-2" {
		t.Fatalf("expected only evt-2 to be marked, got %#v", outbox.marked)
	}
}

func TestFailedEventStaysUnpublishedForRetry(t *testing.T) {
	event := &domain.OutboxEvent{ID: "evt-1", EventType: domain.EventTypeTransactionVoided}
	outbox := &fakeOutbox{events: []*domain.OutboxEvent{event}}
	sink := &captureSink{failing: map[string]error{"evt-1": errors.New("timeout")}}

	ep := newTestPublisher(outbox, sink)
	if err := ep.processEvents(context.Background()); err != nil {
		t.Fatalf("first batch failed: %v", err)
	}
	if len(outbox.marked) != 0 {
		t.Fatalf("failed event must not be marked published, got %#v", outbox.marked)
	}

	// Broker recovers; the next tick should deliver it.
	sink.failing = nil
	if err := ep.processEvents(context.Background()); err != nil {
		t.Fatalf("second batch failed: %v", err)
	}
	if len(outbox.marked) != 1 || outbox.marked[0] != "evt-1" {
		t.Fatalf("expected evt-1 delivered on retry, got %#v", outbox.marked)
	}
}

func TestStartStopsOnContextCancellation(t *testing.T) {
	ep := newTestPublisher(&fakeOutbox{}, &captureSink{})
	ep.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ep.Start(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("publisher did not stop after cancel")
	}
}

func newTestPublisher(outbox *fakeOutbox, sink *captureSink) *EventPublisher {
	return NewEventPublisher(Config{
		OutboxRepo: outbox,
		Publisher:  sink,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		BatchSize:  10,
		Interval:   5 * time.Millisecond,
	})
}

type fakeOutbox struct {
	events []*domain.OutboxEvent
	marked []string
}

func (f *fakeOutbox) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	return nil
}

func (f *fakeOutbox) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	var unpublished []*domain.OutboxEvent
	for _, e := range f.events {
		if len(unpublished) == limit {
			break
		}
		if !contains(f.marked, e.ID) {
			unpublished = append(unpublished, e)
		}
	}
	return unpublished, nil
}

func (f *fakeOutbox) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	f.marked = append(f.marked, id)
	return nil
}

func (f *fakeOutbox) DeletePublished(ctx context.Context, before time.Time) error {
	return nil
}

type captureSink struct {
	delivered []*domain.OutboxEvent
	failing   map[string]error
}

func (s *captureSink) Publish(ctx context.Context, event *domain.OutboxEvent) error {
	if err := s.failing[event.ID]; err != nil {
		return err
	}
	s.delivered = append(s.delivered, event)
	return nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
