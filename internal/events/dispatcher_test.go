package events

import (
	"context"
	"errors"
	"testing"
)

func TestPublishInvokesSubscribersInOrder(t *testing.T) {
	d := NewInMemoryDispatcher(nil)

	var calls []string
	d.Subscribe(EventAccountCreated, func(ctx context.Context, e Event) error {
		calls = append(calls, "first:"+e.SubjectID)
		return errors.New("handler failure")
	})
	d.Subscribe(EventAccountCreated, func(ctx context.Context, e Event) error {
		calls = append(calls, "second:"+e.SubjectID)
		return nil
	})
	d.Subscribe(EventAccountDeleted, func(ctx context.Context, e Event) error {
		calls = append(calls, "deleted")
		return nil
	})

	if err := d.Publish(context.Background(), Event{Type: EventAccountCreated, SubjectID: "acc-1"}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if len(calls) != 2 || calls[0] != "first:acc-1" || calls[1] != "second:acc-1" {
		t.Fatalf("calls = %v", calls)
	}
}

func TestPublishWithoutSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	if err := d.Publish(context.Background(), Event{Type: EventLogout}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
}
