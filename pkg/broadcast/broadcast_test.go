package broadcast

import (
	"context"
	"testing"
)

func TestPublishDeliversInSubscriptionOrder(t *testing.T) {
	t.Parallel()

	b := New(nil)
	var order []string
	b.Subscribe(func(ctx context.Context, evt Event) {
		order = append(order, "first:"+evt.RecordID)
	})
	b.Subscribe(func(ctx context.Context, evt Event) {
		order = append(order, "second:"+evt.RecordID)
	})

	b.Publish(context.Background(), Event{Kind: "content", RecordID: "rec-1"})

	if len(order) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(order))
	}
	if order[0] != "first:rec-1" || order[1] != "second:rec-1" {
		t.Fatalf("unexpected delivery order: %v", order)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	t.Parallel()

	b := New(nil)
	var calls int
	unsub := b.Subscribe(func(ctx context.Context, evt Event) { calls++ })

	b.Publish(context.Background(), Event{Kind: "content"})
	unsub()
	unsub() // second call is a no-op
	b.Publish(context.Background(), Event{Kind: "content"})

	if calls != 1 {
		t.Fatalf("expected 1 call after unsubscribe, got %d", calls)
	}
	if b.Len() != 0 {
		t.Fatalf("expected 0 subscribers, got %d", b.Len())
	}
}

func TestUnsubscribeDuringDelivery(t *testing.T) {
	t.Parallel()

	b := New(nil)
	var calls []string
	var unsub func()
	unsub = b.Subscribe(func(ctx context.Context, evt Event) {
		calls = append(calls, "self-removing")
		unsub()
	})
	b.Subscribe(func(ctx context.Context, evt Event) {
		calls = append(calls, "stable")
	})

	b.Publish(context.Background(), Event{Kind: "banners"})
	b.Publish(context.Background(), Event{Kind: "banners"})

	want := []string{"self-removing", "stable", "stable"}
	if len(calls) != len(want) {
		t.Fatalf("expected %d calls, got %d: %v", len(want), len(calls), calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("call %d: expected %q got %q", i, want[i], calls[i])
		}
	}
}

func TestSubscribeNilHandler(t *testing.T) {
	t.Parallel()

	b := New(nil)
	unsub := b.Subscribe(nil)
	unsub()
	if b.Len() != 0 {
		t.Fatalf("nil handler should not register, got %d subscribers", b.Len())
	}
}

func TestLateSubscriberMissesEarlierEvents(t *testing.T) {
	t.Parallel()

	b := New(nil)
	b.Publish(context.Background(), Event{Kind: "content", RecordID: "rec-1"})
	b.Publish(context.Background(), Event{Kind: "content", RecordID: "rec-2"})

	var calls int
	b.Subscribe(func(ctx context.Context, evt Event) { calls++ })

	if calls != 0 {
		t.Fatalf("late subscriber should see no prior events, got %d", calls)
	}

	b.Publish(context.Background(), Event{Kind: "content", RecordID: "rec-3"})
	if calls != 1 {
		t.Fatalf("late subscriber should only see events after subscribing, got %d", calls)
	}
}

func TestPanickingSubscriberDoesNotStopDelivery(t *testing.T) {
	t.Parallel()

	b := New(nil)
	b.Subscribe(func(ctx context.Context, evt Event) {
		panic("handler blew up")
	})
	var calls int
	b.Subscribe(func(ctx context.Context, evt Event) { calls++ })

	b.Publish(context.Background(), Event{Kind: "content", RecordID: "rec-1"})

	if calls != 1 {
		t.Fatalf("subscriber after a panicking one should still be delivered, got %d", calls)
	}
}
