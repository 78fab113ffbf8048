package pubsub

import (
	"context"
	"errors"
	"os"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/mirelletran/fangallery-backend/pkg/broadcast"
	"github.com/mirelletran/fangallery-backend/pkg/logger"
)

const (
	attrKind     = "kind"
	attrRecordID = "record_id"
	attrOrigin   = "origin"
)

type publishResult interface {
	Get(ctx context.Context) (string, error)
}

type publisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) publishResult
}

type receiver interface {
	Receive(ctx context.Context, fn func(context.Context, *pubsub.Message)) error
}

// Bridge relays local change events to the invalidation topic and replays
// remote events into the local broadcaster. Events tagged with this
// instance's own origin are dropped on receive so a publish never loops
// back into the instance that produced it.
type Bridge struct {
	publisher   publisher
	receiver    receiver
	broadcaster *broadcast.Broadcaster
	instanceID  string
	logg        *logger.Logger
	detach      func()
}

// InstanceID derives a stable-enough identifier for this process.
func InstanceID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "instance"
	}
	return host + "-" + uuid.NewString()[:8]
}

// NewBridge wires a broadcaster to the invalidation topic and subscription.
func NewBridge(client *Client, b *broadcast.Broadcaster, instanceID string, logg *logger.Logger) (*Bridge, error) {
	if client == nil {
		return nil, errors.New("pubsub client is required")
	}
	if b == nil {
		return nil, errors.New("broadcaster is required")
	}
	pub := client.InvalidationPublisher()
	sub := client.InvalidationSubscription()
	if pub == nil || sub == nil {
		return nil, errors.New("invalidation topic and subscription are required")
	}
	return newBridge(&gcpPublisher{Publisher: pub}, &gcpReceiver{Subscriber: sub}, b, instanceID, logg), nil
}

func newBridge(pub publisher, rec receiver, b *broadcast.Broadcaster, instanceID string, logg *logger.Logger) *Bridge {
	return &Bridge{
		publisher:   pub,
		receiver:    rec,
		broadcaster: b,
		instanceID:  instanceID,
		logg:        logg,
	}
}

// Attach subscribes the bridge to the local broadcaster so locally produced
// events get forwarded to the topic. Remote-origin events are not forwarded
// again.
func (b *Bridge) Attach() {
	b.detach = b.broadcaster.Subscribe(func(ctx context.Context, evt broadcast.Event) {
		if evt.Origin != "" && evt.Origin != b.instanceID {
			return
		}
		b.forward(ctx, evt)
	})
}

// Detach removes the bridge's local subscription.
func (b *Bridge) Detach() {
	if b.detach != nil {
		b.detach()
	}
}

func (b *Bridge) forward(ctx context.Context, evt broadcast.Event) {
	msg := &pubsub.Message{
		Attributes: map[string]string{
			attrKind:     evt.Kind,
			attrRecordID: evt.RecordID,
			attrOrigin:   b.instanceID,
		},
	}
	result := b.publisher.Publish(ctx, msg)
	if result == nil {
		return
	}
	if _, err := result.Get(ctx); err != nil && b.logg != nil {
		b.logg.Error(b.logg.WithField(ctx, "kind", evt.Kind), "forwarding invalidation event failed", err)
	}
}

// Run consumes remote invalidation events until the context is canceled.
// Messages are always acked: invalidations are idempotent and a redelivery
// storm is worse than a lost refresh.
func (b *Bridge) Run(ctx context.Context) error {
	if b.receiver == nil {
		return errors.New("bridge receiver not configured")
	}
	return b.receiver.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		b.handleRemote(ctx, msg)
		msg.Ack()
	})
}

func (b *Bridge) handleRemote(ctx context.Context, msg *pubsub.Message) {
	origin := msg.Attributes[attrOrigin]
	if origin == b.instanceID {
		return
	}
	evt := broadcast.Event{
		Kind:     msg.Attributes[attrKind],
		RecordID: msg.Attributes[attrRecordID],
		Origin:   origin,
	}
	if evt.Kind == "" {
		if b.logg != nil {
			b.logg.Warn(ctx, "dropping invalidation event without kind")
		}
		return
	}
	b.broadcaster.Publish(ctx, evt)
}

type gcpPublisher struct {
	*pubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *pubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return p.Publisher.Publish(ctx, msg)
}

type gcpReceiver struct {
	*pubsub.Subscriber
}

func (r *gcpReceiver) Receive(ctx context.Context, fn func(context.Context, *pubsub.Message)) error {
	if r == nil || r.Subscriber == nil {
		return errors.New("subscriber not configured")
	}
	return r.Subscriber.Receive(ctx, fn)
}
