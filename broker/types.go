package broker

import (
	"context"

	"github.com/rayhaanfarooq/squire/events"
)

// Broker hands out topics and tears the transport down.
type Broker interface {
	Topic(context.Context, string) Topic
	// Disconnect is best-effort teardown: consumption loops stop and any
	// backend connection closes. In-flight deliveries may be lost.
	Disconnect(context.Context) error
}

// Topic is one named channel of envelopes.
type Topic interface {
	Publish(context.Context, events.Envelope) error
	Subscribe(context.Context, events.Handler) (Subscription, error)
}

// Subscription is one registered handler's membership in a topic.
type Subscription interface {
	ID() string
	Unsubscribe()
}

// Publish wraps val in a fresh envelope and publishes it on the named
// topic. It is the convenience path the workflow and agents use; callers
// that already hold an envelope go through Topic.Publish directly.
func Publish(ctx context.Context, b Broker, topic string, val any) error {
	env, err := events.NewValue(topic, val)
	if err != nil {
		return err
	}
	return b.Topic(ctx, topic).Publish(ctx, env)
}
