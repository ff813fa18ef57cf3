package broker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alphadose/haxmap"
	json "github.com/goccy/go-json"
	"github.com/nats-io/nats.go"

	"github.com/rayhaanfarooq/squire/events"
	"github.com/rayhaanfarooq/squire/pkg/slogx"
	"github.com/rayhaanfarooq/squire/pkg/uuidx"
)

type natsBroker struct {
	client *nats.Conn
	topics *haxmap.Map[string, *natsTopic]
}

// NATS wraps an established connection in the Broker contract. Topic names
// are used verbatim as subjects.
func NATS(client *nats.Conn) Broker {
	return &natsBroker{
		client: client,
		topics: haxmap.New[string, *natsTopic](),
	}
}

func (b *natsBroker) Topic(ctx context.Context, id string) Topic {
	top, _ := b.topics.GetOrCompute(id, func() *natsTopic {
		return &natsTopic{
			subject: id,
			client:  b.client,
		}
	})
	return top
}

func (b *natsBroker) Disconnect(ctx context.Context) error {
	if err := b.client.Drain(); err != nil {
		b.client.Close()
		return fmt.Errorf("drain broker connection: %w", err)
	}
	return nil
}

type natsTopic struct {
	client  *nats.Conn
	subject string
}

func (t *natsTopic) Publish(ctx context.Context, env events.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return t.client.Publish(t.subject, data)
}

func (t *natsTopic) Subscribe(ctx context.Context, handler events.Handler) (Subscription, error) {
	if handler == nil {
		return nil, fmt.Errorf("handler is required")
	}

	ch := make(chan events.Envelope, 50)
	nsub, err := t.client.Subscribe(t.subject, func(msg *nats.Msg) {
		var env events.Envelope
		if err := json.Unmarshal(msg.Data, &env); err != nil {
			slog.Error("skipping malformed envelope from broker",
				slog.String("subject", t.subject),
				slogx.Error(err),
			)
			return
		}

		ch <- env

		if msg.Reply != "" {
			if nerr := msg.Ack(); nerr != nil {
				slog.Error("failed to ack message", slogx.Error(nerr))
			}
		}
	})
	if err != nil {
		return nil, err
	}
	nsub.SetClosedHandler(func(_ string) { close(ch) })

	go forwardEnvelopes(ctx, ch, handler)
	return &natsSubscription{
		id:  uuidx.NewString(),
		sub: nsub,
	}, nil
}

// forwardEnvelopes dispatches each inbound envelope on its own goroutine,
// mirroring the local forwarder's isolation guarantees.
func forwardEnvelopes(ctx context.Context, ch <-chan events.Envelope, handler events.Handler) {
	for {
		select {
		case env, ok := <-ch:
			if !ok {
				return
			}
			events.Dispatch(ctx, handler, env)
		case <-ctx.Done():
			return
		}
	}
}

type natsSubscription struct {
	id  string
	sub *nats.Subscription
}

func (n *natsSubscription) ID() string {
	return n.id
}

func (n *natsSubscription) Unsubscribe() {
	if err := n.sub.Unsubscribe(); err != nil {
		slog.Error("failed to unsubscribe", slogx.Error(err), slog.String("subscription", n.id))
	}
}
