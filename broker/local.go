package broker

import (
	"context"
	"fmt"
	"sync"

	"github.com/alphadose/haxmap"

	"github.com/rayhaanfarooq/squire/events"
	"github.com/rayhaanfarooq/squire/pkg/uuidx"
)

type localBroker struct {
	topics *haxmap.Map[string, *localTopic]
}

// Local creates the in-process broker: a subscription registry per topic,
// no cross-process delivery.
func Local() Broker {
	return newLocal()
}

func newLocal() *localBroker {
	return &localBroker{
		topics: haxmap.New[string, *localTopic](),
	}
}

func (b *localBroker) Topic(ctx context.Context, id string) Topic {
	return b.topicFor(id)
}

func (b *localBroker) topicFor(id string) *localTopic {
	topic, _ := b.topics.GetOrCompute(id, func() *localTopic {
		return &localTopic{
			id:            id,
			subscriptions: haxmap.New[string, *localSubscription](),
		}
	})
	return topic
}

func (b *localBroker) Disconnect(ctx context.Context) error {
	b.topics.ForEach(func(_ string, t *localTopic) bool {
		t.closeAll()
		return true
	})
	return nil
}

type localTopic struct {
	id            string
	subscriptions *haxmap.Map[string, *localSubscription]
}

func (t *localTopic) Publish(ctx context.Context, env events.Envelope) error {
	t.subscriptions.ForEach(func(id string, sub *localSubscription) bool {
		if sub == nil {
			return true
		}

		select {
		case <-ctx.Done():
			return false
		case <-sub.done:
			return true
		case <-sub.ctx.Done():
			sub.Unsubscribe()
			return true
		default:
		}

		// The forwarder drains this channel without waiting on handlers,
		// so the send completes as fast as the scheduler allows. Slow
		// handlers run in their own dispatch goroutines rather than
		// getting evicted.
		select {
		case <-ctx.Done():
			return false
		case <-sub.done:
		case <-sub.ctx.Done():
			sub.Unsubscribe()
		case sub.channel <- env:
		}
		return true
	})
	return nil
}

func (t *localTopic) Subscribe(ctx context.Context, handler events.Handler) (Subscription, error) {
	if handler == nil {
		return nil, fmt.Errorf("handler is required")
	}
	return t.newSubscription(ctx, handler), nil
}

func (t *localTopic) newSubscription(ctx context.Context, handler events.Handler) *localSubscription {
	id := uuidx.NewString()
	sub := &localSubscription{
		id:        id, // Same ID for the subscription and the map key
		ctx:       ctx,
		channel:   make(chan events.Envelope, 50),
		done:      make(chan struct{}),
		closeOnce: sync.Once{},
		onClose:   func() { t.subscriptions.Del(id) },
		handler:   handler,
	}
	t.subscriptions.Set(id, sub)
	go sub.forward()
	return sub
}

func (t *localTopic) closeAll() {
	t.subscriptions.ForEach(func(_ string, sub *localSubscription) bool {
		sub.Unsubscribe()
		return true
	})
}

type localSubscription struct {
	id        string
	ctx       context.Context
	channel   chan events.Envelope
	done      chan struct{}
	closeOnce sync.Once
	onClose   func()
	handler   events.Handler
}

func (s *localSubscription) ID() string {
	return s.id
}

// Unsubscribe signals shutdown through a dedicated done channel rather
// than closing the envelope channel, so a publisher mid-send can never
// hit a closed channel.
func (s *localSubscription) Unsubscribe() {
	s.closeOnce.Do(func() {
		if s.onClose != nil {
			s.onClose()
		}
		close(s.done)
	})
}

// forward moves envelopes from the subscription channel to the handler,
// dispatching each invocation on its own goroutine so this loop never
// waits on handler execution.
func (s *localSubscription) forward() {
	for {
		select {
		case env := <-s.channel:
			events.Dispatch(s.ctx, s.handler, env)
		case <-s.done:
			return
		case <-s.ctx.Done():
			return
		}
	}
}
