package barrier

import (
	"context"
	"fmt"

	"github.com/rayhaanfarooq/squire/broker"
	"github.com/rayhaanfarooq/squire/events"
	"github.com/rayhaanfarooq/squire/pkg/dedupe"
)

// Attach subscribes coord to one done topic per expected producer, derived
// through doneTopic, and feeds every delivery into Report. Deliveries are
// deduplicated by envelope ID in front of the coordinator, so transports
// that deliver the same envelope through more than one path count each
// report once per round.
//
// The returned detach function removes every subscription Attach created.
func Attach(ctx context.Context, coord Coordinator, transport broker.Broker, doneTopic func(producer string) string) (detach func(), err error) {
	seen := dedupe.New(0)

	var subs []broker.Subscription
	detach = func() {
		for _, sub := range subs {
			sub.Unsubscribe()
		}
	}

	for _, producer := range coord.Expected() {
		topic := doneTopic(producer)
		handler := events.Deduped(seen, events.HandlerFunc(func(hctx context.Context, env events.Envelope) error {
			return coord.Report(hctx, producer, env.Payload)
		}))

		sub, serr := transport.Topic(ctx, topic).Subscribe(ctx, handler)
		if serr != nil {
			detach()
			return nil, fmt.Errorf("subscribe to %s for producer %s: %w", topic, producer, serr)
		}
		subs = append(subs, sub)
	}

	return detach, nil
}
