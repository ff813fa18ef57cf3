package broker

import (
	"context"
	"fmt"

	"github.com/alphadose/haxmap"
	"github.com/fogfish/opts"

	"github.com/rayhaanfarooq/squire/events"
	"github.com/rayhaanfarooq/squire/internal/spool"
)

// spooledBroker is the degraded transport mode: every publish fans out to
// the in-process registry and lands in the file spool, and every
// subscribed topic runs one consumption loop against the spool so
// envelopes published by other processes arrive here too.
type spooledBroker struct {
	local  *localBroker
	spool  *spool.Spool
	loops  *haxmap.Map[string, context.CancelFunc]
	ctx    context.Context
	cancel context.CancelFunc
}

// Spooled creates the file-backed degraded-mode broker rooted at dir.
// Options are the spool knobs from this package (PollInterval, Retention).
func Spooled(dir string, options ...opts.Option[config]) Broker {
	c := defaultConfig()
	c.spoolDir = dir
	if err := opts.Apply(&c, options); err != nil {
		panic(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &spooledBroker{
		local: newLocal(),
		spool: spool.New(c.spoolDir,
			spool.PollInterval(c.pollInterval),
			spool.Retention(c.retention),
		),
		loops:  haxmap.New[string, context.CancelFunc](),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (b *spooledBroker) Topic(ctx context.Context, id string) Topic {
	return &spooledTopic{
		id:     id,
		local:  b.local.topicFor(id),
		broker: b,
	}
}

func (b *spooledBroker) Disconnect(ctx context.Context) error {
	b.cancel()
	return b.local.Disconnect(ctx)
}

// ensureLoop starts the consumption loop for a topic at most once per
// process. The loop lives on the broker context, not the subscriber's, so
// it serves every later subscriber on the same topic.
func (b *spooledBroker) ensureLoop(id string, deliver func(events.Envelope)) {
	b.loops.GetOrCompute(id, func() context.CancelFunc {
		return b.spool.Watch(b.ctx, id, deliver)
	})
}

type spooledTopic struct {
	id     string
	local  *localTopic
	broker *spooledBroker
}

// Publish attempts both delivery paths: asynchronous dispatch to handlers
// registered in this process, then serialization into the spool for
// subscribers in other processes. A same-process subscriber can therefore
// hear the envelope twice, once per path.
func (t *spooledTopic) Publish(ctx context.Context, env events.Envelope) error {
	if err := t.local.Publish(ctx, env); err != nil {
		return err
	}
	if err := t.broker.spool.Append(env); err != nil {
		return fmt.Errorf("spool envelope for %s: %w", t.id, err)
	}
	return nil
}

func (t *spooledTopic) Subscribe(ctx context.Context, handler events.Handler) (Subscription, error) {
	sub, err := t.local.Subscribe(ctx, handler)
	if err != nil {
		return nil, err
	}

	t.broker.ensureLoop(t.id, func(env events.Envelope) {
		// Spooled entries re-enter through the local registry so every
		// handler on this topic sees them, each on its own goroutine.
		_ = t.local.Publish(t.broker.ctx, env)
	})

	return sub, nil
}
