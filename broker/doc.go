// Package broker implements the topic-addressed publish/subscribe transport
// that carries workflow envelopes between agents, the barrier coordinator,
// and the manager. It provides one minimal contract with three
// implementations, so callers never know which transport mode is active.
//
// Design decisions:
//   - Context-first: all operations accept context.Context for cancellation
//   - Topic-based: envelopes are distributed through named topics, exact
//     match only
//   - Publish never blocks on subscribers: handler invocations are
//     dispatched on their own goroutines from every delivery path
//   - Dual-path degraded mode: without a real broker, Spooled delivers both
//     through the in-process registry and through a shared file spool that
//     other processes poll, so independently started processes still hear
//     each other
//   - Graceful degradation: New tries the configured broker first and falls
//     back to Spooled with a logged warning instead of failing the caller
//   - At-least-once: the same logical event can legitimately arrive twice
//     (both delivery paths, spool redelivery after restart); consumers that
//     must not double-process deduplicate on envelope identifier
//
// Implementations:
//   - Local: in-process subscription registry only
//   - Spooled: Local plus the cross-process file spool
//   - NATS: a real broker backend over nats.go
//
// Example usage:
//
//	b := broker.New(ctx,
//		broker.URL(cfg.BrokerURL),
//		broker.Credentials(cfg.BrokerUsername, cfg.BrokerPassword),
//		broker.SpoolDir(cfg.SpoolDir),
//	)
//	defer func() { _ = b.Disconnect(ctx) }()
//
//	topic := b.Topic(ctx, "squire/analysis/pr/done")
//	sub, err := topic.Subscribe(ctx, handler)
//	if err != nil {
//		return err
//	}
//	defer sub.Unsubscribe()
//
//	if err := broker.Publish(ctx, b, "squire/analysis/start", map[string]any{"event": "start"}); err != nil {
//		return err
//	}
package broker
