// Package barrier implements an N-of-N join over a fixed set of producer
// names. Each producer reports one payload per round; once every name has
// reported, the coordinator publishes a single combined envelope on the
// join topic and clears its round state so the next round starts empty.
//
// Key concepts:
//
//   - Coordinator: owns the round state for one barrier instance. It is an
//     explicit handle, not process-global state, so independent workflows
//     and tests each get their own rounds.
//   - Round: the interval from "no producer has reported" to "the join
//     envelope has been published". Completion and reset happen atomically
//     with respect to concurrent reports.
//   - Attach: subscribes a coordinator to one done topic per expected
//     producer so transport deliveries flow into Report without the caller
//     writing handler glue.
//
// Design decisions:
//
//   - A single mutex guards the whole round mapping. Report, the completion
//     check, the join publish, and the reset all run under it, so two racing
//     final reports can never both observe a completed round. The join
//     publish does not invoke handlers synchronously, so holding the lock
//     across it cannot deadlock.
//   - Duplicate reports within a round overwrite. The combined payload
//     always carries each producer's most recent report.
//   - Payloads are recorded regardless of their status field. A producer
//     reporting an error still counts toward completion; downstream
//     consumers inspect per-producer status themselves.
//   - Reports from names outside the expected set are logged and dropped.
//     They never contribute to completion.
//   - A failed join publish still resets the round. A stuck round would
//     block every later run, whereas a lost join is visible in the log and
//     recoverable by re-running the workflow.
//   - The combined payload preserves field order: the event marker first,
//     one entry per producer in declaration order, the status marker last.
//
// Example usage:
//
//	coord := barrier.New(
//		barrier.Transport(b),
//		barrier.JoinTopic("squire/analysis/join"),
//		barrier.Expecting("pr", "meeting"),
//	)
//	detach, err := barrier.Attach(ctx, coord, b, func(producer string) string {
//		return "squire/analysis/" + producer + "/done"
//	})
//	if err != nil {
//		return err
//	}
//	defer detach()
package barrier
