// Package agent defines the analyzer capability and the runner that turns
// an analyzer into a workflow producer.
//
// An Analyzer is one unit of analysis work: given the round's trigger
// envelope it produces a payload describing what it found. The Runner owns
// everything around that call so analyzers stay free of transport concerns.
// It subscribes to the start topic, invokes the analyzer once per trigger,
// and publishes the outcome on the producer's done topic. When the analyzer
// fails, the runner publishes an error payload instead so the barrier
// downstream still sees a report and the round can complete.
//
// Design decisions:
//
//   - Analyzers return plain Go values, not pre-encoded JSON. The runner
//     owns encoding, so an analyzer cannot emit a malformed payload.
//   - Every done payload carries a status field, StatusCompleted or
//     StatusError. Consumers branch on status rather than on the presence
//     or absence of result fields.
//   - Triggers are deduplicated by envelope ID before the analyzer runs.
//     Transports may deliver the same trigger through more than one path,
//     and an analysis that calls external services should run once per
//     round, not once per delivery.
//   - Analyzer packages register a constructor in Global from init so a
//     binary selects producers by name at runtime with a blank import per
//     analyzer it ships.
package agent
