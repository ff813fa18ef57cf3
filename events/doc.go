// Package events defines the unit of transport for the workflow mesh: the
// Envelope, and the Handler capability consumers implement to receive them.
//
// Design decisions:
//   - Dynamic payloads: payloads are arbitrary JSON documents carried as
//     gjson.Result, so producers and consumers agree on fields, not types
//   - Unique identifiers: every envelope gets a version 7 UUID; consumers
//     use it to suppress duplicates when both delivery paths fire
//   - Efficient JSON: custom marshaling built with sjson, field-validated
//     unmarshaling with gjson
//   - Isolated handlers: Dispatch runs each handler in its own goroutine
//     with panic recovery, so a slow or failing handler cannot block the
//     publisher, the consumption loop, or other handlers
//   - Errors stay local: handler errors are logged at the dispatch site and
//     never propagate back to publishers
//
// An envelope on the wire:
//
//	{
//	  "id": "0194f5a2-...",
//	  "topic": "squire/analysis/pr/done",
//	  "payload": {"agent": "pr", "status": "completed", "count": 1},
//	  "enqueued_at": "2025-04-01T10:15:04.221Z"
//	}
package events
