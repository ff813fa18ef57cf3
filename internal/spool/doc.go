// Package spool implements the cross-process topic queue used when no real
// broker is configured. Each topic maps to a directory (path separators in
// the topic replaced with underscores) holding one JSON file per envelope,
// named by the envelope's version 7 identifier so a sorted directory
// listing approximates publish order.
//
// Design decisions:
//   - Writers need no lock: entries are written to a temp name and renamed
//     into place, so concurrent publishers across processes never collide
//     and readers never observe a partial entry
//   - Consumers never delete: each watcher keeps its own in-memory record
//     of processed entry names, so any number of consumer processes can
//     observe every envelope without racing each other's cleanup
//   - Retention sweep: entries older than the retention window are removed
//     by whichever watcher notices first; removal bounds storage and has no
//     bearing on delivery correctness
//   - Restart redelivers: processed-entry records die with the process, so
//     an unexpired entry may be delivered again after a restart. Delivery
//     is at least once; consumers deduplicate on envelope identifier
package spool
