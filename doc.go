/*
Package squire coordinates rounds of independent analysis agents over a
topic-addressed pub/sub transport.

A round follows a fixed shape: a trigger envelope on the start topic fans
out to every producer agent; each producer publishes its outcome on its
own done topic; a barrier coordinator collects the outcomes and, once the
full set has reported, emits exactly one combined join envelope; a
manager consumes the join envelope, synthesizes the final report, stores
it, and announces it on the report topic.

The transport behind all of this is the broker package. With a broker URL
configured it speaks to a real backend; without one, or when the backend
is unreachable, it degrades to a shared file spool so multiple processes
on one host keep exchanging events with no broker at all. Both modes
deliver at least once, and every consumer in this module suppresses
duplicate envelopes by ID, so callers see each event take effect exactly
once per round.

# Single process

Workflow runs every role in one process, which is how serve mode and the
tests operate:

	cfg := squire.FromEnv()
	wf := squire.New(cfg)

	stop, err := wf.Start(ctx)
	if err != nil {
		// handle error
	}
	defer stop()

	if err := wf.StartRound(ctx, nil); err != nil {
		// handle error
	}

# One process per role

Every role also runs on its own: the agent, join, and manager
subcommands of cmd/squire each wire a single role onto the shared
transport, coordinating purely through topics. The topic set is derived
from a Namespace so separate deployments can share one broker.

Producer agents implement agent.Analyzer and register themselves by name;
the pr, meeting, and team packages under agent/ are the built-in set.
*/
package squire
