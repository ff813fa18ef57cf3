package barrier

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/fogfish/opts"
	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/rayhaanfarooq/squire/broker"
	"github.com/rayhaanfarooq/squire/events"
	"github.com/rayhaanfarooq/squire/pkg/slogx"
)

// DefaultStatusMarker is the status value stamped on every combined join
// payload unless overridden with StatusMarker.
const DefaultStatusMarker = "ready_for_manager"

// joinEvent marks the combined payload as a join emission.
const joinEvent = "join"

// Coordinator is the handle for one barrier instance. All methods are safe
// for concurrent use.
type Coordinator interface {
	// Report records payload under producer for the current round,
	// overwriting any earlier report from the same producer, then completes
	// the round if every expected producer has now reported. Reports from
	// unknown producers are logged and dropped.
	Report(ctx context.Context, producer string, payload gjson.Result) error
	// Reset clears the round state so the next report starts a fresh round.
	Reset()
	// Expected returns the producer names this barrier waits on, in
	// declaration order.
	Expected() []string
	// Outstanding returns the expected producers that have not reported in
	// the current round, in declaration order.
	Outstanding() []string
	// Rounds returns how many rounds have completed since construction.
	Rounds() uint64
}

type coordinator struct {
	mu        sync.Mutex
	pending   map[string]gjson.Result
	expected  []string
	transport broker.Broker
	topic     string
	status    string
	rounds    uint64
}

var (
	// JoinTopic names the topic the combined payload is published on.
	JoinTopic = opts.ForName[coordinator, string]("topic")
	// StatusMarker overrides DefaultStatusMarker in the combined payload.
	StatusMarker = opts.ForName[coordinator, string]("status")
	// Transport sets the broker the join envelope is published through.
	Transport = opts.ForName[coordinator, broker.Broker]("transport")
)

// Expecting declares producer names the barrier waits on. Blank and
// repeated names are ignored so a sloppy configuration value cannot
// produce a round that can never complete.
func Expecting(producers ...string) opts.Option[coordinator] {
	return opts.Type[coordinator](func(c *coordinator) error {
		for _, producer := range producers {
			if producer == "" || slices.Contains(c.expected, producer) {
				continue
			}
			c.expected = append(c.expected, producer)
		}
		return nil
	})
}

// New constructs a Coordinator. It panics when the transport, join topic,
// or expected producer set is missing, since a barrier without any of them
// can never do useful work.
func New(options ...opts.Option[coordinator]) Coordinator {
	c := &coordinator{
		pending: make(map[string]gjson.Result),
		status:  DefaultStatusMarker,
	}
	if err := opts.Apply(c, options); err != nil {
		panic(err)
	}
	if c.transport == nil {
		panic("barrier: a transport is required")
	}
	if c.topic == "" {
		panic("barrier: a join topic is required")
	}
	if len(c.expected) == 0 {
		panic("barrier: at least one expected producer is required")
	}
	return c
}

func (c *coordinator) Report(ctx context.Context, producer string, payload gjson.Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !slices.Contains(c.expected, producer) {
		slog.WarnContext(ctx, "ignoring report from unexpected producer",
			slog.String("producer", producer),
			slog.String("join_topic", c.topic),
		)
		return nil
	}
	if payload.Raw == "" {
		payload = gjson.Parse("null")
	}
	c.pending[producer] = payload

	return c.completeLocked(ctx)
}

// completeLocked evaluates completion with c.mu held. Publishing and the
// subsequent reset both happen before the lock is released, so a report
// racing the final report of a round can only ever land in the next round.
func (c *coordinator) completeLocked(ctx context.Context) error {
	if len(c.pending) != len(c.expected) {
		return nil
	}

	combined, err := c.combinedLocked()
	if err != nil {
		c.resetLocked()
		slog.ErrorContext(ctx, "failed to build combined payload, round state reset",
			slog.String("join_topic", c.topic),
			slogx.Error(err),
		)
		return fmt.Errorf("build combined payload: %w", err)
	}

	env := events.New(c.topic, gjson.ParseBytes(combined))
	perr := c.transport.Topic(ctx, c.topic).Publish(ctx, env)
	c.rounds++
	c.resetLocked()

	if perr != nil {
		slog.ErrorContext(ctx, "join publish failed, round state reset anyway",
			slog.String("join_topic", c.topic),
			slog.Uint64("round", c.rounds),
			slogx.Error(perr),
		)
		return fmt.Errorf("publish join envelope: %w", perr)
	}

	slog.InfoContext(ctx, "round complete, join published",
		slog.String("join_topic", c.topic),
		slog.Uint64("round", c.rounds),
		slog.String("envelope_id", env.ID),
	)
	return nil
}

// combinedLocked builds the join payload with c.mu held. Field order is
// part of the contract: the event marker, one entry per producer in
// declaration order, the status marker.
func (c *coordinator) combinedLocked() ([]byte, error) {
	om := orderedmap.New[string, json.RawMessage]()
	om.Set("event", json.RawMessage(`"`+joinEvent+`"`))
	for _, producer := range c.expected {
		om.Set(producer+"_analysis", json.RawMessage(c.pending[producer].Raw))
	}
	status, err := json.Marshal(c.status)
	if err != nil {
		return nil, fmt.Errorf("encode status marker: %w", err)
	}
	om.Set("status", json.RawMessage(status))

	return json.Marshal(om)
}

func (c *coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

func (c *coordinator) resetLocked() {
	clear(c.pending)
}

func (c *coordinator) Expected() []string {
	return slices.Clone(c.expected)
}

func (c *coordinator) Outstanding() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var missing []string
	for _, producer := range c.expected {
		if _, ok := c.pending[producer]; !ok {
			missing = append(missing, producer)
		}
	}
	return missing
}

func (c *coordinator) Rounds() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rounds
}
