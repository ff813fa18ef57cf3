package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fogfish/opts"

	"github.com/rayhaanfarooq/squire/broker"
	"github.com/rayhaanfarooq/squire/events"
	"github.com/rayhaanfarooq/squire/pkg/dedupe"
	"github.com/rayhaanfarooq/squire/pkg/slogx"
)

// Runner turns an Analyzer into a workflow producer. All methods are safe
// for concurrent use.
type Runner interface {
	// Listen subscribes the analyzer to the start topic so every round
	// trigger runs one analysis. The returned stop function removes the
	// subscription.
	Listen(ctx context.Context) (stop func(), err error)
	// RunOnce performs one analysis for trigger and publishes the outcome
	// on the done topic. Analysis failures are published as error payloads
	// and not returned; the error return covers encoding and transport.
	RunOnce(ctx context.Context, trigger events.Envelope) error
}

type runner struct {
	analyzer  Analyzer
	transport broker.Broker
	start     string
	done      string
}

var (
	// StartTopic is the topic whose envelopes trigger analysis runs.
	StartTopic = opts.ForName[runner, string]("start")
	// DoneTopic is the topic analysis outcomes are published on.
	DoneTopic = opts.ForName[runner, string]("done")
	// Transport sets the broker the runner subscribes and publishes through.
	Transport = opts.ForName[runner, broker.Broker]("transport")
)

// NewRunner wires an analyzer to its topics. It panics when the analyzer,
// transport, or either topic is missing.
func NewRunner(analyzer Analyzer, options ...opts.Option[runner]) Runner {
	r := &runner{analyzer: analyzer}
	if err := opts.Apply(r, options); err != nil {
		panic(err)
	}
	if r.analyzer == nil {
		panic("agent: an analyzer is required")
	}
	if r.transport == nil {
		panic("agent: a transport is required")
	}
	if r.start == "" || r.done == "" {
		panic("agent: start and done topics are required")
	}
	return r
}

func (r *runner) Listen(ctx context.Context) (func(), error) {
	handler := events.Deduped(dedupe.New(0), events.HandlerFunc(r.RunOnce))
	sub, err := r.transport.Topic(ctx, r.start).Subscribe(ctx, handler)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s to %s: %w", r.analyzer.Name(), r.start, err)
	}

	slog.InfoContext(ctx, "producer listening",
		slog.String("producer", r.analyzer.Name()),
		slog.String("topic", r.start),
	)
	return sub.Unsubscribe, nil
}

func (r *runner) RunOnce(ctx context.Context, trigger events.Envelope) error {
	name := r.analyzer.Name()
	slog.InfoContext(ctx, "analysis started",
		slog.String("producer", name),
		slog.String("trigger_id", trigger.ID),
	)

	result, err := r.analyzer.Analyze(ctx, trigger)
	if err != nil {
		slog.ErrorContext(ctx, "analysis failed",
			slog.String("producer", name),
			slogx.Error(err),
		)
		result = ErrorResult{Agent: name, Status: StatusError, Error: err.Error()}
	}

	env, encErr := events.NewValue(r.done, result)
	if encErr != nil {
		slog.ErrorContext(ctx, "failed to encode analysis result",
			slog.String("producer", name),
			slogx.Error(encErr),
		)
		fallback := ErrorResult{Agent: name, Status: StatusError, Error: "encode analysis result: " + encErr.Error()}
		if env, encErr = events.NewValue(r.done, fallback); encErr != nil {
			return fmt.Errorf("encode error payload for %s: %w", name, encErr)
		}
	}

	if err := r.transport.Topic(ctx, r.done).Publish(ctx, env); err != nil {
		return fmt.Errorf("publish done payload for %s: %w", name, err)
	}

	slog.InfoContext(ctx, "analysis result published",
		slog.String("producer", name),
		slog.String("topic", r.done),
		slog.String("envelope_id", env.ID),
	)
	return nil
}
