package squire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/fogfish/opts"

	"github.com/rayhaanfarooq/squire/agent"
	"github.com/rayhaanfarooq/squire/barrier"
	"github.com/rayhaanfarooq/squire/broker"
	"github.com/rayhaanfarooq/squire/events"
	"github.com/rayhaanfarooq/squire/manager"
	"github.com/rayhaanfarooq/squire/pkg/slogx"
	"github.com/rayhaanfarooq/squire/store"
)

// Workflow wires every role of an analysis round into one process: the
// producer runners, the barrier, and the manager, all on one transport.
// The multi-process deployment composes the same pieces per binary
// instead. All methods are safe for concurrent use.
type Workflow interface {
	// Start builds the transport and store as configured, subscribes every
	// role, and returns a stop function that tears it all down. Start may
	// be called once.
	Start(ctx context.Context) (stop func(), err error)
	// StartRound publishes the trigger envelope that opens a round.
	// Overrides are merged into the {"event":"start"} payload, which is
	// how a caller hands per-round settings such as meeting_docs to the
	// producers.
	StartRound(ctx context.Context, overrides map[string]any) error
	// Outstanding reports which producers have not recorded a payload in
	// the current round. A round opens with its first report, so between
	// rounds every producer is listed.
	Outstanding() []string
	// Rounds reports how many rounds have completed since Start.
	Rounds() uint64
	// Transport exposes the broker the workflow runs on, nil before Start.
	Transport() broker.Broker
	// Store exposes the report archive, nil before Start.
	Store() *store.Store
}

type workflow struct {
	mu        sync.Mutex
	cfg       Config
	transport broker.Broker
	store     *store.Store
	coord     barrier.Coordinator
	started   bool
}

var (
	// Transport overrides the broker built from the configuration. The
	// caller keeps ownership and disconnects it.
	Transport = opts.ForName[workflow, broker.Broker]("transport")
	// Store overrides the report archive opened from the configuration.
	// The caller keeps ownership and closes it.
	Store = opts.ForName[workflow, *store.Store]("store")
)

// New assembles a Workflow from cfg. Zero-value settings fall back to
// the same defaults FromEnv applies, so a hand-built Config only needs
// the fields that differ.
func New(cfg Config, options ...opts.Option[workflow]) Workflow {
	if len(cfg.Agents) == 0 {
		cfg.Agents = slices.Clone(DefaultAgents)
	}
	if cfg.Namespace == "" {
		cfg.Namespace = DefaultNamespace
	}
	if cfg.SpoolDir == "" {
		cfg.SpoolDir = broker.DefaultSpoolDir
	}
	if cfg.DBPath == "" {
		cfg.DBPath = store.DefaultPath
	}

	w := &workflow{cfg: cfg}
	if err := opts.Apply(w, options); err != nil {
		panic(err)
	}
	return w
}

func (w *workflow) Start(ctx context.Context) (func(), error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return nil, errors.New("squire: workflow already started")
	}

	var teardown []func()
	undo := func() {
		for i := len(teardown) - 1; i >= 0; i-- {
			teardown[i]()
		}
	}

	if w.transport == nil {
		w.transport = broker.New(ctx,
			broker.URL(w.cfg.BrokerURL),
			broker.Credentials(w.cfg.BrokerUsername, w.cfg.BrokerPassword),
			broker.SpoolDir(w.cfg.SpoolDir),
		)
		transport := w.transport
		teardown = append(teardown, func() { _ = transport.Disconnect(context.Background()) })
	}

	if w.store == nil {
		st, err := store.Open(w.cfg.DBPath)
		if err != nil {
			undo()
			return nil, fmt.Errorf("open report store: %w", err)
		}
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			undo()
			return nil, fmt.Errorf("prepare report store: %w", err)
		}
		w.store = st
		teardown = append(teardown, func() { _ = st.Close() })
	}

	ns := w.cfg.Namespace
	for _, name := range w.cfg.Agents {
		analyzer, ok := agent.Build(name)
		if !ok {
			undo()
			return nil, fmt.Errorf("unknown agent %q, registered: %s", name, strings.Join(agent.Names(), ", "))
		}

		runner := agent.NewRunner(analyzer,
			agent.Transport(w.transport),
			agent.StartTopic(ns.Start().String()),
			agent.DoneTopic(ns.Done(name).String()),
		)
		stop, err := runner.Listen(ctx)
		if err != nil {
			undo()
			return nil, err
		}
		teardown = append(teardown, stop)
	}

	w.coord = barrier.New(
		barrier.Transport(w.transport),
		barrier.Expecting(w.cfg.Agents...),
		barrier.JoinTopic(ns.Join().String()),
	)
	detach, err := barrier.Attach(ctx, w.coord, w.transport, func(producer string) string {
		return ns.Done(producer).String()
	})
	if err != nil {
		undo()
		return nil, fmt.Errorf("attach barrier: %w", err)
	}
	teardown = append(teardown, detach)

	mgr := manager.New(
		manager.Transport(w.transport),
		manager.Store(w.store),
		manager.JoinTopic(ns.Join().String()),
		manager.ReportTopic(ns.Report().String()),
	)
	stopManager, err := mgr.Listen(ctx)
	if err != nil {
		undo()
		return nil, err
	}
	teardown = append(teardown, stopManager)

	w.started = true
	slog.InfoContext(ctx, "workflow started",
		slog.String("namespace", string(ns)),
		slog.String("agents", strings.Join(w.cfg.Agents, ",")),
	)

	var once sync.Once
	return func() { once.Do(undo) }, nil
}

func (w *workflow) StartRound(ctx context.Context, overrides map[string]any) error {
	w.mu.Lock()
	transport := w.transport
	w.mu.Unlock()
	if transport == nil {
		return errors.New("squire: workflow not started")
	}

	payload := map[string]any{"event": "start"}
	for k, v := range overrides {
		payload[k] = v
	}

	topic := w.cfg.Namespace.Start()
	env, err := events.NewValue(topic.String(), payload)
	if err != nil {
		return fmt.Errorf("encode start event: %w", err)
	}
	if err := transport.Topic(ctx, topic.String()).Publish(ctx, env); err != nil {
		return fmt.Errorf("publish start event: %w", err)
	}

	slog.InfoContext(ctx, "analysis round started",
		slogx.Stringer("topic", topic),
		slog.String("envelope_id", env.ID),
	)
	return nil
}

func (w *workflow) Outstanding() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.coord == nil {
		return nil
	}
	return w.coord.Outstanding()
}

func (w *workflow) Rounds() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.coord == nil {
		return 0
	}
	return w.coord.Rounds()
}

func (w *workflow) Transport() broker.Broker {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.transport
}

func (w *workflow) Store() *store.Store {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.store
}
