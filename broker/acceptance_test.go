package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/rayhaanfarooq/squire/events"
)

// brokerFactory creates a fresh broker instance for one test case.
type brokerFactory func(t *testing.T) Broker

// acceptanceTest is a single behavior every implementation must satisfy.
type acceptanceTest struct {
	name string
	test func(t *testing.T, createBroker brokerFactory)
}

// runAcceptanceTests runs the shared contract suite against one
// implementation. Delivery is at least once, so the assertions count
// distinct envelope identifiers rather than raw invocations.
func runAcceptanceTests(t *testing.T, name string, factory brokerFactory) {
	tests := []acceptanceTest{
		{"creates unique topics", testUniqueTopics},
		{"reuses existing topics", testReuseTopics},
		{"publishes envelopes to all subscribers", testPublishToAllSubscribers},
		{"delivers when subscribed before publish", testSubscribeBeforePublish},
		{"failing handler does not starve others", testFailingHandlerIsolation},
		{"handles subscription lifecycle", testSubscriptionLifecycle},
		{"handles context cancellation", testContextCancellation},
		{"handles concurrent operations", testConcurrentOperations},
		{"validates handler requirement", testHandlerValidation},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%s", name, tt.name), func(t *testing.T) {
			tt.test(t, factory)
		})
	}
}

func TestBrokerImplementations(t *testing.T) {
	t.Run("Local", func(t *testing.T) {
		runAcceptanceTests(t, "Local", func(t *testing.T) Broker {
			b := Local()
			t.Cleanup(func() { _ = b.Disconnect(context.Background()) })
			return b
		})
	})

	t.Run("Spooled", func(t *testing.T) {
		runAcceptanceTests(t, "Spooled", func(t *testing.T) Broker {
			b := Spooled(t.TempDir(), PollInterval(10*time.Millisecond))
			t.Cleanup(func() { _ = b.Disconnect(context.Background()) })
			return b
		})
	})

	t.Run("NATS", func(t *testing.T) {
		runAcceptanceTests(t, "NATS", func(t *testing.T) Broker {
			nc := setupNATS(t)
			b := NATS(nc)
			t.Cleanup(func() { _ = b.Disconnect(context.Background()) })
			return b
		})
	})
}

// recordingHandler collects every envelope it is handed.
type recordingHandler struct {
	mu        sync.Mutex
	envelopes []events.Envelope
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{}
}

func (r *recordingHandler) Handle(_ context.Context, env events.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envelopes = append(r.envelopes, env)
	return nil
}

// ids returns the distinct envelope identifiers seen so far.
func (r *recordingHandler) ids() map[string]bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]bool, len(r.envelopes))
	for _, env := range r.envelopes {
		seen[env.ID] = true
	}
	return seen
}

func (r *recordingHandler) sawAll(want ...string) func() bool {
	return func() bool {
		seen := r.ids()
		for _, id := range want {
			if !seen[id] {
				return false
			}
		}
		return true
	}
}

func testEnvelope(topic string, doc string) events.Envelope {
	return events.New(topic, gjson.Parse(doc))
}

func testUniqueTopics(t *testing.T, createBroker brokerFactory) {
	b := createBroker(t)
	topic1 := b.Topic(context.Background(), "test1")
	topic2 := b.Topic(context.Background(), "test2")
	assert.NotEqual(t, topic1, topic2)
}

func testReuseTopics(t *testing.T, createBroker brokerFactory) {
	b := createBroker(t)
	topic1 := b.Topic(context.Background(), "test")
	topic2 := b.Topic(context.Background(), "test")
	assert.Equal(t, topic1, topic2)
}

func testPublishToAllSubscribers(t *testing.T, createBroker brokerFactory) {
	b := createBroker(t)
	ctx := context.Background()
	topic := b.Topic(ctx, "squire/analysis/pr/done")

	recorder1 := newRecordingHandler()
	recorder2 := newRecordingHandler()

	sub1, err := topic.Subscribe(ctx, recorder1)
	require.NoError(t, err)
	sub2, err := topic.Subscribe(ctx, recorder2)
	require.NoError(t, err)
	defer sub1.Unsubscribe()
	defer sub2.Unsubscribe()

	env1 := testEnvelope("squire/analysis/pr/done", `{"status":"completed","count":1}`)
	env2 := testEnvelope("squire/analysis/pr/done", `{"status":"error","error":"fetch failed"}`)
	require.NoError(t, topic.Publish(ctx, env1))
	require.NoError(t, topic.Publish(ctx, env2))

	assert.Eventually(t, recorder1.sawAll(env1.ID, env2.ID), 2*time.Second, 10*time.Millisecond,
		"first subscriber should see both envelopes")
	assert.Eventually(t, recorder2.sawAll(env1.ID, env2.ID), 2*time.Second, 10*time.Millisecond,
		"second subscriber should see both envelopes")

	recorder1.mu.Lock()
	payload := recorder1.envelopes[0].Payload
	recorder1.mu.Unlock()
	assert.True(t, payload.Get("status").Exists(), "payload should survive transport intact")
}

func testSubscribeBeforePublish(t *testing.T, createBroker brokerFactory) {
	b := createBroker(t)
	ctx := context.Background()
	topic := b.Topic(ctx, "squire/analysis/start")

	recorder := newRecordingHandler()
	sub, err := topic.Subscribe(ctx, recorder)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	env := testEnvelope("squire/analysis/start", `{"event":"start"}`)
	require.NoError(t, topic.Publish(ctx, env))

	assert.Eventually(t, recorder.sawAll(env.ID), 2*time.Second, 10*time.Millisecond,
		"a handler registered before publish must be invoked at least once")

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	assert.Equal(t, "start", recorder.envelopes[0].Payload.Get("event").String(),
		"the delivered payload must equal the published payload")
}

func testFailingHandlerIsolation(t *testing.T, createBroker brokerFactory) {
	b := createBroker(t)
	ctx := context.Background()
	topic := b.Topic(ctx, "squire/analysis/meeting/done")

	failing := events.HandlerFunc(func(context.Context, events.Envelope) error {
		return errors.New("this handler always fails")
	})
	recorder := newRecordingHandler()

	subFail, err := topic.Subscribe(ctx, failing)
	require.NoError(t, err)
	defer subFail.Unsubscribe()
	subOK, err := topic.Subscribe(ctx, recorder)
	require.NoError(t, err)
	defer subOK.Unsubscribe()

	env1 := testEnvelope("squire/analysis/meeting/done", `{"documents_analyzed":1}`)
	env2 := testEnvelope("squire/analysis/meeting/done", `{"documents_analyzed":2}`)
	require.NoError(t, topic.Publish(ctx, env1))
	require.NoError(t, topic.Publish(ctx, env2))

	assert.Eventually(t, recorder.sawAll(env1.ID, env2.ID), 2*time.Second, 10*time.Millisecond,
		"a handler that always fails must never block an independent handler")
}

func testSubscriptionLifecycle(t *testing.T, createBroker brokerFactory) {
	b := createBroker(t)
	ctx := context.Background()
	topic := b.Topic(ctx, "test")

	recorder := newRecordingHandler()
	sub, err := topic.Subscribe(ctx, recorder)
	require.NoError(t, err)

	sub.Unsubscribe()
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, topic.Publish(ctx, testEnvelope("test", `{"n":1}`)))
	time.Sleep(100 * time.Millisecond)

	assert.Empty(t, recorder.ids(), "no delivery after unsubscribe")
}

func testContextCancellation(t *testing.T, createBroker brokerFactory) {
	b := createBroker(t)
	topic := b.Topic(context.Background(), "test")

	subCtx, cancel := context.WithCancel(context.Background())
	recorder := newRecordingHandler()
	sub, err := topic.Subscribe(subCtx, recorder)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	cancel()
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, topic.Publish(context.Background(), testEnvelope("test", `{"n":1}`)))
	time.Sleep(100 * time.Millisecond)

	assert.Empty(t, recorder.ids(), "no delivery after subscriber context cancellation")
}

func testConcurrentOperations(t *testing.T, createBroker brokerFactory) {
	b := createBroker(t)
	ctx := context.Background()
	topic := b.Topic(ctx, "test")

	const numSubscribers = 5
	const numEnvelopes = 50

	recorders := make([]*recordingHandler, numSubscribers)
	subs := make([]Subscription, numSubscribers)
	for i := range recorders {
		recorders[i] = newRecordingHandler()
		sub, err := topic.Subscribe(ctx, recorders[i])
		require.NoError(t, err)
		subs[i] = sub
	}
	defer func() {
		for _, sub := range subs {
			sub.Unsubscribe()
		}
	}()

	envelopes := make([]events.Envelope, numEnvelopes)
	for i := range envelopes {
		envelopes[i] = testEnvelope("test", fmt.Sprintf(`{"n":%d}`, i))
	}

	var publishWg sync.WaitGroup
	for _, env := range envelopes {
		publishWg.Add(1)
		go func(env events.Envelope) {
			defer publishWg.Done()
			assert.NoError(t, topic.Publish(ctx, env))
		}(env)
	}
	publishWg.Wait()

	wantIDs := make([]string, numEnvelopes)
	for i, env := range envelopes {
		wantIDs[i] = env.ID
	}
	for i, recorder := range recorders {
		assert.Eventually(t, recorder.sawAll(wantIDs...), 5*time.Second, 10*time.Millisecond,
			"subscriber %d should see every envelope at least once", i)
	}
}

func testHandlerValidation(t *testing.T, createBroker brokerFactory) {
	b := createBroker(t)
	topic := b.Topic(context.Background(), "test")

	_, err := topic.Subscribe(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "handler is required")
}
