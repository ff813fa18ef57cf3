package squire

// Topic names a pub/sub channel. Topics are slash-hierarchical strings
// matched exactly; there is no wildcard subscription.
type Topic string

func (t Topic) String() string { return string(t) }

// DefaultNamespace is the topic root every process uses unless configured
// otherwise. Processes only see each other's events when they agree on it.
const DefaultNamespace Namespace = "squire"

// Namespace derives the workflow's fixed topic set from a common root, so
// several deployments can share one broker without crosstalk.
type Namespace string

// Start is the round trigger topic every producer subscribes to.
func (n Namespace) Start() Topic {
	return Topic(string(n) + "/analysis/start")
}

// Done is the topic a named producer publishes its analysis outcome on.
func (n Namespace) Done(producer string) Topic {
	return Topic(string(n) + "/analysis/" + producer + "/done")
}

// Join is the topic the barrier emits the combined payload on, exactly
// once per completed round.
func (n Namespace) Join() Topic {
	return Topic(string(n) + "/analysis/join")
}

// Report is the topic the manager announces a synthesized report on.
func (n Namespace) Report() Topic {
	return Topic(string(n) + "/manager/report")
}
