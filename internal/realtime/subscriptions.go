package realtime

// SubscriptionIndex maps topic -> subscriber session ids. It holds ids only,
// never sockets; the Registry owns the sessions. Like the Registry it is
// unsynchronized and guarded by the Hub's mutex.
type SubscriptionIndex struct {
	topics map[string]map[string]struct{}
}

func NewSubscriptionIndex() *SubscriptionIndex {
	return &SubscriptionIndex{topics: make(map[string]map[string]struct{})}
}

// Subscribe records interest in each topic. Re-subscribing is a no-op.
func (x *SubscriptionIndex) Subscribe(sessionID string, topics []string) {
	for _, topic := range topics {
		if topic == "" {
			continue
		}
		if x.topics[topic] == nil {
			x.topics[topic] = make(map[string]struct{})
		}
		x.topics[topic][sessionID] = struct{}{}
	}
}

// Unsubscribe removes interest; absent topics are a no-op. Topics with no
// remaining subscribers are dropped from the index.
func (x *SubscriptionIndex) Unsubscribe(sessionID string, topics []string) {
	for _, topic := range topics {
		if subs, ok := x.topics[topic]; ok {
			delete(subs, sessionID)
			if len(subs) == 0 {
				delete(x.topics, topic)
			}
		}
	}
}

// Purge removes the session from every topic. Called unconditionally at
// session destruction so no topic retains a dangling id.
func (x *SubscriptionIndex) Purge(sessionID string) {
	for topic, subs := range x.topics {
		delete(subs, sessionID)
		if len(subs) == 0 {
			delete(x.topics, topic)
		}
	}
}

// Subscribers returns a snapshot of the subscriber ids for a topic.
func (x *SubscriptionIndex) Subscribers(topic string) []string {
	subs := x.topics[topic]
	out := make([]string, 0, len(subs))
	for id := range subs {
		out = append(out, id)
	}
	return out
}

func (x *SubscriptionIndex) TopicCount() int {
	return len(x.topics)
}
