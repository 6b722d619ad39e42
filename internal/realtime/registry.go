package realtime

import (
	"encoding/json"
	"hash/fnv"
	"log/slog"
	"sync"
)

const registryShards = 32

type registryShard struct {
	mu       sync.RWMutex
	channels map[Channel][]*Queue
}

// Registry is the concurrent map from channel to the outbound queues of its
// current subscribers. It is sharded by channel so traffic on one channel
// never serializes against traffic on an unrelated one.
type Registry struct {
	shards  [registryShards]*registryShard
	metrics *Metrics
}

func NewRegistry() *Registry {
	r := &Registry{metrics: &Metrics{}}
	for i := range r.shards {
		r.shards[i] = &registryShard{channels: make(map[Channel][]*Queue)}
	}
	return r
}

func (r *Registry) Metrics() *Metrics {
	return r.metrics
}

func (r *Registry) shard(ch Channel) *registryShard {
	h := fnv.New32a()
	h.Write([]byte(ch.Kind))
	h.Write(ch.ID[:])
	return r.shards[h.Sum32()%registryShards]
}

// Subscribe adds a queue to a channel's subscriber set and returns the
// resulting member count. Subscribing the same queue twice is a no-op; the
// existing entry is kept so later broadcasts are delivered exactly once.
func (r *Registry) Subscribe(ch Channel, q *Queue) int {
	s := r.shard(ch)
	s.mu.Lock()
	defer s.mu.Unlock()

	subs := s.channels[ch]
	for _, existing := range subs {
		if existing == q {
			return len(subs)
		}
	}
	s.channels[ch] = append(subs, q)
	return len(subs) + 1
}

// Unsubscribe removes a queue from a channel if present; calling it again for
// the same pair is a no-op. Closed queues encountered along the way are
// dropped too, and an emptied entry is deleted rather than left behind.
func (r *Registry) Unsubscribe(ch Channel, q *Queue) {
	s := r.shard(ch)
	s.mu.Lock()
	defer s.mu.Unlock()

	subs, ok := s.channels[ch]
	if !ok {
		return
	}
	kept := subs[:0]
	for _, existing := range subs {
		if existing != q && !existing.Closed() {
			kept = append(kept, existing)
		}
	}
	if len(kept) == 0 {
		delete(s.channels, ch)
	} else {
		s.channels[ch] = kept
	}
}

// Broadcast delivers a frame to every current subscriber of a channel and
// returns how many queues accepted it. Queues that refuse the frame (closed,
// or closed by overflowing) are pruned in the same pass, so broadcasting
// doubles as opportunistic garbage collection.
func (r *Registry) Broadcast(ch Channel, frame *ServerFrame) int {
	data := frame.Encode()
	if data == nil {
		return 0
	}

	s := r.shard(ch)
	s.mu.RLock()
	snapshot := append([]*Queue(nil), s.channels[ch]...)
	s.mu.RUnlock()

	if len(snapshot) == 0 {
		return 0
	}

	r.metrics.BroadcastsTotal.Add(1)

	delivered := 0
	stale := false
	for _, q := range snapshot {
		if q.TrySend(data) {
			delivered++
		} else {
			stale = true
		}
	}
	r.metrics.FramesDelivered.Add(int64(delivered))
	r.metrics.FramesDropped.Add(int64(len(snapshot) - delivered))

	if stale {
		r.pruneChannel(ch)
	}
	return delivered
}

// Notify pushes an externally-triggered event into a channel's subscribers.
// This is the single entry point the platform's CRUD layer uses after a
// mutation commits. Delivery is best effort; a channel with no subscribers,
// or an unknown channel string, is simply dropped.
func (r *Registry) Notify(channel, event string, payload json.RawMessage) {
	ch, err := ParseChannel(channel)
	if err != nil {
		slog.Debug("dropping notify for unknown channel", "channel", channel, "event", event)
		return
	}
	r.Broadcast(ch, NewEventFrame(channel, event, payload))
}

// PruneAll sweeps every entry, dropping closed queues and deleting entries
// that end up empty. Run periodically by the sweeper and as a safety net on
// session teardown.
func (r *Registry) PruneAll() {
	for _, s := range r.shards {
		s.mu.Lock()
		for ch, subs := range s.channels {
			kept := subs[:0]
			for _, q := range subs {
				if !q.Closed() {
					kept = append(kept, q)
				}
			}
			if len(kept) == 0 {
				delete(s.channels, ch)
			} else {
				s.channels[ch] = kept
			}
		}
		s.mu.Unlock()
	}
}

// MemberCount reports the current number of subscribed queues on a channel.
func (r *Registry) MemberCount(ch Channel) int {
	s := r.shard(ch)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.channels[ch])
}

func (r *Registry) pruneChannel(ch Channel) {
	s := r.shard(ch)
	s.mu.Lock()
	defer s.mu.Unlock()

	subs, ok := s.channels[ch]
	if !ok {
		return
	}
	kept := subs[:0]
	for _, q := range subs {
		if !q.Closed() {
			kept = append(kept, q)
		}
	}
	if len(kept) == 0 {
		delete(s.channels, ch)
	} else {
		s.channels[ch] = kept
	}
}

// hasEntry reports whether a channel key exists at all, empty or not.
// Exposed for tests verifying that emptied entries are removed eagerly.
func (r *Registry) hasEntry(ch Channel) bool {
	s := r.shard(ch)
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.channels[ch]
	return ok
}
