package realtime

import "sync"

const defaultQueueSize = 256

// Queue is the bounded outbound buffer owned by one session. Broadcasters
// push with TrySend and never block; the session's write loop drains C() in
// order. A queue that overflows is closed, which the owning session observes
// as a disconnect and broadcasters observe as a stale handle to prune.
type Queue struct {
	mu     sync.Mutex
	ch     chan []byte
	closed bool
}

func NewQueue(size int) *Queue {
	if size <= 0 {
		size = defaultQueueSize
	}
	return &Queue{ch: make(chan []byte, size)}
}

// TrySend enqueues a frame without blocking. It returns false when the queue
// is closed or full; a full queue is closed on the spot so a stalled client
// cannot accumulate unbounded frames.
func (q *Queue) TrySend(frame []byte) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	select {
	case q.ch <- frame:
		return true
	default:
		q.closed = true
		close(q.ch)
		return false
	}
}

// Close stops the queue. Frames already enqueued remain readable from C()
// until drained. Safe to call more than once.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}

func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// C is the drain side consumed by the session's write loop.
func (q *Queue) C() <-chan []byte {
	return q.ch
}
