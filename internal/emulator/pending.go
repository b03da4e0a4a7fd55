package emulator

import (
	"net/http"
	"sync"
	"time"

	"github.com/lambtest/lambda-test-server/internal/syncx"
)

// pendingInvocation is one logical invocation awaiting completion. The
// next-invocation response is precomputed at enqueue time so the processing
// loop only has to hand it out.
type pendingInvocation struct {
	id       string
	header   http.Header
	payload  []byte
	deadline time.Time
	done     *syncx.Completion[invocationCompletion]
}

func newInvocationCompletion() *syncx.Completion[invocationCompletion] {
	return syncx.NewCompletion[invocationCompletion]()
}

// idQueue is the FIFO of request IDs waiting to be served. Enqueue is safe
// for many concurrent producers; dequeue is only ever called by the
// processing loop.
type idQueue struct {
	mu     sync.Mutex
	ids    []string
	signal chan struct{}
}

func newIDQueue() *idQueue {
	return &idQueue{signal: make(chan struct{}, 1)}
}

func (q *idQueue) enqueue(id string) {
	q.mu.Lock()
	q.ids = append(q.ids, id)
	q.mu.Unlock()
	q.notify()
}

// requeueFront puts an already-dequeued id back at the head of the queue,
// preserving delivery order when a poll was abandoned mid-handoff.
func (q *idQueue) requeueFront(id string) {
	q.mu.Lock()
	q.ids = append([]string{id}, q.ids...)
	q.mu.Unlock()
	q.notify()
}

func (q *idQueue) notify() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// dequeue blocks until an id is available or either stop channel fires.
func (q *idQueue) dequeue(stop1, stop2 <-chan struct{}) (string, bool) {
	for {
		q.mu.Lock()
		if len(q.ids) > 0 {
			id := q.ids[0]
			q.ids = q.ids[1:]
			q.mu.Unlock()
			return id, true
		}
		q.mu.Unlock()

		select {
		case <-q.signal:
		case <-stop1:
			return "", false
		case <-stop2:
			return "", false
		}
	}
}
