package channel

import "sync"

// outboundQueue is a bounded FIFO buffer of messages awaiting transmission.
// When full, the oldest message is dropped; by the time the link returns, the
// oldest entries are the most likely to be stale.
type outboundQueue struct {
	mu      sync.Mutex
	items   []Message
	limit   int
	dropped int64
}

func newOutboundQueue(limit int) *outboundQueue {
	if limit < 1 {
		limit = 1
	}
	return &outboundQueue{limit: limit}
}

// push appends a message, dropping the oldest entry if the queue is full.
// Returns true if an entry was dropped.
func (q *outboundQueue) push(m Message) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	var dropped bool
	if len(q.items) >= q.limit {
		q.items = q.items[1:]
		q.dropped++
		dropped = true
	}
	q.items = append(q.items, m)
	return dropped
}

// pop removes and returns the oldest message.
func (q *outboundQueue) pop() (Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Message{}, false
	}
	m := q.items[0]
	q.items = q.items[1:]
	return m, true
}

// pushFront returns a message to the head of the queue after a failed send,
// preserving flush order.
func (q *outboundQueue) pushFront(m Message) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append([]Message{m}, q.items...)
}

func (q *outboundQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *outboundQueue) droppedCount() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
