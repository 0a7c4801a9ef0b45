package queue

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type pending struct {
	msg         Message
	visibleAt   time.Time
}

// MemoryQueue is an in-memory Queue fake for tests and for the batch
// coordinator's default local wiring: a slice acting as a FIFO with a
// per-message visibility deadline, the same semantics SQS provides.
type MemoryQueue struct {
	mu      sync.Mutex
	items   []*pending
	receipt map[string]*pending
	seq     int
}

// NewMemoryQueue returns an empty in-memory queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{receipt: make(map[string]*pending)}
}

// Enqueue implements Queue.
func (q *MemoryQueue) Enqueue(ctx context.Context, msg Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, &pending{msg: msg})
	return nil
}

// Dequeue implements Queue: returns up to n messages whose visibility
// deadline has passed, marking them invisible until now+timeout.
func (q *MemoryQueue) Dequeue(ctx context.Context, n int, visibilityTimeout time.Duration) ([]Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	var out []Message
	for _, p := range q.items {
		if len(out) >= n {
			break
		}
		if now.Before(p.visibleAt) {
			continue
		}
		q.seq++
		receipt := fmt.Sprintf("rcpt-%d", q.seq)
		p.visibleAt = now.Add(visibilityTimeout)
		p.msg.receiptHandle = receipt
		q.receipt[receipt] = p
		out = append(out, p.msg)
	}
	return out, nil
}

// Delete implements Queue: removes the message permanently.
func (q *MemoryQueue) Delete(ctx context.Context, msg Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	p, ok := q.receipt[msg.receiptHandle]
	if !ok {
		return nil
	}
	delete(q.receipt, msg.receiptHandle)

	for i, it := range q.items {
		if it == p {
			q.items = append(q.items[:i], q.items[i+1:]...)
			break
		}
	}
	return nil
}

// ChangeVisibility implements Queue.
func (q *MemoryQueue) ChangeVisibility(ctx context.Context, msg Message, timeout time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	p, ok := q.receipt[msg.receiptHandle]
	if !ok {
		return nil
	}
	p.visibleAt = time.Now().Add(timeout)
	return nil
}

// Len reports the number of messages currently tracked (test helper).
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
