package domain

import (
	"time"

	"github.com/samber/lo"
)

// Queue is the ordered list of requests of one guild. Insertion order is play order
// and index 0 is the request in flight whenever the owning contract is active.
// Queue is not safe for concurrent use; its contract serializes access.
type Queue struct {
	requests []Request
}

// NewQueue creates an empty Queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Len returns the number of requests.
func (q *Queue) Len() int {
	return len(q.requests)
}

// IsEmpty returns true if the queue holds no requests.
func (q *Queue) IsEmpty() bool {
	return len(q.requests) == 0
}

// Head returns the request at index 0, or nil if the queue is empty.
func (q *Queue) Head() Request {
	if len(q.requests) == 0 {
		return nil
	}
	return q.requests[0]
}

// At returns the request at index.
func (q *Queue) At(index int) (Request, bool) {
	if index < 0 || index >= len(q.requests) {
		return nil, false
	}
	return q.requests[index], true
}

// List returns a copy of all requests.
func (q *Queue) List() []Request {
	result := make([]Request, len(q.requests))
	copy(result, q.requests)
	return result
}

// Insert places r at index, clamped into [0, Len()], and returns the index used.
func (q *Queue) Insert(index int, r Request) int {
	index = max(0, min(index, len(q.requests)))
	q.requests = append(q.requests, nil)
	copy(q.requests[index+1:], q.requests[index:])
	q.requests[index] = r
	return index
}

// Append adds r to the end of the queue and returns its index.
func (q *Queue) Append(r Request) int {
	q.requests = append(q.requests, r)
	return len(q.requests) - 1
}

// RemoveAt removes and returns the request at index.
func (q *Queue) RemoveAt(index int) (Request, bool) {
	if index < 0 || index >= len(q.requests) {
		return nil, false
	}
	removed := q.requests[index]
	q.requests = append(q.requests[:index], q.requests[index+1:]...)
	return removed, true
}

// Shift removes and returns the head, or nil if the queue is empty.
func (q *Queue) Shift() Request {
	r, _ := q.RemoveAt(0)
	return r
}

// Unshift puts r back at the front of the queue.
func (q *Queue) Unshift(r Request) {
	q.Insert(0, r)
}

// Clear removes all requests and returns them.
func (q *Queue) Clear() []Request {
	cleared := q.requests
	q.requests = nil
	return cleared
}

// Duration returns the summed length of all requests and whether any of them is live.
func (q *Queue) Duration() (time.Duration, bool) {
	total := lo.SumBy(q.requests, func(r Request) time.Duration {
		return r.Metadata().Length
	})
	live := lo.ContainsBy(q.requests, func(r Request) bool {
		return r.Metadata().Live
	})
	return total, live
}

// SkipTo discards requests until the queue reaches the next valid one and returns
// the discarded requests in order.
//
// When headInFlight is set the head is set aside first and counts toward
// minRequests; it is put back at the front afterwards, because removing it is the
// job of the caller's transition. Then up to minRequests further requests are
// dropped unconditionally, followed by every request valid rejects, stopping at the
// first accepted request or when the queue runs out. A non-positive minRequests
// leaves the queue untouched.
func (q *Queue) SkipTo(minRequests int, headInFlight bool, valid func(Request) bool) []Request {
	if minRequests <= 0 {
		return nil
	}

	var head Request
	if headInFlight && !q.IsEmpty() {
		head = q.Shift()
		minRequests--
	}

	var skipped []Request
	for ; minRequests > 0 && !q.IsEmpty(); minRequests-- {
		skipped = append(skipped, q.Shift())
	}
	for !q.IsEmpty() && !valid(q.Head()) {
		skipped = append(skipped, q.Shift())
	}

	if head != nil {
		q.Unshift(head)
	}

	return skipped
}
