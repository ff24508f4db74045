package queue

import (
	"sync"

	"cache-warmer/pkg/models"

	"github.com/sirupsen/logrus"
)

// RefQueue is a deduplicating FIFO of pending sitemap document
// references. A URL is accepted at most once for the lifetime of the
// queue, so sitemap indexes that re-list each other cannot loop.
type RefQueue struct {
	mu     sync.Mutex
	items  []models.WorkItem
	seen   map[string]struct{}
	closed bool
	log    *logrus.Entry
}

// NewRefQueue creates an empty reference queue
func NewRefQueue(logger *logrus.Entry) *RefQueue {
	return &RefQueue{
		seen: make(map[string]struct{}),
		log:  logger,
	}
}

// Push appends a work item unless its URL was already accepted or the
// queue is closed. Returns true when the item was accepted.
func (q *RefQueue) Push(item models.WorkItem) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		q.log.Warnf("Attempted to add item to closed queue: %s", item.URL)
		return false
	}
	if _, dup := q.seen[item.URL]; dup {
		return false
	}

	q.seen[item.URL] = struct{}{}
	q.items = append(q.items, item)
	return true
}

// Pop removes and returns the oldest pending item.
// Returns false when the queue is empty.
func (q *RefQueue) Pop() (models.WorkItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return models.WorkItem{}, false
	}

	item := q.items[0]
	q.items[0] = models.WorkItem{} // avoid holding the popped URL
	q.items = q.items[1:]
	return item, true
}

// Seen reports whether the URL was ever accepted by this queue
func (q *RefQueue) Seen(url string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.seen[url]
	return ok
}

// Len returns the current number of pending items
func (q *RefQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close rejects all further pushes
func (q *RefQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}
