package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	applog "auctionhouse/internal/log"
)

const (
	BidPlaced       = "bid.placed"
	ItemPublished   = "item.published"
	ItemUnpublished = "item.unpublished"
	ItemArchived    = "item.archived"
	ItemCompleted   = "item.completed"
	ItemFailed      = "item.failed"
	ItemFulfilled   = "item.fulfilled"
	ItemFrozen      = "item.frozen"
	ItemUnfrozen    = "item.unfrozen"
)

// Event is a committed change to an item, emitted after the store write succeeded.
type Event struct {
	ID        string    `json:"id" bson:"event_id"`
	Type      string    `json:"type" bson:"type"`
	ItemID    string    `json:"itemId" bson:"item_id"`
	ActorID   string    `json:"actorId,omitempty" bson:"actor_id,omitempty"`
	BidID     string    `json:"bidId,omitempty" bson:"bid_id,omitempty"`
	Amount    int64     `json:"amount,omitempty" bson:"amount,omitempty"`
	OldState  string    `json:"oldState,omitempty" bson:"old_state,omitempty"`
	NewState  string    `json:"newState,omitempty" bson:"new_state,omitempty"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

func New(typ, itemID, actorID string) Event {
	return Event{ID: uuid.NewString(), Type: typ, ItemID: itemID, ActorID: actorID, Timestamp: time.Now().UTC()}
}

// Transition builds a state-change event.
func Transition(typ, itemID, actorID, from, to string) Event {
	e := New(typ, itemID, actorID)
	e.OldState, e.NewState = from, to
	return e
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Fanout delivers to every publisher and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Async delivers events off the request path through one ordered queue per
// sink, so a slow sink never blocks a request or reorders another sink's
// stream. A full queue drops the event. Failures are logged, never returned.
type Async struct {
	Timeout time.Duration

	mu     sync.RWMutex
	closed bool
	queues []*sinkQueue
	wg     sync.WaitGroup
}

type sinkQueue struct {
	next Publisher
	ch   chan Event
}

// AsyncQueueSize bounds each sink's backlog.
const AsyncQueueSize = 1024

// NewAsync starts a worker per element when next is a Fanout, otherwise one worker.
func NewAsync(next Publisher, timeout time.Duration) *Async {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	sinks := []Publisher{next}
	if f, ok := next.(Fanout); ok {
		sinks = f
	}
	a := &Async{Timeout: timeout}
	for _, p := range sinks {
		q := &sinkQueue{next: p, ch: make(chan Event, AsyncQueueSize)}
		a.queues = append(a.queues, q)
		a.wg.Add(1)
		go a.drain(q)
	}
	return a
}

func (a *Async) drain(q *sinkQueue) {
	defer a.wg.Done()
	for e := range q.ch {
		// request context is gone by now
		ctx, cancel := context.WithTimeout(context.Background(), a.Timeout)
		if err := q.next.Publish(ctx, e); err != nil {
			applog.Error(nil, "events.publish", err, map[string]any{"type": e.Type, "item_id": e.ItemID})
		}
		cancel()
	}
}

func (a *Async) Publish(_ context.Context, e Event) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return nil
	}
	for _, q := range a.queues {
		select {
		case q.ch <- e:
		default:
			applog.Error(nil, "events.dropped", errors.New("sink queue full"), map[string]any{"type": e.Type, "item_id": e.ItemID})
		}
	}
	return nil
}

// Close stops accepting events and blocks until every queued one is delivered.
func (a *Async) Close() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		for _, q := range a.queues {
			close(q.ch)
		}
	}
	a.mu.Unlock()
	a.wg.Wait()
}
