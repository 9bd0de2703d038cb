// Package progress tracks how far an estimate run has gone and forwards
// each step to a Sink for display.
package progress

import (
	"context"
	"sync"
	"time"
)

// StepWeight is the progress amount of one remote call.
const StepWeight = 25

// TotalSteps is the expected progress total for a run over sellerCount
// sellers: the product scrape, the seller-list step, and four calls per
// seller.
func TotalSteps(sellerCount int) int {
	return (2 + sellerCount*4) * StepWeight
}

// Kind tells init, advance and complete events apart.
type Kind string

const (
	KindInit     Kind = "init"
	KindAdvance  Kind = "advance"
	KindComplete Kind = "complete"
)

// Event is one progress update. GroupID opens a UI group for a seller,
// ParentGroupID appends to an existing one; neither means a top-level step.
type Event struct {
	Kind          Kind      `json:"kind"`
	CorrelationID string    `json:"correlation_id"`
	Position      int       `json:"position"`
	Max           int       `json:"max"`
	Amount        int       `json:"amount,omitempty"`
	Label         string    `json:"label,omitempty"`
	GroupID       *int      `json:"group_id,omitempty"`
	ParentGroupID *int      `json:"parent_group_id,omitempty"`
	Time          time.Time `json:"time"`
}

// Sink receives events in the order the tracker produced them. Emit must
// not block for long; delivery failures are the sink's concern.
type Sink interface {
	Emit(ctx context.Context, e Event)
}

// AdvanceOption scopes an advance to a seller group.
type AdvanceOption func(*Event)

// Group opens the UI group for the seller at position id.
func Group(id int) AdvanceOption {
	return func(e *Event) { e.GroupID = &id }
}

// Parent appends the step under the group opened for id.
func Parent(id int) AdvanceOption {
	return func(e *Event) { e.ParentGroupID = &id }
}

// Tracker is an additive progress counter. It is safe for concurrent use.
type Tracker struct {
	cid  string
	sink Sink
	now  func() time.Time

	mu       sync.Mutex
	position int
	max      int
}

// NewTracker creates a tracker for one run. A nil sink discards events.
func NewTracker(correlationID string, sink Sink) *Tracker {
	if sink == nil {
		sink = Discard
	}
	return &Tracker{cid: correlationID, sink: sink, now: time.Now}
}

// Init resets the counter and sets the expected total.
func (t *Tracker) Init(ctx context.Context, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.position = 0
	t.max = total
	t.emitLocked(ctx, Event{Kind: KindInit})
}

// Advance adds amount to the counter. amount may be 0 to only add a label.
func (t *Tracker) Advance(ctx context.Context, amount int, label string, opts ...AdvanceOption) {
	e := Event{Kind: KindAdvance, Amount: amount, Label: label}
	for _, opt := range opts {
		opt(&e)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.position += amount
	t.emitLocked(ctx, e)
}

// Complete moves the counter to the total.
func (t *Tracker) Complete(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.position < t.max {
		t.position = t.max
	}
	t.emitLocked(ctx, Event{Kind: KindComplete})
}

// Position returns the current counter value and total.
func (t *Tracker) Position() (position, max int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.position, t.max
}

// emitLocked stamps e and hands it to the sink while t.mu is held, which
// keeps sink order equal to counter order.
func (t *Tracker) emitLocked(ctx context.Context, e Event) {
	e.CorrelationID = t.cid
	e.Position = t.position
	e.Max = t.max
	e.Time = t.now().UTC()
	t.sink.Emit(ctx, e)
}
