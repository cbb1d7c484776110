package assistant

import "sync"

// Event names emitted around each reply.
const (
	EventRespondStart = "respond_start"
	EventRespondDone  = "respond_done"
	EventRespondError = "respond_error"
)

// Event is one lifecycle notification: name, generation id and model id plus
// optional fields.
type Event struct {
	Name    string
	ID      string
	ModelID string
	Fields  map[string]any
}

// EventPublisher receives events. Implementations should be lightweight and
// non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// MemoryPublisher stores events in memory.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryPublisher() *MemoryPublisher { return &MemoryPublisher{} }

func (p *MemoryPublisher) Publish(e Event) {
	p.mu.Lock()
	p.events = append(p.events, e)
	p.mu.Unlock()
}

// Events returns a copy of everything published so far.
func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}
