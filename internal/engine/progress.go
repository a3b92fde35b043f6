package engine

import (
	"log/slog"
	"sync"
)

// Progress steps emitted by the analysis pipeline.
const (
	StepKeywordResearch = "keyword_research"
	StepSearching       = "searching"
	StepSearchComplete  = "search_complete"
	StepFilterComplete  = "filter_complete"
	StepAnalyzing       = "analyzing"
)

// ProgressEvent is one live status update.
type ProgressEvent struct {
	RunID        string   `json:"runId"`
	Step         string   `json:"step"`
	Message      string   `json:"message"`
	Progress     int      `json:"progress"`
	TotalVideos  int      `json:"totalVideos,omitempty"`
	Current      int      `json:"current,omitempty"`
	Total        int      `json:"total,omitempty"`
	CurrentVideo string   `json:"currentVideo,omitempty"`
	Keywords     []string `json:"keywords,omitempty"`
}

// Publisher is the only capability the pipeline needs from the progress channel.
type Publisher interface {
	Publish(ProgressEvent)
}

// Broadcaster fans progress events out to a dynamic set of subscribers.
// Publish never blocks: a subscriber whose buffer is full misses the event.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[uint64]chan ProgressEvent
	nextID uint64
	buffer int
}

// NewBroadcaster returns a broadcaster whose subscribers buffer up to buffer events.
func NewBroadcaster(buffer int) *Broadcaster {
	if buffer <= 0 {
		buffer = 64
	}
	return &Broadcaster{subs: make(map[uint64]chan ProgressEvent), buffer: buffer}
}

// Subscribe registers a listener. The returned cancel func removes it and closes the channel;
// it is safe to call more than once.
func (b *Broadcaster) Subscribe() (<-chan ProgressEvent, func()) {
	ch := make(chan ProgressEvent, b.buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers ev to every current subscriber.
func (b *Broadcaster) Publish(ev ProgressEvent) {
	metrics.ProgressEvents.Add(1)
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			metrics.ProgressDrops.Add(1)
			slog.Debug("progress: subscriber buffer full, dropping event", slog.Uint64("sub", id), slog.String("step", ev.Step))
		}
	}
}

// Subscribers returns the number of live subscribers.
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// discardPublisher is used when no progress channel is configured.
type discardPublisher struct{}

func (discardPublisher) Publish(ProgressEvent) {}
