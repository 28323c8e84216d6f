package services

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/buildboard/internal/core/domain"
	"github.com/custodia-labs/buildboard/internal/core/ports/driving"
)

// Ensure MessageFeed implements the interface.
var _ driving.MessageFeed = (*MessageFeed)(nil)

// DefaultMessageCapacity is the number of messages retained by default.
const DefaultMessageCapacity = 100

// MessageFeed is a bounded ring of operator notifications.
// A single goroutine owns the ring; producers hand messages over a
// buffered channel and readers see an immutable snapshot.
type MessageFeed struct {
	capacity int
	in       chan domain.Message
	snapshot atomic.Pointer[[]domain.Message]
	dropped  atomic.Int64

	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// NewMessageFeed creates and starts a feed retaining capacity messages.
// A non-positive capacity selects DefaultMessageCapacity.
func NewMessageFeed(capacity int) *MessageFeed {
	if capacity <= 0 {
		capacity = DefaultMessageCapacity
	}
	f := &MessageFeed{
		capacity: capacity,
		in:       make(chan domain.Message, capacity),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	empty := []domain.Message{}
	f.snapshot.Store(&empty)
	go f.run()
	return f
}

// Post queues a message. It never blocks: when the queue is full the
// message is dropped and counted.
func (f *MessageFeed) Post(level domain.MessageLevel, text string) {
	msg := domain.Message{
		ID:    uuid.NewString(),
		At:    time.Now().UTC(),
		Level: level,
		Text:  text,
	}
	select {
	case f.in <- msg:
	default:
		f.dropped.Add(1)
	}
}

// Messages returns the retained messages, oldest first.
func (f *MessageFeed) Messages() []domain.Message {
	cur := *f.snapshot.Load()
	out := make([]domain.Message, len(cur))
	copy(out, cur)
	return out
}

// Dropped returns the number of messages lost to overload.
func (f *MessageFeed) Dropped() int64 {
	return f.dropped.Load()
}

// Close stops the owning goroutine. Later posts are queued until the
// buffer fills, then dropped.
func (f *MessageFeed) Close() error {
	f.closeOnce.Do(func() { close(f.done) })
	<-f.stopped
	return nil
}

func (f *MessageFeed) run() {
	defer close(f.stopped)

	ring := make([]domain.Message, 0, f.capacity)
	for {
		select {
		case <-f.done:
			return
		case msg := <-f.in:
			if len(ring) == f.capacity {
				copy(ring, ring[1:])
				ring = ring[:len(ring)-1]
			}
			ring = append(ring, msg)

			published := make([]domain.Message, len(ring))
			copy(published, ring)
			f.snapshot.Store(&published)
		}
	}
}
