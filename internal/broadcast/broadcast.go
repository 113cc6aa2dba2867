// Package broadcast fans room events out to subscribed connections.
package broadcast

import (
	"sync"

	"github.com/Fizzyy89/nerdquiz-next-sub001/internal/quiz"
)

const subscriberBuffer = 32

type Subscriber struct {
	PlayerId string
	C        chan quiz.Event
}

type Broadcaster struct {
	Mu   sync.Mutex
	Subs map[*Subscriber]bool
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{Subs: make(map[*Subscriber]bool)}
}

func (b *Broadcaster) Subscribe(playerID string) *Subscriber {
	s := &Subscriber{
		PlayerId: playerID,
		C:        make(chan quiz.Event, subscriberBuffer),
	}
	b.Mu.Lock()
	b.Subs[s] = true
	b.Mu.Unlock()
	return s
}

func (b *Broadcaster) Unsubscribe(s *Subscriber) {
	b.Mu.Lock()
	if !b.Subs[s] {
		b.Mu.Unlock()
		return
	}
	delete(b.Subs, s)
	b.Mu.Unlock()
	close(s.C)
}

// Publish delivers ev to every subscriber. Slow consumers with a full
// buffer are skipped rather than blocking the room.
func (b *Broadcaster) Publish(ev quiz.Event) {
	b.Mu.Lock()
	defer b.Mu.Unlock()
	for s := range b.Subs {
		select {
		case s.C <- ev:
		default:
			// skip subscribers with full buffers
		}
	}
}

// PublishTo delivers ev only to subscriptions of the given player.
func (b *Broadcaster) PublishTo(playerID string, ev quiz.Event) {
	b.Mu.Lock()
	defer b.Mu.Unlock()
	for s := range b.Subs {
		if s.PlayerId != playerID {
			continue
		}
		select {
		case s.C <- ev:
		default:
		}
	}
}

func (b *Broadcaster) Len() int {
	b.Mu.Lock()
	defer b.Mu.Unlock()
	return len(b.Subs)
}

// CloseAll unsubscribes every subscriber and closes their channels.
// Events published before the call are still delivered; receivers see
// the close after draining them.
func (b *Broadcaster) CloseAll() {
	b.Mu.Lock()
	subs := make([]*Subscriber, 0, len(b.Subs))
	for s := range b.Subs {
		subs = append(subs, s)
	}
	b.Subs = make(map[*Subscriber]bool)
	b.Mu.Unlock()
	for _, s := range subs {
		close(s.C)
	}
}
