package events

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/jeevanpath/backend/internal/domain/entities"
)

// subscriberBuffer is the per-subscriber queue length. SSE writers drain it;
// a stalled client loses events rather than blocking delivery.
const subscriberBuffer = 64

var errBusClosed = errors.New("event bus is closed")

// fanout is the set of local subscribers per channel shared by both buses.
type fanout struct {
	mu     sync.RWMutex
	subs   map[string]map[chan *entities.AlertEvent]struct{}
	closed bool
}

func newFanout() *fanout {
	return &fanout{subs: make(map[string]map[chan *entities.AlertEvent]struct{})}
}

// add registers a subscriber. first is true when channel had none before.
func (f *fanout) add(channel string) (ch chan *entities.AlertEvent, first bool, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, false, errBusClosed
	}

	set, ok := f.subs[channel]
	if !ok {
		set = make(map[chan *entities.AlertEvent]struct{})
		f.subs[channel] = set
	}
	ch = make(chan *entities.AlertEvent, subscriberBuffer)
	set[ch] = struct{}{}
	return ch, !ok, nil
}

// remove closes one subscriber. last is true when channel has none left.
func (f *fanout) remove(channel string, ch chan *entities.AlertEvent) (last bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	set := f.subs[channel]
	if _, ok := set[ch]; !ok {
		return false
	}
	delete(set, ch)
	close(ch)
	if len(set) == 0 {
		delete(f.subs, channel)
		return true
	}
	return false
}

// deliver hands the event to every subscriber of channel without blocking and
// returns how many received it.
func (f *fanout) deliver(channel string, event *entities.AlertEvent) int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	delivered := 0
	for ch := range f.subs[channel] {
		select {
		case ch <- event:
			delivered++
		default:
			log.Warn().Str("channel", channel).Str("event_id", event.ID).Msg("subscriber buffer full, event skipped")
		}
	}
	return delivered
}

// drop closes every subscriber of channel
func (f *fanout) drop(channel string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs[channel] {
		close(ch)
	}
	delete(f.subs, channel)
}

// shutdown closes all subscribers; later adds fail with errBusClosed.
func (f *fanout) shutdown() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for channel, set := range f.subs {
		for ch := range set {
			close(ch)
		}
		delete(f.subs, channel)
	}
	f.closed = true
}

func (f *fanout) isClosed() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.closed
}

func (f *fanout) count(channel string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs[channel])
}
