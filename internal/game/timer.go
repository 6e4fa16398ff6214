package game

import (
	"context"
	"log"
	"time"
)

// phaseTimer is one outstanding scheduled transition for a room. There is
// at most one per room: arming a new timer always cancels the previous
// one, so a replaced phase can never fire its old deadline.
type phaseTimer struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// startTimer arms the room's phase timer. tick, if non-nil, runs once per
// second until expiry or cancellation; onExpire runs once on natural
// expiry and never on cancellation. Callbacks run outside any lock and are
// expected to revalidate session state themselves, because cancellation
// can race with firing.
func (e *Engine) startTimer(roomId string, d time.Duration, tick func(), onExpire func()) {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	t := &phaseTimer{ctx: ctx, cancel: cancel}

	e.mu.Lock()
	if prev := e.timers[roomId]; prev != nil {
		prev.cancel()
	}
	e.timers[roomId] = t
	e.mu.Unlock()

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if tick != nil {
					tick()
				}
			case <-ctx.Done():
				e.mu.Lock()
				if e.timers[roomId] == t {
					delete(e.timers, roomId)
				}
				e.mu.Unlock()

				if ctx.Err() == context.DeadlineExceeded {
					go onExpire()
				} else {
					log.Printf("[phaseTimer] room=%s: cancelled before expiry", roomId)
				}
				return
			}
		}
	}()
}

// cancelTimer stops the room's outstanding phase timer, if any.
func (e *Engine) cancelTimer(roomId string) {
	e.mu.Lock()
	t := e.timers[roomId]
	delete(e.timers, roomId)
	e.mu.Unlock()
	if t != nil {
		t.cancel()
	}
}
