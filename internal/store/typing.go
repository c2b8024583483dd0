package store

import (
	"strings"
	"sync"
	"time"
)

// TypingNotifier gates the typing events a composer sends out so the
// transport sees one typing:start per burst and one typing:stop after the
// trailing debounce, not an event per keystroke. One notifier belongs to
// one thread; switching the active thread means making a new notifier, so
// a debounce timer can never fire with a stale thread id.
type TypingNotifier struct {
	threadID string
	start    func(threadID string)
	stop     func(threadID string)
	delay    time.Duration

	mu     sync.Mutex
	timer  *time.Timer
	typing bool
}

func NewTypingNotifier(threadID string, delay time.Duration, start, stop func(threadID string)) *TypingNotifier {
	return &TypingNotifier{
		threadID: threadID,
		start:    start,
		stop:     stop,
		delay:    delay,
	}
}

// Input reflects the composer's current text. The first non-empty input of
// a burst sends typing:start; every non-empty input re-arms the trailing
// stop timer; emptying the input stops immediately.
func (n *TypingNotifier) Input(text string) {
	if strings.TrimSpace(text) == "" {
		n.Flush()
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.typing {
		n.typing = true
		n.start(n.threadID)
	}
	if n.timer != nil {
		n.timer.Stop()
	}
	n.timer = time.AfterFunc(n.delay, n.expire)
}

func (n *TypingNotifier) expire() {
	n.mu.Lock()
	wasTyping := n.typing
	n.typing = false
	n.timer = nil
	n.mu.Unlock()
	if wasTyping {
		n.stop(n.threadID)
	}
}

// Flush sends typing:stop immediately if a burst is open: message sent,
// input cleared, or composer closed.
func (n *TypingNotifier) Flush() {
	n.mu.Lock()
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	wasTyping := n.typing
	n.typing = false
	n.mu.Unlock()
	if wasTyping {
		n.stop(n.threadID)
	}
}
