// Package track accumulates per-region visibility time.
//
// A region becomes visible, a timer opens; it hides, the elapsed whole
// seconds are added to the matching session accumulator. One timer per
// region, keyed by kind and region key.
package track

import (
	"sync"
	"time"

	"github.com/pathwaylabs/engage/internal/logging"
)

// Kind names the accumulator a region feeds.
type Kind string

const (
	KindCaseStudy      Kind = "case-study"
	KindProcessSection Kind = "process-section"
	KindVapiCall       Kind = "vapi-call"
)

// Sink receives accumulated seconds. *session.Store satisfies it.
type Sink interface {
	AddCaseStudyTime(id string, seconds int)
	AddProcessSectionTime(id string, seconds int)
	AddVapiTime(seconds int)
}

// Tracker turns visible/hidden region transitions into accumulator adds.
// Safe for concurrent use.
type Tracker struct {
	sink Sink
	log  *logging.Logger
	now  func() time.Time

	mu   sync.Mutex
	open map[string]time.Time
}

func NewTracker(sink Sink, log *logging.Logger) *Tracker {
	return &Tracker{
		sink: sink,
		log:  log.Sub("track"),
		now:  time.Now,
		open: make(map[string]time.Time),
	}
}

func timerKey(kind Kind, key string) string {
	return string(kind) + ":" + key
}

// OnVisible opens the timer for a region. A repeat visible for a region
// whose timer is already running keeps the original start.
func (t *Tracker) OnVisible(kind Kind, key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := timerKey(kind, key)
	if _, running := t.open[k]; running {
		return
	}
	t.open[k] = t.now()
}

// OnHidden closes the timer for a region and credits the elapsed whole
// seconds. Hidden without a matching visible is a no-op.
func (t *Tracker) OnHidden(kind Kind, key string) {
	t.mu.Lock()
	k := timerKey(kind, key)
	start, running := t.open[k]
	if !running {
		t.mu.Unlock()
		return
	}
	delete(t.open, k)
	seconds := int(t.now().Sub(start).Seconds())
	t.mu.Unlock()

	t.credit(kind, key, seconds)
}

// Flush closes every running timer as if its region just hid. Called on
// shutdown so partially viewed regions still count.
func (t *Tracker) Flush() {
	t.mu.Lock()
	type closing struct {
		kind    Kind
		key     string
		seconds int
	}
	var toClose []closing
	now := t.now()
	for k, start := range t.open {
		kind, key, ok := splitTimerKey(k)
		if !ok {
			continue
		}
		toClose = append(toClose, closing{kind, key, int(now.Sub(start).Seconds())})
	}
	t.open = make(map[string]time.Time)
	t.mu.Unlock()

	for _, c := range toClose {
		t.credit(c.kind, c.key, c.seconds)
	}
}

// Close flushes all running timers. The tracker must not be used after.
func (t *Tracker) Close() {
	t.Flush()
}

func (t *Tracker) credit(kind Kind, key string, seconds int) {
	if seconds <= 0 {
		return
	}
	switch kind {
	case KindCaseStudy:
		t.sink.AddCaseStudyTime(key, seconds)
	case KindProcessSection:
		t.sink.AddProcessSectionTime(key, seconds)
	case KindVapiCall:
		t.sink.AddVapiTime(seconds)
	default:
		t.log.Debug().Str("kind", string(kind)).Msg("unknown region kind")
		return
	}
	t.log.Debug().Str("kind", string(kind)).Str("key", key).Int("seconds", seconds).Msg("time credited")
}

func splitTimerKey(k string) (Kind, string, bool) {
	for i := 0; i < len(k); i++ {
		if k[i] == ':' {
			return Kind(k[:i]), k[i+1:], true
		}
	}
	return "", "", false
}
