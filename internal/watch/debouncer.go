package watch

import (
	"log/slog"
	"sync"
	"time"
)

// pending is the debounce state of one path.
type pending struct {
	firstSeen time.Time
	lastSeen  time.Time
	lastKind  EventKind
	count     int
	timer     *time.Timer
}

// Debouncer coalesces bursts of events per path. A path settles once no
// event for it has arrived for the quiet window; the callback then fires
// exactly once for that burst.
//
// Each pending path owns a single timer. Further events only move lastSeen
// forward; when the timer fires early it re-arms for the remaining time.
type Debouncer struct {
	quiet     time.Duration
	onSettled func(Settled)
	logger    *slog.Logger

	mu      sync.Mutex
	entries map[string]*pending
	stopped bool
}

// NewDebouncer creates a debouncer that waits for quiet before firing
// onSettled for a path.
func NewDebouncer(quiet time.Duration, onSettled func(Settled)) *Debouncer {
	return &Debouncer{
		quiet:     quiet,
		onSettled: onSettled,
		logger:    slog.Default(),
		entries:   make(map[string]*pending),
	}
}

// Observe records ev. A Removed or Renamed event drops a pending path
// without emitting.
func (d *Debouncer) Observe(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	e, ok := d.entries[ev.Path]

	if ev.Kind.Gone() {
		if ok {
			e.timer.Stop()
			delete(d.entries, ev.Path)
			d.logger.Debug("pending path disappeared", slog.String("path", ev.Path), slog.String("kind", ev.Kind.String()))
		}

		return
	}

	if ok {
		if ev.Timestamp.After(e.lastSeen) {
			e.lastSeen = ev.Timestamp
		}

		e.lastKind = ev.Kind
		e.count++

		return
	}

	e = &pending{
		firstSeen: ev.Timestamp,
		lastSeen:  ev.Timestamp,
		lastKind:  ev.Kind,
		count:     1,
	}
	e.timer = time.AfterFunc(d.quiet, func() { d.fire(ev.Path, e) })
	d.entries[ev.Path] = e
}

// fire runs on the timer goroutine of entry e.
func (d *Debouncer) fire(path string, e *pending) {
	d.mu.Lock()

	// A newer entry for the same path owns its own timer.
	if d.stopped || d.entries[path] != e {
		d.mu.Unlock()
		return
	}

	if wait := d.quiet - time.Since(e.lastSeen); wait > 0 {
		e.timer.Reset(wait)
		d.mu.Unlock()

		return
	}

	delete(d.entries, path)
	d.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("settle callback panicked", slog.String("path", path), slog.Any("error", r))
		}
	}()

	d.onSettled(Settled{
		Path:      path,
		Kind:      e.lastKind,
		FirstSeen: e.firstSeen,
		LastSeen:  e.lastSeen,
		Events:    e.count,
	})
}

// Pending returns the number of paths waiting to settle.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.entries)
}

// Stop cancels every pending path. Observe is a no-op afterwards.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for path, e := range d.entries {
		e.timer.Stop()
		delete(d.entries, path)
	}

	d.stopped = true
}
