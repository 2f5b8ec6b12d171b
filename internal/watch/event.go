package watch

import (
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventKind classifies a filesystem observation.
type EventKind int

const (
	// Created is reported for new files, including rename targets.
	Created EventKind = iota + 1
	// Modified is reported when a file's content is written.
	Modified
	// Removed is reported when a file is deleted.
	Removed
	// Renamed is reported for the old name of a moved file.
	Renamed
)

func (k EventKind) String() string {
	switch k {
	case Created:
		return "created"
	case Modified:
		return "modified"
	case Removed:
		return "removed"
	case Renamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// Gone reports whether the path no longer names the file after this event.
func (k EventKind) Gone() bool { return k == Removed || k == Renamed }

// Event is a single raw filesystem observation.
type Event struct {
	Path      string
	Kind      EventKind
	Timestamp time.Time
}

// Settled is emitted once a path has been quiet for the debounce window.
type Settled struct {
	Path string

	// Kind is the kind of the last event seen for Path.
	Kind EventKind

	FirstSeen time.Time
	LastSeen  time.Time

	// Events is the number of raw events coalesced into this one.
	Events int
}

// kindOf maps an fsnotify operation to an EventKind. Chmod-only and empty
// operations map to 0.
func kindOf(op fsnotify.Op) EventKind {
	switch {
	case op.Has(fsnotify.Remove):
		return Removed
	case op.Has(fsnotify.Rename):
		return Renamed
	case op.Has(fsnotify.Create):
		return Created
	case op.Has(fsnotify.Write):
		return Modified
	default:
		return 0
	}
}
