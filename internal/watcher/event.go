// Package watcher turns raw filesystem notifications for a Maven project
// into classified change bursts and decides, burst by burst, whether the
// current build should be cancelled and a new plan made.
package watcher

import (
	"sort"
	"time"
)

// EventKind represents the type of file change
type EventKind int

const (
	EventCreated EventKind = iota
	EventModified
	EventDeleted
)

// String returns the string representation of the EventKind
func (k EventKind) String() string {
	switch k {
	case EventCreated:
		return "created"
	case EventModified:
		return "modified"
	case EventDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// ChangeEvent is one classified file change. It is never mutated once it
// leaves the loop.
type ChangeEvent struct {
	Path         string
	Kind         EventKind
	Timestamp    time.Time
	IsSourceFile bool
	Category     Category
}

// SortEvents orders events by path then timestamp.
func SortEvents(events []ChangeEvent) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].Path != events[j].Path {
			return events[i].Path < events[j].Path
		}
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
}

// mergeEvent folds next into prev for the same path. A file created since the
// last successful build stays "created" when it is subsequently modified.
func mergeEvent(prev, next ChangeEvent) ChangeEvent {
	if prev.Kind == EventCreated && next.Kind == EventModified {
		next.Kind = EventCreated
	}
	return next
}

// dedupe collapses events by path, keeping the merged latest event per path.
func dedupe(events []ChangeEvent) []ChangeEvent {
	byPath := make(map[string]ChangeEvent, len(events))
	for _, ev := range events {
		if prev, ok := byPath[ev.Path]; ok {
			ev = mergeEvent(prev, ev)
		}
		byPath[ev.Path] = ev
	}
	out := make([]ChangeEvent, 0, len(byPath))
	for _, ev := range byPath {
		out = append(out, ev)
	}
	SortEvents(out)
	return out
}
