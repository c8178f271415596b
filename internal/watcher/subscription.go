package watcher

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/conneroisu/payara-dev/internal/errors"
)

// ErrSubscriptionClosed is returned by Poll once the subscription is closed.
var ErrSubscriptionClosed = stderrors.New("file watcher closed")

// RawEvent is an unclassified notification from the OS watch primitive.
type RawEvent struct {
	Path  string
	Kind  EventKind
	IsDir bool
	Time  time.Time
}

// Subscription is the filesystem watch primitive the loop drives.
type Subscription interface {
	// Add registers a single directory.
	Add(dir string) error
	// Remove drops a directory registration.
	Remove(dir string) error
	// Poll blocks until events arrive or timeout elapses, then returns every
	// event that is already pending. An empty batch means the timeout fired.
	Poll(ctx context.Context, timeout time.Duration) ([]RawEvent, error)
	// Close releases the OS resources.
	Close() error
}

// FSSubscription is a Subscription backed by fsnotify.
type FSSubscription struct {
	watcher *fsnotify.Watcher
	settle  time.Duration
	dirs    map[string]struct{}
	mutex   sync.Mutex
}

// NewFSSubscription allocates an OS watch instance. settle is the quiet
// period used to coalesce a burst once the first event of a poll arrives.
func NewFSSubscription(settle time.Duration) (*FSSubscription, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, classifyWatchError(err, "allocating file watcher")
	}
	return &FSSubscription{
		watcher: w,
		settle:  settle,
		dirs:    make(map[string]struct{}),
	}, nil
}

// Add registers dir with the OS watch instance.
func (s *FSSubscription) Add(dir string) error {
	if err := s.watcher.Add(dir); err != nil {
		return classifyWatchError(err, "watching "+dir)
	}
	s.mutex.Lock()
	s.dirs[dir] = struct{}{}
	s.mutex.Unlock()
	return nil
}

// Remove drops dir and every registered directory below it. Removing an
// unknown or already vanished directory is not an error.
func (s *FSSubscription) Remove(dir string) error {
	prefix := dir + string(filepath.Separator)
	s.mutex.Lock()
	_, ok := s.dirs[dir]
	delete(s.dirs, dir)
	var nested []string
	for d := range s.dirs {
		if strings.HasPrefix(d, prefix) {
			nested = append(nested, d)
			delete(s.dirs, d)
		}
	}
	s.mutex.Unlock()

	for _, d := range nested {
		// nested watches usually vanished with their parent
		_ = s.watcher.Remove(d)
	}
	if !ok {
		return nil
	}
	if err := s.watcher.Remove(dir); err != nil && !stderrors.Is(err, fsnotify.ErrNonExistentWatch) {
		return err
	}
	return nil
}

// Watched returns the number of registered directories.
func (s *FSSubscription) Watched() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.dirs)
}

// Poll waits up to timeout for the first event, then keeps draining until
// no event arrives for the settle period.
func (s *FSSubscription) Poll(ctx context.Context, timeout time.Duration) ([]RawEvent, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var batch []RawEvent
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, nil
	case err, ok := <-s.watcher.Errors:
		if !ok {
			return nil, ErrSubscriptionClosed
		}
		return nil, classifyWatchError(err, "file watcher")
	case ev, ok := <-s.watcher.Events:
		if !ok {
			return nil, ErrSubscriptionClosed
		}
		batch = s.appendEvent(batch, ev)
	}

	settle := time.NewTimer(s.settle)
	defer settle.Stop()
	for {
		select {
		case <-ctx.Done():
			return batch, nil
		case <-settle.C:
			return batch, nil
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return batch, nil
			}
			batch = s.appendEvent(batch, ev)
			settle.Reset(s.settle)
		}
	}
}

// Close releases the fsnotify watcher.
func (s *FSSubscription) Close() error {
	return s.watcher.Close()
}

func (s *FSSubscription) appendEvent(batch []RawEvent, ev fsnotify.Event) []RawEvent {
	raw := RawEvent{Path: ev.Name, Time: time.Now()}

	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		raw.Kind = EventDeleted
		s.mutex.Lock()
		_, raw.IsDir = s.dirs[ev.Name]
		s.mutex.Unlock()
	case ev.Has(fsnotify.Create):
		raw.Kind = EventCreated
		if info, err := os.Stat(ev.Name); err == nil {
			raw.IsDir = info.IsDir()
		}
	case ev.Has(fsnotify.Write):
		raw.Kind = EventModified
		if info, err := os.Stat(ev.Name); err == nil {
			raw.IsDir = info.IsDir()
		}
	default:
		// chmod-only notifications carry no content change
		return batch
	}

	return append(batch, raw)
}

// classifyWatchError maps OS resource exhaustion onto ErrWatchLimit.
func classifyWatchError(err error, msg string) error {
	if stderrors.Is(err, syscall.EMFILE) || stderrors.Is(err, syscall.ENOSPC) {
		return errors.WrapIO(stderrors.Join(errors.ErrWatchLimit, err), errors.ErrCodeWatchLimit, msg)
	}
	return errors.WrapIO(err, errors.ErrCodeWatchFailed, msg)
}
