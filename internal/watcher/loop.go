package watcher

import (
	"context"
	stderrors "errors"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/conneroisu/payara-dev/internal/errors"
	"github.com/conneroisu/payara-dev/internal/logging"
)

// WatchLimitHint is logged when the OS refuses to allocate more watches.
const WatchLimitHint = "The operating system file watch limit was reached. " +
	"Raise it, for example with 'sudo sysctl fs.inotify.max_user_instances=1024' " +
	"and 'sudo sysctl fs.inotify.max_user_watches=524288', then restart payara-dev."

// TriggerFunc is invoked after a burst has been admitted to the state.
type TriggerFunc func(ctx context.Context, admission Admission)

// LoopOptions configures a Loop.
type LoopOptions struct {
	Root           string
	Subscription   Subscription
	Classifier     *Classifier
	Ignore         *IgnoreRules
	State          *State
	Trigger        TriggerFunc
	PollTimeout    time.Duration
	DebounceWindow time.Duration
	Logger         logging.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Loop is the debounced watch loop. It owns the subscription and runs on a
// single goroutine.
type Loop struct {
	opts   LoopOptions
	logger logging.Logger
	now    func() time.Time
}

// NewLoop creates a loop from opts.
func NewLoop(opts LoopOptions) *Loop {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 60 * time.Second
	}
	return &Loop{
		opts:   opts,
		logger: logger.WithComponent("watcher"),
		now:    now,
	}
}

// Register walks the watch root and registers every directory that is not
// ignored. Running out of OS watches is fatal for the run.
func (l *Loop) Register(ctx context.Context) error {
	_, err := l.registerTree(ctx, l.opts.Root, false)
	if err != nil && errors.IsWatchLimit(err) {
		l.logger.Error(ctx, err, WatchLimitHint)
	}
	return err
}

// Run polls the subscription until ctx is done. It returns nil on
// cancellation and an error only when watching cannot continue.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		batch, err := l.opts.Subscription.Poll(ctx, l.opts.PollTimeout)
		if err != nil {
			if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			if errors.IsWatchLimit(err) {
				l.logger.Error(ctx, err, WatchLimitHint)
				return err
			}
			if stderrors.Is(err, ErrSubscriptionClosed) {
				return nil
			}
			l.logger.Warn(ctx, err, "File watcher error")
			continue
		}

		if len(batch) == 0 {
			l.logger.Debug(ctx, "Watch loop idle", "timeout", l.opts.PollTimeout.String())
			continue
		}

		if err := l.HandleBatch(ctx, batch); err != nil {
			return err
		}
	}
}

// HandleBatch filters, classifies and admits one polled batch.
func (l *Loop) HandleBatch(ctx context.Context, batch []RawEvent) error {
	burst, err := l.classifyBatch(ctx, batch)
	if err != nil {
		return err
	}
	if len(burst.Events) == 0 && !burst.Clean {
		return nil
	}

	admission := l.opts.State.Admit(burst, l.now(), l.opts.DebounceWindow)
	switch admission {
	case Suppressed:
		l.logger.Debug(ctx, "Duplicate change burst suppressed", "events", len(burst.Events))
		return nil
	case AdmittedAfterCancel:
		l.logger.Info(ctx, "Changes detected during build, cancelling in-flight build", "events", len(burst.Events))
	default:
		l.logger.Info(ctx, "Changes detected", "events", len(burst.Events), "clean", burst.Clean, "restart", burst.Restart)
	}

	if l.opts.Trigger != nil {
		l.opts.Trigger(ctx, admission)
	}
	return nil
}

func (l *Loop) classifyBatch(ctx context.Context, batch []RawEvent) (Burst, error) {
	var burst Burst
	var events []ChangeEvent

	for _, raw := range batch {
		if l.opts.Ignore != nil && l.opts.Ignore.Ignored(raw.Path) {
			continue
		}

		if raw.IsDir {
			switch raw.Kind {
			case EventCreated:
				created, err := l.registerTree(ctx, raw.Path, true)
				if err != nil {
					if errors.IsWatchLimit(err) {
						l.logger.Error(ctx, err, WatchLimitHint)
						return Burst{}, err
					}
					l.logger.Warn(ctx, err, "Failed to watch new directory", "dir", raw.Path)
				}
				if !burst.Restart {
					events = append(events, created...)
				}
			case EventDeleted:
				_ = l.opts.Subscription.Remove(raw.Path)
				burst.Clean = true
			}
			continue
		}

		// a reboot trigger supersedes the rest of the batch; directories
		// are still registered so the watch tree stays complete
		if burst.Restart {
			continue
		}

		ev, ok := l.classifyEvent(raw)
		if !ok {
			continue
		}
		if ev.Kind == EventDeleted {
			burst.Clean = true
		}
		events = append(events, ev)

		if ev.Category == CategoryRebootTrigger {
			burst.Restart = true
		}
	}

	burst.Events = dedupe(events)
	return burst, nil
}

func (l *Loop) classifyEvent(raw RawEvent) (ChangeEvent, bool) {
	cat := l.opts.Classifier.Classify(raw.Path)
	if cat == CategoryUnrelated {
		return ChangeEvent{}, false
	}
	ts := raw.Time
	if ts.IsZero() {
		ts = l.now()
	}
	return ChangeEvent{
		Path:         raw.Path,
		Kind:         raw.Kind,
		Timestamp:    ts,
		IsSourceFile: l.opts.Classifier.IsSourceFile(raw.Path),
		Category:     cat,
	}, true
}

// registerTree registers dir and every non-ignored subdirectory. When
// synthesize is set, files already present are reported as created because
// they may have landed before the watch existed.
func (l *Loop) registerTree(ctx context.Context, dir string, synthesize bool) ([]ChangeEvent, error) {
	var created []ChangeEvent
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			// vanished while walking
			return nil
		}
		if d.IsDir() {
			if l.opts.Ignore != nil && l.opts.Ignore.IgnoredDir(path) {
				return filepath.SkipDir
			}
			if err := l.opts.Subscription.Add(path); err != nil {
				return err
			}
			l.logger.Debug(ctx, "Watching directory", "dir", path)
			return nil
		}
		if synthesize {
			if l.opts.Ignore != nil && l.opts.Ignore.Ignored(path) {
				return nil
			}
			if ev, ok := l.classifyEvent(RawEvent{Path: path, Kind: EventCreated}); ok {
				created = append(created, ev)
			}
		}
		return nil
	})
	return created, err
}
