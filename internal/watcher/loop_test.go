package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/payara-dev/internal/errors"
)

type fakeSubscription struct {
	mutex   sync.Mutex
	added   []string
	removed []string
	batches chan []RawEvent
	addErr  error
}

func newFakeSubscription() *fakeSubscription {
	return &fakeSubscription{batches: make(chan []RawEvent, 8)}
}

func (f *fakeSubscription) Add(dir string) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	f.added = append(f.added, dir)
	return nil
}

func (f *fakeSubscription) Remove(dir string) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.removed = append(f.removed, dir)
	return nil
}

func (f *fakeSubscription) Poll(ctx context.Context, timeout time.Duration) ([]RawEvent, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case b, ok := <-f.batches:
		if !ok {
			return nil, ErrSubscriptionClosed
		}
		return b, nil
	case <-time.After(timeout):
		return nil, nil
	}
}

func (f *fakeSubscription) Close() error {
	close(f.batches)
	return nil
}

func (f *fakeSubscription) addedDirs() []string {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return append([]string(nil), f.added...)
}

func makeProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, dir := range []string{
		"src/main/java/com/acme",
		"src/main/resources",
		"src/test/java",
		"target/classes",
		".idea",
	} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, filepath.FromSlash(dir)), 0o755))
	}
	return root
}

type loopFixture struct {
	root     string
	sub      *fakeSubscription
	state    *State
	loop     *Loop
	triggers []Admission
	mutex    sync.Mutex
}

func newLoopFixture(t *testing.T) *loopFixture {
	t.Helper()
	f := &loopFixture{root: makeProject(t), sub: newFakeSubscription(), state: NewState()}
	f.loop = NewLoop(LoopOptions{
		Root:         f.root,
		Subscription: f.sub,
		Classifier:   NewClassifier(Layout{Root: f.root, RebootTriggers: []string{"web.xml"}}),
		Ignore:       NewIgnoreRules(f.root, "target"),
		State:        f.state,
		Trigger: func(_ context.Context, a Admission) {
			f.mutex.Lock()
			defer f.mutex.Unlock()
			f.triggers = append(f.triggers, a)
		},
		PollTimeout:    50 * time.Millisecond,
		DebounceWindow: time.Second,
	})
	return f
}

func (f *loopFixture) triggerCount() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return len(f.triggers)
}

func (f *loopFixture) path(rel string) string {
	return filepath.Join(f.root, filepath.FromSlash(rel))
}

func TestRegisterSkipsIgnoredDirectories(t *testing.T) {
	f := newLoopFixture(t)
	require.NoError(t, f.loop.Register(context.Background()))

	added := f.sub.addedDirs()
	assert.Contains(t, added, f.root)
	assert.Contains(t, added, f.path("src/main/java/com/acme"))
	assert.NotContains(t, added, f.path("target"))
	assert.NotContains(t, added, f.path("target/classes"))
	assert.NotContains(t, added, f.path(".idea"))
}

func TestRegisterReportsWatchLimit(t *testing.T) {
	f := newLoopFixture(t)
	f.sub.addErr = errors.WrapIO(errors.ErrWatchLimit, errors.ErrCodeWatchLimit, "watching")

	err := f.loop.Register(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsWatchLimit(err))
}

func TestHandleBatchAdmitsSourceChange(t *testing.T) {
	f := newLoopFixture(t)
	ctx := context.Background()

	err := f.loop.HandleBatch(ctx, []RawEvent{
		{Path: f.path("src/main/java/com/acme/Hello.java"), Kind: EventModified, Time: time.Now()},
		{Path: f.path("src/main/java/com/acme/Hello.java"), Kind: EventModified, Time: time.Now()},
		{Path: f.path("README.md"), Kind: EventModified, Time: time.Now()},
		{Path: f.path(".idea/workspace.xml"), Kind: EventModified, Time: time.Now()},
	})
	require.NoError(t, err)

	snap := f.state.Snapshot()
	require.Len(t, snap.Events, 1)
	assert.True(t, snap.Events[0].IsSourceFile)
	assert.Equal(t, CategorySource, snap.Events[0].Category)
	assert.False(t, snap.Clean)
	assert.Equal(t, 1, f.triggerCount())
}

func TestHandleBatchIgnoresNoise(t *testing.T) {
	f := newLoopFixture(t)

	err := f.loop.HandleBatch(context.Background(), []RawEvent{
		{Path: f.path("target/classes/Hello.class"), Kind: EventCreated},
		{Path: f.path("src/main/java/Hello.java~"), Kind: EventModified},
		{Path: f.path("notes.txt"), Kind: EventDeleted},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, f.state.Len())
	assert.False(t, f.state.Snapshot().Clean)
	assert.Equal(t, 0, f.triggerCount())
}

func TestHandleBatchDeleteSetsClean(t *testing.T) {
	f := newLoopFixture(t)

	require.NoError(t, f.loop.HandleBatch(context.Background(), []RawEvent{
		{Path: f.path("src/main/java/com/acme/Old.java"), Kind: EventDeleted},
	}))
	snap := f.state.Snapshot()
	assert.True(t, snap.Clean)
	require.Len(t, snap.Events, 1)
	assert.Equal(t, EventDeleted, snap.Events[0].Kind)
}

func TestHandleBatchDeletedDirectory(t *testing.T) {
	f := newLoopFixture(t)
	dir := f.path("src/main/java/com/acme")

	require.NoError(t, f.loop.HandleBatch(context.Background(), []RawEvent{
		{Path: dir, Kind: EventDeleted, IsDir: true},
	}))
	assert.True(t, f.state.Snapshot().Clean)
	assert.Contains(t, f.sub.removed, dir)
	assert.Equal(t, 1, f.triggerCount())
}

func TestHandleBatchRebootTriggerShortCircuits(t *testing.T) {
	f := newLoopFixture(t)

	require.NoError(t, f.loop.HandleBatch(context.Background(), []RawEvent{
		{Path: f.path("src/main/webapp/WEB-INF/web.xml"), Kind: EventModified},
		{Path: f.path("src/main/java/com/acme/Later.java"), Kind: EventModified},
	}))
	snap := f.state.Snapshot()
	assert.True(t, snap.Restart)
	require.Len(t, snap.Events, 1)
	assert.Equal(t, CategoryRebootTrigger, snap.Events[0].Category)
}

func TestHandleBatchRebootTriggerStillRegistersDirectories(t *testing.T) {
	f := newLoopFixture(t)
	dir := f.path("src/main/java/com/acme/spi")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "impl"), 0o755))

	require.NoError(t, f.loop.HandleBatch(context.Background(), []RawEvent{
		{Path: f.path("src/main/webapp/WEB-INF/web.xml"), Kind: EventModified},
		{Path: dir, Kind: EventCreated, IsDir: true},
	}))

	assert.Contains(t, f.sub.addedDirs(), dir)
	assert.Contains(t, f.sub.addedDirs(), filepath.Join(dir, "impl"))
	snap := f.state.Snapshot()
	assert.True(t, snap.Restart)
	require.Len(t, snap.Events, 1)
	assert.Equal(t, CategoryRebootTrigger, snap.Events[0].Category)
}

func TestHandleBatchNewDirectorySynthesizesCreates(t *testing.T) {
	f := newLoopFixture(t)
	dir := f.path("src/main/java/com/acme/api")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "v1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "v1", "Resource.java"), []byte("class Resource {}"), 0o644))

	require.NoError(t, f.loop.HandleBatch(context.Background(), []RawEvent{
		{Path: dir, Kind: EventCreated, IsDir: true},
	}))

	assert.Contains(t, f.sub.addedDirs(), dir)
	assert.Contains(t, f.sub.addedDirs(), filepath.Join(dir, "v1"))

	snap := f.state.Snapshot()
	require.Len(t, snap.Events, 1)
	assert.Equal(t, filepath.Join(dir, "v1", "Resource.java"), snap.Events[0].Path)
	assert.Equal(t, EventCreated, snap.Events[0].Kind)
}

func TestHandleBatchSuppressedDoesNotTrigger(t *testing.T) {
	now := time.Now()
	f := newLoopFixture(t)
	f.loop.now = func() time.Time { return now }

	src := f.path("src/main/java/com/acme/Hello.java")
	require.NoError(t, f.loop.HandleBatch(context.Background(), []RawEvent{{Path: src, Kind: EventModified}}))
	job := newFakeJob(now)
	f.state.SetInflight(job)

	require.NoError(t, f.loop.HandleBatch(context.Background(), []RawEvent{{Path: src, Kind: EventModified}}))
	assert.Equal(t, 1, f.triggerCount())
	assert.True(t, job.Running())
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newLoopFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.loop.Run(ctx) }()

	f.sub.batches <- []RawEvent{{Path: f.path("src/main/resources/app.properties"), Kind: EventModified}}
	require.Eventually(t, func() bool { return f.triggerCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}
}

func TestRunStopsWhenSubscriptionCloses(t *testing.T) {
	f := newLoopFixture(t)
	require.NoError(t, f.sub.Close())
	assert.NoError(t, f.loop.Run(context.Background()))
}
