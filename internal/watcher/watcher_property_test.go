//go:build property

package watcher

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestStateProperties validates the pending-set invariants of the watch state.
func TestStateProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1234)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("pending set never holds two events for one path", prop.ForAll(
		func(ids []int, kinds []int) bool {
			s := NewState()
			base := time.Unix(0, 0)
			for i, id := range ids {
				kind := EventModified
				if i < len(kinds) {
					kind = EventKind(kinds[i] % 3)
				}
				s.Accumulate(Burst{Events: []ChangeEvent{{
					Path:      fmt.Sprintf("/p/%d", id%7),
					Kind:      kind,
					Timestamp: base.Add(time.Duration(i) * time.Millisecond),
				}}})
			}
			snap := s.Snapshot()
			seen := make(map[string]bool)
			for _, ev := range snap.Events {
				if seen[ev.Path] {
					return false
				}
				seen[ev.Path] = true
			}
			return len(snap.Events) == s.Len()
		},
		gen.SliceOf(gen.IntRange(0, 100)),
		gen.SliceOf(gen.IntRange(0, 2)),
	))

	properties.Property("commit of an untouched snapshot empties the state", prop.ForAll(
		func(ids []int, clean bool, restart bool) bool {
			s := NewState()
			base := time.Unix(0, 0)
			events := make([]ChangeEvent, 0, len(ids))
			for i, id := range ids {
				events = append(events, ChangeEvent{
					Path:      fmt.Sprintf("/p/%d", id),
					Kind:      EventModified,
					Timestamp: base.Add(time.Duration(i) * time.Millisecond),
				})
			}
			s.Accumulate(Burst{Events: events, Clean: clean, Restart: restart})
			s.Commit(s.Snapshot())
			after := s.Snapshot()
			return len(after.Events) == 0 && !after.Clean && !after.Restart
		},
		gen.SliceOf(gen.IntRange(0, 50)),
		gen.Bool(),
		gen.Bool(),
	))

	properties.Property("dedupe is idempotent", prop.ForAll(
		func(ids []int) bool {
			events := make([]ChangeEvent, 0, len(ids))
			for _, id := range ids {
				events = append(events, ChangeEvent{Path: fmt.Sprintf("/p/%d", id%5), Kind: EventModified})
			}
			once := dedupe(events)
			twice := dedupe(once)
			if len(once) != len(twice) {
				return false
			}
			for i := range once {
				if once[i] != twice[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 20)),
	))

	properties.TestingRun(t)
}

// TestClassifyProperties validates that classification is a pure function of the path.
func TestClassifyProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1234)
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)
	root := filepath.FromSlash("/work/app")
	layout := Layout{Root: root, RebootTriggers: testRebootTriggers}

	properties.Property("cached and uncached classification agree", prop.ForAll(
		func(subtree int, name string) bool {
			dirs := []string{"src/main/java", "src/main/resources", "src/test/java", "src/test/resources", "docs", "src/main/webapp"}
			path := filepath.Join(root, filepath.FromSlash(dirs[subtree%len(dirs)]), name+".java")
			c := NewClassifier(layout)
			first := c.Classify(path)
			return first == c.Classify(path) && first == Classify(path, layout)
		},
		gen.IntRange(0, 5),
		gen.Identifier(),
	))

	properties.TestingRun(t)
}

var testRebootTriggers = []string{"microprofile-config.properties", "web.xml"}
