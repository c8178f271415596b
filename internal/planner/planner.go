// Package planner derives the minimal rebuild action set from the changes
// accumulated since the last successful cycle.
package planner

import (
	"fmt"
	"strings"

	"github.com/conneroisu/payara-dev/internal/watcher"
)

// BuildPlan is the immutable outcome of one planning pass.
type BuildPlan struct {
	Clean              bool
	CompileNeeded      bool
	ResourceSyncNeeded bool
	TestsIncluded      bool
	IncrementalOnly    bool
	RestartRequired    bool
	// MetadataChanged is set when the project descriptor changed.
	MetadataChanged bool
}

// Plan computes a BuildPlan for events. cleanFlag is the sticky flag kept by
// the watch state; restart requests are derived from reboot-trigger events.
// Plan is pure: the same input always yields the same plan.
func Plan(events []watcher.ChangeEvent, cleanFlag bool) BuildPlan {
	var (
		deleted   bool
		resources bool
		sources   bool
		config    bool
		tests     bool
		restart   bool
	)
	onlyModifiedSources := len(events) > 0

	for _, ev := range events {
		if ev.Kind == watcher.EventDeleted {
			deleted = true
		}
		switch ev.Category {
		case watcher.CategoryResource:
			resources = true
		case watcher.CategorySource:
			sources = true
		case watcher.CategoryConfig:
			config = true
		case watcher.CategoryTestSource, watcher.CategoryTestResource:
			tests = true
		case watcher.CategoryRebootTrigger:
			restart = true
		}
		if ev.Kind != watcher.EventModified || !ev.IsSourceFile {
			onlyModifiedSources = false
		}
	}

	var plan BuildPlan
	plan.Clean = cleanFlag || deleted || config
	plan.ResourceSyncNeeded = plan.Clean || resources
	plan.CompileNeeded = plan.Clean || sources
	plan.IncrementalOnly = plan.CompileNeeded && onlyModifiedSources
	plan.TestsIncluded = tests
	plan.RestartRequired = restart
	plan.MetadataChanged = config
	return plan
}

// PlanSnapshot plans a watch state snapshot, honouring its sticky flags.
func PlanSnapshot(snap watcher.Snapshot) BuildPlan {
	plan := Plan(snap.Events, snap.Clean)
	if snap.Restart {
		plan.RestartRequired = true
	}
	return plan
}

// BuildNeeded reports whether the plan runs the build tool. A plan that only
// requires a restart does not.
func (p BuildPlan) BuildNeeded() bool {
	return p.Clean || p.CompileNeeded || p.ResourceSyncNeeded || p.TestsIncluded
}

// Empty reports whether the plan requires neither a build nor a restart.
func (p BuildPlan) Empty() bool {
	return !p.BuildNeeded() && !p.RestartRequired
}

// Goals translates the plan into Maven goals. The exploded packaging goal
// always runs last so the server sees a consistent deployment directory.
// A plan with no build work yields no goals.
func (p BuildPlan) Goals() []string {
	if !p.BuildNeeded() {
		return nil
	}
	var goals []string
	if p.Clean {
		goals = append(goals, "clean")
	}
	if p.ResourceSyncNeeded {
		goals = append(goals, "resources:resources")
	}
	if p.CompileNeeded {
		goals = append(goals, "compiler:compile")
	}
	if p.TestsIncluded {
		goals = append(goals, "resources:testResources", "compiler:testCompile", "surefire:test")
	}
	return append(goals, "war:exploded")
}

// Properties returns the -D overrides implied by the plan as key=value pairs.
func (p BuildPlan) Properties() []string {
	var props []string
	if !p.TestsIncluded {
		props = append(props, "maven.test.skip=true")
	}
	if p.IncrementalOnly {
		// the compiler plugin's flag is inverted: false recompiles only stale units
		props = append(props, "maven.compiler.useIncrementalCompilation=false")
	}
	return props
}

// String renders the plan for log lines.
func (p BuildPlan) String() string {
	var flags []string
	add := func(on bool, name string) {
		if on {
			flags = append(flags, name)
		}
	}
	add(p.Clean, "clean")
	add(p.ResourceSyncNeeded, "resources")
	add(p.CompileNeeded, "compile")
	add(p.IncrementalOnly, "incremental")
	add(p.TestsIncluded, "tests")
	add(p.RestartRequired, "restart")
	add(p.MetadataChanged, "metadata")
	if len(flags) == 0 {
		return "plan{}"
	}
	return fmt.Sprintf("plan{%s}", strings.Join(flags, ","))
}

// ChangedSources returns the paths of events, relative to root with '/'
// separators, in snapshot order. Deleted files are included so the server
// can drop stale classes.
func ChangedSources(root string, events []watcher.ChangeEvent) []string {
	paths := make([]string, 0, len(events))
	for _, ev := range events {
		paths = append(paths, watcher.RelativePath(root, ev.Path))
	}
	return paths
}
