// Package internal contains the implementation packages for payara-dev.
//
// # Package Organization
//
//   - watcher: fsnotify subscription, change classification, debounced state
//   - planner: turns a settled change set into Maven goals
//   - build: single-flight executor and the Maven invoker
//   - reload: applies a finished build (sentinel, admin push or restart)
//   - admin: client for the server's command endpoint
//   - server: managed server process and its readiness detection
//   - livereload: browser status and reload notifications over WebSocket
//   - devloop: session wiring the above into one edit-build-reload cycle
//   - config, logging, errors, validation, properties, version: ambient support
//
// # Flow
//
//   - The watcher records events and starts a settle timer per burst
//   - When the burst settles the devloop snapshots pending changes and plans
//   - The executor cancels any running build and starts the new one
//   - A successful build is committed and handed to the reload dispatcher
//   - A failed build leaves the changes pending for the next cycle
//
// Build commands are checked against an allowlist before any process runs.
package internal
