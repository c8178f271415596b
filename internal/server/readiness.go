// Package server manages the application server process: starting it,
// draining its output, detecting readiness and stopping it.
package server

import (
	"regexp"
	"strings"
	"sync"
)

// ReadinessState is the position of a ReadinessScanner.
type ReadinessState int

const (
	AwaitingReady ReadinessState = iota
	AwaitingURLAnnouncement
	Steady
)

// String returns the string representation of the ReadinessState
func (s ReadinessState) String() string {
	switch s {
	case AwaitingReady:
		return "awaiting-ready"
	case AwaitingURLAnnouncement:
		return "awaiting-url"
	case Steady:
		return "steady"
	default:
		return "unknown"
	}
}

// SignalKind identifies what a scanned line revealed.
type SignalKind int

const (
	SignalURL SignalKind = iota
	SignalReady
)

// Signal is emitted by the scanner when a marker line is seen.
type Signal struct {
	Kind SignalKind
	// URL is set for SignalURL.
	URL string
}

// Output markers.
const (
	URLHeaderMarker = "Payara Micro URLs:"
	ReadyMarker     = "ready in"
)

var urlPattern = regexp.MustCompile(`https?://\S+`)

// ReadinessScanner watches server output lines for the URL announcement
// block and the startup-complete line.
//
// AwaitingReady moves to AwaitingURLAnnouncement on the URL header; every
// URL line in that block emits SignalURL. The ready line emits SignalReady
// from either state and moves to Steady. Steady ignores everything until
// Reset.
type ReadinessScanner struct {
	mu    sync.Mutex
	state ReadinessState
	urls  []string
}

// NewReadinessScanner returns a scanner in AwaitingReady.
func NewReadinessScanner() *ReadinessScanner {
	return &ReadinessScanner{}
}

// Feed advances the scanner by one line and returns the signals it produced.
func (s *ReadinessScanner) Feed(line string) []Signal {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Steady:
		return nil

	case AwaitingReady:
		if strings.Contains(line, URLHeaderMarker) {
			s.state = AwaitingURLAnnouncement
			return nil
		}
		if strings.Contains(line, ReadyMarker) {
			s.state = Steady
			return []Signal{{Kind: SignalReady}}
		}
		return nil

	default:
		if strings.Contains(line, ReadyMarker) {
			s.state = Steady
			return []Signal{{Kind: SignalReady}}
		}
		var signals []Signal
		for _, u := range urlPattern.FindAllString(line, -1) {
			u = strings.TrimRight(u, ".,;'\")")
			s.urls = append(s.urls, u)
			signals = append(signals, Signal{Kind: SignalURL, URL: u})
		}
		return signals
	}
}

// State returns the current state.
func (s *ReadinessScanner) State() ReadinessState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Ready reports whether the ready line has been seen.
func (s *ReadinessScanner) Ready() bool {
	return s.State() == Steady
}

// URLs returns the announced URLs in order.
func (s *ReadinessScanner) URLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.urls...)
}

// Reset returns the scanner to AwaitingReady for a new process.
func (s *ReadinessScanner) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = AwaitingReady
	s.urls = nil
}
