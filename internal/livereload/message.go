// Package livereload pushes build status and refresh requests to open browser
// tabs over a websocket.
package livereload

import "time"

// Message types.
const (
	TypeStatus = "status"
	TypeReload = "reload"
	TypeURL    = "url"
)

// Statuses shown to the browser.
const (
	StatusWatching     = "Watching"
	StatusBuilding     = "Building"
	StatusBuildFailed  = "Build failed"
	StatusDeploying    = "Deploying"
	StatusReloading    = "Reloading"
	StatusRestarting   = "Restarting"
	StatusDeployFailed = "Deploy failed"
)

// Message is one websocket frame sent to the browser.
type Message struct {
	Type      string    `json:"type"`
	Status    string    `json:"status,omitempty"`
	URL       string    `json:"url,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
