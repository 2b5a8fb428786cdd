package watcher

import "time"

// FileEventType represents the type of file system event.
type FileEventType string

const (
	FileCreated FileEventType = "created"
)

// FileEvent is emitted once a batch of file activity settles.
type FileEvent struct {
	Path      string
	EventType FileEventType
	Timestamp time.Time
}
