package synclog

import "time"

type Entry struct {
	RunID     string
	Stage     string
	Level     string
	Message   string
	Detail    map[string]any
	CreatedAt time.Time
}
