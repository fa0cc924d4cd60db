package engine

import (
	"github.com/soyunomas/relinker/internal/entities"
	"github.com/soyunomas/relinker/internal/executor"
)

// EventType tells which field of an Event is populated.
type EventType int

const (
	EventFileScanned EventType = iota
	EventScanError
	EventHashError
	EventGroup
	EventRelinked
	EventRelinkFailed
	EventSkipped
	EventWouldRelink
	EventSummary
)

var eventNames = map[EventType]string{
	EventFileScanned:  "file-scanned",
	EventScanError:    "scan-error",
	EventHashError:    "hash-error",
	EventGroup:        "group",
	EventRelinked:     "relinked",
	EventRelinkFailed: "relink-failed",
	EventSkipped:      "skipped",
	EventWouldRelink:  "would-relink",
	EventSummary:      "summary",
}

func (t EventType) String() string {
	if s, ok := eventNames[t]; ok {
		return s
	}
	return "unknown"
}

// Event is a structured progress notification. Formatting is left to the Reporter.
type Event struct {
	Type EventType

	// Path is set for EventFileScanned.
	Path string
	// Err is set for EventScanError, EventHashError and EventRelinkFailed.
	Err error
	// Entry is set for EventGroup. Its Duplicates may be empty when every
	// member already shares the canonical inode.
	Entry *entities.PlanEntry
	// Result is set for the relink events.
	Result *executor.Result
	// Stats is set for EventSummary.
	Stats *entities.RunStatistics
}

// Reporter receives events from the goroutine driving the run, one at a time.
type Reporter interface {
	Report(Event)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Event)

func (f ReporterFunc) Report(ev Event) {
	f(ev)
}

type nopReporter struct{}

func (nopReporter) Report(Event) {}

// Nop discards every event.
var Nop Reporter = nopReporter{}
