// internal/sched/eventlog.go

package sched

import (
	"time"

	"github.com/emirpasic/gods/queues/circularbuffer"
)

// LogCapacity is how many log entries the scheduler retains.
const LogCapacity = 50

// Severity tags a log entry.
type Severity int

const (
	SeverityInfo Severity = iota
	SeveritySuccess
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeveritySuccess:
		return "success"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// LogEntry is an immutable scheduler log record.
type LogEntry struct {
	Time     time.Time
	Message  string
	Severity Severity
}

// EventLog keeps the most recent entries, dropping the oldest first.
type EventLog struct {
	buf *circularbuffer.Queue
}

// NewEventLog creates a log retaining at most capacity entries.
func NewEventLog(capacity int) *EventLog {
	if capacity <= 0 {
		capacity = LogCapacity
	}
	return &EventLog{buf: circularbuffer.New(capacity)}
}

// Append records an entry, evicting the oldest one when full.
func (l *EventLog) Append(e LogEntry) {
	if l.buf.Full() {
		l.buf.Dequeue()
	}
	l.buf.Enqueue(e)
}

// Entries returns the retained entries, oldest first.
func (l *EventLog) Entries() []LogEntry {
	vals := l.buf.Values()
	out := make([]LogEntry, len(vals))
	for i, v := range vals {
		out[i] = v.(LogEntry)
	}
	return out
}

// Len returns the number of retained entries.
func (l *EventLog) Len() int { return l.buf.Size() }
