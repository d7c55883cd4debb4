package pipeline

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jmartell/docintel/constants"
)

// Event is one timestamped entry in a run's processing log.
type Event struct {
	At       time.Time
	Filename string
	Stage    constants.Stage
	Detail   string
}

// EventLog is the ordered, append-only processing log for one run. Safe for
// concurrent appends when the batch runs with multiple workers.
type EventLog struct {
	mu     sync.Mutex
	events []Event
}

func NewEventLog() *EventLog {
	return &EventLog{}
}

func (l *EventLog) Append(filename string, stage constants.Stage, detail string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, Event{
		At:       time.Now().UTC(),
		Filename: filename,
		Stage:    stage,
		Detail:   detail,
	})
}

// Entries returns a copy of the log in append order.
func (l *EventLog) Entries() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Text renders the log in the downloadable block format.
func (l *EventLog) Text() string {
	var b strings.Builder
	for _, e := range l.Entries() {
		fmt.Fprintf(&b, "[%s] %s %s", e.At.Format("2006-01-02 15:04:05"), e.Filename, e.Stage)
		if e.Detail != "" {
			b.WriteString(": ")
			b.WriteString(e.Detail)
		}
		b.WriteString("\n")
	}
	return b.String()
}
