// Package log provides logger adapters used to observe servolink internals.
package log

import (
	"sync"

	"github.com/bft-labs/servolink/pkg/log"
)

// Entry is one recorded log call.
type Entry struct {
	Level  string
	Msg    string
	Fields map[string]interface{}
}

// Recorder implements log.Logger by keeping every entry in memory.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Debug(msg string, fields ...log.Field) { r.add("debug", msg, fields) }
func (r *Recorder) Info(msg string, fields ...log.Field)  { r.add("info", msg, fields) }
func (r *Recorder) Warn(msg string, fields ...log.Field)  { r.add("warn", msg, fields) }
func (r *Recorder) Error(msg string, fields ...log.Field) { r.add("error", msg, fields) }

func (r *Recorder) add(level, msg string, fields []log.Field) {
	e := Entry{Level: level, Msg: msg, Fields: make(map[string]interface{}, len(fields))}
	for _, f := range fields {
		e.Fields[f.Key] = f.Value
	}
	r.mu.Lock()
	r.entries = append(r.entries, e)
	r.mu.Unlock()
}

// Entries returns a copy of all recorded entries.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

// Count returns how many entries have the given message.
func (r *Recorder) Count(msg string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.entries {
		if e.Msg == msg {
			n++
		}
	}
	return n
}

var _ log.Logger = (*Recorder)(nil)
