package requestlog

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

const (
	DefaultCapacity = 100
	ErrorPrefix     = "ERROR:"
)

// timestampLayout matches the millisecond UTC form used by ISO-8601 log tooling.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Entry is one stored log line.
type Entry struct {
	Timestamp time.Time
	Message   string
}

func (e Entry) String() string {
	return "[" + e.Timestamp.UTC().Format(timestampLayout) + "] " + e.Message
}

// Logger is a concurrency-safe ring buffer of log entries.
type Logger struct {
	mutex   sync.Mutex
	entries []Entry
	next    int
	size    int
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a Logger holding at most capacity entries. A non-positive
// capacity falls back to DefaultCapacity. logger may be nil.
func New(capacity int, logger *slog.Logger) *Logger {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Logger{
		entries: make([]Entry, capacity),
		logger:  logger,
		now:     time.Now,
	}
}

// Append stores message as the newest entry, evicting the oldest one when the
// buffer is full.
func (l *Logger) Append(message string) {
	l.mutex.Lock()
	entry := Entry{Timestamp: l.now(), Message: message}
	l.entries[l.next] = entry
	l.next = (l.next + 1) % len(l.entries)
	if l.size < len(l.entries) {
		l.size++
	}
	l.mutex.Unlock()

	l.mirror(entry)
}

// Appendf formats according to format and appends the result.
func (l *Logger) Appendf(format string, args ...any) {
	l.Append(fmt.Sprintf(format, args...))
}

// Errorf appends a formatted line carrying the ERROR: prefix.
func (l *Logger) Errorf(format string, args ...any) {
	l.Append(ErrorPrefix + " " + fmt.Sprintf(format, args...))
}

// Entries returns a copy of the buffer contents, newest first.
func (l *Logger) Entries() []Entry {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	out := make([]Entry, 0, l.size)
	capacity := len(l.entries)
	for i := 0; i < l.size; i++ {
		idx := (l.next - 1 - i + capacity) % capacity
		out = append(out, l.entries[idx])
	}
	return out
}

// Snapshot returns the formatted lines, newest first.
func (l *Logger) Snapshot() []string {
	entries := l.Entries()
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.String()
	}
	return lines
}

func (l *Logger) Len() int {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.size
}

func (l *Logger) Capacity() int {
	return len(l.entries)
}

func (l *Logger) mirror(entry Entry) {
	if l.logger == nil {
		return
	}
	if strings.HasPrefix(entry.Message, ErrorPrefix) {
		l.logger.Error(entry.Message)
		return
	}
	l.logger.Info(entry.Message)
}
