package app

import (
	"strings"
	"sync"
)

// logSink collects written log lines, keeping the most recent limit lines,
// and reports every write through notify.
type logSink struct {
	mu     sync.Mutex
	lines  []string
	limit  int
	notify func()
}

func newLogSink(limit int, notify func()) *logSink {
	return &logSink{limit: limit, notify: notify}
}

func (l *logSink) Write(p []byte) (int, error) {
	text := strings.ReplaceAll(string(p), "\r\n", "\n")
	l.mu.Lock()
	for _, part := range strings.Split(text, "\n") {
		if part == "" {
			continue
		}
		l.lines = append(l.lines, part)
	}
	if len(l.lines) > l.limit {
		l.lines = l.lines[len(l.lines)-l.limit:]
	}
	l.mu.Unlock()
	if l.notify != nil {
		l.notify()
	}
	return len(p), nil
}

func (l *logSink) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Join(l.lines, "\n")
}
