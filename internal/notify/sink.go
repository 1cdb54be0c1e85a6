package notify

import (
	"fmt"
	"io"
	"sync"
)

var symbols = map[Severity]string{
	SeveritySuccess: "✔",
	SeverityError:   "✖",
	SeverityWarning: "!",
	SeverityInfo:    "i",
}

// WriterSink prints each notification as a single line. Dismissals are not
// rendered, a terminal cannot take a line back.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSink creates a sink writing to w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Show(n Notification) {
	symbol, ok := symbols[n.Severity]
	if !ok {
		symbol = "-"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fmt.Fprintf(s.w, "%s %s\n", symbol, n.Message)
}

func (s *WriterSink) Dismiss(string) {}
