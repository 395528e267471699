package log

import (
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"
	"unicode/utf8"
)

// RawLogger records inbound payloads verbatim for protocol debugging.
type RawLogger interface {
	Log(source string, data []byte)
}

type rawLogger struct {
	w  io.Writer
	mu sync.Mutex
}

// NewRaw creates a RawLogger writing to w. A nil writer discards everything.
func NewRaw(w io.Writer) RawLogger {
	return &rawLogger{w: w}
}

// Log writes one line per payload. Text payloads are quoted; anything that
// is not valid UTF-8 is hex dumped.
func (r *rawLogger) Log(source string, data []byte) {
	if r.w == nil || len(data) == 0 {
		return
	}

	var body string
	if utf8.Valid(data) {
		body = "text: " + strconv.Quote(string(data))
	} else {
		body = fmt.Sprintf("hex: % x", data)
	}
	line := fmt.Sprintf("%s C->S [%s] %d bytes, %s\n",
		time.Now().Format("2006/01/02 15:04:05.000"),
		source,
		len(data),
		body)

	r.mu.Lock()
	_, _ = io.WriteString(r.w, line)
	r.mu.Unlock()
}
