package job

import (
	"bytes"
	"encoding/json"
	"strings"
)

// lineParser splits a byte stream into lines across arbitrary chunk
// boundaries. A partial line is buffered until its terminator arrives;
// Flush emits whatever remains when the stream closes.
type lineParser struct {
	buf []byte
}

// Feed consumes one chunk, invoking emit once per completed line with
// the terminator stripped.
func (p *lineParser) Feed(chunk []byte, emit func(line string)) {
	p.buf = append(p.buf, chunk...)

	for {
		i := bytes.IndexByte(p.buf, '\n')
		if i < 0 {
			return
		}
		line := strings.TrimSuffix(string(p.buf[:i]), "\r")
		p.buf = p.buf[i+1:]
		emit(line)
	}
}

// Flush emits a trailing line that never saw its terminator. No-op when
// the buffer is empty.
func (p *lineParser) Flush(emit func(line string)) {
	if len(p.buf) == 0 {
		return
	}
	line := strings.TrimSuffix(string(p.buf), "\r")
	p.buf = nil
	emit(line)
}

// parseProgress attempts to read a stdout line as a structured progress
// event. A line that is not a JSON object with a stage token is not an
// error; it is delivered as a raw line instead.
func parseProgress(line string) (ProgressEvent, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") {
		return ProgressEvent{}, false
	}

	var ev ProgressEvent
	if err := json.Unmarshal([]byte(trimmed), &ev); err != nil {
		return ProgressEvent{}, false
	}
	if ev.Stage == "" {
		return ProgressEvent{}, false
	}

	return ev, true
}
