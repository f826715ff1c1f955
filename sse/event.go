package sse

import (
	"bufio"
	"io"
	"strings"
)

// maxEventSize bounds one line of the event stream. Tool results may be
// large JSON documents delivered in a single data line.
const maxEventSize = 4 << 20

// event is one server-sent event.
type event struct {
	name string
	data string
}

// eventReader splits an event stream into events.
type eventReader struct {
	scanner *bufio.Scanner
}

func newEventReader(r io.Reader) *eventReader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxEventSize)
	return &eventReader{scanner: s}
}

// next reads lines until a complete event is assembled. Events without data
// are skipped. Returns io.EOF when the stream ends.
func (r *eventReader) next() (event, error) {
	var ev event
	var data []string
	for r.scanner.Scan() {
		line := r.scanner.Text()
		if line == "" {
			if len(data) > 0 {
				ev.data = strings.Join(data, "\n")
				return ev, nil
			}
			ev = event{}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			ev.name = value
		case "data":
			data = append(data, value)
		}
	}
	if err := r.scanner.Err(); err != nil {
		return event{}, err
	}
	if len(data) > 0 {
		ev.data = strings.Join(data, "\n")
		return ev, nil
	}
	return event{}, io.EOF
}
