package sse

import "io"

// ReadEvents returns the name and data of every event in r. Exported for testing.
func ReadEvents(r io.Reader) ([][2]string, error) {
	er := newEventReader(r)
	var out [][2]string
	for {
		ev, err := er.next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, [2]string{ev.name, ev.data})
	}
}
