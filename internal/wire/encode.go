package wire

import (
	"fmt"
	"io"
	"sync"
)

// Encoder writes one record per line. It is safe for concurrent use.
type Encoder struct {
	mu sync.Mutex
	w  io.Writer
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes r followed by a newline in a single Write call.
func (e *Encoder) Encode(r Record) error {
	if r.Kind < Size || r.Kind > Finished {
		return fmt.Errorf("encode: unknown record kind %d", int(r.Kind))
	}
	line := append([]byte(r.String()), '\n')

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.w.Write(line); err != nil {
		return fmt.Errorf("encode %s: %w", r.Kind, err)
	}
	return nil
}
