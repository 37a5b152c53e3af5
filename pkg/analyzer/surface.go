package analyzer

import (
	"fmt"
	"io"
	"sync"
)

// StatusSurface is the UI element a scan reports into.
type StatusSurface interface {
	Render(status Status)
}

// Display is an in-memory surface. Overlapping scans are not serialized:
// whichever render arrives last is the current status.
type Display struct {
	mu      sync.RWMutex
	current Status
	history []Status
}

func NewDisplay() *Display {
	return &Display{}
}

func (d *Display) Render(status Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.current = status
	d.history = append(d.history, status)
}

// Current returns the latest rendered status.
func (d *Display) Current() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.current
}

// History returns every rendered status in arrival order.
func (d *Display) History() []Status {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Status, len(d.history))
	copy(out, d.history)
	return out
}

// WriterSurface prints one line per rendered status.
type WriterSurface struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterSurface(w io.Writer) *WriterSurface {
	return &WriterSurface{w: w}
}

func (s *WriterSurface) Render(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = fmt.Fprintf(s.w, "[%s] %s\n", status.Style, status.Message)
}
