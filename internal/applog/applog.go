// Package applog centralizes zerolog setup so every component logs with the
// same structured, key-value idiom: component name as a field rather than a
// formatted prefix, errors attached via .Err(), not %v'd into the message.
package applog

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu      sync.Mutex
	out     io.Writer = os.Stderr
	level             = zerolog.InfoLevel
	ringBuf           = newRing(2000)
)

// SetLevel sets the process-wide minimum log level.
func SetLevel(l zerolog.Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
}

// RecentLines returns the most recent log lines, oldest first, for the
// /api/logs text/plain ring buffer endpoint.
func RecentLines() []string {
	return ringBuf.snapshot()
}

// For returns a logger tagged with component=name.
func For(name string) zerolog.Logger {
	mu.Lock()
	w := io.MultiWriter(out, ringBuf)
	lvl := level
	mu.Unlock()
	return zerolog.New(w).Level(lvl).With().Timestamp().Str("component", name).Logger()
}

// ring is a fixed-capacity circular buffer of log lines, written to by every
// component logger and read by the /api/logs HTTP handler.
type ring struct {
	mu   sync.Mutex
	buf  []string
	next int
	full bool
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]string, capacity)}
}

func (r *ring) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf[r.next] = string(p)
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
	return len(p), nil
}

func (r *ring) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.full {
		out := make([]string, r.next)
		copy(out, r.buf[:r.next])
		return out
	}
	out := make([]string, len(r.buf))
	copy(out, r.buf[r.next:])
	copy(out[len(r.buf)-r.next:], r.buf[:r.next])
	return out
}
