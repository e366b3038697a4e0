// Package testkit provides testing helpers
package testkit

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// MustPanic asserts that fn panics
func MustPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic, got none")
		}
	}()
	fn()
}

// MustContain asserts that haystack contains needle. On failure the haystack is written to a temp file
func MustContain(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		tmpfile := filepath.Join(t.TempDir(), "output.txt")
		_ = os.WriteFile(tmpfile, []byte(haystack), 0o600)
		t.Fatalf("expected output to contain %q\n\nfull output written to %s", needle, tmpfile)
	}
}

// Swap replaces a package-level variable for the duration of the test and restores it after
func Swap[T any](t *testing.T, target *T, replacement T) {
	t.Helper()
	orig := *target
	*target = replacement
	t.Cleanup(func() { *target = orig })
}

// Sleeps records requested sleep durations without blocking
// Pass its Sleep method wherever a func(time.Duration) is injected
type Sleeps struct {
	mu  sync.Mutex
	got []time.Duration
}

// Sleep records d
func (s *Sleeps) Sleep(d time.Duration) {
	s.mu.Lock()
	s.got = append(s.got, d)
	s.mu.Unlock()
}

// All returns a copy of the recorded durations
func (s *Sleeps) All() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.got...)
}

// Count returns how many sleeps were recorded
func (s *Sleeps) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.got)
}
