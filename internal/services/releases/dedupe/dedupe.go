// Package dedupe drops repeated rows, keeping the first occurrence of each key
package dedupe

import dom "ottscout/internal/services/releases/domain"

// Set remembers admitted row keys for one run
type Set struct {
	seen    map[string]struct{}
	dropped int
}

// New returns an empty Set
func New() *Set { return &Set{seen: map[string]struct{}{}} }

// Admit reports whether row is the first with its key and records it
func (s *Set) Admit(row dom.CanonicalRow) bool {
	k := row.Key()
	if _, ok := s.seen[k]; ok {
		s.dropped++
		return false
	}
	s.seen[k] = struct{}{}
	return true
}

// Unique returns the admitted subset of rows in input order
func (s *Set) Unique(rows []dom.CanonicalRow) []dom.CanonicalRow {
	out := make([]dom.CanonicalRow, 0, len(rows))
	for _, r := range rows {
		if s.Admit(r) {
			out = append(out, r)
		}
	}
	return out
}

// Len returns the number of distinct keys seen
func (s *Set) Len() int { return len(s.seen) }

// Dropped returns how many duplicates were rejected
func (s *Set) Dropped() int { return s.dropped }
