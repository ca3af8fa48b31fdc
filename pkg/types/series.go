package types

import (
	"sort"
	"time"
)

// Sample is one recorded scan outcome.
type Sample struct {
	At     time.Time
	Online bool
}

// Series is an availability history ordered oldest first.
type Series []Sample

// Set records online at instant at, keeping the series time-ordered.
// A sample already recorded at the same instant is replaced.
func (s Series) Set(at time.Time, online bool) Series {
	i := sort.Search(len(s), func(i int) bool { return !s[i].At.Before(at) })
	if i < len(s) && s[i].At.Equal(at) {
		s[i].Online = online
		return s
	}
	s = append(s, Sample{})
	copy(s[i+1:], s[i:])
	s[i] = Sample{At: at, Online: online}
	return s
}

// PruneOlderThan drops samples older than cutoff. Samples are examined
// oldest first and the trim stops at the first sample at or after cutoff.
func (s Series) PruneOlderThan(cutoff time.Time) Series {
	n := 0
	for n < len(s) && s[n].At.Before(cutoff) {
		n++
	}
	return s[n:]
}

// CountOnline returns the number of online samples.
func (s Series) CountOnline() int {
	var n int
	for _, smp := range s {
		if smp.Online {
			n++
		}
	}
	return n
}

// Len returns the number of samples.
func (s Series) Len() int { return len(s) }

// Clone returns an independent copy.
func (s Series) Clone() Series {
	if s == nil {
		return nil
	}
	out := make(Series, len(s))
	copy(out, s)
	return out
}
