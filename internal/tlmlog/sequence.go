package tlmlog

// SequenceTracker follows the 8-bit rolling counter across records.
type SequenceTracker struct {
	prev   uint8
	primed bool
	gaps   int
}

// Observe records counter and reports whether it broke the sequence.
// The first observation only primes the tracker. Missing is the number of
// records skipped, modulo 256.
func (s *SequenceTracker) Observe(counter uint8) (gap bool, expected uint8, missing int) {
	if !s.primed {
		s.prev, s.primed = counter, true
		return false, counter, 0
	}
	expected = s.prev + 1
	s.prev = counter
	if counter == expected {
		return false, expected, 0
	}
	s.gaps++
	return true, expected, int(counter - expected)
}

func (s *SequenceTracker) Gaps() int {
	return s.gaps
}

func (s *SequenceTracker) Reset() {
	*s = SequenceTracker{}
}
