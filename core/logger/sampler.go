package logger

import (
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// ratioSampler passes num of every den events. A zero ratio passes everything.
type ratioSampler struct {
	mu  sync.RWMutex
	num uint64
	den uint64
	n   atomic.Uint64
}

func newRatioSampler(num, den int) *ratioSampler {
	s := &ratioSampler{}
	s.Set(num, den)
	return s
}

// Set replaces the ratio and restarts the cycle. num is capped at den.
func (s *ratioSampler) Set(num, den int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if num <= 0 || den <= 0 {
		s.num, s.den = 0, 0
	} else {
		s.num, s.den = uint64(min(num, den)), uint64(den)
	}
	s.n.Store(0)
}

// Allow reports whether the next event passes.
func (s *ratioSampler) Allow() bool {
	s.mu.RLock()
	num, den := s.num, s.den
	s.mu.RUnlock()
	if den == 0 {
		return true
	}
	return (s.n.Add(1)-1)%den < num
}

// parseRatioSpec reads "N/M" or "M" (meaning 1/M). Anything unparsable or
// non-positive yields 0/0.
func parseRatioSpec(spec string) (int, int) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return 0, 0
	}
	if a, b, ok := strings.Cut(spec, "/"); ok {
		num, err1 := strconv.Atoi(strings.TrimSpace(a))
		den, err2 := strconv.Atoi(strings.TrimSpace(b))
		if err1 != nil || err2 != nil {
			return 0, 0
		}
		return num, den
	}
	v, err := strconv.Atoi(spec)
	if err != nil || v <= 0 {
		return 0, 0
	}
	return 1, v
}
