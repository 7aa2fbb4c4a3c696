package publisher

import (
	"math/rand/v2"
	"sync"

	audit "studentreg/pkg/platform/audit"
)

// Sampler keeps a fraction of operations events per action.
type Sampler struct {
	mu           sync.RWMutex
	defaultRate  float64
	rateByAction map[audit.Action]float64
	rand         func() float64
}

// NewSampler keeps defaultRate of events (0 keeps none, 1 keeps all).
func NewSampler(defaultRate float64) *Sampler {
	return &Sampler{
		defaultRate:  clamp(defaultRate),
		rateByAction: make(map[audit.Action]float64),
		rand:         rand.Float64,
	}
}

// SetRate overrides the rate for one action.
func (s *Sampler) SetRate(action audit.Action, rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rateByAction[action] = clamp(rate)
}

// Keep reports whether an event with action should be recorded.
func (s *Sampler) Keep(action audit.Action) bool {
	s.mu.RLock()
	rate, ok := s.rateByAction[action]
	if !ok {
		rate = s.defaultRate
	}
	s.mu.RUnlock()
	switch rate {
	case 0:
		return false
	case 1:
		return true
	}
	return s.rand() < rate
}

func clamp(rate float64) float64 {
	return min(max(rate, 0), 1)
}
