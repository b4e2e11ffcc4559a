package cluster

import (
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"

	"github.com/pixveil/pixveil/internal/logging"
)

// Sampler reports this node's current load for the election tie-break.
// Load is a signal, never a correctness input.
type Sampler func() float64

// CPUSampler keeps a rolling CPU utilization reading refreshed on its own
// ticker, so elections read a recent value without blocking on sampling.
type CPUSampler struct {
	mu     sync.RWMutex
	load   float64
	stopCh chan struct{}
}

// NewCPUSampler starts a sampler refreshing every interval
func NewCPUSampler(interval time.Duration, logger *logging.Logger) *CPUSampler {
	s := &CPUSampler{
		stopCh: make(chan struct{}),
	}

	go func() {
		for {
			select {
			case <-s.stopCh:
				return
			default:
			}

			// Percent blocks for the interval and returns utilization
			// over that window
			percents, err := cpu.Percent(interval, false)
			if err != nil || len(percents) == 0 {
				if err != nil {
					logger.Debug("CPU sample failed", "error", err)
				}
				time.Sleep(interval)
				continue
			}

			s.mu.Lock()
			s.load = percents[0]
			s.mu.Unlock()
		}
	}()

	return s
}

// Load returns the most recent CPU reading
func (s *CPUSampler) Load() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load
}

// Stop stops the refresh loop
func (s *CPUSampler) Stop() {
	close(s.stopCh)
}
