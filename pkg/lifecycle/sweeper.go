package lifecycle

import (
	"context"
	"log"
	"time"
)

// Sweeper drives SweepExpired on a fixed interval, starting with one pass at
// startup. Errors are logged and left for the next cycle; the sweep never
// crashes the process.
type Sweeper struct {
	Manager  *Manager
	Interval time.Duration
}

// Run blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	s.runOnce()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce()
		}
	}
}

func (s *Sweeper) runOnce() {
	n, err := s.Manager.SweepExpired(s.Manager.now())
	if err != nil {
		log.Printf("retention sweep failed (will retry next cycle): %v", err)
		return
	}
	if n > 0 {
		log.Printf("retention sweep purged %d expired records", n)
	}
}
