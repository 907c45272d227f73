/*
sweeper.go - Periodic pruning of the in-memory revocation list

PURPOSE:
  MemoryRevoker keeps one entry per terminated subject forever. Once the
  token TTL has passed since a termination, every token that entry could
  reject has expired on its own, so the entry can go. RedisRevoker does
  not need this; its keys carry the TTL.

DESIGN:
  - One background goroutine driven by a ticker
  - Prunes once immediately on Start, then every Interval
  - Stop waits for the goroutine to exit

USAGE:
  sweeper := auth.NewSweeper(revoker, tokenTTL, log)
  sweeper.Start()
  defer sweeper.Stop()

SEE ALSO:
  - revoker.go: MemoryRevoker.Prune
  - cmd/server/main.go: Started when REDIS_ADDR is empty
*/
package auth

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sweeper prunes a MemoryRevoker on a fixed interval.
type Sweeper struct {
	revoker  *MemoryRevoker
	ttl      time.Duration
	Interval time.Duration
	log      *zap.Logger
	now      func() time.Time

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewSweeper drops terminations older than tokenTTL. The interval defaults
// to tokenTTL/4, at least one minute.
func NewSweeper(revoker *MemoryRevoker, tokenTTL time.Duration, log *zap.Logger) *Sweeper {
	interval := tokenTTL / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	return &Sweeper{
		revoker:  revoker,
		ttl:      tokenTTL,
		Interval: interval,
		log:      log,
		now:      time.Now,
	}
}

// Start launches the background loop. Calling Start twice is a no-op.
func (s *Sweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.Interval)
	s.stop = make(chan struct{})
	s.wg.Add(1)
	go s.run()

	s.log.Info("revocation sweeper started", zap.Duration("interval", s.Interval))
}

// Stop halts the loop and waits for it to return.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.stop)
	s.wg.Wait()
	s.ticker = nil
	s.log.Info("revocation sweeper stopped")
}

func (s *Sweeper) run() {
	defer s.wg.Done()

	s.RunNow()
	for {
		select {
		case <-s.ticker.C:
			s.RunNow()
		case <-s.stop:
			return
		}
	}
}

// RunNow prunes immediately and returns how many entries were removed.
func (s *Sweeper) RunNow() int {
	removed := s.revoker.Prune(s.now().Add(-s.ttl))
	if removed > 0 {
		s.log.Debug("revocations pruned", zap.Int("removed", removed))
	}
	return removed
}
