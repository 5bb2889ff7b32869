package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/energydatahub/energyhub/internal/logger"
)

// Scheduler triggers a multi-source run on a fixed interval. The first
// run fires immediately on Start.
type Scheduler struct {
	orch   *Orchestrator
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running bool
}

func NewScheduler(orch *Orchestrator) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		orch:   orch,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true

	s.wg.Add(1)
	go s.loop()
	logger.Infof("Scheduler started (interval: %s)", s.orch.cfg.Interval)
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	logger.Info("Scheduler stopped")
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.orch.cfg.Interval)
	defer ticker.Stop()

	s.orch.RunAll(s.ctx)

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.orch.RunAll(s.ctx)
		}
	}
}
