package service

import (
	"context"
	"sync"
	"time"

	"github.com/vhm24/taskflow/internal/domain/repository"
	"github.com/vhm24/taskflow/pkg/logger"
)

// SweepService expires idle sessions in the background. Each pass lists
// sessions idle past the threshold and reverts their tasks under the same
// per-actor exclusion scope the workflow service uses, so a late submission
// and an expiry never interleave. Failed reverts are logged and retried on
// the next cycle.
type SweepService interface {
	// Start launches the periodic sweep
	Start(ctx context.Context) error

	// Stop halts the sweep and waits for an in-flight pass to finish
	Stop() error

	// SweepOnce runs a single pass; returns the number of reverted sessions
	SweepOnce(ctx context.Context) (int, error)
}

// SweepServiceConfig holds configuration for the sweep service
type SweepServiceConfig struct {
	IdleTimeout       time.Duration // Session idle threshold
	SweepInterval     time.Duration // Pass frequency
	DependencyTimeout time.Duration // Bounded wait on the session store
}

// DefaultSweepServiceConfig returns default configuration
func DefaultSweepServiceConfig() SweepServiceConfig {
	return SweepServiceConfig{
		IdleTimeout:       30 * time.Minute,
		SweepInterval:     60 * time.Second,
		DependencyTimeout: 5 * time.Second,
	}
}

// SweepServiceImpl implements SweepService
type SweepServiceImpl struct {
	sessions repository.SessionRepository
	workflow WorkflowService
	config   SweepServiceConfig
	log      logger.Logger

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewSweepService creates a sweep service
func NewSweepService(
	sessions repository.SessionRepository,
	workflow WorkflowService,
	config SweepServiceConfig,
	log logger.Logger,
) SweepService {
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = DefaultSweepServiceConfig().IdleTimeout
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = DefaultSweepServiceConfig().SweepInterval
	}
	if config.DependencyTimeout <= 0 {
		config.DependencyTimeout = DefaultSweepServiceConfig().DependencyTimeout
	}
	return &SweepServiceImpl{
		sessions: sessions,
		workflow: workflow,
		config:   config,
		log:      log,
	}
}

// Start launches the periodic sweep goroutine
func (s *SweepServiceImpl) Start(ctx context.Context) error {
	sweepCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(sweepCtx)
	return nil
}

// Stop halts the sweep
func (s *SweepServiceImpl) Stop() error {
	s.stopOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		s.wg.Wait()
	})
	return nil
}

func (s *SweepServiceImpl) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if count, err := s.SweepOnce(ctx); err != nil {
				s.log.Warn("sweep pass failed", "error", err)
			} else if count > 0 {
				s.log.Info("idle sessions reverted", "count", count)
			}
		}
	}
}

// SweepOnce reverts every session idle past the threshold
func (s *SweepServiceImpl) SweepOnce(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-s.config.IdleTimeout)
	dctx, cancel := context.WithTimeout(ctx, s.config.DependencyTimeout)
	expired, err := s.sessions.ListIdleSince(dctx, cutoff)
	cancel()
	if err != nil {
		return 0, depErr(err)
	}

	reverted := 0
	for _, sess := range expired {
		ok, err := s.workflow.RevertIdle(ctx, sess.ActorID(), s.config.IdleTimeout)
		if err != nil {
			// Retried on the next cycle.
			s.log.Warn("idle revert failed", "actor", sess.ActorID().String(), "error", err)
			continue
		}
		if ok {
			reverted++
		}
	}
	return reverted, nil
}
