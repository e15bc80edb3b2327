package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"hyperagent/internal/classification/domain"
	"hyperagent/internal/classification/usecase"
	"hyperagent/pkg/logging"
)

// SweepScheduler runs the classification sweep on a ticker
type SweepScheduler struct {
	sweeper  usecase.SweepUsecase
	interval time.Duration
	logger   logging.Logger
	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewSweepScheduler creates a scheduler; an interval of zero disables it
func NewSweepScheduler(sweeper usecase.SweepUsecase, interval time.Duration, logger logging.Logger) *SweepScheduler {
	return &SweepScheduler{
		sweeper:  sweeper,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins the scheduler loop
func (s *SweepScheduler) Start() {
	if s.interval <= 0 {
		s.logger.Info("Classification scheduler disabled")
		close(s.done)
		return
	}

	s.logger.WithField("interval", s.interval.String()).Info("Starting classification scheduler")

	go func() {
		defer close(s.done)

		// Run immediately on start
		s.runOnce()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.runOnce()
			case <-s.stopChan:
				s.logger.Info("Classification scheduler stopped")
				return
			}
		}
	}()
}

// Stop ends the loop and waits for an in-flight sweep
func (s *SweepScheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	<-s.done
}

func (s *SweepScheduler) runOnce() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	report, err := s.sweeper.RunSweep(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrSweepInProgress) {
			s.logger.Debug("Sweep already running elsewhere, skipping tick")
			return
		}
		s.logger.WithError(err).Error("Scheduled classification sweep failed")
		return
	}
	if report.Processed > 0 {
		s.logger.WithField("processed", report.Processed).Info("Scheduled classification sweep done")
	}
}
