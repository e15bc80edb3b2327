package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hyperagent/internal/classification/domain"
	oppdomain "hyperagent/internal/opportunity/domain"
	opprepo "hyperagent/internal/opportunity/repository"
	"hyperagent/pkg/ai"
	"hyperagent/pkg/lock"
	"hyperagent/pkg/logging"
	"hyperagent/pkg/metrics"

	"golang.org/x/sync/errgroup"
)

const sweepLockKey = "classification-sweep"

// SweepUsecase classifies the backlog of unscored opportunities
type SweepUsecase interface {
	RunSweep(ctx context.Context) (*domain.SweepReport, error)
}

type Config struct {
	BatchSize      int
	Concurrency    int
	Timeout        time.Duration
	NotifyMinScore int
}

type sweepUsecase struct {
	oppRepo    opprepo.OpportunityRepository
	goalRepo   opprepo.GoalRepository
	classifier ai.Classifier
	locker     lock.Locker
	publisher  oppdomain.EventPublisher
	cfg        Config
	logger     logging.Logger
	now        func() time.Time
}

func NewSweepUsecase(
	oppRepo opprepo.OpportunityRepository,
	goalRepo opprepo.GoalRepository,
	classifier ai.Classifier,
	locker lock.Locker,
	publisher oppdomain.EventPublisher,
	cfg Config,
	logger logging.Logger,
) SweepUsecase {
	if publisher == nil {
		publisher = oppdomain.NopPublisher{}
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.NotifyMinScore <= 0 {
		cfg.NotifyMinScore = 4
	}
	return &sweepUsecase{
		oppRepo:    oppRepo,
		goalRepo:   goalRepo,
		classifier: classifier,
		locker:     locker,
		publisher:  publisher,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

func (u *sweepUsecase) RunSweep(ctx context.Context) (*domain.SweepReport, error) {
	// The lease outlives the run timeout so a slow sweep never overlaps the next.
	release, err := u.locker.Acquire(ctx, sweepLockKey, u.cfg.Timeout+time.Minute)
	if err != nil {
		if errors.Is(err, lock.ErrHeld) {
			return nil, domain.ErrSweepInProgress
		}
		return nil, fmt.Errorf("acquire sweep lock: %w", err)
	}
	defer func() {
		if err := release(context.Background()); err != nil {
			u.logger.WithError(err).Warn("Failed to release sweep lock")
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, u.cfg.Timeout)
	defer cancel()
	start := time.Now()
	defer metrics.ObserveSweep(start)

	opps, err := u.oppRepo.ListUnclassified(ctx, u.cfg.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list unclassified opportunities: %w", err)
	}
	report := &domain.SweepReport{
		Processed: len(opps),
		Results:   make([]domain.ItemResult, len(opps)),
	}
	if len(opps) == 0 {
		return report, nil
	}

	// Goals are ranking context only; load them once per celebrity.
	goals := make(map[string][]*oppdomain.Goal)
	goalErrs := make(map[string]error)
	for _, opp := range opps {
		if _, seen := goals[opp.CelebrityID]; seen {
			continue
		}
		if _, failed := goalErrs[opp.CelebrityID]; failed {
			continue
		}
		list, err := u.goalRepo.ListByCelebrity(ctx, opp.CelebrityID)
		if err != nil {
			goalErrs[opp.CelebrityID] = err
			continue
		}
		goals[opp.CelebrityID] = list
	}

	var g errgroup.Group
	g.SetLimit(u.cfg.Concurrency)
	for i, opp := range opps {
		if err := goalErrs[opp.CelebrityID]; err != nil {
			report.Results[i] = u.fail(opp, fmt.Errorf("load goals: %w", err))
			continue
		}
		celebrityGoals := goals[opp.CelebrityID]
		g.Go(func() error {
			report.Results[i] = u.classifyOne(ctx, opp, celebrityGoals)
			return nil
		})
	}
	_ = g.Wait()

	counts := map[domain.ItemStatus]int{}
	for _, r := range report.Results {
		counts[r.Status]++
	}
	u.logger.WithFields(logging.Fields{
		"processed": report.Processed,
		"success":   counts[domain.ItemSuccess],
		"failed":    counts[domain.ItemFailed],
		"skipped":   counts[domain.ItemSkipped],
		"duration":  time.Since(start).String(),
	}).Info("Classification sweep finished")
	return report, nil
}

func (u *sweepUsecase) classifyOne(ctx context.Context, opp *oppdomain.Opportunity, goals []*oppdomain.Goal) domain.ItemResult {
	input := ai.ClassificationInput{
		Source:       string(opp.Source),
		SenderHandle: opp.SenderHandle,
		SenderBio:    opp.SenderBio,
		Subject:      opp.Subject,
		Message:      opp.InitialMessage,
		Goals:        make([]ai.Goal, 0, len(goals)),
	}
	for _, g := range goals {
		input.Goals = append(input.Goals, ai.Goal{ID: g.ID, Name: g.Name, Description: g.Description, Priority: g.Priority})
	}

	raw, err := u.classifier.Classify(ctx, input)
	if err != nil {
		return u.fail(opp, err)
	}
	result, err := validateClassification(raw, goals)
	if err != nil {
		return u.fail(opp, err)
	}

	classifiedAt := u.now()
	updated, err := u.oppRepo.ApplyClassification(ctx, opp.ID, result, classifiedAt)
	if err != nil {
		return u.fail(opp, err)
	}
	if !updated {
		metrics.ClassificationResults.WithLabelValues(string(domain.ItemSkipped)).Inc()
		return domain.ItemResult{ID: opp.ID, Status: domain.ItemSkipped}
	}
	metrics.ClassificationResults.WithLabelValues(string(domain.ItemSuccess)).Inc()

	if result.RelevanceScore >= u.cfg.NotifyMinScore {
		classified := *opp
		classified.RelevanceScore = result.RelevanceScore
		classified.Status = result.Status
		classified.GoalID = result.GoalID
		classified.ClassifiedAt = &classifiedAt
		u.publisher.Publish(ctx, oppdomain.NewEvent(oppdomain.EventClassified, &classified))
	}
	return domain.ItemResult{ID: opp.ID, Status: domain.ItemSuccess}
}

func (u *sweepUsecase) fail(opp *oppdomain.Opportunity, err error) domain.ItemResult {
	metrics.ClassificationResults.WithLabelValues(string(domain.ItemFailed)).Inc()
	u.logger.WithError(err).WithField("opportunity_id", opp.ID).Error("Failed to classify opportunity")
	return domain.ItemResult{ID: opp.ID, Status: domain.ItemFailed, Error: err.Error()}
}
