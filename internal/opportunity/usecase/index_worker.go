package usecase

import (
	"context"
	"sync"
	"time"

	"hyperagent/internal/opportunity/domain"
	"hyperagent/internal/opportunity/repository"
	"hyperagent/pkg/chroma"
	"hyperagent/pkg/logging"
)

// IndexWorker keeps the semantic index in step with opportunity events.
// Jobs are queued without blocking and embedded by a small worker pool.
type IndexWorker struct {
	oppRepo     repository.OpportunityRepository
	index       SemanticIndex
	logger      logging.Logger
	jobQueue    chan string
	workerWg    sync.WaitGroup
	workerCount int
	started     bool
	mu          sync.Mutex
}

func NewIndexWorker(oppRepo repository.OpportunityRepository, index SemanticIndex, workerCount int, logger logging.Logger) *IndexWorker {
	if workerCount <= 0 {
		workerCount = 2
	}
	return &IndexWorker{
		oppRepo:     oppRepo,
		index:       index,
		logger:      logger,
		jobQueue:    make(chan string, 500),
		workerCount: workerCount,
	}
}

func (w *IndexWorker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return
	}
	for i := 0; i < w.workerCount; i++ {
		w.workerWg.Add(1)
		go w.worker()
	}
	w.started = true
	w.logger.WithField("workers", w.workerCount).Info("Index workers started")
}

// Stop drains the queue and waits for in-flight jobs
func (w *IndexWorker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	close(w.jobQueue)
	w.workerWg.Wait()
	w.started = false
}

func (w *IndexWorker) worker() {
	defer w.workerWg.Done()
	for id := range w.jobQueue {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := w.IndexOpportunity(ctx, id); err != nil {
			w.logger.WithError(err).WithField("opportunity_id", id).Warn("Failed to index opportunity")
		}
		cancel()
	}
}

// HandleEvent queues the event's opportunity for (re)indexing. It reports
// false when the queue is full.
func (w *IndexWorker) HandleEvent(_ context.Context, event domain.Event) bool {
	if event.Type != domain.EventCreated && event.Type != domain.EventClassified {
		return true
	}
	select {
	case w.jobQueue <- event.OpportunityID:
		return true
	default:
		return false
	}
}

// IndexOpportunity embeds the current version of one opportunity
func (w *IndexWorker) IndexOpportunity(ctx context.Context, id string) error {
	opp, err := w.oppRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if opp == nil {
		return nil
	}
	sender := opp.SenderHandle
	if opp.SenderName != "" {
		sender = opp.SenderName + " " + sender
	}
	return w.index.Upsert(ctx, chroma.Document{
		OpportunityID: opp.ID,
		CelebrityID:   opp.CelebrityID,
		Source:        string(opp.Source),
		SenderHandle:  sender,
		Subject:       opp.Subject,
		Message:       opp.InitialMessage,
	})
}
