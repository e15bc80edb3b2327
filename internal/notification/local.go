package notification

import (
	"context"
	"sync"

	oppdomain "hyperagent/internal/opportunity/domain"
	"hyperagent/pkg/logging"
)

// LocalPublisher delivers events to the dispatcher inside this process.
// It is used when Pub/Sub is not configured.
type LocalPublisher struct {
	dispatcher *Dispatcher
	queue      chan oppdomain.Event
	logger     logging.Logger
	wg         sync.WaitGroup
	once       sync.Once
}

func NewLocalPublisher(dispatcher *Dispatcher, buffer int, logger logging.Logger) *LocalPublisher {
	if buffer <= 0 {
		buffer = 256
	}
	p := &LocalPublisher{
		dispatcher: dispatcher,
		queue:      make(chan oppdomain.Event, buffer),
		logger:     logger,
	}
	p.wg.Add(1)
	go p.run()
	return p
}

func (p *LocalPublisher) run() {
	defer p.wg.Done()
	for event := range p.queue {
		p.dispatcher.Dispatch(context.Background(), event)
	}
}

// Publish never blocks; a full queue drops the event.
func (p *LocalPublisher) Publish(_ context.Context, event oppdomain.Event) {
	defer func() {
		// publishing after Close
		if recover() != nil {
			p.logger.WithField("type", event.Type).Warn("Event publisher closed, dropping event")
		}
	}()
	select {
	case p.queue <- event:
	default:
		p.logger.WithFields(logging.Fields{
			"type":           event.Type,
			"opportunity_id": event.OpportunityID,
		}).Warn("Event queue full, dropping event")
	}
}

// Close drains queued events
func (p *LocalPublisher) Close() {
	p.once.Do(func() { close(p.queue) })
	p.wg.Wait()
}
