package audit

import (
	"context"
	"errors"
	"sync"

	"github.com/storagehub/storaged/pkg/logger"
	"github.com/storagehub/storaged/pkg/metrics"
)

// ErrBadEvent marks a delivered event that could not be decoded. The
// watcher logs it and moves on instead of ending the subscription.
var ErrBadEvent = errors.New("undecodable change event")

// Appender is the audit sink the watcher writes to.
type Appender interface {
	Append(ctx context.Context, rec *Record) error
}

// EventSource yields committed change events for one collection. Next
// blocks until an event arrives, the subscription fails, or ctx is
// canceled.
type EventSource interface {
	Next(ctx context.Context) (*Event, error)
	Close(ctx context.Context) error
}

// Watcher runs one task per tracked collection and appends one record
// per delivered event. It only ever sees committed mutations, so it
// never blocks or rejects the write that produced an event. Records for
// one collection are appended in delivery order; there is no ordering
// across collections.
//
// Known gap, kept from the observed behavior: when a subscription fails
// the task for that collection ends without resubscribing. A resume
// token with backoff would fix this but is deliberately not added here.
type Watcher struct {
	sink Appender
	wg   sync.WaitGroup
}

func NewWatcher(sink Appender) *Watcher {
	return &Watcher{sink: sink}
}

// Watch starts the task for one collection. Cancel ctx to stop it;
// cancellation is observed between events, never mid-event, so the
// record for an already dequeued event is still written.
func (w *Watcher) Watch(ctx context.Context, collection string, src EventSource) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer src.Close(context.Background())
		w.run(ctx, collection, src)
	}()
}

// Wait blocks until every watch task has stopped.
func (w *Watcher) Wait() { w.wg.Wait() }

func (w *Watcher) run(ctx context.Context, collection string, src EventSource) {
	logger.Infof("audit watcher started for %s", collection)
	for {
		ev, err := src.Next(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				logger.Infof("audit watcher for %s stopping", collection)
				return
			}
			if errors.Is(err, ErrBadEvent) {
				logger.Errorf("audit watcher for %s: %v", collection, err)
				metrics.AuditFailures.WithLabelValues(collection).Inc()
				continue
			}
			logger.Errorf("audit watcher for %s: subscription lost: %v", collection, err)
			metrics.AuditFailures.WithLabelValues(collection).Inc()
			return
		}

		rec := FromEvent(collection, ev)
		if err := w.sink.Append(ctx, rec); err != nil {
			// best effort: skip the record, keep the subscription
			logger.Errorf("audit append for %s: %v", collection, err)
			metrics.AuditFailures.WithLabelValues(collection).Inc()
			continue
		}
		metrics.AuditRecords.WithLabelValues(collection, rec.OperationType).Inc()
		logger.Debugf("%s on %s %v", rec.OperationType, collection, rec.DocumentKey)
	}
}
