package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type sourceStep struct {
	ev  *Event
	err error
}

// scriptedSource replays a fixed sequence of events and errors, then
// blocks until the context is canceled.
type scriptedSource struct {
	mu     sync.Mutex
	steps  []sourceStep
	closed bool
}

func (s *scriptedSource) Next(ctx context.Context) (*Event, error) {
	s.mu.Lock()
	if len(s.steps) > 0 {
		step := s.steps[0]
		s.steps = s.steps[1:]
		s.mu.Unlock()
		return step.ev, step.err
	}
	s.mu.Unlock()
	<-ctx.Done()
	return nil, ctx.Err()
}

func (s *scriptedSource) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type recordingSink struct {
	mu      sync.Mutex
	records []*Record
	fail    int // fail the next n appends
}

func (r *recordingSink) Append(_ context.Context, rec *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail > 0 {
		r.fail--
		return errors.New("sink unavailable")
	}
	r.records = append(r.records, rec)
	return nil
}

func (r *recordingSink) snapshot() []*Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Record(nil), r.records...)
}

func insertEvent() *Event {
	return &Event{OperationType: OpInsert, DocumentKey: bson.M{"_id": primitive.NewObjectID()}}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestWatcher_AppendsOneRecordPerEvent(t *testing.T) {
	src := &scriptedSource{steps: []sourceStep{
		{ev: insertEvent()},
		{ev: &Event{OperationType: OpDelete, DocumentKey: bson.M{"_id": primitive.NewObjectID()}}},
	}}
	sink := &recordingSink{}
	w := NewWatcher(sink)

	ctx, cancel := context.WithCancel(context.Background())
	w.Watch(ctx, "Bin", src)

	waitFor(t, func() bool { return len(sink.snapshot()) == 2 })
	cancel()
	w.Wait()

	recs := sink.snapshot()
	require.Equal(t, OpInsert, recs[0].OperationType)
	require.Equal(t, OpDelete, recs[1].OperationType)
	for _, rec := range recs {
		require.Equal(t, "Bin", rec.CollectionName)
		require.NotEmpty(t, rec.DocumentKey)
	}
	require.True(t, src.closed)
}

func TestWatcher_CancelStopsTask(t *testing.T) {
	src := &scriptedSource{}
	w := NewWatcher(&recordingSink{})

	ctx, cancel := context.WithCancel(context.Background())
	w.Watch(ctx, "Bin", src)
	cancel()
	w.Wait()

	require.True(t, src.closed)
}

func TestWatcher_AppendFailureSkipsRecord(t *testing.T) {
	src := &scriptedSource{steps: []sourceStep{
		{ev: insertEvent()},
		{ev: insertEvent()},
	}}
	sink := &recordingSink{fail: 1}
	w := NewWatcher(sink)

	ctx, cancel := context.WithCancel(context.Background())
	w.Watch(ctx, "Bin", src)

	waitFor(t, func() bool { return len(sink.snapshot()) == 1 })
	cancel()
	w.Wait()

	require.Len(t, sink.snapshot(), 1)
}

func TestWatcher_BadEventIsSkipped(t *testing.T) {
	src := &scriptedSource{steps: []sourceStep{
		{err: ErrBadEvent},
		{ev: insertEvent()},
	}}
	sink := &recordingSink{}
	w := NewWatcher(sink)

	ctx, cancel := context.WithCancel(context.Background())
	w.Watch(ctx, "Bin", src)

	waitFor(t, func() bool { return len(sink.snapshot()) == 1 })
	cancel()
	w.Wait()
}

func TestWatcher_SubscriptionLossEndsTask(t *testing.T) {
	src := &scriptedSource{steps: []sourceStep{
		{ev: insertEvent()},
		{err: errors.New("stream broken")},
	}}
	sink := &recordingSink{}
	w := NewWatcher(sink)

	// no cancellation: the terminal error alone must end the task
	w.Watch(context.Background(), "Bin", src)
	w.Wait()

	require.Len(t, sink.snapshot(), 1)
	require.True(t, src.closed)
}
