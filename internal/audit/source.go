package audit

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/storagehub/storaged/internal/apperr"
)

// changeStreamSource adapts a MongoDB change stream to EventSource.
type changeStreamSource struct {
	cs *mongo.ChangeStream
}

// OpenChangeStream subscribes to a collection's change feed, filtered
// to insert, update, replace and delete events.
func OpenChangeStream(ctx context.Context, col *mongo.Collection) (EventSource, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"operationType": bson.M{"$in": bson.A{OpInsert, OpUpdate, OpReplace, OpDelete}},
		}}},
	}
	opts := options.ChangeStream().SetFullDocument(options.Default)
	cs, err := col.Watch(ctx, pipeline, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: watch %s: %v", apperr.ErrUnavailable, col.Name(), err)
	}
	return &changeStreamSource{cs: cs}, nil
}

func (s *changeStreamSource) Next(ctx context.Context) (*Event, error) {
	if s.cs.Next(ctx) {
		var ev Event
		if err := s.cs.Decode(&ev); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadEvent, err)
		}
		return &ev, nil
	}
	if err := s.cs.Err(); err != nil {
		return nil, err
	}
	return nil, context.Canceled
}

func (s *changeStreamSource) Close(ctx context.Context) error {
	return s.cs.Close(ctx)
}
