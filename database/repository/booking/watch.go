package bookingRepo

import (
	"context"
	"fmt"

	"telecare/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type changeEvent struct {
	FullDocument *models.Booking `bson:"fullDocument"`
}

// WatchBooking sends the current booking, then the post-image of every change
// to it, until ctx is done.
func (repo *MongoBookingRepo) WatchBooking(ctx context.Context, bookingID string) (<-chan models.Booking, error) {
	initial, err := repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	stream, err := repo.openStream(ctx, bson.M{"fullDocument.id": bookingID})
	if err != nil {
		return nil, err
	}

	out := make(chan models.Booking, 1)
	out <- *initial
	go func() {
		defer close(out)
		defer stream.Close(context.Background())
		for stream.Next(ctx) {
			var ev changeEvent
			if err := stream.Decode(&ev); err != nil || ev.FullDocument == nil {
				continue
			}
			select {
			case out <- *ev.FullDocument:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// WatchQueue re-reads and sends the queue whenever a booking of that
// professional/date changes.
func (repo *MongoBookingRepo) WatchQueue(ctx context.Context, professionalID, date string) (<-chan []models.Booking, error) {
	initial, err := repo.ListQueue(ctx, professionalID, date)
	if err != nil {
		return nil, err
	}
	stream, err := repo.openStream(ctx, bson.M{
		"fullDocument.professionalId": professionalID,
		"fullDocument.date":           date,
	})
	if err != nil {
		return nil, err
	}

	out := make(chan []models.Booking, 1)
	out <- initial
	go func() {
		defer close(out)
		defer stream.Close(context.Background())
		for stream.Next(ctx) {
			queue, err := repo.ListQueue(ctx, professionalID, date)
			if err != nil {
				continue
			}
			select {
			case out <- queue:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (repo *MongoBookingRepo) openStream(ctx context.Context, match bson.M) (*mongo.ChangeStream, error) {
	match["operationType"] = bson.M{"$in": bson.A{"insert", "update", "replace"}}
	pipeline := mongo.Pipeline{{{Key: "$match", Value: match}}}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	stream, err := repo.bookingColl.Watch(ctx, pipeline, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open booking change stream: %w", err)
	}
	return stream, nil
}
