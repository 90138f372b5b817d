package bookingRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes backing lookups, sweeps and slot uniqueness.
func (repo *MongoBookingRepo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	held := func(field string) bson.M {
		return bson.M{field: bson.M{"$exists": true}}
	}

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_id"),
		},
		{
			Keys:    bson.D{{Key: "slotKey", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(slotKeyIndex).SetPartialFilterExpression(held("slotKey")),
		},
		{
			Keys:    bson.D{{Key: "pairKey", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(pairKeyIndex).SetPartialFilterExpression(held("pairKey")),
		},
		{
			Keys:    bson.D{{Key: "emergencyKey", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(emergencyKeyIndex).SetPartialFilterExpression(held("emergencyKey")),
		},
		// Availability, capacity and queue lookups.
		{
			Keys:    bson.D{{Key: "professionalId", Value: 1}, {Key: "date", Value: 1}, {Key: "status", Value: 1}, {Key: "scheduledAt", Value: 1}},
			Options: options.Index().SetName("professional_date_status_idx"),
		},
		{
			Keys:    bson.D{{Key: "patientId", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("patient_status_idx"),
		},
		// Sweeps.
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "scheduledAt", Value: 1}},
			Options: options.Index().SetName("status_scheduled_idx"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "emergencyDeadline", Value: 1}},
			Options: options.Index().SetName("status_deadline_idx"),
		},
	}
	if _, err := repo.bookingColl.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create booking indexes: %w", err)
	}

	_, err := repo.capacityColl.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "key", Value: 1}},
		Options: options.Index().SetUnique(true).SetName(capacityKeyIndex),
	})
	if err != nil {
		return fmt.Errorf("failed to create capacity index: %w", err)
	}
	return nil
}
