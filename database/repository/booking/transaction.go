package bookingRepo

import (
	"context"
	"fmt"

	"telecare/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CreateScheduled claims one unit of daily capacity and the slot label in a
// single transaction. Capacity is a guarded $inc on the per-day counter, so
// two writers racing for the last unit serialize on that document; the label
// itself is protected by the unique partial index on slotKey.
func (repo *MongoBookingRepo) CreateScheduled(ctx context.Context, booking *models.Booking, dailyCapacity int) error {
	booking.SlotKey = models.SlotHoldKey(booking.ProfessionalID, booking.Date, booking.Time)
	booking.PairKey = models.PairHoldKey(booking.PatientID, booking.ProfessionalID)
	capKey := models.CapacityKey(booking.ProfessionalID, booking.Date)

	txn := func(sc mongo.SessionContext) (interface{}, error) {
		dup, err := repo.bookingColl.CountDocuments(sc, bson.M{
			"patientId":      booking.PatientID,
			"professionalId": booking.ProfessionalID,
			"status":         activeStatusFilter(),
		})
		if err != nil {
			return nil, fmt.Errorf("duplicate booking check failed: %w", err)
		}
		if dup > 0 {
			return nil, ErrDuplicateActive
		}

		// Matches only while below capacity; at capacity the upsert collides
		// with the existing counter on the unique key.
		_, err = repo.capacityColl.UpdateOne(sc,
			bson.M{"key": capKey, "active": bson.M{"$lt": dailyCapacity}},
			bson.M{
				"$inc":         bson.M{"active": 1},
				"$setOnInsert": bson.M{"professionalId": booking.ProfessionalID, "date": booking.Date},
			},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			if duplicateIndex(err) != "" {
				return nil, ErrSlotTaken
			}
			return nil, fmt.Errorf("capacity reservation failed: %w", err)
		}

		if _, err := repo.bookingColl.InsertOne(sc, booking); err != nil {
			switch duplicateIndex(err) {
			case "":
				return nil, fmt.Errorf("insert booking failed: %w", err)
			case pairKeyIndex:
				return nil, ErrDuplicateActive
			default:
				return nil, ErrSlotTaken
			}
		}
		return nil, nil
	}

	if err := repo.withTransaction(ctx, txn); err != nil {
		booking.ReleaseHolds()
		return err
	}
	return nil
}

// CreateEmergency inserts an emergency booking. The unique partial index on
// emergencyKey rejects a second active emergency for the patient.
func (repo *MongoBookingRepo) CreateEmergency(ctx context.Context, booking *models.Booking) error {
	booking.EmergencyKey = booking.PatientID

	txn := func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := repo.bookingColl.InsertOne(sc, booking); err != nil {
			if duplicateIndex(err) == emergencyKeyIndex {
				return nil, ErrDuplicateEmergency
			}
			return nil, fmt.Errorf("insert emergency booking failed: %w", err)
		}
		return nil, nil
	}
	if err := repo.withTransaction(ctx, txn); err != nil {
		booking.EmergencyKey = ""
		return err
	}
	return nil
}

// ResequenceQueue rewrites queue positions for one professional/date inside a
// transaction. Concurrent resequences of the same key conflict on the
// documents they write and are retried by the driver.
func (repo *MongoBookingRepo) ResequenceQueue(ctx context.Context, professionalID, date string) ([]models.Booking, error) {
	var queue []models.Booking

	txn := func(sc mongo.SessionContext) (interface{}, error) {
		queue = nil
		cursor, err := repo.bookingColl.Find(sc, bson.M{
			"professionalId": professionalID,
			"date":           date,
		}, queueFindOptions())
		if err != nil {
			return nil, fmt.Errorf("error loading queue: %w", err)
		}
		var day []models.Booking
		if err := cursor.All(sc, &day); err != nil {
			return nil, fmt.Errorf("error decoding queue: %w", err)
		}

		position := 0
		for i := range day {
			want := 0
			if day[i].Status.IsQueued() && !day[i].IsEmergency {
				position++
				want = position
			}
			if day[i].QueuePosition != want {
				_, err := repo.bookingColl.UpdateOne(sc,
					bson.M{"id": day[i].ID},
					bson.M{"$set": bson.M{"queuePosition": want}},
				)
				if err != nil {
					return nil, fmt.Errorf("error updating queue position of %s: %w", day[i].ID, err)
				}
				day[i].QueuePosition = want
			}
			if want > 0 {
				queue = append(queue, day[i])
			}
		}
		return nil, nil
	}

	if err := repo.withTransaction(ctx, txn); err != nil {
		return nil, err
	}
	return queue, nil
}
