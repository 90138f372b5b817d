package bookingRepo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"telecare/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Index names referenced when decoding duplicate-key errors.
const (
	slotKeyIndex      = "slot_key_unique"
	pairKeyIndex      = "pair_key_unique"
	emergencyKeyIndex = "emergency_key_unique"
	capacityKeyIndex  = "capacity_key_unique"
)

// optionalFields are omitempty fields that must be unset explicitly when empty.
var optionalFields = []string{
	"date", "time", "scheduledAt", "reason", "paymentReview", "emergencyDeadline",
	"callSessionId", "callStartedAt", "callEndedAt", "sessionExpiresAt",
	"cancellationReason", "slotKey", "pairKey", "emergencyKey",
}

// capacityDoc counts the active bookings of one professional/date.
type capacityDoc struct {
	Key            string `bson:"key"`
	ProfessionalID string `bson:"professionalId"`
	Date           string `bson:"date"`
	Active         int    `bson:"active"`
}

// MongoBookingRepo implements BookingRepository using MongoDB.
type MongoBookingRepo struct {
	bookingColl  *mongo.Collection
	capacityColl *mongo.Collection
}

// NewMongoBookingRepo constructs a new instance of MongoBookingRepo.
func NewMongoBookingRepo(db *mongo.Database) BookingRepository {
	return &MongoBookingRepo{
		bookingColl:  db.Collection("bookings"),
		capacityColl: db.Collection("booking_capacity"),
	}
}

// GetByID retrieves a booking by its ID.
func (repo *MongoBookingRepo) GetByID(ctx context.Context, bookingID string) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var booking models.Booking
	err := repo.bookingColl.FindOne(ctx, bson.M{"id": bookingID}).Decode(&booking)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching booking %s: %w", bookingID, err)
	}
	return &booking, nil
}

// Update writes every field except queuePosition under an optimistic version check.
func (repo *MongoBookingRepo) Update(ctx context.Context, booking *models.Booking, expectedVersion int) error {
	release := booking.Status.IsTerminal() && booking.SlotKey != ""
	if booking.Status.IsTerminal() {
		booking.ReleaseHolds()
	}
	booking.Version = expectedVersion + 1

	set, unset, err := updateDocument(booking)
	if err != nil {
		booking.Version = expectedVersion
		return err
	}
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	filter := bson.M{"id": booking.ID, "version": expectedVersion}

	txn := func(sc mongo.SessionContext) (interface{}, error) {
		res, err := repo.bookingColl.UpdateOne(sc, filter, update)
		if err != nil {
			return nil, fmt.Errorf("error updating booking %s: %w", booking.ID, err)
		}
		if res.MatchedCount == 0 {
			return nil, ErrStale
		}
		if release {
			_, err := repo.capacityColl.UpdateOne(sc,
				bson.M{"key": models.CapacityKey(booking.ProfessionalID, booking.Date), "active": bson.M{"$gt": 0}},
				bson.M{"$inc": bson.M{"active": -1}},
			)
			if err != nil {
				return nil, fmt.Errorf("error releasing capacity for booking %s: %w", booking.ID, err)
			}
		}
		return nil, nil
	}
	if err := repo.withTransaction(ctx, txn); err != nil {
		booking.Version = expectedVersion
		return err
	}
	return nil
}

// updateDocument splits a booking into $set and $unset parts.
func updateDocument(booking *models.Booking) (bson.M, bson.M, error) {
	raw, err := bson.Marshal(booking)
	if err != nil {
		return nil, nil, fmt.Errorf("error encoding booking %s: %w", booking.ID, err)
	}
	set := bson.M{}
	if err := bson.Unmarshal(raw, &set); err != nil {
		return nil, nil, fmt.Errorf("error encoding booking %s: %w", booking.ID, err)
	}
	delete(set, "_id")
	delete(set, "queuePosition")

	unset := bson.M{}
	for _, field := range optionalFields {
		if _, ok := set[field]; !ok {
			unset[field] = ""
		}
	}
	return set, unset, nil
}

func (repo *MongoBookingRepo) withTransaction(ctx context.Context, fn func(mongo.SessionContext) (interface{}, error)) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	sess, err := repo.bookingColl.Database().Client().StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, fn)
	return err
}

// duplicateIndex returns the name of the unique index a write collided with.
func duplicateIndex(err error) string {
	if !mongo.IsDuplicateKeyError(err) {
		return ""
	}
	for _, name := range []string{slotKeyIndex, pairKeyIndex, emergencyKeyIndex, capacityKeyIndex} {
		if strings.Contains(err.Error(), name) {
			return name
		}
	}
	return "unknown"
}

func activeStatusFilter() bson.M {
	return bson.M{"$in": models.ActiveStatuses}
}

func queueFindOptions() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "scheduledAt", Value: 1}, {Key: "createdAt", Value: 1}})
}
