package bookingRepo

import (
	"context"
	"fmt"
	"time"

	"telecare/models"

	"go.mongodb.org/mongo-driver/bson"
)

func (repo *MongoBookingRepo) CountActive(ctx context.Context, professionalID, date string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	n, err := repo.bookingColl.CountDocuments(ctx, bson.M{
		"professionalId": professionalID,
		"date":           date,
		"status":         activeStatusFilter(),
	})
	if err != nil {
		return 0, fmt.Errorf("error counting active bookings: %w", err)
	}
	return int(n), nil
}

func (repo *MongoBookingRepo) ListActiveByProfessionalDate(ctx context.Context, professionalID, date string) ([]models.Booking, error) {
	return repo.find(ctx, bson.M{
		"professionalId": professionalID,
		"date":           date,
		"status":         activeStatusFilter(),
	})
}

func (repo *MongoBookingRepo) HasActiveWithProfessional(ctx context.Context, patientID, professionalID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	n, err := repo.bookingColl.CountDocuments(ctx, bson.M{
		"patientId":      patientID,
		"professionalId": professionalID,
		"status":         activeStatusFilter(),
	})
	if err != nil {
		return false, fmt.Errorf("error checking active bookings: %w", err)
	}
	return n > 0, nil
}

func (repo *MongoBookingRepo) HasActiveEmergency(ctx context.Context, patientID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	n, err := repo.bookingColl.CountDocuments(ctx, bson.M{
		"patientId":   patientID,
		"isEmergency": true,
		"status":      activeStatusFilter(),
	})
	if err != nil {
		return false, fmt.Errorf("error checking active emergencies: %w", err)
	}
	return n > 0, nil
}

func (repo *MongoBookingRepo) ListQueue(ctx context.Context, professionalID, date string) ([]models.Booking, error) {
	return repo.find(ctx, bson.M{
		"professionalId": professionalID,
		"date":           date,
		"isEmergency":    false,
		"status":         bson.M{"$in": models.QueuedStatuses},
	})
}

// ListConfirmedStartingBetween finds confirmed bookings with from < scheduledAt <= to.
func (repo *MongoBookingRepo) ListConfirmedStartingBetween(ctx context.Context, from, to time.Time) ([]models.Booking, error) {
	return repo.find(ctx, bson.M{
		"status":      models.StatusConfirmed,
		"scheduledAt": bson.M{"$gt": from, "$lte": to},
	})
}

// ListReminderDue finds confirmed, unreminded bookings with from < scheduledAt <= to.
func (repo *MongoBookingRepo) ListReminderDue(ctx context.Context, from, to time.Time) ([]models.Booking, error) {
	return repo.find(ctx, bson.M{
		"status":       models.StatusConfirmed,
		"reminderSent": false,
		"scheduledAt":  bson.M{"$gt": from, "$lte": to},
	})
}

func (repo *MongoBookingRepo) ListExpiredEmergencies(ctx context.Context, now time.Time) ([]models.Booking, error) {
	return repo.find(ctx, bson.M{
		"status":            models.StatusEmergencyPending,
		"emergencyDeadline": bson.M{"$lt": now},
	})
}

func (repo *MongoBookingRepo) find(ctx context.Context, filter bson.M) ([]models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cursor, err := repo.bookingColl.Find(ctx, filter, queueFindOptions())
	if err != nil {
		return nil, fmt.Errorf("error finding bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []models.Booking
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("error decoding bookings: %w", err)
	}
	return bookings, nil
}
