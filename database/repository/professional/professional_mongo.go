package professionalRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"telecare/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoProfessionalRepo implements ProfessionalRepository using MongoDB.
type MongoProfessionalRepo struct {
	coll *mongo.Collection
}

// NewMongoProfessionalRepo creates a new instance of ProfessionalRepository using MongoDB.
func NewMongoProfessionalRepo(db *mongo.Database) ProfessionalRepository {
	return &MongoProfessionalRepo{coll: db.Collection("professionals")}
}

func (r *MongoProfessionalRepo) GetByID(ctx context.Context, id string) (*models.Professional, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var professional models.Professional
	err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&professional)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch professional with id %s: %w", id, err)
	}
	return &professional, nil
}

func (r *MongoProfessionalRepo) Upsert(ctx context.Context, professional *models.Professional) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"name":             professional.Name,
			"type":             professional.Type,
			"online":           professional.Online,
			"acceptsEmergency": professional.AcceptsEmergency,
			"consultationFee":  professional.ConsultationFee,
			"availability":     professional.Availability,
			"updatedAt":        now,
		},
		"$setOnInsert": bson.M{
			"completedConsultations": 0,
			"createdAt":              now,
		},
	}
	_, err := r.coll.UpdateOne(ctx, bson.M{"id": professional.ID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert professional %s: %w", professional.ID, err)
	}
	return nil
}

func (r *MongoProfessionalRepo) SetAvailability(ctx context.Context, id string, entries []models.AvailabilityEntry) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, bson.M{
		"$set": bson.M{"availability": entries, "updatedAt": time.Now()},
	})
	if err != nil {
		return fmt.Errorf("failed to update availability of %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoProfessionalRepo) SetStatus(ctx context.Context, id string, update models.ProfessionalStatusUpdate) (*models.Professional, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	set := bson.M{"updatedAt": time.Now()}
	if update.Online != nil {
		set["online"] = *update.Online
	}
	if update.AcceptsEmergency != nil {
		set["acceptsEmergency"] = *update.AcceptsEmergency
	}

	var professional models.Professional
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"id": id}, bson.M{"$set": set}, opts).Decode(&professional)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update status of %s: %w", id, err)
	}
	return &professional, nil
}

func (r *MongoProfessionalRepo) IncrementCompleted(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, bson.M{
		"$inc": bson.M{"completedConsultations": 1},
		"$set": bson.M{"updatedAt": time.Now()},
	})
	if err != nil {
		return fmt.Errorf("failed to increment completed count of %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// EnsureIndexes creates indexes for fields frequently used in queries.
func (r *MongoProfessionalRepo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "type", Value: 1}, {Key: "online", Value: 1}}},
		{Keys: bson.D{{Key: "acceptsEmergency", Value: 1}, {Key: "online", Value: 1}}},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}
