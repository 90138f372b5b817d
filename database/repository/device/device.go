// Package deviceRepo stores the FCM token of each user's current device.
package deviceRepo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"telecare/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNoToken is returned when a user has not registered a device.
var ErrNoToken = errors.New("user has no push token")

type DeviceRepository interface {
	SaveToken(ctx context.Context, userID, token string) error
	GetToken(ctx context.Context, userID string) (string, error)
	EnsureIndexes(ctx context.Context) error
}

type MongoDeviceRepo struct {
	coll *mongo.Collection
}

func NewMongoDeviceRepo(db *mongo.Database) DeviceRepository {
	return &MongoDeviceRepo{coll: db.Collection("push_tokens")}
}

func (r *MongoDeviceRepo) SaveToken(ctx context.Context, userID, token string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.coll.UpdateOne(ctx, bson.M{"userId": userID},
		bson.M{"$set": bson.M{"token": token, "updatedAt": time.Now()}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to save push token for %s: %w", userID, err)
	}
	return nil
}

func (r *MongoDeviceRepo) GetToken(ctx context.Context, userID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var pt models.PushToken
	err := r.coll.FindOne(ctx, bson.M{"userId": userID}).Decode(&pt)
	if errors.Is(err, mongo.ErrNoDocuments) || (err == nil && pt.Token == "") {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("failed to read push token for %s: %w", userID, err)
	}
	return pt.Token, nil
}

func (r *MongoDeviceRepo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create push token index: %w", err)
	}
	return nil
}

// MemoryDeviceRepo keeps tokens in a map.
type MemoryDeviceRepo struct {
	mu     sync.RWMutex
	tokens map[string]string
}

func NewMemoryDeviceRepo() *MemoryDeviceRepo {
	return &MemoryDeviceRepo{tokens: make(map[string]string)}
}

func (r *MemoryDeviceRepo) SaveToken(ctx context.Context, userID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[userID] = token
	return nil
}

func (r *MemoryDeviceRepo) GetToken(ctx context.Context, userID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	token, ok := r.tokens[userID]
	if !ok || token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

func (r *MemoryDeviceRepo) EnsureIndexes(ctx context.Context) error { return nil }
