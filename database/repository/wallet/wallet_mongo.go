package walletRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ledgerEntry records one applied wallet operation. The unique memo makes
// replays detectable inside the same transaction that moves the funds.
type ledgerEntry struct {
	ID             string    `bson:"id"`
	Memo           string    `bson:"memo"`
	Kind           string    `bson:"kind"`
	UserID         string    `bson:"userId"`
	CounterpartyID string    `bson:"counterpartyId,omitempty"`
	Amount         int64     `bson:"amount"`
	CreatedAt      time.Time `bson:"createdAt"`
}

// MongoWalletRepo implements WalletRepository using MongoDB.
type MongoWalletRepo struct {
	wallets *mongo.Collection
	ledger  *mongo.Collection
}

func NewMongoWalletRepo(db *mongo.Database) WalletRepository {
	return &MongoWalletRepo{
		wallets: db.Collection("wallets"),
		ledger:  db.Collection("wallet_ledger"),
	}
}

func (r *MongoWalletRepo) GetBalance(ctx context.Context, userID string) (Balance, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	balance := Balance{UserID: userID}
	err := r.wallets.FindOne(ctx, bson.M{"userId": userID}).Decode(&balance)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return Balance{}, fmt.Errorf("failed to read wallet of %s: %w", userID, err)
	}
	return balance, nil
}

func (r *MongoWalletRepo) Deposit(ctx context.Context, userID string, amount int64, memo string) error {
	return r.apply(ctx, ledgerEntry{Memo: memo, Kind: "deposit", UserID: userID, Amount: amount},
		func(sc mongo.SessionContext) error {
			return r.inc(sc, userID, bson.M{"available": amount}, 0)
		})
}

func (r *MongoWalletRepo) Hold(ctx context.Context, patientID string, amount int64, memo string) error {
	return r.apply(ctx, ledgerEntry{Memo: memo, Kind: "hold", UserID: patientID, Amount: amount},
		func(sc mongo.SessionContext) error {
			return r.inc(sc, patientID, bson.M{"available": -amount}, amount)
		})
}

func (r *MongoWalletRepo) CreditPending(ctx context.Context, professionalID string, amount int64, memo string) error {
	return r.apply(ctx, ledgerEntry{Memo: memo, Kind: "credit_pending", UserID: professionalID, Amount: amount},
		func(sc mongo.SessionContext) error {
			return r.inc(sc, professionalID, bson.M{"pending": amount}, 0)
		})
}

func (r *MongoWalletRepo) Release(ctx context.Context, professionalID, patientID string, amount int64, memo string) error {
	entry := ledgerEntry{Memo: memo, Kind: "release", UserID: professionalID, CounterpartyID: patientID, Amount: amount}
	return r.apply(ctx, entry, func(sc mongo.SessionContext) error {
		return r.inc(sc, professionalID, bson.M{"pending": -amount, "available": amount}, 0)
	})
}

func (r *MongoWalletRepo) Refund(ctx context.Context, professionalID, patientID string, amount int64, memo string) error {
	entry := ledgerEntry{Memo: memo, Kind: "refund", UserID: patientID, CounterpartyID: professionalID, Amount: amount}
	return r.apply(ctx, entry, func(sc mongo.SessionContext) error {
		if err := r.inc(sc, professionalID, bson.M{"pending": -amount}, 0); err != nil {
			return err
		}
		return r.inc(sc, patientID, bson.M{"available": amount}, 0)
	})
}

// apply records entry and runs move in one transaction. A duplicate memo
// means the operation already happened.
func (r *MongoWalletRepo) apply(ctx context.Context, entry ledgerEntry, move func(mongo.SessionContext) error) error {
	if entry.Amount < 0 {
		return fmt.Errorf("negative amount %d", entry.Amount)
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	sess, err := r.wallets.Database().Client().StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	entry.ID = uuid.New().String()
	entry.CreatedAt = time.Now()

	errAlreadyApplied := errors.New("already applied")
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := r.ledger.InsertOne(sc, entry); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return nil, errAlreadyApplied
			}
			return nil, fmt.Errorf("failed to record %s: %w", entry.Kind, err)
		}
		return nil, move(sc)
	})
	if errors.Is(err, errAlreadyApplied) {
		return nil
	}
	return err
}

// inc applies delta to a wallet, creating it on first use. With minAvailable
// set, the update only matches when the available balance covers it.
func (r *MongoWalletRepo) inc(sc mongo.SessionContext, userID string, delta bson.M, minAvailable int64) error {
	filter := bson.M{"userId": userID}
	opts := options.Update().SetUpsert(true)
	if minAvailable > 0 {
		filter["available"] = bson.M{"$gte": minAvailable}
		opts = options.Update()
	}
	res, err := r.wallets.UpdateOne(sc, filter, bson.M{"$inc": delta}, opts)
	if err != nil {
		return fmt.Errorf("failed to update wallet of %s: %w", userID, err)
	}
	if minAvailable > 0 && res.MatchedCount == 0 {
		return ErrInsufficientFunds
	}
	return nil
}

func (r *MongoWalletRepo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := r.wallets.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("failed to create wallet index: %w", err)
	}
	if _, err := r.ledger.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "memo", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
	}); err != nil {
		return fmt.Errorf("failed to create ledger indexes: %w", err)
	}
	return nil
}
