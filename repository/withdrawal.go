package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linlinbupt123-crypto/wallet_bot/entity"
	"github.com/linlinbupt123-crypto/wallet_bot/log"
)

// JournalCollection is the part of *mongo.Collection the journal uses.
type JournalCollection interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
}

// WithdrawalRepo is the journal of finished withdrawal attempts.
type WithdrawalRepo struct {
	col JournalCollection
}

func NewWithdrawalRepo(col JournalCollection) *WithdrawalRepo {
	return &WithdrawalRepo{col: col}
}

func (r *WithdrawalRepo) Create(ctx context.Context, rec *entity.WithdrawalRecord) (string, error) {
	res, err := r.col.InsertOne(ctx, rec)
	if err != nil {
		return "", err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		return oid.Hex(), nil
	}
	return "", nil
}

// ListByUserID returns the newest records first.
func (r *WithdrawalRepo) ListByUserID(ctx context.Context, userID string, limit int64) ([]*entity.WithdrawalRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := r.col.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []*entity.WithdrawalRecord{}
	for cur.Next(ctx) {
		var rec entity.WithdrawalRecord
		if err := cur.Decode(&rec); err != nil {
			return nil, err
		}
		out = append(out, &rec)
	}
	return out, cur.Err()
}

// OnWithdrawalOutcome journals an outcome. Journal failures are logged and
// never affect the withdrawal itself.
func (r *WithdrawalRepo) OnWithdrawalOutcome(ctx context.Context, o entity.WithdrawalOutcome) {
	if _, err := r.Create(ctx, entity.NewWithdrawalRecord(o)); err != nil {
		log.Storage.Error().Err(err).
			Str("user_id", o.UserID).
			Str("status", string(o.Status)).
			Str("order_id", o.OrderID).
			Msg("journal withdrawal outcome")
	}
}
