package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linlinbupt123-crypto/wallet_bot/db"
	"github.com/linlinbupt123-crypto/wallet_bot/entity"
	"github.com/linlinbupt123-crypto/wallet_bot/log"
)

// MockCollection is a mock implementation of JournalCollection
type MockCollection struct {
	mock.Mock
}

func (m *MockCollection) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	args := m.Called(ctx, document)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mongo.InsertOneResult), args.Error(1)
}

func (m *MockCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	args := m.Called(ctx, filter, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mongo.Cursor), args.Error(1)
}

func sampleOutcome(status entity.OutcomeStatus) entity.WithdrawalOutcome {
	return entity.WithdrawalOutcome{
		UserID:     "u1",
		From:       "0xfrom",
		To:         "0xto",
		Amount:     "1",
		AmountWei:  "1000000000000000000",
		Status:     status,
		OrderID:    "o-1",
		FinishedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestWithdrawalRepo_Create(t *testing.T) {
	col := new(MockCollection)
	oid := primitive.NewObjectID()
	col.On("InsertOne", mock.Anything, mock.MatchedBy(func(rec *entity.WithdrawalRecord) bool {
		return rec.UserID == "u1" && rec.OrderID == "o-1" && rec.Status == "success"
	})).Return(&mongo.InsertOneResult{InsertedID: oid}, nil).Once()

	id, err := NewWithdrawalRepo(col).Create(context.Background(), entity.NewWithdrawalRecord(sampleOutcome(entity.OutcomeSuccess)))
	require.NoError(t, err)
	assert.Equal(t, oid.Hex(), id)
	col.AssertExpectations(t)
}

func TestWithdrawalRepo_OutcomeFailureIsLoggedOnly(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf, "debug")
	t.Cleanup(func() { log.Init("info", false) })

	col := new(MockCollection)
	col.On("InsertOne", mock.Anything, mock.Anything).Return(nil, errors.New("write concern timeout")).Once()

	assert.NotPanics(t, func() {
		NewWithdrawalRepo(col).OnWithdrawalOutcome(context.Background(), sampleOutcome(entity.OutcomeFailure))
	})
	col.AssertExpectations(t)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "storage", line["component"])
	assert.Equal(t, "u1", line["user_id"])
	assert.Equal(t, "write concern timeout", line["error"])
}

func TestWithdrawalRepo_ListByUserID(t *testing.T) {
	newer := entity.NewWithdrawalRecord(sampleOutcome(entity.OutcomeSuccess))
	older := entity.NewWithdrawalRecord(sampleOutcome(entity.OutcomeFailure))
	older.OrderID = ""
	older.CreatedAt = newer.CreatedAt.Add(-time.Hour)

	cur, err := mongo.NewCursorFromDocuments([]interface{}{newer, older}, nil, nil)
	require.NoError(t, err)

	col := new(MockCollection)
	col.On("Find", mock.Anything, bson.M{"user_id": "u1"}, mock.MatchedBy(func(opts []*options.FindOptions) bool {
		return len(opts) == 1 && opts[0].Limit != nil && *opts[0].Limit == 10 &&
			assert.ObjectsAreEqual(bson.D{{Key: "created_at", Value: -1}}, opts[0].Sort)
	})).Return(cur, nil).Once()

	recs, err := NewWithdrawalRepo(col).ListByUserID(context.Background(), "u1", 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "o-1", recs[0].OrderID)
	assert.Equal(t, "failure", recs[1].Status)
	assert.True(t, recs[0].CreatedAt.Equal(newer.CreatedAt))
	col.AssertExpectations(t)
}

func TestWithdrawalRepo_ListByUserIDEmpty(t *testing.T) {
	cur, err := mongo.NewCursorFromDocuments(nil, nil, nil)
	require.NoError(t, err)
	col := new(MockCollection)
	col.On("Find", mock.Anything, mock.Anything, mock.Anything).Return(cur, nil).Once()

	recs, err := NewWithdrawalRepo(col).ListByUserID(context.Background(), "nobody", 0)
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestWithdrawalRepo_FindError(t *testing.T) {
	col := new(MockCollection)
	col.On("Find", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("no primary")).Once()

	_, err := NewWithdrawalRepo(col).ListByUserID(context.Background(), "u1", 5)
	assert.EqualError(t, err, "no primary")
}

// Runs against a real server when MONGO_URI is set.
func TestWithdrawalRepo_Mongo(t *testing.T) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := db.NewMongoRepo(ctx, uri, "wallet_bot_test")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = repo.DB.Drop(context.Background())
		_ = repo.Close(context.Background())
	})

	journal := NewWithdrawalRepo(repo.WithdrawalColl)
	journal.OnWithdrawalOutcome(ctx, sampleOutcome(entity.OutcomeSuccess))
	journal.OnWithdrawalOutcome(ctx, sampleOutcome(entity.OutcomeFailure))

	recs, err := journal.ListByUserID(ctx, "u1", 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.NotEmpty(t, recs[0].ID)
}
