package repository

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linlinbupt123-crypto/wallet_bot/entity"
)

func TestMemorySessionRepo_CreateGet(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySessionRepo()

	_, err := repo.Get(ctx, "u1")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, repo.Create(ctx, &entity.UserSession{UserID: "u1", Address: "0xabc"}))
	assert.ErrorIs(t, repo.Create(ctx, &entity.UserSession{UserID: "u1", Address: "0xdef"}), ErrSessionExists)

	s, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "0xabc", s.Address)
	assert.Equal(t, entity.StageIdle, s.State().Stage())
	assert.False(t, s.CreatedAt.IsZero())
	assert.Equal(t, 1, repo.Len())
}

func TestMemorySessionRepo_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySessionRepo()
	require.NoError(t, repo.Create(ctx, &entity.UserSession{UserID: "u1"}))

	s, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	s.Withdrawal = entity.AmountRequested{PromptID: "p1"}

	again, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, entity.StageIdle, again.State().Stage())
}

func TestMemorySessionRepo_UpdateKeepsKeyMaterial(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySessionRepo()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, &entity.UserSession{UserID: "u1", Address: "0xabc", PrivateKey: key}))

	err = repo.Update(ctx, &entity.UserSession{
		UserID:     "u1",
		Address:    "0xother",
		Withdrawal: entity.AmountCaptured{Amount: big.NewInt(5), PromptID: "p2"},
	})
	require.NoError(t, err)

	s, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "0xabc", s.Address)
	assert.Same(t, key, s.PrivateKey)
	assert.Equal(t, entity.StageAmountCaptured, s.State().Stage())

	assert.ErrorIs(t, repo.Update(ctx, &entity.UserSession{UserID: "nobody"}), ErrSessionNotFound)
}

func TestMemorySessionRepo_ClearWithdrawal(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySessionRepo()
	require.NoError(t, repo.Create(ctx, &entity.UserSession{
		UserID:     "u1",
		Address:    "0xabc",
		Withdrawal: entity.AmountRequested{PromptID: "p"},
	}))

	require.NoError(t, repo.ClearWithdrawal(ctx, "u1"))
	s, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, entity.StageIdle, s.State().Stage())
	assert.Equal(t, "0xabc", s.Address)

	assert.ErrorIs(t, repo.ClearWithdrawal(ctx, "nobody"), ErrSessionNotFound)
}
