package service

import (
	"context"

	"github.com/linlinbupt123-crypto/wallet_bot/custody"
	"github.com/linlinbupt123-crypto/wallet_bot/entity"
)

// InputKind is what a prompt expects the user to type next.
type InputKind string

const (
	InputAmount      InputKind = "amount"
	InputDestination InputKind = "destination"
)

// Prompt is an outbound message that expects a free-text reply. Replies
// carry ID back so stale prompts can be told apart from the current one.
type Prompt struct {
	ID   string
	Kind InputKind
	Text string
}

// Notifier is the chat transport as seen by the core.
type Notifier interface {
	Notify(ctx context.Context, userID, text string) error
	// Prompt sends p and returns the transport's reference to the message.
	Prompt(ctx context.Context, userID string, p Prompt) (string, error)
}

// OutcomeListener receives one event per finished withdrawal attempt.
type OutcomeListener interface {
	OnWithdrawalOutcome(ctx context.Context, o entity.WithdrawalOutcome)
}

// WalletAPI is the part of the custody client the services call.
type WalletAPI interface {
	TokenBalances(ctx context.Context, address, chainIndex string) ([]entity.TokenAsset, error)
	SignInfo(ctx context.Context, req custody.SignInfoRequest) (*entity.SignInfo, error)
	Broadcast(ctx context.Context, signedTx, chainIndex, address string) (string, error)
}
