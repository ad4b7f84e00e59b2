package service

import (
	"context"
	"errors"

	"github.com/linlinbupt123-crypto/wallet_bot/domain"
	"github.com/linlinbupt123-crypto/wallet_bot/entity"
	wrapErrors "github.com/linlinbupt123-crypto/wallet_bot/errors"
	"github.com/linlinbupt123-crypto/wallet_bot/log"
	"github.com/linlinbupt123-crypto/wallet_bot/repository"
)

// WalletService answers the non-withdrawal wallet commands.
type WalletService struct {
	sessions   repository.SessionRepository
	keys       *domain.KeyManager
	api        WalletAPI
	notifier   Notifier
	chainIndex string
}

func NewWalletService(
	sessions repository.SessionRepository,
	keys *domain.KeyManager,
	api WalletAPI,
	notifier Notifier,
	chainIndex string,
) *WalletService {
	return &WalletService{
		sessions:   sessions,
		keys:       keys,
		api:        api,
		notifier:   notifier,
		chainIndex: chainIndex,
	}
}

// Address sends the user's deposit address, creating the wallet on first use.
func (s *WalletService) Address(ctx context.Context, userID string) (string, error) {
	addr, err := s.keys.GetOrCreateAddress(ctx, userID)
	if err != nil {
		log.WithUser(log.Wallet, userID).Error().Err(err).Msg("get or create address")
		return "", s.notifyErr(ctx, userID, MsgTryLater, err)
	}
	return addr, s.notifier.Notify(ctx, userID, msgAddress(addr))
}

// Balance sends and returns the native-coin balance of the user's address.
func (s *WalletService) Balance(ctx context.Context, userID string) ([]entity.TokenAsset, error) {
	sess, err := s.sessions.Get(ctx, userID)
	if errors.Is(err, repository.ErrSessionNotFound) || (err == nil && !sess.HasWallet()) {
		return nil, s.notifyErr(ctx, userID, MsgNoWallet, wrapErrors.WrapWithCode(wrapErrors.NoWallet, "Balance", domain.ErrNoWallet))
	}
	if err != nil {
		return nil, s.notifyErr(ctx, userID, MsgTryLater, wrapErrors.WrapWithCode(wrapErrors.SessionStoreErr, "Get", err))
	}

	assets, err := s.api.TokenBalances(ctx, sess.Address, s.chainIndex)
	if err != nil {
		log.WithUser(log.Wallet, userID).Error().Err(err).Msg("balance query")
		return nil, s.notifyErr(ctx, userID, MsgTryLater, err)
	}
	return assets, s.notifier.Notify(ctx, userID, msgBalance(sess.Address, assets))
}

// ExportKey sends the user's private key to that user's own chat. The key is
// never logged.
func (s *WalletService) ExportKey(ctx context.Context, userID string) error {
	key, err := s.keys.ExportKey(ctx, userID)
	if errors.Is(err, domain.ErrNoWallet) {
		return s.notifyErr(ctx, userID, MsgNoWallet, err)
	}
	if err != nil {
		log.WithUser(log.Wallet, userID).Error().Err(err).Msg("export key")
		return s.notifyErr(ctx, userID, MsgTryLater, err)
	}
	return s.notifier.Notify(ctx, userID, msgExportKey(key))
}

// notifyErr tells the user msg and returns cause, or the notifier's error if
// the message could not be delivered.
func (s *WalletService) notifyErr(ctx context.Context, userID, msg string, cause error) error {
	if err := s.notifier.Notify(ctx, userID, msg); err != nil {
		return err
	}
	return cause
}
