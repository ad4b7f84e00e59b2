package domain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	bip39 "github.com/tyler-smith/go-bip39"

	"github.com/linlinbupt123-crypto/wallet_bot/chain"
	"github.com/linlinbupt123-crypto/wallet_bot/entity"
	wrapErrors "github.com/linlinbupt123-crypto/wallet_bot/errors"
	"github.com/linlinbupt123-crypto/wallet_bot/log"
	"github.com/linlinbupt123-crypto/wallet_bot/repository"
	"github.com/linlinbupt123-crypto/wallet_bot/utils"
)

var ErrNoWallet = errors.New("no wallet for this user")

// KeyManager derives and holds one key pair per chat user.
type KeyManager struct {
	sessions    repository.SessionRepository
	path        string
	newMnemonic func() (string, error)
}

func NewKeyManager(sessions repository.SessionRepository, path string) *KeyManager {
	if path == "" {
		path = utils.ETH_DERIVATION_PATH
	}
	return &KeyManager{
		sessions:    sessions,
		path:        path,
		newMnemonic: generateMnemonic,
	}
}

// generateMnemonic returns a fresh 24-word BIP39 mnemonic.
func generateMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", fmt.Errorf("failed to generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("failed to generate mnemonic: %w", err)
	}
	return mnemonic, nil
}

/*
GetOrCreateAddress returns the user's deposit address, creating the wallet on
first use.

The key pair is derived from a fresh mnemonic at the fixed path and stored with
the session in one Create call. Create refuses to overwrite, so a concurrent
first call for the same user loses the race and returns the winner's address;
keys are never regenerated for a session.
*/
func (k *KeyManager) GetOrCreateAddress(ctx context.Context, userID string) (string, error) {
	s, err := k.sessions.Get(ctx, userID)
	switch {
	case err == nil && s.HasWallet():
		return s.Address, nil
	case err != nil && !errors.Is(err, repository.ErrSessionNotFound):
		return "", wrapErrors.WrapWithCode(wrapErrors.SessionStoreErr, "Get", err)
	}

	kp, err := k.derive()
	if err != nil {
		return "", err
	}

	err = k.sessions.Create(ctx, &entity.UserSession{
		UserID:     userID,
		Address:    kp.Address,
		PrivateKey: kp.PrivateKey,
		PublicKey:  kp.PublicKey,
		Withdrawal: entity.Idle{},
	})
	if errors.Is(err, repository.ErrSessionExists) {
		s, err = k.sessions.Get(ctx, userID)
		if err != nil {
			return "", wrapErrors.WrapWithCode(wrapErrors.SessionStoreErr, "Get", err)
		}
		if !s.HasWallet() {
			return "", wrapErrors.WrapWithCode(wrapErrors.SessionStoreErr, "Create", errors.New("session exists without a wallet"))
		}
		return s.Address, nil
	}
	if err != nil {
		return "", wrapErrors.WrapWithCode(wrapErrors.SessionStoreErr, "Create", err)
	}

	log.WithUser(log.Wallet, userID).Info().Str("address", kp.Address).Msg("wallet created")
	return kp.Address, nil
}

func (k *KeyManager) derive() (*chain.KeyPair, error) {
	mnemonic, err := k.newMnemonic()
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.KeyDerivation, "newMnemonic", err)
	}
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, wrapErrors.WrapWithCode(wrapErrors.KeyDerivation, "newMnemonic", errors.New("invalid mnemonic"))
	}
	seed := bip39.NewSeed(mnemonic, "")
	defer clearBytes(seed)

	return chain.DeriveKeyPair(seed, k.path)
}

// ValidateAddress checks the EVM address format; it never panics.
func (k *KeyManager) ValidateAddress(candidate string) bool {
	return chain.ValidateAddress(candidate)
}

// Sign signs intent for chainID. It has no side effects.
func (k *KeyManager) Sign(priv *ecdsa.PrivateKey, chainID *big.Int, intent entity.TransactionIntent) (string, error) {
	intent.ChainID = chainID
	return chain.SignTx(priv, &intent)
}

// ExportKey discloses the user's own private key. Callers must deliver it only
// to that user's chat.
func (k *KeyManager) ExportKey(ctx context.Context, userID string) (string, error) {
	s, err := k.sessions.Get(ctx, userID)
	if errors.Is(err, repository.ErrSessionNotFound) || (err == nil && !s.HasWallet()) {
		return "", wrapErrors.WrapWithCode(wrapErrors.NoWallet, "ExportKey", ErrNoWallet)
	}
	if err != nil {
		return "", wrapErrors.WrapWithCode(wrapErrors.SessionStoreErr, "Get", err)
	}
	log.WithUser(log.Wallet, userID).Info().Msg("private key exported")
	return chain.PrivateKeyHex(s.PrivateKey), nil
}

func clearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
