package chain

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/linlinbupt123-crypto/wallet_bot/entity"
	wrapErrors "github.com/linlinbupt123-crypto/wallet_bot/errors"
)

// KeyPair is a derived secp256k1 key with its EVM address.
type KeyPair struct {
	PrivateKey *ecdsa.PrivateKey
	PublicKey  string // uncompressed, 0x-prefixed
	Address    string // EIP-55 checksummed
}

// DeriveKeyPair walks a BIP32 path from seed and returns the EVM key pair at
// its end.
func DeriveKeyPair(seed []byte, path string) (*KeyPair, error) {
	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams) // hdkeychain 不区分 eth 网络
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.KeyDerivation, "NewMaster", err)
	}

	indices, err := parseDerivationPath(path)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.KeyDerivation, "parseDerivationPath", err)
	}

	key := master
	for _, idx := range indices {
		key, err = key.Derive(idx)
		if err != nil {
			return nil, wrapErrors.WrapWithCode(wrapErrors.KeyDerivation, "Derive", err)
		}
	}

	priv, err := key.ECPrivKey()
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.KeyDerivation, "ECPrivKey", err)
	}
	privBytes := priv.Serialize()
	ecdsaKey, err := crypto.ToECDSA(privBytes)
	clearBytes(privBytes)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.KeyDerivation, "ToECDSA", err)
	}

	return &KeyPair{
		PrivateKey: ecdsaKey,
		PublicKey:  hexutil.Encode(crypto.FromECDSAPub(&ecdsaKey.PublicKey)),
		Address:    crypto.PubkeyToAddress(ecdsaKey.PublicKey).Hex(),
	}, nil
}

// ValidateAddress reports whether s is a 0x-prefixed 20-byte hex address.
// Mixed-case input must carry a valid EIP-55 checksum.
func ValidateAddress(s string) bool {
	if len(s) != 42 || !strings.HasPrefix(s, "0x") {
		return false
	}
	if !common.IsHexAddress(s) {
		return false
	}
	body := s[2:]
	if body == strings.ToLower(body) || body == strings.ToUpper(body) {
		return true
	}
	return common.HexToAddress(s).Hex() == s
}

// SignTx builds an EIP-155 legacy transfer from intent and signs it with
// priv. It has no side effects: on any error nothing is returned but the
// error.
func SignTx(priv *ecdsa.PrivateKey, intent *entity.TransactionIntent) (string, error) {
	if err := checkIntent(priv, intent); err != nil {
		return "", wrapErrors.WrapWithCode(wrapErrors.SignerErr, "checkIntent", err)
	}

	to := common.HexToAddress(intent.Destination)
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    intent.Nonce,
		GasPrice: new(big.Int).Set(intent.GasPrice),
		Gas:      intent.GasLimit,
		To:       &to,
		Value:    new(big.Int).Set(intent.Amount),
	})

	signer := types.NewEIP155Signer(intent.ChainID)
	signedTx, err := types.SignTx(tx, signer, priv)
	if err != nil {
		return "", wrapErrors.WrapWithCode(wrapErrors.SignerErr, "SignTx", err)
	}

	raw, err := signedTx.MarshalBinary()
	if err != nil {
		return "", wrapErrors.WrapWithCode(wrapErrors.SignerErr, "MarshalBinary", err)
	}
	return hexutil.Encode(raw), nil
}

func checkIntent(priv *ecdsa.PrivateKey, intent *entity.TransactionIntent) error {
	switch {
	case priv == nil:
		return errors.New("private key is required")
	case intent == nil:
		return errors.New("transaction intent is nil")
	case intent.ChainID == nil || intent.ChainID.Sign() <= 0:
		return errors.New("chain id must be positive")
	case !ValidateAddress(intent.Destination):
		return fmt.Errorf("invalid destination %q", intent.Destination)
	case intent.Amount == nil || intent.Amount.Sign() <= 0:
		return errors.New("amount must be positive")
	case intent.GasPrice == nil || intent.GasPrice.Sign() < 0:
		return errors.New("gas price is required")
	case intent.GasLimit == 0:
		return errors.New("gas limit is required")
	}
	return nil
}

// PrivateKeyHex is the 0x-prefixed 32-byte encoding used by the export path.
func PrivateKeyHex(priv *ecdsa.PrivateKey) string {
	return hexutil.Encode(crypto.FromECDSA(priv))
}
