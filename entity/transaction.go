package entity

import "math/big"

// SignInfo is what the custody API returns before a transfer can be signed.
type SignInfo struct {
	Nonce    uint64
	GasPrice *big.Int // "normal" tier
	GasLimit uint64
}

// TransactionIntent is built right before signing and discarded afterwards.
type TransactionIntent struct {
	ChainID     *big.Int
	Destination string
	Amount      *big.Int // base units
	Nonce       uint64
	GasPrice    *big.Int
	GasLimit    uint64
}
