package entity

import (
	"crypto/ecdsa"
	"math/big"
	"time"
)

// UserSession is the per-chat-user conversational state. It lives in memory
// only; the private key is never serialized.
type UserSession struct {
	UserID         string
	Address        string            // set once, together with PrivateKey
	PrivateKey     *ecdsa.PrivateKey `json:"-"`
	PublicKey      string            // uncompressed, 0x-prefixed hex
	Withdrawal     WithdrawalState
	LastMessageRef string // opaque, owned by the front end
	CreatedAt      time.Time
}

func (s *UserSession) HasWallet() bool {
	return s != nil && s.Address != "" && s.PrivateKey != nil
}

// State returns the withdrawal state, treating nil as Idle.
func (s *UserSession) State() WithdrawalState {
	if s == nil || s.Withdrawal == nil {
		return Idle{}
	}
	return s.Withdrawal
}

func (s *UserSession) Clone() *UserSession {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

type Stage int

const (
	StageIdle Stage = iota
	StageAmountRequested
	StageAmountCaptured
	StageDestinationCaptured
)

func (s Stage) String() string {
	switch s {
	case StageAmountRequested:
		return "amount_requested"
	case StageAmountCaptured:
		return "amount_captured"
	case StageDestinationCaptured:
		return "destination_captured"
	default:
		return "idle"
	}
}

// WithdrawalState is a closed set of variants; each carries only the fields
// valid in that stage, so a destination can never exist without an amount.
type WithdrawalState interface {
	Stage() Stage
	withdrawalState()
}

type Idle struct{}

// AmountRequested waits for the next free-text reply to be an amount.
type AmountRequested struct {
	PromptID string
}

// AmountCaptured holds the captured amount and waits for a destination.
type AmountCaptured struct {
	Amount   *big.Int // base units, immutable for this attempt
	PromptID string
}

// DestinationCaptured is the in-flight stage: signing then broadcast.
type DestinationCaptured struct {
	Amount      *big.Int
	Destination string
}

func (Idle) Stage() Stage                { return StageIdle }
func (AmountRequested) Stage() Stage     { return StageAmountRequested }
func (AmountCaptured) Stage() Stage      { return StageAmountCaptured }
func (DestinationCaptured) Stage() Stage { return StageDestinationCaptured }

func (Idle) withdrawalState()                {}
func (AmountRequested) withdrawalState()     {}
func (AmountCaptured) withdrawalState()      {}
func (DestinationCaptured) withdrawalState() {}

// PromptID returns the correlation id of the prompt the state is waiting on,
// or "" when no input is expected.
func PromptID(st WithdrawalState) string {
	switch v := st.(type) {
	case AmountRequested:
		return v.PromptID
	case AmountCaptured:
		return v.PromptID
	default:
		return ""
	}
}
