package entity

import "time"

type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeFailure OutcomeStatus = "failure"
)

// WithdrawalOutcome is emitted once per finished withdrawal attempt.
type WithdrawalOutcome struct {
	UserID     string
	From       string
	To         string
	Amount     string // display units
	AmountWei  string
	Status     OutcomeStatus
	OrderID    string
	Stage      string // where a failure happened: destination, sign_info, sign, broadcast
	Reason     string
	FinishedAt time.Time
}

// WithdrawalRecord is the journal document for an outcome. It never holds key
// material.
type WithdrawalRecord struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	UserID    string    `bson:"user_id" json:"user_id"`
	From      string    `bson:"from" json:"from"`
	To        string    `bson:"to" json:"to"`
	Amount    string    `bson:"amount" json:"amount"`
	AmountWei string    `bson:"amount_wei" json:"amount_wei"`
	Status    string    `bson:"status" json:"status"` // success / failure
	OrderID   string    `bson:"order_id,omitempty" json:"order_id,omitempty"`
	Stage     string    `bson:"stage,omitempty" json:"stage,omitempty"`
	Reason    string    `bson:"reason,omitempty" json:"reason,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

func NewWithdrawalRecord(o WithdrawalOutcome) *WithdrawalRecord {
	return &WithdrawalRecord{
		UserID:    o.UserID,
		From:      o.From,
		To:        o.To,
		Amount:    o.Amount,
		AmountWei: o.AmountWei,
		Status:    string(o.Status),
		OrderID:   o.OrderID,
		Stage:     o.Stage,
		Reason:    o.Reason,
		CreatedAt: o.FinishedAt,
	}
}
