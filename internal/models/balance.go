package models

import "time"

// RewardBalance is a student's accrued-but-unclaimed reward quantity. It is
// internal to the ledger and distinct from the token ledger's balance.
type RewardBalance struct {
	Student   string    `db:"student" json:"student"`
	Amount    int64     `db:"amount" json:"amount"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TokenAccount is a row in the external token ledger.
type TokenAccount struct {
	Address   string    `db:"address" json:"address"`
	Balance   int64     `db:"balance" json:"balance"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
