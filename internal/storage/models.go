package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// Execution is the persisted record of one workflow invocation.
type Execution struct {
	ID          int64
	StartedAt   time.Time
	Duration    time.Duration
	ChainID     *int64
	Oracle      string
	UserAddress string
	Currency    string
	LastUpdated *int64
	NextUpdate  *int64
	Stale       bool
	PriceUSD    *decimal.Decimal
	Price       *decimal.Decimal
	CallData    []byte
	TaskID      *string
	CanExec     bool
	Message     *string
	CreatedAt   time.Time
}
