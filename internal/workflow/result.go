package workflow

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"oracle-relay-keeper/internal/fetcher"
	"oracle-relay-keeper/internal/relay"
)

// MsgRPCFailed is reported for every failure while reading oracle state.
const MsgRPCFailed = "Rpc call failed"

// CallData is a transaction the invoking harness should send itself.
type CallData struct {
	To   common.Address `json:"to"`
	Data hexutil.Bytes  `json:"data"`
}

// Result is the sole output of an invocation.
type Result struct {
	CanExec  bool       `json:"canExec"`
	Message  string     `json:"message,omitempty"`
	CallData []CallData `json:"callData"`
}

// Skip builds a non-executable result.
func Skip(message string) Result {
	return Result{CanExec: false, Message: message, CallData: []CallData{}}
}

// Exec builds an executable result with the given call data.
func Exec(calls ...CallData) Result {
	if calls == nil {
		calls = []CallData{}
	}
	return Result{CanExec: true, CallData: calls}
}

// Report captures what an invocation observed. It is informational and never
// alters the Result.
type Report struct {
	StartedAt time.Time
	Duration  time.Duration
	Args      Args
	ChainID   *big.Int
	State     *fetcher.OracleState
	// Stale is false when the oracle was updated although its next update time
	// had not been reached yet.
	Stale   bool
	Quote   *fetcher.PriceQuote
	Request *relay.UpdateRequest
	TaskID  string
	Cause   error
	Result  Result
}
