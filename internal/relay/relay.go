package relay

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrRelayRejected indicates the relay refused the submitted request.
var ErrRelayRejected = errors.New("relay rejected request")

// UpdateRequest is a sponsored ERC-2771 call executed on behalf of User.
type UpdateRequest struct {
	ChainID *big.Int
	Target  common.Address
	Data    []byte
	User    common.Address
}

// MarshalJSON renders the request the way the relay API expects it.
func (r UpdateRequest) MarshalJSON() ([]byte, error) {
	chainID := ""
	if r.ChainID != nil {
		chainID = r.ChainID.String()
	}
	return json.Marshal(struct {
		ChainID string         `json:"chainId"`
		Target  common.Address `json:"target"`
		Data    hexutil.Bytes  `json:"data"`
		User    common.Address `json:"user"`
	}{chainID, r.Target, r.Data, r.User})
}

// Relayer submits sponsored calls and returns the relay's task identifier.
type Relayer interface {
	SponsoredCall(ctx context.Context, req UpdateRequest, apiKey string) (string, error)
}

// TaskStatus tracks asynchronous inclusion of a relayed call.
type TaskStatus struct {
	ChainID          int64      `json:"chainId"`
	TaskID           string     `json:"taskId"`
	TaskState        string     `json:"taskState"`
	CreationDate     *time.Time `json:"creationDate,omitempty"`
	ExecutionDate    *time.Time `json:"executionDate,omitempty"`
	TransactionHash  string     `json:"transactionHash,omitempty"`
	BlockNumber      int64      `json:"blockNumber,omitempty"`
	LastCheckMessage string     `json:"lastCheckMessage,omitempty"`
}

// Terminal reports whether the task reached a final state.
func (s TaskStatus) Terminal() bool {
	switch s.TaskState {
	case "ExecSuccess", "ExecReverted", "Cancelled":
		return true
	default:
		return false
	}
}
