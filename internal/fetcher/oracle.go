package fetcher

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
)

const (
	oracleABIJSON = `[
		{"inputs":[],"name":"lastUpdated","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
		{"inputs":[{"internalType":"uint256","name":"_price","type":"uint256"}],"name":"updatePrice","outputs":[],"stateMutability":"nonpayable","type":"function"}
	]`

	// DefaultUpdateInterval is the minimum spacing between oracle updates.
	DefaultUpdateInterval = time.Hour
)

var (
	oracleABI abi.ABI

	// ErrMalformedResponse is returned when the oracle answers with an unexpected payload.
	ErrMalformedResponse = errors.New("malformed oracle response")
)

func init() {
	parsed, err := abi.JSON(strings.NewReader(oracleABIJSON))
	if err != nil {
		panic("failed to parse oracle ABI: " + err.Error())
	}
	oracleABI = parsed
}

// OracleState is the staleness view of an oracle, in unix seconds.
type OracleState struct {
	LastUpdated    uint64
	NextUpdateTime uint64
}

// NewOracleState derives the next eligible update time from lastUpdated.
func NewOracleState(lastUpdated uint64, interval time.Duration) OracleState {
	if interval <= 0 {
		interval = DefaultUpdateInterval
	}
	return OracleState{
		LastUpdated:    lastUpdated,
		NextUpdateTime: lastUpdated + uint64(interval/time.Second),
	}
}

// Stale reports whether now has reached the next eligible update time.
func (s OracleState) Stale(now time.Time) bool {
	return uint64(now.Unix()) >= s.NextUpdateTime
}

// EncodeUpdatePrice packs the calldata for updatePrice(uint256).
func EncodeUpdatePrice(price *big.Int) ([]byte, error) {
	if price == nil || price.Sign() < 0 {
		return nil, fmt.Errorf("invalid update price %v", price)
	}
	return oracleABI.Pack("updatePrice", price)
}

// Backend is the subset of ethclient.Client the oracle reader depends on.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// OracleOptions parameterise the on-chain reader.
type OracleOptions struct {
	RPCURL         string
	Timeout        time.Duration
	UpdateInterval time.Duration
}

// Oracle reads oracle state via Ethereum RPC.
type Oracle struct {
	opts       OracleOptions
	logger     zerolog.Logger
	backend    Backend
	backendMux sync.Mutex
}

// NewOracle builds a reader that dials opts.RPCURL on first use.
func NewOracle(opts OracleOptions, logger zerolog.Logger) *Oracle {
	return &Oracle{opts: opts, logger: logger.With().Str("component", "oracle_reader").Logger()}
}

// NewOracleWithBackend builds a reader over an already connected backend.
func NewOracleWithBackend(backend Backend, opts OracleOptions, logger zerolog.Logger) *Oracle {
	o := NewOracle(opts, logger)
	o.backend = backend
	return o
}

// ChainID returns the chain identifier reported by the connected provider.
func (o *Oracle) ChainID(ctx context.Context) (*big.Int, error) {
	ctx, cancel := o.withTimeout(ctx)
	defer cancel()

	backend, err := o.getBackend(ctx)
	if err != nil {
		return nil, err
	}
	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain id: %w", err)
	}
	return chainID, nil
}

// ReadOracle calls lastUpdated() on the oracle and derives the next update time.
func (o *Oracle) ReadOracle(ctx context.Context, oracle common.Address) (OracleState, error) {
	ctx, cancel := o.withTimeout(ctx)
	defer cancel()

	backend, err := o.getBackend(ctx)
	if err != nil {
		return OracleState{}, err
	}

	payload, err := oracleABI.Pack("lastUpdated")
	if err != nil {
		return OracleState{}, err
	}

	res, err := backend.CallContract(ctx, ethereum.CallMsg{To: &oracle, Data: payload}, nil)
	if err != nil {
		return OracleState{}, fmt.Errorf("call lastUpdated: %w", err)
	}

	outputs, err := oracleABI.Unpack("lastUpdated", res)
	if err != nil {
		return OracleState{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(outputs) != 1 {
		return OracleState{}, ErrMalformedResponse
	}

	lastUpdated, ok := outputs[0].(*big.Int)
	if !ok || !lastUpdated.IsUint64() {
		return OracleState{}, ErrMalformedResponse
	}

	state := NewOracleState(lastUpdated.Uint64(), o.opts.UpdateInterval)
	o.logger.Debug().
		Str("oracle", oracle.Hex()).
		Uint64("last_updated", state.LastUpdated).
		Msg("oracle state read")
	return state, nil
}

func (o *Oracle) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := o.opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

func (o *Oracle) getBackend(ctx context.Context) (Backend, error) {
	o.backendMux.Lock()
	defer o.backendMux.Unlock()

	if o.backend != nil {
		return o.backend, nil
	}
	if o.opts.RPCURL == "" {
		return nil, errors.New("ethereum rpc url not configured")
	}

	client, err := ethclient.DialContext(ctx, o.opts.RPCURL)
	if err != nil {
		return nil, err
	}
	o.backend = client
	return client, nil
}

// Close releases the dialled RPC connection, if any.
func (o *Oracle) Close() {
	o.backendMux.Lock()
	defer o.backendMux.Unlock()

	if client, ok := o.backend.(*ethclient.Client); ok {
		client.Close()
	}
	o.backend = nil
}

var _ OracleReader = (*Oracle)(nil)
