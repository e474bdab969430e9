package fetcher

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// OracleReader reads the price oracle's on-chain state.
type OracleReader interface {
	ChainID(ctx context.Context) (*big.Int, error)
	ReadOracle(ctx context.Context, oracle common.Address) (OracleState, error)
}

// QuoteFetcher retrieves the current USD price of a market-data identifier.
type QuoteFetcher interface {
	FetchQuote(ctx context.Context, currency string) (PriceQuote, error)
}
