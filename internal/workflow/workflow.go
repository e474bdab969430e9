package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"oracle-relay-keeper/internal/fetcher"
	"oracle-relay-keeper/internal/relay"
	"oracle-relay-keeper/internal/secrets"
)

// DefaultAPIKeySecret names the relay credential in the secret store.
const DefaultAPIKeySecret = "API_KEY"

// Options tune the workflow.
type Options struct {
	APIKeySecret string
	Now          func() time.Time
}

// Workflow reads oracle staleness, prices it, and pushes an update through the relay.
type Workflow struct {
	oracle  fetcher.OracleReader
	quotes  fetcher.QuoteFetcher
	relayer relay.Relayer
	secrets secrets.Store
	logger  zerolog.Logger

	apiKeySecret string
	now          func() time.Time
}

// New constructs the oracle update workflow.
func New(opts Options, oracle fetcher.OracleReader, quotes fetcher.QuoteFetcher, relayer relay.Relayer, store secrets.Store, logger zerolog.Logger) *Workflow {
	name := opts.APIKeySecret
	if name == "" {
		name = DefaultAPIKeySecret
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Workflow{
		oracle:       oracle,
		quotes:       quotes,
		relayer:      relayer,
		secrets:      store,
		logger:       logger.With().Str("component", "workflow").Logger(),
		apiKeySecret: name,
		now:          now,
	}
}

// Run executes one invocation. Every failure is terminal for the invocation and
// surfaces as a non-executable Result; nothing is retried.
func (w *Workflow) Run(ctx context.Context, raw map[string]string) (Result, Report) {
	report := Report{StartedAt: w.now().UTC(), Args: ResolveArgs(raw)}
	finish := func(res Result, cause error) (Result, Report) {
		report.Result = res
		report.Cause = cause
		report.Duration = w.now().Sub(report.StartedAt)
		return res, report
	}

	logger := w.logger.With().
		Str("oracle", report.Args.Oracle).
		Str("currency", report.Args.Currency).
		Logger()

	oracle, err := w.readState(ctx, &report)
	if err != nil {
		logger.Error().Err(err).Msg("oracle read failed")
		return finish(Skip(MsgRPCFailed), err)
	}

	logger.Info().
		Uint64("last_updated", report.State.LastUpdated).
		Uint64("next_update", report.State.NextUpdateTime).
		Bool("stale", report.Stale).
		Msg("oracle state")
	if !report.Stale {
		// The update proceeds regardless; cadence belongs to the scheduler.
		logger.Warn().Msg("oracle not yet stale, updating anyway")
	}

	if err := w.submitUpdate(ctx, &report, oracle); err != nil {
		logger.Error().Err(err).Msg("oracle update failed")
		return finish(Skip(err.Error()), err)
	}

	logger.Info().
		Str("price", report.Quote.Price.String()).
		Str("task_id", report.TaskID).
		Str("status_url", relay.StatusURL(report.TaskID)).
		Msg("updating price")
	return finish(Exec(), nil)
}

func (w *Workflow) readState(ctx context.Context, report *Report) (common.Address, error) {
	oracle, err := parseAddress(ArgOracle, report.Args.Oracle)
	if err != nil {
		return common.Address{}, err
	}

	chainID, err := w.oracle.ChainID(ctx)
	if err != nil {
		return common.Address{}, err
	}
	report.ChainID = chainID

	state, err := w.oracle.ReadOracle(ctx, oracle)
	if err != nil {
		return common.Address{}, err
	}
	report.State = &state
	report.Stale = state.Stale(w.now())
	return oracle, nil
}

func (w *Workflow) submitUpdate(ctx context.Context, report *Report, oracle common.Address) error {
	quote, err := w.quotes.FetchQuote(ctx, report.Args.Currency)
	if err != nil {
		return err
	}
	report.Quote = &quote

	data, err := fetcher.EncodeUpdatePrice(quote.Price)
	if err != nil {
		return err
	}

	user, err := parseAddress(ArgUserAddress, report.Args.UserAddress)
	if err != nil {
		return err
	}

	req := relay.UpdateRequest{
		ChainID: report.ChainID,
		Target:  oracle,
		Data:    data,
		User:    user,
	}
	report.Request = &req

	if w.secrets == nil {
		return errors.New("secret store not configured")
	}
	apiKey, err := w.secrets.Get(ctx, w.apiKeySecret)
	if err != nil {
		return err
	}

	taskID, err := w.relayer.SponsoredCall(ctx, req, apiKey)
	if err != nil {
		return err
	}
	report.TaskID = taskID
	return nil
}
