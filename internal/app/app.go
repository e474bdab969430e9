package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"oracle-relay-keeper/internal/alerting"
	"oracle-relay-keeper/internal/config"
	"oracle-relay-keeper/internal/fetcher"
	"oracle-relay-keeper/internal/relay"
	"oracle-relay-keeper/internal/scheduler"
	"oracle-relay-keeper/internal/secrets"
	"oracle-relay-keeper/internal/service"
	"oracle-relay-keeper/internal/storage"
	"oracle-relay-keeper/internal/workflow"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newGelato() *relay.Gelato {
	return relay.NewGelato(relay.GelatoOptions{
		BaseURL: a.Config.Relay.BaseURL,
		Timeout: a.Config.Relay.RequestTimeout,
	}, a.Logger)
}

func (a *App) newSecrets() secrets.Store {
	return secrets.Chain{
		secrets.Static(a.Config.Secrets),
		secrets.Env{Prefix: a.Config.Relay.SecretsEnvPrefix},
	}
}

// newWorkflow wires the oracle reader, quote fetcher, relayer and secret store.
func (a *App) newWorkflow(dryRun bool) (*workflow.Workflow, func()) {
	oracle := fetcher.NewOracle(fetcher.OracleOptions{
		RPCURL:         a.Config.Ethereum.RPCURL,
		Timeout:        a.Config.Ethereum.RequestTimeout,
		UpdateInterval: a.Config.Oracle.UpdateInterval,
	}, a.Logger)

	quotes := fetcher.NewCoinGecko(fetcher.CoinGeckoOptions{
		BaseURL:   a.Config.CoinGecko.BaseURL,
		APIKey:    a.Config.CoinGecko.APIKey,
		Pro:       a.Config.CoinGecko.Pro,
		Timeout:   a.Config.CoinGecko.RequestTimeout,
		UserAgent: a.Config.CoinGecko.UserAgent,
	}, a.Logger)

	var relayer relay.Relayer = a.newGelato()
	var store secrets.Store = a.newSecrets()
	if dryRun {
		relayer = relay.NewDryRun(a.Logger)
		store = secrets.Chain{store, secrets.Static{a.Config.Relay.APIKeySecret: "dry-run"}}
	}

	wf := workflow.New(workflow.Options{APIKeySecret: a.Config.Relay.APIKeySecret}, oracle, quotes, relayer, store, a.Logger)
	return wf, oracle.Close
}

// newNotifier fans alerts out to the configured channels. Telegram is only
// used when its own section is enabled.
func (a *App) newNotifier() alerting.Notifier {
	var channels alerting.Multi
	for _, ch := range a.Config.Alerting.Channels {
		switch ch {
		case "log":
			channels = append(channels, alerting.NewLogNotifier(a.Logger))
		case "telegram":
			cfg := a.Config.Alerting.Telegram
			if !cfg.Enabled {
				continue
			}
			channels = append(channels, alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger))
		}
	}
	if len(channels) == 0 {
		return nil
	}
	return channels
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}

	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// Run executes the long-running keeper service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; execution history disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	sched, err := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		Cron:         a.Config.Scheduler.Cron,
		AlignToStart: a.Config.Scheduler.AlignToBucket,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)
	if err != nil {
		return err
	}

	wf, closeWorkflow := a.newWorkflow(false)
	defer closeWorkflow()

	var execStore storage.ExecutionStore
	if store != nil {
		execStore = store
	}

	svc := service.New(a.Config, sched, wf, execStore, a.newNotifier(), a.Logger)

	a.Logger.Info().Msg("starting oracle keeper")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("oracle keeper stopped")
	return nil
}

// ExecOptions configure a single invocation.
type ExecOptions struct {
	Oracle      string
	UserAddress string
	Currency    string
	DryRun      bool
}

// ExportOptions hold parameters for exporting execution history.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// PruneOptions configure the prune command.
type PruneOptions struct {
	Before time.Time
}
