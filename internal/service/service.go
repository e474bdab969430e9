package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"oracle-relay-keeper/internal/alerting"
	"oracle-relay-keeper/internal/config"
	"oracle-relay-keeper/internal/scheduler"
	"oracle-relay-keeper/internal/storage"
	"oracle-relay-keeper/internal/workflow"
)

// Runner executes a single oracle update invocation.
type Runner interface {
	Run(ctx context.Context, args map[string]string) (workflow.Result, workflow.Report)
}

// Service drives scheduled invocations and records their outcome.
type Service struct {
	scheduler *scheduler.Scheduler
	runner    Runner
	store     storage.ExecutionStore
	notifier  alerting.Notifier
	logger    zerolog.Logger

	args     map[string]string
	channels []string
	alertsOn bool
	locker   storage.AdvisoryLocker
	lockKey  int64
}

// New constructs the keeper service.
func New(cfg *config.Config, sched *scheduler.Scheduler, runner Runner, store storage.ExecutionStore, notifier alerting.Notifier, logger zerolog.Logger) *Service {
	var locker storage.AdvisoryLocker
	if l, ok := store.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Service{
		scheduler: sched,
		runner:    runner,
		store:     store,
		notifier:  notifier,
		logger:    logger.With().Str("component", "service").Logger(),
		args:      cfg.Args(),
		channels:  cfg.Alerting.Channels,
		alertsOn:  cfg.Alerting.Enabled,
		locker:    locker,
		lockKey:   cfg.Scheduler.AdvisoryLockKey,
	}
}

// Run begins the scheduled invocation loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, func(ctx context.Context, tick time.Time) error {
		_, err := s.ProcessTick(ctx, tick)
		return err
	})
}

// ProcessTick runs one invocation unless another instance holds the advisory lock.
// A non-executable result is not an error; err is reserved for lock failures.
func (s *Service) ProcessTick(ctx context.Context, tick time.Time) (*workflow.Result, error) {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return nil, err
	}
	if !proceed {
		s.logger.Debug().Time("tick", tick).Msg("skip tick because advisory lock held elsewhere")
		return nil, nil
	}
	if unlock != nil {
		defer unlock()
	}

	res, report := s.runner.Run(ctx, s.args)
	s.record(ctx, report)

	s.logger.Info().Time("tick", tick).
		Bool("can_exec", res.CanExec).
		Str("message", res.Message).
		Dur("duration", report.Duration).
		Msg("invocation finished")

	if !res.CanExec {
		s.alert(ctx, report)
	}
	return &res, nil
}

func (s *Service) record(ctx context.Context, report workflow.Report) {
	if s.store == nil {
		return
	}
	if _, err := s.store.InsertExecution(ctx, ExecutionFromReport(report)); err != nil {
		s.logger.Error().Err(err).Time("started_at", report.StartedAt).Msg("failed to persist execution")
	}
}

func (s *Service) alert(ctx context.Context, report workflow.Report) {
	if !s.alertsOn || s.notifier == nil {
		return
	}

	note := alerting.Notification{
		StartedAt: report.StartedAt,
		Oracle:    report.Args.Oracle,
		Currency:  report.Args.Currency,
		Message:   report.Result.Message,
		Channels:  s.channels,
	}
	if report.ChainID != nil {
		note.ChainID = report.ChainID.String()
	}
	if report.Quote != nil {
		note.Price = report.Quote.USD.String()
	}
	if report.Cause != nil && report.Cause.Error() != report.Result.Message {
		note.AdditionalMsg = "Cause: " + report.Cause.Error()
	}

	if err := s.notifier.Notify(ctx, note); err != nil {
		s.logger.Error().Err(err).Time("started_at", report.StartedAt).Msg("failed to dispatch alert")
	}
}

// ExecutionFromReport maps an invocation report onto its persisted form.
func ExecutionFromReport(report workflow.Report) storage.Execution {
	exec := storage.Execution{
		StartedAt:   report.StartedAt,
		Duration:    report.Duration,
		Oracle:      report.Args.Oracle,
		UserAddress: report.Args.UserAddress,
		Currency:    report.Args.Currency,
		Stale:       report.Stale,
		CanExec:     report.Result.CanExec,
	}

	if report.ChainID != nil && report.ChainID.IsInt64() {
		v := report.ChainID.Int64()
		exec.ChainID = &v
	}
	if report.State != nil {
		last := int64(report.State.LastUpdated)
		next := int64(report.State.NextUpdateTime)
		exec.LastUpdated = &last
		exec.NextUpdate = &next
	}
	if report.Quote != nil {
		usd := report.Quote.USD
		price := decimal.NewFromBigInt(report.Quote.Price, 0)
		exec.PriceUSD = &usd
		exec.Price = &price
	}
	if report.Request != nil {
		exec.CallData = report.Request.Data
	}
	if report.TaskID != "" {
		taskID := report.TaskID
		exec.TaskID = &taskID
	}
	if report.Result.Message != "" {
		msg := report.Result.Message
		exec.Message = &msg
	}
	return exec
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
