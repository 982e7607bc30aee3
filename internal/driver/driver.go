// Package driver runs one backtest end to end: it loads the strategy,
// fetches the bar series through the quotes client, drives the bar loop
// against the order engine, and publishes incremental results and progress.
//
// The driver is designed to run inside an isolated worker process. It stamps
// a fresh result id onto the task before starting and re-checks it at every
// save-period boundary, so a superseded worker aborts instead of corrupting
// the stream of the worker that replaced it.
package driver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tradesim/internal/engine"
	"tradesim/internal/publisher"
	"tradesim/internal/strategy"
	"tradesim/internal/ta"
	"tradesim/pkg/types"
)

// DefaultSavePeriod is how often the driver publishes changes and polls the
// task for the stop flag when the config does not say otherwise.
const DefaultSavePeriod = time.Second

// QuotesSource returns the dense bar series for a task's range.
type QuotesSource interface {
	GetQuotes(ctx context.Context, source, symbol string, timeframe types.Timeframe, start, end int64) (*types.Series, error)
}

// TaskControl is the slice of the task store the driver needs: reloading the
// task for the stop flag and witness, and publishing on its progress channel.
type TaskControl interface {
	Load(ctx context.Context, id int64) (*types.Task, error)
	Save(ctx context.Context, task *types.Task) error
	SendMessage(ctx context.Context, id int64, level types.MessageLevel, text string) error
	SendEvent(ctx context.Context, id int64, event string, data map[string]any) error
}

// ResultSink receives the run's packets.
type ResultSink interface {
	Reset(ctx context.Context) error
	SendChanges(ctx context.Context) error
	Finish(ctx context.Context) error
	SendError(ctx context.Context, msg string, extra map[string]any)
	SendCancel(ctx context.Context, msg string)
}

// Config holds configuration for a backtest driver.
type Config struct {
	Store  TaskControl
	Quotes QuotesSource

	// NewSink builds the results publisher once the run's result id and
	// tracked properties are known.
	NewSink func(resultID string, props []publisher.Property) ResultSink

	SavePeriod time.Duration
	Logger     *zap.Logger

	// Now is swappable in tests to step save-period boundaries.
	Now func() time.Time
}

// Driver executes backtests.
type Driver struct {
	store      TaskControl
	quotes     QuotesSource
	newSink    func(resultID string, props []publisher.Property) ResultSink
	savePeriod time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

// New creates a driver.
func New(cfg *Config) (*Driver, error) {
	if cfg.Store == nil {
		return nil, errors.New("task store is required")
	}
	if cfg.Quotes == nil {
		return nil, errors.New("quotes source is required")
	}
	if cfg.NewSink == nil {
		return nil, errors.New("sink factory is required")
	}

	savePeriod := cfg.SavePeriod
	if savePeriod <= 0 {
		savePeriod = DefaultSavePeriod
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Driver{
		store:      cfg.Store,
		quotes:     cfg.Quotes,
		newSink:    cfg.NewSink,
		savePeriod: savePeriod,
		now:        now,
		logger:     logger,
	}, nil
}

// runState carries the scalar fields the publisher tracks that live outside
// the engine.
type runState struct {
	progress float64
	isFinish bool
}

// Run executes one backtest. The caller has already marked the task running;
// Run stamps its own result id, so a second worker started on the same task
// supersedes this one at the next save-period check.
func (d *Driver) Run(ctx context.Context, task *types.Task) error {
	logger := d.logger.With(zap.Int64("task_id", task.ID))

	if err := task.Validate(); err != nil {
		d.inputError(ctx, task, err)
		return err
	}
	desc, ok := strategy.Lookup(task.FileName)
	if !ok {
		err := fmt.Errorf("unknown strategy %q", task.FileName)
		d.inputError(ctx, task, err)
		return err
	}

	task.ResultID = uuid.NewString()
	if err := d.store.Save(ctx, task); err != nil {
		return fmt.Errorf("stamp result id: %w", err)
	}
	logger = logger.With(zap.String("result_id", task.ResultID))

	eng, err := engine.NewFromTask(task, logger)
	if err != nil {
		d.inputError(ctx, task, err)
		return err
	}

	run := &runState{}
	sink := d.newSink(task.ResultID, resultProperties(eng, run))
	if err := sink.Reset(ctx); err != nil {
		logger.Warn("reset results stream", zap.Error(err))
	}

	runsStarted.Inc()
	_ = d.store.SendEvent(ctx, task.ID, types.EventBacktestingStarted, map[string]any{
		"result_id": task.ResultID,
	})
	_ = d.store.SendMessage(ctx, task.ID, types.LevelInfo,
		fmt.Sprintf("backtesting %s %s %s", task.Source, task.Symbol, task.Timeframe))

	series, err := d.quotes.GetQuotes(ctx, task.Source, task.Symbol, task.Timeframe,
		task.DateStart.UnixMilli(), task.DateEnd.UnixMilli())
	if err != nil {
		err = fmt.Errorf("get quotes: %w", err)
		d.fail(ctx, task, sink, err)
		return err
	}
	if series.Len() == 0 {
		err = fmt.Errorf("no bars between %s and %s",
			task.DateStart.Format(time.RFC3339), task.DateEnd.Format(time.RFC3339))
		d.fail(ctx, task, sink, err)
		return err
	}
	logger.Info("bars loaded", zap.Int("bars", series.Len()))

	strat := desc.New()
	sctx := &strategy.Context{
		Broker: eng,
		Series: series,
		TA:     map[string]*ta.Proxy{"talib": ta.NewProxy(series, eng.BarIndex)},
		Params: strategy.Params(task.Parameters),
		Logger: logger,
	}
	if err := strat.OnStart(sctx); err != nil {
		err = fmt.Errorf("strategy on_start: %w", err)
		d.fail(ctx, task, sink, err)
		return err
	}

	n := series.Len()
	lastSave := d.now()
	for i := 0; i < n; i++ {
		eng.ProcessBar(i, series.Bar(i))
		if err := strat.OnBar(sctx); err != nil {
			err = fmt.Errorf("strategy on_bar %d: %w", i, err)
			d.fail(ctx, task, sink, err)
			return err
		}
		eng.RecordProfitPoint()
		barsProcessed.Inc()

		if d.now().Sub(lastSave) < d.savePeriod {
			continue
		}
		lastSave = d.now()
		run.progress = progressOf(i, n)
		if err := d.checkpoint(ctx, task, eng, run, sink); err != nil {
			if errors.Is(err, types.ErrStopped) {
				sink.SendCancel(ctx, "backtesting stopped")
				_ = d.store.SendMessage(ctx, task.ID, types.LevelWarning, "backtesting stopped")
				d.release(ctx, task)
				runsCanceled.Inc()
				logger.Warn("backtesting stopped", zap.Int("bar", i))
				return err
			}
			d.fail(ctx, task, sink, err)
			return err
		}
	}

	eng.CloseAll()
	if err := strat.OnFinish(sctx); err != nil {
		err = fmt.Errorf("strategy on_finish: %w", err)
		d.fail(ctx, task, sink, err)
		return err
	}
	if err := eng.SelfCheck(); err != nil {
		err = fmt.Errorf("self-check: %w", err)
		d.fail(ctx, task, sink, err)
		return err
	}
	if !eng.Flat() {
		err = fmt.Errorf("position not flat after close-all: %v", eng.EquitySymbol())
		d.fail(ctx, task, sink, err)
		return err
	}

	run.progress = 100
	run.isFinish = true
	if err := sink.SendChanges(ctx); err != nil {
		logger.Warn("send final snapshot", zap.Error(err))
	}
	if err := sink.Finish(ctx); err != nil {
		logger.Warn("finish results stream", zap.Error(err))
	}

	_ = d.store.SendEvent(ctx, task.ID, types.EventBacktestingCompleted, map[string]any{
		"result_id": task.ResultID,
	})
	_ = d.store.SendMessage(ctx, task.ID, types.LevelSuccess, "backtesting completed")
	d.release(ctx, task)
	runsCompleted.Inc()

	logger.Info("backtesting completed",
		zap.Int("bars", n),
		zap.Int("deals", len(eng.Deals())),
		zap.Int("trades", len(eng.Trades())),
		zap.Float64("profit", eng.Stats().Profit))
	return nil
}

// checkpoint publishes pending changes, then polls the task for the stop
// flag and the result-id witness.
func (d *Driver) checkpoint(ctx context.Context, task *types.Task, e *engine.Engine, run *runState, sink ResultSink) error {
	if err := sink.SendChanges(ctx); err != nil {
		d.logger.Warn("send changes", zap.Int64("task_id", task.ID), zap.Error(err))
	}

	cur, err := d.store.Load(ctx, task.ID)
	if err != nil {
		return fmt.Errorf("reload task: %w", err)
	}
	if cur.ResultID != task.ResultID {
		return fmt.Errorf("task %d: %w", task.ID, types.ErrResultIDMismatch)
	}
	if !cur.IsRunning {
		return types.ErrStopped
	}

	_ = d.store.SendEvent(ctx, task.ID, types.EventBacktestingProgress, map[string]any{
		"progress":     run.progress,
		"date_start":   task.DateStart.UTC().Format(time.RFC3339),
		"current_time": time.UnixMilli(e.CurrentTime()).UTC().Format(time.RFC3339),
		"result_id":    task.ResultID,
	})
	return nil
}

// fail reports a fatal run error on every surface: the results stream, the
// progress channel and the log. Reporting must still work when the run
// context itself is what failed, so it runs detached.
func (d *Driver) fail(ctx context.Context, task *types.Task, sink ResultSink, err error) {
	ctx = context.WithoutCancel(ctx)
	sink.SendError(ctx, err.Error(), map[string]any{"task_id": task.ID})
	_ = d.store.SendMessage(ctx, task.ID, types.LevelError, err.Error())
	_ = d.store.SendEvent(ctx, task.ID, types.EventBacktestingError, map[string]any{
		"error":     err.Error(),
		"result_id": task.ResultID,
	})
	d.release(ctx, task)
	runsFailed.Inc()
	d.logger.Error("backtesting failed", zap.Int64("task_id", task.ID), zap.Error(err))
}

// inputError reports a task that cannot start. No results stream exists yet.
func (d *Driver) inputError(ctx context.Context, task *types.Task, err error) {
	_ = d.store.SendMessage(ctx, task.ID, types.LevelError, err.Error())
	_ = d.store.SendEvent(ctx, task.ID, types.EventBacktestingError, map[string]any{
		"error": err.Error(),
	})
	runsFailed.Inc()
	d.logger.Error("backtesting rejected", zap.Int64("task_id", task.ID), zap.Error(err))
}

// release clears the running flag, but only while this worker still owns the
// task. A superseded worker must not touch the successor's flag. Runs
// detached so a SIGTERM'd worker still hands the task back.
func (d *Driver) release(ctx context.Context, task *types.Task) {
	ctx = context.WithoutCancel(ctx)
	cur, err := d.store.Load(ctx, task.ID)
	if err != nil || cur.ResultID != task.ResultID {
		return
	}
	cur.IsRunning = false
	if err := d.store.Save(ctx, cur); err != nil {
		d.logger.Warn("release task", zap.Int64("task_id", task.ID), zap.Error(err))
	}
}

func progressOf(i, n int) float64 {
	return float64(i+1) * 100 / float64(n)
}
