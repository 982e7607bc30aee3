package app

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"tradesim/internal/taskstore"
	"tradesim/pkg/types"
)

// SpawnFunc starts the worker process for a task and returns its wait and
// kill handles. Swappable in tests.
type SpawnFunc func(id int64) (wait func() error, kill func(), err error)

// Launcher runs one OS process per backtest. Isolation is the point: a
// strategy that panics or leaks takes down its own process, not the API.
type Launcher struct {
	store  *taskstore.Store
	logger *zap.Logger
	spawn  SpawnFunc

	mu      sync.Mutex
	workers map[int64]func()
	wg      sync.WaitGroup
}

// LauncherConfig holds launcher configuration.
type LauncherConfig struct {
	Store  *taskstore.Store
	Logger *zap.Logger

	// Spawn overrides how worker processes are started. Nil means
	// re-executing this binary as `run-task --id N`.
	Spawn SpawnFunc
}

// NewLauncher creates a worker launcher.
func NewLauncher(cfg *LauncherConfig) *Launcher {
	l := &Launcher{
		store:   cfg.Store,
		logger:  cfg.Logger,
		spawn:   cfg.Spawn,
		workers: make(map[int64]func()),
	}
	if l.spawn == nil {
		l.spawn = selfExec(cfg.Logger)
	}
	return l
}

// selfExec spawns this binary's run-task command for the given task id.
func selfExec(logger *zap.Logger) SpawnFunc {
	return func(id int64) (func() error, func(), error) {
		exe, err := os.Executable()
		if err != nil {
			return nil, nil, fmt.Errorf("resolve executable: %w", err)
		}
		cmd := exec.Command(exe, "run-task", "--id", strconv.FormatInt(id, 10))
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Start(); err != nil {
			return nil, nil, fmt.Errorf("start worker: %w", err)
		}
		logger.Info("worker spawned",
			zap.Int64("task_id", id),
			zap.Int("pid", cmd.Process.Pid))
		kill := func() { _ = cmd.Process.Signal(syscall.SIGTERM) }
		return cmd.Wait, kill, nil
	}
}

// Start marks the task running and spawns its worker. The worker stamps its
// own result id, so a Start racing a dying worker is safe: the old worker
// aborts at its next witness check.
func (l *Launcher) Start(ctx context.Context, id int64) error {
	task, err := l.store.Load(ctx, id)
	if err != nil {
		return err
	}
	if task.IsRunning {
		return fmt.Errorf("task %d: %w", id, types.ErrTaskRunning)
	}

	task.IsRunning = true
	if err := l.store.Save(ctx, task); err != nil {
		return fmt.Errorf("mark task %d running: %w", id, err)
	}

	wait, kill, err := l.spawn(id)
	if err != nil {
		task.IsRunning = false
		if serr := l.store.Save(ctx, task); serr != nil {
			l.logger.Error("unmark task after spawn failure",
				zap.Int64("task_id", id), zap.Error(serr))
		}
		return err
	}

	l.mu.Lock()
	l.workers[id] = kill
	l.mu.Unlock()
	workersStarted.Inc()

	l.wg.Add(1)
	go l.reap(id, wait)
	return nil
}

// Stop clears the task's running flag. The driver observes the flag at its
// next save-period boundary and winds the run down with a CANCEL packet;
// nothing is killed here.
func (l *Launcher) Stop(ctx context.Context, id int64) error {
	task, err := l.store.Load(ctx, id)
	if err != nil {
		return err
	}
	if !task.IsRunning {
		return fmt.Errorf("task %d: %w", id, types.ErrTaskNotRunning)
	}

	task.IsRunning = false
	if err := l.store.Save(ctx, task); err != nil {
		return fmt.Errorf("clear running flag for task %d: %w", id, err)
	}
	l.logger.Info("stop requested", zap.Int64("task_id", id))
	return nil
}

// Running returns the ids of workers this launcher is tracking.
func (l *Launcher) Running() []int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]int64, 0, len(l.workers))
	for id := range l.workers {
		ids = append(ids, id)
	}
	return ids
}

// Shutdown signals every tracked worker and waits for them to exit or the
// context to give up.
func (l *Launcher) Shutdown(ctx context.Context) {
	l.mu.Lock()
	for id, kill := range l.workers {
		l.logger.Info("signaling worker", zap.Int64("task_id", id))
		kill()
	}
	l.mu.Unlock()

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		l.logger.Warn("workers still running at shutdown deadline",
			zap.Int64s("task_ids", l.Running()))
	}
}

func (l *Launcher) reap(id int64, wait func() error) {
	defer l.wg.Done()
	err := wait()

	l.mu.Lock()
	delete(l.workers, id)
	l.mu.Unlock()

	if err != nil {
		// The worker already reported the failure on the control channel.
		workersFailed.Inc()
		l.logger.Warn("worker exited with error", zap.Int64("task_id", id), zap.Error(err))
		return
	}
	l.logger.Info("worker exited", zap.Int64("task_id", id))
}
