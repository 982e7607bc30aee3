package types

import "errors"

// Sentinel errors shared across package boundaries. Matching is by
// errors.Is; wrap with context at every hop.
var (
	// ErrDataNotReceived: the quotes client got no reply slot packet within
	// its timeout, or the reply carried an error status.
	ErrDataNotReceived = errors.New("data not received")

	// ErrNoMarket: the upstream exchange does not list the requested symbol.
	ErrNoMarket = errors.New("no market for symbol")

	// ErrNotFound: a task store lookup missed.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey: a task store save would repoint a unique secondary
	// key that already belongs to a different object.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrStopped: the task's isRunning flag was cleared while the driver ran.
	ErrStopped = errors.New("backtesting stopped")

	// ErrTaskRunning: the operation needs a stopped task.
	ErrTaskRunning = errors.New("task is running")

	// ErrTaskNotRunning: stop was requested for a task that is not running.
	ErrTaskNotRunning = errors.New("task is not running")

	// ErrResultIDMismatch: the task carries a different result id than this
	// worker stamped, meaning another worker took the task over.
	ErrResultIDMismatch = errors.New("result id mismatch")
)
