package types

import (
	"fmt"
	"time"
)

// Task is the configuration for one backtest run. It is stored in the task
// store under its integer id, indexed by FileName (the strategy key), and
// re-stamped with a fresh ResultID every time a worker starts it.
type Task struct {
	ID       int64  `json:"id"`
	FileName string `json:"file_name"`
	ResultID string `json:"result_id"`

	Source    string    `json:"source"`
	Symbol    string    `json:"symbol"`
	Timeframe Timeframe `json:"timeframe"`
	DateStart time.Time `json:"dateStart"`
	DateEnd   time.Time `json:"dateEnd"`

	FeeTaker        float64 `json:"fee_taker"`
	FeeMaker        float64 `json:"fee_maker"`
	PriceStep       float64 `json:"price_step"`
	PrecisionAmount float64 `json:"precision_amount"`
	PrecisionPrice  float64 `json:"precision_price"`
	SlippageInSteps int     `json:"slippage_in_steps"`

	IsRunning  bool           `json:"isRunning"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Validate rejects malformed tasks before a run starts.
func (t *Task) Validate() error {
	if t.FileName == "" {
		return fmt.Errorf("task %d: empty file_name", t.ID)
	}
	if t.Source == "" {
		return fmt.Errorf("task %d: empty source", t.ID)
	}
	if t.Symbol == "" {
		return fmt.Errorf("task %d: empty symbol", t.ID)
	}
	if !t.Timeframe.Valid() {
		return fmt.Errorf("task %d: unknown timeframe %q", t.ID, t.Timeframe)
	}
	if t.DateStart.IsZero() || t.DateEnd.IsZero() {
		return fmt.Errorf("task %d: dateStart and dateEnd are required", t.ID)
	}
	if !t.DateStart.Before(t.DateEnd) {
		return fmt.Errorf("task %d: dateStart %s is not before dateEnd %s",
			t.ID, t.DateStart.Format(time.RFC3339), t.DateEnd.Format(time.RFC3339))
	}
	if t.PrecisionAmount <= 0 {
		return fmt.Errorf("task %d: precision_amount must be positive, got %g", t.ID, t.PrecisionAmount)
	}
	if t.PrecisionPrice <= 0 {
		return fmt.Errorf("task %d: precision_price must be positive, got %g", t.ID, t.PrecisionPrice)
	}
	if t.PriceStep < 0 {
		return fmt.Errorf("task %d: price_step must not be negative, got %g", t.ID, t.PriceStep)
	}
	if t.SlippageInSteps < 0 {
		return fmt.Errorf("task %d: slippage_in_steps must not be negative, got %d", t.ID, t.SlippageInSteps)
	}
	return nil
}

// Key returns the unique secondary key the task store indexes by.
func (t *Task) Key() string { return t.FileName }
