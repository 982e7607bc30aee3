package types

import "time"

// Trade is one fill. Trades are immutable once created; the single exception
// is the flip split, where the engine replaces a trade with the two trades it
// was split into (fresh ids, fees prorated by volume).
type Trade struct {
	ID       int64     `json:"trade_id"`
	DealID   int64     `json:"deal_id"`
	OrderID  int64     `json:"order_id"`
	Time     time.Time `json:"time"`
	Side     OrderSide `json:"side"`
	Price    float64   `json:"price"`
	Quantity float64   `json:"quantity"`
	Fee      float64   `json:"fee"`
	// Sum is quantity*price, stored so downstream consumers never recompute
	// it with different rounding.
	Sum float64 `json:"sum"`
}
