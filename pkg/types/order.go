package types

import "time"

// OrderSide is the trade direction.
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// Opposite returns the other side.
func (s OrderSide) Opposite() OrderSide {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Sign returns +1 for BUY and -1 for SELL, the factor position math uses.
func (s OrderSide) Sign() float64 {
	if s == Buy {
		return 1
	}
	return -1
}

// OrderType selects the matching rule.
type OrderType string

const (
	Market OrderType = "MARKET"
	Limit  OrderType = "LIMIT"
	Stop   OrderType = "STOP"
)

// OrderStatus is the order lifecycle state.
type OrderStatus string

const (
	StatusNew      OrderStatus = "NEW"
	StatusActive   OrderStatus = "ACTIVE"
	StatusExecuted OrderStatus = "EXECUTED"
	StatusCanceled OrderStatus = "CANCELED"
	StatusError    OrderStatus = "ERROR"
)

// Final reports whether the order can no longer change state.
func (s OrderStatus) Final() bool {
	return s == StatusExecuted || s == StatusCanceled || s == StatusError
}

// OrderGroup marks the role of a closing order within an SLTP deal.
type OrderGroup string

const (
	GroupNone       OrderGroup = "NONE"
	GroupStopLoss   OrderGroup = "STOP_LOSS"
	GroupTakeProfit OrderGroup = "TAKE_PROFIT"
)

// Order is one instruction to the simulated venue. Orders live in the
// engine's arena and reference their deal by id, never by pointer.
//
// Price carries the limit price, TriggerPrice the stop trigger; zero means
// unset, and validation enforces that exactly one is set for non-market
// orders. All prices and volumes are snapped to the task's precision steps.
type Order struct {
	ID           int64       `json:"order_id"`
	DealID       int64       `json:"deal_id"`
	Type         OrderType   `json:"type"`
	Side         OrderSide   `json:"side"`
	Price        float64     `json:"price,omitempty"`
	TriggerPrice float64     `json:"trigger_price,omitempty"`
	Volume       float64     `json:"volume"`
	FilledVolume float64     `json:"filled_volume"`
	Status       OrderStatus `json:"status"`
	Group        OrderGroup  `json:"order_group"`
	Fraction     float64     `json:"fraction,omitempty"`
	Errors       []string    `json:"errors,omitempty"`
	CreateTime   time.Time   `json:"create_time"`
	ModifyTime   time.Time   `json:"modify_time"`
}

// Resting reports whether the order sits on the simulated book waiting for a
// bar to cross it.
func (o *Order) Resting() bool {
	return o.Status == StatusActive && (o.Type == Limit || o.Type == Stop)
}

// Remaining returns the unfilled volume.
func (o *Order) Remaining() float64 {
	return o.Volume - o.FilledVolume
}
