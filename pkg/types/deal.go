package types

// DealType is fixed by the side of the deal's first trade.
type DealType string

const (
	Long  DealType = "LONG"
	Short DealType = "SHORT"
)

// Deal groups the trades and orders that open and close one logical
// position. Deal ids are contiguous: a deal's id is its index in the engine
// arena plus one.
type Deal struct {
	ID   int64    `json:"deal_id"`
	Type DealType `json:"type"`

	BuyQuantity  float64 `json:"buy_quantity"`
	BuyCost      float64 `json:"buy_cost"`
	SellQuantity float64 `json:"sell_quantity"`
	SellProceeds float64 `json:"sell_proceeds"`
	Fee          float64 `json:"fee"`
	// Quantity is the signed net position: positive long, negative short.
	Quantity     float64 `json:"quantity"`
	AvgBuyPrice  float64 `json:"avg_buy_price"`
	AvgSellPrice float64 `json:"avg_sell_price"`

	IsClosed  bool       `json:"is_closed"`
	CloseType OrderGroup `json:"close_type"`
	Profit    float64    `json:"profit"`

	// Auto marks deals the engine created implicitly from bare buy/sell
	// calls, as opposed to deals declared via the SLTP primitive.
	Auto bool `json:"auto"`

	OrderIDs []int64 `json:"order_ids"`
	TradeIDs []int64 `json:"trade_ids"`
}
