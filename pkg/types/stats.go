package types

// SideStats aggregates closed-deal outcomes for one deal direction.
type SideStats struct {
	Deals      int     `json:"deals"`
	Winners    int     `json:"winners"`
	Losers     int     `json:"losers"`
	WinnersPnl float64 `json:"winners_pnl"`
	LosersPnl  float64 `json:"losers_pnl"`
	AvgWinner  float64 `json:"avg_winner"`
	AvgLoser   float64 `json:"avg_loser"`
}

// TradingStats is the running aggregate the engine maintains across a run.
// Equity fields update on every trade, profit/drawdown on every bar tick,
// deal counters on every deal close.
type TradingStats struct {
	TradesBuy  int     `json:"trades_buy"`
	TradesSell int     `json:"trades_sell"`
	Fees       float64 `json:"fees"`

	// MaxMarketVolume is the peak absolute instrument position seen.
	MaxMarketVolume float64 `json:"max_market_volume"`

	Profit      float64 `json:"profit"`
	ProfitMax   float64 `json:"profit_max"`
	DrawdownMax float64 `json:"drawdown_max"`

	Deals   int `json:"deals"`
	Winners int `json:"winners"`
	Losers  int `json:"losers"`

	Long  SideStats `json:"long"`
	Short SideStats `json:"short"`
}

// ProfitPoint is one sample of the equity curve, recorded per bar.
type ProfitPoint struct {
	Time   int64   `json:"time"`
	Profit float64 `json:"profit"`
}
