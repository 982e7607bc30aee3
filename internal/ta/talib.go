package ta

import talib "github.com/markcheno/go-talib"

// The built-in registry covers the indicators strategies reach for most.
// Single-output overlap and momentum functions take their source column from
// the "real" input, which the proxy resolves to close.

func one(col []float64) [][]float64 { return [][]float64{col} }

func registerReal(name string, fn func([]float64, int) []float64) {
	Register(Indicator{
		Name:    name,
		Inputs:  []string{"real"},
		Params:  []Param{{Name: "timeperiod", Default: 14, Int: true}},
		Outputs: []string{"real"},
		Compute: func(in [][]float64, p []float64) [][]float64 {
			return one(fn(in[0], int(p[0])))
		},
	})
}

func registerHLC(name string, fn func([]float64, []float64, []float64, int) []float64) {
	Register(Indicator{
		Name:    name,
		Inputs:  []string{"high", "low", "close"},
		Params:  []Param{{Name: "timeperiod", Default: 14, Int: true}},
		Outputs: []string{"real"},
		Compute: func(in [][]float64, p []float64) [][]float64 {
			return one(fn(in[0], in[1], in[2], int(p[0])))
		},
	})
}

func init() {
	registerReal("sma", talib.Sma)
	registerReal("ema", talib.Ema)
	registerReal("wma", talib.Wma)
	registerReal("dema", talib.Dema)
	registerReal("tema", talib.Tema)
	registerReal("trima", talib.Trima)
	registerReal("kama", talib.Kama)
	registerReal("rsi", talib.Rsi)
	registerReal("mom", talib.Mom)
	registerReal("roc", talib.Roc)
	registerReal("min", talib.Min)
	registerReal("max", talib.Max)
	registerReal("sum", talib.Sum)

	registerHLC("atr", talib.Atr)
	registerHLC("natr", talib.Natr)
	registerHLC("adx", talib.Adx)
	registerHLC("cci", talib.Cci)
	registerHLC("willr", talib.WillR)

	Register(Indicator{
		Name:    "macd",
		Inputs:  []string{"real"},
		Params: []Param{
			{Name: "fastperiod", Default: 12, Int: true},
			{Name: "slowperiod", Default: 26, Int: true},
			{Name: "signalperiod", Default: 9, Int: true},
		},
		Outputs: []string{"macd", "signal", "hist"},
		Compute: func(in [][]float64, p []float64) [][]float64 {
			macd, signal, hist := talib.Macd(in[0], int(p[0]), int(p[1]), int(p[2]))
			return [][]float64{macd, signal, hist}
		},
	})

	Register(Indicator{
		Name:   "bbands",
		Inputs: []string{"real"},
		Params: []Param{
			{Name: "timeperiod", Default: 20, Int: true},
			{Name: "nbdevup", Default: 2},
			{Name: "nbdevdn", Default: 2},
			{Name: "matype", Default: 0, Int: true},
		},
		Outputs: []string{"upper", "middle", "lower"},
		Compute: func(in [][]float64, p []float64) [][]float64 {
			upper, middle, lower := talib.BBands(in[0], int(p[0]), p[1], p[2], talib.MaType(int(p[3])))
			return [][]float64{upper, middle, lower}
		},
	})

	Register(Indicator{
		Name:   "stoch",
		Inputs: []string{"high", "low", "close"},
		Params: []Param{
			{Name: "fastkperiod", Default: 5, Int: true},
			{Name: "slowkperiod", Default: 3, Int: true},
			{Name: "slowkmatype", Default: 0, Int: true},
			{Name: "slowdperiod", Default: 3, Int: true},
			{Name: "slowdmatype", Default: 0, Int: true},
		},
		Outputs: []string{"slowk", "slowd"},
		Compute: func(in [][]float64, p []float64) [][]float64 {
			k, d := talib.Stoch(in[0], in[1], in[2],
				int(p[0]), int(p[1]), talib.MaType(int(p[2])), int(p[3]), talib.MaType(int(p[4])))
			return [][]float64{k, d}
		},
	})

	Register(Indicator{
		Name:   "stochf",
		Inputs: []string{"high", "low", "close"},
		Params: []Param{
			{Name: "fastkperiod", Default: 5, Int: true},
			{Name: "fastdperiod", Default: 3, Int: true},
			{Name: "fastdmatype", Default: 0, Int: true},
		},
		Outputs: []string{"fastk", "fastd"},
		Compute: func(in [][]float64, p []float64) [][]float64 {
			k, d := talib.StochF(in[0], in[1], in[2], int(p[0]), int(p[1]), talib.MaType(int(p[2])))
			return [][]float64{k, d}
		},
	})

	Register(Indicator{
		Name:   "aroon",
		Inputs: []string{"high", "low"},
		Params: []Param{{Name: "timeperiod", Default: 14, Int: true}},
		Outputs: []string{"aroondown", "aroonup"},
		Compute: func(in [][]float64, p []float64) [][]float64 {
			down, up := talib.Aroon(in[0], in[1], int(p[0]))
			return [][]float64{down, up}
		},
	})

	Register(Indicator{
		Name:    "obv",
		Inputs:  []string{"real", "volume"},
		Outputs: []string{"real"},
		Compute: func(in [][]float64, _ []float64) [][]float64 {
			return one(talib.Obv(in[0], in[1]))
		},
	})

	Register(Indicator{
		Name:    "ad",
		Inputs:  []string{"high", "low", "close", "volume"},
		Outputs: []string{"real"},
		Compute: func(in [][]float64, _ []float64) [][]float64 {
			return one(talib.Ad(in[0], in[1], in[2], in[3]))
		},
	})

	Register(Indicator{
		Name:   "mfi",
		Inputs: []string{"high", "low", "close", "volume"},
		Params: []Param{{Name: "timeperiod", Default: 14, Int: true}},
		Outputs: []string{"real"},
		Compute: func(in [][]float64, p []float64) [][]float64 {
			return one(talib.Mfi(in[0], in[1], in[2], in[3], int(p[0])))
		},
	})

	Register(Indicator{
		Name:   "sar",
		Inputs: []string{"high", "low"},
		Params: []Param{
			{Name: "acceleration", Default: 0.02},
			{Name: "maximum", Default: 0.2},
		},
		Outputs: []string{"real"},
		Compute: func(in [][]float64, p []float64) [][]float64 {
			return one(talib.Sar(in[0], in[1], p[0], p[1]))
		},
	})

	Register(Indicator{
		Name:   "stddev",
		Inputs: []string{"real"},
		Params: []Param{
			{Name: "timeperiod", Default: 5, Int: true},
			{Name: "nbdev", Default: 1},
		},
		Outputs: []string{"real"},
		Compute: func(in [][]float64, p []float64) [][]float64 {
			return one(talib.StdDev(in[0], int(p[0]), p[1]))
		},
	})

	Register(Indicator{
		Name:    "trange",
		Inputs:  []string{"high", "low", "close"},
		Outputs: []string{"real"},
		Compute: func(in [][]float64, _ []float64) [][]float64 {
			return one(talib.TRange(in[0], in[1], in[2]))
		},
	})

	Register(Indicator{
		Name:    "typprice",
		Inputs:  []string{"high", "low", "close"},
		Outputs: []string{"real"},
		Compute: func(in [][]float64, _ []float64) [][]float64 {
			return one(talib.TypPrice(in[0], in[1], in[2]))
		},
	})

	Register(Indicator{
		Name:    "medprice",
		Inputs:  []string{"high", "low"},
		Outputs: []string{"real"},
		Compute: func(in [][]float64, _ []float64) [][]float64 {
			return one(talib.MedPrice(in[0], in[1]))
		},
	})

	Register(Indicator{
		Name:    "ht_trendline",
		Inputs:  []string{"real"},
		Outputs: []string{"real"},
		Compute: func(in [][]float64, _ []float64) [][]float64 {
			return one(talib.HtTrendline(in[0]))
		},
	})
}
