package market

import "time"

// Candle 代表单根K线。
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Sample 为一次历史回放的市场切片，按交易对聚合价格与成交量。
type Sample struct {
	Timestamp time.Time          `json:"timestamp"`
	Prices    map[string]float64 `json:"prices"`
	Volumes   map[string]float64 `json:"volumes"`
}

// Price 返回指定交易对的价格，不存在时返回 false。
func (s Sample) Price(symbol string) (float64, bool) {
	price, ok := s.Prices[symbol]
	return price, ok
}
