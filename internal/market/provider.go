package market

import (
	"context"
	"sort"
	"time"
)

// SampleProvider 按时间顺序提供市场切片。
type SampleProvider interface {
	Next(ctx context.Context) (Sample, bool, error)
}

// SliceProvider 以固定序列提供切片。
type SliceProvider struct {
	samples []Sample
	index   int
}

// NewSliceProvider 创建基于内存序列的提供者。
func NewSliceProvider(samples []Sample) *SliceProvider {
	return &SliceProvider{samples: samples}
}

func (p *SliceProvider) Next(ctx context.Context) (Sample, bool, error) {
	if err := ctx.Err(); err != nil {
		return Sample{}, false, err
	}
	if p.index >= len(p.samples) {
		return Sample{}, false, nil
	}
	sample := p.samples[p.index]
	p.index++
	return sample, true, nil
}

// Reset 将游标移回序列起点，便于同一数据集的多次回放。
func (p *SliceProvider) Reset() {
	p.index = 0
}

// SamplesFromCandles 将单一交易对的K线转换为按收盘价取样的切片序列。
func SamplesFromCandles(symbol string, candles []Candle) []Sample {
	samples := make([]Sample, 0, len(candles))
	for _, candle := range candles {
		samples = append(samples, Sample{
			Timestamp: candle.Timestamp.UTC(),
			Prices:    map[string]float64{symbol: candle.Close},
			Volumes:   map[string]float64{symbol: candle.Volume},
		})
	}
	return samples
}

// MergeCandleSeries 将多个交易对的K线按时间戳对齐合并为统一切片序列。
// 某交易对在某个时间点缺少K线时沿用其最近一次收盘价，成交量记为0。
func MergeCandleSeries(series map[string][]Candle) []Sample {
	type point struct {
		close  float64
		volume float64
	}

	byTime := make(map[int64]map[string]point)
	for symbol, candles := range series {
		for _, candle := range candles {
			ts := candle.Timestamp.UTC().Unix()
			if byTime[ts] == nil {
				byTime[ts] = make(map[string]point)
			}
			byTime[ts][symbol] = point{close: candle.Close, volume: candle.Volume}
		}
	}

	timestamps := make([]int64, 0, len(byTime))
	for ts := range byTime {
		timestamps = append(timestamps, ts)
	}
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i] < timestamps[j] })

	lastClose := make(map[string]float64, len(series))
	samples := make([]Sample, 0, len(timestamps))
	for _, ts := range timestamps {
		prices := make(map[string]float64, len(series))
		volumes := make(map[string]float64, len(series))
		for symbol := range series {
			if p, ok := byTime[ts][symbol]; ok {
				lastClose[symbol] = p.close
				prices[symbol] = p.close
				volumes[symbol] = p.volume
				continue
			}
			if close, ok := lastClose[symbol]; ok {
				prices[symbol] = close
				volumes[symbol] = 0
			}
		}
		samples = append(samples, Sample{
			Timestamp: time.Unix(ts, 0).UTC(),
			Prices:    prices,
			Volumes:   volumes,
		})
	}

	return samples
}
