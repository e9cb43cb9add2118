package valuation

// DrawdownTracker 跨连续估值维护运行峰值与最大回撤。
// 峰值与回撤只有这一条更新路径，保证最大回撤单调不减。
type DrawdownTracker struct {
	peak    float64
	current float64
	max     float64
}

// NewDrawdownTracker 以初始净值作为峰值创建追踪器。
func NewDrawdownTracker(initialValue float64) *DrawdownTracker {
	return &DrawdownTracker{peak: initialValue}
}

// Observe 记录一次净值，返回最新的当前回撤与最大回撤（百分比）。
func (t *DrawdownTracker) Observe(totalValue float64) (current, max float64) {
	if totalValue > t.peak {
		t.peak = totalValue
	}

	t.current = 0
	if t.peak > 0 {
		dd := (t.peak - totalValue) / t.peak * 100
		if dd > 0 {
			t.current = dd
		}
	}
	if t.current > t.max {
		t.max = t.current
	}

	return t.current, t.max
}

// Current 返回最近一次观测的当前回撤百分比。
func (t *DrawdownTracker) Current() float64 {
	return t.current
}

// Max 返回最大回撤百分比。
func (t *DrawdownTracker) Max() float64 {
	return t.max
}

// Peak 返回运行峰值。
func (t *DrawdownTracker) Peak() float64 {
	return t.peak
}
