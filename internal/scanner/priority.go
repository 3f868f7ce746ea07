package scanner

import (
	"container/heap"
	"time"

	"github.com/0xxCool/SolanaMemeCoin-bot/internal/domain"
)

// PriorityConfig holds the scoring bands for new-pair prioritization.
// The sweet spot is a liquidity range fresh meme launches typically hit:
// enough to trade, not enough to be an established pool.
type PriorityConfig struct {
	SweetSpotMinUSD  float64
	SweetSpotMaxUSD  float64
	SweetSpotBonus   float64
	WideBandMinUSD   float64
	WideBandMaxUSD   float64
	WideBandBonus    float64
	FreshAge         time.Duration
	FreshBonus       float64
	RecentAge        time.Duration
	RecentBonus      float64
	HighVolumeUSD    float64
	HighVolumeBonus  float64
	SomeVolumeUSD    float64
	SomeVolumeBonus  float64
	HighTxCount      int
	HighTxCountBonus float64
	SomeTxCount      int
	SomeTxCountBonus float64
}

func DefaultPriorityConfig() PriorityConfig {
	return PriorityConfig{
		SweetSpotMinUSD:  10000,
		SweetSpotMaxUSD:  50000,
		SweetSpotBonus:   50,
		WideBandMinUSD:   5000,
		WideBandMaxUSD:   100000,
		WideBandBonus:    25,
		FreshAge:         time.Minute,
		FreshBonus:       40,
		RecentAge:        5 * time.Minute,
		RecentBonus:      20,
		HighVolumeUSD:    10000,
		HighVolumeBonus:  30,
		SomeVolumeUSD:    5000,
		SomeVolumeBonus:  15,
		HighTxCount:      20,
		HighTxCountBonus: 20,
		SomeTxCount:      10,
		SomeTxCountBonus: 10,
	}
}

// ComputePriority scores a listing; higher means analyzed sooner.
func ComputePriority(cfg PriorityConfig, ev domain.ListingEvent, now time.Time) float64 {
	var priority float64

	switch {
	case ev.LiquidityUSD >= cfg.SweetSpotMinUSD && ev.LiquidityUSD <= cfg.SweetSpotMaxUSD:
		priority += cfg.SweetSpotBonus
	case ev.LiquidityUSD >= cfg.WideBandMinUSD && ev.LiquidityUSD <= cfg.WideBandMaxUSD:
		priority += cfg.WideBandBonus
	}

	age := now.Sub(ev.CreatedAt)
	switch {
	case age < cfg.FreshAge:
		priority += cfg.FreshBonus
	case age < cfg.RecentAge:
		priority += cfg.RecentBonus
	}

	switch {
	case ev.Volume5m > cfg.HighVolumeUSD:
		priority += cfg.HighVolumeBonus
	case ev.Volume5m > cfg.SomeVolumeUSD:
		priority += cfg.SomeVolumeBonus
	}

	switch {
	case ev.TxCount5m > cfg.HighTxCount:
		priority += cfg.HighTxCountBonus
	case ev.TxCount5m > cfg.SomeTxCount:
		priority += cfg.SomeTxCountBonus
	}

	return priority
}

type queueItem struct {
	event    domain.ListingEvent
	priority float64
	seq      uint64
}

// pairQueue is a max-heap on priority with FIFO tie-break on arrival order.
type pairQueue []*queueItem

func (q pairQueue) Len() int { return len(q) }

func (q pairQueue) Less(i, j int) bool {
	if q[i].priority != q[j].priority {
		return q[i].priority > q[j].priority
	}
	return q[i].seq < q[j].seq
}

func (q pairQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *pairQueue) Push(x interface{}) {
	*q = append(*q, x.(*queueItem))
}

func (q *pairQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

var _ heap.Interface = (*pairQueue)(nil)
