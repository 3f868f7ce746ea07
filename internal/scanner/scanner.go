package scanner

import (
	"container/heap"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/0xxCool/SolanaMemeCoin-bot/internal/config"
	"github.com/0xxCool/SolanaMemeCoin-bot/internal/domain"
)

const slowAnalysisThreshold = time.Second

// Analyzer receives prioritized listings from the scanner workers.
type Analyzer interface {
	Analyze(ctx context.Context, ev domain.ListingEvent) error
}

// Stats is a point-in-time snapshot of scanner counters.
type Stats struct {
	Received     uint64 `json:"received"`
	Enqueued     uint64 `json:"enqueued"`
	RejectedFull uint64 `json:"rejected_full"`
	Duplicates   uint64 `json:"duplicates"`
	NativeSkips  uint64 `json:"native_skips"`
	Analyzed     uint64 `json:"analyzed"`
	Failures     uint64 `json:"failures"`
	QueueLen     int    `json:"queue_len"`
}

// Scanner prioritizes incoming new-pair listings and hands them to the
// analyzer through a worker pool. Ingest never blocks: a full queue
// rejects the listing and counts it.
type Scanner struct {
	cfg      config.ScannerConfig
	priority PriorityConfig
	analyzer Analyzer
	logger   *zap.Logger

	mu    sync.Mutex
	queue pairQueue
	seen  map[string]struct{}
	seq   uint64

	// tokens carries one entry per queued item so workers can block on
	// work being available without holding the queue lock.
	tokens chan struct{}

	received     atomic.Uint64
	enqueued     atomic.Uint64
	rejectedFull atomic.Uint64
	duplicates   atomic.Uint64
	nativeSkips  atomic.Uint64
	analyzed     atomic.Uint64
	failures     atomic.Uint64

	cancel context.CancelFunc
	group  *errgroup.Group
	now    func() time.Time
}

func New(cfg config.ScannerConfig, priority PriorityConfig, analyzer Analyzer, logger *zap.Logger) *Scanner {
	return &Scanner{
		cfg:      cfg,
		priority: priority,
		analyzer: analyzer,
		logger:   logger.Named("scanner"),
		seen:     make(map[string]struct{}),
		tokens:   make(chan struct{}, cfg.QueueSize),
		now:      time.Now,
	}
}

// Ingest offers a listing to the scanner. It returns false when the
// listing was skipped: native mint, duplicate pair, or full queue.
func (s *Scanner) Ingest(ev domain.ListingEvent) bool {
	s.received.Add(1)

	if ev.PairAddress == "" {
		return false
	}
	if ev.BaseToken == domain.WrappedSOL {
		s.nativeSkips.Add(1)
		return false
	}

	priority := ComputePriority(s.priority, ev, s.now())

	s.mu.Lock()
	if _, dup := s.seen[ev.PairAddress]; dup {
		s.mu.Unlock()
		s.duplicates.Add(1)
		return false
	}
	if s.queue.Len() >= s.cfg.QueueSize {
		s.mu.Unlock()
		s.rejectedFull.Add(1)
		s.logger.Warn("Queue full, listing rejected",
			zap.String("pair", ev.PairAddress),
			zap.Float64("priority", priority))
		return false
	}

	s.seen[ev.PairAddress] = struct{}{}
	s.seq++
	heap.Push(&s.queue, &queueItem{event: ev, priority: priority, seq: s.seq})
	s.mu.Unlock()

	s.enqueued.Add(1)
	s.tokens <- struct{}{}

	s.logger.Debug("Listing enqueued",
		zap.String("pair", ev.PairAddress),
		zap.String("symbol", ev.BaseSymbol),
		zap.Float64("priority", priority),
		zap.Float64("liquidity_usd", ev.LiquidityUSD))
	return true
}

// Start launches the worker pool and the stats reporter.
func (s *Scanner) Start(ctx context.Context) error {
	if s.cancel != nil {
		return fmt.Errorf("scanner already started")
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.group, ctx = errgroup.WithContext(ctx)

	s.logger.Info("🔍 Starting priority scanner",
		zap.Int("workers", s.cfg.Workers),
		zap.Int("queue_size", s.cfg.QueueSize))

	for i := 0; i < s.cfg.Workers; i++ {
		name := fmt.Sprintf("worker-%d", i)
		s.group.Go(func() error {
			s.runWorker(ctx, name)
			return nil
		})
	}
	s.group.Go(func() error {
		s.statsLoop(ctx)
		return nil
	})
	return nil
}

// Stop cancels the workers and waits for in-flight analyses to finish.
func (s *Scanner) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	_ = s.group.Wait()
	s.logger.Info("Scanner stopped")
}

// runWorker pulls the highest-priority listing with a timeout so a quiet
// feed never wedges shutdown.
func (s *Scanner) runWorker(ctx context.Context, name string) {
	timeout := time.Duration(s.cfg.DequeueTimeoutMS) * time.Millisecond
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(timeout)

		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			continue
		case <-s.tokens:
		}

		item := s.dequeue()
		if item == nil {
			continue
		}
		s.analyze(ctx, name, item)
	}
}

func (s *Scanner) dequeue() *queueItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queue.Len() == 0 {
		return nil
	}
	return heap.Pop(&s.queue).(*queueItem)
}

// analyze runs one listing through the analyzer. Failures are logged and
// counted, never propagated: one bad pair must not stop the pool.
func (s *Scanner) analyze(ctx context.Context, worker string, item *queueItem) {
	start := s.now()
	err := s.analyzer.Analyze(ctx, item.event)
	elapsed := time.Since(start)

	if elapsed > slowAnalysisThreshold {
		s.logger.Warn("Slow analysis",
			zap.String("worker", worker),
			zap.String("pair", item.event.PairAddress),
			zap.Duration("elapsed", elapsed))
	}

	if err != nil {
		s.failures.Add(1)
		s.logger.Warn("Analysis failed",
			zap.String("worker", worker),
			zap.String("pair", item.event.PairAddress),
			zap.Error(err))
		return
	}
	s.analyzed.Add(1)
}

func (s *Scanner) statsLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := s.Stats()
			s.logger.Info("📊 Scanner stats",
				zap.Uint64("received", st.Received),
				zap.Uint64("enqueued", st.Enqueued),
				zap.Uint64("rejected_full", st.RejectedFull),
				zap.Uint64("duplicates", st.Duplicates),
				zap.Uint64("analyzed", st.Analyzed),
				zap.Uint64("failures", st.Failures),
				zap.Int("queue", st.QueueLen))
		}
	}
}

// Stats returns a counter snapshot.
func (s *Scanner) Stats() Stats {
	s.mu.Lock()
	queueLen := s.queue.Len()
	s.mu.Unlock()

	return Stats{
		Received:     s.received.Load(),
		Enqueued:     s.enqueued.Load(),
		RejectedFull: s.rejectedFull.Load(),
		Duplicates:   s.duplicates.Load(),
		NativeSkips:  s.nativeSkips.Load(),
		Analyzed:     s.analyzed.Load(),
		Failures:     s.failures.Load(),
		QueueLen:     queueLen,
	}
}
