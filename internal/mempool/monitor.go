package mempool

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/0xxCool/SolanaMemeCoin-bot/internal/config"
	"github.com/0xxCool/SolanaMemeCoin-bot/internal/domain"
	"github.com/0xxCool/SolanaMemeCoin-bot/internal/events"
)

// ConnState is the websocket connection lifecycle state.
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateSubscribed
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateSubscribed:
		return "SUBSCRIBED"
	default:
		return "UNKNOWN"
	}
}

// Stats is a point-in-time snapshot of monitor counters.
type Stats struct {
	State       string `json:"state"`
	Monitored   uint64 `json:"monitored"`
	Decoded     uint64 `json:"decoded"`
	Unparsable  uint64 `json:"unparsable"`
	Duplicates  uint64 `json:"duplicates"`
	LPCreations uint64 `json:"lp_creations"`
	LargeTrades uint64 `json:"large_trades"`
	Signals     uint64 `json:"signals"`
	WindowLen   int    `json:"window_len"`
}

// Monitor watches pending transactions on the monitored DEX programs and
// turns them into early trading signals on the event bus.
type Monitor struct {
	cfg    config.MempoolConfig
	wsURL  string
	bus    *events.Bus
	logger *zap.Logger

	window *txWindow
	known  *knownTokenChecker

	state       atomic.Int32
	monitored   atomic.Uint64
	decoded     atomic.Uint64
	unparsable  atomic.Uint64
	duplicates  atomic.Uint64
	lpCreations atomic.Uint64
	largeTrades atomic.Uint64
	signals     atomic.Uint64

	cancel context.CancelFunc
	wg     sync.WaitGroup
	now    func() time.Time
}

func NewMonitor(cfg config.MempoolConfig, wsURL string, prober accountProber, bus *events.Bus, logger *zap.Logger) *Monitor {
	log := logger.Named("mempool")
	return &Monitor{
		cfg:    cfg,
		wsURL:  wsURL,
		bus:    bus,
		logger: log,
		window: newTxWindow(cfg.WindowSize, 0),
		known:  newKnownTokenChecker(prober, log),
		now:    time.Now,
	}
}

// Start launches the connection, pattern and stats loops. It returns
// immediately; Stop tears everything down.
func (m *Monitor) Start(ctx context.Context) error {
	if m.cancel != nil {
		return fmt.Errorf("monitor already started")
	}
	ctx, m.cancel = context.WithCancel(ctx)

	m.logger.Info("🔍 Starting mempool monitor",
		zap.String("ws_url", m.wsURL),
		zap.Int("programs", len(MonitoredPrograms)))

	m.wg.Add(3)
	go m.connectionLoop(ctx)
	go m.patternLoop(ctx)
	go m.statsLoop(ctx)
	return nil
}

// Stop cancels all loops and waits for them to drain.
func (m *Monitor) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	m.wg.Wait()
	m.state.Store(int32(StateDisconnected))
	m.logger.Info("Mempool monitor stopped")
}

// connectionLoop keeps a subscription alive with constant-delay
// reconnects until the context is cancelled.
func (m *Monitor) connectionLoop(ctx context.Context) {
	defer m.wg.Done()

	delay := time.Duration(m.cfg.ReconnectDelayMS) * time.Millisecond
	op := func() (struct{}, error) {
		err := m.runConnection(ctx)
		m.state.Store(int32(StateDisconnected))
		if err != nil && ctx.Err() == nil {
			m.logger.Warn("⚠️ Mempool websocket disconnected, reconnecting", zap.Error(err))
			return struct{}{}, err
		}
		return struct{}{}, nil
	}

	_, _ = backoff.Retry(ctx, op, backoff.WithBackOff(backoff.NewConstantBackOff(delay)))
}

// runConnection dials, subscribes to every monitored program, and pumps
// notifications until the connection drops or the context ends.
func (m *Monitor) runConnection(ctx context.Context) error {
	m.state.Store(int32(StateConnecting))

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, m.wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", m.wsURL, err)
	}
	defer conn.Close()

	closed := make(chan struct{})
	defer close(closed)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-closed:
		}
	}()

	for i, programID := range MonitoredPrograms {
		sub := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      i + 1,
			"method":  "programSubscribe",
			"params": []interface{}{
				programID,
				map[string]interface{}{
					"encoding":   "base64",
					"commitment": "processed",
				},
			},
		}
		if err := conn.WriteJSON(sub); err != nil {
			return fmt.Errorf("subscribe %s: %w", programID, err)
		}
	}

	m.state.Store(int32(StateSubscribed))
	m.logger.Info("✅ Subscribed to programs", zap.Int("count", len(MonitoredPrograms)))

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		m.handleMessage(ctx, message)
	}
}

type wsNotification struct {
	Method string `json:"method"`
	Params struct {
		Result struct {
			Signature   string          `json:"signature"`
			Transaction json.RawMessage `json:"transaction"`
		} `json:"result"`
	} `json:"params"`
}

// handleMessage processes one raw websocket frame.
func (m *Monitor) handleMessage(ctx context.Context, message []byte) {
	m.monitored.Add(1)

	var note wsNotification
	if err := json.Unmarshal(message, &note); err != nil || note.Params.Result.Signature == "" {
		return // subscription confirmations and unrelated frames
	}

	raw, err := decodeTransactionField(note.Params.Result.Transaction)
	if err != nil {
		m.unparsable.Add(1)
		return
	}

	tx, err := decodeTransaction(note.Params.Result.Signature, raw, m.now())
	if err != nil {
		m.unparsable.Add(1)
		return
	}
	if tx.Type == domain.TxUnknown {
		return
	}

	if !m.window.Add(tx) {
		m.duplicates.Add(1)
		return
	}
	m.decoded.Add(1)

	switch tx.Type {
	case domain.TxLPCreation:
		m.lpCreations.Add(1)
	case domain.TxLargeBuy, domain.TxLargeSell:
		m.largeTrades.Add(1)
	}

	if signal := m.checkSignals(ctx, tx); signal != nil {
		m.emitSignal(signal)
	}
}

// decodeTransactionField unwraps the transaction payload, which arrives
// either as a bare base64 string or as a [data, encoding] tuple.
func decodeTransactionField(field json.RawMessage) ([]byte, error) {
	var asString string
	if err := json.Unmarshal(field, &asString); err == nil {
		return base64.StdEncoding.DecodeString(asString)
	}

	var asTuple []string
	if err := json.Unmarshal(field, &asTuple); err == nil && len(asTuple) > 0 {
		return base64.StdEncoding.DecodeString(asTuple[0])
	}
	return nil, ErrUnparsable
}

// checkSignals applies the signal rules in priority order: fresh LP
// creation first, then whale buys, then suspicious activity.
func (m *Monitor) checkSignals(ctx context.Context, tx *domain.MempoolTransaction) *domain.EarlySignal {
	if tx.Type == domain.TxLPCreation && tx.TokenMint != "" {
		if !m.known.IsKnown(ctx, tx.TokenMint) {
			return &domain.EarlySignal{
				Type:           domain.SignalNewLPCreation,
				TokenAddress:   tx.TokenMint,
				Confidence:     0.9,
				ActionRequired: true,
				AmountSOL:      tx.AmountSOL,
				PriorityFee:    tx.PriorityFee,
				Signature:      tx.Signature,
				ProgramID:      tx.ProgramID,
				Timestamp:      tx.Timestamp,
			}
		}
		return nil
	}

	if tx.Type == domain.TxLargeBuy && tx.AmountSOL > m.cfg.WhaleThresholdSOL {
		return &domain.EarlySignal{
			Type:           domain.SignalWhaleBuy,
			TokenAddress:   tx.TokenMint,
			Confidence:     0.7,
			ActionRequired: tx.AmountSOL > m.cfg.WhaleActionSOL,
			AmountSOL:      tx.AmountSOL,
			PriorityFee:    tx.PriorityFee,
			Signature:      tx.Signature,
			ProgramID:      tx.ProgramID,
			Timestamp:      tx.Timestamp,
		}
	}

	if m.isSuspicious(ctx, tx) {
		return &domain.EarlySignal{
			Type:           domain.SignalSuspicious,
			TokenAddress:   tx.TokenMint,
			Confidence:     0.5,
			ActionRequired: false,
			AmountSOL:      tx.AmountSOL,
			PriorityFee:    tx.PriorityFee,
			Signature:      tx.Signature,
			ProgramID:      tx.ProgramID,
			Timestamp:      tx.Timestamp,
		}
	}
	return nil
}

// isSuspicious flags an outsized priority fee on an unknown token, or a
// burst of transactions touching the same token.
func (m *Monitor) isSuspicious(ctx context.Context, tx *domain.MempoolTransaction) bool {
	if tx.PriorityFee > m.cfg.SuspiciousFee && tx.TokenMint != "" {
		if !m.known.IsKnown(ctx, tx.TokenMint) {
			return true
		}
	}

	if tx.TokenMint == "" {
		return false
	}

	burstWindow := time.Duration(m.cfg.BurstWindowMS) * time.Millisecond
	similar := 0
	for _, other := range m.window.ForToken(tx.TokenMint) {
		delta := tx.Timestamp.Sub(other.Timestamp)
		if delta < 0 {
			delta = -delta
		}
		if delta < burstWindow {
			similar++
		}
	}
	return similar > m.cfg.BurstCount
}

func (m *Monitor) emitSignal(signal *domain.EarlySignal) {
	m.signals.Add(1)
	m.logger.Info("🚨 Early signal detected",
		zap.String("type", string(signal.Type)),
		zap.String("token", signal.TokenAddress),
		zap.Float64("confidence", signal.Confidence),
		zap.Bool("action_required", signal.ActionRequired))

	if err := m.bus.Publish(events.NewEarlySignalEvent(*signal)); err != nil {
		m.logger.Warn("Signal dropped", zap.Error(err))
	}
}

// patternLoop periodically scans the recent window slice for aggregate
// patterns no single transaction reveals.
func (m *Monitor) patternLoop(ctx context.Context) {
	defer m.wg.Done()

	interval := time.Duration(m.cfg.PatternIntervalMS) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, signal := range m.findPatterns() {
				m.emitSignal(signal)
			}
		}
	}
}

// findPatterns inspects the last slice of the window for LP-creation
// waves and per-token whale accumulation.
func (m *Monitor) findPatterns() []*domain.EarlySignal {
	if m.window.Len() < m.cfg.PatternMinWindow {
		return nil
	}

	recent := m.window.Snapshot()
	if len(recent) > m.cfg.PatternSliceSize {
		recent = recent[len(recent)-m.cfg.PatternSliceSize:]
	}

	var signals []*domain.EarlySignal
	now := m.now()

	lpCreations := 0
	var lastLPToken string
	for _, tx := range recent {
		if tx.Type == domain.TxLPCreation {
			lpCreations++
			if tx.TokenMint != "" {
				lastLPToken = tx.TokenMint
			}
		}
	}
	if lpCreations > m.cfg.LPWaveCount {
		signals = append(signals, &domain.EarlySignal{
			Type:           domain.SignalLPCreationWave,
			TokenAddress:   lastLPToken,
			Confidence:     0.6,
			ActionRequired: false,
			AmountSOL:      float64(lpCreations),
			Timestamp:      now,
		})
	}

	tokenBuys := make(map[string]float64)
	for _, tx := range recent {
		if tx.Type == domain.TxLargeBuy && tx.AmountSOL > m.cfg.WhaleThresholdSOL && tx.TokenMint != "" {
			tokenBuys[tx.TokenMint] += tx.AmountSOL
		}
	}
	for token, total := range tokenBuys {
		if total > m.cfg.AccumulationSOL {
			signals = append(signals, &domain.EarlySignal{
				Type:           domain.SignalWhaleAccumulation,
				TokenAddress:   token,
				Confidence:     0.7,
				ActionRequired: true,
				AmountSOL:      total,
				Timestamp:      now,
			})
		}
	}
	return signals
}

func (m *Monitor) statsLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := m.Stats()
			m.logger.Info("📊 Mempool monitor stats",
				zap.String("state", s.State),
				zap.Uint64("monitored", s.Monitored),
				zap.Uint64("decoded", s.Decoded),
				zap.Uint64("unparsable", s.Unparsable),
				zap.Uint64("lp_creations", s.LPCreations),
				zap.Uint64("large_trades", s.LargeTrades),
				zap.Uint64("signals", s.Signals),
				zap.Int("window", s.WindowLen))
		}
	}
}

// PendingTransactions returns the window's transactions for a token.
func (m *Monitor) PendingTransactions(tokenMint string) []*domain.MempoolTransaction {
	return m.window.ForToken(tokenMint)
}

// State returns the connection state.
func (m *Monitor) State() ConnState {
	return ConnState(m.state.Load())
}

// Stats returns a counter snapshot.
func (m *Monitor) Stats() Stats {
	return Stats{
		State:       m.State().String(),
		Monitored:   m.monitored.Load(),
		Decoded:     m.decoded.Load(),
		Unparsable:  m.unparsable.Load(),
		Duplicates:  m.duplicates.Load(),
		LPCreations: m.lpCreations.Load(),
		LargeTrades: m.largeTrades.Load(),
		Signals:     m.signals.Load(),
		WindowLen:   m.window.Len(),
	}
}
