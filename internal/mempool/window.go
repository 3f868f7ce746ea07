package mempool

import (
	"sync"
	"time"

	"github.com/0xxCool/SolanaMemeCoin-bot/internal/domain"
)

const (
	defaultWindowSize = 10000
	defaultSeenSize   = 50000
)

// txWindow keeps the most recent transactions in a ring buffer and a
// bounded set of seen signatures for dedup. Oldest entries fall off first.
type txWindow struct {
	mu sync.RWMutex

	buf  []*domain.MempoolTransaction
	head int
	full bool

	seen     map[string]struct{}
	seenFIFO []string
	seenCap  int
}

func newTxWindow(size, seenCap int) *txWindow {
	if size <= 0 {
		size = defaultWindowSize
	}
	if seenCap <= 0 {
		seenCap = defaultSeenSize
	}
	return &txWindow{
		buf:     make([]*domain.MempoolTransaction, size),
		seen:    make(map[string]struct{}, seenCap),
		seenCap: seenCap,
	}
}

// Add records a transaction. It returns false when the signature was
// already seen.
func (w *txWindow) Add(tx *domain.MempoolTransaction) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, dup := w.seen[tx.Signature]; dup {
		return false
	}

	w.seen[tx.Signature] = struct{}{}
	w.seenFIFO = append(w.seenFIFO, tx.Signature)
	if len(w.seenFIFO) > w.seenCap {
		delete(w.seen, w.seenFIFO[0])
		w.seenFIFO = w.seenFIFO[1:]
	}

	w.buf[w.head] = tx
	w.head = (w.head + 1) % len(w.buf)
	if w.head == 0 {
		w.full = true
	}
	return true
}

// Len reports how many transactions the window currently holds.
func (w *txWindow) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.full {
		return len(w.buf)
	}
	return w.head
}

// Snapshot returns the window contents oldest-first.
func (w *txWindow) Snapshot() []*domain.MempoolTransaction {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.snapshotLocked()
}

func (w *txWindow) snapshotLocked() []*domain.MempoolTransaction {
	if !w.full {
		out := make([]*domain.MempoolTransaction, w.head)
		copy(out, w.buf[:w.head])
		return out
	}
	out := make([]*domain.MempoolTransaction, 0, len(w.buf))
	out = append(out, w.buf[w.head:]...)
	out = append(out, w.buf[:w.head]...)
	return out
}

// Since returns transactions received at or after the cutoff, oldest-first.
func (w *txWindow) Since(cutoff time.Time) []*domain.MempoolTransaction {
	w.mu.RLock()
	defer w.mu.RUnlock()

	all := w.snapshotLocked()
	out := make([]*domain.MempoolTransaction, 0, len(all))
	for _, tx := range all {
		if !tx.Timestamp.Before(cutoff) {
			out = append(out, tx)
		}
	}
	return out
}

// ForToken returns the window's transactions touching the given mint.
func (w *txWindow) ForToken(mint string) []*domain.MempoolTransaction {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var out []*domain.MempoolTransaction
	for _, tx := range w.snapshotLocked() {
		if tx.TokenMint == mint {
			out = append(out, tx)
		}
	}
	return out
}
