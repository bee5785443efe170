// internal/dex/catalog/history.go
package catalog

import (
	"errors"
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/solana-swapquote/internal/types"
)

// DefaultLiquidityWindow окно LiquidityChange по умолчанию
const DefaultLiquidityWindow = 24 * time.Hour

var (
	ErrInsufficientHistory = errors.New("insufficient liquidity history")
	ErrUnknownPool         = errors.New("unknown pool")
)

// LiquiditySnapshot резервы пула в момент обновления
type LiquiditySnapshot struct {
	Time         time.Time
	BaseReserve  *big.Int
	QuoteReserve *big.Int
}

func newSnapshot(at time.Time, p *types.Pool) LiquiditySnapshot {
	s := LiquiditySnapshot{Time: at, BaseReserve: new(big.Int), QuoteReserve: new(big.Int)}
	if p.BaseReserve != nil {
		s.BaseReserve.Set(p.BaseReserve)
	}
	if p.QuoteReserve != nil {
		s.QuoteReserve.Set(p.QuoteReserve)
	}
	return s
}

// snapshotRing кольцевой буфер снимков фиксированной ёмкости
type snapshotRing struct {
	buf  []LiquiditySnapshot
	next int
	full bool
}

func newSnapshotRing(size int) *snapshotRing {
	return &snapshotRing{buf: make([]LiquiditySnapshot, size)}
}

func (r *snapshotRing) push(s LiquiditySnapshot) {
	r.buf[r.next] = s
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
}

func (r *snapshotRing) len() int {
	if r.full {
		return len(r.buf)
	}
	return r.next
}

// ordered снимки от старого к новому
func (r *snapshotRing) ordered() []LiquiditySnapshot {
	if !r.full {
		return append([]LiquiditySnapshot(nil), r.buf[:r.next]...)
	}
	out := make([]LiquiditySnapshot, 0, len(r.buf))
	out = append(out, r.buf[r.next:]...)
	return append(out, r.buf[:r.next]...)
}

// LiquidityChange изменение резервов между старейшим и новейшим снимком окна.
// Процент nil, когда старый резерв нулевой.
type LiquidityChange struct {
	Window          time.Duration
	Samples         int
	From            time.Time
	To              time.Time
	BaseReservePct  *big.Rat
	QuoteReservePct *big.Rat
}

// LiquidityChange считает изменение ликвидности пула за окно window
// (DefaultLiquidityWindow при window <= 0).
func (c *PoolCatalog) LiquidityChange(poolAddress solana.PublicKey, window time.Duration) (LiquidityChange, error) {
	if window <= 0 {
		window = DefaultLiquidityWindow
	}

	c.mu.RLock()
	ring, ok := c.history[poolAddress]
	var snapshots []LiquiditySnapshot
	if ok {
		snapshots = ring.ordered()
	}
	now := c.now()
	c.mu.RUnlock()

	if !ok {
		return LiquidityChange{}, ErrUnknownPool
	}

	relevant := snapshots[:0:0]
	for _, s := range snapshots {
		if now.Sub(s.Time) <= window {
			relevant = append(relevant, s)
		}
	}
	if len(relevant) < 2 {
		return LiquidityChange{}, ErrInsufficientHistory
	}

	oldest, latest := relevant[0], relevant[len(relevant)-1]
	return LiquidityChange{
		Window:          window,
		Samples:         len(relevant),
		From:            oldest.Time,
		To:              latest.Time,
		BaseReservePct:  percentChange(oldest.BaseReserve, latest.BaseReserve),
		QuoteReservePct: percentChange(oldest.QuoteReserve, latest.QuoteReserve),
	}, nil
}

func percentChange(old, cur *big.Int) *big.Rat {
	if old.Sign() == 0 {
		if cur.Sign() == 0 {
			return new(big.Rat)
		}
		return nil
	}
	diff := new(big.Int).Sub(cur, old)
	pct := new(big.Rat).SetFrac(diff.Mul(diff, big.NewInt(100)), new(big.Int).Abs(old))
	return pct
}
