package fill

import (
	"math/big"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"

	logger "github.com/voxelmarkets/exchange-go/log"
)

var log = logger.Logger("fill")

// Cancelled is the ledger sentinel marking an order key as cancelled.
var Cancelled = math.MaxBig256

// Delta is one pending increment of a ledger entry.
type Delta struct {
	Key   common.Hash
	Value *big.Int
}

// Ledger is the persistent mapping of order key to cumulative filled take
// amount. Apply commits a set of increments atomically; Revert undoes the
// same set after a failed downstream step.
type Ledger interface {
	Get(key common.Hash) (*big.Int, error)
	Apply(deltas []Delta) error
	Revert(deltas []Delta) error
	SetCancelled(key common.Hash) error
	Close() error
}

// PebbleLedger stores fills in a pebble database, one 32-byte big-endian
// value per order key.
type PebbleLedger struct {
	db *pebble.DB
}

// OpenPebble opens (or creates) the fill ledger at dir.
func OpenPebble(dir string) (*PebbleLedger, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	log.Infow("fill ledger opened", "dir", dir)
	return &PebbleLedger{db: db}, nil
}

// Get implements Ledger. Missing keys read as zero.
func (l *PebbleLedger) Get(key common.Hash) (*big.Int, error) {
	val, closer, err := l.db.Get(key.Bytes())
	if err == pebble.ErrNotFound {
		return new(big.Int), nil
	}
	if err != nil {
		return nil, err
	}
	out := new(big.Int).SetBytes(val)
	if err := closer.Close(); err != nil {
		return nil, err
	}
	return out, nil
}

// Apply implements Ledger. All increments land in one pebble batch.
func (l *PebbleLedger) Apply(deltas []Delta) error {
	return l.write(deltas, false)
}

// Revert implements Ledger. It subtracts the same deltas Apply added.
func (l *PebbleLedger) Revert(deltas []Delta) error {
	log.Warnw("reverting fill deltas", "count", len(deltas))
	return l.write(deltas, true)
}

func (l *PebbleLedger) write(deltas []Delta, negate bool) error {
	// A batch may carry the same key more than once; sum per key first, since
	// reads during batch construction do not see earlier sets.
	totals := make(map[common.Hash]*big.Int, len(deltas))
	keys := make([]common.Hash, 0, len(deltas))
	for _, d := range deltas {
		t, ok := totals[d.Key]
		if !ok {
			t = new(big.Int)
			totals[d.Key] = t
			keys = append(keys, d.Key)
		}
		if negate {
			t.Sub(t, d.Value)
		} else {
			t.Add(t, d.Value)
		}
	}

	batch := l.db.NewBatch()
	defer batch.Close()
	for _, key := range keys {
		cur, err := l.Get(key)
		if err != nil {
			return err
		}
		cur.Add(cur, totals[key])
		if err := batch.Set(key.Bytes(), math.PaddedBigBytes(cur, 32), nil); err != nil {
			return err
		}
	}
	return batch.Commit(pebble.Sync)
}

// SetCancelled implements Ledger.
func (l *PebbleLedger) SetCancelled(key common.Hash) error {
	return l.db.Set(key.Bytes(), math.PaddedBigBytes(Cancelled, 32), pebble.Sync)
}

// Close implements Ledger.
func (l *PebbleLedger) Close() error {
	return l.db.Close()
}

// MemLedger is an in-memory Ledger for tests and examples.
type MemLedger struct {
	mu    sync.RWMutex
	fills map[common.Hash]*big.Int
}

// NewMemLedger creates an empty in-memory ledger.
func NewMemLedger() *MemLedger {
	return &MemLedger{fills: make(map[common.Hash]*big.Int)}
}

// Get implements Ledger.
func (l *MemLedger) Get(key common.Hash) (*big.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if v, ok := l.fills[key]; ok {
		return new(big.Int).Set(v), nil
	}
	return new(big.Int), nil
}

// Apply implements Ledger.
func (l *MemLedger) Apply(deltas []Delta) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, d := range deltas {
		cur, ok := l.fills[d.Key]
		if !ok {
			cur = new(big.Int)
			l.fills[d.Key] = cur
		}
		cur.Add(cur, d.Value)
	}
	return nil
}

// Revert implements Ledger.
func (l *MemLedger) Revert(deltas []Delta) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, d := range deltas {
		if cur, ok := l.fills[d.Key]; ok {
			cur.Sub(cur, d.Value)
		}
	}
	return nil
}

// SetCancelled implements Ledger.
func (l *MemLedger) SetCancelled(key common.Hash) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fills[key] = new(big.Int).Set(Cancelled)
	return nil
}

// Close implements Ledger.
func (l *MemLedger) Close() error { return nil }
