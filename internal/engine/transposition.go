package engine

import (
	"sync"
	"sync/atomic"

	"github.com/makochess/mako/internal/board"
	"github.com/makochess/mako/internal/score"
)

// TTEntry is one transposition-table slot: score bounds proved for the
// position at the stored depth, plus the best move found.
type TTEntry struct {
	Key        uint64
	LowerBound score.Score
	UpperBound score.Score
	Depth      int32
	Move       board.Move
}

const ttBucketSize = 4

type ttBucket struct {
	slots [ttBucketSize]TTEntry
}

// Number of lock segments; bucket indices map to segments by modulo,
// so every bucket is guarded by exactly one lock.
const ttSegments = 256

// TranspositionTable is a fixed-size concurrent position cache. Two
// tables, one per side to move, are kept so that the same Zobrist key
// never aliases across the turn. Buckets hold four entries ordered
// most-recently-used first; replacement prefers deeper entries.
//
// Clearing is O(1): stored keys are XORed with a generation counter,
// so bumping the generation invalidates every entry at once.
type TranspositionTable struct {
	buckets [2][]ttBucket
	size    uint64
	mask    atomic.Uint64 // generation mask XORed into keys
	locks   [ttSegments]sync.Mutex
}

// NewTranspositionTable allocates a table with at least the given
// number of buckets per side; the count is rounded up to a prime so
// that key modulo spreads well.
func NewTranspositionTable(size int) *TranspositionTable {
	if size < 1 {
		size = 1
	}
	n := nextPrime(uint64(size))
	tt := &TranspositionTable{size: n}
	tt.buckets[board.White] = make([]ttBucket, n)
	tt.buckets[board.Black] = make([]ttBucket, n)
	return tt
}

func nextPrime(n uint64) uint64 {
	if n < 2 {
		return 2
	}
	for !isPrime(n) {
		n++
	}
	return n
}

func isPrime(n uint64) bool {
	if n < 2 {
		return false
	}
	if n%2 == 0 {
		return n == 2
	}
	for d := uint64(3); d*d <= n; d += 2 {
		if n%d == 0 {
			return false
		}
	}
	return true
}

// Size returns the bucket count per side.
func (tt *TranspositionTable) Size() uint64 {
	return tt.size
}

// Clear invalidates every entry by advancing the generation.
func (tt *TranspositionTable) Clear() {
	tt.mask.Add(0x9E3779B97F4A7C15)
}

func (tt *TranspositionTable) boardKey(pos *board.Position) uint64 {
	return pos.Hash ^ tt.mask.Load()
}

func (tt *TranspositionTable) lockFor(key uint64) *sync.Mutex {
	return &tt.locks[(key%tt.size)%ttSegments]
}

// Find looks the position up and returns a copy of its entry. On a hit
// the entry is bubbled toward the front of its bucket (MRU), which is
// why readers also lock.
func (tt *TranspositionTable) Find(pos *board.Position) (TTEntry, bool) {
	key := tt.boardKey(pos)
	lock := tt.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	bucket := &tt.buckets[pos.SideToMove][key%tt.size]
	slot := findKey(bucket, key)
	if slot == nil {
		return TTEntry{}, false
	}
	return *slot, true
}

// findKey scans the bucket for key and moves a hit to the front.
func findKey(bucket *ttBucket, key uint64) *TTEntry {
	for i := 0; i < ttBucketSize; i++ {
		if bucket.slots[i].Key == key {
			for j := i; j > 0; j-- {
				bucket.slots[j-1], bucket.slots[j] = bucket.slots[j], bucket.slots[j-1]
			}
			return &bucket.slots[0]
		}
	}
	return nil
}

// Insert records bounds for the position. A shallower result never
// overwrites a deeper one for the same key; at equal depth the bounds
// are intersected. New keys evict the bucket's oldest entry.
func (tt *TranspositionTable) Insert(pos *board.Position, depth int, lower, upper score.Score, move board.Move) {
	key := tt.boardKey(pos)
	lock := tt.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	bucket := &tt.buckets[pos.SideToMove][key%tt.size]
	cand := findKey(bucket, key)
	if cand == nil {
		for i := ttBucketSize - 1; i > 0; i-- {
			bucket.slots[i] = bucket.slots[i-1]
		}
		cand = &bucket.slots[0]
	} else {
		if cand.Depth > int32(depth) {
			return
		}
		if cand.Depth == int32(depth) {
			if cand.LowerBound > lower {
				lower = cand.LowerBound
			}
			if cand.UpperBound < upper {
				upper = cand.UpperBound
			}
		}
	}

	*cand = TTEntry{
		Key:        key,
		LowerBound: lower,
		UpperBound: upper,
		Depth:      int32(depth),
		Move:       move,
	}
}
