package search

import (
	"github.com/justinabrahms/boardcore/internal/board"
	"github.com/justinabrahms/boardcore/internal/engine"
)

type ttFlag uint8

const (
	ttExact ttFlag = iota
	ttLower
	ttUpper
)

// DefaultTableSize is the number of transposition entries.
const DefaultTableSize = 1 << 16

type ttEntry struct {
	key   uint64
	depth int
	score engine.Score
	flag  ttFlag
	best  engine.Move
	gen   uint32
	valid bool
}

// table is a direct-mapped transposition table. Entries from an older
// search generation are always replaced; within a generation deeper entries
// win.
type table struct {
	mask    uint64
	entries []ttEntry
	gen     uint32
}

// positionKey is the table key for state searched to depth. The draw clock is
// part of the key only when it can run out within depth.
func positionKey(state engine.State, depth int) uint64 {
	key := state.Hash()
	if c, ok := state.(engine.DrawClock); ok {
		if left := c.PliesToDraw(); left <= depth {
			key = board.Mix(key, uint64(left+1))
		}
	}
	return key
}

func newTable(size int) *table {
	n := uint64(1)
	for n < uint64(size) {
		n <<= 1
	}
	return &table{mask: n - 1, entries: make([]ttEntry, n), gen: 1}
}

func (t *table) nextGeneration() {
	t.gen++
	if t.gen == 0 {
		t.gen = 1
	}
}

func (t *table) probe(key uint64) (ttEntry, bool) {
	e := t.entries[key&t.mask]
	if !e.valid || e.key != key || e.gen != t.gen {
		return ttEntry{}, false
	}
	return e, true
}

func (t *table) store(key uint64, depth int, score engine.Score, flag ttFlag, best engine.Move) {
	slot := &t.entries[key&t.mask]
	if slot.valid && slot.gen == t.gen && slot.key != key && slot.depth > depth {
		return
	}
	*slot = ttEntry{key: key, depth: depth, score: score, flag: flag, best: best, gen: t.gen, valid: true}
}
