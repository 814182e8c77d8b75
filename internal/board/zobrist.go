package board

import "sync"

// Zobrist keys are drawn per (cell, owner, kind, stack height). Stack heights
// above maxStack share the top key.
const (
	maxStack  = 16
	kindSlots = int(Checker) + 1
	ownerSlot = 2
)

type ZobristTable struct {
	cells int
	keys  []uint64
	side  uint64
	extra []uint64
}

type zobristStore struct {
	mu     sync.Mutex
	tables map[int]*ZobristTable
}

var zobristTables = &zobristStore{tables: make(map[int]*ZobristTable)}

// Zobrist returns the shared key table for boards with the given cell count.
func Zobrist(cells int) *ZobristTable {
	zobristTables.mu.Lock()
	defer zobristTables.mu.Unlock()
	if table, ok := zobristTables.tables[cells]; ok {
		return table
	}
	rng := splitmix64{state: uint64(0x9e3779b97f4a7c15) ^ uint64(cells)}
	table := &ZobristTable{
		cells: cells,
		keys:  make([]uint64, cells*ownerSlot*kindSlots*maxStack),
		extra: make([]uint64, 64),
	}
	for i := range table.keys {
		table.keys[i] = rng.next()
	}
	for i := range table.extra {
		table.extra[i] = rng.next()
	}
	table.side = rng.next()
	zobristTables.tables[cells] = table
	return table
}

func (z *ZobristTable) piece(i int, p Piece) uint64 {
	owner := 0
	if p.Owner == OwnerB {
		owner = 1
	}
	count := int(p.Count)
	if count < 1 {
		count = 1
	}
	if count > maxStack {
		count = maxStack
	}
	idx := ((i*ownerSlot+owner)*kindSlots+int(p.Kind))*maxStack + count - 1
	return z.keys[idx]
}

// Side is xored in when the second player is to move.
func (z *ZobristTable) Side() uint64 {
	return z.side
}

// Extra returns a key for auxiliary state (castling rights, ko point, dice).
// Callers fold larger values in with Mix.
func (z *ZobristTable) Extra(slot int) uint64 {
	return z.extra[slot%len(z.extra)]
}

// Hash computes the key of a board's contents.
func (b *Board) Hash() uint64 {
	z := Zobrist(len(b.cells))
	var hash uint64
	for i, c := range b.cells {
		if !c.Occupied {
			continue
		}
		hash ^= z.piece(i, c.Piece)
	}
	return hash
}

// Mix folds an arbitrary value into a hash.
func Mix(hash, value uint64) uint64 {
	rng := splitmix64{state: hash ^ (value * 0xbf58476d1ce4e5b9)}
	return rng.next()
}

type splitmix64 struct {
	state uint64
}

func (s *splitmix64) next() uint64 {
	s.state += 0x9e3779b97f4a7c15
	z := s.state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
