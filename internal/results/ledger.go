package results

import (
	"context"
	"sync"

	"github.com/justinabrahms/boardcore/internal/engine"
	"github.com/justinabrahms/boardcore/internal/session"
)

// Ledger is an in-memory store of finished games. It implements
// session.Reporter.
type Ledger struct {
	mu      sync.RWMutex
	records []Record
	blocks  map[string][]byte
	limit   int
}

// NewLedger keeps at most limit records, dropping the oldest. Zero or less
// keeps everything.
func NewLedger(limit int) *Ledger {
	return &Ledger{
		blocks: make(map[string][]byte),
		limit:  limit,
	}
}

func (l *Ledger) Report(_ context.Context, r session.Result) error {
	data, err := encodeResult(r)
	if err != nil {
		return err
	}
	c, err := blockCID(data)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.addLocked(Record{Result: r, CID: c.String()}, data)
	return nil
}

// addLocked stores a record unless its block is already present.
func (l *Ledger) addLocked(rec Record, data []byte) bool {
	if _, ok := l.blocks[rec.CID]; ok {
		return false
	}
	l.records = append(l.records, rec)
	l.blocks[rec.CID] = data
	if l.limit > 0 && len(l.records) > l.limit {
		drop := l.records[0]
		delete(l.blocks, drop.CID)
		l.records = append([]Record(nil), l.records[1:]...)
	}
	return true
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	Variant engine.Kind
	Limit   int
}

// List returns matching records, newest first.
func (l *Ledger) List(f Filter) []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := []Record{}
	for i := len(l.records) - 1; i >= 0; i-- {
		rec := l.records[i]
		if f.Variant != "" && rec.Variant != f.Variant {
			continue
		}
		out = append(out, rec)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out
}

// Tally counts outcomes for one variant.
type Tally struct {
	Games     int `json:"games"`
	WinsA     int `json:"wins_a"`
	WinsB     int `json:"wins_b"`
	Draws     int `json:"draws"`
	Abandoned int `json:"abandoned"`
}

func (l *Ledger) Summary() map[engine.Kind]Tally {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[engine.Kind]Tally)
	for _, rec := range l.records {
		t := out[rec.Variant]
		t.Games++
		switch {
		case rec.Reason == engine.ReasonAbandoned:
			t.Abandoned++
		case rec.Draw:
			t.Draws++
		case rec.Winner == engine.PlayerA:
			t.WinsA++
		case rec.Winner == engine.PlayerB:
			t.WinsB++
		}
		out[rec.Variant] = t
	}
	return out
}
