// Package results keeps finished games. Each result is stored as a DAG-CBOR
// block addressed by its CID, and the whole ledger can be archived as a CAR
// file.
package results

import (
	"bytes"
	"fmt"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/ipld/go-ipld-prime"
	"github.com/ipld/go-ipld-prime/codec/dagcbor"
	"github.com/ipld/go-ipld-prime/datamodel"
	"github.com/ipld/go-ipld-prime/fluent/qp"
	"github.com/ipld/go-ipld-prime/node/basicnode"
	"github.com/justinabrahms/boardcore/internal/engine"
	"github.com/justinabrahms/boardcore/internal/session"
	mh "github.com/multiformats/go-multihash"
)

// Record is a stored result and the CID of its block.
type Record struct {
	session.Result
	CID string `json:"cid"`
}

var blockPrefix = cid.Prefix{
	Version:  1,
	Codec:    cid.DagCBOR,
	MhType:   mh.SHA2_256,
	MhLength: -1,
}

func blockCID(data []byte) (cid.Cid, error) {
	return blockPrefix.Sum(data)
}

func encodeResult(r session.Result) ([]byte, error) {
	node, err := qp.BuildMap(basicnode.Prototype.Any, 8, func(ma datamodel.MapAssembler) {
		qp.MapEntry(ma, "session_id", qp.String(r.SessionID))
		qp.MapEntry(ma, "variant", qp.String(string(r.Variant)))
		qp.MapEntry(ma, "winner", qp.String(r.Winner.String()))
		qp.MapEntry(ma, "draw", qp.Bool(r.Draw))
		qp.MapEntry(ma, "reason", qp.String(r.Reason))
		qp.MapEntry(ma, "move_count", qp.Int(int64(r.MoveCount)))
		qp.MapEntry(ma, "duration_ns", qp.Int(int64(r.Duration)))
		qp.MapEntry(ma, "finished_at", qp.String(r.FinishedAt.UTC().Format(time.RFC3339Nano)))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build result node: %w", err)
	}
	var buf bytes.Buffer
	if err := dagcbor.Encode(node, &buf); err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeNode(data []byte) (ipld.Node, error) {
	nb := basicnode.Prototype.Any.NewBuilder()
	if err := dagcbor.Decode(nb, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to decode CBOR: %w", err)
	}
	node := nb.Build()
	if node.Kind() != ipld.Kind_Map {
		return nil, fmt.Errorf("expected map, got %v", node.Kind())
	}
	return node, nil
}

// fields reads typed map entries, remembering the first failure.
type fields struct {
	node ipld.Node
	err  error
}

func (f *fields) lookup(key string) ipld.Node {
	if f.err != nil {
		return nil
	}
	v, err := f.node.LookupByString(key)
	if err != nil {
		f.err = fmt.Errorf("field %q: %w", key, err)
		return nil
	}
	return v
}

func (f *fields) str(key string) string {
	v := f.lookup(key)
	if v == nil {
		return ""
	}
	s, err := v.AsString()
	if err != nil {
		f.err = fmt.Errorf("field %q: %w", key, err)
	}
	return s
}

func (f *fields) integer(key string) int64 {
	v := f.lookup(key)
	if v == nil {
		return 0
	}
	i, err := v.AsInt()
	if err != nil {
		f.err = fmt.Errorf("field %q: %w", key, err)
	}
	return i
}

func (f *fields) boolean(key string) bool {
	v := f.lookup(key)
	if v == nil {
		return false
	}
	b, err := v.AsBool()
	if err != nil {
		f.err = fmt.Errorf("field %q: %w", key, err)
	}
	return b
}

func decodeResult(data []byte) (session.Result, error) {
	node, err := decodeNode(data)
	if err != nil {
		return session.Result{}, err
	}
	f := &fields{node: node}
	r := session.Result{
		SessionID: f.str("session_id"),
		Variant:   engine.Kind(f.str("variant")),
		Draw:      f.boolean("draw"),
		Reason:    f.str("reason"),
		MoveCount: int(f.integer("move_count")),
		Duration:  time.Duration(f.integer("duration_ns")),
	}
	winner := f.str("winner")
	finished := f.str("finished_at")
	if f.err != nil {
		return session.Result{}, f.err
	}
	if err := r.Winner.UnmarshalText([]byte(winner)); err != nil {
		return session.Result{}, err
	}
	if r.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
		return session.Result{}, fmt.Errorf("field %q: %w", "finished_at", err)
	}
	return r, nil
}
