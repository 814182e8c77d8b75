package results

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ipfs/go-cid"
	"github.com/ipld/go-car"
	carutil "github.com/ipld/go-car/util"
	"github.com/ipld/go-ipld-prime/codec/dagcbor"
	"github.com/ipld/go-ipld-prime/datamodel"
	"github.com/ipld/go-ipld-prime/fluent/qp"
	"github.com/ipld/go-ipld-prime/node/basicnode"
	"github.com/rs/zerolog/log"
)

const indexType = "boardcore/results"

// encodeIndex builds the root block listing record CIDs oldest first.
func encodeIndex(cids []string) ([]byte, error) {
	node, err := qp.BuildMap(basicnode.Prototype.Any, 2, func(ma datamodel.MapAssembler) {
		qp.MapEntry(ma, "type", qp.String(indexType))
		qp.MapEntry(ma, "records", qp.List(int64(len(cids)), func(la datamodel.ListAssembler) {
			for _, c := range cids {
				qp.ListEntry(la, qp.String(c))
			}
		}))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build index node: %w", err)
	}
	var buf bytes.Buffer
	if err := dagcbor.Encode(node, &buf); err != nil {
		return nil, fmt.Errorf("failed to encode index: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeIndex(data []byte) ([]string, error) {
	node, err := decodeNode(data)
	if err != nil {
		return nil, err
	}
	f := &fields{node: node}
	if typ := f.str("type"); f.err == nil && typ != indexType {
		return nil, fmt.Errorf("unexpected archive type %q", typ)
	}
	list := f.lookup("records")
	if f.err != nil {
		return nil, f.err
	}
	var out []string
	iter := list.ListIterator()
	if iter == nil {
		return nil, errors.New("records is not a list")
	}
	for !iter.Done() {
		_, v, err := iter.Next()
		if err != nil {
			return nil, err
		}
		s, err := v.AsString()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// WriteCAR writes the ledger as a CARv1 archive. The root is an index block
// listing the records oldest first.
func (l *Ledger) WriteCAR(w io.Writer) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	cids := make([]string, 0, len(l.records))
	for _, rec := range l.records {
		cids = append(cids, rec.CID)
	}
	index, err := encodeIndex(cids)
	if err != nil {
		return err
	}
	root, err := blockCID(index)
	if err != nil {
		return err
	}

	if err := car.WriteHeader(&car.CarHeader{Roots: []cid.Cid{root}, Version: 1}, w); err != nil {
		return fmt.Errorf("failed to write CAR header: %w", err)
	}
	if err := carutil.LdWrite(w, root.Bytes(), index); err != nil {
		return fmt.Errorf("failed to write index block: %w", err)
	}
	for _, rec := range l.records {
		c, err := cid.Decode(rec.CID)
		if err != nil {
			return err
		}
		if err := carutil.LdWrite(w, c.Bytes(), l.blocks[rec.CID]); err != nil {
			return fmt.Errorf("failed to write block %s: %w", rec.CID, err)
		}
	}
	return nil
}

// ReadCAR loads an archive written by WriteCAR and returns how many new
// records it added. Blocks whose content does not match their CID are
// rejected.
func (l *Ledger) ReadCAR(r io.Reader) (int, error) {
	reader, err := car.NewCarReader(r)
	if err != nil {
		return 0, fmt.Errorf("failed to create CAR reader: %w", err)
	}
	if len(reader.Header.Roots) != 1 {
		return 0, fmt.Errorf("expected one root, got %d", len(reader.Header.Roots))
	}
	root := reader.Header.Roots[0]

	blocks := make(map[string][]byte)
	var order []string
	for {
		block, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("failed to read block: %w", err)
		}
		data := block.RawData()
		sum, err := blockCID(data)
		if err != nil {
			return 0, err
		}
		if !sum.Equals(block.Cid()) {
			return 0, fmt.Errorf("block %s does not match its content", block.Cid())
		}
		if block.Cid().Equals(root) {
			if order, err = decodeIndex(data); err != nil {
				return 0, err
			}
			continue
		}
		blocks[block.Cid().String()] = data
	}
	if order == nil && len(blocks) > 0 {
		return 0, errors.New("archive has no index block")
	}

	records := make([]Record, 0, len(order))
	for _, c := range order {
		data, ok := blocks[c]
		if !ok {
			return 0, fmt.Errorf("archive is missing block %s", c)
		}
		res, err := decodeResult(data)
		if err != nil {
			return 0, fmt.Errorf("block %s: %w", c, err)
		}
		records = append(records, Record{Result: res, CID: c})
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	added := 0
	for _, rec := range records {
		if l.addLocked(rec, blocks[rec.CID]) {
			added++
		}
	}
	return added, nil
}

// SaveFile writes the archive to path, replacing it atomically.
func (l *Ledger) SaveFile(path string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := l.WriteCAR(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// LoadFile reads an archive from path. A missing file is not an error.
func (l *Ledger) LoadFile(path string) (int, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Debug().Str("path", path).Msg("No results archive yet")
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return l.ReadCAR(f)
}
