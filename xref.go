package pdfgraph

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/ScriptRock/pdfgraph/internal/types"
)

// A section is one cross-reference section with its trailer: the table of
// a single revision. Entries lists only what the section itself declares.
type section struct {
	offset  int64
	entries []types.Xref
	trailer types.Dict
	// xrefStream is the definition of the cross-reference stream carrying
	// this section, if any.
	xrefStream *types.Objdef
}

// readSections follows the startxref/Prev chain and returns the sections
// newest first.
func (r *reader) readSections(startxref int64) ([]*section, error) {
	var sections []*section
	seen := make(map[int64]bool)
	for off, ok := startxref, true; ok; {
		if seen[off] {
			r.log.Debug("xref Prev loop", slog.Int64("offset", off))
			break
		}
		seen[off] = true

		s, err := r.readSection(off)
		if err != nil {
			return nil, err
		}
		sections = append(sections, s)

		prev, present := s.trailer["Prev"]
		if !present {
			break
		}
		off, ok = prev.(int64)
		if !ok {
			return nil, malformed("xref Prev is not integer: %v", objfmt(prev))
		}
	}
	return sections, nil
}

func (r *reader) readSection(off int64) (*section, error) {
	if off <= 0 || off >= int64(len(r.data)) {
		return nil, malformed("xref offset %d out of range", off)
	}
	b := r.newBuffer(off, nil)
	tok := b.readToken()
	if tok == keyword("xref") {
		return r.readXrefTable(b, off)
	}
	if _, ok := tok.(int64); ok {
		b.unreadToken(tok)
		return r.readXrefStream(b, off)
	}
	return nil, malformed("cross-reference table not found at offset %d: %v", off, objfmt(tok))
}

func (r *reader) readXrefTable(b *buffer, off int64) (*section, error) {
	entries, err := readXrefTableData(b)
	if err != nil {
		return nil, malformed("%v", err)
	}
	trailer, ok := b.readObject().(types.Dict)
	if !ok {
		return nil, malformed("xref table not followed by trailer dictionary")
	}
	s := &section{offset: off, entries: entries, trailer: trailer}

	// Hybrid files list compressed objects in a stream named by XRefStm.
	if stm, ok := trailer["XRefStm"].(int64); ok {
		hybrid, err := r.readXrefStream(r.newBuffer(stm, nil), stm)
		if err != nil {
			return nil, fmt.Errorf("reading XRefStm: %w", err)
		}
		have := make(map[uint32]bool, len(entries))
		for _, e := range entries {
			have[e.Ptr.ID] = true
		}
		for _, e := range hybrid.entries {
			if !have[e.Ptr.ID] {
				s.entries = append(s.entries, e)
			}
		}
		s.xrefStream = hybrid.xrefStream
	}
	return s, nil
}

func readXrefTableData(b *buffer) ([]types.Xref, error) {
	var table []types.Xref
	for {
		tok := b.readToken()
		if tok == keyword("trailer") {
			break
		}
		start, ok1 := tok.(int64)
		n, ok2 := b.readToken().(int64)
		if !ok1 || !ok2 || start < 0 || n < 0 {
			return nil, fmt.Errorf("malformed xref table")
		}
		for i := 0; i < int(n); i++ {
			off, ok1 := b.readToken().(int64)
			gen, ok2 := b.readToken().(int64)
			alloc, ok3 := b.readToken().(keyword)
			if !ok1 || !ok2 || !ok3 || alloc != keyword("f") && alloc != keyword("n") {
				return nil, fmt.Errorf("malformed xref table")
			}
			x := uint32(start) + uint32(i)
			ptr := types.Objptr{ID: x, Gen: uint16(gen)}
			if alloc == "f" {
				table = append(table, types.Xref{Ptr: ptr, Free: true})
				continue
			}
			table = append(table, types.Xref{Ptr: ptr, Offset: off})
		}
	}
	return table, nil
}

func (r *reader) readXrefStream(b *buffer, off int64) (*section, error) {
	obj1 := b.readObject()
	def, ok := obj1.(types.Objdef)
	if !ok {
		return nil, malformed("cross-reference stream not found: %v", objfmt(obj1))
	}
	strm, ok := def.Obj.(types.Stream)
	if !ok {
		return nil, malformed("cross-reference stream not found: %v", objfmt(def))
	}
	if strm.Hdr["Type"] != types.Name("XRef") {
		return nil, malformed("xref stream does not have type XRef")
	}
	size, ok := strm.Hdr["Size"].(int64)
	if !ok {
		return nil, malformed("xref stream missing Size")
	}
	entries, err := r.readXrefStreamData(strm, size)
	if err != nil {
		return nil, malformed("%v", err)
	}
	return &section{offset: off, entries: entries, trailer: strm.Hdr, xrefStream: &def}, nil
}

func (r *reader) readXrefStreamData(strm types.Stream, size int64) ([]types.Xref, error) {
	index, _ := strm.Hdr["Index"].(types.Array)
	if index == nil {
		index = types.Array{int64(0), size}
	}
	if len(index)%2 != 0 {
		return nil, fmt.Errorf("invalid Index array %v", objfmt(index))
	}
	ww, ok := strm.Hdr["W"].(types.Array)
	if !ok {
		return nil, fmt.Errorf("xref stream missing W array")
	}

	var w []int
	for _, x := range ww {
		i, ok := x.(int64)
		if !ok || i < 0 || i > 8 {
			return nil, fmt.Errorf("invalid W array %v", objfmt(ww))
		}
		w = append(w, int(i))
	}
	if len(w) < 3 {
		return nil, fmt.Errorf("invalid W array %v", objfmt(ww))
	}
	wtotal := w[0] + w[1] + w[2]
	if wtotal == 0 {
		return nil, fmt.Errorf("invalid W array %v", objfmt(ww))
	}

	data, err := decodeStream(strm, func(x types.Object) types.Object { return x })
	if err != nil {
		return nil, fmt.Errorf("decoding xref stream: %w", err)
	}

	var table []types.Xref
	for len(index) > 0 {
		start, ok1 := index[0].(int64)
		n, ok2 := index[1].(int64)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("malformed Index pair %v %v", objfmt(index[0]), objfmt(index[1]))
		}
		index = index[2:]
		for i := 0; i < int(n); i++ {
			if len(data) < wtotal {
				return nil, fmt.Errorf("xref stream truncated at entry %d", int(start)+i)
			}
			row := data[:wtotal]
			data = data[wtotal:]

			v1 := decodeInt(row[0:w[0]])
			if w[0] == 0 {
				v1 = 1
			}
			v2 := decodeInt(row[w[0] : w[0]+w[1]])
			v3 := decodeInt(row[w[0]+w[1]:])
			x := uint32(start) + uint32(i)
			switch v1 {
			case 0:
				table = append(table, types.Xref{Ptr: types.Objptr{ID: x, Gen: uint16(v3)}, Free: true})
			case 1:
				table = append(table, types.Xref{Ptr: types.Objptr{ID: x, Gen: uint16(v3)}, Offset: int64(v2)})
			case 2:
				table = append(table, types.Xref{Ptr: types.Objptr{ID: x}, InStream: true, Stream: types.Objptr{ID: uint32(v2)}, Offset: int64(v3)})
			default:
				r.log.Debug("invalid xref stream type", slog.Int("type", v1), slog.Any("row", row))
			}
		}
	}
	return table, nil
}

func decodeInt(b []byte) int {
	x := 0
	for _, c := range b {
		x = x<<8 | int(c)
	}
	return x
}

// findLastLine returns the index of the last line of buf that is exactly s.
func findLastLine(buf []byte, s string) int {
	bs := []byte(s)
	max := len(buf)
	for {
		i := bytes.LastIndex(buf[:max], bs)
		if i <= 0 || i+len(bs) >= len(buf) {
			return -1
		}
		if (buf[i-1] == '\n' || buf[i-1] == '\r') && (buf[i+len(bs)] == '\n' || buf[i+len(bs)] == '\r') {
			return i
		}
		max = i
	}
}
