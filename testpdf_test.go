package pdfgraph

import (
	"bytes"
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/klauspost/compress/zlib"
)

// A testPDF assembles a PDF file revision by revision, tracking the byte
// offsets its cross-reference sections need.
type testPDF struct {
	buf      bytes.Buffer
	rows     []xrefRow // rows of the revision being written
	prevXref int64
}

type xrefRow struct {
	id   uint32
	gen  uint16
	typ  int   // 0 free, 1 in use, 2 compressed
	off  int64 // file offset, or index inside the object stream
	strm uint32
}

func newTestPDF() *testPDF {
	p := &testPDF{prevXref: -1}
	p.buf.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")
	return p
}

func (p *testPDF) bytes() []byte { return p.buf.Bytes() }

func (p *testPDF) obj(id uint32, body string) *testPDF {
	p.rows = append(p.rows, xrefRow{id: id, typ: 1, off: int64(p.buf.Len())})
	fmt.Fprintf(&p.buf, "%d 0 obj\n%s\nendobj\n", id, body)
	return p
}

func (p *testPDF) stream(id uint32, hdr string, data []byte) *testPDF {
	p.rows = append(p.rows, xrefRow{id: id, typ: 1, off: int64(p.buf.Len())})
	fmt.Fprintf(&p.buf, "%d 0 obj\n<<%s /Length %d>>\nstream\n", id, hdr, len(data))
	p.buf.Write(data)
	p.buf.WriteString("\nendstream\nendobj\n")
	return p
}

// free marks id free in the current revision; nextGen is the generation
// a reused id would get.
func (p *testPDF) free(id uint32, nextGen uint16) *testPDF {
	p.rows = append(p.rows, xrefRow{id: id, gen: nextGen, typ: 0})
	return p
}

// objStm writes object stream id holding bodies[i] as object ids[i].
func (p *testPDF) objStm(id uint32, ids []uint32, bodies []string, compress bool) *testPDF {
	var head, body strings.Builder
	for i, oid := range ids {
		fmt.Fprintf(&head, "%d %d ", oid, body.Len())
		body.WriteString(bodies[i])
		body.WriteString("\n")
		p.rows = append(p.rows, xrefRow{id: oid, typ: 2, strm: id, off: int64(i)})
	}
	data := []byte(head.String() + body.String())
	hdr := fmt.Sprintf("/Type /ObjStm /N %d /First %d", len(ids), head.Len())
	if compress {
		data = deflate(data)
		hdr += " /Filter /FlateDecode"
	}
	return p.stream(id, hdr, data)
}

func (p *testPDF) sortedRows() []xrefRow {
	rows := slices.Clone(p.rows)
	slices.SortFunc(rows, func(a, b xrefRow) int { return int(a.id) - int(b.id) })
	return rows
}

func (p *testPDF) prev() string {
	if p.prevXref < 0 {
		return ""
	}
	return fmt.Sprintf(" /Prev %d", p.prevXref)
}

func (p *testPDF) finish(off int64) *testPDF {
	fmt.Fprintf(&p.buf, "startxref\n%d\n%%%%EOF\n", off)
	p.prevXref = off
	p.rows = nil
	return p
}

// xrefTable ends the revision with a classic cross-reference table.
func (p *testPDF) xrefTable(trailer string) *testPDF {
	off := int64(p.buf.Len())
	p.buf.WriteString("xref\n")
	if p.prevXref < 0 {
		p.buf.WriteString("0 1\n0000000000 65535 f \n")
	}
	for _, row := range p.sortedRows() {
		switch row.typ {
		case 0:
			fmt.Fprintf(&p.buf, "%d 1\n%010d %05d f \n", row.id, 0, row.gen)
		case 1:
			fmt.Fprintf(&p.buf, "%d 1\n%010d %05d n \n", row.id, row.off, row.gen)
		}
	}
	fmt.Fprintf(&p.buf, "trailer\n<<%s%s>>\n", trailer, p.prev())
	return p.finish(off)
}

// xrefStream ends the revision with cross-reference stream id.
func (p *testPDF) xrefStream(id uint32, trailer string, compress bool) *testPDF {
	off := int64(p.buf.Len())
	rows := append(p.sortedRows(), xrefRow{id: id, typ: 1, off: off})
	if p.prevXref < 0 {
		rows = append(rows, xrefRow{id: 0, gen: 65535, typ: 0})
	}
	slices.SortFunc(rows, func(a, b xrefRow) int { return int(a.id) - int(b.id) })
	p.writeXrefStream(id, rows, trailer+p.prev(), compress)
	return p.finish(off)
}

// xrefHybrid ends the revision with a classic table for the objects
// stored at file offsets and, named by /XRefStm, a cross-reference stream
// id for the objects stored in object streams.
func (p *testPDF) xrefHybrid(id uint32, trailer string) *testPDF {
	var compressed []xrefRow
	for _, row := range p.sortedRows() {
		if row.typ == 2 {
			compressed = append(compressed, row)
		}
	}
	stm := int64(p.buf.Len())
	p.writeXrefStream(id, compressed, "", false)
	return p.xrefTable(fmt.Sprintf("%s /XRefStm %d", trailer, stm))
}

func (p *testPDF) writeXrefStream(id uint32, rows []xrefRow, trailer string, compress bool) {
	var index []string
	var data []byte
	for _, row := range rows {
		index = append(index, fmt.Sprintf("%d 1", row.id))
		switch row.typ {
		case 0:
			data = append(data, 0, 0, 0, 0, 0, byte(row.gen>>8), byte(row.gen))
		case 1:
			data = append(data, 1, byte(row.off>>24), byte(row.off>>16), byte(row.off>>8), byte(row.off), 0, 0)
		case 2:
			data = append(data, 2, byte(row.strm>>24), byte(row.strm>>16), byte(row.strm>>8), byte(row.strm), byte(row.off>>8), byte(row.off))
		}
	}
	size := id + 1
	if n := len(rows); n > 0 && rows[n-1].id >= size {
		size = rows[n-1].id + 1
	}
	hdr := fmt.Sprintf("/Type /XRef /Size %d /W [1 4 2] /Index [%s] %s", size, strings.Join(index, " "), trailer)
	if compress {
		data = deflate(data)
		hdr += " /Filter /FlateDecode"
	}
	fmt.Fprintf(&p.buf, "%d 0 obj\n<<%s /Length %d>>\nstream\n", id, hdr, len(data))
	p.buf.Write(data)
	p.buf.WriteString("\nendstream\nendobj\n")
}

func deflate(data []byte) []byte {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	w.Write(data)
	w.Close()
	return buf.Bytes()
}

func mustLoad(t *testing.T, data []byte, opts ...Option) *Document {
	t.Helper()
	doc, err := Load(data, opts...)
	if err != nil {
		t.Fatalf("Load failed: %v\n%s", err, data)
	}
	return doc
}
