package pdfgraph

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/ScriptRock/pdfgraph/internal/types"
)

// A reader turns the bytes of a PDF file into per-revision bodies.
type reader struct {
	data []byte
	log  *slog.Logger

	// sections newest first.
	sections []*section

	defs   map[int64]types.Objdef            // by file offset
	objstm map[int64]map[uint32]types.Object // unpacked object streams by container offset

	dicts  []types.Dict
	arrays []types.Array
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrMalformed}, args...)...)
}

// Parse reads every revision of the PDF file in data. Revisions are
// separated by cross-reference section: the oldest section is the original
// body and each later section is one incremental update.
func Parse(data []byte, opts ...Option) (p *Parsed, err error) {
	cfg := newConfig(opts)
	r := &reader{
		data:   data,
		log:    cfg.logger,
		defs:   make(map[int64]types.Objdef),
		objstm: make(map[int64]map[uint32]types.Object),
	}
	defer func() {
		if e := recover(); e != nil {
			p = nil
			err = malformed("%v", e)
		}
	}()
	return r.parse()
}

func (r *reader) parse() (*Parsed, error) {
	version, err := readHeader(r.data)
	if err != nil {
		return nil, err
	}

	end := len(r.data)
	const endChunk = 1024
	tail := r.data[max(0, end-endChunk):]
	tail = bytes.TrimRight(tail, "\r\n\t \x00")
	if !bytes.HasSuffix(tail, []byte("%%EOF")) {
		return nil, malformed("missing %%%%EOF")
	}
	i := findLastLine(tail, "startxref")
	if i < 0 {
		return nil, malformed("missing final startxref")
	}
	b := newBuffer(tail, int64(i))
	if b.readToken() != keyword("startxref") {
		return nil, malformed("missing startxref")
	}
	startxref, ok := b.readToken().(int64)
	if !ok {
		return nil, malformed("startxref not followed by integer")
	}

	r.sections, err = r.readSections(startxref)
	if err != nil {
		return nil, err
	}
	if _, ok := r.sections[0].trailer["Encrypt"]; ok {
		return nil, ErrEncrypted
	}

	revisions := make([]Revision, len(r.sections))
	for i := range r.sections {
		// revisions are oldest first, sections newest first.
		revisions[len(revisions)-1-i] = r.readRevision(i)
	}

	return &Parsed{
		Original: revisions[0],
		Updates:  revisions[1:],
		Dicts:    r.dicts,
		Arrays:   r.arrays,
		Version:  version,
	}, nil
}

func readHeader(data []byte) (string, error) {
	head := data[:min(len(data), 1024)]
	i := bytes.Index(head, []byte("%PDF-"))
	if i < 0 {
		return "", malformed("not a PDF file: invalid header")
	}
	v := head[i+len("%PDF-"):]
	n := 0
	for n < len(v) && (v[n] == '.' || '0' <= v[n] && v[n] <= '9') {
		n++
	}
	if n < 3 {
		return "", malformed("not a PDF file: invalid version %q", v[:n])
	}
	return string(v[:n]), nil
}

// readRevision loads every object declared by section i.
func (r *reader) readRevision(i int) Revision {
	s := r.sections[i]
	rev := Revision{
		Objects: make(map[Ref]Object),
		Trailer: s.trailer,
	}
	for _, x := range s.entries {
		switch {
		case x.Free:
			// The generation of a free entry is the one to use on reuse;
			// the freed object carried the generation below it.
			if x.Ptr.ID != 0 && x.Ptr.Gen > 0 {
				rev.Free = append(rev.Free, Ref{ID: x.Ptr.ID, Gen: x.Ptr.Gen - 1})
			}
		case x.InStream:
			obj, ok := r.loadCompressed(i, x)
			if !ok {
				continue
			}
			rev.Objects[x.Ptr] = obj
		default:
			def, ok := r.loadAt(i, x.Offset)
			if !ok {
				continue
			}
			if def.Ptr != x.Ptr {
				r.log.Debug("xref entry points at another object",
					slog.String("want", x.Ptr.String()), slog.String("found", def.Ptr.String()))
				continue
			}
			rev.Objects[def.Ptr] = r.container(i, def.Ptr, def.Obj)
		}
	}
	if def := s.xrefStream; def != nil {
		if _, ok := rev.Objects[def.Ptr]; !ok {
			rev.Objects[def.Ptr] = def.Obj
		}
	}
	return rev
}

// newBuffer returns a buffer over the file that resolves indirect stream
// lengths as seen from section sec. A nil sec disables that resolution.
func (r *reader) newBuffer(off int64, sec *int) *buffer {
	b := newBuffer(r.data, off)
	b.streamLength = func(hdr types.Dict) (int64, bool) {
		switch n := hdr["Length"].(type) {
		case int64:
			return n, true
		case types.Objptr:
			if sec == nil {
				return 0, false
			}
			n1, ok := r.deref(*sec, n).(int64)
			return n1, ok
		}
		return 0, false
	}
	return b
}

func (r *reader) collect(b *buffer) {
	r.dicts = append(r.dicts, b.dicts...)
	r.arrays = append(r.arrays, b.arrays...)
}

// loadAt reads the indirect object defined at the given file offset.
func (r *reader) loadAt(sec int, off int64) (def types.Objdef, ok bool) {
	if def, ok := r.defs[off]; ok {
		return def, true
	}
	if off <= 0 || off >= int64(len(r.data)) {
		r.log.Debug("object offset out of range", slog.Int64("offset", off))
		return types.Objdef{}, false
	}
	// Mark in progress so that a /Length pointing back at its own stream
	// cannot recurse.
	r.defs[off] = types.Objdef{}
	b := r.newBuffer(off, &sec)
	obj, err := readObjectSafe(b)
	if def, ok = obj.(types.Objdef); !ok {
		delete(r.defs, off)
		r.log.Debug("no object definition at offset", slog.Int64("offset", off), slog.Any("err", err))
		return types.Objdef{}, false
	}
	r.collect(b)
	r.defs[off] = def
	return def, true
}

// readObjectSafe reads one object, returning a syntax error instead of
// panicking so that a single damaged object does not fail the whole file.
func readObjectSafe(b *buffer) (obj types.Object, err error) {
	defer func() {
		if e := recover(); e != nil {
			se, ok := e.(*syntaxError)
			if !ok {
				panic(e)
			}
			obj, err = nil, se
		}
	}()
	return b.readObject(), nil
}

// lookup finds the entry for id as of section sec, searching older
// sections when sec does not declare it.
func (r *reader) lookup(sec int, id uint32) (types.Xref, bool) {
	for _, s := range r.sections[sec:] {
		for _, x := range s.entries {
			if x.Ptr.ID == id {
				return x, !x.Free
			}
		}
	}
	return types.Xref{}, false
}

// deref resolves x, following references as of section sec.
func (r *reader) deref(sec int, x types.Object) types.Object {
	for i := 0; i < 32; i++ {
		ptr, ok := x.(types.Objptr)
		if !ok {
			return x
		}
		e, ok := r.lookup(sec, ptr.ID)
		if !ok {
			return nil
		}
		if e.InStream {
			x, _ = r.loadCompressed(sec, e)
			continue
		}
		def, ok := r.loadAt(sec, e.Offset)
		if !ok || def.Ptr != ptr {
			return nil
		}
		x = def.Obj
	}
	return nil
}

// loadCompressed reads an object stored in an object stream.
func (r *reader) loadCompressed(sec int, x types.Xref) (types.Object, bool) {
	e, ok := r.lookup(sec, x.Stream.ID)
	if !ok || e.InStream {
		r.log.Debug("object stream not found",
			slog.String("object", x.Ptr.String()), slog.Uint64("stream", uint64(x.Stream.ID)))
		return nil, false
	}
	objs, ok := r.objstm[e.Offset]
	if !ok {
		objs = r.unpack(sec, e)
		r.objstm[e.Offset] = objs
	}
	obj, ok := objs[x.Ptr.ID]
	if !ok {
		r.log.Debug("object missing from object stream",
			slog.String("object", x.Ptr.String()), slog.Uint64("stream", uint64(x.Stream.ID)))
	}
	return obj, ok
}

// unpack parses every object contained in the object stream at entry e.
func (r *reader) unpack(sec int, e types.Xref) map[uint32]types.Object {
	def, ok := r.loadAt(sec, e.Offset)
	if !ok {
		return nil
	}
	strm, ok := def.Obj.(types.Stream)
	if !ok || strm.Hdr["Type"] != types.Name("ObjStm") {
		r.log.Debug("not an object stream", slog.String("object", def.Ptr.String()))
		return nil
	}
	ids, objs, err := r.readObjectStream(sec, strm, true)
	if err != nil {
		r.log.Debug("reading object stream", slog.String("object", def.Ptr.String()), slog.Any("err", err))
		return nil
	}
	out := make(map[uint32]types.Object, len(ids))
	for i, id := range ids {
		out[id] = objs[i]
	}
	return out
}

// readObjectStream decodes an /ObjStm stream into its contained objects.
// With collect unset only the header is read and objs is nil.
func (r *reader) readObjectStream(sec int, strm types.Stream, collect bool) (ids []uint32, objs []types.Object, err error) {
	defer func() {
		if e := recover(); e != nil {
			err = fmt.Errorf("%v", e)
		}
	}()
	deref := func(x types.Object) types.Object { return r.deref(sec, x) }
	n, ok1 := deref(strm.Hdr["N"]).(int64)
	first, ok2 := deref(strm.Hdr["First"]).(int64)
	if !ok1 || !ok2 || n < 0 || first < 0 {
		return nil, nil, fmt.Errorf("object stream missing N or First")
	}
	data, err := decodeStream(strm, deref)
	if err != nil {
		return nil, nil, err
	}
	if first > int64(len(data)) {
		return nil, nil, fmt.Errorf("object stream First %d beyond data", first)
	}

	b := newBuffer(data[:first], 0)
	offs := make([]int64, 0, n)
	for i := int64(0); i < n; i++ {
		id, ok1 := b.readToken().(int64)
		off, ok2 := b.readToken().(int64)
		if !ok1 || !ok2 || id < 0 || off < 0 {
			return nil, nil, fmt.Errorf("malformed object stream header")
		}
		ids = append(ids, uint32(id))
		offs = append(offs, first+off)
	}
	if !collect {
		return ids, nil, nil
	}
	for _, off := range offs {
		b := newBuffer(data, off)
		b.allowStream = false
		objs = append(objs, b.readObject())
		r.collect(b)
	}
	return ids, objs, nil
}

// container turns an object stream definition into an ObjectStream value
// listing the identities it holds.
func (r *reader) container(sec int, ptr types.Objptr, obj types.Object) types.Object {
	strm, ok := obj.(types.Stream)
	if !ok || strm.Hdr["Type"] != types.Name("ObjStm") {
		return obj
	}
	c := types.ObjectStream{Stream: strm}
	ids, _, err := r.readObjectStream(sec, strm, false)
	if err != nil {
		r.log.Debug("reading object stream", slog.String("object", ptr.String()), slog.Any("err", err))
	}
	for _, id := range ids {
		c.Objects = append(c.Objects, types.Objptr{ID: id})
	}
	return c
}
