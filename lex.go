// Copyright 2014 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Reading of PDF tokens and objects from raw bytes.

package pdfgraph

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/ScriptRock/pdfgraph/internal/types"
)

// A token is a PDF token in the input stream, one of the following Go types:
//
//	bool, a PDF boolean
//	int64, a PDF integer
//	float64, a PDF real
//	string, a PDF string literal
//	keyword, a PDF keyword
//	name, a PDF name without the leading slash
//
// io.EOF is returned as a token at the end of the input.
type token any

// A keyword is a PDF keyword.
// Delimiter tokens used in higher-level syntax,
// such as "<<", ">>", "[", "]", "{", "}", are also treated as keywords.
type keyword string

// A buffer reads tokens and objects from a byte slice.
// Reading past the end yields newlines and sets eof.
type buffer struct {
	data   []byte
	pos    int
	tmp    []byte  // scratch space for accumulating token
	unread []token // queue of read but then unread tokens
	eof    bool

	allowStream bool
	depth       int // nesting of the array or dictionary being read
	objptr      types.Objptr

	// streamLength reports the payload length declared by a stream header,
	// resolving indirect /Length values. Nil means always scan for endstream.
	streamLength func(types.Dict) (int64, bool)

	// Every dictionary and array read, in reading order.
	dicts  []types.Dict
	arrays []types.Array
}

// newBuffer returns a new buffer reading data from the given offset.
func newBuffer(data []byte, offset int64) *buffer {
	b := &buffer{
		data:        data,
		pos:         int(offset),
		allowStream: true,
	}
	if offset < 0 || offset > int64(len(data)) {
		b.errorf("offset %d outside of file (size %d)", offset, len(data))
	}
	return b
}

// A syntaxError is raised by the buffer when the input cannot be tokenized.
type syntaxError struct {
	offset int
	err    error
}

func (e *syntaxError) Error() string { return fmt.Sprintf("at offset %d: %v", e.offset, e.err) }
func (e *syntaxError) Unwrap() error { return e.err }

func (b *buffer) errorf(format string, args ...any) {
	panic(&syntaxError{offset: b.pos, err: fmt.Errorf(format, args...)})
}

func (b *buffer) readByte() byte {
	if b.pos >= len(b.data) {
		b.pos++
		b.eof = true
		return '\n'
	}
	c := b.data[b.pos]
	b.pos++
	return c
}

func (b *buffer) unreadByte() {
	if b.pos > 0 {
		b.pos--
	}
	if b.pos < len(b.data) {
		b.eof = false
	}
}

func (b *buffer) readOffset() int64 {
	return int64(min(b.pos, len(b.data)))
}

func (b *buffer) unreadToken(t token) {
	b.unread = append(b.unread, t)
}

func (b *buffer) readToken() token {
	if n := len(b.unread); n > 0 {
		t := b.unread[n-1]
		b.unread = b.unread[:n-1]
		return t
	}

	// Find first non-space, non-comment byte.
	c := b.readByte()
	for {
		if isSpace(c) {
			if b.eof {
				return io.EOF
			}
			c = b.readByte()
		} else if c == '%' {
			for c != '\r' && c != '\n' {
				c = b.readByte()
			}
		} else {
			break
		}
	}

	switch c {
	case '<':
		if b.readByte() == '<' {
			return keyword("<<")
		}
		b.unreadByte()
		return b.readHexString()

	case '(':
		return b.readLiteralString()

	case '[', ']', '{', '}':
		return keyword(string(c))

	case '/':
		return b.readName()

	case '>':
		if b.readByte() == '>' {
			return keyword(">>")
		}
		b.unreadByte()
		b.errorf("unexpected delimiter %#q", rune(c))
		return nil
	}

	if isDelim(c) {
		b.errorf("unexpected delimiter %#q", rune(c))
		return nil
	}
	b.unreadByte()
	return b.readKeyword()
}

// readHexString reads up to the closing '>'. A final odd digit is
// treated as if followed by 0.
func (b *buffer) readHexString() token {
	tmp := b.tmp[:0]
	hi := -1
	for {
		c := b.readByte()
		if b.eof {
			b.errorf("unterminated hex string")
		}
		if c == '>' {
			break
		}
		if isSpace(c) {
			continue
		}
		x := unhex(c)
		if x < 0 {
			b.errorf("malformed hex string: unexpected %#q", rune(c))
		}
		if hi < 0 {
			hi = x
			continue
		}
		tmp = append(tmp, byte(hi<<4|x))
		hi = -1
	}
	if hi >= 0 {
		tmp = append(tmp, byte(hi<<4))
	}
	b.tmp = tmp
	return string(tmp)
}

func unhex(b byte) int {
	switch {
	case '0' <= b && b <= '9':
		return int(b) - '0'
	case 'a' <= b && b <= 'f':
		return int(b) - 'a' + 10
	case 'A' <= b && b <= 'F':
		return int(b) - 'A' + 10
	}
	return -1
}

func (b *buffer) readLiteralString() token {
	tmp := b.tmp[:0]
	depth := 1
Loop:
	for {
		c := b.readByte()
		if b.eof {
			b.errorf("unterminated string")
		}
		switch c {
		default:
			tmp = append(tmp, c)
		case '(':
			depth++
			tmp = append(tmp, c)
		case ')':
			if depth--; depth == 0 {
				break Loop
			}
			tmp = append(tmp, c)
		case '\\':
			switch c = b.readByte(); c {
			default:
				// An unknown escape drops the backslash.
				tmp = append(tmp, c)
			case 'n':
				tmp = append(tmp, '\n')
			case 'r':
				tmp = append(tmp, '\r')
			case 'b':
				tmp = append(tmp, '\b')
			case 't':
				tmp = append(tmp, '\t')
			case 'f':
				tmp = append(tmp, '\f')
			case '\r':
				if b.readByte() != '\n' {
					b.unreadByte()
				}
			case '\n':
				// line continuation
			case '0', '1', '2', '3', '4', '5', '6', '7':
				x := int(c - '0')
				for i := 0; i < 2; i++ {
					c = b.readByte()
					if c < '0' || c > '7' {
						b.unreadByte()
						break
					}
					x = x*8 + int(c-'0')
				}
				tmp = append(tmp, byte(x))
			}
		}
	}
	b.tmp = tmp
	return string(tmp)
}

func (b *buffer) readName() token {
	tmp := b.tmp[:0]
	for {
		c := b.readByte()
		if isDelim(c) || isSpace(c) {
			b.unreadByte()
			break
		}
		if c == '#' {
			x := unhex(b.readByte())<<4 | unhex(b.readByte())
			if x < 0 {
				b.errorf("malformed name")
			}
			tmp = append(tmp, byte(x))
			continue
		}
		tmp = append(tmp, c)
	}
	b.tmp = tmp
	return types.Name(string(tmp))
}

func (b *buffer) readKeyword() token {
	tmp := b.tmp[:0]
	for {
		c := b.readByte()
		if isDelim(c) || isSpace(c) {
			b.unreadByte()
			break
		}
		tmp = append(tmp, c)
	}
	b.tmp = tmp
	s := string(tmp)
	switch {
	case s == "true":
		return true
	case s == "false":
		return false
	case isInteger(s):
		x, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			b.errorf("invalid integer %s", s)
		}
		return x
	case isReal(s):
		x, err := strconv.ParseFloat(s, 64)
		if err != nil {
			b.errorf("invalid real %s", s)
		}
		return x
	}
	return keyword(s)
}

func isInteger(s string) bool {
	if len(s) > 0 && (s[0] == '+' || s[0] == '-') {
		s = s[1:]
	}
	if len(s) == 0 {
		return false
	}
	for _, c := range s {
		if c < '0' || '9' < c {
			return false
		}
	}
	return true
}

func isReal(s string) bool {
	if len(s) > 0 && (s[0] == '+' || s[0] == '-') {
		s = s[1:]
	}
	if len(s) == 0 {
		return false
	}
	ndot := 0
	for _, c := range s {
		if c == '.' {
			ndot++
			continue
		}
		if c < '0' || '9' < c {
			return false
		}
	}
	return ndot == 1 && len(s) > 1
}

// readObject reads one object. Indirect definitions ("N G obj ... endobj")
// are returned as types.Objdef and references ("N G R") as types.Objptr.
func (b *buffer) readObject() types.Object {
	tok := b.readToken()
	switch tok {
	case io.EOF:
		b.errorf("unexpected end of data reading object")
	case keyword("null"):
		return nil
	case keyword("<<"):
		return b.readDict()
	case keyword("["):
		return b.readArray()
	}
	if kw, ok := tok.(keyword); ok {
		b.errorf("unexpected keyword %q parsing object", kw)
	}

	t1, ok := tok.(int64)
	if !ok || int64(uint32(t1)) != t1 {
		return tok
	}
	tok2 := b.readToken()
	t2, ok := tok2.(int64)
	if !ok || int64(uint16(t2)) != t2 {
		b.unreadToken(tok2)
		return tok
	}
	ptr := types.Objptr{ID: uint32(t1), Gen: uint16(t2)}
	switch tok3 := b.readToken(); tok3 {
	case keyword("R"):
		return ptr
	case keyword("obj"):
		old := b.objptr
		b.objptr = ptr
		obj := b.readObject()
		if tok4 := b.readToken(); tok4 != keyword("endobj") {
			// Tolerate a missing endobj; the next object header or
			// xref keyword is left for the caller.
			b.unreadToken(tok4)
		}
		b.objptr = old
		return types.Objdef{Ptr: ptr, Obj: obj}
	default:
		b.unreadToken(tok3)
	}
	b.unreadToken(tok2)
	return tok
}

func (b *buffer) enter() {
	if b.depth++; b.depth > maxNesting {
		b.errorf("objects nested deeper than %d levels", maxNesting)
	}
}

func (b *buffer) readArray() types.Object {
	b.enter()
	var x types.Array
	for {
		tok := b.readToken()
		if tok == io.EOF {
			b.errorf("stream ended with open array")
		}
		if tok == keyword("]") {
			break
		}
		b.unreadToken(tok)
		x = append(x, b.readObject())
	}
	b.arrays = append(b.arrays, x)
	b.depth--
	return x
}

func (b *buffer) readDict() types.Object {
	b.enter()
	x := make(types.Dict)
	for {
		tok := b.readToken()
		if tok == io.EOF {
			b.errorf("stream ended with open dict")
		}
		if tok == keyword(">>") {
			break
		}
		n, ok := tok.(types.Name)
		if !ok {
			b.errorf("unexpected non-name key %#v parsing dictionary", tok)
		}
		x[n] = b.readObject()
	}
	b.dicts = append(b.dicts, x)
	b.depth--

	if !b.allowStream {
		return x
	}

	tok := b.readToken()
	if tok != keyword("stream") {
		b.unreadToken(tok)
		return x
	}

	switch b.readByte() {
	case '\r':
		if b.readByte() != '\n' {
			b.unreadByte()
		}
	case '\n':
		// ok
	default:
		b.errorf("stream keyword not followed by newline")
	}

	return types.Stream{Hdr: x, Ptr: b.objptr, Offset: b.readOffset(), Data: b.readStreamData(x)}
}

var endstream = []byte("endstream")

// readStreamData slices the stream payload and leaves the buffer after
// the endstream keyword. A /Length that does not land on endstream is
// ignored in favor of scanning for the keyword.
func (b *buffer) readStreamData(hdr types.Dict) []byte {
	start := int(b.readOffset())
	rest := b.data[start:]
	if b.streamLength != nil {
		if n, ok := b.streamLength(hdr); ok && n >= 0 && n <= int64(len(rest)) {
			after := bytes.TrimLeft(rest[n:], "\r\n \t\f\x00")
			if bytes.HasPrefix(after, endstream) {
				b.pos = len(b.data) - len(after) + len(endstream)
				return rest[:n:n]
			}
		}
	}

	i := bytes.Index(rest, endstream)
	if i < 0 {
		b.errorf("missing endstream")
	}
	b.pos = start + i + len(endstream)
	data := rest[:i]
	if n := len(data); n > 0 && data[n-1] == '\n' {
		data = data[:n-1]
		if n := len(data); n > 0 && data[n-1] == '\r' {
			data = data[:n-1]
		}
	} else if n > 0 && data[n-1] == '\r' {
		data = data[:n-1]
	}
	return data[:len(data):len(data)]
}

func isSpace(b byte) bool {
	switch b {
	case '\x00', '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isDelim(b byte) bool {
	switch b {
	case '<', '>', '(', ')', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}
