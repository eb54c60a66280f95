package pdfgraph

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/ScriptRock/pdfgraph/internal/encoding"
	"github.com/ScriptRock/pdfgraph/internal/types"
)

// A Value is a view of a single PDF value, such as an integer, dictionary,
// or array, read through an Index. References inside dictionaries and
// arrays are resolved when accessed with Key or Index; a reference to a
// missing object reads as null.
//
// The zero Value is a PDF null (Kind() == NullKind, IsNull() = true).
type Value struct {
	idx  *Index
	ptr  Ref
	data Object
}

// ValueOf returns a Value for obj, resolving it first if it is a reference.
func (x *Index) ValueOf(obj Object) Value {
	return x.resolve(Ref{}, obj)
}

// Object returns the value of the object with the given identity.
func (x *Index) Object(ref Ref) (Value, bool) {
	obj, ok := x.Lookup(ref)
	if !ok {
		return Value{}, false
	}
	return Value{idx: x, ptr: ref, data: obj}, true
}

func (x *Index) resolve(parent Ref, obj Object) Value {
	if ref, ok := obj.(Ref); ok {
		target, err := x.Deref(ref)
		if err != nil {
			return Value{}
		}
		for {
			// Record the last identity of the chain as the holder.
			next, ok := x.objs[ref].(Ref)
			if !ok {
				break
			}
			ref = next
		}
		return Value{idx: x, ptr: ref, data: target}
	}
	return Value{idx: x, ptr: parent, data: obj}
}

// IsNull reports whether the value is a null. It is equivalent to Kind() == NullKind.
func (v Value) IsNull() bool {
	return v.data == nil
}

// Kind reports the kind of value underlying v.
func (v Value) Kind() Kind {
	return types.KindOf(v.data)
}

// Ref returns the identity of the indirect object v was read from.
// Direct values nested in an indirect object report that object.
func (v Value) Ref() Ref {
	return v.ptr
}

// Object returns the underlying object.
func (v Value) Object() Object {
	return v.data
}

// String returns a textual representation of the value v.
// Note that String is not the accessor for values with Kind() == StringKind.
// To access such values, see RawString and Text.
func (v Value) String() string {
	return objfmt(v.data)
}

func objfmt(x any) string {
	switch x := x.(type) {
	default:
		return fmt.Sprint(x)
	case nil:
		return "null"
	case string:
		if encoding.IsPDFDocEncoded(x) {
			return strconv.Quote(encoding.PDFDocDecode(x))
		}
		if encoding.IsUTF16(x) {
			return strconv.Quote(encoding.UTF16Decode(x[2:]))
		}
		return strconv.Quote(x)
	case types.Name:
		return "/" + string(x)
	case types.Dict:
		var keys []string
		for k := range x {
			keys = append(keys, string(k))
		}
		sort.Strings(keys)
		var buf bytes.Buffer
		buf.WriteString("<<")
		for i, k := range keys {
			elem := x[types.Name(k)]
			if i > 0 {
				buf.WriteString(" ")
			}
			buf.WriteString("/")
			buf.WriteString(k)
			buf.WriteString(" ")
			buf.WriteString(objfmt(elem))
		}
		buf.WriteString(">>")
		return buf.String()

	case types.Array:
		var buf bytes.Buffer
		buf.WriteString("[")
		for i, elem := range x {
			if i > 0 {
				buf.WriteString(" ")
			}
			buf.WriteString(objfmt(elem))
		}
		buf.WriteString("]")
		return buf.String()

	case types.Stream:
		return fmt.Sprintf("%v@%d", objfmt(x.Hdr), x.Offset)

	case types.ObjectStream:
		return fmt.Sprintf("objstm%v%v", objfmt(x.Hdr), x.Objects)

	case types.Objptr:
		return x.String()

	case types.Objdef:
		return fmt.Sprintf("{%d %d obj}%v", x.Ptr.ID, x.Ptr.Gen, objfmt(x.Obj))
	}
}

// Bool returns v's boolean value.
// If v.Kind() != BoolKind, Bool returns false.
func (v Value) Bool() bool {
	x, _ := v.data.(bool)
	return x
}

// Int64 returns v's int64 value.
// If v.Kind() != IntegerKind, Int64 returns 0.
func (v Value) Int64() int64 {
	x, _ := v.data.(int64)
	return x
}

// Float64 returns v's float64 value, converting from integer if necessary.
// If v.Kind() != RealKind and v.Kind() != IntegerKind, Float64 returns 0.
func (v Value) Float64() float64 {
	switch x := v.data.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	}
	return 0
}

// RawString returns v's string value.
// If v.Kind() != StringKind, RawString returns the empty string.
func (v Value) RawString() string {
	x, _ := v.data.(string)
	return x
}

// Text returns v's string value interpreted as a “text string” (defined in the PDF spec)
// and converted to UTF-8.
// If v.Kind() != StringKind, Text returns the empty string.
func (v Value) Text() string {
	x, ok := v.data.(string)
	if !ok {
		return ""
	}
	if encoding.IsUTF16(x) {
		return encoding.UTF16Decode(x[2:])
	}
	return encoding.PDFDocDecode(x)
}

// Name returns v's name value.
// If v.Kind() != NameKind, Name returns the empty string.
// The returned name does not include the leading slash:
// if v corresponds to the name written using the syntax /Helvetica,
// Name() == "Helvetica".
func (v Value) Name() string {
	x, _ := v.data.(types.Name)
	return string(x)
}

func (v Value) dict() types.Dict {
	switch x := v.data.(type) {
	case types.Dict:
		return x
	case types.Stream:
		return x.Hdr
	}
	return nil
}

// Key returns the value associated with the given name key in the dictionary v.
// Like the result of the Name method, the key should not include a leading slash.
// If v is a stream, Key applies to the stream's header dictionary.
// If v.Kind() != DictKind and v.Kind() != StreamKind, Key returns a null Value.
func (v Value) Key(key string) Value {
	x := v.dict()
	if x == nil {
		return Value{}
	}
	return v.idx.resolve(v.ptr, x[types.Name(key)])
}

// Keys returns a sorted list of the keys in the dictionary v.
// If v is a stream, Keys applies to the stream's header dictionary.
// If v.Kind() != DictKind and v.Kind() != StreamKind, Keys returns nil.
func (v Value) Keys() []string {
	x := v.dict()
	if x == nil {
		return nil
	}
	keys := []string{} // not nil
	for k := range x {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	return keys
}

// Index returns the i'th element in the array v.
// If v.Kind() != ArrayKind or if i is outside the array bounds,
// Index returns a null Value.
func (v Value) Index(i int) Value {
	x, ok := v.data.(types.Array)
	if !ok || i < 0 || i >= len(x) {
		return Value{}
	}
	return v.idx.resolve(v.ptr, x[i])
}

// Len returns the length of the array v.
// If v.Kind() != ArrayKind, Len returns 0.
func (v Value) Len() int {
	x, _ := v.data.(types.Array)
	return len(x)
}

// Data returns the raw, undecoded payload of the stream v.
// If v.Kind() != StreamKind, Data returns nil.
func (v Value) Data() []byte {
	x, _ := v.data.(types.Stream)
	return x.Data
}

// Reader returns the decoded data contained in the stream v.
// If v.Kind() != StreamKind, Reader returns a ReadCloser that
// responds to all reads with a “stream not present” error.
func (v Value) Reader() io.ReadCloser {
	x, ok := v.data.(types.Stream)
	if !ok {
		return &errorReadCloser{fmt.Errorf("stream not present")}
	}
	data, err := decodeStream(x, func(obj types.Object) types.Object {
		return v.idx.resolve(v.ptr, obj).data
	})
	if err != nil {
		return &errorReadCloser{fmt.Errorf("decoding stream %v: %w", v.ptr, err)}
	}
	return io.NopCloser(bytes.NewReader(data))
}

type errorReadCloser struct {
	err error
}

func (e *errorReadCloser) Read([]byte) (int, error) {
	return 0, e.err
}

func (e *errorReadCloser) Close() error {
	return e.err
}
