package pdfgraph

import (
	"bytes"
	"log/slog"
	"maps"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func ref(id uint32) Ref { return Ref{ID: id} }

func rev(objs map[Ref]Object, free ...Ref) Revision {
	return Revision{Objects: objs, Free: free}
}

func xrefStream() Stream {
	return Stream{Hdr: Dict{"Type": Name("XRef"), "Size": int64(3)}, Data: []byte{1, 0, 0}}
}

func objStm(ids ...uint32) ObjectStream {
	s := ObjectStream{Stream: Stream{Hdr: Dict{"Type": Name("ObjStm"), "N": int64(len(ids))}}}
	for _, id := range ids {
		s.Objects = append(s.Objects, ref(id))
	}
	return s
}

func indexContents(idx *Index) map[Ref]Object {
	out := make(map[Ref]Object)
	idx.Range(func(r Ref, obj Object) bool {
		out[r] = obj
		return true
	})
	return out
}

func TestShouldKeep(t *testing.T) {
	testCases := map[string]struct {
		obj  Object
		want bool
	}{
		"null":              {obj: nil, want: true},
		"integer":           {obj: int64(1), want: true},
		"dict":              {obj: Dict{"Type": Name("XRef")}, want: true},
		"plain stream":      {obj: Stream{Hdr: Dict{"Length": int64(0)}}, want: true},
		"image stream":      {obj: Stream{Hdr: Dict{"Type": Name("XObject")}}, want: true},
		"xref string type":  {obj: Stream{Hdr: Dict{"Type": "XRef"}}, want: true},
		"stream nil header": {obj: Stream{}, want: true},
		"xref stream":       {obj: xrefStream(), want: false},
		"object stream":     {obj: objStm(1, 2), want: false},
		"reference":         {obj: ref(4), want: true},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			if got := ShouldKeep(tc.obj); got != tc.want {
				t.Errorf("ShouldKeep(%v) = %v, want %v", objfmt(tc.obj), got, tc.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	catalog := Dict{"Type": Name("Catalog")}
	testCases := map[string]struct {
		original Revision
		updates  []Revision
		opts     []Option
		want     map[Ref]Object
	}{
		"empty": {
			want: map[Ref]Object{},
		},
		"original only": {
			original: rev(map[Ref]Object{ref(1): catalog, ref(2): int64(7)}),
			want:     map[Ref]Object{ref(1): catalog, ref(2): int64(7)},
		},
		"recency wins across kinds": {
			original: rev(map[Ref]Object{ref(1): "original"}),
			updates: []Revision{
				rev(map[Ref]Object{ref(1): Dict{"U": int64(1)}}),
				rev(map[Ref]Object{ref(1): Array{int64(2)}}),
			},
			want: map[Ref]Object{ref(1): Array{int64(2)}},
		},
		"recency ignores numbering": {
			original: rev(map[Ref]Object{{ID: 1, Gen: 5}: "gen 5"}),
			updates: []Revision{
				rev(map[Ref]Object{{ID: 1, Gen: 5}: "newer"}),
				rev(map[Ref]Object{{ID: 1, Gen: 2}: "lower gen"}),
			},
			want: map[Ref]Object{{ID: 1, Gen: 5}: "newer", {ID: 1, Gen: 2}: "lower gen"},
		},
		"new objects in updates": {
			original: rev(map[Ref]Object{ref(1): catalog}),
			updates:  []Revision{rev(map[Ref]Object{ref(9): true})},
			want:     map[Ref]Object{ref(1): catalog, ref(9): true},
		},
		"auxiliary objects dropped in any revision": {
			original: rev(map[Ref]Object{ref(1): catalog, ref(5): objStm(6, 7), ref(6): Dict{}, ref(7): Dict{}}),
			updates: []Revision{
				rev(map[Ref]Object{ref(8): xrefStream()}),
				rev(map[Ref]Object{ref(10): objStm(11), ref(11): int64(11)}),
			},
			want: map[Ref]Object{ref(1): catalog, ref(6): Dict{}, ref(7): Dict{}, ref(11): int64(11)},
		},
		"filtered update keeps older content": {
			original: rev(map[Ref]Object{ref(5): Dict{"Old": true}}),
			updates:  []Revision{rev(map[Ref]Object{ref(5): objStm(6)})},
			want:     map[Ref]Object{ref(5): Dict{"Old": true}},
		},
		"filtered original replaced by update": {
			original: rev(map[Ref]Object{ref(5): xrefStream()}),
			updates:  []Revision{rev(map[Ref]Object{ref(5): Dict{"New": true}})},
			want:     map[Ref]Object{ref(5): Dict{"New": true}},
		},
		"free entries ignored by default": {
			original: rev(map[Ref]Object{ref(1): catalog, ref(4): "live"}),
			updates:  []Revision{rev(nil, ref(4))},
			want:     map[Ref]Object{ref(1): catalog, ref(4): "live"},
		},
		"free entries honored": {
			original: rev(map[Ref]Object{ref(1): catalog, ref(4): "live"}),
			updates:  []Revision{rev(nil, ref(4), ref(99))},
			opts:     []Option{WithFreedObjects(true)},
			want:     map[Ref]Object{ref(1): catalog},
		},
		"freed then reintroduced": {
			original: rev(map[Ref]Object{ref(4): "first"}),
			updates: []Revision{
				rev(nil, ref(4)),
				rev(map[Ref]Object{ref(4): "second"}),
			},
			opts: []Option{WithFreedObjects(true)},
			want: map[Ref]Object{ref(4): "second"},
		},
		"revision cannot free what it declares": {
			original: rev(map[Ref]Object{ref(4): "first"}),
			updates:  []Revision{rev(map[Ref]Object{ref(4): "redefined"}, ref(4))},
			opts:     []Option{WithFreedObjects(true)},
			want:     map[Ref]Object{ref(4): "redefined"},
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			got := indexContents(Normalize(tc.original, tc.updates, tc.opts...))
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Error("index did not match expectation:", diff)
			}
		})
	}
}

func TestNormalize_deterministicAndPure(t *testing.T) {
	original := map[Ref]Object{ref(1): Dict{"Type": Name("Catalog")}, ref(2): Array{ref(1)}, ref(3): objStm(4)}
	update := map[Ref]Object{ref(2): Array{ref(1), ref(4)}, ref(4): int64(4), ref(5): xrefStream()}
	origCopy, updateCopy := maps.Clone(original), maps.Clone(update)

	first := indexContents(Normalize(rev(original), []Revision{rev(update)}))
	for i := 0; i < 20; i++ {
		again := indexContents(Normalize(rev(original), []Revision{rev(update)}))
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatal("normalize is not deterministic:", diff)
		}
	}
	if diff := cmp.Diff(origCopy, original); diff != "" {
		t.Error("original body was modified:", diff)
	}
	if diff := cmp.Diff(updateCopy, update); diff != "" {
		t.Error("update body was modified:", diff)
	}
}

func TestNormalize_catalogScenario(t *testing.T) {
	original := rev(map[Ref]Object{ref(1): Dict{"Type": Name("Catalog")}})
	updated := Dict{"Type": Name("Catalog"), "Pages": ref(2)}
	idx := Normalize(original, []Revision{rev(map[Ref]Object{ref(1): updated})})

	if idx.Len() != 1 {
		t.Fatalf("index holds %d objects, want 1", idx.Len())
	}
	got, ok := idx.Lookup(ref(1))
	if !ok || !Equal(got, updated) {
		t.Errorf("Lookup(1) = %v, %v; want %v", objfmt(got), ok, objfmt(updated))
	}
	if _, ok := idx.Lookup(ref(2)); ok {
		t.Error("Lookup(2) found an object")
	}
	want := []*DanglingRefError{{From: ref(1), Path: "/Pages", To: ref(2)}}
	if diff := cmp.Diff(want, Resolve(idx)); diff != "" {
		t.Error("dangling references did not match expectation:", diff)
	}
}

func TestNormalize_objectStreamScenario(t *testing.T) {
	original := rev(map[Ref]Object{
		ref(5): objStm(6, 7),
		ref(6): Dict{"Type": Name("Page")},
		ref(7): Dict{"Type": Name("Font")},
	})
	idx := Normalize(original, nil)

	if diff := cmp.Diff([]Ref{ref(6), ref(7)}, idx.Refs()); diff != "" {
		t.Error("refs did not match expectation:", diff)
	}
}

func TestNormalize_logs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	Normalize(
		rev(map[Ref]Object{ref(1): int64(1), ref(5): objStm(1)}),
		[]Revision{rev(nil, ref(1))},
		WithLogger(logger), WithFreedObjects(true),
	)
	for _, want := range []string{"auxiliary object dropped", "ref=\"5 0 R\"", "freed object removed", "revision=1"} {
		if !bytes.Contains(buf.Bytes(), []byte(want)) {
			t.Errorf("log output missing %s:\n%s", want, buf.String())
		}
	}
}
