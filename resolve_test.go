package pdfgraph

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestResolve(t *testing.T) {
	testCases := map[string]struct {
		objs map[Ref]Object
		want []*DanglingRefError
	}{
		"empty": {},
		"all present": {
			objs: map[Ref]Object{
				ref(1): Dict{"Pages": ref(2)},
				ref(2): Dict{"Kids": Array{ref(3)}, "Count": int64(1)},
				ref(3): Dict{"Parent": ref(2)},
			},
		},
		"cycle": {
			objs: map[Ref]Object{
				ref(1): Dict{"Next": ref(2)},
				ref(2): Dict{"Next": ref(1)},
				ref(3): ref(3),
			},
		},
		"paths": {
			objs: map[Ref]Object{
				ref(1): Dict{
					"Z": ref(9),
					"A": Array{int64(0), Array{ref(8)}, Dict{"Deep": ref(7)}},
				},
				ref(2): ref(6),
			},
			want: []*DanglingRefError{
				{From: ref(1), Path: "/A[1][0]", To: ref(8)},
				{From: ref(1), Path: "/A[2]/Deep", To: ref(7)},
				{From: ref(1), Path: "/Z", To: ref(9)},
				{From: ref(2), Path: "", To: ref(6)},
			},
		},
		"generation matters": {
			objs: map[Ref]Object{
				ref(1): Array{Ref{ID: 2, Gen: 1}},
				ref(2): "gen 0",
			},
			want: []*DanglingRefError{{From: ref(1), Path: "[0]", To: Ref{ID: 2, Gen: 1}}},
		},
		"stream header": {
			objs: map[Ref]Object{
				ref(4): Stream{Hdr: Dict{"Length": ref(5)}, Data: []byte("1 0 R")},
			},
			want: []*DanglingRefError{{From: ref(4), Path: "/Length", To: ref(5)}},
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			got := Resolve(NewIndex(tc.objs))
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Error("dangling references did not match expectation:", diff)
			}
		})
	}
}

func TestResolve_deepNesting(t *testing.T) {
	var obj Object = ref(99)
	for i := 0; i < 2*maxNesting; i++ {
		obj = Array{obj}
	}
	got := Resolve(NewIndex(map[Ref]Object{ref(1): obj}))
	want := []*DanglingRefError{{From: ref(1), Path: strings.Repeat("[0]", maxNesting) + "/...", To: ref(99)}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Error("dangling references did not match expectation:", diff)
	}
}

func TestDanglingRefError(t *testing.T) {
	err := &DanglingRefError{From: ref(3), Path: "/Kids[0]", To: ref(4)}
	if got, want := err.Error(), "dangling reference 4 0 R at 3 0 R/Kids[0]"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
