package pdfgraph

import (
	"log/slog"
)

// ShouldKeep reports whether obj belongs in the object index. Object
// streams and cross-reference streams are dropped: the reader has already
// unpacked the former into standalone objects, and the latter only describe
// the physical layout of the file.
func ShouldKeep(obj Object) bool {
	switch x := obj.(type) {
	case ObjectStream:
		return false
	case Stream:
		return x.Hdr["Type"] != Name("XRef")
	}
	return true
}

// Normalize merges the original body and its updates, oldest first, into
// one index. An object declared by a later revision replaces the earlier
// content under the same identity. Content rejected by ShouldKeep is
// skipped, so an earlier kept version of that identity, if any, survives.
//
// Free entries are ignored unless WithFreedObjects(true) is given.
// Neither original nor updates are modified.
func Normalize(original Revision, updates []Revision, opts ...Option) *Index {
	cfg := newConfig(opts)
	n := &normalizer{
		log:       cfg.logger,
		dropFreed: cfg.dropFreed,
		objs:      make(map[Ref]Object, len(original.Objects)),
	}
	n.fold(0, original)
	for i, u := range updates {
		n.fold(i+1, u)
	}
	return &Index{objs: n.objs}
}

// NormalizeParsed normalizes the revisions of p.
func NormalizeParsed(p *Parsed, opts ...Option) *Index {
	return Normalize(p.Original, p.Updates, opts...)
}

type normalizer struct {
	log       *slog.Logger
	dropFreed bool
	objs      map[Ref]Object
}

// fold layers one revision over the objects accumulated so far.
func (n *normalizer) fold(rev int, r Revision) {
	if n.dropFreed {
		for _, ref := range r.Free {
			if _, declared := r.Objects[ref]; declared {
				continue
			}
			if _, ok := n.objs[ref]; ok {
				delete(n.objs, ref)
				n.log.Debug("freed object removed", slog.Int("revision", rev), slog.String("ref", ref.String()))
			}
		}
	}
	for ref, obj := range r.Objects {
		if !ShouldKeep(obj) {
			n.log.Debug("auxiliary object dropped",
				slog.Int("revision", rev), slog.String("ref", ref.String()), slog.String("kind", KindOf(obj).String()))
			continue
		}
		n.objs[ref] = obj
	}
}
