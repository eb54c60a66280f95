// Package pdfgraph builds the object graph of a PDF file from all of its
// revisions.
//
// # Overview
//
// A PDF file that has been edited incrementally carries several revisions:
// the original body followed by updates appended to the end of the file,
// each with its own cross-reference section. Parse reads every revision
// separately. Normalize folds them, oldest first, into a single Index in
// which each object identity maps to its most recent content. Object
// streams and cross-reference streams are bookkeeping containers and are
// left out of the index; the objects an object stream holds are present
// under their own identities.
//
// Compound objects keep referring to each other by identity (Ref), so the
// graph may contain cycles. A Value reads through the index and resolves
// references on access. Resolve reports references whose target is missing.
//
// Load ties the steps together:
//
//	doc, err := pdfgraph.Load(data)
//	if err != nil {
//		return err
//	}
//	for _, f := range doc.Failures() {
//		log.Print(f)
//	}
//	fmt.Println(doc.Root().Key("Pages").Key("Count").Int64())
package pdfgraph

import (
	"fmt"
	"log/slog"
	"os"
	"time"
)

// A Document is a normalized PDF object graph.
type Document struct {
	index     *Index
	trailer   Dict
	version   string
	revisions int
	failures  []*DanglingRefError
}

// Open reads and loads the named file.
func Open(file string, opts ...Option) (*Document, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	doc, err := Load(data, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", file, err)
	}
	return doc, nil
}

// Load parses data, normalizes its revisions and builds the document.
// It fails only when the file structure cannot be read; dangling
// references are reported by Failures.
func Load(data []byte, opts ...Option) (*Document, error) {
	cfg := newConfig(opts)

	start := time.Now()
	p, err := Parse(data, opts...)
	if err != nil {
		return nil, err
	}
	cfg.logger.Debug("parsed PDF",
		slog.Duration("elapsed", time.Since(start)),
		slog.Int("revisions", 1+len(p.Updates)),
		slog.Int("dicts", len(p.Dicts)),
		slog.Int("arrays", len(p.Arrays)))

	return New(p, opts...), nil
}

// New builds a document from already parsed revisions.
func New(p *Parsed, opts ...Option) *Document {
	cfg := newConfig(opts)

	start := time.Now()
	idx := NormalizeParsed(p, opts...)
	cfg.logger.Debug("normalized PDF", slog.Duration("elapsed", time.Since(start)), slog.Int("objects", idx.Len()))

	doc := &Document{
		index:     idx,
		trailer:   cleanTrailer(p.Latest().Trailer),
		version:   p.Version,
		revisions: 1 + len(p.Updates),
	}
	if !cfg.skipResolve {
		doc.failures = append(danglingRefs(idx, Ref{}, "trailer", Dict(doc.trailer)), Resolve(idx)...)
		for _, f := range doc.failures {
			cfg.logger.Debug("dangling reference", slog.String("from", f.From.String()),
				slog.String("path", f.Path), slog.String("to", f.To.String()))
		}
	}
	return doc
}

// cleanTrailer drops the keys that only describe the cross-reference
// section the trailer came from.
func cleanTrailer(t Dict) Dict {
	out := make(Dict, len(t))
	for k, v := range t {
		switch k {
		case "Prev", "XRefStm", "Type", "W", "Index", "Length", "Filter", "DecodeParms":
			continue
		}
		out[k] = v
	}
	return out
}

// Index returns the normalized object index.
func (d *Document) Index() *Index { return d.index }

// Version returns the version from the file header, like "1.7".
func (d *Document) Version() string { return d.version }

// Revisions returns the number of revisions the document was built from.
func (d *Document) Revisions() int { return d.revisions }

// Failures returns the dangling references found while loading.
func (d *Document) Failures() []*DanglingRefError { return d.failures }

// Trailer returns the trailer dictionary of the newest revision.
func (d *Document) Trailer() Value {
	return Value{idx: d.index, data: d.trailer}
}

// Root returns the document catalog.
func (d *Document) Root() Value { return d.Trailer().Key("Root") }

// Info returns the document information dictionary, if any.
func (d *Document) Info() Value { return d.Trailer().Key("Info") }

// Object returns the object with the given identity.
func (d *Document) Object(ref Ref) (Value, bool) { return d.index.Object(ref) }
