// Copyright 2014 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pdfgraph

// A Page represent a single page in a PDF file.
// The methods interpret a Page dictionary stored in V.
type Page struct {
	V Value
}

// Page returns the page for the given page number.
// Page numbers are indexed starting at 1, not 0.
// If the page is not found, Page returns a Page with p.V.IsNull().
func (d *Document) Page(num int) Page {
	if num < 1 {
		return Page{}
	}
	num-- // now 0-indexed
	page := d.Root().Key("Pages")
	depth := 0
Search:
	for page.Key("Type").Name() == "Pages" {
		// A cyclic tree never runs out of levels.
		if depth++; depth > maxNesting {
			return Page{}
		}
		if count := int(page.Key("Count").Int64()); count <= num {
			return Page{}
		}
		kids := page.Key("Kids")
		for i := 0; i < kids.Len(); i++ {
			kid := kids.Index(i)
			switch kid.Key("Type").Name() {
			case "Pages":
				c := int(kid.Key("Count").Int64())
				if num < c {
					page = kid
					continue Search
				}
				num -= c
			case "Page":
				if num == 0 {
					return Page{kid}
				}
				num--
			}
		}
		break
	}
	return Page{}
}

// NumPage returns the number of pages in the PDF file.
func (d *Document) NumPage() int {
	return int(d.Root().Key("Pages").Key("Count").Int64())
}

func (p Page) findInherited(key string) Value {
	v := p.V
	for depth := 0; !v.IsNull() && depth <= maxNesting; depth++ {
		if r := v.Key(key); !r.IsNull() {
			return r
		}
		v = v.Key("Parent")
	}
	return Value{}
}

// Resources returns the resources dictionary associated with the page.
func (p Page) Resources() Value {
	return p.findInherited("Resources")
}

// MediaBox returns the page boundaries as [llx lly urx ury].
// It returns nil if the page has no valid MediaBox.
func (p Page) MediaBox() []float64 {
	box := p.findInherited("MediaBox")
	if box.Len() != 4 {
		return nil
	}
	out := make([]float64, 4)
	for i := range out {
		out[i] = box.Index(i).Float64()
	}
	return out
}

// Fonts returns the names of the fonts associated with the page.
func (p Page) Fonts() []string {
	return p.Resources().Key("Font").Keys()
}
