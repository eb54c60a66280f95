// Copyright 2014 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package encoding decodes PDF text strings.
package encoding

import (
	"unicode"

	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/unicode/norm"
)

// NoRune marks a byte with no PDFDocEncoding mapping.
const NoRune = unicode.ReplacementChar

var utf16BE = xunicode.UTF16(xunicode.BigEndian, xunicode.IgnoreBOM)

// IsPDFDocEncoded reports whether every byte of s has a PDFDocEncoding mapping.
func IsPDFDocEncoded(s string) bool {
	if IsUTF16(s) {
		return false
	}
	for i := 0; i < len(s); i++ {
		if pdfDocEncoding[s[i]] == NoRune {
			return false
		}
	}
	return true
}

func PDFDocDecode(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 || pdfDocEncoding[s[i]] != rune(s[i]) {
			goto Decode
		}
	}
	return s

Decode:
	r := make([]rune, len(s))
	for i := 0; i < len(s); i++ {
		r[i] = pdfDocEncoding[s[i]]
	}
	return string(r)
}

// IsUTF16 reports whether s starts with the big-endian byte order mark.
func IsUTF16(s string) bool {
	return len(s) >= 2 && s[0] == 0xfe && s[1] == 0xff && len(s)%2 == 0
}

// UTF16Decode decodes big-endian UTF-16 without a byte order mark.
// It returns the empty string if s is not valid UTF-16.
func UTF16Decode(s string) string {
	out, err := utf16BE.NewDecoder().String(s)
	if err != nil {
		return ""
	}
	return norm.NFKC.String(out)
}
